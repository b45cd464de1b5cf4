package session

import "testing"

// FuzzDecode feeds arbitrary stored values to Decode. It must never panic and
// anything it accepts must survive a re-encode.
func FuzzDecode(f *testing.F) {
	valid, err := Encode("eyJhbGciOiJIUzI1NiJ9.e30.sig")
	if err == nil {
		f.Add(valid)
	}
	f.Add("")
	f.Add(`"`)
	f.Add(`null`)
	f.Add(`{"a":1}`)
	f.Add(`"\u0000"`)

	f.Fuzz(func(t *testing.T, raw string) {
		value, err := Decode(raw)
		if err != nil {
			return
		}
		again, err := Encode(value)
		if err != nil {
			t.Fatalf("re-encode: %v", err)
		}
		if back, err := Decode(again); err != nil || back != value {
			t.Fatalf("re-decode mismatch: %q vs %q (%v)", back, value, err)
		}
	})
}
