package session

import (
	"encoding/json"
	"errors"
)

// errCorruptValue marks a stored value that is not a JSON string. Backends
// delete such values and report ErrNotFound.
var errCorruptValue = errors.New("session: corrupt record value")

// Encode serialises a record value as a JSON string. JSON keeps stored records
// readable by other services sharing the same keyspace.
func Encode(value string) (string, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode reverses Encode. An empty or null value is treated as corrupt.
func Decode(raw string) (string, error) {
	var value string
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return "", errors.Join(errCorruptValue, err)
	}
	if value == "" {
		return "", errCorruptValue
	}
	return value, nil
}
