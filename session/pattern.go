package session

import "strings"

// likePattern translates a glob pattern into a SQL LIKE pattern using '\' as the
// escape character. '*' becomes '%', '?' becomes '_', and literal '%', '_' and
// '\' are escaped.
func likePattern(glob string) string {
	var b strings.Builder
	b.Grow(len(glob) + 8)
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteByte('%')
		case '?':
			b.WriteByte('_')
		case '%', '_', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
