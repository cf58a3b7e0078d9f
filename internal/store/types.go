package store

import "strings"

// Separator joins the components of a key path.
const Separator = "/"

// Entry is one named value under a key.
type Entry struct {
	Name string
	Data []byte
}

// Join builds a key path from its components, skipping empty ones.
func Join(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, Separator)
}

// parents returns path and every ancestor, shortest first.
func parents(path string) []string {
	var out []string
	for i := 0; i < len(path); i++ {
		if path[i] == Separator[0] {
			out = append(out, path[:i])
		}
	}
	return append(out, path)
}
