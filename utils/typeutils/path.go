package typeutils

import "strings"

// LookupPath resolves a dot-separated field path inside a record value.
// A path component that hits a non-object or a missing key reports !found.
// A field containing a literal dot shadows the nested reading: the exact key
// is checked first at every level.
func LookupPath(rec map[string]any, path string) (any, bool) {
	if rec == nil {
		return nil, false
	}
	if v, ok := rec[path]; ok {
		return v, true
	}

	head, rest, split := strings.Cut(path, ".")
	if !split {
		return nil, false
	}

	child, ok := rec[head]
	if !ok {
		return nil, false
	}
	childMap, ok := child.(map[string]any)
	if !ok {
		return nil, false
	}
	return LookupPath(childMap, rest)
}
