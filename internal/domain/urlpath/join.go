// Package urlpath joins URL path segments with exactly one separator at each
// junction.
package urlpath

import "strings"

const separator = "/"

// Join appends path to base, leaving exactly one "/" between them.
//
// An empty base yields path with a leading "/" (or "" when path is also
// empty). An empty path yields base unchanged. All other characters are
// preserved verbatim; no trailing "/" is added.
func Join(base, path string) string {
	if base == "" {
		if path == "" || strings.HasPrefix(path, separator) {
			return path
		}
		return separator + path
	}
	if path == "" {
		return base
	}

	baseSlash := strings.HasSuffix(base, separator)
	pathSlash := strings.HasPrefix(path, separator)
	switch {
	case baseSlash && pathSlash:
		return base + path[1:]
	case !baseSlash && !pathSlash:
		return base + separator + path
	default:
		return base + path
	}
}

// JoinAll folds Join over segments from left to right.
func JoinAll(base string, segments ...string) string {
	out := base
	for _, s := range segments {
		out = Join(out, s)
	}
	return out
}
