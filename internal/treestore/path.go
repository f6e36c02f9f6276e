package treestore

import (
	"fmt"
	"strings"
)

const forbiddenSegmentChars = ".$#[]"

// SplitPath validates p and returns its segments. The root path yields no segments.
func SplitPath(p string) ([]string, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil, nil
	}
	segments := strings.Split(p, "/")
	for _, s := range segments {
		if s == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, p)
		}
		if strings.ContainsAny(s, forbiddenSegmentChars) {
			return nil, fmt.Errorf("%w: segment %q contains one of %q", ErrInvalidPath, s, forbiddenSegmentChars)
		}
	}
	return segments, nil
}

// CleanPath returns the canonical form of p.
func CleanPath(p string) (string, error) {
	segments, err := SplitPath(p)
	if err != nil {
		return "", err
	}
	return strings.Join(segments, "/"), nil
}

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// IsAncestor reports whether a is a strict ancestor of b. The root is an ancestor of every path.
func IsAncestor(a, b string) bool {
	if a == b {
		return false
	}
	if a == "" {
		return true
	}
	return strings.HasPrefix(b, a+"/")
}

// Related reports whether a write to one path is visible at the other.
func Related(a, b string) bool {
	return a == b || IsAncestor(a, b) || IsAncestor(b, a)
}

// ancestors lists every proper ancestor of p, excluding the root.
func ancestors(p string) []string {
	var out []string
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			out = append(out, p[:i])
		}
	}
	return out
}

func checkOverlap(paths []string) error {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	for _, p := range paths {
		for _, a := range ancestors(p) {
			if _, ok := set[a]; ok {
				return fmt.Errorf("%w: %q overlaps %q", ErrInvalidPath, a, p)
			}
		}
	}
	return nil
}
