package archive

import (
	"path"
	"strings"
)

// Matcher decides whether a path inside an archived tree is excluded.
//
// Patterns use shell-glob syntax (path.Match, case-sensitive). A pattern
// without a slash is tested against every segment of the relative path, so
// "*.secret" excludes "a/b/key.secret" and "build" excludes "x/build/y".
// A pattern containing a slash, or starting with one ("/build"), is
// anchored to the tree root and tested against the leading segments of
// the path. Negated gitignore entries
// ("!foo") and comments cannot un-exclude anything and are dropped.
type Matcher struct {
	segment  []string
	anchored [][]string
}

// NewMatcher compiles patterns. Malformed globs are dropped.
func NewMatcher(patterns []string) *Matcher {
	m := &Matcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") || strings.HasPrefix(p, "!") {
			continue
		}
		rooted := strings.HasPrefix(p, "/")
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		if _, err := path.Match(p, ""); err != nil {
			continue
		}
		if rooted || strings.Contains(p, "/") {
			m.anchored = append(m.anchored, strings.Split(p, "/"))
		} else {
			m.segment = append(m.segment, p)
		}
	}
	return m
}

// Match reports whether rel, a slash-separated path relative to the tree
// root, is excluded.
func (m *Matcher) Match(rel string) bool {
	if m == nil || rel == "" || rel == "." {
		return false
	}
	segments := strings.Split(rel, "/")
	for _, seg := range segments {
		for _, p := range m.segment {
			if ok, _ := path.Match(p, seg); ok {
				return true
			}
		}
	}
	for _, parts := range m.anchored {
		if len(parts) > len(segments) {
			continue
		}
		matched := true
		for i, p := range parts {
			if ok, _ := path.Match(p, segments[i]); !ok {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}
