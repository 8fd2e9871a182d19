package jackalope

import (
	"regexp"
	"strings"
)

// NameFilter selects item names by glob. "*" matches any run of characters, everything
// else matches literally.
type NameFilter struct {
	globs []*regexp.Regexp
}

// ParseNamePattern splits pattern on "|" and trims whitespace around each glob.
func ParseNamePattern(pattern string) *NameFilter {
	parts := strings.Split(pattern, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return NameGlobs(parts...)
}

// NameGlobs builds a filter from explicit globs. Whitespace is significant.
func NameGlobs(globs ...string) *NameFilter {
	f := &NameFilter{globs: make([]*regexp.Regexp, 0, len(globs))}
	for _, g := range globs {
		expr := strings.ReplaceAll(regexp.QuoteMeta(g), `\*`, ".*")
		f.globs = append(f.globs, regexp.MustCompile("^"+expr+"$"))
	}
	return f
}

// Match reports whether name matches any glob. A nil filter matches everything.
func (f *NameFilter) Match(name string) bool {
	if f == nil {
		return true
	}
	for _, re := range f.globs {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Filter keeps the matching names in their original order.
func (f *NameFilter) Filter(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if f.Match(name) {
			out = append(out, name)
		}
	}
	return out
}
