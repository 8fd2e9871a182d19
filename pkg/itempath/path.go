// Package itempath implements the path grammar of the content tree.
//
// A path is a "/"-separated sequence of segments. Each segment is a name, optionally
// qualified by a namespace prefix ("jcr:content"), optionally followed by a 1-based
// same-name-sibling index ("item[2]"). Normalized paths are absolute, carry no "." or ".."
// segments, no trailing slash and no explicit "[1]" index.
package itempath

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackalope/jackalope.go/pkg/constants"
)

const (
	Separator = "/"
	Root      = "/"
)

const invalidNameChars = "/[]*|"

func IsAbsolute(p string) bool {
	return strings.HasPrefix(p, Separator)
}

// IsValidName reports whether name can be used as the name of an item. Indexes are not part
// of a name.
func IsValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, invalidNameChars) {
		return false
	}
	for _, r := range name {
		if r < 0x20 {
			return false
		}
	}
	prefix, local, qualified := strings.Cut(name, ":")
	if qualified {
		if prefix == "" || local == "" || strings.Contains(local, ":") || strings.TrimSpace(prefix) != prefix {
			return false
		}
	}
	return strings.TrimSpace(name) == name
}

// HasIndex reports whether segment carries an explicit same-name-sibling index.
func HasIndex(segment string) bool {
	return strings.HasSuffix(segment, "]") && strings.Contains(segment, "[")
}

// SplitIndex separates a segment into its name and 1-based index.
func SplitIndex(segment string) (string, int, error) {
	if !HasIndex(segment) {
		return segment, 1, nil
	}
	open := strings.LastIndex(segment, "[")
	index, err := strconv.Atoi(segment[open+1 : len(segment)-1])
	if err != nil || index < 1 {
		return "", 0, fmt.Errorf("%w: invalid index in segment %q", constants.ErrRepository, segment)
	}
	return segment[:open], index, nil
}

// Segment builds a path segment, leaving out the default index.
func Segment(name string, index int) string {
	if index <= 1 {
		return name
	}
	return name + "[" + strconv.Itoa(index) + "]"
}

func validateSegment(segment string) error {
	if segment == "." || segment == ".." {
		return nil
	}
	name, _, err := SplitIndex(segment)
	if err != nil {
		return err
	}
	if !IsValidName(name) {
		return fmt.Errorf("%w: invalid path segment %q", constants.ErrRepository, segment)
	}
	return nil
}

// Validate checks the syntax of p, absolute or relative. "." and ".." are accepted.
func Validate(p string) error {
	if p == "" {
		return fmt.Errorf("%w: empty path", constants.ErrRepository)
	}
	if p == Root {
		return nil
	}
	rest := strings.TrimPrefix(p, Separator)
	if strings.HasSuffix(rest, Separator) {
		return fmt.Errorf("%w: trailing slash in %q", constants.ErrRepository, p)
	}
	for _, segment := range strings.Split(rest, Separator) {
		if segment == "" {
			return fmt.Errorf("%w: empty segment in %q", constants.ErrRepository, p)
		}
		if err := validateSegment(segment); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// ValidateAbsolute checks that p is a syntactically valid absolute path.
func ValidateAbsolute(p string) error {
	if !IsAbsolute(p) {
		return fmt.Errorf("%w: %q is not an absolute path", constants.ErrRepository, p)
	}
	return Validate(p)
}

// Normalize resolves "." and ".." segments of the absolute path p and drops "[1]" indexes.
func Normalize(p string) (string, error) {
	if err := ValidateAbsolute(p); err != nil {
		return "", err
	}
	var out []string
	for _, segment := range strings.Split(strings.TrimPrefix(p, Separator), Separator) {
		switch segment {
		case "", ".":
			continue
		case "..":
			if len(out) == 0 {
				return "", fmt.Errorf("%w: %q leaves the root", constants.ErrRepository, p)
			}
			out = out[:len(out)-1]
		default:
			name, index, err := SplitIndex(segment)
			if err != nil {
				return "", err
			}
			out = append(out, Segment(name, index))
		}
	}
	return Root + strings.Join(out, Separator), nil
}

// Absolute resolves rel against the absolute path base. An absolute rel ignores base.
func Absolute(base, rel string) (string, error) {
	if IsAbsolute(rel) {
		return Normalize(rel)
	}
	if err := Validate(rel); err != nil {
		return "", err
	}
	return Normalize(Join(base, rel))
}

// Join appends rel to parent without normalizing.
func Join(parent, rel string) string {
	if parent == Root || parent == "" {
		return Root + rel
	}
	return parent + Separator + rel
}

// Parent returns the parent of a normalized path. The parent of the root is "".
func Parent(p string) string {
	if p == Root || p == "" {
		return ""
	}
	i := strings.LastIndex(p, Separator)
	if i <= 0 {
		return Root
	}
	return p[:i]
}

// Name returns the last segment of a normalized path, index included. The root has no name.
func Name(p string) string {
	if p == Root {
		return ""
	}
	return p[strings.LastIndex(p, Separator)+1:]
}

func Depth(p string) int {
	if p == Root || p == "" {
		return 0
	}
	return strings.Count(p, Separator)
}

// IsDescendant reports whether p lies strictly below ancestor.
func IsDescendant(p, ancestor string) bool {
	if ancestor == Root {
		return p != Root && IsAbsolute(p)
	}
	return strings.HasPrefix(p, ancestor+Separator)
}

// Rebase moves p from below oldPrefix to below newPrefix. Paths outside oldPrefix are
// returned unchanged.
func Rebase(p, oldPrefix, newPrefix string) string {
	if p == oldPrefix {
		return newPrefix
	}
	if !IsDescendant(p, oldPrefix) {
		return p
	}
	return Join(newPrefix, strings.TrimPrefix(p, oldPrefix+Separator))
}

// IsNested reports whether a relative path addresses anything but a direct child.
func IsNested(rel string) bool {
	return strings.Contains(rel, Separator) || rel == "." || rel == ".."
}
