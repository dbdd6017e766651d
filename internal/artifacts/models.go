package artifacts

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// LatestVersion selects the newest version of a bento.
const LatestVersion = "latest"

var tagPart = regexp.MustCompile(`^[a-z0-9]([-._a-z0-9]*[a-z0-9])?$`)

// Tag identifies a bento as name:version.
type Tag struct {
	Name    string
	Version string
}

// ParseTag parses "name" or "name:version". Names and versions are lowercased;
// a missing version or "latest" selects the newest bento.
func ParseTag(s string) (Tag, error) {
	s = strings.TrimSpace(s)
	name, version, _ := strings.Cut(s, ":")
	tag := Tag{Name: strings.ToLower(name), Version: strings.ToLower(version)}

	if !validTagPart(tag.Name) {
		return Tag{}, fmt.Errorf("%w: invalid name in %q", ErrInvalidTag, s)
	}
	if tag.Version == "" {
		tag.Version = LatestVersion
	}
	if !validTagPart(tag.Version) {
		return Tag{}, fmt.Errorf("%w: invalid version in %q", ErrInvalidTag, s)
	}
	return tag, nil
}

func (t Tag) String() string {
	return t.Name + ":" + t.Version
}

// IsLatest reports whether the tag points at the newest version.
func (t Tag) IsLatest() bool {
	return t.Version == "" || t.Version == LatestVersion
}

// Handle is a resolved, local bento.
type Handle struct {
	// Path is the root of the bento on disk; it is also the build context.
	Path    string
	Name    string
	Version string
}

// Tag returns the name:version of the bento.
func (h Handle) Tag() Tag {
	return Tag{Name: h.Name, Version: h.Version}
}

// PathOf joins elements onto the bento root.
func (h Handle) PathOf(elem ...string) string {
	return filepath.Join(append([]string{h.Path}, elem...)...)
}
