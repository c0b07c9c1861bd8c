package hash

import (
	"fmt"
	"strings"
)

// Coordinate is a Maven-style artifact coordinate:
// group:name:version[:classifier][@extension].
type Coordinate struct {
	Group      string
	Name       string
	Version    string
	Classifier string // optional
	Extension  string // defaults to "jar"
}

// ParseCoordinate parses "g:a:v", "g:a:v:c" and "g:a:v:c@ext" forms.
func ParseCoordinate(s string) (Coordinate, error) {
	var c Coordinate
	c.Extension = "jar"

	rest := s
	if at := strings.LastIndex(rest, "@"); at != -1 {
		c.Extension = rest[at+1:]
		rest = rest[:at]
	}

	parts := strings.Split(rest, ":")
	switch len(parts) {
	case 3:
		c.Group, c.Name, c.Version = parts[0], parts[1], parts[2]
	case 4:
		c.Group, c.Name, c.Version, c.Classifier = parts[0], parts[1], parts[2], parts[3]
	default:
		return Coordinate{}, fmt.Errorf("hash: invalid artifact coordinate %q", s)
	}

	if c.Group == "" || c.Name == "" || c.Version == "" {
		return Coordinate{}, fmt.Errorf("hash: invalid artifact coordinate %q", s)
	}

	return c, nil
}

// String reconstructs the coordinate in canonical string form.
func (c Coordinate) String() string {
	var b strings.Builder
	b.WriteString(c.Group)
	b.WriteByte(':')
	b.WriteString(c.Name)
	b.WriteByte(':')
	b.WriteString(c.Version)
	if c.Classifier != "" {
		b.WriteByte(':')
		b.WriteString(c.Classifier)
	}
	ext := c.Extension
	if ext == "" {
		ext = "jar"
	}
	if ext != "jar" {
		b.WriteByte('@')
		b.WriteString(ext)
	}
	return b.String()
}

// WithClassifier returns a copy of c with its classifier replaced.
func (c Coordinate) WithClassifier(classifier string) Coordinate {
	c.Classifier = classifier
	return c
}

// Path derives the canonical repository-relative path for the coordinate:
// group.replace('.', '/') + "/" + name + "/" + version + "/" +
// name + "-" + version + (classifier ? "-" + classifier : "") + "." + extension
func (c Coordinate) Path() string {
	ext := c.Extension
	if ext == "" {
		ext = "jar"
	}

	fileName := c.Name + "-" + c.Version
	if c.Classifier != "" {
		fileName += "-" + c.Classifier
	}
	fileName += "." + ext

	groupPath := strings.ReplaceAll(c.Group, ".", "/")
	return strings.Join([]string{groupPath, c.Name, c.Version, fileName}, "/")
}

// ObjectPath derives the content-addressed storage path for an asset object:
// <hash[0:2]>/<hash>.
func ObjectPath(h SHA1) string {
	s := h.String()
	return s[:2] + "/" + s
}
