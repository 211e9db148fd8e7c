package sync

import (
	"fmt"
	"strings"
)

// Identifier names one entry to synchronize. A bare title ("Github")
// matches by title in any folder; a slash-qualified identifier
// ("Personal/Google") pins the folder path from the database root.
type Identifier struct {
	// Raw is the identifier exactly as supplied by config or CLI.
	Raw string

	// Folder is the qualifying folder path, empty for bare titles.
	Folder []string

	// Title is the entry title to match.
	Title string
}

// ParseIdentifier splits a raw identifier into folder path and title.
// Matching is case-sensitive, so no normalization happens here beyond
// trimming surrounding whitespace.
func ParseIdentifier(raw string) (Identifier, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Identifier{}, fmt.Errorf("empty entry identifier")
	}

	segments := strings.Split(trimmed, "/")
	for _, s := range segments {
		if s == "" {
			return Identifier{}, fmt.Errorf("malformed entry identifier %q: empty path segment", raw)
		}
	}

	return Identifier{
		Raw:    trimmed,
		Folder: segments[:len(segments)-1],
		Title:  segments[len(segments)-1],
	}, nil
}

// ParseIdentifiers parses a list of raw identifiers, failing on the first
// malformed one.
func ParseIdentifiers(raws []string) ([]Identifier, error) {
	ids := make([]Identifier, 0, len(raws))
	for _, raw := range raws {
		id, err := ParseIdentifier(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Qualified reports whether the identifier pins a folder path.
func (id Identifier) Qualified() bool {
	return len(id.Folder) > 0
}

// String returns the raw identifier.
func (id Identifier) String() string {
	return id.Raw
}
