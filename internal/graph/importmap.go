package graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ImportMap is a parsed import map: https://github.com/WICG/import-maps.
// Only the "imports" table is honored; "scopes" is out of scope for this
// bundler's single-root use case.
type ImportMap struct {
	Imports map[string]string
}

// ParseImportMap parses raw import-map JSON. jsonc-style "//" line comments
// are tolerated (the teacher's config loader affords the same leniency for
// its YAML config; import maps are conventionally hand-edited and benefit
// from the same courtesy).
func ParseImportMap(raw []byte) (*ImportMap, error) {
	stripped := stripLineComments(raw)

	var doc struct {
		Imports map[string]string `json:"imports"`
	}
	if err := json.Unmarshal(stripped, &doc); err != nil {
		return nil, fmt.Errorf("graph: parse import map: %w", err)
	}
	if doc.Imports == nil {
		doc.Imports = map[string]string{}
	}
	return &ImportMap{Imports: doc.Imports}, nil
}

func stripLineComments(raw []byte) []byte {
	lines := strings.Split(string(raw), "\n")
	for i, line := range lines {
		if idx := findLineCommentStart(line); idx >= 0 {
			lines[i] = line[:idx]
		}
	}
	return []byte(strings.Join(lines, "\n"))
}

// findLineCommentStart locates a "//" that starts a comment, ignoring any
// "//" that appears inside a double-quoted string.
func findLineCommentStart(line string) int {
	inString := false
	for i := 0; i < len(line)-1; i++ {
		switch line[i] {
		case '"':
			if i == 0 || line[i-1] != '\\' {
				inString = !inString
			}
		case '/':
			if !inString && line[i+1] == '/' {
				return i
			}
		}
	}
	return -1
}

// Resolve applies the import map to a raw bare specifier, returning the
// rewritten target and whether a mapping applied. Exact matches win; the
// longest matching trailing-slash prefix wins otherwise, per the import-map
// specification's resolution algorithm.
func (m *ImportMap) Resolve(raw string) (string, bool) {
	if m == nil {
		return raw, false
	}
	if target, ok := m.Imports[raw]; ok {
		return target, true
	}

	var prefixes []string
	for k := range m.Imports {
		if strings.HasSuffix(k, "/") && strings.HasPrefix(raw, k) {
			prefixes = append(prefixes, k)
		}
	}
	if len(prefixes) == 0 {
		return raw, false
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })
	best := prefixes[0]
	return m.Imports[best] + strings.TrimPrefix(raw, best), true
}
