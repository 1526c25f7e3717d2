// Package printer implements the text-stitching approach spec.md §9 calls
// for ("the source AST is cloned per declaration before rewriting"):
// instead of mutating a tree-sitter tree in place, a declaration is
// rewritten by slicing its original byte range and splicing a small list
// of byte-range edits over it. This keeps every rewriter in
// internal/dtsbundle/internal/jsbundle a pure function from (source bytes,
// edits) to text, with no dependency on a mutable AST.
package printer

import (
	"sort"
	"strings"
)

// Edit replaces source[Start:End] with Text. Start == End is an insertion
// at that point; Text == "" is a deletion.
type Edit struct {
	Start uint32
	End   uint32
	Text  string
}

// Render stitches source[regionStart:regionEnd] back together with edits
// applied. Edits must be non-overlapping; edits starting before the
// previous edit's end are dropped (defensive — callers are expected to
// build non-overlapping edit lists).
func Render(source []byte, regionStart, regionEnd uint32, edits []Edit) string {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var b strings.Builder
	cursor := regionStart
	for _, e := range sorted {
		if e.Start < cursor || e.Start > regionEnd {
			continue
		}
		b.Write(source[cursor:e.Start])
		b.WriteString(e.Text)
		cursor = e.End
		if cursor > regionEnd {
			cursor = regionEnd
		}
	}
	if cursor < regionEnd {
		b.Write(source[cursor:regionEnd])
	}
	return b.String()
}

// LeadingJSDoc returns the `/** ... */` block comment immediately
// preceding startByte, if any, along with the byte offset it starts at.
// Mirrors the analyzer's internal-tag scan (internal/symtab) but returns
// the comment text instead of just testing for @internal.
func LeadingJSDoc(source []byte, startByte uint32) (text string, start uint32, ok bool) {
	if int(startByte) > len(source) {
		return "", 0, false
	}
	before := string(source[:startByte])
	trimmedLen := len(strings.TrimRight(before, " \t\r\n"))
	trimmed := before[:trimmedLen]
	if !strings.HasSuffix(trimmed, "*/") {
		return "", 0, false
	}
	open := strings.LastIndex(trimmed, "/**")
	if open < 0 {
		return "", 0, false
	}
	return trimmed[open:], uint32(open), true
}

// WithLeadingJSDoc prepends a preserved JSDoc block (if present and not
// suppressed) to rendered declaration text, followed by a newline.
func WithLeadingJSDoc(source []byte, startByte uint32, rendered string) string {
	doc, _, ok := LeadingJSDoc(source, startByte)
	if !ok {
		return rendered
	}
	return doc + "\n" + rendered
}
