package printer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_NoEdits(t *testing.T) {
	source := []byte("export function add(a: number, b: number): number { return a + b; }")
	got := Render(source, 0, uint32(len(source)), nil)
	assert.Equal(t, string(source), got)
}

func TestRender_SingleReplacement(t *testing.T) {
	source := []byte("function add(a: number, b: number): number { return a + b; }")
	edits := []Edit{
		{Start: uint32(len("function add(a: number, b: number): number ")), End: uint32(len(source)), Text: ";"},
	}
	got := Render(source, 0, uint32(len(source)), edits)
	assert.Equal(t, "function add(a: number, b: number): number ;", got)
}

func TestRender_InsertionAtSamePoint(t *testing.T) {
	source := []byte("const x = 1")
	edits := []Edit{
		{Start: 0, End: 0, Text: "export "},
	}
	got := Render(source, 0, uint32(len(source)), edits)
	assert.Equal(t, "export const x = 1", got)
}

func TestRender_MultipleNonOverlappingEdits(t *testing.T) {
	source := []byte("interface Foo { a: string; b: number; }")
	edits := []Edit{
		{Start: 16, End: 25, Text: "a: string"},
		{Start: 27, End: 36, Text: "b: number"},
	}
	got := Render(source, 0, uint32(len(source)), edits)
	assert.Equal(t, string(source), got)
}

func TestRender_OutOfOrderEditsAreSorted(t *testing.T) {
	source := []byte("ABCDEFGHIJ")
	edits := []Edit{
		{Start: 6, End: 8, Text: "78"},
		{Start: 0, End: 2, Text: "01"},
	}
	got := Render(source, 0, uint32(len(source)), edits)
	assert.Equal(t, "01CDEF78IJ", got)
}

func TestRender_OverlappingEditDropped(t *testing.T) {
	source := []byte("ABCDEFGHIJ")
	edits := []Edit{
		{Start: 0, End: 5, Text: "XXXXX"},
		{Start: 3, End: 6, Text: "YYY"}, // starts before previous edit's end; dropped
	}
	got := Render(source, 0, uint32(len(source)), edits)
	assert.Equal(t, "XXXXXFGHIJ", got)
}

func TestRender_EditBeyondRegionEndIsDropped(t *testing.T) {
	source := []byte("ABCDEFGHIJ")
	edits := []Edit{
		{Start: 20, End: 25, Text: "ZZZZZ"},
	}
	got := Render(source, 0, 5, edits)
	assert.Equal(t, "ABCDE", got)
}

func TestRender_SubRegion(t *testing.T) {
	source := []byte("prefix[KEEP]suffix")
	got := Render(source, 6, 12, nil)
	assert.Equal(t, "[KEEP]", got)
}

func TestLeadingJSDoc_Found(t *testing.T) {
	source := []byte("/**\n * Adds two numbers.\n */\nexport function add() {}")
	start := uint32(len("/**\n * Adds two numbers.\n */\n"))
	doc, docStart, ok := LeadingJSDoc(source, start)
	require.True(t, ok)
	assert.Equal(t, uint32(0), docStart)
	assert.Contains(t, doc, "Adds two numbers.")
}

func TestLeadingJSDoc_ToleratesBlankLinesBetweenCommentAndDeclaration(t *testing.T) {
	source := []byte("/** doc */\n\nexport function add() {}")
	start := uint32(len("/** doc */\n\n"))
	doc, _, ok := LeadingJSDoc(source, start)
	require.True(t, ok)
	assert.Equal(t, "/** doc */", doc)
}

func TestLeadingJSDoc_NoneWhenOtherCodeIntervenes(t *testing.T) {
	source := []byte("/** doc */\nconst unrelated = 1;\nexport function add() {}")
	start := uint32(len(source) - len("export function add() {}"))
	_, _, ok := LeadingJSDoc(source, start)
	assert.False(t, ok, "a non-whitespace statement between the comment and declaration should not count as leading")
}

func TestLeadingJSDoc_NoneWhenNoComment(t *testing.T) {
	source := []byte("export function add() {}")
	_, _, ok := LeadingJSDoc(source, 0)
	assert.False(t, ok)
}

func TestWithLeadingJSDoc_PrependsWhenPresent(t *testing.T) {
	source := []byte("/** doc */\nexport function add() {}")
	start := uint32(len("/** doc */\n"))
	got := WithLeadingJSDoc(source, start, "function add() {}")
	assert.Equal(t, "/** doc */\nfunction add() {}", got)
}

func TestWithLeadingJSDoc_PassesThroughWhenAbsent(t *testing.T) {
	source := []byte("export function add() {}")
	got := WithLeadingJSDoc(source, 0, "function add() {}")
	assert.Equal(t, "function add() {}", got)
}
