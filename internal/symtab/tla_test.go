package symtab

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tspack/tspack/internal/tsparse"
)

func TestHasTopLevelAwait_DirectAwait(t *testing.T) {
	mgr := tsparse.NewManager(nil)
	defer mgr.Close()

	tree, err := mgr.Parse([]byte("const x = await fetchThing();"), tsparse.LanguageTypeScript, false)
	require.NoError(t, err)
	defer tree.Close()

	require.True(t, hasTopLevelAwait(tree.RootNode()))
}

func TestHasTopLevelAwait_NoAwait(t *testing.T) {
	mgr := tsparse.NewManager(nil)
	defer mgr.Close()

	tree, err := mgr.Parse([]byte("const x = fetchThing();"), tsparse.LanguageTypeScript, false)
	require.NoError(t, err)
	defer tree.Close()

	require.False(t, hasTopLevelAwait(tree.RootNode()))
}

func TestHasTopLevelAwait_InsideNestedAsyncFunctionDoesNotCount(t *testing.T) {
	mgr := tsparse.NewManager(nil)
	defer mgr.Close()

	source := `
async function helper() {
  return await fetchThing();
}
const x = 1;
`
	tree, err := mgr.Parse([]byte(source), tsparse.LanguageTypeScript, false)
	require.NoError(t, err)
	defer tree.Close()

	require.False(t, hasTopLevelAwait(tree.RootNode()), "an await inside a nested function body is not top-level")
}

func TestHasTopLevelAwait_InsideArrowFunctionDoesNotCount(t *testing.T) {
	mgr := tsparse.NewManager(nil)
	defer mgr.Close()

	source := `const run = async () => { await fetchThing(); };`
	tree, err := mgr.Parse([]byte(source), tsparse.LanguageTypeScript, false)
	require.NoError(t, err)
	defer tree.Close()

	require.False(t, hasTopLevelAwait(tree.RootNode()))
}

func TestHasTopLevelAwait_InsideForAwaitLoopAtTopLevelCounts(t *testing.T) {
	mgr := tsparse.NewManager(nil)
	defer mgr.Close()

	source := `
for await (const item of stream()) {
  console.log(item);
}
`
	tree, err := mgr.Parse([]byte(source), tsparse.LanguageTypeScript, false)
	require.NoError(t, err)
	defer tree.Close()

	require.True(t, hasTopLevelAwait(tree.RootNode()))
}

func TestHasTopLevelAwait_NestedInsideIfAtTopLevelCounts(t *testing.T) {
	mgr := tsparse.NewManager(nil)
	defer mgr.Close()

	source := `
if (shouldFetch) {
  await fetchThing();
}
`
	tree, err := mgr.Parse([]byte(source), tsparse.LanguageTypeScript, false)
	require.NoError(t, err)
	defer tree.Close()

	require.True(t, hasTopLevelAwait(tree.RootNode()))
}
