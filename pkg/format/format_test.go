package format_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/undertaker-go/blockdefect/pkg/block"
	"github.com/undertaker-go/blockdefect/pkg/format"
	"github.com/undertaker-go/blockdefect/pkg/model"
)

// writeModel writes a keyed-line ".model" file (empty by default, since
// these tests only need type/configuration-space behavior) plus its
// companion ".rsf" Item-type file (bare symbol names, matching the
// original kconfig dumpconf.c convention), then loads it as a TextStore.
func writeModel(t *testing.T, dir, arch, itemLines string) *model.TextStore {
	t.Helper()
	modelPath := filepath.Join(dir, arch+".model")
	require.NoError(t, os.WriteFile(modelPath, nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, arch+".rsf"), []byte(itemLines), 0o644))
	s, err := model.NewTextStore(nil, modelPath)
	require.NoError(t, err)
	return s
}

func TestKconfigRendersBooleanAssignment(t *testing.T) {
	dir := t.TempDir()
	store := writeModel(t, dir, "x86", "Item FOO boolean\n")

	got := format.Kconfig(map[string]bool{"CONFIG_FOO": true}, store, nil)
	require.Equal(t, "CONFIG_FOO=y\n", got)
}

func TestKconfigRendersModuleAssignment(t *testing.T) {
	dir := t.TempDir()
	store := writeModel(t, dir, "x86", "Item FOO tristate\n")

	got := format.Kconfig(map[string]bool{"CONFIG_FOO_MODULE": true}, store, nil)
	require.Equal(t, "CONFIG_FOO=m\n", got)
}

func TestKconfigSuppressesBlockAndIntegerSymbols(t *testing.T) {
	dir := t.TempDir()
	store := writeModel(t, dir, "x86", "Item SIZE integer\n")

	got := format.Kconfig(map[string]bool{
		"B3":          true,
		"CONFIG_SIZE": true,
		"CHOICE_1":    true,
	}, store, nil)
	require.Equal(t, "", got)
}

func TestKconfigEmitsMissingAsComment(t *testing.T) {
	got := format.Kconfig(map[string]bool{"CONFIG_GONE": true}, nil, map[string]struct{}{"GONE": {}})
	require.Equal(t, "# CONFIG_GONE is unknown\n", got)
}

func TestModelRestrictsToConfigurationSpace(t *testing.T) {
	dir := t.TempDir()
	store := writeModel(t, dir, "x86", "Item FOO boolean\n")

	got := format.Model(map[string]bool{
		"CONFIG_FOO": true,
		"B3":         false,
		"FILE_a.c":   true,
	}, store)
	require.Equal(t, "CONFIG_FOO=1\n", got)
}

func TestAllRendersEveryAssignment(t *testing.T) {
	got := format.All(map[string]bool{"B3": true, "CONFIG_FOO": false})
	require.Equal(t, "B3=1\nCONFIG_FOO=0\n", got)
}

func TestCPPSkipsBlockAndDefinedInFileNames(t *testing.T) {
	got := format.CPP(map[string]bool{
		"CONFIG_FOO": true,
		"B3":         true,
		"LOCAL_MAC":  true,
		"CONFIG_BAR": false,
	}, map[string]struct{}{"LOCAL_MAC": {}})
	require.Equal(t, "-DCONFIG_FOO=1\n", got)
}

func TestCommentedPreservesLineCount(t *testing.T) {
	f := block.NewFile("t.c", block.Options{})
	b1 := f.OpenIf("CONFIG_FOO", false, 2, 1)
	f.CloseIf(4, 7)
	f.LateConstructAll()

	source := "int a;\n#if CONFIG_FOO\nint dead;\n#endif\nint b;\n"
	got := format.Commented(source, []*block.Block{b1})

	gotLines := len(splitLines(got))
	wantLines := len(splitLines(source))
	require.Equal(t, wantLines, gotLines)
	require.Contains(t, got, format.CommentMarker+"int dead;")
	require.NotContains(t, got, "#if CONFIG_FOO")
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, c := range s {
		if c == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}
