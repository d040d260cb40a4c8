package format_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/undertaker-go/blockdefect/pkg/format"
)

func TestCombinedWritesThreeSiblingFiles(t *testing.T) {
	srcTree := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcTree, "t.c"), []byte("int a;\n"), 0o644))

	outDir := t.TempDir()
	err := format.Combined(srcTree, outDir, 0, "t.c", "int a;\n", nil,
		map[string]bool{"CONFIG_FOO": true}, nil, nil, nil)
	require.NoError(t, err)

	base := filepath.Join(outDir, "t.c")
	for _, suffix := range []string{".0.commented", ".0.cpp", ".0.kconfig"} {
		require.FileExists(t, base+suffix)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "t.c"))
	require.NoError(t, err)
	require.Equal(t, "int a;\n", string(data))
}

func TestCombinedSkipsCopyWhenSrcTreeEmpty(t *testing.T) {
	outDir := t.TempDir()
	err := format.Combined("", outDir, 1, "t.c", "int a;\n", nil, nil, nil, nil, nil)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(outDir, "t.c.1.commented"))
}
