package build_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/undertaker-go/blockdefect/pkg/build"
)

func TestNewFileProviderCondition(t *testing.T) {
	p := build.NewFileProvider(map[string]string{
		"a.c": "CONFIG_A",
	})

	cond, ok := p.Condition("a.c")
	require.True(t, ok)
	require.Equal(t, "CONFIG_A", cond)

	_, ok = p.Condition("b.c")
	require.False(t, ok)
}

func TestLoadFileParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conditions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a.c: CONFIG_A && FILE_a.c\nb.c: CONFIG_B\n"), 0o644))

	p, err := build.LoadFile(path)
	require.NoError(t, err)

	cond, ok := p.Condition("a.c")
	require.True(t, ok)
	require.Equal(t, "CONFIG_A && FILE_a.c", cond)
}

func TestLoadFileMissingReturnsError(t *testing.T) {
	_, err := build.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestNoneProviderAlwaysAbsent(t *testing.T) {
	_, ok := build.NoneProvider{}.Condition("anything.c")
	require.False(t, ok)
}

func TestNilFileProviderCondition(t *testing.T) {
	var p *build.FileProvider
	_, ok := p.Condition("a.c")
	require.False(t, ok)
}
