package model_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/undertaker-go/blockdefect/pkg/model"
)

func TestRegistryLoadFileFirstBecomesMain(t *testing.T) {
	dir := t.TempDir()
	x86 := writeModel(t, dir, "x86", "CONFIG_FOO\n", "Item FOO boolean\n")
	arm := writeModel(t, dir, "arm", "CONFIG_BAR\n", "Item BAR boolean\n")

	reg := model.NewRegistry(discardLogger())
	require.NoError(t, reg.LoadFile("x86", x86))
	require.NoError(t, reg.LoadFile("arm", arm))

	require.Equal(t, "x86", reg.MainArch())
	require.NotNil(t, reg.Main())
	require.Equal(t, []string{"arm", "x86"}, reg.Archs())

	cross := reg.CrossCheck()
	require.Len(t, cross, 1)
	require.Contains(t, cross, "arm")
}

func TestRegistrySetMainSwitchesMainModel(t *testing.T) {
	dir := t.TempDir()
	x86 := writeModel(t, dir, "x86", "", "")
	arm := writeModel(t, dir, "arm", "", "")

	reg := model.NewRegistry(discardLogger())
	require.NoError(t, reg.LoadFile("x86", x86))
	require.NoError(t, reg.LoadFile("arm", arm))
	require.NoError(t, reg.SetMain("arm"))
	require.Equal(t, "arm", reg.MainArch())
}

func TestRegistrySetMainRejectsUnknownArch(t *testing.T) {
	reg := model.NewRegistry(discardLogger())
	require.Error(t, reg.SetMain("missing"))
}

func TestRegistryLoadFileDispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()
	cnfPath := filepath.Join(dir, "x86.cnf")
	require.NoError(t, os.WriteFile(cnfPath, []byte("VAR 1 CONFIG_FOO\nTYPE FOO boolean\n"), 0o644))

	reg := model.NewRegistry(discardLogger())
	require.NoError(t, reg.LoadFile("x86", cnfPath))

	store, ok := reg.Get("x86")
	require.True(t, ok)
	require.Equal(t, "cnf", store.ModelVersionIdentifier())
}

func TestRegistryGetMissingArch(t *testing.T) {
	reg := model.NewRegistry(discardLogger())
	_, ok := reg.Get("missing")
	require.False(t, ok)
}

func TestRegistryWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeModel(t, dir, "x86", "CONFIG_FOO\n", "Item FOO boolean\n")

	reg := model.NewRegistry(discardLogger())
	require.NoError(t, reg.LoadFile("x86", path))

	archOf := func(p string) (string, bool) {
		if strings.HasSuffix(p, ".model") {
			return strings.TrimSuffix(filepath.Base(p), ".model"), true
		}
		return "", false
	}

	stop, err := reg.Watch(dir, archOf)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte("CONFIG_FOO\nCONFIG_BAR\n"), 0o644))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s, _ := reg.Get("x86")
		if s != nil && s.ContainsSymbol("CONFIG_BAR") {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("model was not reloaded after write")
}
