package model_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/undertaker-go/blockdefect/pkg/model"
)

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func writeModel(t *testing.T, dir, name, model, rsf string) string {
	t.Helper()
	modelPath := filepath.Join(dir, name+".model")
	require.NoError(t, os.WriteFile(modelPath, []byte(model), 0o644))
	if rsf != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".rsf"), []byte(rsf), 0o644))
	}
	return modelPath
}

func TestTextStoreBasics(t *testing.T) {
	dir := t.TempDir()
	path := writeModel(t, dir, "x86",
		"CONFIG_FOO CONFIG_BAR\n"+
			"CONFIG_BAR\n"+
			`UNDERTAKER_SET ALWAYS_ON "CONFIG_FOO"`+"\n",
		"Item FOO boolean\nItem BAR tristate\n")

	s, err := model.NewTextStore(discardLogger(), path)
	require.NoError(t, err)

	require.True(t, s.IsBoolean("CONFIG_FOO"))
	require.True(t, s.IsTristate("CONFIG_BAR"))
	require.Equal(t, model.TypeBoolean, s.GetType("CONFIG_FOO"))
	require.Equal(t, model.TypeMissing, s.GetType("CONFIG_BAZ"))
	require.Equal(t, model.TypeError, s.GetType("NOT_AN_OPTION"))
	require.True(t, s.ContainsSymbol("CONFIG_FOO"))
	require.True(t, s.ContainsSymbol("FILE_anything.c"))
	require.False(t, s.ContainsSymbol("CONFIG_UNKNOWN"))
	require.True(t, s.IsComplete())
	require.Equal(t, []string{"CONFIG_FOO"}, s.GetWhitelist())
}

func TestTextStoreEmptyModelIsIncomplete(t *testing.T) {
	dir := t.TempDir()
	path := writeModel(t, dir, "empty", "", "")

	s, err := model.NewTextStore(discardLogger(), path)
	require.NoError(t, err)
	require.False(t, s.IsComplete())
}

func TestTextStoreModuleSuffixNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := writeModel(t, dir, "x86", "CONFIG_ACPI CONFIG_X\n", "Item ACPI tristate\n")

	s, err := model.NewTextStore(discardLogger(), path)
	require.NoError(t, err)
	require.Equal(t, model.TypeTristate, s.GetType("CONFIG_ACPI_MODULE"))
}
