package classify_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/undertaker-go/blockdefect/pkg/block"
	"github.com/undertaker-go/blockdefect/pkg/classify"
)

func TestWriteReportGlobalDefect(t *testing.T) {
	f := block.NewFile("drivers/net/e1000.c", block.Options{})
	b1 := f.OpenIf("CONFIG_E1000", false, 3, 1)
	f.CloseIf(9, 7)
	f.LateConstructAll()

	d := &classify.Defect{
		Block:    b1,
		Kind:     classify.KindImplementation,
		Polarity: classify.Dead,
		Global:   true,
		Formula:  "B1\n&& (B1 <-> (0))",
	}

	dir := t.TempDir()
	path, err := classify.WriteReport(dir, d)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "e1000.c.B1.code.globally.dead"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "#B1:drivers/net/e1000.c:3:1:drivers/net/e1000.c:9:7:")
	require.Contains(t, string(data), d.Formula)
}

func TestWriteReportLocalDefectIncludesPerModelTable(t *testing.T) {
	f := block.NewFile("t.c", block.Options{})
	b1 := f.OpenIf("CONFIG_A", false, 1, 1)
	f.CloseIf(3, 7)
	f.LateConstructAll()

	d := &classify.Defect{
		Block:    b1,
		Kind:     classify.KindConfiguration,
		Polarity: classify.Dead,
		Global:   false,
		Formula:  "B1 && ...",
		PerModel: map[string]classify.Kind{"arm": classify.KindNone},
	}

	dir := t.TempDir()
	path, err := classify.WriteReport(dir, d)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "arm: none")
}

func TestWriteReportWritesSiblingMusFile(t *testing.T) {
	f := block.NewFile("t.c", block.Options{})
	b1 := f.OpenIf("CONFIG_A", false, 1, 1)
	f.CloseIf(3, 7)
	f.LateConstructAll()

	d := &classify.Defect{
		Block:      b1,
		Kind:       classify.KindImplementation,
		Polarity:   classify.Dead,
		Global:     true,
		Formula:    "B1 && (B1 <-> (0))",
		MUSFormula: "(B1)",
	}

	dir := t.TempDir()
	path, err := classify.WriteReport(dir, d)
	require.NoError(t, err)

	mus, err := os.ReadFile(path + ".mus")
	require.NoError(t, err)
	require.Equal(t, "(B1)\n", string(mus))
}

func TestWriteReportNilDefectIsANoop(t *testing.T) {
	path, err := classify.WriteReport(t.TempDir(), nil)
	require.NoError(t, err)
	require.Equal(t, "", path)
}
