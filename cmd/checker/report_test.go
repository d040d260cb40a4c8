package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	require.NoError(t, w.Close())
	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	return buf.String()
}

func TestReportOptionsRunFiltersSummary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"files":[{"path":"a.c","defects":[{"block":"B0","kind":"code","polarity":"dead"}]}]}`), 0o644))

	o := reportOptions{summaryPath: path, query: ".files[0].defects[0].block"}
	out := captureStdout(t, func() {
		require.NoError(t, o.run())
	})
	require.Equal(t, "\"B0\"\n", out)
}

func TestReportOptionsRunRejectsBadQuery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	o := reportOptions{summaryPath: path, query: "("}
	require.Error(t, o.run())
}

func TestReportOptionsRunRejectsMissingFile(t *testing.T) {
	o := reportOptions{summaryPath: filepath.Join(t.TempDir(), "missing.json"), query: "."}
	require.Error(t, o.run())
}
