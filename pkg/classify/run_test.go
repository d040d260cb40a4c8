package classify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/undertaker-go/blockdefect/pkg/block"
	"github.com/undertaker-go/blockdefect/pkg/classify"
)

func buildDeadFile(path string) *block.File {
	f := block.NewFile(path, block.Options{})
	f.OpenIf("0", false, 1, 1)
	f.CloseIf(3, 7)
	f.LateConstructAll()
	return f
}

func buildPlainFile(path string) *block.File {
	f := block.NewFile(path, block.Options{})
	f.OpenIf("CONFIG_PLAIN", false, 1, 1)
	f.CloseIf(3, 7)
	f.LateConstructAll()
	return f
}

func TestRunFilesClassifiesEachFileIndependently(t *testing.T) {
	files := []*block.File{
		buildDeadFile("a.c"),
		buildPlainFile("b.c"),
	}

	results, err := classify.RunFiles(context.Background(), files, nil, nil, classify.NewResultCache(), nil, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	var aResult, bResult classify.FileResult
	for _, r := range results {
		switch r.File.Path {
		case "a.c":
			aResult = r
		case "b.c":
			bResult = r
		}
	}

	require.Len(t, aResult.Defects, 1)
	require.Equal(t, classify.KindNoKconfig, aResult.Defects[0].Kind)
	require.Empty(t, bResult.Defects)
}

func TestRunFilesDefaultsToOneWorker(t *testing.T) {
	files := []*block.File{buildDeadFile("a.c")}

	results, err := classify.RunFiles(context.Background(), files, nil, nil, nil, nil, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Defects, 1)
}

func TestRunFilesSkipsRootOnlyFile(t *testing.T) {
	f := block.NewFile("empty.c", block.Options{})
	f.LateConstructAll()

	results, err := classify.RunFiles(context.Background(), []*block.File{f}, nil, nil, nil, nil, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Empty(t, results[0].Defects)
}
