package intersect_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/undertaker-go/blockdefect/pkg/intersect"
	"github.com/undertaker-go/blockdefect/pkg/model"
)

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func loadStore(t *testing.T, contents string) model.Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "x86.model")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	s, err := model.NewTextStore(discardLogger(), path)
	require.NoError(t, err)
	return s
}

func TestIntersectClosesImplications(t *testing.T) {
	s := loadStore(t, "CONFIG_FOO CONFIG_BAR\nCONFIG_BAR\nFILE_mus_test.c CONFIG_FOO\n")

	missing := map[string]struct{}{}
	res := intersect.Intersect("FILE_mus_test.c", s, nil, missing, nil)

	require.Empty(t, missing)
	require.Contains(t, res.Intersected, "FILE_mus_test.c -> (CONFIG_FOO)")
}

func TestIntersectReportsMissing(t *testing.T) {
	s := loadStore(t, "CONFIG_FOO\n")

	missing := map[string]struct{}{}
	res := intersect.Intersect("CONFIG_FOO && CONFIG_BAR", s, nil, missing, nil)

	require.Contains(t, missing, "CONFIG_BAR")
	require.Contains(t, res.Referenced, "CONFIG_FOO")
}

func TestIntersectNeverFlagsFreeOrCValueAsMissing(t *testing.T) {
	s := loadStore(t, "")

	missing := map[string]struct{}{}
	intersect.Intersect("__FREE__X && CONFIG_CVALUE_42", s, nil, missing, nil)

	require.Empty(t, missing)
}

func TestIntersectHonorsDefineChecker(t *testing.T) {
	s := loadStore(t, "")

	missing := map[string]struct{}{}
	intersect.Intersect("CONFIG_LOCAL_MACRO", s, func(string) bool { return false }, missing, nil)

	require.Empty(t, missing)
}

func TestMissingConstraintFormatsNegatedDisjunction(t *testing.T) {
	require.Equal(t, "", intersect.MissingConstraint(map[string]struct{}{}))
	require.Equal(t, "( ! ( CONFIG_A || CONFIG_B ) )",
		intersect.MissingConstraint(map[string]struct{}{"CONFIG_A": {}, "CONFIG_B": {}}))
}
