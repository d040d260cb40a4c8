package sat_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/undertaker-go/blockdefect/pkg/sat"
)

// stubMinimizer returns a fixed reduced DIMACS CNF regardless of input,
// standing in for an external minimizer binary in tests.
type stubMinimizer struct {
	out string
}

func (s stubMinimizer) Minimize(ctx context.Context, r io.Reader) (io.Reader, error) {
	// Drain the input the way a real subprocess consuming stdin would.
	_, _ = io.Copy(io.Discard, r)
	return strings.NewReader(s.out), nil
}

func TestCheckMUSRendersReducedCore(t *testing.T) {
	a := sat.NewAdapter(sat.WithMinimizer(stubMinimizer{out: "UNSATISFIABLE\np cnf 2 1\n1 -2 0\n"}))

	ok, err := a.Check("CONFIG_A && !CONFIG_A")
	require.NoError(t, err)
	require.False(t, ok)

	res, err := a.CheckMUS(context.Background(), "CONFIG_A && !CONFIG_A")
	require.NoError(t, err)
	require.Equal(t, 1, res.ClauseCount)
	require.Contains(t, res.Formula, "||")
}

func TestCheckMUSRejectsOutputMissingResultLine(t *testing.T) {
	a := sat.NewAdapter(sat.WithMinimizer(stubMinimizer{out: "p cnf 2 1\n1 -2 0\n"}))

	ok, err := a.Check("CONFIG_A && !CONFIG_A")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = a.CheckMUS(context.Background(), "CONFIG_A && !CONFIG_A")
	require.Error(t, err)
}
