package sat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/irifrance/gini/dimacs"
	"github.com/irifrance/gini/z"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MUSResult is the outcome of a minimal-unsatisfiable-subset computation.
type MUSResult struct {
	// Formula is a human-readable conjunction of disjunctions rendered
	// from the reduced clause set, using the solver's own symbol names.
	Formula string
	// ClauseCount is the number of clauses in the reduced core.
	ClauseCount int
}

// MUSMinimizer computes a minimal unsatisfiable subset of a DIMACS CNF
// problem, matching the external collaborator named in spec.md §6.
type MUSMinimizer interface {
	Minimize(ctx context.Context, dimacsCNF io.Reader) (io.Reader, error)
}

// ExternalMinimizer shells out to a DIMACS-speaking MUS minimizer binary
// (e.g. "picomus"), matching undertaker's own use of an external
// minimizer process rather than an in-process algorithm. Writes to the
// child's stdin after it has already produced output and exited return
// an ordinary I/O error (Go never raises SIGPIPE for pipes that are not
// the process's own stdout/stderr), so no special signal handling is
// required beyond treating a write error as non-fatal once output has
// already been captured.
type ExternalMinimizer struct {
	// Path is the minimizer binary to invoke. Defaults to "picomus" on
	// the PATH.
	Path string
	Args []string
	Log  *logrus.Logger
}

func (m ExternalMinimizer) binary() string {
	if m.Path == "" {
		return "picomus"
	}
	return m.Path
}

// Minimize implements MUSMinimizer by piping dimacsCNF to the external
// binary's stdin and returning its stdout.
func (m ExternalMinimizer) Minimize(ctx context.Context, dimacsCNF io.Reader) (io.Reader, error) {
	cmd := exec.CommandContext(ctx, m.binary(), m.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "sat: opening minimizer stdin")
	}
	var out strings.Builder
	cmd.Stdout = &out

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "sat: starting minimizer %q", m.binary())
	}

	writeErr := make(chan error, 1)
	go func() {
		_, err := io.Copy(stdin, dimacsCNF)
		stdin.Close()
		writeErr <- err
	}()

	waitErr := cmd.Wait()
	if err := <-writeErr; err != nil && waitErr == nil {
		if m.Log != nil {
			m.Log.WithError(err).Debug("sat: minimizer closed stdin before all input was written")
		}
	}
	if waitErr != nil {
		return nil, errors.Wrapf(waitErr, "sat: minimizer %q failed", m.binary())
	}
	return strings.NewReader(out.String()), nil
}

// dimacsCollector implements dimacs.CnfVis to capture a written CNF
// problem for round-tripping through the external minimizer.
type dimacsCollector struct {
	clauses [][]int
	cur     []int
}

func (d *dimacsCollector) Init(v, c int) {}

func (d *dimacsCollector) Add(m z.Lit) {
	if m == z.LitNull {
		d.clauses = append(d.clauses, d.cur)
		d.cur = nil
		return
	}
	d.cur = append(d.cur, m.Dimacs())
}

func (d *dimacsCollector) Eof() {}

// CheckMUS implements spec.md §4.F's checkMUS operation: it renders the
// adapter's currently loaded circuit as DIMACS, sends it to the
// configured MUSMinimizer, parses back a reduced clause set, and renders
// that set into a human-readable conjunction of disjunctions using the
// adapter's own symbol table. It only makes sense to call after a Check
// call has returned false (unsat).
func (a *Adapter) CheckMUS(ctx context.Context, formula string) (MUSResult, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return MUSResult{}, errors.Wrap(err, "sat: rate limiter")
		}
	}

	a.mu.Lock()
	toks, err := lex(formula)
	if err != nil {
		a.mu.Unlock()
		return MUSResult{}, &ParseError{Formula: formula, Err: err}
	}
	p := newParser(toks, a.c, a.vars)
	root, err := p.parseFormula()
	if err != nil {
		a.mu.Unlock()
		return MUSResult{}, &ParseError{Formula: formula, Err: err}
	}
	for name, lit := range p.vars {
		if _, ok := a.names[lit.Var()]; !ok {
			a.names[lit.Var()] = name
		}
	}

	buf := &collectorAdder{}
	a.c.ToCnf(buf)
	names := make(map[z.Var]string, len(a.names))
	for v, n := range a.names {
		names[v] = n
	}
	a.mu.Unlock()

	var dimacsBuf strings.Builder
	writeDimacs(&dimacsBuf, buf.clauses, append([]z.Lit{root}, a.modelLits...))

	out, err := a.minimizer.Minimize(ctx, strings.NewReader(dimacsBuf.String()))
	if err != nil {
		return MUSResult{}, err
	}

	body, err := stripResultLine(out)
	if err != nil {
		return MUSResult{}, err
	}

	var collector dimacsCollector
	if err := dimacs.ReadCnf(body, &collector); err != nil {
		return MUSResult{}, errors.Wrap(err, "sat: parsing minimizer output")
	}

	rendered := renderClauses(collector.clauses, names)
	return MUSResult{Formula: rendered, ClauseCount: len(collector.clauses)}, nil
}

// collectorAdder implements inter.Adder, capturing every 0-terminated
// clause added by logic.C.ToCnf.
type collectorAdder struct {
	clauses [][]int
	cur     []int
}

func (c *collectorAdder) Add(m z.Lit) {
	if m == z.LitNull {
		c.clauses = append(c.clauses, c.cur)
		c.cur = nil
		return
	}
	c.cur = append(c.cur, m.Dimacs())
}

// stripResultLine drops the minimizer's leading result word, matching
// SatChecker.cpp's "remove first line from ss (=UNSATISFIABLE)": per
// spec.md §6, the minimizer's first output line is the result word
// before the DIMACS CNF body begins.
func stripResultLine(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	line, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "sat: reading minimizer result line")
	}
	if strings.TrimSpace(line) != "UNSATISFIABLE" {
		return nil, errors.Errorf("sat: minimizer output did not start with UNSATISFIABLE, got %q", strings.TrimSpace(line))
	}
	return br, nil
}

// writeDimacs renders clauses plus a unit clause per element of assume
// into DIMACS CNF text.
func writeDimacs(w io.Writer, clauses [][]int, assume []z.Lit) {
	maxVar := 0
	for _, cl := range clauses {
		for _, lit := range cl {
			if v := abs(lit); v > maxVar {
				maxVar = v
			}
		}
	}
	total := len(clauses) + len(assume)
	fmt.Fprintf(w, "p cnf %d %d\n", maxVar, total)
	for _, cl := range clauses {
		fields := make([]string, 0, len(cl)+1)
		for _, lit := range cl {
			fields = append(fields, strconv.Itoa(lit))
		}
		fields = append(fields, "0")
		fmt.Fprintln(w, strings.Join(fields, " "))
	}
	for _, lit := range assume {
		fmt.Fprintf(w, "%d 0\n", lit.Dimacs())
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// renderClauses turns int-DIMACS clauses back into a human-readable
// "(a || !b) && (c)" conjunction using the adapter's symbol names,
// mirroring SatChecker's own MUS pretty-printing.
func renderClauses(clauses [][]int, names map[z.Var]string) string {
	rendered := make([]string, 0, len(clauses))
	for _, cl := range clauses {
		lits := make([]string, 0, len(cl))
		for _, n := range cl {
			v := z.Var(abs(n))
			name, ok := names[v]
			if !ok {
				name = fmt.Sprintf("v%d", v)
			}
			if n < 0 {
				lits = append(lits, "!"+name)
			} else {
				lits = append(lits, name)
			}
		}
		sort.Strings(lits)
		rendered = append(rendered, "("+strings.Join(lits, " || ")+")")
	}
	sort.Strings(rendered)
	return strings.Join(rendered, " && ")
}
