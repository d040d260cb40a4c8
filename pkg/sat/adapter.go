// Package sat wraps a Tseitin-encoded gini SAT solver behind the
// operations spec.md §4.F names: parse a propositional formula string,
// check satisfiability, recover an assignment, merge in a CNF option
// model, push polarity assumptions, and run an external MUS minimizer.
// Grounded on lit_mapping.go/dict.go in the teacher's
// pkg/controller/registry/resolver/solver package for the logic.C/z.Lit
// wiring style, and on SatChecker.h/.cpp in the original undertaker
// implementation for the operation set itself.
package sat

import (
	"sync"
	"time"

	"github.com/irifrance/gini"
	"github.com/irifrance/gini/inter"
	"github.com/irifrance/gini/logic"
	"github.com/irifrance/gini/z"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ConstantPolicy selects how atoms with no assumption end up
// constrained, per spec.md §4.F.
type ConstantPolicy int

const (
	// Free leaves otherwise-unreferenced atoms unconstrained (0 or 1).
	Free ConstantPolicy = iota
	// Bound is recorded and reported by Policy. Check does not consult
	// the policy, and PushAssumption does not force anything by itself:
	// an atom is constrained only when the caller combines the returned
	// literal into the checked formula.
	Bound
)

// ErrUnsat is returned by GetAssignment when the last Check call found
// the formula unsatisfiable.
var ErrUnsat = errors.New("sat: formula is unsatisfiable")

// ErrTimeout is the root cause wrapped into the error Check returns when
// a configured solve timeout (WithSolveTimeout) elapses before gini
// reaches a verdict. Callers unwrap it the way the teacher's resolver
// package compares sat.Incomplete: via errors.Is or errors.Cause.
var ErrTimeout = errors.New("sat: solve timed out")

// Adapter is a single-goroutine-owned SAT session: one Tseitin circuit,
// one incremental gini solver instance, and the symbol<->literal table
// needed to translate between propositional-formula text and the
// underlying solver's variables. Per spec.md §5, each concurrent worker
// owns its own Adapter.
type Adapter struct {
	log *logrus.Logger

	mu    sync.Mutex
	c     *logic.C
	g     *gini.Gini
	vars  map[string]z.Lit
	names map[z.Var]string
	// modelLits accumulates clause literals loaded via LoadCnfModel;
	// every Check call assumes all of them alongside the checked formula.
	modelLits []z.Lit

	policy ConstantPolicy

	lastSat        bool
	lastAssumption []z.Lit

	minimizer MUSMinimizer
	// limiter bounds the rate of MUS subprocess spawns across every
	// Adapter sharing it (SPEC_FULL §10); nil disables throttling. It
	// does not cap how many subprocesses run at once.
	limiter *rate.Limiter

	// solveTimeout bounds a single Check call's gini solve via Try
	// instead of the unbounded Solve; zero disables the bound.
	solveTimeout time.Duration
}

// Option configures a new Adapter.
type Option func(*Adapter)

// WithLogger attaches a logrus logger used for solver diagnostics.
func WithLogger(log *logrus.Logger) Option {
	return func(a *Adapter) { a.log = log }
}

// WithConstantPolicy selects the constant policy, per spec.md §4.F.
func WithConstantPolicy(p ConstantPolicy) Option {
	return func(a *Adapter) { a.policy = p }
}

// WithMinimizer overrides the external MUS minimizer used by CheckMUS,
// primarily for tests.
func WithMinimizer(m MUSMinimizer) Option {
	return func(a *Adapter) { a.minimizer = m }
}

// WithRateLimiter bounds how often CheckMUS may spawn the external
// minimizer process; share one *rate.Limiter across every worker's
// Adapter to cap the total spawn rate (SPEC_FULL §10).
func WithRateLimiter(l *rate.Limiter) Option {
	return func(a *Adapter) { a.limiter = l }
}

// WithSolveTimeout bounds every subsequent Check call to d via gini's
// Try, so a pathological formula cannot hang a worker forever; Check
// returns an error wrapping ErrTimeout if d elapses before a verdict.
// Zero (the default) leaves Check unbounded.
func WithSolveTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.solveTimeout = d }
}

// NewAdapter allocates a fresh SAT session.
func NewAdapter(opts ...Option) *Adapter {
	a := &Adapter{
		c:     logic.NewCCap(64),
		g:     gini.New(),
		vars:  make(map[string]z.Lit),
		names: make(map[z.Var]string),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.minimizer == nil {
		a.minimizer = ExternalMinimizer{}
	}
	return a
}

// Policy reports the adapter's configured constant policy.
func (a *Adapter) Policy() ConstantPolicy {
	return a.policy
}

func (a *Adapter) litFor(name string) z.Lit {
	if lit, ok := a.vars[name]; ok {
		return lit
	}
	lit := a.c.Lit()
	a.vars[name] = lit
	a.names[lit.Var()] = name
	return lit
}

// Check parses formula and decides its satisfiability, caching the
// resulting assignment for GetAssignment. formula fragments are joined
// with "\n&& " by callers (pkg/formula.Joiner.Join), so Check accepts
// that separator transparently by treating newlines as whitespace.
func (a *Adapter) Check(formula string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	toks, err := lex(formula)
	if err != nil {
		return false, &ParseError{Formula: formula, Err: err}
	}
	p := newParser(toks, a.c, a.vars)
	root, err := p.parseFormula()
	if err != nil {
		return false, &ParseError{Formula: formula, Err: err}
	}
	for name, lit := range p.vars {
		if _, ok := a.names[lit.Var()]; !ok {
			a.names[lit.Var()] = name
		}
	}

	a.c.ToCnf(a.g)
	assumptions := append([]z.Lit{root}, a.modelLits...)
	a.g.Assume(assumptions...)

	var result int
	if a.solveTimeout > 0 {
		result = a.g.Try(a.solveTimeout)
	} else {
		result = a.g.Solve()
	}
	a.lastSat = result == 1
	a.lastAssumption = assumptions

	if a.log != nil {
		a.log.WithFields(logrus.Fields{"sat": a.lastSat}).Debug("sat: check complete")
	}

	if result == 0 {
		if a.solveTimeout > 0 {
			return false, errors.Wrapf(ErrTimeout, "sat: solve exceeded %s", a.solveTimeout)
		}
		return false, errors.New("sat: solver returned an unknown result")
	}
	return a.lastSat, nil
}

// GetAssignment returns the last satisfying assignment as a map from
// symbol name to boolean, or ErrUnsat if the last Check call was unsat.
func (a *Adapter) GetAssignment() (map[string]bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.lastSat {
		return nil, ErrUnsat
	}
	out := make(map[string]bool, len(a.vars))
	for name, lit := range a.vars {
		out[name] = a.g.Value(lit)
	}
	return out, nil
}

// PushAssumption forces name to polarity for the next Check call,
// implementing the base-expression re-check variant from spec.md §4.F.
// Only meaningful under ConstantPolicy Bound; callers using Free may
// still call it, but the assumption is only actually enforced by
// combining its returned literal into the checked formula.
func (a *Adapter) PushAssumption(name string, polarity bool) z.Lit {
	a.mu.Lock()
	defer a.mu.Unlock()
	lit := a.litFor(name)
	if !polarity {
		return lit.Not()
	}
	return lit
}

// LoadCnfModel merges a clause-oriented CNF model into the solver's
// state, ANDing each clause into the working circuit under the model's
// own symbol table. clauses maps a descriptive name (unused beyond
// diagnostics) to a disjunction of literal tokens already resolved to
// signed symbol names (a leading "!" negates).
func (a *Adapter) LoadCnfModel(clauses map[string][]string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for name, lits := range clauses {
		if len(lits) == 0 {
			continue
		}
		ms := make([]z.Lit, 0, len(lits))
		for _, tok := range lits {
			if len(tok) > 0 && tok[0] == '!' {
				ms = append(ms, a.litFor(tok[1:]).Not())
			} else {
				ms = append(ms, a.litFor(tok))
			}
		}
		clause := a.c.Ors(ms...)
		a.modelLits = append(a.modelLits, clause)
		if a.log != nil {
			a.log.WithField("clause", name).Trace("sat: cnf model clause loaded")
		}
	}
	return nil
}

// Reset discards the current circuit/solver state so the Adapter can be
// reused for an unrelated formula, keeping the same worker goroutine
// (spec.md §5's one-Adapter-per-worker model).
func (a *Adapter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.c = logic.NewCCap(64)
	a.g = gini.New()
	a.vars = make(map[string]z.Lit)
	a.names = make(map[z.Var]string)
	a.modelLits = nil
	a.lastSat = false
	a.lastAssumption = nil
}

var _ inter.S = (*gini.Gini)(nil)
