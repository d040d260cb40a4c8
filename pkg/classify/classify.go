// Package classify implements the defect classifier (spec component G):
// the central state machine that escalates a block's code formula through
// code, configuration, build-system and referential checks for both the
// Dead and Undead polarities, decides globality by cross-checking every
// other loaded option model, reclassifies model-independent contradictions
// as NoKconfig, and writes per-defect reports. Grounded on
// BlockDefectAnalyzer.h/.cpp (BlockDefect, DeadBlockDefect,
// UndeadBlockDefect, isDefect, needsCrosscheck, writeReportToFile) in the
// original undertaker implementation; the escalation style (Try steps
// returning early with a recorded cause) follows the switch-on-result
// shape of the teacher's sat.SolveWithContext.
package classify

import (
	"context"
	"sort"

	"github.com/undertaker-go/blockdefect/internal/symbol"
	"github.com/undertaker-go/blockdefect/pkg/block"
	"github.com/undertaker-go/blockdefect/pkg/build"
	"github.com/undertaker-go/blockdefect/pkg/codeformula"
	"github.com/undertaker-go/blockdefect/pkg/formula"
	"github.com/undertaker-go/blockdefect/pkg/intersect"
	"github.com/undertaker-go/blockdefect/pkg/model"
	"github.com/undertaker-go/blockdefect/pkg/sat"
)

// Kind is the classifier's own name for block.DefectType, which is
// defined in package block instead of here to avoid a block<->classify
// import cycle (block.Block.DefectType is set by ClassifyBlock).
type Kind = block.DefectType

// Kind values, re-exported under the classifier's own vocabulary.
const (
	KindNone           = block.DefectNone
	KindImplementation = block.DefectImplementation
	KindConfiguration  = block.DefectConfiguration
	KindReferential    = block.DefectReferential
	KindNoKconfig      = block.DefectNoKconfig
	KindBuildSystem    = block.DefectBuildSystem
)

// Polarity distinguishes a proved-unreachable (Dead) block from a
// proved-unremovable (Undead) one, spec.md §3's Defect.polarity.
type Polarity int

const (
	Dead Polarity = iota
	Undead
)

func (p Polarity) String() string {
	if p == Undead {
		return "undead"
	}
	return "dead"
}

// Defect is the classifier's verdict for one block, spec.md §3.
type Defect struct {
	Block    *block.Block
	Kind     Kind
	Polarity Polarity
	// Global holds under every loaded model; see the globality pass below.
	Global bool
	// Formula is the final formula proved unsatisfiable.
	Formula string
	// MUSFormula is the minimized unsat core, populated only for Dead
	// defects when CheckMUS against the main model succeeds.
	MUSFormula string
	// PerModel records the verdict kind under a cross-check arch that does
	// not exhibit the main model's verdict, populated only when !Global.
	PerModel map[string]Kind
}

// ClassifyBlock runs the escalation ladder from spec.md §4.G for one
// block: Try Dead, then (if no verdict) Try Undead, against reg's main
// model; reclassifies a model-independent verdict as NoKconfig; and
// settles globality by cross-checking every other loaded model. Returns
// (nil, nil) if no verdict was reached (b is not a defect).
func ClassifyBlock(ctx context.Context, adapter *sat.Adapter, f *block.File, b *block.Block, reg *model.Registry, provider build.ConditionProvider, cache *ResultCache) (*Defect, error) {
	recordBlockAnalyzed()

	j := formula.New()
	codeformula.CodeConstraints(b, j, nil)
	constraints := j.Join("\n&& ")

	var main model.Store
	if reg != nil {
		main = reg.Main()
	}

	polarity := Dead
	kind, proven, ok, err := escalate(ctx, adapter, cache, f, provider, main, codeFormulaFor(Dead, b, constraints))
	if err != nil {
		return nil, err
	}

	if !ok {
		if b.Parent == nil {
			// A root block, or any block with no parent, can never be
			// Undead (spec.md §8 boundary property).
			return nil, nil
		}
		polarity = Undead
		kind, proven, ok, err = escalate(ctx, adapter, cache, f, provider, main, codeFormulaFor(Undead, b, constraints))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
	}

	defect := &Defect{Block: b, Kind: kind, Polarity: polarity, Formula: proven}

	if polarity == Dead {
		if res, musErr := adapter.CheckMUS(ctx, proven); musErr == nil {
			defect.MUSFormula = res.Formula
		}
	}

	if !mentionsKconfig(b, loadedStores(reg)) {
		defect.Kind = KindNoKconfig
	}
	b.DefectType = defect.Kind

	globalityPass(ctx, adapter, cache, f, provider, reg, defect, constraints, b)

	recordDefect(defect)
	return defect, nil
}

// codeFormulaFor builds the initial formula for one polarity, spec.md
// §4.G steps 1 and 7: "B_i ∧ codeConstraints(b)" for Dead,
// "parent(b) ∧ ¬B_i ∧ codeConstraints(b)" for Undead.
func codeFormulaFor(p Polarity, b *block.Block, constraints string) string {
	if p == Undead {
		return joinAnd(b.Parent.Name, "!"+b.Name, constraints)
	}
	return joinAnd(b.Name, constraints)
}

// escalate runs step 1 ("Try Dead"/"Try Undead") of the ladder, then
// falls through to the model-dependent steps 3-5 if store is non-nil.
func escalate(ctx context.Context, adapter *sat.Adapter, cache *ResultCache, f *block.File, provider build.ConditionProvider, store model.Store, codeFormula string) (Kind, string, bool, error) {
	if err := ctx.Err(); err != nil {
		return KindNone, "", false, err
	}
	sat1, err := check(adapter, cache, store, codeFormula)
	if err != nil {
		return KindNone, "", false, err
	}
	if !sat1 {
		return KindImplementation, codeFormula, true, nil
	}
	if store == nil {
		return KindNone, "", false, nil
	}
	return escalateModelSteps(ctx, adapter, cache, f, provider, store, codeFormula)
}

// escalateModelSteps runs steps 3-5 of spec.md §4.G against store: the
// kconfig-intersection check, the build-system-intersection check, and
// (if the model is complete) the missing-set/referential check.
func escalateModelSteps(ctx context.Context, adapter *sat.Adapter, cache *ResultCache, f *block.File, provider build.ConditionProvider, store model.Store, codeFormula string) (Kind, string, bool, error) {
	if err := ctx.Err(); err != nil {
		return KindNone, "", false, err
	}
	defChecker := f.GetDefineChecker()
	missing := map[string]struct{}{}

	kcResult := intersect.Intersect(codeFormula, store, defChecker, missing, nil)
	fPrime := joinAnd(codeFormula, kcResult.Intersected)
	satKC, err := check(adapter, cache, store, fPrime)
	if err != nil {
		return KindNone, "", false, err
	}
	if !satKC {
		return KindConfiguration, fPrime, true, nil
	}

	if err := ctx.Err(); err != nil {
		return KindNone, "", false, err
	}
	buildCond := codeformula.BuildCondition(f, provider)
	buildResult := intersect.Intersect(buildCond, store, defChecker, missing, kcResult.Referenced)
	fBuild := joinAnd(fPrime, buildResult.Intersected, buildCond)
	satBuild, err := check(adapter, cache, store, fBuild)
	if err != nil {
		return KindNone, "", false, err
	}
	if !satBuild {
		return KindBuildSystem, fBuild, true, nil
	}

	if !store.IsComplete() {
		return KindNone, "", false, nil
	}

	if err := ctx.Err(); err != nil {
		return KindNone, "", false, err
	}
	fMiss := intersect.MissingConstraint(missing)
	fFinal := joinAnd(fBuild, fMiss)
	satMiss, err := check(adapter, cache, store, fFinal)
	if err != nil {
		return KindNone, "", false, err
	}
	if !satMiss {
		return KindReferential, fFinal, true, nil
	}

	return KindNone, "", false, nil
}

// globalityPass implements spec.md §4.G's "Global escalation": an
// architecture-specific file is always global; Implementation and
// NoKconfig defects are code-only and always global; otherwise every
// cross-check model must re-derive the same unsat verdict via steps 3-5,
// stopping at the first model that does not.
func globalityPass(ctx context.Context, adapter *sat.Adapter, cache *ResultCache, f *block.File, provider build.ConditionProvider, reg *model.Registry, defect *Defect, constraints string, b *block.Block) {
	if f.Arch != "" {
		defect.Global = true
		return
	}
	if defect.Kind == KindImplementation || defect.Kind == KindNoKconfig {
		defect.Global = true
		return
	}
	if reg == nil {
		defect.Global = true
		return
	}

	crossChecks := reg.CrossCheck()
	if len(crossChecks) == 0 {
		defect.Global = true
		return
	}

	archs := make([]string, 0, len(crossChecks))
	for arch := range crossChecks {
		archs = append(archs, arch)
	}
	sort.Strings(archs)

	baseFormula := codeFormulaFor(defect.Polarity, b, constraints)

	for _, arch := range archs {
		store := crossChecks[arch]
		kind, _, ok, err := escalateModelSteps(ctx, adapter, cache, f, provider, store, baseFormula)
		if err != nil || !ok {
			defect.Global = false
			defect.PerModel = map[string]Kind{arch: kind}
			return
		}
	}
	defect.Global = true
}

// mentionsKconfig implements the "After a verdict" NoKconfig test from
// spec.md §4.G: whether the block's own ifdef expression (or, for an Else
// block with no expression of its own, any previous sibling's) mentions a
// symbol inside any loaded model's configuration space. With zero loaded
// models this is vacuously false, matching NoKconfig's role as the verdict
// for a proof that never needed a model at all.
func mentionsKconfig(b *block.Block, stores []model.Store) bool {
	if b.Kind == block.KindElse {
		for _, s := range b.Siblings() {
			if mentionsKconfig(s, stores) {
				return true
			}
		}
		return false
	}
	for _, tok := range symbol.Tokenize(b.Expression()) {
		for _, s := range stores {
			if s != nil && s.InConfigurationSpace(tok) {
				return true
			}
		}
	}
	return false
}

func loadedStores(reg *model.Registry) []model.Store {
	if reg == nil {
		return nil
	}
	var stores []model.Store
	for _, arch := range reg.Archs() {
		if s, ok := reg.Get(arch); ok {
			stores = append(stores, s)
		}
	}
	return stores
}

// check performs a cached SAT.Check, keyed by the formula text and the
// store's version identifier (empty string when store is nil), per
// SPEC_FULL §10's hashstructure-backed dedupe key.
func check(adapter *sat.Adapter, cache *ResultCache, store model.Store, f string) (bool, error) {
	version := ""
	if store != nil {
		version = store.ModelVersionIdentifier() + ":" + store.Name()
	}
	if cache != nil {
		if v, ok := cache.Get(f, version); ok {
			return v, nil
		}
	}
	ok, err := adapter.Check(f)
	if err != nil {
		return false, err
	}
	if cache != nil {
		cache.Put(f, version, ok)
	}
	return ok, nil
}

func joinAnd(parts ...string) string {
	j := formula.New()
	for _, p := range parts {
		j.Append(p)
	}
	return j.Join("\n&& ")
}
