// Package intersect implements the intersect engine (spec component C):
// given a code formula, it extracts the referenced symbols, asks the
// option model to close them under its implication map, and reports
// symbols that are absent from the model but plausibly configurable as
// "missing". Grounded on ConfigurationModel::doIntersect in the original
// undertaker implementation.
package intersect

import (
	"sort"

	"github.com/undertaker-go/blockdefect/internal/symbol"
	"github.com/undertaker-go/blockdefect/pkg/formula"
	"github.com/undertaker-go/blockdefect/pkg/model"
)

// DefineChecker reports whether name is eligible for model lookup, i.e.
// it is not a preprocessor-level macro of the file being analyzed. A nil
// DefineChecker is treated as "always eligible".
type DefineChecker func(name string) bool

// Result is the outcome of an Intersect call.
type Result struct {
	// Referenced holds every symbol name found in the input formula.
	Referenced map[string]struct{}
	// Intersected is the restricted model-slice formula, conjoined with
	// "\n&& " the way the original implementation renders it.
	Intersected string
}

// Intersect implements spec.md §4.C. missing is grown in place; exclude,
// if non-nil, removes members from the model-specific closure before the
// closure's formulas are emitted (used by the classifier's build-system
// step to avoid re-deriving kconfig options already accounted for).
func Intersect(expr string, store model.Store, defineChecker DefineChecker, missing map[string]struct{}, exclude map[string]struct{}) Result {
	referenced := symbol.TokenSet(expr)

	itemSet := make(map[string]struct{}, len(referenced))
	for item := range referenced {
		itemSet[item] = struct{}{}
	}

	j := formula.New()
	if store != nil {
		store.DoIntersectPreprocess(itemSet, j, exclude)
	}

	whitelist := setOf(nil)
	blacklist := setOf(nil)
	if store != nil {
		whitelist = setOf(store.GetWhitelist())
		blacklist = setOf(store.GetBlacklist())
	}

	refs := make([]string, 0, len(referenced))
	for item := range referenced {
		refs = append(refs, item)
	}
	sort.Strings(refs)

	for _, item := range refs {
		if store != nil && store.ContainsSymbol(item) {
			if _, ok := whitelist[item]; ok {
				j.Append(item)
			}
			if _, ok := blacklist[item]; ok {
				j.Append("!" + item)
			}
			continue
		}

		if store == nil || !store.InConfigurationSpace(item) {
			continue
		}
		if defineChecker != nil && !defineChecker(item) {
			continue
		}
		if symbol.IsFreeOrCValue(item) {
			continue
		}
		missing[item] = struct{}{}
	}

	return Result{
		Referenced:  referenced,
		Intersected: j.Join("\n&& "),
	}
}

// MissingConstraint renders the negated disjunction of the missing-set,
// matching ConfigurationModel::getMissingItemsConstraints: "(!(m1 || m2 || ...))",
// or "" if missing is empty.
func MissingConstraint(missing map[string]struct{}) string {
	items := make([]string, 0, len(missing))
	for item := range missing {
		items = append(items, item)
	}
	sort.Strings(items)

	j := formula.New()
	for _, item := range items {
		j.Append(item)
	}
	if j.Len() == 0 {
		return ""
	}
	return "( ! ( " + j.Join(" || ") + " ) )"
}

func setOf(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, i := range items {
		out[i] = struct{}{}
	}
	return out
}
