// Package format implements the assignment formatters named in spec.md
// §4.H: renderings of a satisfying SAT assignment as a partial Kconfig
// selection, a full model dump, CPP command-line flags, or source with
// disabled blocks commented out. Grounded on dumpconf.c in the original
// undertaker/kconfig tooling for the Kconfig-line shape ("CONFIG_X=y",
// the CHOICE_ item-name convention) and on
// BlockDefectAnalyzer::writeReportToFile's fprintf-based rendering style
// in pkg/classify/report.go for how this package's own writers are laid
// out.
package format

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/undertaker-go/blockdefect/internal/symbol"
	"github.com/undertaker-go/blockdefect/pkg/model"
)

const moduleSuffix = "_MODULE"

// choicePrefix marks a synthesized choice-group item, matching the
// "CHOICE_%d" naming dumpconf.c uses when it emits a Kconfig menu's
// implicit choice symbol.
const choicePrefix = "CHOICE_"

var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func isBlockOrChoice(name string) bool {
	if symbol.Classify(name) == symbol.Block {
		return true
	}
	return strings.HasPrefix(name, choicePrefix)
}

// suppressedType reports whether store classifies name as a type Kconfig
// rendering must skip: integer, hex or string. Names unknown to the model
// are not suppressed.
func suppressedType(store model.Store, name string) bool {
	switch store.GetType(name) {
	case model.TypeInteger, model.TypeHex, model.TypeString:
		return true
	default:
		return false
	}
}

// Kconfig renders assignment as a partial .config-style selection per
// spec.md §4.H: "CONFIG_X=y/n/m", built-in vs. module distinguished by a
// paired "_MODULE" assignment, choice and block-reachability variables
// suppressed, integer/hex/string options suppressed, and every name in
// missing emitted as a comment instead of an assignment. store may be
// nil, in which case only the block/choice suppression rule applies.
func Kconfig(assignment map[string]bool, store model.Store, missing map[string]struct{}) string {
	names := make([]string, 0, len(assignment))
	seen := make(map[string]struct{}, len(assignment))
	for name := range assignment {
		if isBlockOrChoice(name) {
			continue
		}
		norm := symbol.NormalizeOptionName(name)
		if _, dup := seen[norm]; dup {
			continue
		}
		if store != nil && suppressedType(store, "CONFIG_"+norm) {
			continue
		}
		seen[norm] = struct{}{}
		names = append(names, norm)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, norm := range names {
		if _, isMissing := missing[norm]; isMissing {
			fmt.Fprintf(&b, "# CONFIG_%s is unknown\n", norm)
			continue
		}
		fmt.Fprintf(&b, "CONFIG_%s=%s\n", norm, kconfigValue(assignment, norm))
	}
	return b.String()
}

// kconfigValue derives y/m/n for a normalized option name from the raw
// assignment map, which may hold either or both of "CONFIG_X" and
// "CONFIG_X_MODULE".
func kconfigValue(assignment map[string]bool, norm string) string {
	if assignment["CONFIG_"+norm+moduleSuffix] {
		return "m"
	}
	if assignment["CONFIG_"+norm] {
		return "y"
	}
	return "n"
}

// Model renders every item in the configuration space as "name=0|1",
// per spec.md §4.H. Items outside store's configuration space (block
// symbols, file symbols, free/constant symbols) are omitted.
func Model(assignment map[string]bool, store model.Store) string {
	names := make([]string, 0, len(assignment))
	for name := range assignment {
		if store.InConfigurationSpace(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return renderBits(assignment, names)
}

// All renders every assignment, unfiltered, as "name=0|1".
func All(assignment map[string]bool) string {
	names := make([]string, 0, len(assignment))
	for name := range assignment {
		names = append(names, name)
	}
	sort.Strings(names)
	return renderBits(assignment, names)
}

func renderBits(assignment map[string]bool, names []string) string {
	var b strings.Builder
	for _, name := range names {
		bit := "0"
		if assignment[name] {
			bit = "1"
		}
		fmt.Fprintf(&b, "%s=%s\n", name, bit)
	}
	return b.String()
}

// CPP renders the positive assignments as "-Dname=1" preprocessor flags,
// per spec.md §4.H: block-reachability names, names that are not valid C
// identifiers, and names in definedInFile (the file's own local
// #define-table) are skipped, since defining them again on the command
// line would be redundant or actively wrong.
func CPP(assignment map[string]bool, definedInFile map[string]struct{}) string {
	names := make([]string, 0, len(assignment))
	for name, on := range assignment {
		if !on {
			continue
		}
		if symbol.Classify(name) == symbol.Block {
			continue
		}
		if !identRegex.MatchString(name) {
			continue
		}
		if _, defined := definedInFile[name]; defined {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "-D%s=1\n", name)
	}
	return b.String()
}
