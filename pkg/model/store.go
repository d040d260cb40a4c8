// Package model implements the option-model store (spec component B): a
// read-mostly, per-architecture collection of configuration-option
// metadata plus the model-specific half of the intersection algorithm
// (spec component C lives in package intersect and consumes Store).
//
// Two on-disk formats are supported behind the same Store interface,
// mirroring RsfConfigurationModel and CnfConfigurationModel in the
// original undertaker implementation: a textual keyed-line format
// (TextStore) and a clause-oriented format (CNFStore).
package model

import (
	"regexp"
	"sort"

	"github.com/undertaker-go/blockdefect/internal/symbol"
	"github.com/undertaker-go/blockdefect/pkg/formula"
)

// Symbol type words returned by GetType, matching the original
// undertaker's RsfConfigurationModel::getType / CnfConfigurationModel::getType.
const (
	TypeBoolean = "BOOLEAN"
	TypeTristate = "TRISTATE"
	TypeInteger = "INTEGER"
	TypeHex     = "HEX"
	TypeString  = "STRING"
	TypeMissing = "MISSING"
	TypeError   = "#ERROR"
)

// Meta keys with a fixed, spec-defined meaning.
const (
	MetaAlwaysOn                    = "ALWAYS_ON"
	MetaAlwaysOff                   = "ALWAYS_OFF"
	MetaConfigurationSpaceRegex     = "CONFIGURATION_SPACE_REGEX"
	MetaConfigurationSpaceIncomplete = "CONFIGURATION_SPACE_INCOMPLETE"
)

// Store is the capability set shared by every option-model backing
// format, per spec.md §9's "polymorphism over option-model storage"
// design note.
type Store interface {
	// Name returns the model's name, conventionally its architecture tag.
	Name() string
	// ModelVersionIdentifier returns a short tag identifying the backing
	// format ("rsf", "cnf", ...).
	ModelVersionIdentifier() string
	// IsBoolean reports whether name is a boolean-typed option.
	IsBoolean(name string) bool
	// IsTristate reports whether name is a tristate-typed option.
	IsTristate(name string) bool
	// GetType normalizes name and returns its type word, MISSING if the
	// option is absent, or #ERROR if name does not match the item regex.
	GetType(name string) string
	// ContainsSymbol reports whether name is a file symbol or is present
	// in the model.
	ContainsSymbol(name string) bool
	// InConfigurationSpace reports whether name matches the model's
	// configuration-space regex.
	InConfigurationSpace(name string) bool
	// GetMetaValue returns the meta-list bound to key, or nil.
	GetMetaValue(key string) []string
	// AddMetaValue appends value to the meta-list bound to key,
	// idempotently and order-preserving.
	AddMetaValue(key, value string)
	// GetWhitelist returns the ALWAYS_ON meta-list.
	GetWhitelist() []string
	// GetBlacklist returns the ALWAYS_OFF meta-list.
	GetBlacklist() []string
	// IsComplete reports whether CONFIGURATION_SPACE_INCOMPLETE is absent.
	IsComplete() bool
	// DoIntersectPreprocess is the model-specific half of the intersect
	// algorithm (spec.md §4.C steps 2-3): it grows itemSet under the
	// model's ALWAYS_ON set and implication closure, removes exclude
	// members, and appends "(name -> (formula))" fragments to joiner for
	// every closed member with a non-empty formula.
	DoIntersectPreprocess(itemSet map[string]struct{}, joiner *formula.Joiner, exclude map[string]struct{})
}

// formulaLookup is the minimal capability DoIntersectPreprocess needs
// from a concrete store: the raw implication formula bound to a symbol,
// if any. Both TextStore and CNFStore implement it, letting the
// transitive-closure walk (extendWithInterestingItems in the original)
// be written once.
type formulaLookup interface {
	formulaOf(name string) (string, bool)
}

// base holds the fields and behavior common to every Store
// implementation: the meta-value map and the configuration-space regex.
type base struct {
	name  string
	meta  map[string][]string
	metaOrder []string
	regex *regexp.Regexp
}

func newBase(name string) *base {
	return &base{name: name, meta: make(map[string][]string)}
}

func (b *base) Name() string { return b.name }

func (b *base) GetMetaValue(key string) []string {
	v, ok := b.meta[key]
	if !ok {
		return nil
	}
	out := make([]string, len(v))
	copy(out, v)
	return out
}

func (b *base) AddMetaValue(key, value string) {
	if value == "" {
		return
	}
	existing := b.meta[key]
	for _, v := range existing {
		if v == value {
			return
		}
	}
	if _, ok := b.meta[key]; !ok {
		b.metaOrder = append(b.metaOrder, key)
	}
	b.meta[key] = append(existing, value)
}

func (b *base) GetWhitelist() []string { return b.GetMetaValue(MetaAlwaysOn) }
func (b *base) GetBlacklist() []string { return b.GetMetaValue(MetaAlwaysOff) }

func (b *base) IsComplete() bool {
	return b.GetMetaValue(MetaConfigurationSpaceIncomplete) == nil
}

func (b *base) InConfigurationSpace(name string) bool {
	if b.regex == nil {
		return false
	}
	return b.regex.MatchString(name)
}

func (b *base) setConfigurationSpaceRegex() {
	if vals := b.GetMetaValue(MetaConfigurationSpaceRegex); len(vals) > 0 {
		if re, err := regexp.Compile(vals[0]); err == nil {
			b.regex = re
			return
		}
	}
	b.regex = regexp.MustCompile(symbol.DefaultOptionRegex)
}

// doIntersectPreprocess implements the shared transitive-closure walk
// (extendWithInterestingItems + the "(name -> (formula))" emission and
// ALWAYS_OFF closure) used by every Store variant, given a formulaLookup
// for retrieving each symbol's raw implication text.
func doIntersectPreprocess(b *base, lookup formulaLookup, itemSet map[string]struct{}, j *formula.Joiner, exclude map[string]struct{}) {
	extend := func(seed []string) {
		stack := append([]string(nil), seed...)
		for len(stack) > 0 {
			n := len(stack) - 1
			item := stack[n]
			stack = stack[:n]
			f, ok := lookup.formulaOf(item)
			if !ok || f == "" {
				continue
			}
			for _, tok := range symbol.Tokenize(f) {
				if _, seen := itemSet[tok]; !seen {
					itemSet[tok] = struct{}{}
					stack = append(stack, tok)
				}
			}
		}
	}

	for _, item := range b.GetWhitelist() {
		itemSet[item] = struct{}{}
	}

	extend(sortedKeys(itemSet))

	if exclude != nil {
		for item := range exclude {
			delete(itemSet, item)
		}
	}

	for _, item := range sortedKeys(itemSet) {
		if f, ok := lookup.formulaOf(item); ok && f != "" {
			j.Append("(" + item + " -> (" + f + "))")
		}
	}

	blacklist := b.GetBlacklist()
	if len(blacklist) > 0 {
		for _, item := range blacklist {
			itemSet[item] = struct{}{}
		}
		extend(append([]string(nil), blacklist...))
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// containsSymbol implements the shared rule from spec.md §4.B: a symbol
// is contained in the model if it is a file symbol, or the concrete
// store reports it present.
func containsSymbol(name string, present bool) bool {
	return symbol.IsFileSymbol(name) || present
}
