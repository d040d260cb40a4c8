// Package build is the external build-system precondition collaborator
// named in spec.md §6: something outside this module knows, for a given
// source file, the propositional condition under which the build system
// actually compiles it (a Kbuild "obj-$(CONFIG_X) += file.o" line, a Bazel
// select(), a Makefile target guard, ...). No such parser survives in
// original_source's filtered file list (Kbuild handling lived in the
// `tailor` Perl scripts, excluded from _INDEX.md), so only the interface
// and a small file-driven default implementation are provided here, in
// the teacher's config-loading idiom.
package build

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// ConditionProvider returns the build-system precondition formula for a
// source file, consumed by pkg/codeformula.BuildCondition and, through it,
// by the classifier's build-system escalation step (spec.md §4.G step 4).
type ConditionProvider interface {
	// Condition returns the precondition formula for path and whether one
	// is registered. A provider with no entry for path is expected to
	// return ("", false); the caller then treats the build-system step as
	// vacuously true.
	Condition(path string) (string, bool)
}

// FileProvider is a ConditionProvider backed by a YAML mapping of file
// path to precondition formula, loaded once at startup.
type FileProvider struct {
	conditions map[string]string
}

// fileProviderDoc is the on-disk shape: a flat map, e.g.
//
//	drivers/net/e1000/e1000_main.c: "CONFIG_E1000 && FILE_drivers_net_e1000_e1000_main.c"
type fileProviderDoc map[string]string

// LoadFile reads a YAML file mapping source paths to precondition
// formulas and returns a FileProvider over it.
func LoadFile(path string) (*FileProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "build: reading condition file %q", path)
	}
	var doc fileProviderDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "build: parsing condition file %q", path)
	}
	conditions := make(map[string]string, len(doc))
	for k, v := range doc {
		conditions[k] = v
	}
	return &FileProvider{conditions: conditions}, nil
}

// NewFileProvider wraps an in-memory mapping directly, primarily for
// tests and for callers assembling the mapping programmatically.
func NewFileProvider(conditions map[string]string) *FileProvider {
	out := make(map[string]string, len(conditions))
	for k, v := range conditions {
		out[k] = v
	}
	return &FileProvider{conditions: out}
}

// Condition implements ConditionProvider.
func (p *FileProvider) Condition(path string) (string, bool) {
	if p == nil {
		return "", false
	}
	c, ok := p.conditions[path]
	return c, ok
}

// NoneProvider is a ConditionProvider with no registered files, useful as
// a default when no build-system information is available; every file's
// build-system step is then vacuously true, per spec.md §4.G step 4's
// "intersect it against M ... yielding F_build" reading to the empty
// formula when P is absent.
type NoneProvider struct{}

// Condition implements ConditionProvider by always reporting absence.
func (NoneProvider) Condition(string) (string, bool) { return "", false }
