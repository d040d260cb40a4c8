package classify

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// WriteReport renders d into dir following spec.md §6's naming rule:
// "<source>.<blockname>.<kind>.<scope>.<polarity>", a machine-readable
// header line, the proved formula, and (for non-global defects) a
// per-arch verdict table. A sibling ".mus" file is written alongside a
// Dead defect that carries a minimized unsat core. Grounded on
// BlockDefectAnalyzer::writeReportToFile in the original implementation.
func WriteReport(dir string, d *Defect) (string, error) {
	if d == nil {
		return "", nil
	}

	scope := "locally"
	if d.Global {
		scope = "globally"
	}
	base := fmt.Sprintf("%s.%s.%s.%s.%s",
		filepath.Base(d.Block.File.Path), d.Block.Name, d.Kind.String(), scope, d.Polarity.String())
	path := filepath.Join(dir, base)

	out, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "classify: writing report %q", path)
	}
	defer out.Close()

	filePath := d.Block.File.Path
	fmt.Fprintf(out, "#%s:%s:%d:%d:%s:%d:%d:\n",
		d.Block.Name, filePath, d.Block.LineStart, d.Block.ColStart, filePath, d.Block.LineEnd, d.Block.ColEnd)
	fmt.Fprintln(out, d.Formula)

	if !d.Global && len(d.PerModel) > 0 {
		archs := make([]string, 0, len(d.PerModel))
		for arch := range d.PerModel {
			archs = append(archs, arch)
		}
		sort.Strings(archs)
		for _, arch := range archs {
			fmt.Fprintf(out, "%s: %s\n", arch, d.PerModel[arch].String())
		}
	}

	if d.Polarity == Dead && d.MUSFormula != "" {
		musPath := path + ".mus"
		if err := os.WriteFile(musPath, []byte(d.MUSFormula+"\n"), 0o644); err != nil {
			return path, errors.Wrapf(err, "classify: writing mus report %q", musPath)
		}
	}

	return path, nil
}
