package format

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
	"github.com/pkg/errors"

	"github.com/undertaker-go/blockdefect/pkg/block"
	"github.com/undertaker-go/blockdefect/pkg/model"
)

// Combined produces the CPP, Commented and Kconfig renderings of one
// assignment side by side under outDir, per spec.md §4.H: "produce the
// CPP, Commented, and Kconfig files with a numeric suffix." srcTree, if
// non-empty, is copied into outDir first (via otiai10/copy) so the
// commented file lands inside a full annotated copy of the original
// tree rather than as a loose fragment next to nothing; pass "" to skip
// the copy when outDir already holds the tree.
//
// relPath is the source file's path relative to srcTree/outDir, used
// both to locate/overwrite the commented copy and as the base name for
// the sibling ".cpp"/".kconfig" files.
func Combined(srcTree, outDir string, suffix int, relPath, source string, dead []*block.Block, assignment map[string]bool, store model.Store, missing map[string]struct{}, definedInFile map[string]struct{}) error {
	if srcTree != "" {
		if err := copy.Copy(srcTree, outDir); err != nil {
			return errors.Wrapf(err, "format: copying source tree %q to %q", srcTree, outDir)
		}
	}

	base := filepath.Join(outDir, relPath)
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return errors.Wrapf(err, "format: creating output directory for %q", base)
	}

	commentedPath := fmt.Sprintf("%s.%d.commented", base, suffix)
	if err := os.WriteFile(commentedPath, []byte(Commented(source, dead)), 0o644); err != nil {
		return errors.Wrapf(err, "format: writing %q", commentedPath)
	}

	cppPath := fmt.Sprintf("%s.%d.cpp", base, suffix)
	if err := os.WriteFile(cppPath, []byte(CPP(assignment, definedInFile)), 0o644); err != nil {
		return errors.Wrapf(err, "format: writing %q", cppPath)
	}

	kconfigPath := fmt.Sprintf("%s.%d.kconfig", base, suffix)
	if err := os.WriteFile(kconfigPath, []byte(Kconfig(assignment, store, missing)), 0o644); err != nil {
		return errors.Wrapf(err, "format: writing %q", kconfigPath)
	}

	return nil
}
