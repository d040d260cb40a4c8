package classify

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/undertaker-go/blockdefect/pkg/block"
	"github.com/undertaker-go/blockdefect/pkg/build"
	"github.com/undertaker-go/blockdefect/pkg/model"
	"github.com/undertaker-go/blockdefect/pkg/sat"
)

// FileResult collects every defect found while classifying one file.
type FileResult struct {
	File    *block.File
	Defects []*Defect
}

// RunFiles classifies every non-root block of every file, sharding one
// worker per file and giving each worker its own *sat.Adapter, per
// spec.md §5: "parallel analysis is permissible at file or block
// granularity only with per-worker SAT adapter instances." workers <= 0
// is treated as 1. reg and cache may be shared by reference across
// workers: the registry is read-mostly after load, and ResultCache is
// internally synchronized.
func RunFiles(ctx context.Context, files []*block.File, reg *model.Registry, provider build.ConditionProvider, cache *ResultCache, log *logrus.Logger, workers int) ([]FileResult, error) {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = logrus.New()
	}

	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			adapter := sat.NewAdapter(sat.WithLogger(log))
			defects := classifyFile(gctx, adapter, f, reg, provider, cache, log)
			results[i] = FileResult{File: f, Defects: defects}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// classifyFile walks f's non-root blocks, classifying each one. Per
// spec.md §7's propagation policy, a per-block failure (a malformed
// formula, a solver error, an out-of-memory panic recovered via
// recover()) is logged and the block skipped rather than aborting the
// whole file.
func classifyFile(ctx context.Context, adapter *sat.Adapter, f *block.File, reg *model.Registry, provider build.ConditionProvider, cache *ResultCache, log *logrus.Logger) []*Defect {
	var defects []*Defect
	for _, b := range f.Blocks() {
		if b.IsRoot() {
			continue
		}
		if ctx.Err() != nil {
			return defects
		}
		d, err := classifyBlockSafely(ctx, adapter, f, b, reg, provider, cache, log)
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"file":  f.Path,
				"block": b.Name,
			}).Warn("classify: skipping block after error")
			continue
		}
		if d != nil {
			defects = append(defects, d)
		}
	}
	return defects
}

// classifyBlockSafely runs ClassifyBlock behind a recover(), converting a
// panic inside the solver (e.g. an out-of-memory condition building a
// large CNF) into an ordinary error so one bad block never takes down
// the rest of the file's classification, matching the propagation policy
// in spec.md §7.
func classifyBlockSafely(ctx context.Context, adapter *sat.Adapter, f *block.File, b *block.Block, reg *model.Registry, provider build.ConditionProvider, cache *ResultCache, log *logrus.Logger) (d *Defect, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{
				"file":  f.Path,
				"block": b.Name,
			}).Errorf("classify: recovered panic classifying block: %v", r)
			d, err = nil, errors.Errorf("classify: panic classifying block %q: %v", b.Name, r)
		}
	}()
	return ClassifyBlock(ctx, adapter, f, b, reg, provider, cache)
}
