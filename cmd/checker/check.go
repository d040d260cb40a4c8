package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/undertaker-go/blockdefect/cmd/checker/config"
	"github.com/undertaker-go/blockdefect/pkg/block"
	"github.com/undertaker-go/blockdefect/pkg/build"
	"github.com/undertaker-go/blockdefect/pkg/classify"
	"github.com/undertaker-go/blockdefect/pkg/cpp"
	"github.com/undertaker-go/blockdefect/pkg/model"
)

// sourceInput is one file's directive dump on disk, the boundary format
// this CLI reads in place of driving a real C preprocessor directly:
// spec.md §6 names the directive visitor as an external collaborator,
// and no lexer survives in original_source (§1 non-goal), so `checker
// check` consumes an already-lexed JSON fixture instead.
type sourceInput struct {
	Path       string          `json:"path"`
	Arch       string          `json:"arch,omitempty"`
	Directives []cpp.Directive `json:"directives"`
}

// checkOptions holds every check-subcommand flag, following
// cmd/catalog/start.go's options-struct-per-command style rather than
// cmd/olm's package-level pflag variables.
type checkOptions struct {
	configPath          string
	inputPaths          []string
	modelDir            string
	archs               []string
	mainArch            string
	buildConditionsFile string
	outputDir           string
	summaryPath         string
	workers             int
	metricsAddr         string
	watchModels         bool
}

func newCheckCmd(log *logrus.Logger) *cobra.Command {
	o := checkOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "classify the conditional blocks in a set of directive-dump files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.Context(), log)
		},
	}

	cmd.Flags().StringVar(&o.configPath, "config", "", "optional YAML config file")
	cmd.Flags().StringSliceVar(&o.inputPaths, "input", nil, "directive-dump JSON file or directory (repeatable)")
	cmd.Flags().StringVar(&o.modelDir, "model-dir", "", "directory of <arch>.model/<arch>.cnf option-model files")
	cmd.Flags().StringSliceVar(&o.archs, "arch", nil, "architecture tags to load a model for; first is the main model")
	cmd.Flags().StringVar(&o.mainArch, "main-arch", "", "override which loaded arch is the main model")
	cmd.Flags().StringVar(&o.buildConditionsFile, "build-conditions", "", "YAML file mapping source path to build-system precondition")
	cmd.Flags().StringVar(&o.outputDir, "output-dir", ".", "directory to write per-defect report files into")
	cmd.Flags().StringVar(&o.summaryPath, "summary", "", "optional path to write a JSON defect summary for `checker report`")
	cmd.Flags().IntVar(&o.workers, "workers", 0, "number of concurrent per-file workers (0 = use config, default 1)")
	cmd.Flags().StringVar(&o.metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics at this address until the run completes")
	cmd.Flags().BoolVar(&o.watchModels, "watch-models", false, "watch model-dir for changes and hot-reload (long-running invocations)")

	return cmd
}

func (o *checkOptions) run(ctx context.Context, log *logrus.Logger) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	o.mergeConfig(cfg)

	files, err := loadInputs(o.inputPaths)
	if err != nil {
		return err
	}

	reg, err := loadRegistry(log, o.modelDir, o.archs, o.mainArch)
	if err != nil {
		return err
	}
	if o.watchModels && o.modelDir != "" {
		stop, err := reg.Watch(o.modelDir, archOfModelFile)
		if err != nil {
			return err
		}
		defer stop()
	}

	provider, err := loadProvider(o.buildConditionsFile)
	if err != nil {
		return err
	}

	if o.metricsAddr != "" {
		if err := classify.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
			return err
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: o.metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("metrics server failed")
			}
		}()
		defer srv.Close()
	}

	results, err := classify.RunFiles(ctx, files, reg, provider, classify.NewResultCache(), log, o.workers)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(o.outputDir, 0o755); err != nil {
		return errors.Wrapf(err, "check: creating output directory %q", o.outputDir)
	}
	for _, r := range results {
		for _, d := range r.Defects {
			if _, err := classify.WriteReport(o.outputDir, d); err != nil {
				log.WithError(err).WithField("file", r.File.Path).Warn("check: failed to write report")
			}
		}
	}

	if o.summaryPath != "" {
		if err := writeSummary(o.summaryPath, results); err != nil {
			return err
		}
	}

	return nil
}

// mergeConfig fills any flag left at its zero value from cfg, so a
// config file's values act as defaults that explicit flags override.
func (o *checkOptions) mergeConfig(cfg config.Config) {
	if o.modelDir == "" {
		o.modelDir = cfg.ModelDir
	}
	if len(o.archs) == 0 {
		o.archs = cfg.Archs
	}
	if o.mainArch == "" {
		o.mainArch = cfg.MainArch
	}
	if o.buildConditionsFile == "" {
		o.buildConditionsFile = cfg.BuildConditionsFile
	}
	if o.outputDir == "." {
		if cfg.OutputDir != "" {
			o.outputDir = cfg.OutputDir
		}
	}
	if o.workers == 0 {
		o.workers = cfg.Workers
	}
	if o.metricsAddr == "" {
		o.metricsAddr = cfg.MetricsAddr
	}
	if !o.watchModels {
		o.watchModels = cfg.WatchModels
	}
}

// loadInputs reads every directive-dump JSON file named directly by
// paths or found (non-recursively) inside any directory entries, and
// builds one block.File per input via pkg/cpp.Builder.
func loadInputs(paths []string) ([]*block.File, error) {
	var jsonPaths []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, errors.Wrapf(err, "check: reading input %q", p)
		}
		if !info.IsDir() {
			jsonPaths = append(jsonPaths, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, errors.Wrapf(err, "check: reading input directory %q", p)
		}
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
				jsonPaths = append(jsonPaths, filepath.Join(p, e.Name()))
			}
		}
	}

	files := make([]*block.File, 0, len(jsonPaths))
	for _, jp := range jsonPaths {
		data, err := os.ReadFile(jp)
		if err != nil {
			return nil, errors.Wrapf(err, "check: reading directive dump %q", jp)
		}
		var in sourceInput
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, errors.Wrapf(err, "check: parsing directive dump %q", jp)
		}
		b := cpp.NewBuilder(block.Options{})
		cpp.Walk(b, in.Path, in.Directives)
		f := b.File()
		f.Arch = in.Arch
		files = append(files, f)
	}
	return files, nil
}

func loadRegistry(log *logrus.Logger, modelDir string, archs []string, mainArch string) (*model.Registry, error) {
	reg := model.NewRegistry(log)
	if modelDir == "" || len(archs) == 0 {
		return reg, nil
	}
	for _, arch := range archs {
		path, err := findModelFile(modelDir, arch)
		if err != nil {
			return nil, err
		}
		if path == "" {
			log.WithField("arch", arch).Warn("check: no model file found, treating configuration space as empty")
			continue
		}
		if err := reg.LoadFile(arch, path); err != nil {
			return nil, err
		}
	}
	if mainArch != "" {
		if err := reg.SetMain(mainArch); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func findModelFile(dir, arch string) (string, error) {
	for _, ext := range []string{".model", ".cnf"} {
		path := filepath.Join(dir, arch+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !os.IsNotExist(err) {
			return "", errors.Wrapf(err, "check: statting %q", path)
		}
	}
	return "", nil
}

// archOfModelFile recovers the arch tag Registry.Watch needs from a
// changed model-file path, the inverse of findModelFile's naming rule.
func archOfModelFile(path string) (string, bool) {
	ext := filepath.Ext(path)
	if ext != ".model" && ext != ".cnf" {
		return "", false
	}
	return strings.TrimSuffix(filepath.Base(path), ext), true
}

func loadProvider(path string) (build.ConditionProvider, error) {
	if path == "" {
		return build.NoneProvider{}, nil
	}
	return build.LoadFile(path)
}

// summary is the JSON defect digest `checker report` reads, produced
// optionally via --summary alongside the per-defect report files
// WriteReport writes into --output-dir.
type summary struct {
	Files []fileSummary `json:"files"`
}

type fileSummary struct {
	Path    string          `json:"path"`
	Defects []defectSummary `json:"defects"`
}

type defectSummary struct {
	Block      string            `json:"block"`
	Kind       string            `json:"kind"`
	Polarity   string            `json:"polarity"`
	Global     bool              `json:"global"`
	Formula    string            `json:"formula"`
	MUSFormula string            `json:"mus_formula,omitempty"`
	PerModel   map[string]string `json:"per_model,omitempty"`
	LineStart  int               `json:"line_start"`
	ColStart   int               `json:"col_start"`
	LineEnd    int               `json:"line_end"`
	ColEnd     int               `json:"col_end"`
}

func writeSummary(path string, results []classify.FileResult) error {
	s := summary{Files: make([]fileSummary, 0, len(results))}
	for _, r := range results {
		fs := fileSummary{Path: r.File.Path, Defects: make([]defectSummary, 0, len(r.Defects))}
		for _, d := range r.Defects {
			ds := defectSummary{
				Block:      d.Block.Name,
				Kind:       d.Kind.String(),
				Polarity:   d.Polarity.String(),
				Global:     d.Global,
				Formula:    d.Formula,
				MUSFormula: d.MUSFormula,
				LineStart:  d.Block.LineStart,
				ColStart:   d.Block.ColStart,
				LineEnd:    d.Block.LineEnd,
				ColEnd:     d.Block.ColEnd,
			}
			if len(d.PerModel) > 0 {
				ds.PerModel = make(map[string]string, len(d.PerModel))
				for arch, k := range d.PerModel {
					ds.PerModel[arch] = k.String()
				}
			}
			fs.Defects = append(fs.Defects, ds)
		}
		s.Files = append(s.Files, fs)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "check: marshaling summary")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "check: writing summary %q", path)
	}
	return nil
}
