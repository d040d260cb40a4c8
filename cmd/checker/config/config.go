// Package config decodes cmd/checker's configuration file, per SPEC_FULL
// §9.3: a YAML document decoded loosely and then strictly typed via
// mapstructure, so a config file can carry (and future versions can add)
// keys this struct doesn't yet know about without a decode error.
package config

import (
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Config is cmd/checker's merged configuration: the fields a config file
// can set, all of which flags may override.
type Config struct {
	// Archs lists the architecture tags to load a model for, e.g.
	// ["x86", "arm"]. The first entry becomes the main model unless
	// MainArch overrides that.
	Archs []string `mapstructure:"archs"`
	// ModelDir holds one option-model file per arch, named "<arch>.model"
	// or "<arch>.cnf".
	ModelDir string `mapstructure:"model_dir"`
	// MainArch selects which loaded arch is the main model; defaults to
	// the first entry of Archs when empty.
	MainArch string `mapstructure:"main_arch"`
	// BuildConditionsFile is a YAML file mapping source path to
	// build-system precondition formula, loaded as a pkg/build.FileProvider.
	// Empty means no build-system information is available.
	BuildConditionsFile string `mapstructure:"build_conditions_file"`
	// OutputDir receives one report file per defect (pkg/classify.WriteReport).
	OutputDir string `mapstructure:"output_dir"`
	// Workers bounds concurrent per-file classification (spec.md §5).
	Workers int `mapstructure:"workers"`
	// MetricsAddr, if non-empty, serves Prometheus metrics at this address.
	MetricsAddr string `mapstructure:"metrics_addr"`
	// WatchModels enables Registry.Watch on ModelDir for long-running
	// invocations.
	WatchModels bool `mapstructure:"watch_models"`
}

// Default returns a Config with the same defaults the CLI's flags fall
// back to when neither a config file nor a flag sets them.
func Default() Config {
	return Config{Workers: 1}
}

// Load reads path as YAML into a loosely-typed map and decodes it into a
// Config via mapstructure, so unrecognized keys are ignored rather than
// failing the whole run (SPEC_FULL §9.3). A missing file is not an
// error: Load returns Default() unchanged, since --config is optional.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "config: reading %q", path)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, errors.Wrapf(err, "config: parsing %q", path)
	}

	if err := mapstructure.Decode(raw, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "config: decoding %q", path)
	}
	return cfg, nil
}
