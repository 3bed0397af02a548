// Package config loads process settings from the environment and
// experiment definitions from YAML files.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/mlcore/pkg/errors"
)

// Environment variables recognized by LoadEnv.
const (
	EnvLogLevel   = "MLCORE_LOG_LEVEL"
	EnvModelDir   = "MLCORE_MODEL_DIR"
	EnvRandomSeed = "MLCORE_RANDOM_SEED"
	EnvPlotDir    = "MLCORE_PLOT_DIR"
)

// Model kinds accepted in experiment files.
const (
	ModelLinear   = "linear"
	ModelRidge    = "ridge"
	ModelLogistic = "logistic"
)

// Config holds process-wide settings read from the environment.
type Config struct {
	LogLevel   string
	ModelDir   string
	RandomSeed int64
	PlotDir    string
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:   "info",
		ModelDir:   "models",
		RandomSeed: 42,
		PlotDir:    "plots",
	}
}

// LoadEnv reads configuration from MLCORE_* environment variables after
// loading an optional .env file from the working directory. A missing
// .env file is not an error; variables already set in the environment
// take precedence over the file.
func LoadEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "config: load .env")
	}

	cfg := DefaultConfig()
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvModelDir); v != "" {
		cfg.ModelDir = v
	}
	if v := os.Getenv(EnvPlotDir); v != "" {
		cfg.PlotDir = v
	}
	if v := os.Getenv(EnvRandomSeed); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.NewValidationError(EnvRandomSeed, "must be an integer", v)
		}
		cfg.RandomSeed = seed
	}
	return cfg, nil
}

// Experiment describes one end-to-end run for the CLI: where the data
// lives, which model to fit, how to split, and where to write results.
type Experiment struct {
	Name    string        `yaml:"name"`
	Dataset DatasetConfig `yaml:"dataset"`
	Model   ModelConfig   `yaml:"model"`
	Split   SplitConfig   `yaml:"split"`
	Output  OutputConfig  `yaml:"output"`
}

// DatasetConfig locates the training data inside a CSV file.
type DatasetConfig struct {
	Path     string   `yaml:"path"`
	Target   string   `yaml:"target"`
	Features []string `yaml:"features"`
}

// ModelConfig selects the model kind and its numeric hyperparameters.
type ModelConfig struct {
	Kind   string             `yaml:"kind"`
	Params map[string]float64 `yaml:"params"`
}

// Param returns the named hyperparameter, or fallback when unset.
func (m ModelConfig) Param(key string, fallback float64) float64 {
	if v, ok := m.Params[key]; ok {
		return v
	}
	return fallback
}

// SplitConfig controls the train/test split.
type SplitConfig struct {
	TestSize float64 `yaml:"test_size"`
	Seed     int     `yaml:"seed"`
}

// OutputConfig names the artifacts an experiment writes.
type OutputConfig struct {
	ModelPath string `yaml:"model_path"`
	PlotDir   string `yaml:"plot_dir"`
}

// LoadExperiment parses and validates an experiment YAML file.
// An omitted test_size defaults to 0.2.
func LoadExperiment(path string) (*Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %s", path)
	}

	exp := &Experiment{}
	if err := yaml.Unmarshal(data, exp); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}

	if exp.Split.TestSize == 0 {
		exp.Split.TestSize = 0.2
	}

	if err := exp.Validate(); err != nil {
		return nil, err
	}
	return exp, nil
}

// Validate checks the experiment for the mistakes a config file can
// plausibly contain.
func (e *Experiment) Validate() error {
	if e.Dataset.Path == "" {
		return errors.NewValidationError("dataset.path", "must not be empty", e.Dataset.Path)
	}
	if e.Dataset.Target == "" {
		return errors.NewValidationError("dataset.target", "must not be empty", e.Dataset.Target)
	}

	switch e.Model.Kind {
	case ModelLinear, ModelRidge, ModelLogistic:
	default:
		return errors.NewValidationError("model.kind",
			"must be one of linear, ridge, logistic", e.Model.Kind)
	}

	if e.Split.TestSize <= 0 || e.Split.TestSize >= 1 {
		return errors.NewValidationError("split.test_size",
			"must be strictly between 0 and 1", e.Split.TestSize)
	}
	return nil
}
