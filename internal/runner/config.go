package runner

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the subset of Options that can be set from a config file.
// Unset keys stay nil and leave the option untouched.
type fileConfig struct {
	Targets            []string       `yaml:"targets"`
	List               *string        `yaml:"list"`
	Mode               *string        `yaml:"mode"`
	Auto               *bool          `yaml:"auto"`
	Granularity        *int           `yaml:"granularity"`
	Strict             *bool          `yaml:"strict"`
	Count              *int           `yaml:"count"`
	Interval           *time.Duration `yaml:"interval"`
	Timeout            *time.Duration `yaml:"timeout"`
	Concurrency        *int           `yaml:"concurrency"`
	RateLimit          *int           `yaml:"rate_limit"`
	PayloadSize        *int           `yaml:"payload_size"`
	Privileged         *bool          `yaml:"privileged"`
	Deadline           *time.Duration `yaml:"deadline"`
	Top                *int           `yaml:"top"`
	KeepSubMillisecond *bool          `yaml:"keep_submillisecond"`
	Output             *string        `yaml:"output"`
	JSON               *bool          `yaml:"json"`
	CSV                *bool          `yaml:"csv"`
	NoColor            *bool          `yaml:"no_color"`
	Verbose            *bool          `yaml:"verbose"`
	Silent             *bool          `yaml:"silent"`
}

// loadConfigFrom reads the yaml file at location and applies it to every
// option still holding its default value, so command line flags win
func (options *Options) loadConfigFrom(location string, defaults *Options) error {
	content, err := os.ReadFile(location)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	options.applyConfig(&cfg, defaults)
	return nil
}

func (options *Options) applyConfig(cfg *fileConfig, defaults *Options) {
	if len(options.Targets) == 0 && len(cfg.Targets) > 0 {
		options.Targets = append(options.Targets, cfg.Targets...)
	}
	setDefault(&options.TargetsFile, defaults.TargetsFile, cfg.List)
	setDefault(&options.Mode, defaults.Mode, cfg.Mode)
	setDefault(&options.Auto, defaults.Auto, cfg.Auto)
	setDefault(&options.Granularity, defaults.Granularity, cfg.Granularity)
	setDefault(&options.Strict, defaults.Strict, cfg.Strict)
	setDefault(&options.Attempts, defaults.Attempts, cfg.Count)
	setDefault(&options.Interval, defaults.Interval, cfg.Interval)
	setDefault(&options.Timeout, defaults.Timeout, cfg.Timeout)
	setDefault(&options.Concurrency, defaults.Concurrency, cfg.Concurrency)
	setDefault(&options.RateLimit, defaults.RateLimit, cfg.RateLimit)
	setDefault(&options.PayloadSize, defaults.PayloadSize, cfg.PayloadSize)
	setDefault(&options.Privileged, defaults.Privileged, cfg.Privileged)
	setDefault(&options.Deadline, defaults.Deadline, cfg.Deadline)
	setDefault(&options.TopN, defaults.TopN, cfg.Top)
	setDefault(&options.KeepSubMillisecond, defaults.KeepSubMillisecond, cfg.KeepSubMillisecond)
	setDefault(&options.Output, defaults.Output, cfg.Output)
	setDefault(&options.JSON, defaults.JSON, cfg.JSON)
	setDefault(&options.CSV, defaults.CSV, cfg.CSV)
	setDefault(&options.NoColor, defaults.NoColor, cfg.NoColor)
	setDefault(&options.Verbose, defaults.Verbose, cfg.Verbose)
	setDefault(&options.Silent, defaults.Silent, cfg.Silent)
}

// setDefault overwrites *field with *value when value is set and *field was not changed from def
func setDefault[T comparable](field *T, def T, value *T) {
	if value == nil || *field != def {
		return
	}
	*field = *value
}
