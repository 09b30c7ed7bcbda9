package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/logrusorgru/aurora/v4"
	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/formatter"
	"github.com/projectdiscovery/gologger/levels"
	"github.com/projectdiscovery/pingtop/pkg/expand"
	"github.com/projectdiscovery/pingtop/pkg/probe"
	"github.com/projectdiscovery/pingtop/pkg/rank"
	envutil "github.com/projectdiscovery/utils/env"
	fileutil "github.com/projectdiscovery/utils/file"
)

var au *aurora.Aurora

var (
	ModeEnv        = envutil.GetEnvOrDefault("PINGTOP_MODE", "ipv4")
	ConcurrencyEnv = envutil.GetEnvOrDefault("PINGTOP_CONCURRENCY", "1000")
	RateLimitEnv   = envutil.GetEnvOrDefault("PINGTOP_RATE_LIMIT", "0")
)

// Options contains the configuration options for a latency sweep
type Options struct {
	Targets     goflags.StringSlice
	TargetsFile string
	Stdin       bool
	Mode        string
	Auto        bool
	Granularity int
	Strict      bool

	Attempts    int
	Interval    time.Duration
	Timeout     time.Duration
	Concurrency int
	RateLimit   int
	PayloadSize int
	Privileged  bool
	Deadline    time.Duration

	TopN               int
	KeepSubMillisecond bool
	Output             string
	JSON               bool
	CSV                bool

	ConfigFile string
	NoColor    bool
	Verbose    bool
	Silent     bool
	Version    bool
}

// DefaultOptions returns the built-in defaults, with environment overrides applied
func DefaultOptions() *Options {
	options := &Options{
		Mode:        ModeEnv,
		Attempts:    probe.DefaultAttempts,
		Interval:    probe.DefaultInterval,
		Timeout:     probe.DefaultTimeout,
		Concurrency: 1000,
		PayloadSize: probe.DefaultPayloadSize,
		Privileged:  true,
		TopN:        rank.DefaultTopN,
	}
	if val, err := strconv.Atoi(ConcurrencyEnv); err == nil {
		options.Concurrency = val
	}
	if val, err := strconv.Atoi(RateLimitEnv); err == nil && val > 0 {
		options.RateLimit = val
	}
	return options
}

// ParseOptions parses the command line flags provided by a user
func ParseOptions() *Options {
	defaults := DefaultOptions()
	options := &Options{}
	flagSet := goflags.NewFlagSet()

	flagSet.SetDescription(`pingtop finds the lowest-latency hosts in a set of address ranges using ICMP echo`)

	flagSet.CreateGroup("input", "Input",
		flagSet.StringSliceVarP(&options.Targets, "target", "t", nil, "target addresses or prefixes to probe (comma separated)", goflags.FileCommaSeparatedStringSliceOptions),
		flagSet.StringVarP(&options.TargetsFile, "list", "l", "", "file containing one address or prefix per line"),
		flagSet.StringVarP(&options.Mode, "mode", "m", defaults.Mode, "address family to probe (ipv4, ipv6)"),
		flagSet.BoolVar(&options.Auto, "auto", false, "probe the private networks of the local interfaces when no target is given"),
		flagSet.IntVarP(&options.Granularity, "granularity", "g", 0, "prefix length to split networks into (default host granularity)"),
		flagSet.BoolVar(&options.Strict, "strict", false, "abort when a prefix cannot be split instead of skipping it"),
	)

	flagSet.CreateGroup("probe", "Probe",
		flagSet.IntVarP(&options.Attempts, "count", "c", defaults.Attempts, "number of echo requests per host"),
		flagSet.DurationVarP(&options.Interval, "interval", "i", defaults.Interval, "interval between echo requests to the same host"),
		flagSet.DurationVar(&options.Timeout, "timeout", defaults.Timeout, "time to wait for each echo reply"),
		flagSet.IntVar(&options.Concurrency, "concurrency", defaults.Concurrency, "number of hosts probed in parallel (0 = all at once)"),
		flagSet.IntVarP(&options.RateLimit, "rate-limit", "rl", defaults.RateLimit, "maximum echo requests sent per second (0 = unlimited)"),
		flagSet.IntVar(&options.PayloadSize, "payload-size", defaults.PayloadSize, "echo payload size in bytes"),
		flagSet.BoolVar(&options.Privileged, "privileged", defaults.Privileged, "use raw icmp sockets (requires root), otherwise datagram icmp sockets"),
		flagSet.DurationVar(&options.Deadline, "deadline", 0, "stop the sweep after this duration and rank what was collected"),
	)

	flagSet.CreateGroup("output", "Output",
		flagSet.IntVarP(&options.TopN, "top", "n", defaults.TopN, "number of hosts to report"),
		flagSet.BoolVar(&options.KeepSubMillisecond, "keep-submillisecond", false, "report hosts whose mean rounds down to 0ms"),
		flagSet.StringVarP(&options.Output, "output", "o", "", "file to write results to"),
		flagSet.BoolVarP(&options.JSON, "json", "j", false, "write results as json lines"),
		flagSet.BoolVar(&options.CSV, "csv", false, "write results as csv"),
	)

	flagSet.CreateGroup("config", "Config",
		flagSet.StringVar(&options.ConfigFile, "config", "", "yaml configuration file"),
	)

	flagSet.CreateGroup("debug", "Debug",
		flagSet.BoolVar(&options.Version, "version", false, "show version of the project"),
		flagSet.BoolVarP(&options.Verbose, "verbose", "v", false, "show verbose output"),
		flagSet.BoolVar(&options.Silent, "silent", false, "show only results in output"),
		flagSet.BoolVarP(&options.NoColor, "no-color", "nc", false, "disable output content coloring (ANSI escape codes)"),
	)

	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("%s\n", err)
	}

	if options.ConfigFile != "" {
		if err := options.loadConfigFrom(options.ConfigFile, defaults); err != nil {
			gologger.Fatal().Msgf("Could not read config file %s: %s\n", options.ConfigFile, err)
		}
	}

	options.configureOutput()

	showBanner()

	if options.Version {
		gologger.Info().Msgf("Current Version: %s\n", version)
		os.Exit(0)
	}

	options.Stdin = fileutil.HasStdin()

	if err := options.validate(); err != nil {
		gologger.Fatal().Msgf("Program exiting: %s\n", err)
	}

	return options
}

// configureOutput configures the output on the screen
func (options *Options) configureOutput() {
	au = aurora.New(aurora.WithColors(!options.NoColor))

	// If the user desires verbose output, show verbose output
	if options.Verbose {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)
	}
	if options.NoColor {
		gologger.DefaultLogger.SetFormatter(formatter.NewCLI(true))
	}
	if options.Silent {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelSilent)
	}
}

// validate checks the options before any probing starts
func (options *Options) validate() error {
	if _, err := expand.ParseFamily(options.Mode); err != nil {
		return err
	}
	if err := options.probeOptions().Validate(); err != nil {
		return err
	}
	if options.Granularity < 0 {
		return fmt.Errorf("granularity must not be negative, got %d", options.Granularity)
	}
	if options.TopN < 1 {
		return fmt.Errorf("top must be at least 1, got %d", options.TopN)
	}
	if options.RateLimit < 0 {
		return errors.New("rate limit must not be negative")
	}
	if options.Deadline < 0 {
		return errors.New("deadline must not be negative")
	}
	if options.PayloadSize < 0 || options.PayloadSize > 65000 {
		return fmt.Errorf("payload size must be between 0 and 65000, got %d", options.PayloadSize)
	}
	if options.JSON && options.CSV {
		return errors.New("json and csv output are mutually exclusive")
	}
	return nil
}

func (options *Options) probeOptions() probe.Options {
	return probe.Options{
		Attempts: options.Attempts,
		Interval: options.Interval,
		Timeout:  options.Timeout,
	}
}
