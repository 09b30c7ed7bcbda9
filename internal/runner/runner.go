package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/pingtop/pkg/expand"
	"github.com/projectdiscovery/pingtop/pkg/localnet"
	"github.com/projectdiscovery/pingtop/pkg/probe"
	"github.com/projectdiscovery/pingtop/pkg/rank"
	"github.com/projectdiscovery/pingtop/pkg/sweep"
	errorutil "github.com/projectdiscovery/utils/errors"
	"github.com/rs/xid"
	"golang.org/x/time/rate"
)

// ErrNoTargets is returned when there is nothing to probe
var ErrNoTargets = errors.New("no targets to probe")

// pingerFactory opens the shared echo endpoint for a family
type pingerFactory func(family expand.Family, config probe.Config) (probe.Pinger, func() error, error)

// Runner contains the internal logic of the program
type Runner struct {
	options *Options
	family  expand.Family
	runID   string

	stdin         io.Reader
	newPinger     pingerFactory
	localNetworks func(expand.Family) ([]netip.Prefix, error)

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewRunner instance
func NewRunner(options *Options) (*Runner, error) {
	family, err := expand.ParseFamily(options.Mode)
	if err != nil {
		return nil, err
	}
	return &Runner{
		options:       options,
		family:        family,
		runID:         xid.New().String(),
		stdin:         os.Stdin,
		newPinger:     openClient,
		localNetworks: localnet.Networks,
	}, nil
}

func openClient(family expand.Family, config probe.Config) (probe.Pinger, func() error, error) {
	client, err := probe.NewClient(family, config)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

// Run the instance: expand the targets, sweep them and print the ranking
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	if r.options.Deadline > 0 {
		var deadlineCancel context.CancelFunc
		ctx, deadlineCancel = context.WithTimeout(ctx, r.options.Deadline)
		defer deadlineCancel()
	}

	targets, err := r.loadTargets()
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return ErrNoTargets
	}

	expander := expand.Expander{Granularity: r.options.Granularity}
	addrs, errs := expander.ExpandAll(specs(targets, r.family), r.options.Strict)
	for _, err := range errs {
		if r.options.Strict && !errors.Is(err, expand.ErrInvalidAddress) {
			return fmt.Errorf("could not expand targets: %w", err)
		}
		gologger.Warning().Msgf("Skipping target: %s", err)
	}
	if len(addrs) == 0 {
		return ErrNoTargets
	}
	gologger.Info().Msgf("[%s] Probing %d %s hosts", r.runID, len(addrs), r.family)

	prober, err := probe.New(r.options.probeOptions())
	if err != nil {
		return err
	}

	pinger, closePinger, err := r.newPinger(r.family, probe.Config{
		Privileged:  r.options.Privileged,
		PayloadSize: r.options.PayloadSize,
		Limiter:     r.limiter(),
	})
	if err != nil {
		return errorutil.NewWithErr(err).Msgf("could not open %s echo client", r.family)
	}
	defer func() {
		if err := closePinger(); err != nil {
			gologger.Warning().Msgf("Could not close echo client: %s", err)
		}
	}()

	start := time.Now()
	sweeper := sweep.New(prober, map[expand.Family]probe.Pinger{r.family: pinger}, sweep.Options{
		Concurrency: r.options.Concurrency,
		OnResult: func(result probe.Result) {
			if result.Received() == 0 {
				gologger.Verbose().Msgf("%s did not answer (%d sent)", result.Addr, result.Attempts)
				return
			}
			gologger.Verbose().Msgf("%s answered %d/%d, mean %s", result.Addr, result.Received(), result.Attempts, result.Mean())
		},
	})
	results := sweeper.Run(ctx, addrs)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		gologger.Warning().Msgf("Deadline of %s reached, ranking partial results", r.options.Deadline)
	}

	entries := rank.Rank(results, rank.Options{
		TopN:               r.options.TopN,
		KeepSubMillisecond: r.options.KeepSubMillisecond,
	})
	gologger.Info().Msgf("[%s] Ranked %d of %d probed hosts in %s", r.runID, len(entries), len(results), time.Since(start).Round(time.Millisecond))

	return r.writeResults(entries)
}

// limiter returns the shared echo request limiter, nil when unlimited
func (r *Runner) limiter() *rate.Limiter {
	if r.options.RateLimit <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(r.options.RateLimit), r.options.RateLimit)
}

// Close stops a running sweep
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}
