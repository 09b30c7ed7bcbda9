package sweep

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/pingtop/pkg/expand"
	"github.com/projectdiscovery/pingtop/pkg/probe"
	syncutil "github.com/projectdiscovery/utils/sync"
)

// ErrTaskPanic wraps a panic recovered from a probe task
var ErrTaskPanic = errors.New("probe task panicked")

// Options configures a Sweeper
type Options struct {
	// Concurrency caps the number of hosts probed at once, <= 0 probes every host at once
	Concurrency int
	// OnResult, if set, is called from the collector for every finished host
	OnResult func(probe.Result)
}

// Sweeper probes many addresses concurrently
type Sweeper struct {
	prober  *probe.Prober
	pingers map[expand.Family]probe.Pinger
	options Options
}

// New creates a sweeper that probes each family through its pinger
func New(prober *probe.Prober, pingers map[expand.Family]probe.Pinger, options Options) *Sweeper {
	return &Sweeper{
		prober:  prober,
		pingers: pingers,
		options: options,
	}
}

// Run probes every address and returns the results in completion order.
// Hosts whose task failed are logged and left out. Once ctx is done no new
// host is started and running hosts return what they collected so far.
func (s *Sweeper) Run(ctx context.Context, addrs []netip.Addr) []probe.Result {
	size := s.options.Concurrency
	if size <= 0 || size > len(addrs) {
		size = len(addrs)
	}
	if size == 0 {
		return nil
	}

	awg, err := syncutil.New(syncutil.WithSize(size))
	if err != nil {
		gologger.Error().Msgf("Error creating syncutil: %v", err)
		return nil
	}

	results := make(chan probe.Result)
	collected := make(chan []probe.Result, 1)
	go func() {
		var all []probe.Result
		for result := range results {
			if s.options.OnResult != nil {
				s.options.OnResult(result)
			}
			all = append(all, result)
		}
		collected <- all
	}()

	for i, addr := range addrs {
		pinger, ok := s.pingers[expand.FamilyOf(addr)]
		if !ok {
			gologger.Warning().Msgf("No %s client available, skipping %s", expand.FamilyOf(addr), addr)
			continue
		}

		// a slot may free up at the same moment ctx is cancelled
		if err := awg.AddWithContext(ctx); err != nil || ctx.Err() != nil {
			if err == nil {
				awg.Done()
			}
			gologger.Warning().Msgf("Sweep interrupted, %d hosts not probed", len(addrs)-i)
			break
		}
		go func(addr netip.Addr, pinger probe.Pinger) {
			defer awg.Done()

			result, err := s.probe(ctx, pinger, addr)
			if err != nil {
				gologger.Error().Msgf("Probe task for %s failed: %s", addr, err)
				return
			}
			results <- result
		}(addr, pinger)
	}

	awg.Wait()
	close(results)

	return <-collected
}

// probe runs one host's sequence, turning a panic into an error
func (s *Sweeper) probe(ctx context.Context, pinger probe.Pinger, addr netip.Addr) (result probe.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
	}()
	return s.prober.Probe(ctx, pinger, addr)
}
