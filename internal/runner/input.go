package runner

import (
	"io"
	"strings"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/pingtop/pkg/expand"
	errorutil "github.com/projectdiscovery/utils/errors"
	fileutil "github.com/projectdiscovery/utils/file"
	sliceutil "github.com/projectdiscovery/utils/slice"
)

// loadTargets gathers target specifications from flags, the list file and
// stdin, falling back to the local private networks when -auto is set
func (r *Runner) loadTargets() ([]string, error) {
	var targets []string
	targets = append(targets, r.options.Targets...)

	if r.options.TargetsFile != "" {
		lines, err := fileutil.ReadFile(r.options.TargetsFile)
		if err != nil {
			return nil, errorutil.NewWithErr(err).Msgf("could not read list file %s", r.options.TargetsFile)
		}
		for line := range lines {
			targets = append(targets, line)
		}
	}

	if r.options.Stdin {
		lines, err := readTargets(r.stdin)
		if err != nil {
			return nil, errorutil.NewWithErr(err).Msgf("could not read targets from stdin")
		}
		targets = append(targets, lines...)
	}

	targets = cleanTargets(targets)

	if len(targets) == 0 && r.options.Auto {
		networks, err := r.localNetworks(r.family)
		if err != nil {
			return nil, errorutil.NewWithErr(err).Msgf("could not discover local networks")
		}
		for _, network := range networks {
			gologger.Info().Msgf("Discovered local network %s", network)
			targets = append(targets, network.String())
		}
	}

	return targets, nil
}

// readTargets returns the lines of r
func readTargets(r io.Reader) ([]string, error) {
	lines, err := fileutil.ReadFileWithReader(r)
	if err != nil {
		return nil, err
	}
	var targets []string
	for line := range lines {
		targets = append(targets, line)
	}
	return targets, nil
}

// cleanTargets trims, drops blank lines and dedupes. Anything else, including
// lines that look like comments, is left for expansion to accept or reject.
func cleanTargets(targets []string) []string {
	cleaned := make([]string, 0, len(targets))
	for _, target := range targets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		cleaned = append(cleaned, target)
	}
	return sliceutil.Dedupe(cleaned)
}

// specs tags every target with the selected family
func specs(targets []string, family expand.Family) []expand.Spec {
	out := make([]expand.Spec, 0, len(targets))
	for _, target := range targets {
		out = append(out, expand.Spec{Value: target, Family: family})
	}
	return out
}
