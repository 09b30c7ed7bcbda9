package runner

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/logrusorgru/aurora/v4"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/pingtop/pkg/rank"
	errorutil "github.com/projectdiscovery/utils/errors"
)

// Latency thresholds for colored text output
const (
	fastThreshold = 50 * time.Millisecond
	slowThreshold = 150 * time.Millisecond
)

var csvHeader = []string{"address", "mean_ms", "smoothed_ms", "min_ms", "max_ms", "sent", "received"}

// jsonEntry is one json line of output
type jsonEntry struct {
	Address    string  `json:"address"`
	MeanMs     int64   `json:"mean_ms"`
	SmoothedMs float64 `json:"smoothed_ms"`
	MinMs      float64 `json:"min_ms"`
	MaxMs      float64 `json:"max_ms"`
	Sent       int     `json:"sent"`
	Received   int     `json:"received"`
	Loss       float64 `json:"loss"`
	RunID      string  `json:"run_id"`
}

// formatEntries renders the ranking in the selected output format.
// colors is only honored by the plain text format.
func (options *Options) formatEntries(entries []rank.Entry, runID string, colors *aurora.Aurora) ([]string, error) {
	switch {
	case options.JSON:
		return formatJSON(entries, runID)
	case options.CSV:
		return formatCSV(entries)
	default:
		return formatText(entries, colors), nil
	}
}

// formatText renders "<address> <mean ms>" lines
func formatText(entries []rank.Entry, colors *aurora.Aurora) []string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		value := strconv.FormatInt(entry.Millis(), 10)
		if colors != nil {
			value = colorize(colors, entry.Mean, value)
		}
		lines = append(lines, entry.Addr.String()+" "+value)
	}
	return lines
}

func colorize(colors *aurora.Aurora, mean time.Duration, value string) string {
	switch {
	case mean < fastThreshold:
		return colors.Green(value).String()
	case mean < slowThreshold:
		return colors.Yellow(value).String()
	default:
		return colors.Red(value).String()
	}
}

func formatJSON(entries []rank.Entry, runID string) ([]string, error) {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		data, err := json.Marshal(jsonEntry{
			Address:    entry.Addr.String(),
			MeanMs:     entry.Millis(),
			SmoothedMs: millis(entry.Smoothed),
			MinMs:      millis(entry.Min),
			MaxMs:      millis(entry.Max),
			Sent:       entry.Sent,
			Received:   entry.Received,
			Loss:       entry.Loss(),
			RunID:      runID,
		})
		if err != nil {
			return nil, err
		}
		lines = append(lines, string(data))
	}
	return lines, nil
}

func formatCSV(entries []rank.Entry) ([]string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		record := []string{
			entry.Addr.String(),
			strconv.FormatInt(entry.Millis(), 10),
			strconv.FormatFloat(millis(entry.Smoothed), 'f', 3, 64),
			strconv.FormatFloat(millis(entry.Min), 'f', 3, 64),
			strconv.FormatFloat(millis(entry.Max), 'f', 3, 64),
			strconv.Itoa(entry.Sent),
			strconv.Itoa(entry.Received),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n"), nil
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// writeResults prints the ranking to stdout and, when configured, to the output file
func (r *Runner) writeResults(entries []rank.Entry) error {
	lines, err := r.options.formatEntries(entries, r.runID, au)
	if err != nil {
		return errorutil.NewWithErr(err).Msgf("could not format results")
	}
	for _, line := range lines {
		gologger.Silent().Msg(line)
	}

	if r.options.Output == "" {
		return nil
	}

	plain, err := r.options.formatEntries(entries, r.runID, nil)
	if err != nil {
		return errorutil.NewWithErr(err).Msgf("could not format results")
	}
	var data []byte
	for _, line := range plain {
		data = append(data, line...)
		data = append(data, '\n')
	}
	if err := os.WriteFile(r.options.Output, data, 0o644); err != nil {
		return errorutil.NewWithErr(err).Msgf("could not write output file %s", r.options.Output)
	}
	gologger.Info().Msgf("Results written to %s", r.options.Output)
	return nil
}
