// Package mediatool wraps invocations of the external command-line media
// tool (probe subcommand for duration, main subcommand for timestamp
// repair and concat) per the fixed CLI contract in spec §6.
package mediatool

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"rbxcache/internal/constants"
)

// Tool invokes an external media binary at Path for probing, timestamp
// repair, and segment concatenation.
type Tool struct {
	Path string
}

// New returns a Tool bound to the given executable path.
func New(path string) *Tool {
	return &Tool{Path: path}
}

// ProbeDuration runs `<path> probe -v quiet -show_entries format=duration
// -of csv=p=0 <file>` and parses the resulting duration in seconds.
// Implements internal/assets.DurationProber.
func (t *Tool) ProbeDuration(path string) (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.ToolRepairTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.Path,
		constants.ProbeSubcommand,
		"-v", "quiet",
		constants.ToolArgShowDuration, "format=duration",
		"-of", "csv=p=0",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("mediatool: probe %s: %w", path, err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("mediatool: parsing probe output %q: %w", out, err)
	}
	return seconds, nil
}

// RepairTimestamps runs `<path> -i <segPath> -c copy
// -bsf:v setts=ts=PTS-STARTPTS <outPath> -y`, rewriting the segment's
// presentation timestamps to start at zero.
func (t *Tool) RepairTimestamps(ctx context.Context, segPath, outPath string) error {
	cctx, cancel := context.WithTimeout(ctx, constants.ToolRepairTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, t.Path,
		"-i", segPath,
		"-c", "copy",
		"-bsf:v", "setts=ts=PTS-STARTPTS",
		outPath,
		"-y",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("mediatool: repair %s: %w: %s", segPath, err, out)
	}
	return nil
}

// Concat runs `<path> -f concat -safe 0 -i <listPath> -c copy <outPath>
// -y`, joining the segment list into one output file.
func (t *Tool) Concat(ctx context.Context, listPath, outPath string) error {
	cctx, cancel := context.WithTimeout(ctx, constants.ToolConcatTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, t.Path,
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outPath,
		"-y",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("mediatool: concat %s: %w: %s", listPath, err, out)
	}
	return nil
}
