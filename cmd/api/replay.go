package main

import (
	"context"
	"fmt"
	"time"

	"campaign-escrow/internal/core/ports"

	"github.com/spf13/cobra"
)

func replayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run unprocessed webhook log entries through the reconciler",
		Long: `Load webhook log entries that were received but never marked processed
(typically after a storage failure) and feed their stored payloads back
through the same pipeline. Signatures are not re-checked; payloads were
verified when they were received.

Examples:
  api replay
  api replay --older-than 15m --limit 500`,
		RunE: runReplay,
	}

	cmd.Flags().Duration("older-than", 5*time.Minute, "only replay entries at least this old")
	cmd.Flags().Int("limit", 100, "maximum entries to replay")

	return cmd
}

// replaySummary counts replay outcomes.
type replaySummary struct {
	Total    int
	Failed   int
	Outcomes map[ports.ReconcileOutcome]int
}

func runReplay(cmd *cobra.Command, _ []string) error {
	olderThan, _ := cmd.Flags().GetDuration("older-than")
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := replay(ctx, a.logs, a.processor, olderThan, limit)
	if err != nil {
		return err
	}

	ev := a.log.Info().Int("total", summary.Total).Int("failed", summary.Failed)
	for outcome, n := range summary.Outcomes {
		ev = ev.Int(string(outcome), n)
	}
	ev.Msg("replay finished")

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d entries failed to replay", summary.Failed, summary.Total)
	}
	return nil
}

// replay stops at the first error listing entries but keeps going past
// entries that fail to apply; they stay unprocessed for the next run.
func replay(ctx context.Context, logs ports.WebhookLogService, processor ports.WebhookProcessor, olderThan time.Duration, limit int) (*replaySummary, error) {
	entries, err := logs.ListUnprocessed(ctx, olderThan, limit)
	if err != nil {
		return nil, err
	}

	summary := &replaySummary{Total: len(entries), Outcomes: make(map[ports.ReconcileOutcome]int)}
	for i := range entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		result, err := processor.Replay(ctx, &entries[i])
		if err != nil {
			summary.Failed++
			continue
		}
		summary.Outcomes[result.Outcome]++
	}
	return summary, nil
}
