package etl

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"epl_v4/etl/internal/metrics"
)

// FetchFunc fetches the records belonging to one resource identifier.
type FetchFunc func(ctx context.Context, id int) ([]map[string]interface{}, error)

// BatchOutcome aggregates a batch fetch. Every input identifier lands in
// exactly one bucket: its records (tagged with team_id) or FailedIDs.
type BatchOutcome struct {
	Records   []map[string]interface{}
	FailedIDs []int
}

// BatchFetcher walks a list of team identifiers one at a time, pacing calls
// to honor a requests-per-minute budget. Failures of individual identifiers
// are collected, never escalated.
type BatchFetcher struct {
	requestsPerMin float64
	logger         zerolog.Logger
}

// NewBatchFetcher creates a batch fetcher with the given pacing budget.
func NewBatchFetcher(requestsPerMin float64, logger zerolog.Logger) *BatchFetcher {
	return &BatchFetcher{requestsPerMin: requestsPerMin, logger: logger}
}

// FetchAll processes ids strictly in input order, one at a time. After every
// fetch, success or failure alike, it sleeps interval = minute/budget, the
// last identifier included. The external API enforces an account-level rate
// limit, so fetches are deliberately sequential.
//
// Records from a successful fetch are tagged with their originating id under
// "team_id". A fetch that errors or returns no records marks the id failed.
// On context cancellation the remaining unprocessed ids are reported failed.
func (b *BatchFetcher) FetchAll(ctx context.Context, ids []int, fetch FetchFunc) BatchOutcome {
	var interval time.Duration
	if b.requestsPerMin > 0 {
		interval = time.Duration(float64(time.Minute) / b.requestsPerMin)
	}

	var outcome BatchOutcome
	total := len(ids)

	for i, id := range ids {
		records, err := fetch(ctx, id)
		switch {
		case err != nil:
			b.logger.Warn().Err(err).Int("team_id", id).Msg("All attempts failed for team")
			outcome.FailedIDs = append(outcome.FailedIDs, id)
			metrics.ResourcesFailedTotal.Inc()
		case len(records) == 0:
			// An empty squad counts as a miss in the final report, same as
			// an exhausted fetch.
			b.logger.Warn().Int("team_id", id).Msg("No players returned for team")
			outcome.FailedIDs = append(outcome.FailedIDs, id)
			metrics.ResourcesFailedTotal.Inc()
		default:
			for _, rec := range records {
				rec["team_id"] = id
			}
			outcome.Records = append(outcome.Records, records...)
		}

		b.logger.Info().Msgf("Processed %d/%d teams", i+1, total)

		select {
		case <-ctx.Done():
			if i+1 < total {
				outcome.FailedIDs = append(outcome.FailedIDs, ids[i+1:]...)
				b.logger.Warn().
					Int("remaining", total-i-1).
					Msg("Batch fetch cancelled, remaining teams marked failed")
			}
			return outcome
		case <-time.After(interval):
		}
	}

	if len(outcome.FailedIDs) > 0 {
		b.logger.Warn().
			Ints("team_ids", outcome.FailedIDs).
			Msg("Teams missing players this run")
	}

	return outcome
}
