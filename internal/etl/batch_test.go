package etl

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastRPM keeps pacing negligible in tests that don't measure it.
const fastRPM = 600000 // 0.1ms interval

func squadOf(playerIDs ...int) []map[string]interface{} {
	var records []map[string]interface{}
	for _, id := range playerIDs {
		records = append(records, map[string]interface{}{
			"id":   float64(id),
			"name": fmt.Sprintf("player-%d", id),
		})
	}
	return records
}

func TestFetchAll_PartitionsSuccessesAndFailures(t *testing.T) {
	ids := []int{1, 2, 3, 4}
	failing := map[int]bool{2: true, 4: true}

	fetch := func(_ context.Context, id int) ([]map[string]interface{}, error) {
		if failing[id] {
			return nil, errors.New("exhausted")
		}
		return squadOf(id*100, id*100+1), nil
	}

	b := NewBatchFetcher(fastRPM, zerolog.Nop())
	outcome := b.FetchAll(context.Background(), ids, fetch)

	assert.Equal(t, []int{2, 4}, outcome.FailedIDs, "Failed ids are collected in order")

	// Every id lands in exactly one bucket: tagged rows or failures.
	originIDs := map[int]bool{}
	for _, rec := range outcome.Records {
		originIDs[rec["team_id"].(int)] = true
	}
	assert.Equal(t, map[int]bool{1: true, 3: true}, originIDs,
		"Rows should come from exactly the non-failing ids")
	for _, failed := range outcome.FailedIDs {
		assert.NotContains(t, originIDs, failed, "No id appears in both buckets")
	}
	assert.Len(t, outcome.Records, 4, "Two records per successful id")
}

func TestFetchAll_TagsRecordsWithOrigin(t *testing.T) {
	fetch := func(_ context.Context, id int) ([]map[string]interface{}, error) {
		return squadOf(7), nil
	}

	b := NewBatchFetcher(fastRPM, zerolog.Nop())
	outcome := b.FetchAll(context.Background(), []int{42}, fetch)

	require.Len(t, outcome.Records, 1)
	assert.Equal(t, 42, outcome.Records[0]["team_id"],
		"Each record is tagged with its originating team id")
}

func TestFetchAll_EmptySquadCountsAsFailure(t *testing.T) {
	fetch := func(_ context.Context, id int) ([]map[string]interface{}, error) {
		return nil, nil
	}

	b := NewBatchFetcher(fastRPM, zerolog.Nop())
	outcome := b.FetchAll(context.Background(), []int{1}, fetch)

	assert.Equal(t, []int{1}, outcome.FailedIDs,
		"A team with no players is reported in the final summary")
	assert.Empty(t, outcome.Records)
}

func TestFetchAll_ProcessesInInputOrder(t *testing.T) {
	var seen []int
	fetch := func(_ context.Context, id int) ([]map[string]interface{}, error) {
		seen = append(seen, id)
		return squadOf(id), nil
	}

	ids := []int{5, 3, 9, 1}
	b := NewBatchFetcher(fastRPM, zerolog.Nop())
	b.FetchAll(context.Background(), ids, fetch)

	assert.Equal(t, ids, seen, "Identifiers are fetched strictly in input order")
}

// The pacing policy sleeps after every fetch, the last one included, so N
// instant fetches take at least N intervals.
func TestFetchAll_PacesEveryFetchIncludingLast(t *testing.T) {
	const rpm = 6000 // 10ms interval
	interval := time.Duration(float64(time.Minute) / rpm)

	fetch := func(_ context.Context, id int) ([]map[string]interface{}, error) {
		return squadOf(id), nil
	}

	b := NewBatchFetcher(rpm, zerolog.Nop())
	start := time.Now()
	b.FetchAll(context.Background(), []int{1, 2, 3}, fetch)
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 3*interval,
		"Three fetches should pay three full pacing intervals")
}

func TestFetchAll_CancellationMarksRemainingFailed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	fetch := func(_ context.Context, id int) ([]map[string]interface{}, error) {
		if id == 1 {
			cancel() // interrupt during the pacing sleep that follows
		}
		return squadOf(id), nil
	}

	b := NewBatchFetcher(1, zerolog.Nop()) // 60s interval, never elapses
	start := time.Now()
	outcome := b.FetchAll(ctx, []int{1, 2, 3}, fetch)

	assert.Less(t, time.Since(start), 5*time.Second,
		"Cancellation should interrupt the pacing sleep")
	assert.Equal(t, []int{2, 3}, outcome.FailedIDs,
		"Unprocessed ids are reported failed")
	require.Len(t, outcome.Records, 1)
	assert.Equal(t, 1, outcome.Records[0]["team_id"])
}
