// Package etl sequences the teams → matches → players extraction and load.
package etl

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"epl_v4/etl/internal/metrics"
	"epl_v4/etl/internal/normalize"
	"epl_v4/etl/internal/store"
)

// State is the orchestrator's position in the run.
type State int

const (
	StateInit State = iota
	StateTeamsFetched
	StateMatchesFetched
	StatePlayersFetched
	StateDone
	StateAborted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateTeamsFetched:
		return "teams_fetched"
	case StateMatchesFetched:
		return "matches_fetched"
	case StatePlayersFetched:
		return "players_fetched"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// ErrNoTeams aborts a run whose teams fetch produced no data. Teams are a
// hard prerequisite: the player fetch needs team identifiers.
var ErrNoTeams = errors.New("no teams fetched")

// Fetcher is the remote-API collaborator the orchestrator drives.
type Fetcher interface {
	FetchTeams(ctx context.Context) ([]map[string]interface{}, error)
	FetchMatches(ctx context.Context, season int) ([]map[string]interface{}, error)
	FetchTeamSquad(ctx context.Context, teamID int) ([]map[string]interface{}, error)
}

// Options holds the run parameters the orchestrator needs.
type Options struct {
	Season         int
	RequestsPerMin float64
}

// Report describes how a run ended.
type Report struct {
	State         State
	Teams         int
	Matches       int
	Players       int
	FailedTeamIDs []int
	Duration      time.Duration
	Err           error
}

// Pipeline runs one full ETL pass over the injected collaborators.
type Pipeline struct {
	fetcher Fetcher
	store   store.Store
	opts    Options
	logger  zerolog.Logger
}

// NewPipeline creates a pipeline over the given fetcher and store.
func NewPipeline(fetcher Fetcher, st store.Store, opts Options, logger zerolog.Logger) *Pipeline {
	return &Pipeline{fetcher: fetcher, store: st, opts: opts, logger: logger}
}

// Run executes teams → matches → players. An empty teams result aborts the
// run; a matches failure is logged and the run proceeds, since players do
// not depend on matches. Unexpected panics are recovered, logged with a
// stack, and reported as StateFailed; Run never panics through.
func (p *Pipeline) Run(ctx context.Context) (report Report) {
	start := time.Now()
	report.State = StateInit

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("ETL run failed")
			report.State = StateFailed
			report.Err = fmt.Errorf("etl run panicked: %v", r)
		}
		report.Duration = time.Since(start)
		metrics.RecordRun(report.State.String(), report.Duration.Seconds())
	}()

	teams := p.fetchTeams(ctx)
	if teams.Len() == 0 {
		p.logger.Error().Msg("No teams fetched. Aborting ETL.")
		report.State = StateAborted
		report.Err = ErrNoTeams
		return report
	}
	if err := p.store.Replace(ctx, "teams", teams); err != nil {
		return p.fail(&report, err)
	}
	report.State = StateTeamsFetched
	report.Teams = teams.Len()
	p.logger.Info().Int("count", teams.Len()).Msg("Teams table updated")

	matches := p.fetchMatches(ctx)
	if matches.Len() == 0 {
		p.logger.Error().Msg("Matches data not available.")
	} else {
		if err := p.store.Replace(ctx, "matches", matches); err != nil {
			return p.fail(&report, err)
		}
		p.logger.Info().Int("count", matches.Len()).Msg("Matches table updated")
	}
	report.State = StateMatchesFetched
	report.Matches = matches.Len()

	batch := NewBatchFetcher(p.opts.RequestsPerMin, p.logger)
	outcome := batch.FetchAll(ctx, teams.Ints("id"), p.fetcher.FetchTeamSquad)

	// Players appear in several squads over a season; keep the first row per
	// player id.
	players := normalize.Flatten(outcome.Records, "id")
	if err := p.store.Replace(ctx, "players", players); err != nil {
		return p.fail(&report, err)
	}
	report.State = StatePlayersFetched
	report.Players = players.Len()
	report.FailedTeamIDs = outcome.FailedIDs
	p.logger.Info().Int("count", players.Len()).Msg("Players table updated")

	report.State = StateDone
	p.logger.Info().
		Int("teams", report.Teams).
		Int("matches", report.Matches).
		Int("players", report.Players).
		Ints("failed_team_ids", report.FailedTeamIDs).
		Msg("ETL run complete")
	return report
}

func (p *Pipeline) fail(report *Report, err error) Report {
	p.logger.Error().Err(err).Msg("ETL run failed")
	report.State = StateFailed
	report.Err = err
	return *report
}

func (p *Pipeline) fetchTeams(ctx context.Context) *normalize.RowSet {
	records, err := p.fetcher.FetchTeams(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("Teams fetch failed")
		return &normalize.RowSet{}
	}
	return normalize.Flatten(records, "")
}

func (p *Pipeline) fetchMatches(ctx context.Context) *normalize.RowSet {
	records, err := p.fetcher.FetchMatches(ctx, p.opts.Season)
	if err != nil {
		p.logger.Error().Err(err).Int("season", p.opts.Season).Msg("Matches fetch failed")
		return &normalize.RowSet{}
	}
	return normalize.Flatten(records, "")
}
