package etl

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"epl_v4/etl/internal/cache"
	"epl_v4/etl/internal/client"
	"epl_v4/etl/internal/config"
	"epl_v4/etl/internal/store"
)

// Run wires the real collaborators from configuration and executes one ETL
// pass. The store connection is acquired here and released on every exit
// path. The returned error covers wiring failures only; run-level outcomes
// live in the report.
func Run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (Report, error) {
	st, err := store.New(ctx, cfg.StoreConfig(), logger.With().Str("component", "store").Logger())
	if err != nil {
		return Report{State: StateFailed, Err: err}, err
	}
	defer st.Close()

	cl := client.New(client.Config{
		BaseURL:     cfg.APIBaseURL,
		Token:       cfg.APIToken,
		Competition: cfg.Competition,
		Retries:     cfg.RetriesPerTeam,
		RetryDelay:  cfg.SleepBetweenRetries,
		Timeout:     cfg.APITimeout,
	}, logger.With().Str("component", "client").Logger())

	if cfg.CacheEnabled {
		payloadCache, cerr := cache.NewRedisCache(cache.Config{
			Host:     cfg.RedisHost,
			Port:     strconv.Itoa(cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		}, logger.With().Str("component", "cache").Logger())
		if cerr != nil {
			logger.Warn().Err(cerr).Msg("Failed to connect to Redis - continuing without cache")
		} else {
			defer payloadCache.Close()
			cl = cl.WithCache(payloadCache)
		}
	}

	pipeline := NewPipeline(cl, st, Options{
		Season:         cfg.Season,
		RequestsPerMin: cfg.RequestsPerMin,
	}, logger.With().Str("component", "etl").Logger())

	return pipeline.Run(ctx), nil
}
