package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"crypto-tracker/internal/config"
	"crypto-tracker/internal/database"
	"crypto-tracker/internal/emitters"
	"crypto-tracker/internal/events"
	"crypto-tracker/internal/export"
	"crypto-tracker/internal/interfaces"
	"crypto-tracker/internal/models"
	"crypto-tracker/internal/trace"
)

// fanOutEmitter forwards each event to every configured sink, logging failures.
type fanOutEmitter struct {
	sinks  []interfaces.EventEmitter
	logger *zerolog.Logger
}

func (f *fanOutEmitter) EmitEvent(event models.MatchEvent) error {
	for _, s := range f.sinks {
		if err := s.EmitEvent(event); err != nil {
			f.logger.Error().Err(err).Str("txHash", event.TxHash).Msg("Failed to emit watchlist match")
		}
	}
	return nil
}

// sinks holds the optional outputs enabled by configuration.
type sinks struct {
	emitter interfaces.EventEmitter
	kafka   *emitters.KafkaEmitter
	neo4j   *export.Neo4jExporter
	db      bool
	logger  *zerolog.Logger
}

func openSinks(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *sinks {
	s := &sinks{logger: logger}
	fan := &fanOutEmitter{logger: logger}

	if cfg.Database.Enabled {
		if err := database.InitDB(cfg.Database); err != nil {
			logger.Error().Err(err).Msg("Failed to initialize database, run will not be stored")
		} else if err := database.RunMigrations(cfg.Database); err != nil {
			logger.Error().Err(err).Msg("Failed to run migrations, run will not be stored")
			_ = database.Close()
		} else {
			s.db = true
			fan.sinks = append(fan.sinks, database.Emitter{})
		}
	}

	if cfg.Kafka.Enabled {
		s.kafka = emitters.NewKafkaEmitter(cfg.Kafka.BrokerAddress, cfg.Kafka.Topic, cfg.Kafka.BatchSize, cfg.Kafka.BatchTimeout)
		fan.sinks = append(fan.sinks, s.kafka)
	}

	if cfg.Neo4j.Enabled {
		exporter, err := export.NewNeo4jExporter(ctx, cfg.Neo4j, logger)
		if err != nil {
			logger.Error().Err(err).Msg("Neo4j export disabled")
		} else {
			s.neo4j = exporter
		}
	}

	s.emitter = &events.LogEmitter{WrappedEmitter: fan, Logger: logger}
	return s
}

// record stores the run and publishes its matches. Failures are logged only.
func (s *sinks) record(ctx context.Context, runID string, res *trace.Result, started time.Time, matches []models.MatchEvent) {
	if s.db {
		stats := res.Graph.Stats()
		err := database.SaveRun(database.Run{
			ID:            runID,
			Blockchain:    res.Chain,
			SeedAddress:   res.Seed,
			MaxDepth:      res.MaxDepth,
			NodeCount:     stats.TotalNodes,
			EdgeCount:     stats.TotalEdges,
			TxCount:       len(res.Transactions),
			Fetches:       res.Stats.Fetches,
			FailedFetches: res.Stats.FailedFetches,
			StartedAt:     started,
			FinishedAt:    time.Now().UTC(),
		})
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to save run")
		}
	}

	for _, m := range matches {
		_ = s.emitter.EmitEvent(m)
	}

	if s.db {
		stored, err := database.GetMatches(runID)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to read back stored matches")
		} else {
			s.logger.Info().
				Str("runID", runID).
				Int("matches", len(stored)).
				Msg("Run recorded")
		}
	}

	if s.neo4j != nil {
		if err := s.neo4j.Export(ctx, runID, res); err != nil {
			s.logger.Error().Err(err).Msg("Failed to export graph")
		}
	}
}

func (s *sinks) close(ctx context.Context) {
	if s.kafka != nil {
		if err := s.kafka.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Failed to close Kafka writer")
		}
	}
	if s.neo4j != nil {
		if err := s.neo4j.Close(ctx); err != nil {
			s.logger.Error().Err(err).Msg("Failed to close Neo4j driver")
		}
	}
	if s.db {
		_ = database.Close()
	}
}
