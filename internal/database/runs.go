package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crypto-tracker/internal/interfaces"
	"crypto-tracker/internal/models"
)

var ErrNotInitialized = errors.New("database is not initialized")

// Run is one traversal stored in analysis_runs
type Run struct {
	ID            string                `json:"id"`
	Blockchain    models.BlockchainName `json:"blockchain"`
	SeedAddress   string                `json:"seed_address"`
	MaxDepth      int                   `json:"max_depth"`
	NodeCount     int                   `json:"node_count"`
	EdgeCount     int                   `json:"edge_count"`
	TxCount       int                   `json:"tx_count"`
	Fetches       int                   `json:"fetches"`
	FailedFetches int                   `json:"failed_fetches"`
	StartedAt     time.Time             `json:"started_at"`
	FinishedAt    time.Time             `json:"finished_at"`
}

// Match is one row of watchlist_matches
type Match struct {
	ID          int64                 `json:"id"`
	RunID       string                `json:"run_id"`
	Blockchain  models.BlockchainName `json:"blockchain"`
	Category    string                `json:"category"`
	TxHash      string                `json:"tx_hash"`
	Address     string                `json:"address"`
	Label       string                `json:"label"`
	Amount      string                `json:"amount"`
	Timestamp   sql.NullTime          `json:"tx_timestamp"`
	ExplorerURL sql.NullString        `json:"explorer_url"`
	CreatedAt   time.Time             `json:"created_at"`
}

// SaveRun stores the summary of a traversal
func SaveRun(run Run) error {
	if DB == nil {
		return ErrNotInitialized
	}
	_, err := DB.Exec(`
		INSERT INTO analysis_runs (id, blockchain, seed_address, max_depth, node_count, edge_count, tx_count, fetches, failed_fetches, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`, run.ID, run.Blockchain, run.SeedAddress, run.MaxDepth, run.NodeCount, run.EdgeCount, run.TxCount, run.Fetches, run.FailedFetches, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// SaveMatch stores a watchlist match of a previously saved run
func SaveMatch(event models.MatchEvent) error {
	if DB == nil {
		return ErrNotInitialized
	}
	_, err := DB.Exec(`
		INSERT INTO watchlist_matches (run_id, blockchain, category, tx_hash, address, label, amount, tx_timestamp, explorer_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id, category, tx_hash) DO NOTHING
	`, event.RunID, event.Chain, event.Category, event.TxHash, event.Address, event.Label, event.Amount,
		nullTime(event.Timestamp), nullString(event.ExplorerURL))
	if err != nil {
		return fmt.Errorf("failed to save match: %w", err)
	}
	return nil
}

// GetMatches retrieves the matches recorded for a run
func GetMatches(runID string) ([]Match, error) {
	if DB == nil {
		return nil, ErrNotInitialized
	}
	rows, err := DB.Query(`
		SELECT id, run_id, blockchain, category, tx_hash, address, label, amount, tx_timestamp, explorer_url, created_at
		FROM watchlist_matches
		WHERE run_id = $1
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		err := rows.Scan(&m.ID, &m.RunID, &m.Blockchain, &m.Category, &m.TxHash, &m.Address, &m.Label, &m.Amount, &m.Timestamp, &m.ExplorerURL, &m.CreatedAt)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Emitter stores match events as they are emitted
type Emitter struct{}

var _ interfaces.EventEmitter = Emitter{}

func (Emitter) EmitEvent(event models.MatchEvent) error {
	return SaveMatch(event)
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
