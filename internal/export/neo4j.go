// Package export writes a finished trace into a Neo4j graph database so that
// runs can be merged and queried together.
package export

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"

	"crypto-tracker/internal/config"
	"crypto-tracker/internal/graph"
	"crypto-tracker/internal/registry"
	"crypto-tracker/internal/trace"
)

const (
	mergeAddresses = `
		UNWIND $rows AS row
		MERGE (a:Address {id: row.identifier, chain: $chain})
		SET a.last_run = $run, a.title = row.title
		WITH a, row WHERE row.seed
		SET a.seed = true`

	mergeTransactions = `
		UNWIND $rows AS row
		MERGE (t:Transaction {hash: row.identifier, chain: $chain})
		SET t.last_run = $run, t.title = row.title`

	mergeInflows = `
		UNWIND $rows AS row
		MATCH (a:Address {id: row.from, chain: $chain})
		MATCH (t:Transaction {hash: row.to, chain: $chain})
		MERGE (a)-[r:INFLOW]->(t)
		SET r.amount = row.amount, r.currency = row.currency, r.run_id = $run`

	mergeOutflows = `
		UNWIND $rows AS row
		MATCH (t:Transaction {hash: row.from, chain: $chain})
		MATCH (a:Address {id: row.to, chain: $chain})
		MERGE (t)-[r:OUTFLOW]->(a)
		SET r.amount = row.amount, r.currency = row.currency, r.run_id = $run`
)

type statement struct {
	query  string
	params map[string]any
}

type Neo4jExporter struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zerolog.Logger
}

func NewNeo4jExporter(ctx context.Context, cfg config.Neo4jConfig, logger *zerolog.Logger) (*Neo4jExporter, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}
	return &Neo4jExporter{driver: driver, database: cfg.Database, logger: logger}, nil
}

// Export merges every node and edge of the result in a single write transaction.
func (e *Neo4jExporter) Export(ctx context.Context, runID string, res *trace.Result) error {
	stmts := buildStatements(runID, res)
	if len(stmts) == 0 {
		return nil
	}

	session := e.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: e.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, st := range stmts {
			if _, err := tx.Run(ctx, st.query, st.params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to export graph to neo4j: %w", err)
	}

	e.logger.Info().
		Str("runID", runID).
		Int("nodes", res.Graph.NodeCount()).
		Int("edges", res.Graph.EdgeCount()).
		Msg("Exported graph to Neo4j")
	return nil
}

func (e *Neo4jExporter) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}

func buildStatements(runID string, res *trace.Result) []statement {
	if res == nil || res.Graph == nil || res.Graph.NodeCount() == 0 {
		return nil
	}

	chain := res.Chain.String()
	identifiers := make(map[int]string, res.Graph.NodeCount())
	var addresses, txs []any
	for _, n := range res.Graph.Nodes() {
		identifiers[n.ID] = n.Identifier
		row := map[string]any{
			"identifier": n.Identifier,
			"title":      n.Title,
		}
		switch n.Category {
		case registry.Transaction:
			txs = append(txs, row)
		default:
			row["seed"] = n.Identifier == res.Seed
			addresses = append(addresses, row)
		}
	}

	var inflows, outflows []any
	for _, edge := range res.Graph.Edges() {
		row := map[string]any{
			"from":     identifiers[edge.From],
			"to":       identifiers[edge.To],
			"amount":   edge.Amount.String(),
			"currency": edge.Currency,
		}
		if edge.Role == graph.Inflow {
			inflows = append(inflows, row)
		} else {
			outflows = append(outflows, row)
		}
	}

	var stmts []statement
	add := func(query string, rows []any) {
		if len(rows) == 0 {
			return
		}
		stmts = append(stmts, statement{
			query: query,
			params: map[string]any{
				"rows":  rows,
				"chain": chain,
				"run":   runID,
			},
		})
	}
	add(mergeAddresses, addresses)
	add(mergeTransactions, txs)
	add(mergeInflows, inflows)
	add(mergeOutflows, outflows)
	return stmts
}
