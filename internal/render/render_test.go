package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"crypto-tracker/internal/graph"
	"crypto-tracker/internal/models"
	"crypto-tracker/internal/registry"
	"crypto-tracker/internal/trace"
)

func sampleResult() *trace.Result {
	reg := registry.New()
	g := graph.New()

	seed := reg.Resolve("1SeedAddress", registry.Address)
	tx := reg.Resolve("txhash0001", registry.Transaction)
	g.UpsertNode(graph.Node{ID: seed, Label: "1", Title: "Address: 1SeedAddress", Category: registry.Address, Color: graph.SeedColor, Shape: graph.AddressShape, Size: graph.SeedSize})
	g.UpsertNode(graph.Node{ID: tx, Label: "2", Title: "TX: txhash0001", Category: registry.Transaction, Color: graph.TransactionColor, Shape: graph.TransactionShape, Size: graph.DefaultSize})
	g.AddEdge(graph.Edge{From: seed, To: tx, Amount: decimal.RequireFromString("0.5"), Currency: "BTC", Label: "0.5000 BTC", Color: graph.InflowColor, Role: graph.Inflow})

	return &trace.Result{
		Chain:    models.Bitcoin,
		Seed:     "1SeedAddress",
		MaxDepth: 2,
		Graph:    g,
		Legend:   reg.Legend(),
		Stats:    trace.Stats{Fetches: 1, Expanded: 1},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleResult()); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var doc struct {
		Chain  string `json:"chain"`
		Nodes  []map[string]any
		Edges  []map[string]any
		Legend []registry.LegendEntry
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if doc.Chain != "Bitcoin" || len(doc.Nodes) != 2 || len(doc.Edges) != 1 {
		t.Fatalf("unexpected document %+v", doc)
	}
	if doc.Nodes[0]["color"] != "red" || doc.Nodes[1]["shape"] != "box" {
		t.Errorf("unexpected nodes %v", doc.Nodes)
	}
	if doc.Edges[0]["label"] != "0.5000 BTC" || doc.Edges[0]["dashes"] != true {
		t.Errorf("unexpected edge %v", doc.Edges[0])
	}
	if doc.Legend[0].Label != "1: 1SeedA...ress" || doc.Legend[1].Category != registry.Transaction {
		t.Errorf("unexpected legend %+v", doc.Legend)
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, "Transaction graph for <seed>", sampleResult()); err != nil {
		t.Fatalf("WriteHTML() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"<title>Transaction graph for &lt;seed&gt;</title>",
		"<li><b>1</b>: 1: 1SeedA...ress (address)</li>",
		"<li><b>2</b>: 2: txhash...0001 (transaction)</li>",
		"new vis.DataSet(",
		`"0.5000 BTC"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
