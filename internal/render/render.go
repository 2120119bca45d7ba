// Package render writes a finished trace as vis-network JSON or as a standalone HTML page.
package render

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"crypto-tracker/internal/graph"
	"crypto-tracker/internal/registry"
	"crypto-tracker/internal/trace"
)

type visNode struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Title string `json:"title"`
	Color string `json:"color"`
	Shape string `json:"shape"`
	Size  int    `json:"size"`
	Group string `json:"group"`
}

type visSmooth struct {
	Type string `json:"type"`
}

type visEdge struct {
	From   int       `json:"from"`
	To     int       `json:"to"`
	Label  string    `json:"label"`
	Title  string    `json:"title"`
	Color  string    `json:"color"`
	Arrows string    `json:"arrows"`
	Dashes bool      `json:"dashes"`
	Smooth visSmooth `json:"smooth"`
}

// Document is the serialized form of a trace.
type Document struct {
	Chain  string                 `json:"chain"`
	Seed   string                 `json:"seed"`
	Depth  int                    `json:"depth"`
	Nodes  []visNode              `json:"nodes"`
	Edges  []visEdge              `json:"edges"`
	Legend []registry.LegendEntry `json:"legend"`
	Graph  graph.Stats            `json:"graph"`
	Stats  trace.Stats            `json:"stats"`
}

func NewDocument(res *trace.Result) Document {
	doc := Document{
		Chain:  res.Chain.String(),
		Seed:   res.Seed,
		Depth:  res.MaxDepth,
		Nodes:  make([]visNode, 0, res.Graph.NodeCount()),
		Edges:  make([]visEdge, 0, res.Graph.EdgeCount()),
		Legend: res.Legend,
		Graph:  res.Graph.Stats(),
		Stats:  res.Stats,
	}
	for _, n := range res.Graph.Nodes() {
		doc.Nodes = append(doc.Nodes, visNode{
			ID:    n.ID,
			Label: n.Label,
			Title: n.Title,
			Color: n.Color,
			Shape: n.Shape,
			Size:  n.Size,
			Group: string(n.Category),
		})
	}
	for _, e := range res.Graph.Edges() {
		doc.Edges = append(doc.Edges, visEdge{
			From:   e.From,
			To:     e.To,
			Label:  e.Label,
			Title:  e.Title,
			Color:  e.Color,
			Arrows: "to",
			Dashes: true,
			Smooth: visSmooth{Type: "dynamic"},
		})
	}
	return doc
}

// WriteJSON writes the vis-network compatible document.
func WriteJSON(w io.Writer, res *trace.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(res)); err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	return nil
}

type page struct {
	Title string
	Document
}

// WriteHTML writes a self-contained page with the interactive graph and the node legend.
func WriteHTML(w io.Writer, title string, res *trace.Result) error {
	if err := pageTemplate.Execute(w, page{Title: title, Document: NewDocument(res)}); err != nil {
		return fmt.Errorf("failed to render graph page: %w", err)
	}
	return nil
}

var pageTemplate = template.Must(template.New("graph").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="https://unpkg.com/vis-network/standalone/umd/vis-network.min.js"></script>
<style>
body { font-family: sans-serif; margin: 0; display: flex; }
#graph { flex: 1; height: 100vh; border-right: 1px solid #ddd; }
#legend { width: 320px; height: 100vh; overflow-y: auto; padding: 0 12px; font-size: 13px; }
</style>
</head>
<body>
<div id="graph"></div>
<div id="legend">
<h3>Node Legend:</h3>
<p>{{.Chain}} seed {{.Seed}}, depth {{.Depth}}: {{.Graph.Addresses}} addresses, {{.Graph.Transactions}} transactions</p>
<ul>
{{- range .Legend}}
<li><b>{{.ID}}</b>: {{.Label}} ({{.Category}})</li>
{{- end}}
</ul>
</div>
<script>
var nodes = new vis.DataSet({{.Nodes}});
var edges = new vis.DataSet({{.Edges}});
var options = {
  interaction: { hover: true, navigationButtons: true },
  physics: { stabilization: { iterations: 200 } },
  edges: { font: { size: 10, align: "middle" } }
};
var network = new vis.Network(document.getElementById("graph"), { nodes: nodes, edges: edges }, options);

function highlightConnectedEdges(nodeId) {
  edges.forEach(function (edge) {
    edges.update({ id: edge.id, dashes: true, width: 1, color: edge.baseColor || edge.color });
  });
  network.getConnectedEdges(nodeId).forEach(function (edgeId) {
    var edge = edges.get(edgeId);
    edges.update({ id: edgeId, baseColor: edge.baseColor || edge.color, dashes: [5, 5], width: 3, color: { color: "#FFA500", highlight: "#FFA500" } });
  });
}

network.on("click", function (params) {
  if (params.nodes.length > 0) {
    highlightConnectedEdges(params.nodes[0]);
  }
});
</script>
</body>
</html>
`))
