package graph

import (
	"sort"

	"github.com/shopspring/decimal"

	"crypto-tracker/internal/registry"
)

type Role string

const (
	Inflow  Role = "inflow"
	Outflow Role = "outflow"
)

// Presentation defaults shared with the renderer.
const (
	SeedColor         = "red"
	CounterpartyColor = "blue"
	TransactionColor  = "yellow"
	InflowColor       = "#FF0000"
	OutflowColor      = "#00FF00"

	TransactionShape = "box"
	AddressShape     = "dot"

	SeedSize    = 30
	DefaultSize = 25
)

type Node struct {
	ID         int               `json:"id"`
	Identifier string            `json:"identifier"`
	Label      string            `json:"label"`
	Title      string            `json:"title"`
	Category   registry.Category `json:"category"`
	Color      string            `json:"color"`
	Shape      string            `json:"shape"`
	Size       int               `json:"size"`
	Depth      int               `json:"depth"`
}

type Edge struct {
	From     int             `json:"from"`
	To       int             `json:"to"`
	Amount   decimal.Decimal `json:"value"`
	Currency string          `json:"currency"`
	Label    string          `json:"label"`
	Title    string          `json:"title"`
	Color    string          `json:"color"`
	Role     Role            `json:"role"`
}

type edgeKey struct {
	from, to int
}

// Graph is a simple directed graph: at most one edge per ordered node pair.
// It is populated by one traversal run and read by sinks afterwards.
type Graph struct {
	nodes     map[int]*Node
	edges     []*Edge
	edgeIndex map[edgeKey]int
}

func New() *Graph {
	return &Graph{
		nodes:     make(map[int]*Node),
		edgeIndex: make(map[edgeKey]int),
	}
}

// UpsertNode adds the node or replaces the attributes of an existing node with the same ID.
// The discovery depth of an existing node is kept.
func (g *Graph) UpsertNode(n Node) {
	if existing, ok := g.nodes[n.ID]; ok {
		n.Depth = existing.Depth
		*existing = n
		return
	}
	node := n
	g.nodes[n.ID] = &node
}

// EnsureNode adds the node only when no node with its ID exists yet.
func (g *Graph) EnsureNode(n Node) bool {
	if _, ok := g.nodes[n.ID]; ok {
		return false
	}
	node := n
	g.nodes[n.ID] = &node
	return true
}

// AddEdge adds a directed edge, or overwrites the attributes of the edge between the same pair.
func (g *Graph) AddEdge(e Edge) {
	key := edgeKey{e.From, e.To}
	if idx, ok := g.edgeIndex[key]; ok {
		*g.edges[idx] = e
		return
	}
	edge := e
	g.edgeIndex[key] = len(g.edges)
	g.edges = append(g.edges, &edge)
}

func (g *Graph) Node(id int) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

func (g *Graph) Edge(from, to int) (Edge, bool) {
	idx, ok := g.edgeIndex[edgeKey{from, to}]
	if !ok {
		return Edge{}, false
	}
	return *g.edges[idx], true
}

func (g *Graph) HasEdge(from, to int) bool {
	_, ok := g.edgeIndex[edgeKey{from, to}]
	return ok
}

// Nodes returns the nodes ordered by ID.
func (g *Graph) Nodes() []Node {
	ids := make([]int, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, *g.nodes[id])
	}
	return out
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, *e)
	}
	return out
}

func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return len(g.edges) }

type Stats struct {
	TotalNodes   int `json:"total_nodes"`
	TotalEdges   int `json:"total_edges"`
	Addresses    int `json:"addresses"`
	Transactions int `json:"transactions"`
	MaxDepth     int `json:"max_depth"`
}

func (g *Graph) Stats() Stats {
	s := Stats{TotalNodes: len(g.nodes), TotalEdges: len(g.edges)}
	for _, n := range g.nodes {
		switch n.Category {
		case registry.Address:
			s.Addresses++
		case registry.Transaction:
			s.Transactions++
		}
		if n.Depth > s.MaxDepth {
			s.MaxDepth = n.Depth
		}
	}
	return s
}
