// Package registry assigns small sequential node IDs to external identifiers
// (addresses, transaction hashes) and keeps the display legend in assignment order.
package registry

import "fmt"

type Category string

const (
	Address     Category = "address"
	Transaction Category = "transaction"
)

// LegendEntry pairs an assigned ID with a truncated, human readable label.
type LegendEntry struct {
	ID       int      `json:"id"`
	Label    string   `json:"label"`
	Category Category `json:"type"`
}

// Registry is owned by a single traversal run. It is not safe for concurrent use.
type Registry struct {
	ids    map[string]int
	legend []LegendEntry
}

func New() *Registry {
	return &Registry{ids: make(map[string]int)}
}

// Resolve returns the ID for identifier, assigning the next one (starting at 1) on
// first sight and recording a legend entry. Seen identifiers leave the legend untouched.
func (r *Registry) Resolve(identifier string, category Category) int {
	if id, ok := r.ids[identifier]; ok {
		return id
	}
	id := len(r.legend) + 1
	r.ids[identifier] = id
	r.legend = append(r.legend, LegendEntry{
		ID:       id,
		Label:    fmt.Sprintf("%d: %s...%s", id, head(identifier, 6), tail(identifier, 4)),
		Category: category,
	})
	return id
}

func (r *Registry) Len() int {
	return len(r.legend)
}

// Legend returns a copy of the legend in insertion order.
func (r *Registry) Legend() []LegendEntry {
	out := make([]LegendEntry, len(r.legend))
	copy(out, r.legend)
	return out
}

func head(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n])
}

func tail(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[len(rs)-n:])
}
