// Package watchlist holds the static mixer and exchange address lists and classifies
// transactions against them.
package watchlist

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

const (
	CategoryExchange = "exchange"
	CategoryMixer    = "mixer"
)

// Entry is one watched address with the entity it belongs to.
type Entry struct {
	Address string `yaml:"address"`
	Label   string `yaml:"label"`
}

// Watchlist is a case-insensitive address set that keeps the source order for display.
type Watchlist struct {
	name    string
	entries []Entry
	labels  map[string]string
}

func NewWatchlist(name string, entries []Entry) *Watchlist {
	w := &Watchlist{
		name:   name,
		labels: make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		key := fold(e.Address)
		if key == "" {
			continue
		}
		if _, dup := w.labels[key]; dup {
			continue
		}
		w.labels[key] = e.Label
		w.entries = append(w.entries, e)
	}
	return w
}

func (w *Watchlist) Name() string { return w.name }
func (w *Watchlist) Len() int     { return len(w.entries) }

// Contains reports exact membership after case folding.
func (w *Watchlist) Contains(address string) bool {
	_, ok := w.labels[fold(address)]
	return ok
}

// Label returns the entity label of a member address.
func (w *Watchlist) Label(address string) (string, bool) {
	l, ok := w.labels[fold(address)]
	return l, ok
}

// Set groups the lists the classifier checks.
type Set struct {
	Exchanges *Watchlist
	Mixers    *Watchlist
}

type file struct {
	Exchanges []Entry `yaml:"exchanges"`
	Mixers    []Entry `yaml:"mixers"`
}

// Parse decodes a YAML watchlist document.
func Parse(data []byte) (*Set, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse watchlist: %w", err)
	}
	return &Set{
		Exchanges: NewWatchlist(CategoryExchange, f.Exchanges),
		Mixers:    NewWatchlist(CategoryMixer, f.Mixers),
	}, nil
}

// Default returns the built-in lists.
func Default() *Set {
	set, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded watchlist is invalid: %v", err))
	}
	return set
}

// LoadFile reads a YAML watchlist file.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read watchlist file: %w", err)
	}
	return Parse(data)
}

// Load returns the lists from path, or the built-in lists when path is empty.
func Load(path string) (*Set, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

func fold(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
