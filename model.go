package huffpack

import (
	"fmt"
	"slices"

	"github.com/seiflotfy/huffpack/codetree"
	"github.com/seiflotfy/huffpack/model"
)

// Model is the header-derived state shared by both sides of the codec: the
// alphabet with its ranks, the code tree rebuilt from them and the tree's
// code table. A Model is immutable once built.
type Model struct {
	mode     Mode
	strategy codetree.Strategy
	entries  []Entry
	tree     *codetree.Tree
	table    *codetree.Table
}

// BuildModel derives the model an encoder configured with opts would use
// for data.
func BuildModel(data []byte, opts ...Option) (*Model, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return buildModel(data, cfg, nil)
}

func buildModel(data []byte, cfg Config, cache *modelCache) (*Model, error) {
	var entries []Entry
	switch cfg.Mode {
	case ModeStatic:
		ranked, err := model.StaticRanks(data, cfg.Ranking)
		if err != nil {
			return nil, err
		}
		entries = make([]Entry, len(ranked))
		for i, r := range ranked {
			entries[i] = Entry{Symbol: byte(r.Symbol), Rank: uint8(r.Rank)}
		}
	case ModeAdaptive:
		alphabet := model.Alphabet(data)
		if len(alphabet) == 0 {
			return nil, model.ErrEmptyInput
		}
		entries = make([]Entry, len(alphabet))
		for i, b := range alphabet {
			entries[i] = Entry{Symbol: b}
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, uint8(cfg.Mode))
	}
	return modelFromEntries(cfg.Mode, cfg.Strategy, entries, cache)
}

// modelFromEntries rebuilds the tree described by a header's entries, or
// returns the cached model for an identical header.
func modelFromEntries(mode Mode, strategy codetree.Strategy, entries []Entry, cache *modelCache) (*Model, error) {
	var key string
	if cache != nil {
		key = modelKey(mode, strategy, entries)
		if m, ok := cache.get(key); ok {
			return m, nil
		}
	}

	var ranked []codetree.Ranked
	switch mode {
	case ModeStatic:
		ranked = make([]codetree.Ranked, len(entries))
		for i, e := range entries {
			ranked[i] = codetree.Ranked{Symbol: int(e.Symbol), Rank: int(e.Rank)}
		}
	case ModeAdaptive:
		ranked = model.PositionRanks(len(entries))
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, uint8(mode))
	}

	builder := strategy.Builder()
	if builder == nil {
		return nil, fmt.Errorf("huffpack: unknown strategy %d", uint8(strategy))
	}
	tree, err := builder.Build(ranked)
	if err != nil {
		return nil, fmt.Errorf("build %s tree: %w", strategy, err)
	}

	m := &Model{
		mode:     mode,
		strategy: strategy,
		entries:  slices.Clone(entries),
		tree:     tree,
		table:    codetree.NewTable(tree),
	}
	if cache != nil {
		cache.add(key, m)
	}
	return m, nil
}

// modelKey identifies a model by everything its tree depends on.
func modelKey(mode Mode, strategy codetree.Strategy, entries []Entry) string {
	key := make([]byte, 0, 2+2*len(entries))
	key = append(key, byte(mode), byte(strategy))
	for _, e := range entries {
		key = append(key, e.Symbol, e.Rank)
	}
	return string(key)
}

// Mode returns the symbol model.
func (m *Model) Mode() Mode { return m.mode }

// Strategy returns the tree construction strategy.
func (m *Model) Strategy() codetree.Strategy { return m.strategy }

// Tree returns the code tree. Static trees are keyed by byte value,
// adaptive trees by recency position.
func (m *Model) Tree() *codetree.Tree { return m.tree }

// Table returns the code table of Tree.
func (m *Model) Table() *codetree.Table { return m.table }

// Entries returns a copy of the header entries.
func (m *Model) Entries() []Entry {
	return slices.Clone(m.entries)
}

// Alphabet returns the model's symbols in header order.
func (m *Model) Alphabet() []byte {
	out := make([]byte, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Symbol
	}
	return out
}

// Header returns the archive header of the model for the given padding.
func (m *Model) Header(padding uint8) *Header {
	return &Header{
		Padding: padding,
		Mode:    m.mode,
		Entries: slices.Clone(m.entries),
	}
}
