// Package huffpack compresses byte sequences with prefix codes built from a
// compact, self-describing header.
//
// An archive starts with a header holding the padding of the final payload
// byte and the alphabet of the input. The code tree is never stored: the
// decoder rebuilds it from the header with the same deterministic builder
// the encoder used, then walks the tree bit by bit to recover the input.
//
// Two symbol models are supported. ModeStatic ranks each byte once for the
// whole input. ModeAdaptive codes positions in a recency list that moves
// each coded byte to its end, so the code of a byte changes as the input is
// processed. Either model can be paired with either tree strategy from the
// codetree package.
package huffpack

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/seiflotfy/huffpack/bitstream"
	"github.com/seiflotfy/huffpack/codetree"
	"github.com/seiflotfy/huffpack/model"
)

var (
	// ErrMalformedHeader indicates an archive header that cannot describe a
	// valid alphabet.
	ErrMalformedHeader = errors.New("malformed archive header")
	// ErrCorruptPayload indicates a payload that does not decode to whole
	// codewords under the header's tree.
	ErrCorruptPayload = errors.New("corrupt archive payload")
	// ErrUnknownMode indicates a mode value outside the supported set.
	ErrUnknownMode = errors.New("unknown mode")
)

// Mode selects the symbol model.
type Mode uint8

const (
	// ModeStatic codes every byte with one fixed table.
	ModeStatic Mode = iota
	// ModeAdaptive codes recency positions that are updated after every byte.
	ModeAdaptive
)

func (m Mode) String() string {
	switch m {
	case ModeStatic:
		return "static"
	case ModeAdaptive:
		return "adaptive"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// Valid reports whether m is a supported mode.
func (m Mode) Valid() bool {
	return m <= ModeAdaptive
}

// ParseMode parses a mode name as printed by String.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "static", "":
		return ModeStatic, nil
	case "adaptive":
		return ModeAdaptive, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, name)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Config holds configuration for encoders and decoders.
type Config struct {
	Mode          Mode              // Symbol model (default static)
	Strategy      codetree.Strategy // Tree construction (default huffman)
	Ranking       model.Ranking     // Static rank order, encoder only (default alphabetical)
	TreeCacheSize int               // Models kept for reuse (0 = no cache)
	Logger        *slog.Logger      // Debug logging (nil = discard)

	observe func(step int, order []byte)
}

// Option is a functional option for configuring encoders and decoders.
type Option func(*Config)

// WithMode selects the symbol model.
func WithMode(m Mode) Option {
	return func(c *Config) {
		c.Mode = m
	}
}

// WithStrategy selects the tree construction strategy.
func WithStrategy(s codetree.Strategy) Option {
	return func(c *Config) {
		c.Strategy = s
	}
}

// WithRanking selects how a static encoder ranks the alphabet. Decoders
// read ranks from the header and ignore this option.
func WithRanking(r model.Ranking) Option {
	return func(c *Config) {
		c.Ranking = r
	}
}

// WithLogger routes debug logging to l.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithTreeCache keeps up to size rebuilt models, keyed by their header, for
// reuse across calls on the same Encoder or Decoder.
func WithTreeCache(size int) Option {
	return func(c *Config) {
		c.TreeCacheSize = size
	}
}

// WithRankObserver registers fn to be called in adaptive mode after every
// coded byte with the byte's index and a snapshot of the recency list.
func WithRankObserver(fn func(step int, order []byte)) Option {
	return func(c *Config) {
		c.observe = fn
	}
}

func newConfig(opts []Option) (Config, error) {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.Mode.Valid() {
		return cfg, fmt.Errorf("%w: %d", ErrUnknownMode, uint8(cfg.Mode))
	}
	if !cfg.Strategy.Valid() {
		return cfg, fmt.Errorf("huffpack: unknown strategy %d", uint8(cfg.Strategy))
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return cfg, nil
}

// Encoder compresses data into archives. An Encoder may be shared by
// multiple goroutines.
type Encoder struct {
	config Config
	cache  *modelCache
	err    error
}

// NewEncoder creates a new encoder with the given options. Invalid options
// are reported by Encode.
func NewEncoder(opts ...Option) *Encoder {
	cfg, err := newConfig(opts)
	return &Encoder{config: cfg, cache: newModelCache(cfg.TreeCacheSize), err: err}
}

// Encode compresses data. Empty input yields an empty archive.
func (e *Encoder) Encode(data []byte) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	if len(data) == 0 {
		return []byte{}, nil
	}

	m, err := buildModel(data, e.config, e.cache)
	if err != nil {
		return nil, err
	}

	w := bitstream.NewWriter(len(data) / 2)
	switch m.mode {
	case ModeStatic:
		err = e.encodeStatic(w, m, data)
	case ModeAdaptive:
		err = e.encodeAdaptive(w, m, data)
	}
	if err != nil {
		return nil, err
	}
	padding := w.Finish()

	h := m.Header(padding)
	out := make([]byte, 0, h.Size()+len(w.Bytes()))
	out, err = h.AppendBinary(out)
	if err != nil {
		return nil, err
	}
	out = append(out, w.Bytes()...)

	e.config.Logger.Debug("Encoded archive",
		"mode", m.mode, "strategy", m.strategy,
		"symbols", len(m.entries), "depth", m.tree.Depth(),
		"input", len(data), "output", len(out), "padding", padding)
	return out, nil
}

func (e *Encoder) encodeStatic(w *bitstream.Writer, m *Model, data []byte) error {
	for i, b := range data {
		code, ok := m.table.Code(int(b))
		if !ok {
			return fmt.Errorf("huffpack: byte %#02x at offset %d missing from model", b, i)
		}
		w.WriteCode(code)
	}
	return nil
}

func (e *Encoder) encodeAdaptive(w *bitstream.Writer, m *Model, data []byte) error {
	rec := model.NewRecency(m.Alphabet())
	for i, b := range data {
		pos, ok := rec.Position(b)
		if !ok {
			return fmt.Errorf("huffpack: byte %#02x at offset %d missing from model", b, i)
		}
		code, ok := m.table.Code(pos)
		if !ok {
			return fmt.Errorf("huffpack: position %d missing from model", pos)
		}
		w.WriteCode(code)
		rec.Touch(pos)
		if e.config.observe != nil {
			e.config.observe(i, rec.Order())
		}
	}
	return nil
}

// Decoder restores data from archives. A Decoder may be shared by multiple
// goroutines.
type Decoder struct {
	config Config
	cache  *modelCache
	err    error
}

// NewDecoder creates a new decoder with the given options. The mode and
// strategy must match the encoder that produced the archives.
func NewDecoder(opts ...Option) *Decoder {
	cfg, err := newConfig(opts)
	return &Decoder{config: cfg, cache: newModelCache(cfg.TreeCacheSize), err: err}
}

// Model parses the header of archive and returns the rebuilt model together
// with the header and the offset at which the payload starts.
func (d *Decoder) Model(archive []byte) (*Model, *Header, int, error) {
	if d.err != nil {
		return nil, nil, 0, d.err
	}
	h, off, err := ParseHeader(archive, d.config.Mode)
	if err != nil {
		return nil, nil, 0, err
	}
	m, err := modelFromEntries(d.config.Mode, d.config.Strategy, h.Entries, d.cache)
	if err != nil {
		return nil, nil, 0, err
	}
	return m, h, off, nil
}

// Decode restores the data held by archive. An empty archive yields empty
// output.
func (d *Decoder) Decode(archive []byte) ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}
	if len(archive) == 0 {
		return []byte{}, nil
	}
	m, h, off, err := d.Model(archive)
	if err != nil {
		return nil, err
	}

	payload := archive[off:]
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: no payload after %d header bytes", ErrCorruptPayload, off)
	}
	r, err := bitstream.NewReader(payload, h.Padding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
	}

	out := make([]byte, 0, len(payload)*2)
	switch m.mode {
	case ModeStatic:
		err = walk(m.tree, r, func(sym codetree.Symbol) {
			out = append(out, byte(sym))
		})
	case ModeAdaptive:
		rec := model.NewRecency(m.Alphabet())
		err = walk(m.tree, r, func(pos codetree.Symbol) {
			out = append(out, rec.At(pos))
			rec.Touch(pos)
			if d.config.observe != nil {
				d.config.observe(len(out)-1, rec.Order())
			}
		})
	}
	if err != nil {
		return nil, err
	}

	d.config.Logger.Debug("Decoded archive",
		"mode", m.mode, "strategy", m.strategy,
		"symbols", len(m.entries), "input", len(archive), "output", len(out))
	return out, nil
}

// walk steps through tree along the bits of r, calling emit for every leaf
// reached. A single-leaf tree consumes one 1 bit per symbol.
func walk(tree *codetree.Tree, r *bitstream.Reader, emit func(codetree.Symbol)) error {
	root := tree.Root()
	if root.Leaf() {
		for bit := 0; ; bit++ {
			b, err := r.ReadBit()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if b != bitstream.One {
				return fmt.Errorf("%w: zero bit %d under a single-symbol tree", ErrCorruptPayload, bit)
			}
			emit(root.Symbol())
		}
	}

	node := root
	for bit := 0; ; bit++ {
		b, err := r.ReadBit()
		if errors.Is(err, io.EOF) {
			if node != root {
				return fmt.Errorf("%w: stream ends inside a codeword at bit %d", ErrCorruptPayload, bit)
			}
			return nil
		}
		node = node.Next(b)
		if node.Leaf() {
			emit(node.Symbol())
			node = root
		}
	}
}

// Compress encodes data with a one-off Encoder.
func Compress(data []byte, opts ...Option) ([]byte, error) {
	return NewEncoder(opts...).Encode(data)
}

// Decompress decodes archive with a one-off Decoder.
func Decompress(archive []byte, opts ...Option) ([]byte, error) {
	return NewDecoder(opts...).Decode(archive)
}
