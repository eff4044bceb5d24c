package huffpack

import (
	"bytes"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiflotfy/huffpack/bitstream"
	"github.com/seiflotfy/huffpack/codetree"
	"github.com/seiflotfy/huffpack/model"
)

type codecConfig struct {
	mode     Mode
	strategy codetree.Strategy
}

func (c codecConfig) String() string {
	return c.mode.String() + "/" + c.strategy.String()
}

func (c codecConfig) options() []Option {
	return []Option{WithMode(c.mode), WithStrategy(c.strategy)}
}

var allConfigs = []codecConfig{
	{ModeStatic, codetree.StrategyHuffman},
	{ModeStatic, codetree.StrategyFano},
	{ModeAdaptive, codetree.StrategyHuffman},
	{ModeAdaptive, codetree.StrategyFano},
}

func allBytes() []byte {
	b := make([]byte, 256)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func randomBytes(seed int64, n, alphabet int) []byte {
	rng := rand.New(rand.NewSource(seed))
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rng.Intn(alphabet))
	}
	return b
}

var roundTripInputs = []struct {
	name string
	data []byte
}{
	{"single byte", []byte{0x42}},
	{"single symbol", []byte{7, 7, 7, 7}},
	{"two symbols", []byte("abababbbba")},
	{"text", []byte("the quick brown fox jumps over the lazy dog")},
	{"abracadabra", []byte("abracadabra")},
	{"full alphabet", allBytes()},
	{"full alphabet twice", append(allBytes(), allBytes()...)},
	{"zero bytes", make([]byte, 1000)},
	{"random small alphabet", randomBytes(1, 4096, 5)},
	{"random full alphabet", randomBytes(2, 4096, 256)},
	{"log lines", []byte(strings.Repeat("2024-01-01T00:00:00Z INFO request served path=/api/v1 status=200\n", 50))},
}

func TestRoundTrip(t *testing.T) {
	for _, cfg := range allConfigs {
		for _, in := range roundTripInputs {
			t.Run(cfg.String()+"/"+in.name, func(t *testing.T) {
				archive, err := Compress(in.data, cfg.options()...)
				require.NoError(t, err)
				out, err := Decompress(archive, cfg.options()...)
				require.NoError(t, err)
				require.Equal(t, in.data, out)
			})
		}
	}
}

func TestRoundTripFrequencyRanking(t *testing.T) {
	for _, cfg := range allConfigs {
		for _, in := range roundTripInputs {
			t.Run(cfg.String()+"/"+in.name, func(t *testing.T) {
				archive, err := Compress(in.data, append(cfg.options(), WithRanking(model.RankFrequency))...)
				require.NoError(t, err)
				out, err := Decompress(archive, cfg.options()...)
				require.NoError(t, err)
				require.Equal(t, in.data, out)
			})
		}
	}
}

func TestEmptyInput(t *testing.T) {
	for _, cfg := range allConfigs {
		t.Run(cfg.String(), func(t *testing.T) {
			archive, err := Compress(nil, cfg.options()...)
			require.NoError(t, err)
			require.Empty(t, archive)
			require.NotNil(t, archive)

			out, err := Decompress(nil, cfg.options()...)
			require.NoError(t, err)
			require.Empty(t, out)
		})
	}
}

func TestGoldenStatic(t *testing.T) {
	// ranks a=0 b=1 c=2; Huffman codes a=00 b=01 c=1.
	archive, err := Compress([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 2, 'a', 0, 'b', 1, 'c', 2, 0x18}, archive)
}

func TestGoldenAdaptive(t *testing.T) {
	// positions 0 and 1 get codes 0 and 1; the list evolves ab, ba, ba, ab.
	var steps []string
	archive, err := Compress([]byte("aab"),
		WithMode(ModeAdaptive),
		WithRankObserver(func(step int, order []byte) {
			steps = append(steps, fmt.Sprintf("%d:%s", step, order))
		}))
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 1, 'a', 'b', 0x02}, archive)
	assert.Equal(t, []string{"0:ba", "1:ba", "2:ab"}, steps)
}

func TestSingleSymbolUsesOneBitCodes(t *testing.T) {
	archive, err := Compress([]byte{7, 7, 7, 7})
	require.NoError(t, err)
	// padding 4, one symbol, (7, rank 0), four 1 bits.
	assert.Equal(t, []byte{4, 0, 7, 0, 0x0f}, archive)

	out, err := Decompress(archive)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 7, 7, 7}, out)
}

func TestFullAlphabetHeader(t *testing.T) {
	for _, cfg := range allConfigs {
		t.Run(cfg.String(), func(t *testing.T) {
			archive, err := Compress(allBytes(), cfg.options()...)
			require.NoError(t, err)
			h, off, err := ParseHeader(archive, cfg.mode)
			require.NoError(t, err)
			require.Len(t, h.Entries, 256)
			require.Equal(t, byte(255), archive[1])
			require.Equal(t, h.Size(), off)
		})
	}
}

func TestPaddingMatchesBitCount(t *testing.T) {
	for _, cfg := range allConfigs {
		for _, in := range roundTripInputs {
			t.Run(cfg.String()+"/"+in.name, func(t *testing.T) {
				m, err := BuildModel(in.data, cfg.options()...)
				require.NoError(t, err)

				bits := 0
				rec := model.NewRecency(m.Alphabet())
				for _, b := range in.data {
					sym := int(b)
					if cfg.mode == ModeAdaptive {
						pos, ok := rec.Position(b)
						require.True(t, ok)
						rec.Touch(pos)
						sym = pos
					}
					code, ok := m.Table().Code(sym)
					require.True(t, ok)
					bits += len(code)
				}

				archive, err := Compress(in.data, cfg.options()...)
				require.NoError(t, err)
				h, off, err := ParseHeader(archive, cfg.mode)
				require.NoError(t, err)
				assert.Equal(t, bitstream.Padding(bits), h.Padding)
				assert.Equal(t, (bits+7)/8, len(archive)-off)
				if bits%8 == 0 {
					assert.Zero(t, h.Padding)
				}
			})
		}
	}
}

func TestPrefixFreeTables(t *testing.T) {
	for _, cfg := range allConfigs {
		for _, in := range roundTripInputs {
			m, err := BuildModel(in.data, cfg.options()...)
			require.NoError(t, err)
			require.NoError(t, m.Table().Validate(), "%s/%s", cfg, in.name)
		}
	}
}

func TestAdaptiveDeterminism(t *testing.T) {
	data := randomBytes(9, 2000, 40)
	for _, strategy := range []codetree.Strategy{codetree.StrategyHuffman, codetree.StrategyFano} {
		t.Run(strategy.String(), func(t *testing.T) {
			var encSteps, decSteps [][]byte
			archive, err := Compress(data, WithMode(ModeAdaptive), WithStrategy(strategy),
				WithRankObserver(func(step int, order []byte) {
					require.Equal(t, len(encSteps), step)
					encSteps = append(encSteps, order)
				}))
			require.NoError(t, err)

			out, err := Decompress(archive, WithMode(ModeAdaptive), WithStrategy(strategy),
				WithRankObserver(func(step int, order []byte) {
					require.Equal(t, len(decSteps), step)
					decSteps = append(decSteps, order)
				}))
			require.NoError(t, err)
			require.Equal(t, data, out)
			require.Len(t, encSteps, len(data))
			require.Equal(t, encSteps, decSteps)
		})
	}
}

func TestCompressionSanity(t *testing.T) {
	data := bytes.Repeat([]byte{0x41}, 10000)
	for _, cfg := range allConfigs {
		archive, err := Compress(data, cfg.options()...)
		require.NoError(t, err)
		assert.Less(t, len(archive), len(data), cfg.String())
	}
}

func TestFrequencyRankingShrinksSkewedInput(t *testing.T) {
	// 'a' dominates but ranks lowest alphabetically.
	data := bytes.Repeat([]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaastuvwxyz"), 100)
	for _, strategy := range []codetree.Strategy{codetree.StrategyHuffman, codetree.StrategyFano} {
		alpha, err := Compress(data, WithStrategy(strategy), WithRanking(model.RankAlphabetical))
		require.NoError(t, err)
		freq, err := Compress(data, WithStrategy(strategy), WithRanking(model.RankFrequency))
		require.NoError(t, err)
		assert.Less(t, len(freq), len(alpha), strategy.String())
	}
}

func TestTreeCache(t *testing.T) {
	data := []byte("mississippi river")
	for _, cfg := range allConfigs {
		t.Run(cfg.String(), func(t *testing.T) {
			enc := NewEncoder(append(cfg.options(), WithTreeCache(4))...)
			first, err := enc.Encode(data)
			require.NoError(t, err)
			second, err := enc.Encode(data)
			require.NoError(t, err)
			require.Equal(t, first, second)
			require.Equal(t, 1, enc.cache.len())

			uncached, err := Compress(data, cfg.options()...)
			require.NoError(t, err)
			require.Equal(t, uncached, first)

			dec := NewDecoder(append(cfg.options(), WithTreeCache(4))...)
			for i := 0; i < 3; i++ {
				out, err := dec.Decode(first)
				require.NoError(t, err)
				require.Equal(t, data, out)
			}
			require.Equal(t, 1, dec.cache.len())
		})
	}
}

func TestSharedDecoderConcurrent(t *testing.T) {
	dec := NewDecoder(WithMode(ModeAdaptive), WithTreeCache(8))
	inputs := make([][]byte, 16)
	archives := make([][]byte, len(inputs))
	for i := range inputs {
		inputs[i] = randomBytes(int64(i), 512, 3+i%4)
		var err error
		archives[i], err = Compress(inputs[i], WithMode(ModeAdaptive))
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(inputs))
	outs := make([][]byte, len(inputs))
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i], errs[i] = dec.Decode(archives[i])
		}(i)
	}
	wg.Wait()
	for i := range inputs {
		require.NoError(t, errs[i])
		require.Equal(t, inputs[i], outs[i])
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		mode    Mode
		archive []byte
		want    error
	}{
		{"one byte", ModeStatic, []byte{0}, ErrMalformedHeader},
		{"truncated static table", ModeStatic, []byte{0, 3, 'a', 0}, ErrMalformedHeader},
		{"truncated adaptive table", ModeAdaptive, []byte{0, 2, 'a'}, ErrMalformedHeader},
		{"padding too large", ModeStatic, []byte{8, 0, 'a', 0, 0xff}, ErrMalformedHeader},
		{"duplicate symbol", ModeStatic, []byte{0, 1, 'a', 0, 'a', 1, 0xff}, ErrMalformedHeader},
		{"duplicate rank", ModeStatic, []byte{0, 1, 'a', 0, 'b', 0, 0xff}, ErrMalformedHeader},
		{"rank out of range", ModeStatic, []byte{0, 0, 'a', 1, 0xff}, ErrMalformedHeader},
		{"adaptive unsorted", ModeAdaptive, []byte{0, 1, 'b', 'a', 0x00}, ErrMalformedHeader},
		{"adaptive duplicate", ModeAdaptive, []byte{0, 1, 'a', 'a', 0x00}, ErrMalformedHeader},
		{"missing payload", ModeStatic, []byte{0, 0, 'a', 0}, ErrCorruptPayload},
		{"zero bit under single leaf", ModeStatic, []byte{0, 0, 'a', 0, 0x00}, ErrCorruptPayload},
		{"ends inside codeword", ModeStatic, []byte{7, 2, 'a', 0, 'b', 1, 'c', 2, 0x00}, ErrCorruptPayload},
		{"stuffing bits set", ModeStatic, []byte{7, 2, 'a', 0, 'b', 1, 'c', 2, 0x81}, ErrCorruptPayload},
		{"padding on full stream", ModeStatic, []byte{3, 0, 'a', 0, 0xff}, ErrCorruptPayload},
		{"unknown mode", Mode(5), []byte{0, 0, 'a', 0, 0x01}, ErrUnknownMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decompress(tt.archive, WithMode(tt.mode))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeWrongStrategyDoesNotPanic(t *testing.T) {
	data := []byte("a reasonably long sentence with many distinct letters")
	archive, err := Compress(data, WithStrategy(codetree.StrategyFano))
	require.NoError(t, err)
	out, err := Decompress(archive, WithStrategy(codetree.StrategyHuffman))
	if err == nil {
		require.NotEqual(t, data, out)
	}
}

func TestInvalidOptions(t *testing.T) {
	_, err := Compress([]byte("x"), WithMode(Mode(9)))
	require.ErrorIs(t, err, ErrUnknownMode)

	_, err = Compress([]byte("x"), WithStrategy(codetree.Strategy(9)))
	require.Error(t, err)

	_, err = BuildModel([]byte("x"), WithRanking(model.Ranking(9)))
	require.Error(t, err)
}

func TestHeaderMarshalRoundTrip(t *testing.T) {
	m, err := BuildModel([]byte("hello, world"), WithRanking(model.RankFrequency))
	require.NoError(t, err)
	h := m.Header(3)
	b, err := h.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, h.Size())

	got, off, err := ParseHeader(append(b, 0x00), ModeStatic)
	require.NoError(t, err)
	assert.Equal(t, len(b), off)
	assert.Equal(t, h, got)

	bad := &Header{Mode: ModeStatic}
	_, err = bad.MarshalBinary()
	require.ErrorIs(t, err, ErrMalformedHeader)
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeStatic, ModeAdaptive} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("dynamic")
	require.ErrorIs(t, err, ErrUnknownMode)
}
