package huffpack

import (
	"bytes"
	"testing"
)

// Fuzz round trips for every mode and strategy.
func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte("hello"))
	f.Add([]byte(""))
	f.Add([]byte("a"))
	f.Add([]byte{7, 7, 7, 7})
	f.Add([]byte("hello世界"))
	f.Add([]byte("null\x00byte"))
	f.Add(allBytes())

	f.Fuzz(func(t *testing.T, data []byte) {
		for _, cfg := range allConfigs {
			archive, err := Compress(data, cfg.options()...)
			if err != nil {
				t.Fatalf("%s: compress: %v", cfg, err)
			}
			out, err := Decompress(archive, cfg.options()...)
			if err != nil {
				t.Fatalf("%s: decompress: %v", cfg, err)
			}
			if !bytes.Equal(out, data) {
				t.Fatalf("%s: round trip mismatch: got %q, want %q", cfg, out, data)
			}
		}
	})
}

// Fuzz arbitrary archives and containers; decoding must fail cleanly.
func FuzzDecode(f *testing.F) {
	for _, seed := range [][]byte{[]byte("abracadabra"), {1, 2, 3}, allBytes()} {
		for _, cfg := range allConfigs {
			archive, err := Compress(seed, cfg.options()...)
			if err != nil {
				f.Fatal(err)
			}
			f.Add(archive)
		}
		c, err := Pack(seed)
		if err != nil {
			f.Fatal(err)
		}
		b, err := c.MarshalBinary()
		if err != nil {
			f.Fatal(err)
		}
		f.Add(b)
	}
	f.Add([]byte{0, 0, 'a', 0})

	f.Fuzz(func(t *testing.T, archive []byte) {
		for _, cfg := range allConfigs {
			_, _ = Decompress(archive, cfg.options()...)
		}
		_, _ = Unpack(archive)
	})
}
