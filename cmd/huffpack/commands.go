package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/seiflotfy/huffpack"
)

func readInput(ctx *cli.Context) ([]byte, error) {
	name := ctx.Args().First()
	if name == "" || name == "-" {
		return io.ReadAll(ctx.App.Reader)
	}
	return os.ReadFile(name)
}

func writeOutput(ctx *cli.Context, data []byte) error {
	name := ctx.String(outputFlag.Name)
	if name == "" || name == "-" {
		_, err := ctx.App.Writer.Write(data)
		return err
	}
	return os.WriteFile(name, data, 0o644)
}

func compress(ctx *cli.Context) error {
	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}
	data, err := readInput(ctx)
	if err != nil {
		return err
	}

	var out []byte
	if cfg.Codec.Raw {
		out, err = huffpack.Compress(data, cfg.options(log)...)
		if err != nil {
			return err
		}
	} else {
		c, err := huffpack.Pack(data, cfg.options(log)...)
		if err != nil {
			return err
		}
		if out, err = c.MarshalBinary(); err != nil {
			return err
		}
		if c.Stored {
			log.Warn("Input does not compress, stored verbatim", "size", len(data))
		}
	}
	if err := writeOutput(ctx, out); err != nil {
		return err
	}
	log.Info("Compressed", "mode", cfg.Codec.Mode, "strategy", cfg.Codec.Strategy,
		"input", len(data), "output", len(out))
	return nil
}

func decompress(ctx *cli.Context) error {
	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}
	data, err := readInput(ctx)
	if err != nil {
		return err
	}

	var out []byte
	if cfg.Codec.Raw {
		out, err = huffpack.Decompress(data, cfg.options(log)...)
	} else {
		out, err = huffpack.Unpack(data, huffpack.WithLogger(log), huffpack.WithTreeCache(cfg.Codec.TreeCache))
	}
	if err != nil {
		return err
	}
	if err := writeOutput(ctx, out); err != nil {
		return err
	}
	log.Info("Decompressed", "input", len(data), "output", len(out))
	return nil
}

func symbolLabel(b byte) string {
	if b >= 0x21 && b < 0x7f {
		return string(rune(b))
	}
	return fmt.Sprintf("%#02x", b)
}

func inspect(ctx *cli.Context) error {
	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}
	data, err := readInput(ctx)
	if err != nil {
		return err
	}
	w := ctx.App.Writer

	archive := data
	mode, strategy := cfg.Codec.Mode, cfg.Codec.Strategy
	if !cfg.Codec.Raw {
		var c huffpack.Container
		if _, err := c.ReadFrom(bytes.NewReader(data)); err != nil {
			return err
		}
		fmt.Fprintf(w, "Container: mode=%s strategy=%s length=%d checksum=%016x stored=%t\n",
			c.Mode, c.Strategy, c.Length, c.Checksum, c.Stored)
		if c.Stored {
			return nil
		}
		archive, mode, strategy = c.Payload, c.Mode, c.Strategy
	}
	if len(archive) == 0 {
		fmt.Fprintln(w, "Archive: empty")
		return nil
	}

	dec := huffpack.NewDecoder(huffpack.WithMode(mode), huffpack.WithStrategy(strategy), huffpack.WithLogger(log))
	m, h, off, err := dec.Model(archive)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Archive: mode=%s strategy=%s symbols=%d padding=%d header=%d payload=%d depth=%d\n",
		mode, strategy, len(h.Entries), h.Padding, off, len(archive)-off, m.Tree().Depth())

	table := tablewriter.NewWriter(w)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	switch mode {
	case huffpack.ModeStatic:
		table.SetHeader([]string{"Symbol", "Rank", "Code", "Bits"})
		for _, e := range m.Entries() {
			code, _ := m.Table().Code(int(e.Symbol))
			table.Append([]string{symbolLabel(e.Symbol), strconv.Itoa(int(e.Rank)), code.String(), strconv.Itoa(len(code))})
		}
	case huffpack.ModeAdaptive:
		table.SetHeader([]string{"Position", "Initial symbol", "Code", "Bits"})
		for pos, sym := range m.Alphabet() {
			code, _ := m.Table().Code(pos)
			table.Append([]string{strconv.Itoa(pos), symbolLabel(sym), code.String(), strconv.Itoa(len(code))})
		}
	}
	table.Render()

	if ctx.Bool(treeFlag.Name) {
		fmt.Fprint(w, m.Tree().String())
	}
	return nil
}
