package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/seiflotfy/huffpack"
	"github.com/seiflotfy/huffpack/codetree"
	"github.com/seiflotfy/huffpack/model"
)

type codecConfig struct {
	Mode      huffpack.Mode     `toml:"mode"`
	Strategy  codetree.Strategy `toml:"strategy"`
	Ranking   model.Ranking     `toml:"ranking"`
	TreeCache int               `toml:"tree_cache"`
	Raw       bool              `toml:"raw"`
}

type logConfig struct {
	Verbosity int    `toml:"verbosity"`
	Format    string `toml:"format"`
}

type tomlConfig struct {
	Codec codecConfig `toml:"codec"`
	Log   logConfig   `toml:"log"`
}

var defaultConfig = tomlConfig{
	Codec: codecConfig{
		Mode:     huffpack.ModeStatic,
		Strategy: codetree.StrategyHuffman,
		Ranking:  model.RankAlphabetical,
	},
	Log: logConfig{
		Verbosity: 3,
		Format:    "auto",
	},
}

func loadConfig(file string, cfg *tomlConfig) error {
	md, err := toml.DecodeFile(file, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%s: field '%s' is not defined in the configuration", file, undecoded[0].String())
	}
	return nil
}

// makeConfig loads the configuration file, if any, and applies flags on
// top of it.
func makeConfig(ctx *cli.Context) (tomlConfig, error) {
	cfg := defaultConfig
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}

	if ctx.IsSet(modeFlag.Name) {
		if err := cfg.Codec.Mode.UnmarshalText([]byte(ctx.String(modeFlag.Name))); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(strategyFlag.Name) {
		if err := cfg.Codec.Strategy.UnmarshalText([]byte(ctx.String(strategyFlag.Name))); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(rankingFlag.Name) {
		if err := cfg.Codec.Ranking.UnmarshalText([]byte(ctx.String(rankingFlag.Name))); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(rawFlag.Name) {
		cfg.Codec.Raw = ctx.Bool(rawFlag.Name)
	}
	if ctx.IsSet(verbosityFlag.Name) {
		cfg.Log.Verbosity = ctx.Int(verbosityFlag.Name)
	}
	if ctx.IsSet(logFormatFlag.Name) {
		cfg.Log.Format = ctx.String(logFormatFlag.Name)
	}
	return cfg, nil
}

// options translates the codec section into library options.
func (cfg *tomlConfig) options(logger *slog.Logger) []huffpack.Option {
	return []huffpack.Option{
		huffpack.WithMode(cfg.Codec.Mode),
		huffpack.WithStrategy(cfg.Codec.Strategy),
		huffpack.WithRanking(cfg.Codec.Ranking),
		huffpack.WithTreeCache(cfg.Codec.TreeCache),
		huffpack.WithLogger(logger),
	}
}

// newLogger builds the logger described by cfg. The auto format picks text
// for terminals and JSON otherwise.
func newLogger(w io.Writer, cfg logConfig) (*slog.Logger, error) {
	var level slog.Level
	switch {
	case cfg.Verbosity <= 0:
		return slog.New(slog.DiscardHandler), nil
	case cfg.Verbosity == 1:
		level = slog.LevelError
	case cfg.Verbosity == 2:
		level = slog.LevelWarn
	case cfg.Verbosity == 3:
		level = slog.LevelInfo
	default:
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	format := cfg.Format
	if format == "auto" || format == "" {
		format = "json"
		if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			format = "text"
		}
	}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", cfg.Format)
}

// setup resolves the configuration and logger of a command invocation.
func setup(ctx *cli.Context) (tomlConfig, *slog.Logger, error) {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return cfg, nil, err
	}
	logger, err := newLogger(ctx.App.ErrWriter, cfg.Log)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	return toml.NewEncoder(ctx.App.Writer).Encode(&cfg)
}
