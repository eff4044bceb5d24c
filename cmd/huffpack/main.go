// huffpack compresses and restores files with prefix codes.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug",
		Value: 3,
	}
	logFormatFlag = &cli.StringFlag{
		Name:  "log.format",
		Usage: "Log format to use (auto|text|json)",
		Value: "auto",
	}

	modeFlag = &cli.StringFlag{
		Name:  "mode",
		Usage: "Symbol model (static|adaptive)",
	}
	strategyFlag = &cli.StringFlag{
		Name:  "strategy",
		Usage: "Code tree construction (huffman|fano)",
	}
	rankingFlag = &cli.StringFlag{
		Name:  "ranking",
		Usage: "Static symbol ranking (alphabetical|frequency)",
	}
	rawFlag = &cli.BoolFlag{
		Name:  "raw",
		Usage: "Read and write bare archives without the container envelope",
	}
	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output file (default: stdout)",
	}
	treeFlag = &cli.BoolFlag{
		Name:  "tree",
		Usage: "Print the rebuilt code tree",
	}
)

func commands() []*cli.Command {
	compressCommand := &cli.Command{
		Action:    compress,
		Name:      "compress",
		Usage:     "Compress a file",
		ArgsUsage: "[<input>]",
		Flags:     []cli.Flag{modeFlag, strategyFlag, rankingFlag, rawFlag, outputFlag},
	}
	decompressCommand := &cli.Command{
		Action:    decompress,
		Name:      "decompress",
		Usage:     "Restore a compressed file",
		ArgsUsage: "[<input>]",
		Flags:     []cli.Flag{modeFlag, strategyFlag, rawFlag, outputFlag},
	}
	inspectCommand := &cli.Command{
		Action:    inspect,
		Name:      "inspect",
		Usage:     "Print the header and code table of a compressed file",
		ArgsUsage: "[<input>]",
		Flags:     []cli.Flag{modeFlag, strategyFlag, rawFlag, treeFlag},
	}
	dumpConfigCommand := &cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   "",
		Flags:       []cli.Flag{modeFlag, strategyFlag, rankingFlag, rawFlag},
		Description: `The dumpconfig command shows configuration values.`,
	}
	return []*cli.Command{
		compressCommand,
		decompressCommand,
		inspectCommand,
		dumpConfigCommand,
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "huffpack",
		Usage:    "prefix-code compression tool",
		Flags:    []cli.Flag{configFileFlag, verbosityFlag, logFormatFlag},
		Commands: commands(),
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
