package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/treeq/internal/config"
	"github.com/standardbeagle/treeq/internal/debug"
	"github.com/standardbeagle/treeq/internal/version"
)

var cleanupFuncs []func()

func runCleanup() {
	for i := len(cleanupFuncs) - 1; i >= 0; i-- {
		cleanupFuncs[i]()
	}
	cleanupFuncs = nil
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "glob",
			Aliases: []string{"g"},
			Usage:   "Keep items whose name matches the glob (e.g. '*page*')",
		},
		&cli.StringFlag{
			Name:  "folder-glob",
			Usage: "Keep folders whose name matches the glob",
		},
		&cli.StringSliceFlag{
			Name:    "tag",
			Aliases: []string{"t"},
			Usage:   "Keep items carrying any of these tags (repeatable)",
		},
		&cli.StringFlag{
			Name:  "in",
			Usage: "Keep items directly inside this folder id",
		},
	}
}

func sortFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "Column to sort by (id, name, tags, order, attrs.<key>)",
		},
		&cli.StringFlag{
			Name:  "direction",
			Usage: "Sort direction: asc or desc (default from config)",
		},
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "json",
		Aliases: []string{"j"},
		Usage:   "Output as JSON",
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:                   "treeq",
		Usage:                  "Filter, sort, search and select over folder/item datasets",
		Version:                version.Info(),
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Directory holding " + config.FileName,
				Value:   ".",
			},
			&cli.StringFlag{
				Name:    "folders",
				Aliases: []string{"f"},
				Usage:   "Folder records file (JSON, YAML or TOML); overrides sources.folders",
			},
			&cli.StringFlag{
				Name:    "items",
				Aliases: []string{"i"},
				Usage:   "Item records file (JSON, YAML or TOML); overrides sources.items",
			},
			&cli.StringFlag{
				Name:  "key",
				Usage: "Table key holding the records inside each file",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Write debug logs to a temp file",
			},
		},
		Before: func(c *cli.Context) error {
			if !c.Bool("debug") {
				return nil
			}
			path, err := debug.InitDebugLogFile()
			if err != nil {
				return err
			}
			debug.EnableDebug = "true"
			fmt.Fprintf(c.App.ErrWriter, "Debug log: %s\n", path)
			cleanupFuncs = append(cleanupFuncs, func() { _ = debug.CloseDebugLog() })
			return nil
		},
		After: func(c *cli.Context) error {
			runCleanup()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:    "tree",
				Aliases: []string{"t"},
				Usage:   "Print the folder tree with subtree counts",
				Flags: append(append([]cli.Flag{
					&cli.IntFlag{
						Name:    "depth",
						Aliases: []string{"d"},
						Usage:   "Folder levels to expand (0 = all)",
					},
					&cli.BoolFlag{
						Name:  "show-items",
						Usage: "List the items of each folder",
					},
					&cli.BoolFlag{
						Name:  "compact",
						Usage: "One indented line per folder",
					},
					jsonFlag(),
				}, filterFlags()...), sortFlags()...),
				Action: treeCommand,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "Print one page of the flat item list",
				Flags: append(append([]cli.Flag{
					&cli.IntFlag{
						Name:    "page",
						Aliases: []string{"p"},
						Usage:   "Zero-based page index",
					},
					&cli.IntFlag{
						Name:  "page-size",
						Usage: "Rows per page (default from config)",
					},
					jsonFlag(),
				}, filterFlags()...), sortFlags()...),
				Action: listCommand,
			},
			{
				Name:      "search",
				Aliases:   []string{"s"},
				Usage:     "Ranked search over folders and items",
				ArgsUsage: "<query>",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum rows to print (0 = all)",
					},
					jsonFlag(),
				}, filterFlags()...),
				Action: searchCommand,
			},
			{
				Name:  "state",
				Usage: "Select items or folders and print the resulting folder states",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "select",
						Usage: "Item ids to select (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "folder",
						Usage: "Folder ids to toggle (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "shallow",
						Usage: "Folder toggles cover direct items only",
					},
					jsonFlag(),
				},
				Action: stateCommand,
			},
			{
				Name:  "serve",
				Usage: "Serve the dataset as MCP tools over stdio",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Reload record files when they change (overrides sources.watch)",
					},
				},
				Action: serveCommand,
			},
		},
	}
}

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		runCleanup()
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}
