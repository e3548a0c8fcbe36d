package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andreyvit/lfsdbg"
)

var Version = "development"

// exitCorrupted is returned when the image has any problems.
const exitCorrupted = 2

func main() {
	app := &cli.App{
		Name:      "lfsdbg",
		Usage:     "Inspect the metadata of a littlefs image without mounting it",
		Version:   Version,
		ArgsUsage: "IMAGE [MROOT...]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "block-size", Aliases: []string{"b"}, Usage: "Block size in bytes, defaults to the whole image", EnvVars: []string{"LFSDBG_BLOCK_SIZE"}},
			&cli.Int64Flag{Name: "mleaf-weight", Aliases: []string{"m"}, Usage: "Weight of one mdir in the mtree, derived from the block size by default"},
			&cli.BoolFlag{Name: "config", Aliases: []string{"c"}, Usage: "Show the filesystem config"},
			&cli.BoolFlag{Name: "gstate", Aliases: []string{"g"}, Usage: "Show the global state"},
			&cli.BoolFlag{Name: "gdelta", Usage: "Show every gstate delta, implies --gstate"},
			&cli.BoolFlag{Name: "mdirs", Usage: "List mroots and mdirs"},
			&cli.BoolFlag{Name: "tree", Aliases: []string{"t"}, Usage: "List the directory tree"},
			&cli.BoolFlag{Name: "problems", Aliases: []string{"p"}, Usage: "List every corruption found"},
			&cli.BoolFlag{Name: "json", Usage: "Print the report as JSON instead of text"},
			&cli.StringFlag{Name: "report-db", TakesFile: true, Usage: "Archive the report in this database and show mdirs changed since the last run", EnvVars: []string{"LFSDBG_REPORT_DB"}},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Log every block fetch"},
		},
		Before: func(c *cli.Context) error {
			if c.NArg() < 1 {
				cli.ShowAppHelpAndExit(c, 1)
			}
			return nil
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		var ec cli.ExitCoder
		if errors.As(err, &ec) {
			os.Exit(ec.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "lfsdbg: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var mroot lfsdbg.Addr
	for _, arg := range c.Args().Tail() {
		addr, err := lfsdbg.ParseAddr(arg)
		if err != nil {
			return err
		}
		if addr.Trunk != 0 {
			if mroot.Trunk != 0 && mroot.Trunk != addr.Trunk {
				return fmt.Errorf("conflicting mroot trunks in %q", arg)
			}
			mroot.Trunk = addr.Trunk
		}
		mroot.Blocks = append(mroot.Blocks, addr.Blocks...)
	}

	path, err := filepath.Abs(c.Args().First())
	if err != nil {
		return err
	}
	img, err := lfsdbg.Open(path, lfsdbg.Options{
		BlockSize:   c.Int("block-size"),
		MleafWeight: c.Int64("mleaf-weight"),
		Logger:      logger,
		Verbose:     c.Bool("verbose"),
	})
	if err != nil {
		return err
	}
	defer img.Close()

	insp := lfsdbg.Inspect(img, mroot)
	report := lfsdbg.NewReport(img, insp)

	if c.Bool("json") {
		if _, err := fmt.Fprintf(os.Stdout, "%s\n", lfsdbg.JSON.Encode(report)); err != nil {
			return err
		}
	} else {
		if _, err := fmt.Print(insp.Dump(img, dumpFlags(c))); err != nil {
			return err
		}
	}

	if path := c.String("report-db"); path != "" {
		if err := archive(path, report); err != nil {
			return err
		}
	}

	logger.Debug("lfsdbg: done", "fetches", img.FetchCount.Load(), "invalid", img.InvalidCount.Load())
	if insp.Corrupted {
		return cli.Exit("", exitCorrupted)
	}
	return nil
}

func dumpFlags(c *cli.Context) lfsdbg.DumpFlags {
	f := lfsdbg.DumpHeader
	if c.Bool("config") {
		f |= lfsdbg.DumpConfig
	}
	if c.Bool("gstate") || c.Bool("gdelta") {
		f |= lfsdbg.DumpGState
	}
	if c.Bool("gdelta") {
		f |= lfsdbg.DumpGDeltas
	}
	if c.Bool("mdirs") {
		f |= lfsdbg.DumpMdirs
	}
	if c.Bool("tree") {
		f |= lfsdbg.DumpTree
	}
	if c.Bool("problems") {
		f |= lfsdbg.DumpProblems
	}
	return f
}

func archive(path string, report *lfsdbg.Report) error {
	db, err := lfsdbg.OpenReportDB(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if same, err := db.Latest(report.Fingerprint); err == nil {
		fmt.Printf("identical image already inspected in report %v (%s)\n", same.ID, same.Time.Format(time.RFC3339))
	} else if !errors.Is(err, lfsdbg.ErrReportNotFound) {
		return err
	}

	prev, err := db.LatestOf(report.Image)
	switch {
	case errors.Is(err, lfsdbg.ErrReportNotFound):
		prev = nil
	case err != nil:
		return err
	}
	if err := db.Save(report); err != nil {
		return err
	}

	if prev == nil {
		fmt.Printf("report %v saved\n", report.ID)
		return nil
	}
	changes := report.Diff(prev)
	fmt.Printf("report %v saved, %d mdirs changed since %v\n", report.ID, len(changes), prev.ID)
	for _, ch := range changes {
		fmt.Println(ch)
	}
	return nil
}
