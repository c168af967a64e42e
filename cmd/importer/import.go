package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenthands/lineage/internal/config"
	"github.com/agenthands/lineage/internal/core"
	"github.com/agenthands/lineage/internal/core/model"
	"github.com/agenthands/lineage/internal/driver"
	"github.com/agenthands/lineage/internal/logger"
	"github.com/agenthands/lineage/internal/logger/console"
)

type importOptions struct {
	jsonPath    string
	dbPath      string
	configPath  string
	backend     string
	withClosure bool
	reset       bool
	debug       bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &importOptions{}
	cmd := &cobra.Command{
		Use:   "lineage-import --json <path>",
		Short: "Import a family-tree JSON export into the lineage store",
		Long: `Reads a family-tree export (a list of people, or an object holding it
under "data" or "tree"), writes persons and parent-child relationships and
optionally rebuilds the ancestor/descendant closure index.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runImport(cmd, cfg, opts, out)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.jsonPath, "json", "", "path to the family-tree JSON document")
	f.StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides config)")
	f.StringVar(&opts.configPath, "config", "", "optional TOML config file")
	f.StringVar(&opts.backend, "backend", "", "store backend: sqlite or memgraph (overrides config)")
	f.BoolVar(&opts.withClosure, "with-closure", false, "rebuild the closure index after import")
	f.BoolVar(&opts.reset, "reset", false, "clear existing persons, relationships and closure first")
	f.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	_ = cmd.MarkFlagRequired("json")

	return cmd
}

// resolveConfig layers defaults, the config file, the environment and flags.
func resolveConfig(cmd *cobra.Command, opts *importOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	if cmd.Flags().Changed("db") {
		cfg.Store.Path = opts.dbPath
	}
	if cmd.Flags().Changed("backend") {
		cfg.Store.Backend = opts.backend
	}
	if opts.debug {
		cfg.Log.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runImport(cmd *cobra.Command, cfg *config.Config, opts *importOptions, out io.Writer) error {
	if cfg.Log.Debug {
		logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{Debug: true, Prefix: "import"}))
	}

	raw, err := os.ReadFile(opts.jsonPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.jsonPath, err)
	}

	ctx := cmd.Context()
	d, err := driver.Open(ctx, *cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	l := core.NewLineage(d)
	defer l.Close(ctx)

	if err := l.BuildIndices(ctx); err != nil {
		return fmt.Errorf("build indices: %w", err)
	}

	report, err := l.Ingest(ctx, raw, core.IngestOptions{Reset: opts.reset, WithClosure: opts.withClosure})
	if err != nil {
		return err
	}

	printReport(out, report, target(cfg))
	return nil
}

func target(cfg *config.Config) string {
	if cfg.Store.Backend == config.BackendMemgraph {
		return cfg.Memgraph.URI
	}
	return cfg.Store.Path
}

func printReport(out io.Writer, report *model.ImportReport, target string) {
	fmt.Fprintf(out, "Imported %d persons into %s\n", report.PersonsImported, target)
	fmt.Fprintf(out, "Stored %d parent-child relationships\n", report.EdgesStored)
	if report.ClosureBuilt {
		fmt.Fprintf(out, "Closure rows computed: %d\n", report.ClosureRows)
	}
	if len(report.NodeErrors) > 0 {
		fmt.Fprintf(out, "Warning: %d entries skipped because they had no id\n", len(report.NodeErrors))
	}
	if len(report.RejectedEdges) > 0 {
		preview, _ := report.MissingPreview()
		fmt.Fprintf(out, "Warning: %d relationships skipped because ids were missing (%s...)\n",
			len(report.RejectedEdges), strings.Join(preview, ", "))
	}
}
