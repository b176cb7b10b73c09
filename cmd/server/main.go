package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matthewbaird/dashboard/internal/config"
	"github.com/matthewbaird/dashboard/internal/literal"
	"github.com/matthewbaird/dashboard/internal/logging"
	"github.com/matthewbaird/dashboard/internal/render"
	"github.com/matthewbaird/dashboard/internal/server"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// render flags
	lineFlag      string
	overrideFlags []string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Dashboard data server",
	Long: `dashboard renders stored filters as list, pivot or graph payloads.

Run without arguments to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		zap.ReplaceGlobals(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var renderCmd = &cobra.Command{
	Use:   "render <filter>",
	Short: "Render one stored filter and print the payload",
	Long: `Renders a stored filter, addressed by id or by its seed key, and prints
the JSON payload.

Example:
  dashboard render revenue_matrix --override pivot_sort_by=total --override row_limit=5`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "dashboard.yaml", "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	renderCmd.Flags().StringVar(&lineFlag, "line", "", "display line id")
	renderCmd.Flags().StringArrayVar(&overrideFlags, "override", nil, "option override as key=value (repeatable)")

	rootCmd.AddCommand(serveCmd, renderCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return server.Run(ctx, server.Config{
		Port:    cfg.Server.Port,
		Repo:    a.repo,
		Catalog: a.catalog,
		Render:  a.render,
		Logger:  logger,
	})
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	req := render.Request{}
	if req.FilterID, err = a.filterID(args[0]); err != nil {
		return err
	}
	if lineFlag != "" {
		id, err := uuid.Parse(lineFlag)
		if err != nil {
			return fmt.Errorf("invalid --line: %w", err)
		}
		req.LineID = &id
	}
	if req.Overrides, err = parseOverrides(overrideFlags); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(a.render.Render(ctx, req))
}

// parseOverrides turns key=value flags into an override map. Values are
// read as literals when they parse, so row_limit=5 is a number and
// show_legend=False a boolean; anything else stays a string.
func parseOverrides(flags []string) (map[string]any, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(flags))
	for _, f := range flags {
		k, v, ok := strings.Cut(f, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --override %q, want key=value", f)
		}
		if parsed, err := literal.Parse(v); err == nil {
			out[k] = parsed
		} else {
			out[k] = v
		}
	}
	return out, nil
}
