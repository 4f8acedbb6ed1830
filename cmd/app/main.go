package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"FinCast/internal/di"
	"FinCast/internal/domain/models"
	"FinCast/pkg/config"
	"FinCast/pkg/server"
	"FinCast/pkg/util"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configFile string
	envFiles   []string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "fincast",
		Short:         "Multi-step daily price forecasts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// missing .env files are fine; real environment wins
			_ = godotenv.Load(envFiles...)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config/config.yaml", "config file path (empty for defaults)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files loaded before the config")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(enqueueCmd())
	rootCmd.AddCommand(backendsCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func initApp() (*server.App, *config.Config, error) {
	path := configFile
	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, nil, fmt.Errorf("config load failed: %w", err)
	}
	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("app initialization failed: %w", err)
	}
	app.AddCloser("dependencies", func() error {
		cleanup()
		return nil
	})
	return app, cfg, nil
}

// runCmd forecasts a batch of symbols once and exits.
func runCmd() *cobra.Command {
	var (
		symbols string
		backend string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Forecast symbols once and write every configured sink",
		Long: `Loads each symbol's daily closes, fits the selected backend and writes a
forecast table per symbol. Symbols without enough history are skipped; the
command exits non-zero when any symbol failed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, err := initApp()
			if err != nil {
				return err
			}
			defer app.Close()

			list := util.SplitList(symbols)
			list = append(list, args...)
			report, err := app.RunBatch(cmd.Context(), list, backend)
			if err != nil {
				return err
			}
			printReport(report)

			if n := report.Count(models.StatusFailed); n > 0 {
				return fmt.Errorf("%d of %d symbols failed", n, len(report.Results))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&symbols, "symbols", "s", "", "comma separated symbols (default forecast.symbols)")
	cmd.Flags().StringVarP(&backend, "backend", "b", "", "forecasting backend (default forecast.backend)")
	return cmd
}

// serveCmd runs the HTTP API and, when enabled, the queue workers.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the forecast API and process queued runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, err := initApp()
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Serve(cmd.Context())
		},
	}
}

// enqueueCmd publishes forecast jobs for the workers started by serve.
func enqueueCmd() *cobra.Command {
	var (
		symbols string
		backend string
	)
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue forecast runs for the serve workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, err := initApp()
			if err != nil {
				return err
			}
			defer app.Close()

			list := append(util.SplitList(symbols), args...)
			ids, err := app.Enqueue(cmd.Context(), list, backend)
			for _, id := range ids {
				fmt.Println(id)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&symbols, "symbols", "s", "", "comma separated symbols (default forecast.symbols)")
	cmd.Flags().StringVarP(&backend, "backend", "b", "", "forecasting backend (default forecast.backend)")
	return cmd
}

func backendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the available forecasting backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cfg, err := initApp()
			if err != nil {
				return err
			}
			defer app.Close()
			for _, b := range app.Backends() {
				mark := ""
				if b == cfg.Forecast.Backend {
					mark = " (default)"
				}
				fmt.Println(b + mark)
			}
			return nil
		},
	}
}

func printReport(r *models.BatchReport) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tBACKEND\tSTATUS\tFALLBACKS\tDURATION\tERROR")
	for _, res := range r.Results {
		msg := ""
		if res.Err != nil {
			msg = strings.ReplaceAll(res.Err.Error(), "\n", "; ")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			res.Symbol, res.Backend, res.Status, res.Fallbacks, res.Duration.Round(time.Millisecond), msg)
	}
	_ = w.Flush()
}
