// Package cli wires the jobgate binary's command surface: "serve" stands up
// the dispatch API, and the hidden "workerproc" command lets the binary
// re-exec itself as an isolated PDF2IMAGE worker process (§4.4).
package cli

import (
	"fmt"
	"os"

	"github.com/chuliyu/jobgate/internal/config"
	"github.com/chuliyu/jobgate/internal/controller"
	"github.com/chuliyu/jobgate/internal/dispatch"
	"github.com/chuliyu/jobgate/internal/gateway"
	"github.com/chuliyu/jobgate/internal/isolated"
	"github.com/chuliyu/jobgate/internal/metrics"
	"github.com/chuliyu/jobgate/internal/pdfconvert"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configFile string

// BuildCLI assembles the root jobgate command and its subcommands.
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jobgate",
		Short: "jobgate: bounded-queue job dispatch over HTTP",
		Long: `jobgate accepts work items over HTTP, dispatches them to
in-process worker pools (or isolated worker processes for CPU-bound
conversion jobs), and returns each caller's result synchronously once the
worker completes.`,
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")

	rootCmd.AddCommand(buildServeCommand())
	rootCmd.AddCommand(buildWorkerProcCommand())

	return rootCmd
}

func buildServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dispatch HTTP server",
		Long:  "Load config, start the message and PDF worker pools, and serve the dispatch API until SIGINT/SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configFile)
		},
	}
	return cmd
}

func runServe(path string) error {
	cfg, err := loadConfigOrDefault(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	binaryPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	collector := metrics.NewCollector()
	converter := pdfconvert.NewBasic()
	ctrl := controller.New(*cfg, log.Sugar(), collector, converter, binaryPath)

	deadlines := dispatch.Deadlines{
		Message:   cfg.DeadlineFor(cfg.Deadlines.MessageSeconds),
		PDF2Image: cfg.DeadlineFor(cfg.Deadlines.PDF2ImageSeconds),
	}
	handler := dispatch.New(ctrl, collector, log.Sugar(), deadlines, cfg.Output.UploadsDir)

	app := gateway.New(*cfg, log.Sugar(), ctrl, handler)
	return app.Run()
}

func buildWorkerProcCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:    "workerproc",
		Short:  "Run as an isolated PDF2IMAGE worker process (internal use)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return isolated.RunWorkerProcess(name, pdfconvert.NewBasic())
		},
	}
	cmd.Flags().StringVar(&name, "name", "pdfProcess", "worker process identity for logging and Result.WorkerName")
	return cmd
}

func loadConfigOrDefault(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		cfg := config.Default()
		return &cfg, nil
	}
	return config.Load(path)
}

func newLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}
