package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mailchannels/mailsanitizer/metrics"
	"github.com/mailchannels/mailsanitizer/sanitizerconfig"
)

var metricsAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose Prometheus metrics and a health probe",
	Long: `serve starts an HTTP listener exposing /metrics and /healthz, for
deployments that run mailsanitizer as a long-lived guard-boundary service
rather than a batch job over a directory.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9292", "Listen address for /metrics and /healthz")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := sanitizerconfig.Default()
	if configPath != "" {
		loaded, err := sanitizerconfig.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cfg.MetricsAddr != "" && !cmd.Flags().Changed("metrics-addr") {
		metricsAddr = cfg.MetricsAddr
	}

	m := metrics.New()
	srv := metrics.NewServer(metricsAddr, m)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	mainlog.Infof("serving metrics on %s", metricsAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		mainlog.Info("shutdown signal received")
		return srv.Shutdown(context.Background())
	}
}
