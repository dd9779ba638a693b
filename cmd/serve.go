package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/cohortdash/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API over HTTP",
	Long: `Loads the dataset once and serves filtered summaries, raw rows, charts and
presets as JSON and PNG. Prometheus metrics are exposed on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset()
		if err != nil {
			return err
		}
		aopt, err := cfg.AggregateOptions()
		if err != nil {
			return err
		}
		addr := cfg.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		if cfg.GinMode != "" {
			gin.SetMode(cfg.GinMode)
		}
		if debug {
			gin.SetMode(gin.DebugMode)
		}

		srv := server.New(ds, server.Options{
			Aggregate: aopt,
			Charts:    chartOptions(),
			Presets:   presetStore(),
			Logger:    slog.Default(),

			AllowOrigins: cfg.CORSOrigins,
		})
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
}
