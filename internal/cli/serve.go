package cli

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/cromulus/reminders-cli-sub001/change"
	"github.com/cromulus/reminders-cli-sub001/internal/background"
	"github.com/cromulus/reminders-cli-sub001/internal/bootstrap"
	"github.com/cromulus/reminders-cli-sub001/internal/server"
)

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and deliver webhook events",
		Long: `Serve the reminders HTTP API. Changes made through the API, by other
reminders commands or by anything else writing the database are detected
and posted to matching webhook subscriptions.`,
		Args: cobra.NoArgs,
		RunE: a.withSession(func(cmd *cobra.Command, _ []string, s *bootstrap.BootstrapResult) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			gin.SetMode(gin.ReleaseMode)
			cfg := s.Cfg

			detector := change.NewDetector(s.Store, change.Options{FetchTimeout: cfg.Detector.FetchTimeout})
			pipeline := background.StartChangePipeline(ctx, background.PipelineOptions{
				Store:        s.Store,
				Detector:     detector,
				Sink:         func(ev change.Event) { s.Dispatcher.Dispatch(ev) },
				DBPath:       cfg.Store.Path,
				Debounce:     cfg.Detector.Debounce,
				PollInterval: cfg.Detector.PollInterval,
			})
			defer pipeline.Stop()

			if cfg.Server.Token == "" {
				slog.Warn("no API token configured, requests are not authenticated")
			}
			srv := server.New(server.Deps{
				Store:     s.Store,
				Registry:  s.Registry,
				Tester:    s.Dispatcher,
				Shortcuts: s.Shortcuts,
				Env:       s.Env,
			}, cfg.Server.Token)
			return srv.Run(ctx, cfg.Server.Addr)
		}),
	}
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().String("token", "", "require this bearer token on every request")
	return cmd
}
