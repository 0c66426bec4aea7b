package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/scheduler"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/server"
)

func newRunCommand() *cobra.Command {
	var (
		once     bool
		interval time.Duration
		listen   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the poller and the webhook server until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if interval > 0 {
				cfg.Interval = interval
			}
			if listen != "" {
				cfg.ListenAddr = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			sched, err := scheduler.New(a.checker, scheduler.Config{
				Interval: cfg.Interval,
				RunOnce:  once,
			}, a.logger.Named("scheduler"))
			if err != nil {
				return err
			}
			if once {
				return sched.Run(ctx)
			}

			opts := []server.Option{server.WithHealthCheck(a.healthCheck)}
			if a.tickets != nil {
				opts = append(opts, server.WithTickets(a.tickets))
			}
			srvCfg := server.DefaultConfig()
			srvCfg.ListenAddr = cfg.ListenAddr
			srv, err := server.New(srvCfg, a.checker, a.tracker, a.metrics, a.logger.Named("server"), opts...)
			if err != nil {
				return err
			}

			errCh := make(chan error, 2)
			go func() { errCh <- sched.Run(ctx) }()
			go func() { errCh <- srv.Run(ctx) }()

			// First terminal error wins; context cancellation is a clean stop.
			err = <-errCh
			stop()
			if second := <-errCh; err == nil {
				err = second
			}
			if errors.Is(err, context.Canceled) {
				err = nil
			}
			if err != nil {
				a.logger.Error("bot stopped with error", zap.Error(err))
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run a single check cycle and exit")
	cmd.Flags().DurationVar(&interval, "interval", 0, "override the poll interval")
	cmd.Flags().StringVar(&listen, "listen", "", "override the webhook listen address")
	return cmd
}
