package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/navsim/internal/observability"
	"github.com/xkilldash9x/navsim/internal/stream"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Stream live episodes over websockets at GET /stream?policy=...&seed=...",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				addr, _ := cmd.Flags().GetString("addr")
				cfg.SetStreamAddr(addr)
			}
			if err := applySimulationFlags(cmd, cfg); err != nil {
				return err
			}
			setup, err := cfg.EpisodeSetup()
			if err != nil {
				return err
			}

			opts := stream.Options{TickRate: cfg.Stream().TickRate, WriteTimeout: cfg.Stream().WriteTimeout}
			if cmd.Flags().Changed("tick-rate") {
				opts.TickRate, _ = cmd.Flags().GetFloat64("tick-rate")
			}
			srv := stream.NewServer(setup, opts, observability.GetLogger())
			return srv.ListenAndServe(ctx, cfg.Stream().Addr)
		},
	}
	addSimulationFlags(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (default from stream.addr)")
	serveCmd.Flags().Float64("tick-rate", 0, "streamed ticks per second (default from stream.tick_rate)")
	return serveCmd
}
