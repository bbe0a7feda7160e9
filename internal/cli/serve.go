package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/okvist/quarry/internal/server"
)

// newServeCmd creates the serve command.
func newServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP collection API",
		Long: `Serve exposes dependency collection over HTTP:

  POST /api/v1/collect   resolve a dependency graph
  GET  /healthz          liveness probe
  GET  /metrics          Prometheus metrics

Environment variables (optionally loaded from .env) override the listen
address via QUARRY_ADDR.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			// .env is optional; absence is not an error
			_ = godotenv.Load()

			cfg, err := LoadConfig(*configPath)
			if err != nil {
				return err
			}

			eng, err := newEngine(ctx, cfg)
			if err != nil {
				return err
			}
			defer eng.Close()

			listen := cfg.Server.Addr
			if env := os.Getenv("QUARRY_ADDR"); env != "" {
				listen = env
			}
			if addr != "" {
				listen = addr
			}

			srv := server.New(server.Config{
				Addr:         listen,
				Collector:    eng.collector,
				Session:      eng.session,
				Repositories: eng.remotes,
				Logger:       logger,
			})
			logger.Info("serving collection API", "addr", listen)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config and QUARRY_ADDR)")
	return cmd
}
