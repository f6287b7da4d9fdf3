package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/coinsync/internal/app"
	"github.com/dropDatabas3/coinsync/internal/bus"
	"github.com/dropDatabas3/coinsync/internal/config"
	"github.com/dropDatabas3/coinsync/internal/observability/logger"
)

var version = "dev"

func main() {
	var (
		configPath = os.Getenv("CONFIG_PATH")
		envFile    = ".env"
		cfg        *config.Config
	)

	root := &cobra.Command{
		Use:           "coinsync",
		Short:         "Sincroniza balances y multipliers entre nodos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err == nil {
					fmt.Fprintf(os.Stderr, "dotenv: cargado %s\n", envFile)
				}
			}
			c, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = c
			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.Log.Level,
				ServiceName: "coinsync",
				NodeID:      cfg.Node.Name,
			})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", configPath, "ruta a config.yaml (env CONFIG_PATH; vacío = solo env)")
	root.PersistentFlags().StringVar(&envFile, "env-file", envFile, "ruta a .env (si existe, se carga)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Corre el nodo: replicación, ticker de multipliers y admin HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Close()
			logger.L().Info("coinsync node starting",
				logger.NodeID(cfg.Node.Name),
				logger.Transport(cfg.Bus.Kind),
				logger.String("storage", cfg.Storage.Driver),
				logger.String("version", version))
			return c.Run(ctx)
		},
	}

	relayCmd := &cobra.Command{
		Use:   "relay",
		Short: "Corre el forwarder ZeroMQ (XSUB/XPUB) del transporte relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.L().Info("relay forwarder starting",
				logger.String("in", cfg.Bus.Relay.ForwardIn),
				logger.String("out", cfg.Bus.Relay.ForwardOut))
			return bus.RunProxy(cmd.Context(), cfg.Bus.Relay.ForwardIn, cfg.Bus.Relay.ForwardOut)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica el schema del storage configurado",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := app.OpenStore(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer conn.Close()
			logger.L().Info("migrations applied", logger.String("driver", conn.Name()))
			return nil
		},
	}

	root.AddCommand(serveCmd, relayCmd, migrateCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
