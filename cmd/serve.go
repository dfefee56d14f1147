package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marcus/taskboard/internal/api"
	"github.com/marcus/taskboard/internal/config"
	"github.com/marcus/taskboard/internal/store"
	"github.com/marcus/taskboard/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON API and the browser UI",
	Long: `Start the HTTP server. The JSON API is served under /v1, the browser UI
at /. Settings come from the built-in defaults, then the YAML file named by
--config or TASKBOARD_CONFIG, then TASKBOARD_* environment variables.`,
	GroupID: "server",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadServerConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.ListenAddr = addr
		}
		if cmd.Flags().Changed("dev") {
			cfg.Dev, _ = cmd.Flags().GetBool("dev")
		}

		logger := config.NewLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel)
		slog.SetDefault(logger)

		st, err := store.OpenWithDriver(cfg.DBDriver, cfg.DBPath)
		if err != nil {
			logger.Error("open store", "err", err)
			return err
		}
		defer st.Close()

		srv, err := newServer(cfg, st, logger)
		if err != nil {
			logger.Error("create server", "err", err)
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		addr, err := srv.Start()
		if err != nil {
			logger.Error("start server", "err", err)
			return err
		}
		logger.Info("server started", "addr", addr.String(), "db", cfg.DBPath, "dev", cfg.Dev)

		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "err", err)
			return err
		}
		return nil
	},
}

// loadServerConfig loads the server config named by --config.
func loadServerConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newServer wires the browser UI into the API server.
func newServer(cfg config.Config, st *store.Store, logger *slog.Logger) (*api.Server, error) {
	ui, err := web.New(st, web.Options{
		BaseURL:       cfg.BaseURL,
		Dev:           cfg.Dev,
		AllowSignup:   cfg.AllowSignup,
		SecureCookies: cfg.SecureCookies,
		SessionTTL:    cfg.SessionTTL.Std(),
		Logger:        logger.With("component", "web"),
	})
	if err != nil {
		return nil, fmt.Errorf("build web ui: %w", err)
	}
	return api.NewServer(cfg, st, api.WithWeb(ui), api.WithLogger(logger))
}

func init() {
	serveCmd.Flags().StringP("config", "c", "", "path to a YAML config file")
	serveCmd.Flags().String("addr", "", "listen address (overrides listen_addr)")
	serveCmd.Flags().Bool("dev", false, "development mode (share links use the dev base URL)")
	rootCmd.AddCommand(serveCmd)
}
