package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/impact-api/internal/config"
	"github.com/Brownie44l1/impact-api/internal/handlers"
	"github.com/Brownie44l1/impact-api/internal/httpserver"
	"github.com/Brownie44l1/impact-api/internal/metrics"
	"github.com/Brownie44l1/impact-api/internal/model"
	"github.com/Brownie44l1/impact-api/pkg/logger"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "dev"

// NewRootCommand returns the command that starts the prediction server.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "impact-api",
		Short:         "Asteroid impact-risk prediction API",
		Long:          `Serves impact-risk predictions for asteroids from ten orbital parameters, using a pre-trained neural network and feature scaler loaded at startup.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return Run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "Path to a YAML config file (default: ./config/config.yaml or ./config.yaml)")
	cmd.Flags().String("address", "", "Listen address, e.g. :8080 (Env: SERVER_ADDRESS)")
	cmd.Flags().String("log-level", "", "Logging level: debug, info, warn, error (Env: LOGGING_LEVEL)")
	cmd.Flags().String("model", "", "Path to the ONNX classifier (Env: ARTIFACTS_MODEL_PATH)")
	cmd.Flags().String("scaler", "", "Path to the scaler JSON (Env: ARTIFACTS_SCALER_PATH)")

	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

// Run loads the artifacts and serves until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.Logging.Level, cfg.Server.Environment != config.EnvProd, cfg.Server.Environment)

	m := metrics.New()

	artifacts := model.LoadArtifacts(model.ArtifactPaths{
		ModelPath:    cfg.Artifacts.ModelPath,
		MetadataPath: cfg.Artifacts.MetadataPath,
		ScalerPath:   cfg.Artifacts.ScalerPath,
		LibraryPath:  cfg.ONNX.LibraryPath,
	}, log)
	defer artifacts.Close()

	opts := []model.PredictorOption{model.WithObserver(m)}
	if cfg.Cache.Enabled {
		opts = append(opts, model.WithCache(cfg.CacheTTL(), cfg.CacheCleanupInterval(), cfg.Cache.MaxEntries))
	}
	predictor := model.NewPredictor(artifacts, opts...)

	modelLoaded, scalerLoaded := predictor.Status()
	m.SetArtifactLoaded(metrics.ArtifactClassifier, modelLoaded)
	m.SetArtifactLoaded(metrics.ArtifactScaler, scalerLoaded)
	if err := predictor.Ready(); err != nil {
		log.Warn("Serving without a complete model; predictions will fail", slog.Any("err", err))
	}

	handler := handlers.NewHandler(predictor, m, log)

	srv, err := httpserver.New(cfg.Server.Address, httpserver.NewRouter(handler, m.Handler(), log))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Start()
	}()

	log.Info("Server starting",
		slog.String("address", srv.Addr()),
		slog.String("version", Version),
		slog.Bool("cache", cfg.Cache.Enabled))
	log.Info("Endpoints: GET /health, GET /metrics, POST /predict_impact")

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
			return err
		}
		return nil
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Server failed", slog.Any("err", err))
		}
		return err
	}
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		slog.Error("impact-api failed", slog.Any("err", err))
		os.Exit(1)
	}
}
