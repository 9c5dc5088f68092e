package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/hsm/internal/config"
	"github.com/ehr/hsm/internal/domain/hospital"
	"github.com/ehr/hsm/internal/platform/db"
	"github.com/ehr/hsm/internal/platform/metrics"
	"github.com/ehr/hsm/internal/platform/middleware"
	"github.com/ehr/hsm/migrations"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "hsm-server",
		Short:        "Hospital doctor and patient matching server",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(exportCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres schema",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withMigrator(cmd.Context(), dir, func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "", "Read migrations from this directory instead of the built-in set")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withMigrator(cmd.Context(), dir, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printStatus(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	}
	statusCmd.Flags().String("dir", "", "Read migrations from this directory instead of the built-in set")
	cmd.AddCommand(statusCmd)

	return cmd
}

func withMigrator(ctx context.Context, dir string, fn func(context.Context, *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for migrations")
	}

	pool, err := db.NewPool(ctx, poolConfig(cfg))
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, migrationFS(dir)))
}

func migrationFS(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

func printStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the persisted doctors and patients as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			st, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			snap, err := exportSnapshot(ctx, st.repo)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "    ")
			return enc.Encode(snap)
		},
	}
}

// exportSnapshot reads the stored collections as they are, without the
// startup status reset. A collection that was never saved exports empty.
func exportSnapshot(ctx context.Context, repo hospital.SnapshotRepository) (hospital.Snapshot, error) {
	doctors, err := repo.LoadDoctors(ctx)
	if err != nil && !errors.Is(err, hospital.ErrSnapshotNotFound) {
		return hospital.Snapshot{}, fmt.Errorf("load doctors: %w", err)
	}
	patients, err := repo.LoadPatients(ctx)
	if err != nil && !errors.Is(err, hospital.ErrSnapshotNotFound) {
		return hospital.Snapshot{}, fmt.Errorf("load patients: %w", err)
	}
	if doctors == nil {
		doctors = []hospital.Doctor{}
	}
	if patients == nil {
		patients = []hospital.Patient{}
	}
	return hospital.Snapshot{Doctors: doctors, Patients: patients}, nil
}

func newLogger(env string, w io.Writer) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

func poolConfig(cfg *config.Config) db.PoolConfig {
	return db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns}
}

// storage is the opened persistence backend plus whatever must be closed
// on shutdown. pool is set only for the postgres driver.
type storage struct {
	repo   hospital.SnapshotRepository
	pool   *pgxpool.Pool
	closer func() error
}

func (s *storage) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverFile, "":
		repo, err := hospital.NewFileRepository(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return &storage{repo: repo}, nil
	case config.DriverSQLite:
		repo, err := hospital.NewSQLiteRepository(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &storage{repo: repo, closer: repo.Close}, nil
	case config.DriverBolt:
		repo, err := hospital.NewBoltRepository(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		return &storage{repo: repo, closer: repo.Close}, nil
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, poolConfig(cfg))
		if err != nil {
			return nil, err
		}
		return &storage{
			repo: hospital.NewSnapshotRepoPG(pool),
			pool: pool,
			closer: func() error {
				pool.Close()
				return nil
			},
		}, nil
	case config.DriverS3:
		repo, err := hospital.NewS3Repository(ctx, hospital.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			Prefix:    cfg.S3Prefix,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return &storage{repo: repo}, nil
	case config.DriverMemory:
		return &storage{repo: hospital.NewMemoryRepository()}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func newServer(cfg *config.Config, logger zerolog.Logger, svc *hospital.Service, m *metrics.Metrics, pool *pgxpool.Pool) (*echo.Echo, error) {
	limit, err := cfg.BodyLimitBytes()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger, m.Panicked))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(m.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(limit))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "ok",
			"driver": cfg.StorageDriver,
		})
	})
	e.GET("/metrics", m.Handler())
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}

	hospital.NewHandler(svc).RegisterRoutes(e.Group("/api/v1"))
	return e, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Env, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx := context.Background()
	st, err := openStorage(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to open storage")
		return err
	}
	defer st.Close()
	logger.Info().Str("driver", cfg.StorageDriver).Msg("storage opened")

	store := hospital.Bootstrap(ctx, st.repo, logger)
	svc := hospital.NewService(store, st.repo, logger)
	m := metrics.New()
	svc.SetObserver(m)

	e, err := newServer(cfg, logger, svc, m, st.pool)
	if err != nil {
		return err
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
