// Package server wires the gallery mirror server: PostgreSQL metadata, an
// S3-compatible blob store, the chi HTTP API and the gRPC service. It also
// handles graceful shutdown on SIGINT, SIGTERM and SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/dmitrijs2005/gophgallery/internal/server/blob"
	"github.com/dmitrijs2005/gophgallery/internal/server/config"
	grpcserver "github.com/dmitrijs2005/gophgallery/internal/server/grpc"
	"github.com/dmitrijs2005/gophgallery/internal/server/httpapi"
	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophgallery/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger *logging.ZapLogger
	db     *sql.DB
	server *http.Server
	grpc   *grpcserver.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.NewProductionZapLogger(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	blobs, err := newBlobStore(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	svc := services.NewMirrorService(db, rm, blobs, logger.With("component", "mirror"))
	users := services.NewUserService(db, rm, c, logger.With("component", "users"))
	handler := httpapi.NewHandler(svc, users, logger.With("component", "http"))
	router := httpapi.NewRouter(handler, []byte(c.SecretKey), logger.Desugar())

	app := &App{
		config: c,
		logger: logger,
		db:     db,
		server: &http.Server{
			Addr:              c.HTTPAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	if c.GRPCAddr != "" {
		app.grpc = grpcserver.NewGRPCServer(c.GRPCAddr, logger, svc, users, c.SecretKey)
	}
	return app, nil
}

func newBlobStore(ctx context.Context, c *config.Config) (blob.Store, error) {
	opts := blob.Options{
		Endpoint:  c.S3BaseEndpoint,
		Region:    c.S3Region,
		Bucket:    c.S3Bucket,
		AccessKey: c.S3RootUser,
		SecretKey: c.S3RootPassword,
		Expiry:    c.PresignExpiry,
	}

	switch c.BlobBackend {
	case config.BlobMinio:
		s, err := blob.NewMinioStore(opts)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return blob.NewS3Store(ctx, opts)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP, and gRPC when configured, until ctx is cancelled or a
// signal arrives, then shuts the servers down and releases the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)
	app.logger.Info(ctx, "starting mirror server", "addr", app.config.HTTPAddr)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if app.grpc != nil {
		g.Go(func() error {
			return app.grpc.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "failed to close db", "error", cerr)
	}
	app.logger.Info(context.Background(), "mirror server stopped")
	_ = app.logger.Sync()

	return err
}
