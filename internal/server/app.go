// Package server initializes and runs the authkeeper server: it opens the
// user database, picks the revocation backend, builds the token engine and
// serves the session API until the process is told to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/authkeeper/internal/clock"
	"github.com/dmitrijs2005/authkeeper/internal/cryptox"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/revokedtokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/dmitrijs2005/authkeeper/internal/server/telemetry"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
	"github.com/redis/go-redis/v9"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/authkeeper/internal/server/grpc"
)

const meterName = "github.com/dmitrijs2005/authkeeper/server"

type App struct {
	config        *config.Config
	logger        logging.Logger
	db            *sql.DB
	userService   *services.UserService
	janitor       *services.Janitor
	meterProvider *sdkmetric.MeterProvider
	closers       []func() error
}

// NewApp connects to PostgreSQL, applies migrations and wires every
// component described by c.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	level, err := c.SlogLevel()
	if err != nil {
		return nil, err
	}
	logger := logging.NewJSONLogger(os.Stdout, level)

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	var readers []sdkmetric.Reader
	reader, err := telemetry.NewMetricsReader(ctx, c.MetricsExporter, os.Stdout)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("metrics exporter init error: %w", err)
	}
	if reader != nil {
		readers = append(readers, reader)
	}

	app, err := newApp(ctx, c, db, rm, logger, readers...)
	if err != nil {
		logger.Error(ctx, "app init failed", "error", err)
		if reader != nil {
			_ = reader.Shutdown(ctx)
		}
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

// newApp wires the application over an already opened database. The App takes
// ownership of db only on success. Metric readers, if any, are attached to the
// meter provider.
func newApp(ctx context.Context, c *config.Config, db *sql.DB, rm repomanager.RepositoryManager,
	logger logging.Logger, readers ...sdkmetric.Reader) (*App, error) {
	if logger == nil {
		logger = logging.Nop{}
	}
	clk := clock.System{}

	app := &App{config: c, logger: logger}

	store, closeStore, err := openRevocationStore(ctx, c, db, rm)
	if err != nil {
		return nil, fmt.Errorf("revocation store init error: %w", err)
	}
	if closeStore != nil {
		app.closers = append(app.closers, closeStore)
	}

	signer, err := auth.NewSigner([]byte(c.SecretKey), c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("signer init error: %w", err)
	}

	var mpOpts []sdkmetric.Option
	for _, r := range readers {
		mpOpts = append(mpOpts, sdkmetric.WithReader(r))
	}
	app.meterProvider = sdkmetric.NewMeterProvider(mpOpts...)
	metrics, err := tokens.NewMetrics(app.meterProvider.Meter(meterName))
	if err != nil {
		app.close()
		return nil, fmt.Errorf("metrics init error: %w", err)
	}

	engine := tokens.NewEngine(signer, store, tokens.WithMetrics(metrics))
	app.userService = services.NewUserService(db, rm, engine, cryptox.NewBcryptHasher(c.BcryptCost), clk, logger)
	app.janitor = services.NewJanitor(store, clk, c.PruneInterval, logger)
	app.db = db

	logger.Info(ctx, "app configured",
		"grpc_addr", c.EndpointAddrGRPC,
		"revocation_backend", c.RevocationBackend,
		"metrics_exporter", c.MetricsExporter,
		"access_ttl", c.AccessTokenValidityDuration.String(),
		"refresh_ttl", c.RefreshTokenValidityDuration.String())

	return app, nil
}

// openRevocationStore returns the store selected by c.RevocationBackend and,
// when it owns a connection, a function closing it.
func openRevocationStore(ctx context.Context, c *config.Config, db *sql.DB,
	rm repomanager.RepositoryManager) (revokedtokens.Repository, func() error, error) {

	switch c.RevocationBackend {
	case config.BackendPostgres:
		return rm.RevokedTokens(db), nil, nil

	case config.BackendMemory:
		return revokedtokens.NewMemoryRepository(), nil, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return revokedtokens.NewRedisRepository(client), client.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown revocation backend %q", c.RevocationBackend)
}

// Run serves gRPC and runs the revocation janitor until ctx is cancelled or
// the process receives SIGINT, SIGTERM or SIGQUIT.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	lis, err := net.Listen("tcp", app.config.EndpointAddrGRPC)
	if err != nil {
		app.close()
		return fmt.Errorf("listen %s: %w", app.config.EndpointAddrGRPC, err)
	}

	return app.serve(ctx, lis)
}

func (app *App) serve(ctx context.Context, lis net.Listener) error {
	defer app.close()

	app.logger.Info(ctx, "Starting app...")

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService,
		gs.WithMeterProvider(app.meterProvider))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Serve(ctx, lis) })
	g.Go(func() error { return app.janitor.Run(ctx) })

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "app stopped with error", "error", err)
	} else {
		app.logger.Info(ctx, "app stopped")
	}
	return err
}

func (app *App) close() {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		errs = append(errs, app.closers[i]())
	}
	app.closers = nil
	if app.meterProvider != nil {
		errs = append(errs, app.meterProvider.Shutdown(context.Background()))
		app.meterProvider = nil
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
		app.db = nil
	}
	if err := errors.Join(errs...); err != nil {
		app.logger.Warn(context.Background(), "close resources", "error", err)
	}
}
