// Package server wires configuration, storage, persistence and the
// services together and runs the HTTP API and the gRPC health endpoint
// until the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/weddingtma/internal/dbx"
	"github.com/dmitrijs2005/weddingtma/internal/logging"
	"github.com/dmitrijs2005/weddingtma/internal/server/config"
	"github.com/dmitrijs2005/weddingtma/internal/server/events"
	"github.com/dmitrijs2005/weddingtma/internal/server/httpapi"
	"github.com/dmitrijs2005/weddingtma/internal/server/metrics"
	"github.com/dmitrijs2005/weddingtma/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/weddingtma/internal/server/services"
	"github.com/dmitrijs2005/weddingtma/internal/server/storage"
	"github.com/dmitrijs2005/weddingtma/internal/telegram"

	gs "github.com/dmitrijs2005/weddingtma/internal/server/grpc"
)

// Seams for tests.
var (
	openDB       = repomanager.Open
	newPublisher = func(url, exchange string) (events.Publisher, error) {
		p, err := events.NewAMQPPublisher(url, exchange)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	newProvider    = storage.New
	newRepoManager = func() repomanager.RepositoryManager { return repomanager.NewPostgresRepositoryManager() }
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	publisher events.Publisher
	http      *httpapi.Server
	grpc      *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogBackend, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	admins, err := services.ParseAdminIDs(c.AdminTelegramIDs)
	if err != nil {
		return nil, err
	}

	verifier, err := telegram.NewVerifier(c.BotTokens, telegram.WithMaxAge(c.InitDataMaxAge))
	if err != nil {
		return nil, err
	}

	kind, err := storage.ParseKind(c.StorageProvider)
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	provider, err := newProvider(ctx, kind, storage.Settings{
		Cloudinary: storage.CloudinarySettings{
			CloudName: c.CloudinaryCloudName,
			APIKey:    c.CloudinaryAPIKey,
			APISecret: c.CloudinaryAPISecret,
		},
		S3: storage.S3Settings{
			AccessKey:     c.S3AccessKey,
			SecretKey:     c.S3SecretKey,
			Bucket:        c.S3Bucket,
			Region:        c.S3Region,
			BaseEndpoint:  c.S3BaseEndpoint,
			PublicBaseURL: c.S3PublicBaseURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	provider = storage.Instrument(provider, m)

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	var pub events.Publisher = events.Nop{}
	if c.AMQPURL != "" {
		pub, err = newPublisher(c.AMQPURL, c.AMQPExchange)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("amqp init error: %w", err)
		}
	}
	pub = events.Observe(pub, m)

	authSvc := services.NewAuthService(db, rm, verifier, admins, c.SecretKey, c.SessionTTL, logger)
	approvalSvc := services.NewApprovalService(db, rm, pub, logger)
	accessSvc := services.NewAccessService(db, rm)
	rsvpSvc := services.NewRSVPService(db, rm)
	gallerySvc := services.NewGalleryService(db, dbx.NewTransactor(db), rm, provider, pub, c.StorageTimeout, logger)

	httpSrv := httpapi.NewServer(c.EndpointAddrHTTP, logger, authSvc, approvalSvc, accessSvc, rsvpSvc, gallerySvc, httpapi.Options{
		CookieTransport: c.TokenTransport == config.TransportCookie,
		SessionTTL:      c.SessionTTL,
		CORSOrigins:     c.CORSOrigins,
		MetricsHandler:  m.Handler(),
		Metrics:         m,
	})
	grpcSrv := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, db.PingContext, 0)

	logger.Info(ctx, "app initialized", "storage", provider.Name(), "transport", c.TokenTransport)

	return &App{
		config:    c,
		logger:    logger,
		db:        db,
		publisher: pub,
		http:      httpSrv,
		grpc:      grpcSrv,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run blocks until a signal arrives, ctx is cancelled or a server fails.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				app.logger.Error(ctx, name+" server failed", "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
				cancelFunc()
			}
		}()
	}

	run("http", app.http.Run)
	run("grpc", app.grpc.Run)

	wg.Wait()

	app.close(ctx)
	return errors.Join(errs...)
}

func (app *App) close(ctx context.Context) {
	if err := app.publisher.Close(); err != nil {
		app.logger.Warn(ctx, "publisher close", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
