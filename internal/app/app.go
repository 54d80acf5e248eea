package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phenrril/aurum/internal/adapters/api"
	"github.com/phenrril/aurum/internal/adapters/events/rabbit"
	"github.com/phenrril/aurum/internal/adapters/export/xlsx"
	"github.com/phenrril/aurum/internal/adapters/httpserver"
	kvrepo "github.com/phenrril/aurum/internal/adapters/repo/postgres"
	"github.com/phenrril/aurum/internal/adapters/storage/localfs"
	"github.com/phenrril/aurum/internal/adapters/storage/memory"
	"github.com/phenrril/aurum/internal/config"
	"github.com/phenrril/aurum/internal/domain"
	"github.com/phenrril/aurum/internal/usecase"
)

const (
	sweepEvery = 5 * time.Minute
	cartIdle   = 30 * time.Minute
)

type App struct {
	Config    config.Config
	DB        *gorm.DB
	Storage   domain.KeyValueStore
	API       *api.Client
	SessionUC *usecase.SessionUC
	CatalogUC *usecase.CatalogUC
	AdminUC   *usecase.AdminUC
	Carts     *httpserver.CartRegistry

	amqpConn *amqp.Connection
	cancel   context.CancelFunc
}

func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	ctx, cancel := context.WithCancel(ctx)
	a := &App{Config: cfg, cancel: cancel}

	kv, err := a.openStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Storage = kv

	// el cliente lee el token de la sesión y la sesión usa el cliente para auth
	session := usecase.NewSessionUC(kv, nil)
	client, err := api.New(cfg.APIBaseURL, cfg.APITimeout,
		api.WithToken(session.Token),
		api.WithUnauthorized(session.Expire),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("api: %w", err)
	}
	session.Auth = api.NewAuth(client)
	products := api.NewProducts(client)

	a.API = client
	a.SessionUC = session
	a.CatalogUC = &usecase.CatalogUC{Products: products}
	a.AdminUC = &usecase.AdminUC{
		Session:  session,
		Products: products,
		Carousel: api.NewCarousel(client),
		Exporter: xlsx.Exporter{},
	}
	a.Carts = httpserver.NewCartRegistry(ctx, kv, cfg.CartKey, cfg.LegacyCartKey)
	go a.Carts.Run(ctx, sweepEvery, cartIdle)

	log.Info().
		Str("api", client.BaseURL.String()).
		Str("storage", cfg.StorageDriver).
		Bool("broadcast", a.amqpConn != nil).
		Msg("app lista")
	return a, nil
}

func (a *App) openStorage(ctx context.Context) (domain.KeyValueStore, error) {
	var kv domain.KeyValueStore
	switch a.Config.StorageDriver {
	case config.StorageMemory, "":
		kv = memory.New()
	case config.StorageFile:
		kv = localfs.New(a.Config.StorageDir)
	case config.StoragePostgres:
		db, err := gorm.Open(postgres.Open(a.Config.DBDSN), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
		if err != nil {
			return nil, fmt.Errorf("conectar base de datos: %w", err)
		}
		a.DB = db
		repo := kvrepo.NewKVRepo(db)
		if err := repo.Migrate(); err != nil {
			return nil, fmt.Errorf("migrar storage: %w", err)
		}
		kv = repo
	default:
		return nil, fmt.Errorf("STORAGE_DRIVER desconocido: %q", a.Config.StorageDriver)
	}

	if a.Config.RabbitURL == "" {
		return kv, nil
	}
	conn, err := rabbit.Dial(a.Config.RabbitURL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: %w", err)
	}
	a.amqpConn = conn
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	bs, err := rabbit.New(kv, ch, a.Config.StorageExchange)
	if err != nil {
		return nil, err
	}
	if err := bs.Start(ctx); err != nil {
		return nil, err
	}
	return bs, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(a.CatalogUC, a.Carts, httpserver.Options{
		AllowedOrigins: a.Config.CORSAllowOrigins,
		SecureCookies:  a.Config.IsProduction(),
	})
}

func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.Carts != nil {
		a.Carts.Close()
	}
	if a.amqpConn != nil {
		if err := a.amqpConn.Close(); err != nil {
			log.Warn().Err(err).Msg("cerrar rabbitmq")
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
