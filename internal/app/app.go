package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/entryotp/internal/pkg/channel"
	"github.com/shandysiswandi/entryotp/internal/pkg/clock"
	"github.com/shandysiswandi/entryotp/internal/pkg/config"
	"github.com/shandysiswandi/entryotp/internal/pkg/goroutine"
	"github.com/shandysiswandi/entryotp/internal/pkg/hash"
	"github.com/shandysiswandi/entryotp/internal/pkg/idempotency"
	"github.com/shandysiswandi/entryotp/internal/pkg/instrument"
	"github.com/shandysiswandi/entryotp/internal/pkg/mail"
	"github.com/shandysiswandi/entryotp/internal/pkg/messaging"
	"github.com/shandysiswandi/entryotp/internal/pkg/router"
	"github.com/shandysiswandi/entryotp/internal/pkg/storage"
	"github.com/shandysiswandi/entryotp/internal/pkg/uid"
	"github.com/shandysiswandi/entryotp/internal/pkg/validator"
	"github.com/ulule/limiter/v3"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Hash
	uid       uid.NumberID
	uuid      uid.StringID

	// resources
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	idemp     idempotency.Idempotency
	limiter   *limiter.Limiter
	mail      mail.Mail
	gateway   *channel.Gateway
	messaging messaging.Messaging
	storage   storage.Storage

	// server
	router     *router.Router
	httpServer *http.Server

	// draining flips on the shutdown signal; /health then reports 503.
	draining atomic.Bool
	// closers run in reverse registration order on Stop.
	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

func (a *App) onClose(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// fatal logs and exits; only used while wiring, before traffic is served.
func (a *App) fatal(msg string, err error, args ...any) {
	slog.Error(msg, append([]any{"error", err}, args...)...)
	os.Exit(1)
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initDatabase()
	app.initCache()
	app.initMail()
	app.initChannels()
	app.initStorage()
	app.initMessaging()
	app.initHTTPServer()
	app.initModules()

	return app
}
