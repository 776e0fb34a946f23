package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/sethvargo/go-retry"
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
	"github.com/shandysiswandi/entryotp/migrations"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

func (a *App) initConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "/config/config.yaml"
		if os.Getenv("LOCAL") == "true" {
			path = "./config/config.yaml"
		}
	}

	cfg, err := config.NewViper(path)
	if err != nil {
		a.fatal("failed to init config", err)
	}

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("app.tz"))

	a.config = cfg
	a.onClose("config", func(context.Context) error { return cfg.Close() })
}

func (a *App) initInstrument() {
	ins, err := instrument.New(context.Background(), &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
		ContactFields:    a.config.GetArray("instrument.log_contact_fields"),
	})
	if err != nil {
		a.fatal("failed to init instrumentation", err)
	}
	a.ins = ins
	a.onClose("instrument", ins.Shutdown)
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))
	a.hmac = hash.NewHMACSHA256(a.config.GetString("hash.hmac.secret"))

	validator, err := validator.NewV10Validator()
	if err != nil {
		a.fatal("failed to init validation v10 validator", err)
	}
	a.validator = validator

	snow, err := uid.NewSnowflake()
	if err != nil {
		a.fatal("failed to init uid number snowflake", err)
	}
	a.uid = snow
}

// ping retries fn with backoff so the process tolerates dependencies that
// start a few seconds after it.
func (a *App) ping(name string, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(
		uint64(max(a.config.GetInt("app.startup.ping_retries"), 0)),
		retry.NewExponential(500*time.Millisecond),
	)

	return retry.Do(a.ctx, backoff, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := fn(pingCtx); err != nil {
			slog.WarnContext(ctx, "dependency not ready", "name", name, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (a *App) initDatabase() {
	config, err := pgxpool.ParseConfig(a.config.GetString("database.url"))
	if err != nil {
		a.fatal("failed to parse DB connection string.", err)
	}

	config.MaxConns = a.config.GetInt32("database.pool.max_conns")
	config.MinConns = a.config.GetInt32("database.pool.min_conns")
	config.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	config.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	config.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, config)
	if err != nil {
		a.fatal("failed to create DB connection pool", err)
	}

	if err := a.ping("database", pool.Ping); err != nil {
		a.fatal("failed to ping DB", err)
	}

	if a.config.GetBool("database.auto_migrate") {
		if err := migrations.Up(a.ctx, pool); err != nil {
			a.fatal("failed to migrate DB", err)
		}
		slog.Info("database schema is up to date")
	}

	a.dbConn = pool
	a.onClose("database", func(context.Context) error {
		pool.Close()
		return nil
	})
}

func (a *App) initCache() {
	opt, err := redis.ParseURL(a.config.GetString("redis.url"))
	if err != nil {
		a.fatal("failed to parse redis url", err)
	}

	rdb := redis.NewClient(opt)

	if err := a.ping("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() }); err != nil {
		a.fatal("failed to init redis", err)
	}

	a.cacheConn = rdb
	a.onClose("redis", func(context.Context) error { return rdb.Close() })
	a.idemp = idempotency.New(a.cacheConn)

	rate, err := limiter.NewRateFromFormatted(a.config.GetString("app.server.rate_limit"))
	if err != nil {
		slog.Warn("edge rate limit disabled", "error", err)
		return
	}

	store, err := sredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "entryotp:ratelimit"})
	if err != nil {
		a.fatal("failed to init rate limit store", err)
	}

	a.limiter = limiter.New(store, rate)
}

// initMail only connects SMTP when email is delivered through it.
func (a *App) initMail() {
	if !strings.EqualFold(a.config.GetString("channel.email.provider"), channel.ProviderSMTP) {
		return
	}

	mail, err := mail.NewSMTP(mail.SMTPConfig{
		Host:     a.config.GetString("mail.host"),
		Port:     a.config.GetInt("mail.port"),
		Username: a.config.GetString("mail.username"),
		Password: a.config.GetString("mail.password"),
		From:     a.config.GetString("mail.from"),
	})
	if err != nil {
		a.fatal("failed to init mail", err)
	}

	a.mail = mail
	a.onClose("smtp", func(context.Context) error { return mail.Close() })
}

func (a *App) initChannels() {
	opts := channel.FactoryOptions{
		HTTPClient: &http.Client{Timeout: a.config.GetSecond("channel.timeout_seconds")},
		Twilio: channel.TwilioConfig{
			AccountSID:  a.config.GetString("channel.twilio.account_sid"),
			AuthToken:   a.config.GetString("channel.twilio.auth_token"),
			From:        a.config.GetString("channel.twilio.from"),
			CountryCode: a.config.GetString("channel.country_code"),
		},
		Fast2SMS: channel.Fast2SMSConfig{
			APIKey:   a.config.GetString("channel.fast2sms.api_key"),
			SenderID: a.config.GetString("channel.fast2sms.sender_id"),
			Route:    a.config.GetString("channel.fast2sms.route"),
			Language: a.config.GetString("channel.fast2sms.language"),
		},
		Meta: channel.MetaConfig{
			APIVersion:    a.config.GetString("channel.meta.api_version"),
			PhoneNumberID: a.config.GetString("channel.meta.phone_number_id"),
			AccessToken:   a.config.GetString("channel.meta.access_token"),
			CountryCode:   a.config.GetString("channel.country_code"),
		},
		Mail: a.mail,
	}

	var chans []channel.Channel
	for _, kind := range channel.Kinds {
		provider := strings.TrimSpace(a.config.GetString(fmt.Sprintf("channel.%s.provider", kind)))
		if provider == "" {
			slog.Info("channel disabled", "kind", kind)
			continue
		}

		c, err := channel.NewFromProvider(kind, provider, opts)
		if err != nil {
			a.fatal("failed to init channel", err, "kind", kind, "provider", provider)
		}
		chans = append(chans, c)
	}

	a.gateway = channel.NewGateway(a.ins, a.config.GetSecond("channel.timeout_seconds"), chans...)
}

func (a *App) initStorage() {
	driver := strings.TrimSpace(a.config.GetString("storage.driver"))

	var gcsClient *gcs.Client
	if driver == storage.DriverGCS {
		gcsClient = a.gcsClient()
	}

	stg, err := storage.NewFromDriver(a.ctx, driver, storage.FactoryOptions{
		Bucket: strings.TrimSpace(a.config.GetString("storage.bucket")),
		S3: storage.S3Options{
			Region:       strings.TrimSpace(a.config.GetString("storage.s3.region")),
			Endpoint:     strings.TrimSpace(a.config.GetString("storage.s3.endpoint")),
			AccessKey:    strings.TrimSpace(a.config.GetString("storage.s3.access_key")),
			SecretKey:    strings.TrimSpace(a.config.GetString("storage.s3.secret_key")),
			SessionToken: strings.TrimSpace(a.config.GetString("storage.s3.session_token")),
			UsePathStyle: a.config.GetBool("storage.s3.use_path_style"),
		},
		GCS: storage.GCSOptions{
			Client:         gcsClient,
			GoogleAccessID: strings.TrimSpace(a.config.GetString("storage.gcs.signer_access_id")),
			PrivateKey:     a.config.GetBinary("storage.gcs.signer_private_key"),
		},
		MinIO: storage.MinIOOptions{
			Region:       strings.TrimSpace(a.config.GetString("storage.minio.region")),
			Endpoint:     strings.TrimSpace(a.config.GetString("storage.minio.endpoint")),
			AccessKey:    strings.TrimSpace(a.config.GetString("storage.minio.access_key")),
			SecretKey:    strings.TrimSpace(a.config.GetString("storage.minio.secret_key")),
			SessionToken: strings.TrimSpace(a.config.GetString("storage.minio.session_token")),
			UseSSL:       a.config.GetBool("storage.minio.use_ssl"),
		},
	})
	if err != nil {
		a.fatal("failed to init storage", err)
	}

	a.storage = stg
	a.onClose("storage", func(context.Context) error { return stg.Close() })
}

func (a *App) initMessaging() {
	driver := a.config.GetString("messaging.driver")

	var pubsubOptions []option.ClientOption
	if v := strings.TrimSpace(a.config.GetString("messaging.pubsub.endpoint")); v != "" {
		pubsubOptions = append(pubsubOptions, option.WithEndpoint(v), option.WithoutAuthentication())
	}

	client, err := messaging.NewFromDriver(a.ctx, driver, messaging.FactoryOptions{
		NSQ: messaging.NSQConfig{
			ProducerAddr:         a.config.GetString("messaging.nsq.producer_addr"),
			ConsumerNSQDAddrs:    a.config.GetArray("messaging.nsq.consumer_nsqd_addrs"),
			ConsumerLookupdAddrs: a.config.GetArray("messaging.nsq.consumer_lookupd_addrs"),
		},
		Kafka: messaging.KafkaConfig{
			Brokers: a.config.GetArray("messaging.kafka.brokers"),
		},
		NATS: messaging.NATSConfig{
			URL: a.config.GetString("messaging.nats.url"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("messaging.nats.name")),
				nats.MaxReconnects(a.config.GetInt("messaging.nats.max_reconnects")),
				nats.Timeout(a.config.GetSecond("messaging.nats.timeout_seconds")),
				nats.ReconnectWait(a.config.GetSecond("messaging.nats.reconnect_wait_seconds")),
				nats.RetryOnFailedConnect(a.config.GetBool("messaging.nats.retry_on_failed_connect")),
			},
		},
		PubSub: messaging.PubSubConfig{
			ProjectID:     a.config.GetString("messaging.pubsub.project_id"),
			ClientOptions: pubsubOptions,
		},
	})
	if err != nil {
		a.fatal("failed to init messaging", err, "driver", driver)
	}

	a.messaging = client
	a.onClose("messaging", func(context.Context) error { return client.Close() })
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		Instrument: a.ins,
		Limiter:    a.limiter,
	})

	routerWithCORS := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           routerWithCORS,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}
}

// gcsClient builds a client only when the defaults need overriding (emulator
// endpoint, explicit credentials or no auth); otherwise storage creates one
// from the ambient credentials.
func (a *App) gcsClient() *gcs.Client {
	var opts []option.ClientOption
	if a.config.GetBool("storage.gcs.without_auth") {
		opts = append(opts, option.WithoutAuthentication())
	}
	if path := strings.TrimSpace(a.config.GetString("storage.gcs.credentials_file")); path != "" {
		// #nosec G304 -- path is from trusted config file.
		credsJSON, err := os.ReadFile(path)
		if err != nil {
			a.fatal("failed to read gcs credentials file", err)
		}
		creds, err := google.CredentialsFromJSON(a.ctx, credsJSON, gcs.ScopeFullControl)
		if err != nil {
			a.fatal("failed to parse gcs credentials file", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	}
	if v := strings.TrimSpace(a.config.GetString("storage.gcs.endpoint")); v != "" {
		opts = append(opts, option.WithEndpoint(v))
	}
	if len(opts) == 0 {
		return nil
	}

	client, err := gcs.NewClient(a.ctx, opts...)
	if err != nil {
		a.fatal("failed to init gcs client", err)
	}
	return client
}
