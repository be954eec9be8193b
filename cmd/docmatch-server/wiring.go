package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/docmatch/docmatch/internal/config"
	"github.com/docmatch/docmatch/internal/domain/account"
	"github.com/docmatch/docmatch/internal/domain/admin"
	"github.com/docmatch/docmatch/internal/domain/availability"
	"github.com/docmatch/docmatch/internal/domain/diseasemap"
	"github.com/docmatch/docmatch/internal/domain/directory"
	"github.com/docmatch/docmatch/internal/domain/matching"
	"github.com/docmatch/docmatch/internal/platform/auth"
	"github.com/docmatch/docmatch/internal/platform/db"
	"github.com/docmatch/docmatch/internal/platform/events"
	"github.com/docmatch/docmatch/internal/platform/notification"
	"github.com/docmatch/docmatch/internal/platform/otp"
)

// stores holds the repositories for the configured STORE_DRIVER.
type stores struct {
	driver   string
	doctors  directory.DoctorRepository
	reports  matching.ReportRepository
	accounts account.AccountRepository
	tx       account.Transactor
	pinger   db.Pinger
	stats    func() interface{}
	close    func()
}

func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, err := db.NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		database := client.Database(cfg.MongoDatabase)
		if err := ensureMongoIndexes(ctx, database); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		logger.Info().Str("database", cfg.MongoDatabase).Msg("connected to mongo")
		return &stores{
			driver:   config.StoreMongo,
			doctors:  directory.NewDoctorRepoMongo(database),
			reports:  matching.NewReportRepoMongo(database),
			accounts: account.NewAccountRepoMongo(database),
			tx:       db.MongoTransactor{},
			pinger:   db.MongoPinger{Client: client},
			close:    func() { _ = client.Disconnect(context.Background()) },
		}, nil
	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("connected to database")
		return &stores{
			driver:   config.StorePostgres,
			doctors:  directory.NewDoctorRepoPG(pool),
			reports:  matching.NewReportRepoPG(pool),
			accounts: account.NewAccountRepoPG(pool),
			tx:       db.PGTransactor{Pool: pool},
			pinger:   pool,
			stats:    func() interface{} { return db.GetPoolStats(pool) },
			close:    pool.Close,
		}, nil
	}
}

func ensureMongoIndexes(ctx context.Context, database *mongo.Database) error {
	if err := directory.EnsureDoctorIndexes(ctx, database); err != nil {
		return fmt.Errorf("doctor indexes: %w", err)
	}
	if err := matching.EnsureReportIndexes(ctx, database); err != nil {
		return fmt.Errorf("report indexes: %w", err)
	}
	if err := account.EnsureAccountIndexes(ctx, database); err != nil {
		return fmt.Errorf("account indexes: %w", err)
	}
	return nil
}

// app is the fully wired set of services behind the server and the
// maintenance commands.
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	stores    *stores
	table     *diseasemap.Table
	publisher events.Publisher
	redis     *redis.Client
	notifier  *notification.Notifier

	directory *directory.Service
	matching  *matching.Service
	otp       *otp.Service
	accounts  *account.Service
	admin     *admin.Service
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	table, err := diseasemap.LoadFile(cfg.DiseaseMapFile)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("diseases", table.Len()).Str("file", cfg.DiseaseMapFile).Msg("loaded disease map")

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, stores: st, table: table}

	a.publisher = events.NopPublisher{}
	if cfg.MQTTBroker != "" {
		pub, err := events.NewMQTTPublisher(events.MQTTConfig{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			TopicPrefix: cfg.MQTTTopicPrefix,
		}, logger)
		if err != nil {
			// Availability events are best effort; the API works without them.
			logger.Warn().Err(err).Msg("mqtt unavailable, availability events disabled")
		} else {
			a.publisher = pub
		}
	}

	var codes otp.Store = otp.NewMemoryStore()
	if cfg.RedisURL != "" {
		client, err := otp.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		codes = otp.NewRedisStore(client)
	}

	var sender notification.SMSSender = notification.NewLogSender(logger)
	if cfg.SMSEnabled() {
		sender = notification.NewTwilioSender(notification.TwilioConfig{
			BaseURL:    cfg.SMSBaseURL,
			AccountSID: cfg.SMSAccountSID,
			AuthToken:  cfg.SMSAuthToken,
			From:       cfg.SMSFrom,
		}, logger)
	}
	a.notifier = notification.NewNotifier(sender, nil)

	evaluator := availability.NewEvaluator(cfg.AvailabilityStaleAfter, st.doctors, logger)
	a.directory = directory.NewService(st.doctors, evaluator, a.publisher, logger)
	a.matching = matching.NewService(table, st.reports, a.directory, logger)
	a.otp = otp.NewService(codes, a.notifier, cfg.OTPTTL, logger)

	issuer := auth.NewTokenIssuer([]byte(cfg.JWTSigningKey), tokenIssuer, cfg.JWTTTL)
	a.accounts = account.NewService(st.accounts, a.directory, a.matching, st.tx, auth.BcryptHasher{}, issuer, a.otp, logger)
	a.admin = admin.NewService(a.directory, a.matching, logger).WithApprovalSMS(a.notifier, a.otp.NormalizePhone)
	return a, nil
}

func (a *app) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.stores != nil && a.stores.close != nil {
		a.stores.close()
	}
}
