package server

import (
	"context"
	"fmt"
	"log"

	"hightech/internal/config"
	"hightech/internal/models"
	"hightech/internal/repositories"
	"hightech/internal/services"
	"hightech/pkg/rabbitmq"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Stores bundles the backing services selected by configuration.
type Stores struct {
	Docs    repositories.DocumentStore
	Users   repositories.UserRepository
	Carts   repositories.CartStorage
	Objects repositories.ObjectStorage
	Events  *rabbitmq.Client // nil when rabbitmq_url is empty

	closers []func() error
}

// MemoryStores keeps everything in process; objects live on fs.
func MemoryStores(fs afero.Fs, uploadBaseURL string) *Stores {
	docs := repositories.NewMockDocumentStore()
	return &Stores{
		Docs:    docs,
		Users:   repositories.NewMockUserRepository(),
		Carts:   repositories.NewMockCartStorage(),
		Objects: repositories.NewAferoObjectStorage(fs, uploadBaseURL),
		closers: []func() error{docs.Close},
	}
}

// OpenStores connects to the stores named in cfg. Stores opened before a failure are closed.
func OpenStores(ctx context.Context, cfg *config.Config) (_ *Stores, err error) {
	s := &Stores{}
	defer func() {
		if err != nil {
			if closeErr := s.Close(); closeErr != nil {
				log.Printf("Error closing stores after failed start: %v", closeErr)
			}
		}
	}()

	if err := s.openDocuments(ctx, cfg); err != nil {
		return nil, err
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis_url: %w", err)
		}
		rdb := redis.NewClient(opts)
		s.closers = append(s.closers, rdb.Close)
		carts, err := repositories.NewRedisCartStorage(ctx, rdb, cfg.CartTTL)
		if err != nil {
			return nil, err
		}
		s.Carts = carts
	} else {
		log.Println("redis_url is empty, carts are kept in memory")
		s.Carts = repositories.NewMockCartStorage()
	}

	objects, err := repositories.NewDiskObjectStorage(cfg.UploadDir, cfg.UploadBaseURL)
	if err != nil {
		return nil, err
	}
	s.Objects = objects

	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: services.EventsExchange})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		s.Events = mq
		s.closers = append(s.closers, mq.Close)
	}

	return s, nil
}

func (s *Stores) openDocuments(ctx context.Context, cfg *config.Config) error {
	switch cfg.DBDriver {
	case config.DriverMemory:
		docs := repositories.NewMockDocumentStore()
		s.Docs = docs
		s.closers = append(s.closers, docs.Close)
		s.Users = repositories.NewMockUserRepository()
		return nil

	case config.DriverMongo:
		docs, err := repositories.NewMongoDocumentStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.DocstorePollInterval)
		if err != nil {
			return err
		}
		s.Docs = docs
		s.closers = append(s.closers, docs.Close)

		// Admin accounts stay relational; they live in the sqlite file at database_dsn.
		db, err := openGORM(config.DriverSQLite, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		return s.useUsers(db)

	default:
		db, err := openGORM(cfg.DBDriver, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		docs, err := repositories.NewGORMDocumentStore(db, cfg.DocstorePollInterval)
		if err != nil {
			return err
		}
		s.Docs = docs
		s.closers = append(s.closers, docs.Close)
		return s.useUsers(db)
	}
}

func (s *Stores) useUsers(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.AdminUser{}); err != nil {
		return fmt.Errorf("failed to migrate admin users: %w", err)
	}
	s.Users = repositories.NewGORMUserRepository(db)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	s.closers = append(s.closers, sqlDB.Close)
	return nil
}

func openGORM(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case config.DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}
	if driver != config.DriverPostgres {
		// sqlite allows a single writer; the live query pollers share one connection with it.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	log.Printf("Connected to %s database", driver)
	return db, nil
}

// Publisher returns the event bus, or nil when none is configured.
func (s *Stores) Publisher() services.EventPublisher {
	if s.Events == nil {
		return nil
	}
	return s.Events
}

// Close releases every store in reverse order of opening.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("errors occurred while closing stores: %v", errs)
	}
	return nil
}
