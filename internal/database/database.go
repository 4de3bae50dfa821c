package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"userapi/internal/config"
	"userapi/internal/repositories"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const connectTimeout = 10 * time.Second

// Store is an opened user gateway plus the function releasing its
// connection.
type Store struct {
	Users repositories.UserRepository
	Close func() error
}

// Open connects the gateway selected by cfg.DBDriver.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.DBDriver {
	case config.DriverMongo:
		return OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.DriverPostgres:
		return OpenGORM(postgres.Open(cfg.DatabaseDSN))
	case config.DriverSQLite:
		return OpenGORM(sqlite.Open(cfg.DatabaseDSN))
	case config.DriverMemory:
		return &Store{
			Users: repositories.NewMockUserRepository(),
			Close: func() error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
}

// GORMConfig returns the gorm settings shared by the SQL gateways. Unique
// violations surface as gorm.ErrDuplicatedKey, and lookups that find no
// row are not logged since the gateways report them as ErrUserNotFound.
func GORMConfig(w logger.Writer) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger: logger.New(w, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

// OpenGORM opens dialector, migrates the users table and returns the store.
func OpenGORM(dialector gorm.Dialector) (*Store, error) {
	db, err := gorm.Open(dialector, GORMConfig(log.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	repo := repositories.NewGORMUserRepository(db)
	if err := repo.Migrate(); err != nil {
		return nil, err
	}
	return &Store{
		Users: repo,
		Close: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}, nil
}

// OpenMongo connects to uri, checks the connection and prepares the users
// collection of database.
func OpenMongo(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	repo := repositories.NewMongoUserRepository(client.Database(database).Collection("users"))
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Printf("Connected to MongoDB database %s", database)

	return &Store{
		Users: repo,
		Close: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
			defer cancel()
			return client.Disconnect(ctx)
		},
	}, nil
}
