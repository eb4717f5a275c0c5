package database

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sahilchouksey/studyhub-api/config"
	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/sahilchouksey/studyhub-api/utils/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Storage defines the lifecycle every database backend exposes to the app
type Storage interface {
	Init() error
	Close() error
	HealthCheck() error
	GetDB() *gorm.DB
}

type GORMStore struct {
	db     *gorm.DB
	driver string
}

// StartGORM opens the database selected by DB_TYPE (postgres, mysql, sqlserver or sqlite)
func StartGORM() (*GORMStore, error) {
	getEnv, err := config.Get()
	if err != nil {
		return nil, err
	}

	dialector, err := Dialector(getEnv)
	if err != nil {
		return nil, err
	}

	gormLogger := gormlogger.Default.LogMode(gormlogger.Info)
	if getEnv.GO_ENV == "production" {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	store, err := Open(dialector, gormLogger)
	if err != nil {
		logger.Logger.Error().Err(err).Str("driver", getEnv.DB_TYPE).Msg("unable to connect to database")
		return nil, err
	}
	store.driver = getEnv.DB_TYPE

	if getEnv.DB_TYPE != "sqlite" {
		sqlDB, err := store.db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	logger.Logger.Info().Str("driver", getEnv.DB_TYPE).Msg("connected to database")
	return store, nil
}

// Dialector builds the GORM dialector for the configured backend
func Dialector(env *config.EnvironmentVariables) (gorm.Dialector, error) {
	switch env.DB_TYPE {
	case "postgres", "postgresql":
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			env.DB_HOST,
			env.DB_USER,
			env.DB_PASSWORD,
			env.DB_NAME,
			env.DB_PORT,
			env.DB_SSL_MODE,
		)
		return postgres.Open(dsn), nil

	case "mysql", "mariadb":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			env.DB_USER,
			env.DB_PASSWORD,
			env.DB_HOST,
			env.DB_PORT,
			env.DB_NAME,
		)
		return mysql.Open(dsn), nil

	case "sqlserver", "mssql":
		dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%s?database=%s",
			url.QueryEscape(env.DB_USER),
			url.QueryEscape(env.DB_PASSWORD),
			env.DB_HOST,
			env.DB_PORT,
			env.DB_NAME,
		)
		return sqlserver.Open(dsn), nil

	case "sqlite":
		return sqlite.Open(sqliteDSN(env.DB_PATH)), nil

	default:
		return nil, fmt.Errorf("unsupported database type: %s", env.DB_TYPE)
	}
}

// sqliteDSN turns on foreign keys so ON DELETE constraints hold
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)"
}

// Open connects with the given dialector. Duplicate-key errors are translated
// to gorm.ErrDuplicatedKey.
func Open(dialector gorm.Dialector, gormLogger gormlogger.Interface) (*GORMStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	return &GORMStore{db: db, driver: dialector.Name()}, nil
}

// OpenSQLite opens a sqlite database at path. ":memory:" databases are pinned
// to one connection so every query sees the same schema.
func OpenSQLite(path string) (*GORMStore, error) {
	store, err := Open(sqlite.Open(sqliteDSN(path)), gormlogger.Default.LogMode(gormlogger.Silent))
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(path, ":memory:") {
		sqlDB, err := store.db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return store, nil
}

// Init runs AutoMigrate for every model
func (s *GORMStore) Init() error {
	logger.Logger.Debug().Msg("running AutoMigrate")

	if err := s.db.AutoMigrate(model.All()...); err != nil {
		logger.Logger.Error().Err(err).Msg("AutoMigrate failed")
		return err
	}

	return nil
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the GORM DB instance for use in services and handlers
func (s *GORMStore) GetDB() *gorm.DB {
	return s.db
}

// Driver names the dialect in use
func (s *GORMStore) Driver() string {
	return s.driver
}

// HealthCheck verifies the database connection is alive
func (s *GORMStore) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
