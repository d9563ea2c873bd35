package data

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/Pjt727/timetable/data/boltstore"
	"github.com/Pjt727/timetable/data/mongostore"
	"github.com/Pjt727/timetable/data/pgstore"
	"github.com/Pjt727/timetable/data/timetable"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

var ErrNoConnection = errors.New("DB_CONN is not set")

// Backend is a repository the process owns, cmd opens it once and closes it
// on shutdown
type Backend interface {
	timetable.Repository
	Ping(ctx context.Context) error
	Close() error
}

type Kind string

const (
	KindMongo    Kind = "mongo"
	KindPostgres Kind = "postgres"
	KindBolt     Kind = "bolt"
)

type Config struct {
	ConnString string
	// only used by mongo
	Database string
}

// LoadEnv reads .env into the environment, a missing file is fine since
// deployments set the variables directly
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		err := godotenv.Load(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func ConfigFromEnv() Config {
	return Config{
		ConnString: os.Getenv("DB_CONN"),
		Database:   os.Getenv("DB_NAME"),
	}
}

// KindOf picks the backend from the scheme of the connection string
func KindOf(connString string) (Kind, string, error) {
	switch {
	case strings.HasPrefix(connString, "mongodb://"), strings.HasPrefix(connString, "mongodb+srv://"):
		return KindMongo, connString, nil
	case strings.HasPrefix(connString, "postgres://"), strings.HasPrefix(connString, "postgresql://"):
		return KindPostgres, connString, nil
	case strings.HasPrefix(connString, "bolt://"):
		return KindBolt, strings.TrimPrefix(connString, "bolt://"), nil
	case strings.HasSuffix(connString, ".db"):
		return KindBolt, connString, nil
	case connString == "":
		return "", "", ErrNoConnection
	}
	return "", "", fmt.Errorf("unrecognized connection string scheme: %q", redact(connString))
}

func Open(ctx context.Context, cfg Config) (Backend, error) {
	kind, target, err := KindOf(cfg.ConnString)
	if err != nil {
		return nil, err
	}
	logger := log.WithField("backend", kind)

	var backend Backend
	switch kind {
	case KindMongo:
		backend, err = mongostore.Open(ctx, target, cfg.Database)
	case KindPostgres:
		pool, poolErr := pgstore.NewPool(ctx, target)
		if poolErr != nil {
			return nil, poolErr
		}
		repo := pgstore.New(pool)
		if err = repo.Ping(ctx); err != nil {
			repo.Close()
			return nil, err
		}
		backend = repo
	case KindBolt:
		backend, err = boltstore.Open(target)
	}
	if err != nil {
		logger.Error(fmt.Errorf("Unable to open store: %w", err))
		return nil, err
	}
	logger.Info("Store connection successful")
	return backend, nil
}

// Migrate prepares the schema of whatever backend the connection string names
func Migrate(ctx context.Context, cfg Config) error {
	kind, target, err := KindOf(cfg.ConnString)
	if err != nil {
		return err
	}
	switch kind {
	case KindPostgres:
		version, err := pgstore.MigrateUp(target)
		if err != nil {
			return err
		}
		log.WithField("version", version).Info("Database has been synced with any up migrations")
		return nil
	default:
		// mongo builds its index and bolt its bucket whenever they are opened
		backend, err := Open(ctx, cfg)
		if err != nil {
			return err
		}
		return backend.Close()
	}
}

// keeps credentials out of logs
func redact(connString string) string {
	at := strings.LastIndex(connString, "@")
	scheme := strings.Index(connString, "://")
	if at == -1 || scheme == -1 || at < scheme {
		return connString
	}
	return connString[:scheme+3] + "***" + connString[at:]
}
