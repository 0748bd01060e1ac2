package storage

import (
	"context"
	"fmt"
	"os"

	"statecore/internal/storage/fs"
	"statecore/internal/storage/memory"
	"statecore/internal/storage/postgres"
	"statecore/internal/storage/s3"
	"statecore/internal/storage/sqlite"
)

// Config holds explicit backend parameters. Zero-value fields fall back to
// environment variables, then to defaults.
type Config struct {
	Driver Driver // fs|memory|sqlite|postgres|s3 (default fs)
	Ext    string // file/object extension, normally the codec's (default ".json")

	Dir         string // fs: persistence directory (default "./statecore")
	SQLitePath  string // sqlite: database file path (default "statecore.db")
	PostgresDSN string // postgres: connection DSN

	S3Bucket    string // s3: bucket name (required for s3)
	S3Prefix    string // s3: optional key prefix
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
}

// Open selects and constructs a backend from config and environment.
//
//	STATECORE_STORAGE_DRIVER: fs|memory|sqlite|postgres|s3 (default fs)
//	STATECORE_DIR: fs persistence directory
//	STATECORE_SQLITE_PATH: path to sqlite file
//	STATECORE_POSTGRES_DSN: postgres DSN when driver=postgres
//	STATECORE_S3_BUCKET / _PREFIX / _REGION / _ENDPOINT / _PATH_STYLE: s3 settings
func Open(ctx context.Context, cfg Config) (Backend, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = Driver(os.Getenv("STATECORE_STORAGE_DRIVER"))
	}
	if driver == "" {
		driver = DriverFS
	}
	switch driver {
	case DriverFS:
		dir := cfg.Dir
		if dir == "" {
			dir = os.Getenv("STATECORE_DIR")
		}
		return fs.New(dir, cfg.Ext), nil
	case DriverMemory:
		return memory.New(cfg.Ext), nil
	case DriverSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = os.Getenv("STATECORE_SQLITE_PATH")
		}
		return sqlite.New(path)
	case DriverPostgres:
		dsn := cfg.PostgresDSN
		if dsn == "" {
			dsn = os.Getenv("STATECORE_POSTGRES_DSN")
		}
		return postgres.New(ctx, dsn)
	case DriverS3:
		if cfg.S3Bucket != "" {
			return s3.New(ctx, s3.Config{
				Bucket:    cfg.S3Bucket,
				Prefix:    cfg.S3Prefix,
				Ext:       cfg.Ext,
				Region:    cfg.S3Region,
				Endpoint:  cfg.S3Endpoint,
				PathStyle: cfg.S3PathStyle,
			})
		}
		return s3.OpenFromEnv(ctx, cfg.Ext)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
