package database

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func PostgresDsn(uri string) (string, error) {
	parts, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("error parsing db uri: %w", err)
	}
	pwd, _ := parts.User.Password()
	dbname := strings.TrimPrefix(parts.Path, "/")

	dsn := fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v", parts.Hostname(), parts.User.Username(), pwd, dbname, parts.Port())
	if sslmode := parts.Query().Get("sslmode"); sslmode != "" {
		dsn += " sslmode=" + sslmode
	}
	return dsn, nil
}

// newGormLogger reports slow queries and errors. Lookups that find no row are expected and
// are not logged.
func newGormLogger(out io.Writer) logger.Interface {
	return logger.New(log.New(out, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
	})
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(os.Stderr),
	}
}

// Open connects to postgres when databaseUri is set, otherwise to the sqlite file at sqlitePath.
func Open(databaseUri, sqlitePath string) (*gorm.DB, error) {
	if databaseUri != "" {
		dsn, err := PostgresDsn(databaseUri)
		if err != nil {
			return nil, err
		}
		db, err := gorm.Open(postgres.Open(dsn), gormConfig())
		if err != nil {
			return nil, fmt.Errorf("error opening postgres connection: %w", err)
		}
		slog.Info("connected to postgres", "host", hostOf(databaseUri))
		return db, nil
	}

	return OpenSqlite(sqlitePath)
}

func OpenSqlite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on&_busy_timeout=5000"), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite database %v: %w", path, err)
	}
	slog.Info("connected to sqlite", "path", path)
	return db, nil
}

func hostOf(uri string) string {
	parts, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return parts.Host
}
