package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	sqliteDialector "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var (
	// ErrUnsupportedDialect indicates that no gorm dialector matches the database URL scheme.
	ErrUnsupportedDialect = errors.New("credential_store.unsupported_dialect")

	errEmptyDatabaseURL = errors.New("credential_store.empty_database_url")
	errSQLiteEmptyPath  = errors.New("credential_store.sqlite.empty_path")
)

type credentialRecord struct {
	Name    string `gorm:"column:name;primaryKey"`
	Access  string `gorm:"column:access;not null;default:''"`
	Refresh string `gorm:"column:refresh;not null;default:''"`
}

func (credentialRecord) TableName() string {
	return "restauth_credentials"
}

// OpenDatabase opens a postgres:// or sqlite:// database and migrates the
// credentials table.
func OpenDatabase(ctx context.Context, databaseURL string) (*gorm.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("credential_store.open: %w", errEmptyDatabaseURL)
	}
	dialector, driver, err := resolveDialector(databaseURL)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("credential_store.open.%s: %w", driver, err)
	}
	if err = db.WithContext(ctx).AutoMigrate(&credentialRecord{}); err != nil {
		return nil, fmt.Errorf("credential_store.migrate.%s: %w", driver, err)
	}
	return db, nil
}

// SQLBackend keeps the pair in one row of the restauth_credentials table.
type SQLBackend struct {
	db   *gorm.DB
	name string
}

// NewSQLBackend creates a backend for the row identified by name, e.g. "durable".
func NewSQLBackend(db *gorm.DB, name string) *SQLBackend {
	return &SQLBackend{db: db, name: name}
}

func (s *SQLBackend) Load(ctx context.Context) (*Credentials, error) {
	var record credentialRecord
	err := s.db.WithContext(ctx).Where("name = ?", s.name).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("credential_store.load.%s: %w", s.name, err)
	}
	credentials := &Credentials{Access: record.Access, Refresh: record.Refresh}
	if credentials.IsEmpty() {
		return nil, nil
	}
	return credentials, nil
}

func (s *SQLBackend) Save(ctx context.Context, credentials *Credentials) error {
	record := credentialRecord{Name: s.name, Access: credentials.Access, Refresh: credentials.Refresh}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("credential_store.save.%s: %w", s.name, err)
	}
	return nil
}

func (s *SQLBackend) Delete(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("name = ?", s.name).Delete(&credentialRecord{}).Error; err != nil {
		return fmt.Errorf("credential_store.delete.%s: %w", s.name, err)
	}
	return nil
}

func resolveDialector(databaseURL string) (gorm.Dialector, string, error) {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return nil, "", fmt.Errorf("credential_store.parse_url: %w", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "postgres", "postgresql":
		return postgres.Open(databaseURL), "postgres", nil
	case "sqlite", "sqlite3":
		dsn, dsnErr := sqliteDSN(parsed)
		if dsnErr != nil {
			return nil, "", fmt.Errorf("credential_store.sqlite: %w", dsnErr)
		}
		return sqliteDialector.Open(dsn), "sqlite", nil
	default:
		return nil, "", fmt.Errorf("credential_store.dialect.%s: %w", strings.ToLower(parsed.Scheme), ErrUnsupportedDialect)
	}
}

func sqliteDSN(parsed *url.URL) (string, error) {
	var builder strings.Builder
	switch {
	case parsed.Opaque != "":
		builder.WriteString(parsed.Opaque)
	case parsed.Host != "":
		builder.WriteString(parsed.Host)
		builder.WriteString(parsed.Path)
	default:
		builder.WriteString(parsed.Path)
	}
	if builder.Len() == 0 {
		return "", errSQLiteEmptyPath
	}
	if parsed.RawQuery != "" {
		builder.WriteString("?")
		builder.WriteString(parsed.RawQuery)
	}
	return builder.String(), nil
}
