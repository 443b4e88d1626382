package restauth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"github.com/viant/restauth/client/auth/refresh"
	"github.com/viant/restauth/client/auth/store"
)

const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageSQL    = "sql"

	defaultLoginPath   = "/login/"
	defaultRefreshPath = "/token/refresh/"
	defaultTimeout     = 15 * time.Second
	envPrefix          = "RESTAUTH"
)

// Options
//
// defines options for configuring a REST client.
type Options struct {
	BaseURL     string        `yaml:"baseURL" json:"baseURL"  short:"u" long:"url" description:"API base URL, e.g. http://127.0.0.1:8000/api"`
	LoginPath   string        `yaml:"loginPath,omitempty" json:"loginPath,omitempty" long:"login-path" description:"login endpoint path"`
	RefreshPath string        `yaml:"refreshPath,omitempty" json:"refreshPath,omitempty" long:"refresh-path" description:"refresh endpoint path"`
	Rotate      bool          `yaml:"rotate,omitempty" json:"rotate,omitempty" long:"rotate" description:"store refresh tokens rotated by the server"`
	Timeout     time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" long:"timeout" description:"request timeout"`
	// RefreshTimeout bounds a single refresh exchange independently of callers.
	RefreshTimeout time.Duration `yaml:"refreshTimeout,omitempty" json:"refreshTimeout,omitempty" long:"refresh-timeout" description:"refresh exchange timeout"`
	// CookieJarURL, if set, persists session cookies and enables CSRF header echo.
	CookieJarURL string         `yaml:"cookieJarURL,omitempty" json:"cookieJarURL,omitempty" long:"cookies" description:"session cookie jar location"`
	Storage      StorageOptions `yaml:"storage,omitempty" json:"storage,omitempty" group:"storage" namespace:"storage"`
}

// StorageOptions defines where durable ("remember me") credentials are kept;
// ephemeral credentials always live in process memory.
type StorageOptions struct {
	Type string `yaml:"type,omitempty" json:"type,omitempty" long:"type" description:"durable credential storage" choice:"memory" choice:"file" choice:"redis" choice:"sql"`
	// URL is a file/afs URL, a redis:// URL or a sqlite:// / postgres:// database URL.
	URL string        `yaml:"url,omitempty" json:"url,omitempty" long:"url" description:"storage location"`
	Key string        `yaml:"key,omitempty" json:"key,omitempty" long:"key" description:"redis key or sql row name"`
	TTL time.Duration `yaml:"ttl,omitempty" json:"ttl,omitempty" long:"ttl" description:"redis key expiry"`
}

func (o *Options) Init() {
	if o.LoginPath == "" {
		o.LoginPath = defaultLoginPath
	}
	if o.RefreshPath == "" {
		o.RefreshPath = defaultRefreshPath
	}
	if o.Timeout == 0 {
		o.Timeout = defaultTimeout
	}
	if o.RefreshTimeout == 0 {
		o.RefreshTimeout = refresh.DefaultTimeout
	}
	o.Storage.Init()
}

func (s *StorageOptions) Init() {
	if s.Type == "" {
		s.Type = StorageFile
	}
	s.Type = strings.ToLower(s.Type)
	if s.Key == "" {
		s.Key = "restauth"
	}
	if s.Type == StorageFile && s.URL == "" {
		s.URL = DefaultCredentialsURL()
	}
}

// Validate checks options required to build a client.
func (o *Options) Validate() error {
	if o.BaseURL == "" {
		return errors.New("baseURL was empty")
	}
	switch o.Storage.Type {
	case StorageMemory, StorageFile:
	case StorageRedis, StorageSQL:
		if o.Storage.URL == "" {
			return fmt.Errorf("storage url was empty for %v storage", o.Storage.Type)
		}
	default:
		return fmt.Errorf("unsupported storage type: %v", o.Storage.Type)
	}
	return nil
}

// DefaultCredentialsURL returns the default durable credentials location.
func DefaultCredentialsURL() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".restauth", "credentials.json")
}

// NewStore builds a scoped credential store for the configured durable storage.
func (s *StorageOptions) NewStore(ctx context.Context) (*store.Scoped, error) {
	var durable store.Backend
	switch s.Type {
	case StorageMemory:
		durable = store.NewMemoryBackend()
	case StorageFile:
		durable = store.NewFileBackend(s.URL, nil)
	case StorageRedis:
		redisOptions, err := redis.ParseURL(s.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		durable = store.NewRedisBackend(redis.NewClient(redisOptions), s.Key, s.TTL)
	case StorageSQL:
		db, err := store.OpenDatabase(ctx, s.URL)
		if err != nil {
			return nil, err
		}
		durable = store.NewSQLBackend(db, s.Key)
	default:
		return nil, fmt.Errorf("unsupported storage type: %v", s.Type)
	}
	return store.New(durable, store.NewMemoryBackend()), nil
}

// LoadOptions reads options from an optional YAML/JSON file and RESTAUTH_*
// environment variables, e.g. RESTAUTH_BASEURL or RESTAUTH_STORAGE_TYPE.
// Defaults are applied by Init.
func LoadOptions(configURL string) (*Options, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"baseURL", "loginPath", "refreshPath", "rotate", "timeout", "refreshTimeout", "cookieJarURL",
		"storage.type", "storage.url", "storage.key", "storage.ttl"} {
		_ = v.BindEnv(key)
	}
	if configURL != "" {
		v.SetConfigFile(configURL)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %v: %w", configURL, err)
		}
	}
	options := &Options{}
	if err := v.Unmarshal(options); err != nil {
		return nil, fmt.Errorf("failed to decode options: %w", err)
	}
	return options, nil
}
