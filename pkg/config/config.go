package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	Service ServiceConfig
	DB      DBConfig
	Redis   RedisConfig
	GCP     GCPConfig
	GCS     GCSConfig
	Media   MediaConfig
	Cleanup CleanupConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ROAMLY_APP_ENV" required:"true"`
	Port         string `envconfig:"ROAMLY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ROAMLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ROAMLY_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"ROAMLY_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ROAMLY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ROAMLY_DB_DSN"`
	Driver string `envconfig:"ROAMLY_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"ROAMLY_DB_HOST"`
	Port     int    `envconfig:"ROAMLY_DB_PORT" default:"5432"`
	User     string `envconfig:"ROAMLY_DB_USER"`
	Password string `envconfig:"ROAMLY_DB_PASSWORD"`
	Name     string `envconfig:"ROAMLY_DB_NAME"`
	SSLMode  string `envconfig:"ROAMLY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ROAMLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ROAMLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ROAMLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ROAMLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ROAMLY_REDIS_URL"`
	Address      string        `envconfig:"ROAMLY_REDIS_ADDR"`
	Password     string        `envconfig:"ROAMLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"ROAMLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ROAMLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ROAMLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ROAMLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ROAMLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ROAMLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ROAMLY_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ROAMLY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ROAMLY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"ROAMLY_GCS_BUCKET_NAME" required:"true"`
	RequestTimeout    time.Duration `envconfig:"ROAMLY_GCS_REQUEST_TIMEOUT" default:"30s"`
	DownloadURLExpiry time.Duration `envconfig:"ROAMLY_GCS_DOWNLOAD_URL_EXPIRY" default:"15m"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"ROAMLY_MEDIA_MAX_UPLOAD_MB" default:"50"`
}

// MaxUploadBytes converts the configured upload ceiling to bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	return int64(m.MaxUploadMB) * 1024 * 1024
}

type CleanupConfig struct {
	StagedRetention time.Duration `envconfig:"ROAMLY_CLEANUP_STAGED_RETENTION" default:"48h"`
	Interval        time.Duration `envconfig:"ROAMLY_CLEANUP_INTERVAL" default:"24h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
