package config

import "time"

// Config is the root application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Sketch2Code Sketch2CodeConfig `yaml:"sketch2code"`
	Host        HostConfig        `yaml:"host"`
	Log         LogConfig         `yaml:"log"`
	CORS        CORSConfig        `yaml:"cors"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"false"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"90s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"   env:"SERVER_MAX_BODY_BYTES"   env-default:"10485760"`

	// RemoteRatePerMinute caps save, load and preview calls per installation. Zero disables it.
	RemoteRatePerMinute int `yaml:"remote_rate_per_minute" env:"SERVER_REMOTE_RATE_PER_MINUTE" env-default:"60"`
}

// DatabaseConfig holds PostgreSQL connection settings for the workspace store.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"10"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	AutoMigrate     bool          `yaml:"auto_migrate"       env:"DATABASE_AUTO_MIGRATE"       env-default:"true"`
}

// Sketch2CodeConfig holds the remote conversion service defaults. Custom
// endpoints stored in the extension settings take precedence.
type Sketch2CodeConfig struct {
	APIURL         string        `yaml:"api_url"         env:"S2C_API_URL"         env-default:"https://s2c.shashwat.workers.dev"`
	BlobURL        string        `yaml:"blob_url"        env:"S2C_BLOB_URL"        env-default:"https://s2cblob.shashwat.workers.dev"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"S2C_REQUEST_TIMEOUT" env-default:"60s"`
	MaxConcurrent  int           `yaml:"max_concurrent"  env:"S2C_MAX_CONCURRENT"  env-default:"4"`
}

// HostConfig holds settings for authenticating the workspace host.
type HostConfig struct {
	TokenSecret string `yaml:"token_secret" env:"HOST_TOKEN_SECRET" env-required:"true"`
	TokenIssuer string `yaml:"token_issuer" env:"HOST_TOKEN_ISSUER" env-default:"workspace-host"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}
