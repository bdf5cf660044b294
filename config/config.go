package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Upload  UploadConfig  `yaml:"upload"`
	Store   StoreConfig   `yaml:"store"`
	Storage StorageConfig `yaml:"storage"`
	Queue   QueueConfig   `yaml:"queue"`
	Parse   ParseConfig   `yaml:"parse"`
	Auth    AuthConfig    `yaml:"auth"`
	Users   []User        `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

type UploadConfig struct {
	MaxSizeBytes int64 `yaml:"max_size_bytes"`
}

// StoreConfig selects the contract record store backend.
type StoreConfig struct {
	Backend      string      `yaml:"backend"` // memory, postgres, redis
	MaxContracts int         `yaml:"max_contracts"`
	PostgresURL  string      `yaml:"postgres_url"`
	Redis        RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// StorageConfig selects where uploaded PDF bytes are kept.
type StorageConfig struct {
	Backend string      `yaml:"backend"` // local, minio
	Local   LocalConfig `yaml:"local"`
	Minio   MinioConfig `yaml:"minio"`
}

type LocalConfig struct {
	Dir string `yaml:"dir"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// QueueConfig selects how background parses are scheduled.
type QueueConfig struct {
	Backend    string `yaml:"backend"` // local, asynq
	Workers    int    `yaml:"workers"`
	BufferSize int    `yaml:"buffer_size"`
	RedisURL   string `yaml:"redis_url"`
}

// ParseConfig tunes the extraction stub.
type ParseConfig struct {
	StageDelayMS int `yaml:"stage_delay_ms"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a configuration that runs without any external
// services: memory store, local disk storage, in-process queue.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Upload.MaxSizeBytes == 0 {
		c.Upload.MaxSizeBytes = 50 * 1024 * 1024 // 50 MiB
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "local"
	}
	if c.Storage.Local.Dir == "" {
		c.Storage.Local.Dir = "data/contracts"
	}
	if c.Queue.Backend == "" {
		c.Queue.Backend = "local"
	}
	if c.Queue.Workers == 0 {
		c.Queue.Workers = 4
	}
	if c.Queue.BufferSize == 0 {
		c.Queue.BufferSize = 256
	}
	if c.Parse.StageDelayMS == 0 {
		c.Parse.StageDelayMS = 500
	}
	if c.Auth.TokenExpireHours == 0 {
		c.Auth.TokenExpireHours = 24
	}
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory":
	case "postgres":
		if c.Store.PostgresURL == "" {
			return fmt.Errorf("store.postgres_url is required for the postgres store")
		}
	case "redis":
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown store backend: %s", c.Store.Backend)
	}

	switch c.Storage.Backend {
	case "local":
	case "minio":
		if c.Storage.Minio.Endpoint == "" {
			return fmt.Errorf("storage.minio.endpoint is required for the minio backend")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}

	switch c.Queue.Backend {
	case "local":
	case "asynq":
		if c.Queue.RedisURL == "" {
			return fmt.Errorf("queue.redis_url is required for the asynq backend")
		}
	default:
		return fmt.Errorf("unknown queue backend: %s", c.Queue.Backend)
	}

	if len(c.Users) > 0 && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when users are configured")
	}

	return nil
}

// AuthEnabled reports whether API routes require a bearer token.
func (c *Config) AuthEnabled() bool {
	return len(c.Users) > 0
}

// FindUser finds a user by username.
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
