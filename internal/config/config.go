package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server     *Server
	Database   *Database
	Cache      *Cache
	Redis      *Redis
	Dictionary *Dictionary
	Auth       *Auth
	Logger     *Logger
	Importer   *Importer
}

// Server is the HTTP listener configuration
type Server struct {
	Host string
	Port int
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Database is the durable store configuration
type Database struct {
	Path string
}

// Cache selects and sizes the lookup cache
type Cache struct {
	Driver string
	TTL    time.Duration
	Size   int
}

// Redis holds the connection settings used when Cache.Driver is "redis"
type Redis struct {
	Addr     string
	Password string
	DB       int
}

// Dictionary configures the external dictionary API client
type Dictionary struct {
	BaseURL         string
	Timeout         time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
	BreakerFailures uint32
}

// Auth holds the bearer token verification secret
type Auth struct {
	JWTSecret string
}

// Logger configures structured logging
type Logger struct {
	Level  string
	Format string
}

// Importer configures the bulk word import
type Importer struct {
	WordListURL          string
	BatchSize            int
	PlaceholderBatchSize int
	BatchDelay           time.Duration
	Concurrency          int
}

const (
	envPrefix          = "LEXICON"
	defaultWordListURL = "https://raw.githubusercontent.com/meetDeveloper/freeDictionaryAPI/master/meta/wordList/english.txt"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.path", "lexicon.db")
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.size", 1000)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("dictionary.base_url", "https://api.dictionaryapi.dev/api/v2/entries/en")
	v.SetDefault("dictionary.timeout", "10s")
	v.SetDefault("dictionary.max_retries", 3)
	v.SetDefault("dictionary.retry_delay", "1s")
	v.SetDefault("dictionary.breaker_failures", 10)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("importer.wordlist_url", defaultWordListURL)
	v.SetDefault("importer.batch_size", 50)
	v.SetDefault("importer.placeholder_batch_size", 1000)
	v.SetDefault("importer.batch_delay", "1s")
	v.SetDefault("importer.concurrency", 4)
}

// LoadConfig loads the configuration from configPath, or from config.yaml in
// the working directory or /etc/lexicon when configPath is empty. A missing
// default file is not an error; every key also reads LEXICON_<SECTION>_<KEY>.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/lexicon")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		Server:     getServerConfig(v),
		Database:   &Database{Path: v.GetString("database.path")},
		Cache:      getCacheConfig(v),
		Redis:      getRedisConfig(v),
		Dictionary: getDictionaryConfig(v),
		Auth:       &Auth{JWTSecret: v.GetString("auth.jwt_secret")},
		Logger:     &Logger{Level: v.GetString("logger.level"), Format: v.GetString("logger.format")},
		Importer:   getImporterConfig(v),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have no usable fallback
func (c *Config) Validate() error {
	switch c.Cache.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown cache driver %q", c.Cache.Driver)
	}
	if c.Dictionary.MaxRetries < 0 {
		return fmt.Errorf("config: dictionary.max_retries must not be negative")
	}
	if c.Importer.BatchSize <= 0 || c.Importer.PlaceholderBatchSize <= 0 {
		return fmt.Errorf("config: importer batch sizes must be positive")
	}
	return nil
}

func getServerConfig(v *viper.Viper) *Server {
	return &Server{
		Host: v.GetString("server.host"),
		Port: v.GetInt("server.port"),
	}
}

func getCacheConfig(v *viper.Viper) *Cache {
	return &Cache{
		Driver: strings.ToLower(v.GetString("cache.driver")),
		TTL:    v.GetDuration("cache.ttl"),
		Size:   v.GetInt("cache.size"),
	}
}

func getRedisConfig(v *viper.Viper) *Redis {
	return &Redis{
		Addr:     v.GetString("redis.addr"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	}
}

func getDictionaryConfig(v *viper.Viper) *Dictionary {
	return &Dictionary{
		BaseURL:         strings.TrimRight(v.GetString("dictionary.base_url"), "/"),
		Timeout:         v.GetDuration("dictionary.timeout"),
		MaxRetries:      v.GetInt("dictionary.max_retries"),
		RetryDelay:      v.GetDuration("dictionary.retry_delay"),
		BreakerFailures: v.GetUint32("dictionary.breaker_failures"),
	}
}

func getImporterConfig(v *viper.Viper) *Importer {
	return &Importer{
		WordListURL:          v.GetString("importer.wordlist_url"),
		BatchSize:            v.GetInt("importer.batch_size"),
		PlaceholderBatchSize: v.GetInt("importer.placeholder_batch_size"),
		BatchDelay:           v.GetDuration("importer.batch_delay"),
		Concurrency:          v.GetInt("importer.concurrency"),
	}
}
