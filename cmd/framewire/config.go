package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/AndrewDonelson/framewire"
)

// configEnv names the environment variable consulted when --config is unset.
const configEnv = "FRAMEWIRE_CONFIG"

// fileConfig is the on-disk YAML configuration. Every field may be
// overridden by the matching command-line flag.
type fileConfig struct {
	// Codec is the wire codec used for writing ("json", "zstd+cbor", ...).
	Codec string `yaml:"codec"`

	// TextFallback stores TextMarshaler/Stringer cells as opaque text.
	TextFallback bool `yaml:"text_fallback"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Store storeConfig `yaml:"store"`
}

type storeConfig struct {
	PostgresDSN   string        `yaml:"postgres_dsn"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	KeyPrefix     string        `yaml:"key_prefix"`
	Table         string        `yaml:"table"`
	L1TTL         time.Duration `yaml:"l1_ttl"`
	L2TTL         time.Duration `yaml:"l2_ttl"`
}

// loadConfig reads path, or the file named by FRAMEWIRE_CONFIG when path is
// empty. With neither set the zero config is returned.
func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// commonFlags are accepted by every subcommand.
type commonFlags struct {
	config       string
	codec        string
	textFallback bool
	logLevel     string
	postgresDSN  string
	redisAddr    string
}

func (c *commonFlags) addFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.config, "config", "", "path to YAML config file (default: $"+configEnv+")")
	flagSet.StringVar(&c.codec, "codec", "", "wire codec for reading and writing payloads")
	flagSet.BoolVar(&c.textFallback, "text-fallback", false, "encode TextMarshaler/Stringer cells as opaque text")
	flagSet.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flagSet.StringVar(&c.postgresDSN, "postgres", "", "PostgreSQL DSN for the store")
	flagSet.StringVar(&c.redisAddr, "redis", "", "Redis address for the store")
}

// resolve loads the config file and applies every flag the user set on top.
func (c *commonFlags) resolve(flagSet *pflag.FlagSet) (fileConfig, error) {
	cfg, err := loadConfig(c.config)
	if err != nil {
		return cfg, err
	}
	if flagSet.Changed("codec") {
		cfg.Codec = c.codec
	}
	if flagSet.Changed("text-fallback") {
		cfg.TextFallback = c.textFallback
	}
	if flagSet.Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	if flagSet.Changed("postgres") {
		cfg.Store.PostgresDSN = c.postgresDSN
	}
	if flagSet.Changed("redis") {
		cfg.Store.RedisAddr = c.redisAddr
	}
	if cfg.Codec == "" {
		cfg.Codec = "json"
	}
	return cfg, nil
}

func (cfg fileConfig) logger(stderr io.Writer) (*slog.Logger, error) {
	level := slog.LevelWarn
	if cfg.LogLevel != "" {
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, fmt.Errorf("log_level %q: %w", cfg.LogLevel, err)
		}
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})), nil
}

func (cfg fileConfig) serializer(logger *slog.Logger) (*framewire.Serializer, error) {
	c, err := framewire.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	return framewire.NewSerializer(framewire.SerializerConfig{
		Codec:        c,
		TextFallback: cfg.TextFallback,
		Logger:       framewire.NewSlogLogger(logger),
	}), nil
}

func (cfg fileConfig) store(logger *slog.Logger) (*framewire.Store, error) {
	c, err := framewire.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	return framewire.NewStore(framewire.StoreConfig{
		PostgresDSN:   cfg.Store.PostgresDSN,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
		KeyPrefix:     cfg.Store.KeyPrefix,
		Table:         cfg.Store.Table,
		DefaultL1TTL:  cfg.Store.L1TTL,
		DefaultL2TTL:  cfg.Store.L2TTL,
		Codec:         c,
		TextFallback:  cfg.TextFallback,
		Logger:        framewire.NewSlogLogger(logger),
	})
}
