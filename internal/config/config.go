// Package config loads and validates sync configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// TokenEnv is the environment variable holding the Hugging Face credential.
const TokenEnv = "HF_TOKEN"

// ErrMissingToken is returned when the Hugging Face store has no credential.
var ErrMissingToken = errors.New(TokenEnv + " environment variable is not set")

// Store providers.
const (
	ProviderHuggingFace = "huggingface"
	ProviderGCS         = "gcs"
	ProviderPostgres    = "postgres"
	ProviderLocal       = "local"
	ProviderMemory      = "memory"
)

// Load failure policies.
const (
	OnLoadFailureFresh = "fresh"
	OnLoadFailureAbort = "abort"
)

// Notifier providers.
const (
	NotifyNone   = "none"
	NotifyPubSub = "pubsub"
	NotifyMemory = "memory"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Store   StoreConfig   `mapstructure:"store"`
	Fetcher FetcherConfig `mapstructure:"fetcher"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// StoreConfig selects and configures the snapshot store.
type StoreConfig struct {
	Provider    string            `mapstructure:"provider"`
	Repo        string            `mapstructure:"repo"`
	Split       string            `mapstructure:"split"`
	LoadRetries int               `mapstructure:"load_retries"`
	HuggingFace HuggingFaceConfig `mapstructure:"huggingface"`
	GCS         GCSConfig         `mapstructure:"gcs"`
	Local       LocalConfig       `mapstructure:"local"`
	Postgres    PostgresConfig    `mapstructure:"postgres"`
}

// HuggingFaceConfig points at a Hub dataset repository.
type HuggingFaceConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Revision string        `mapstructure:"revision"`
	DataDir  string        `mapstructure:"data_dir"`
	Private  bool          `mapstructure:"private"`
	Token    string        `mapstructure:"token"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// GCSConfig locates the snapshot object in Cloud Storage.
type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// LocalConfig roots the filesystem store.
type LocalConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// PostgresConfig controls the Postgres-backed store.
type PostgresConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// FetcherConfig describes the external fetcher executable.
type FetcherConfig struct {
	Binary   string        `mapstructure:"binary"`
	Output   string        `mapstructure:"output"`
	MinScore int           `mapstructure:"min_score"`
	Stories  int           `mapstructure:"stories"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SyncConfig governs merge and failure handling.
type SyncConfig struct {
	OnLoadFailure string   `mapstructure:"on_load_failure"`
	DropColumns   []string `mapstructure:"drop_columns"`
}

// NotifyConfig selects the post-publish notifier.
type NotifyConfig struct {
	Provider string       `mapstructure:"provider"`
	PubSub   PubSubConfig `mapstructure:"pubsub"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// MetricsConfig controls the Pushgateway export.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// Load builds a Config from disk/environment. An empty path searches the
// working directory, /etc/hnsync and $HOME/.hnsync for config.yaml.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HNSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("store.huggingface.token", TokenEnv); err != nil {
		return Config{}, fmt.Errorf("bind %s: %w", TokenEnv, err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/hnsync/")
		v.AddConfigPath("$HOME/.hnsync")
		// A missing file is fine; defaults and environment still apply.
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "")
	v.SetDefault("store.provider", ProviderHuggingFace)
	v.SetDefault("store.repo", "artbred/hn_stories")
	v.SetDefault("store.split", "train")
	v.SetDefault("store.load_retries", 0)
	v.SetDefault("store.huggingface.endpoint", "https://huggingface.co")
	v.SetDefault("store.huggingface.revision", "main")
	v.SetDefault("store.huggingface.data_dir", "data")
	v.SetDefault("store.huggingface.private", false)
	v.SetDefault("store.huggingface.timeout", "5m")
	v.SetDefault("store.gcs.bucket", "")
	v.SetDefault("store.gcs.prefix", "datasets")
	v.SetDefault("store.local.base_dir", "data")
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("store.postgres.table", "stories")
	v.SetDefault("fetcher.binary", "./hn_parser")
	v.SetDefault("fetcher.output", "new_stories.jsonl")
	v.SetDefault("fetcher.min_score", 10)
	v.SetDefault("fetcher.stories", 50000)
	v.SetDefault("fetcher.timeout", "0s")
	v.SetDefault("sync.on_load_failure", OnLoadFailureFresh)
	v.SetDefault("sync.drop_columns", []string{"__index_level_0__"})
	v.SetDefault("notify.provider", NotifyNone)
	v.SetDefault("notify.pubsub.project_id", "")
	v.SetDefault("notify.pubsub.topic_id", "")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "hnsync")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.Count(c.Store.Repo, "/") != 1 || strings.HasPrefix(c.Store.Repo, "/") || strings.HasSuffix(c.Store.Repo, "/") {
		return fmt.Errorf("store.repo must look like owner/name, got %q", c.Store.Repo)
	}
	if c.Store.Split == "" {
		return fmt.Errorf("store.split must be set")
	}
	if c.Store.LoadRetries < 0 {
		return fmt.Errorf("store.load_retries must be >= 0")
	}
	switch c.Store.Provider {
	case ProviderHuggingFace:
		if strings.TrimSpace(c.Store.HuggingFace.Token) == "" {
			return ErrMissingToken
		}
		if c.Store.HuggingFace.Endpoint == "" || c.Store.HuggingFace.DataDir == "" {
			return fmt.Errorf("store.huggingface.endpoint and store.huggingface.data_dir must be set")
		}
	case ProviderGCS:
		if c.Store.GCS.Bucket == "" {
			return fmt.Errorf("store.gcs.bucket must be set when store.provider is gcs")
		}
	case ProviderPostgres:
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("store.postgres.dsn must be set when store.provider is postgres")
		}
	case ProviderLocal:
		if c.Store.Local.BaseDir == "" {
			return fmt.Errorf("store.local.base_dir must be set when store.provider is local")
		}
	case ProviderMemory:
	default:
		return fmt.Errorf("unknown store.provider %q", c.Store.Provider)
	}
	if c.Fetcher.Binary == "" || c.Fetcher.Output == "" {
		return fmt.Errorf("fetcher.binary and fetcher.output must be set")
	}
	if c.Fetcher.Stories < 0 {
		return fmt.Errorf("fetcher.stories must be >= 0")
	}
	if c.Fetcher.Timeout < 0 {
		return fmt.Errorf("fetcher.timeout must be >= 0")
	}
	switch c.Sync.OnLoadFailure {
	case OnLoadFailureFresh, OnLoadFailureAbort:
	default:
		return fmt.Errorf("sync.on_load_failure must be %q or %q", OnLoadFailureFresh, OnLoadFailureAbort)
	}
	switch c.Notify.Provider {
	case NotifyNone, NotifyMemory:
	case NotifyPubSub:
		if c.Notify.PubSub.ProjectID == "" || c.Notify.PubSub.TopicID == "" {
			return fmt.Errorf("notify.pubsub.project_id and notify.pubsub.topic_id must be set")
		}
	default:
		return fmt.Errorf("unknown notify.provider %q", c.Notify.Provider)
	}
	if c.Metrics.PushgatewayURL != "" && c.Metrics.Job == "" {
		return fmt.Errorf("metrics.job must be set when metrics.pushgateway_url is set")
	}
	return nil
}
