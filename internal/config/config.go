package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// DirectoryConfig holds all configuration for the live directory service.
type DirectoryConfig struct {
	Port                  int     `mapstructure:"port"`
	StorePath             string  `mapstructure:"store_path"`
	GalleryKind           string  `mapstructure:"gallery_kind"`
	DocsPerCrawl          float64 `mapstructure:"docs_per_crawl"`
	MinWaitSeconds        float64 `mapstructure:"min_wait_seconds"`
	PubDurEstimateWeight1 float64 `mapstructure:"pub_dur_estimate_weight1"`
	PubDurEstimateWeight2 float64 `mapstructure:"pub_dur_estimate_weight2"`
	TotalWorkerCount      int     `mapstructure:"total_worker_count"`
	LogLevel              string  `mapstructure:"log_level"`
}

// WorkerConfig holds all configuration for a crawler worker process.
type WorkerConfig struct {
	Port             int    `mapstructure:"port"`
	LiveDirectoryURL string `mapstructure:"live_directory_url"`
	DataBrokerURL    string `mapstructure:"data_broker_url"`
	NATSURL          string `mapstructure:"nats_url"`
	NATSSubject      string `mapstructure:"nats_subject"`
	Part             int    `mapstructure:"part"`
	Total            int    `mapstructure:"total"`
	DelayMillis      int    `mapstructure:"delay"`
	SleepDurationMS  int    `mapstructure:"sleep_duration"`
	StartPage        int    `mapstructure:"start_page"`
	LogLevel         string `mapstructure:"log_level"`
}

var (
	globalDirectoryConfig *DirectoryConfig
	globalWorkerConfig    *WorkerConfig
)

// LoadDirectory loads the live directory's configuration from file, env and defaults.
func LoadDirectory(configPath string) (*DirectoryConfig, error) {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("store_path", "")
	v.SetDefault("gallery_kind", "major")
	v.SetDefault("docs_per_crawl", 10.0)
	v.SetDefault("min_wait_seconds", 10800.0)
	v.SetDefault("pub_dur_estimate_weight1", 0.0999)
	v.SetDefault("pub_dur_estimate_weight2", 0.0001)
	v.SetDefault("total_worker_count", 1)
	v.SetDefault("log_level", "info")

	bindEnv(v, map[string]string{
		"port":                     "PORT",
		"store_path":               "STORE_PATH",
		"gallery_kind":             "GALLERY_KIND",
		"docs_per_crawl":           "DOCS_PER_CRAWL",
		"min_wait_seconds":         "MIN_WAIT_SECONDS",
		"pub_dur_estimate_weight1": "PUB_DUR_ESTIMATE_WEIGHT1",
		"pub_dur_estimate_weight2": "PUB_DUR_ESTIMATE_WEIGHT2",
		"total_worker_count":       "TOTAL_WORKER_COUNT",
		"log_level":                "LOG_LEVEL",
	})

	readConfigFile(v, configPath)
	v.AutomaticEnv()

	var cfg DirectoryConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal directory config: %w", err)
	}

	globalDirectoryConfig = &cfg
	return &cfg, nil
}

// LoadWorker loads a worker's configuration from file, env and defaults.
func LoadWorker(configPath string) (*WorkerConfig, error) {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("live_directory_url", "http://localhost:8080")
	v.SetDefault("data_broker_url", "")
	v.SetDefault("nats_url", "")
	v.SetDefault("nats_subject", "crawled.dcinside.documents")
	v.SetDefault("part", 0)
	v.SetDefault("total", 1)
	v.SetDefault("delay", 100)
	v.SetDefault("sleep_duration", 6000)
	v.SetDefault("start_page", 2)
	v.SetDefault("log_level", "info")

	bindEnv(v, map[string]string{
		"port":               "PORT",
		"live_directory_url": "LIVE_DIRECTORY_URL",
		"data_broker_url":    "DATA_BROKER_URL",
		"nats_url":           "NATS_URL",
		"nats_subject":       "NATS_SUBJECT",
		"part":               "PART",
		"total":              "TOTAL",
		"delay":              "DELAY",
		"sleep_duration":     "SLEEP_DURATION",
		"start_page":         "START_PAGE",
		"log_level":          "LOG_LEVEL",
	})

	readConfigFile(v, configPath)
	v.AutomaticEnv()

	var cfg WorkerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal worker config: %w", err)
	}

	globalWorkerConfig = &cfg
	return &cfg, nil
}

func bindEnv(v *viper.Viper, keys map[string]string) {
	for key, env := range keys {
		_ = v.BindEnv(key, env)
	}
}

func readConfigFile(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// config file present but broken; defaults and env still apply
		}
	}
}

// GetDirectory returns the last-loaded directory configuration.
func GetDirectory() *DirectoryConfig { return globalDirectoryConfig }

// GetWorker returns the last-loaded worker configuration.
func GetWorker() *WorkerConfig { return globalWorkerConfig }
