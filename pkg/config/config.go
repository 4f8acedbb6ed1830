package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"FinCast/pkg/logger"
	"FinCast/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string        `yaml:"environment" default:"development" validate:"required"`
	Log         logger.Config `yaml:"log"`
	Forecast    struct {
		Backend           string        `yaml:"backend" default:"lagreg" validate:"oneof=lagreg expsmooth"`
		Horizon           int           `yaml:"horizon" default:"30" validate:"gte=1,lte=365"`
		Lags              []int         `yaml:"lags" default:"[1,2,3,5,10]" validate:"min=1,dive,gte=1"`
		TailSize          int           `yaml:"tail_size" validate:"gte=0"` // 0 means max(lags)
		Symbols           []string      `yaml:"symbols"`
		Workers           int           `yaml:"workers" default:"4" validate:"gte=1,lte=64"`
		Holidays          []string      `yaml:"holidays"`
		ExpSmoothingAlpha float64       `yaml:"exp_smoothing_alpha" default:"0.3" validate:"gt=0,lte=1"`
		Ridge             float64       `yaml:"ridge" default:"0.000001" validate:"gte=0"`
		RunTimeout        time.Duration `yaml:"run_timeout" default:"2m"`
	} `yaml:"forecast"`
	Input struct {
		Source string `yaml:"source" default:"csv" validate:"oneof=csv clickhouse"`
		Dir    string `yaml:"dir" default:"data-uploader/stock-data"`
	} `yaml:"input"`
	Output struct {
		Sinks          []string `yaml:"sinks" default:"[\"csv\"]" validate:"min=1,dive,oneof=csv clickhouse kafka cache"`
		Dir            string   `yaml:"dir" default:"data-uploader/predicted-data"`
		PricePrecision int32    `yaml:"price_precision" default:"4" validate:"gte=0,lte=10"`
	} `yaml:"output"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RunRateLimit    float64       `yaml:"run_rate_limit" default:"1"` // run requests per second per client
		RunBurst        float64       `yaml:"run_burst" default:"5"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"fincast"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		PricesTable      string        `yaml:"prices_table" default:"daily_prices"`
		ForecastsTable   string        `yaml:"forecasts_table" default:"forecasts"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"fincast.forecasts"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`

		// run requests consumed by serve
		ConsumeRequests bool   `yaml:"consume_requests"`
		RequestsTopic   string `yaml:"requests_topic" default:"fincast.requests"`
		GroupID         string `yaml:"group_id" default:"fincast"`
		DLQTopic        string `yaml:"dlq_topic" default:"fincast.requests.dlq"`
		ConsumerWorkers int    `yaml:"consumer_workers" default:"2" validate:"gte=1,lte=64"`

		// aggregated warn/error log entries; empty disables publishing
		LogTopic string `yaml:"log_topic"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled     bool          `yaml:"enabled"`
		Host        string        `yaml:"host" default:"localhost"`
		Port        int           `yaml:"port" default:"6379"`
		Password    string        `yaml:"password"`
		DB          int           `yaml:"db"`
		Prefix      string        `yaml:"prefix" default:"fincast"`
		CacheTTL    time.Duration `yaml:"cache_ttl" default:"24h"`
		PoolSize    int           `yaml:"pool_size" default:"10" validate:"gte=1"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		LocalTTL    time.Duration `yaml:"local_ttl" default:"30s"` // in-process copy of cached reads; 0 disables it
	} `yaml:"redis"`
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Workers    int           `yaml:"workers" default:"2" validate:"gte=1"`
		RetryLimit int           `yaml:"retry_limit" default:"3" validate:"gte=0"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
	} `yaml:"queue"`
	ModelService struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout" default:"5s"`
		Retries int           `yaml:"retries" default:"3" validate:"gte=1"`
	} `yaml:"model_service"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads, parses and validates a YAML configuration file. Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Parse decodes YAML bytes over the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decode(b)
}

func decode(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML (or defaults when path is empty),
// overrides with environment variables, then validates.
func LoadWithEnv(path string) (*Config, error) {
	c := Default()
	if path != "" {
		var err error
		if c, err = read(path); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("FINCAST_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("FINCAST_BACKEND"); v != "" {
		c.Forecast.Backend = v
	}
	if v := os.Getenv("FINCAST_SYMBOLS"); v != "" {
		c.Forecast.Symbols = util.SplitList(v)
	}
	if v := os.Getenv("FINCAST_INPUT_DIR"); v != "" {
		c.Input.Dir = v
	}
	if v := os.Getenv("FINCAST_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("FINCAST_HORIZON"); v != "" {
		c.Forecast.Horizon = util.ParseIntDefault(v, c.Forecast.Horizon)
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := os.Getenv("KAFKA_CONSUME_REQUESTS"); v != "" {
		c.Kafka.ConsumeRequests = util.ParseBoolDefault(v, c.Kafka.ConsumeRequests)
	}
	if v := os.Getenv("KAFKA_LOG_TOPIC"); v != "" {
		c.Kafka.LogTopic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Redis.Port = p
		}
	}
	if v := os.Getenv("MODEL_SERVICE_URL"); v != "" {
		c.ModelService.URL = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks struct tags plus the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	seen := make(map[int]struct{}, len(c.Forecast.Lags))
	for _, l := range c.Forecast.Lags {
		if _, dup := seen[l]; dup {
			return fmt.Errorf("forecast.lags contains duplicate offset %d", l)
		}
		seen[l] = struct{}{}
	}
	if c.Input.Source == "clickhouse" || c.HasSink("clickhouse") {
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required when clickhouse is used")
		}
	}
	if c.HasSink("kafka") && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when the kafka sink is enabled")
	}
	if c.Kafka.ConsumeRequests && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka.consume_requests is set")
	}
	if c.Kafka.LogTopic != "" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka.log_topic is set")
	}
	if c.Queue.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("queue requires redis.enabled")
	}
	return nil
}

// HasSink reports whether the named output sink is enabled.
func (c *Config) HasSink(name string) bool {
	return slices.Contains(c.Output.Sinks, name)
}

// TailSize resolves the historical tail length.
func (c *Config) TailSize() int {
	if c.Forecast.TailSize > 0 {
		return c.Forecast.TailSize
	}
	return slices.Max(c.Forecast.Lags)
}
