package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		// Collect ships aggregated warn/error lines to kafka.topics.logs.
		Collect bool `yaml:"collect"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10m"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s"`
		RateLimit       int           `yaml:"rate_limit" default:"120" validate:"gte=0"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Universe struct {
		Tickers []string `yaml:"tickers" validate:"required,min=1,dive,required"`
	} `yaml:"universe"`
	Scanner struct {
		LookbackBars     int           `yaml:"lookback_bars" default:"65" validate:"gtefield=MinBars"`
		MinBars          int           `yaml:"min_bars" default:"50" validate:"gte=50"`
		RSICeiling       float64       `yaml:"rsi_ceiling" default:"60" validate:"gt=0,lte=100"`
		RunTimeout       time.Duration `yaml:"run_timeout" default:"5m"`
		Workers          int           `yaml:"workers" default:"1" validate:"gte=1,lte=64"`
		MaxStoreFailures int           `yaml:"max_consecutive_store_failures" default:"5" validate:"gte=0"`
		LockTTL          time.Duration `yaml:"lock_ttl" default:"10m"`
	} `yaml:"scanner"`
	Lifecycle struct {
		HorizonDays int    `yaml:"horizon_days" default:"7" validate:"gte=1,lte=60"`
		HorizonUnit string `yaml:"horizon_unit" default:"calendar" validate:"oneof=calendar trading"`
	} `yaml:"lifecycle"`
	Stats struct {
		CacheTTL time.Duration `yaml:"cache_ttl" default:"10m"`
	} `yaml:"stats"`
	Backtest struct {
		StrideDays    int           `yaml:"stride_days" default:"1" validate:"gte=1"`
		Workers       int           `yaml:"workers" default:"4" validate:"gte=1,lte=64"`
		ExpiredPolicy string        `yaml:"expired_policy" default:"exclude" validate:"oneof=exclude by_sign"`
		RecordSink    string        `yaml:"record_sink" default:"none" validate:"oneof=none clickhouse"`
		ReportTTL     time.Duration `yaml:"report_ttl" default:"24h"`
		QueueWorkers  int           `yaml:"queue_workers" default:"2" validate:"gte=1"`
	} `yaml:"backtest"`
	BarStore struct {
		Type     string        `yaml:"type" default:"clickhouse" validate:"oneof=clickhouse csv"`
		CSVDir   string        `yaml:"csv_dir" validate:"required_if=Type csv"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"1h"`
	} `yaml:"bar_store"`
	SignalStore struct {
		Type string `yaml:"type" default:"postgres" validate:"oneof=postgres memory"`
	} `yaml:"signal_store"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"chartscan"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Postgres struct {
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"5432"`
		Database     string        `yaml:"database" default:"chartscan"`
		User         string        `yaml:"user" default:"chartscan"`
		Password     string        `yaml:"password"`
		SSLMode      string        `yaml:"ssl_mode" default:"disable" validate:"oneof=disable require verify-ca verify-full"`
		MaxOpenConns int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns int           `yaml:"max_idle_conns" default:"5"`
		ConnMaxLife  time.Duration `yaml:"conn_max_lifetime" default:"30m"`
	} `yaml:"postgres"`
	Redis struct {
		Enabled      bool          `yaml:"enabled"`
		Addr         string        `yaml:"addr" default:"localhost:6379" validate:"required_if=Enabled true"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		PoolSize     int           `yaml:"pool_size" default:"10" validate:"gte=1"`
		MinIdleConns int           `yaml:"min_idle_conns" default:"2" validate:"gte=0"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		KeyPrefix    string        `yaml:"key_prefix" default:"chartscan"`
		L1Entries    int           `yaml:"l1_entries" default:"2000" validate:"gte=1"`
		L1TTL        time.Duration `yaml:"l1_ttl" default:"1m"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers" validate:"required_if=Enabled true"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
		Topics       struct {
			Signals  string `yaml:"signals" default:"chartscan.signals"`
			Outcomes string `yaml:"outcomes" default:"chartscan.outcomes"`
			Commands string `yaml:"commands" default:"chartscan.commands"`
			Logs     string `yaml:"logs" default:"chartscan.logs"`
			DLQ      string `yaml:"dlq" default:"chartscan.dlq"`
		} `yaml:"topics"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"chartscan"`
			Workers    int           `yaml:"workers" default:"1"`
			BufferSize int           `yaml:"buffer_size" default:"10"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
}

var validate = validator.New()

// Load reads a YAML file, fills unset fields from `default` tags and
// validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse is Load without the file read.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides it with environment
// variables. A .env file next to the process is read first when present.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&c)
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("UNIVERSE"); v != "" {
		c.Universe.Tickers = splitList(v)
	}
	if v := os.Getenv("BAR_STORE"); v != "" {
		c.BarStore.Type = v
	}
	if v := os.Getenv("BAR_CSV_DIR"); v != "" {
		c.BarStore.CSVDir = v
	}
	if v := os.Getenv("SIGNAL_STORE"); v != "" {
		c.SignalStore.Type = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		c.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("RSI_CEILING"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Scanner.RSICeiling = f
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks struct tags plus the rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("%s failed %q (%s)", e.Namespace(), e.Tag(), e.Param())
		}
		return err
	}
	if c.Environment == "production" && c.SignalStore.Type == "memory" {
		return fmt.Errorf("signal_store.type=memory is not allowed in production")
	}
	if c.Log.Collect && !c.Kafka.Enabled {
		return fmt.Errorf("log.collect needs kafka.enabled")
	}
	return nil
}
