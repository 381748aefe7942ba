package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // engine.timezone must resolve on minimal images

	"RiskPulse/internal/services/aggregation"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required,oneof=development staging production"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Engine    EngineSection `yaml:"engine"`
	Dashboard struct {
		CacheTTL     time.Duration `yaml:"cache_ttl" default:"2s"`
		PushInterval time.Duration `yaml:"push_interval" default:"5s" validate:"gt=0"`
		Currency     string        `yaml:"currency" default:"$"`
		AlertLimit   int           `yaml:"alert_limit" default:"10" validate:"min=1"`
	} `yaml:"dashboard"`
	Ingest struct {
		RateCapacity float64 `yaml:"rate_capacity" default:"200" validate:"gt=0"`
		RateRefill   float64 `yaml:"rate_refill_per_sec" default:"100" validate:"gt=0"`
	} `yaml:"ingest"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers" validate:"required_if=Enabled true"`
		EventsTopic  string   `yaml:"events_topic" default:"scored-transactions"`
		AlertsTopic  string   `yaml:"alerts_topic" default:"fraud-alerts"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"riskpulse-engine"`
			Workers    int           `yaml:"workers" default:"4" validate:"min=1"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"scored-transactions-dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"riskpulse"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
		BatchSize        int           `yaml:"batch_size" default:"500" validate:"min=1"`
		FlushInterval    time.Duration `yaml:"flush_interval" default:"2s" validate:"gt=0"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled   bool   `yaml:"enabled"`
		Addr      string `yaml:"addr" default:"localhost:6379" validate:"required_if=Enabled true"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		KeyPrefix string `yaml:"key_prefix" default:"riskpulse:"`
	} `yaml:"redis"`
}

// EngineSection is the YAML form of aggregation.Config. Amounts are strings so
// they parse exactly as decimals.
type EngineSection struct {
	WindowWidth      time.Duration `yaml:"window_width" default:"4h" validate:"gt=0"`
	RetentionHorizon time.Duration `yaml:"retention_horizon" default:"24h" validate:"gt=0"`
	SweepInterval    time.Duration `yaml:"sweep_interval" default:"1m" validate:"gt=0"`
	AmountRanges     []struct {
		Label string `yaml:"label" validate:"required"`
		Lower string `yaml:"lower"`
		Upper string `yaml:"upper"` // empty for the unbounded top range
	} `yaml:"amount_ranges" validate:"dive"`
	RiskCutpoints struct {
		LowMax  float64 `yaml:"low_max" default:"0.3"`
		HighMin float64 `yaml:"high_min" default:"0.7"`
	} `yaml:"risk_cutpoints"`
	AlertThreshold         float64       `yaml:"alert_threshold" default:"0.8"`
	AlertFeedCapacity      int           `yaml:"alert_feed_capacity" default:"50"`
	HighAmountCeiling      string        `yaml:"high_amount_ceiling" default:"10000"`
	RapidTransactionWindow time.Duration `yaml:"rapid_transaction_window" default:"5m"`
	RapidTransactionCount  int           `yaml:"rapid_transaction_count" default:"5"`
	FutureSkewTolerance    time.Duration `yaml:"future_skew_tolerance" default:"2m"`
	UnusualHours           struct {
		Start int `yaml:"start" default:"1"`
		End   int `yaml:"end" default:"5"`
	} `yaml:"unusual_hours"`
	Timezone            string   `yaml:"timezone" default:"UTC"`
	LocationReasonCodes []string `yaml:"location_reason_codes"`
	PatternReasonCodes  []string `yaml:"pattern_reason_codes"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file. Unset fields take their defaults.
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
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A .env file in the working directory, if present, is loaded first.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	_ = godotenv.Load()

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.EventsTopic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = p
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks struct tags and then the engine semantics.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := c.EngineConfig(); err != nil {
		return err
	}
	return nil
}

// EngineConfig converts the engine section into a validated aggregation.Config.
func (c *Config) EngineConfig() (aggregation.Config, error) {
	s := c.Engine
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return aggregation.Config{}, fmt.Errorf("engine.timezone: %w", err)
	}
	ceiling, err := decimal.NewFromString(s.HighAmountCeiling)
	if err != nil {
		return aggregation.Config{}, fmt.Errorf("engine.high_amount_ceiling: %w", err)
	}

	def := aggregation.DefaultConfig()
	ec := aggregation.Config{
		WindowWidth:            s.WindowWidth,
		RetentionHorizon:       s.RetentionHorizon,
		AmountRanges:           def.AmountRanges,
		LowMax:                 s.RiskCutpoints.LowMax,
		HighMin:                s.RiskCutpoints.HighMin,
		AlertThreshold:         s.AlertThreshold,
		AlertFeedCapacity:      s.AlertFeedCapacity,
		HighAmountCeiling:      ceiling,
		RapidTransactionWindow: s.RapidTransactionWindow,
		RapidTransactionCount:  s.RapidTransactionCount,
		FutureSkewTolerance:    s.FutureSkewTolerance,
		UnusualHours:           aggregation.HourRange{Start: s.UnusualHours.Start, End: s.UnusualHours.End},
		Location:               loc,
		LocationReasonCodes:    def.LocationReasonCodes,
		PatternReasonCodes:     def.PatternReasonCodes,
	}
	if len(s.LocationReasonCodes) > 0 {
		ec.LocationReasonCodes = s.LocationReasonCodes
	}
	if len(s.PatternReasonCodes) > 0 {
		ec.PatternReasonCodes = s.PatternReasonCodes
	}
	if len(s.AmountRanges) > 0 {
		ec.AmountRanges = make([]aggregation.AmountRange, 0, len(s.AmountRanges))
		for i, r := range s.AmountRanges {
			lower, err := parseAmount(r.Lower)
			if err != nil {
				return aggregation.Config{}, fmt.Errorf("engine.amount_ranges[%d].lower: %w", i, err)
			}
			ar := aggregation.AmountRange{Label: r.Label, Lower: lower}
			if strings.TrimSpace(r.Upper) != "" {
				upper, err := decimal.NewFromString(strings.TrimSpace(r.Upper))
				if err != nil {
					return aggregation.Config{}, fmt.Errorf("engine.amount_ranges[%d].upper: %w", i, err)
				}
				ar.Upper = &upper
			}
			ec.AmountRanges = append(ec.AmountRanges, ar)
		}
	}

	if err := ec.Validate(); err != nil {
		return aggregation.Config{}, err
	}
	return ec, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
