package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	Cron       CronConfig       `mapstructure:"cron"`
	MarketData MarketDataConfig `mapstructure:"market_data"`
	Fx         FxConfig         `mapstructure:"fx"`
	Pricing    PricingConfig    `mapstructure:"pricing"`
	Snapshot   SnapshotConfig   `mapstructure:"snapshot"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	DailySnapshot string `mapstructure:"daily_snapshot"`
}

type MarketDataConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type FxConfig struct {
	PrimaryBaseURL   string        `mapstructure:"primary_base_url"`
	PrimaryAPIKeyEnv string        `mapstructure:"primary_api_key_env"`
	SecondaryBaseURL string        `mapstructure:"secondary_base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Currencies       []string      `mapstructure:"currencies"`
}

type PricingConfig struct {
	ForwardToleranceDays int           `mapstructure:"forward_tolerance_days"`
	CoverageThreshold    float64       `mapstructure:"coverage_threshold"`
	FetchTimeout         time.Duration `mapstructure:"fetch_timeout"`
}

type SnapshotConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Timezone          string        `mapstructure:"timezone"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
	BenchmarkTicker   string        `mapstructure:"benchmark_ticker"`
	BenchmarkLabel    string        `mapstructure:"benchmark_label"`
	BenchmarkCurrency string        `mapstructure:"benchmark_currency"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.daily_snapshot", "0 0 6 * * *")
	v.SetDefault("market_data.base_url", "https://query2.finance.yahoo.com")
	v.SetDefault("market_data.timeout", "15s")
	v.SetDefault("fx.primary_base_url", "https://api.exchangeratesapi.io/v1")
	v.SetDefault("fx.primary_api_key_env", "VE_FX_API_KEY")
	v.SetDefault("fx.secondary_base_url", "https://query2.finance.yahoo.com")
	v.SetDefault("fx.timeout", "8s")
	v.SetDefault("fx.currencies", []string{"USD", "GBP"})
	v.SetDefault("pricing.forward_tolerance_days", 4)
	v.SetDefault("pricing.coverage_threshold", 0.7)
	v.SetDefault("pricing.fetch_timeout", "10s")
	v.SetDefault("snapshot.enabled", true)
	v.SetDefault("snapshot.timezone", "Europe/Madrid")
	v.SetDefault("snapshot.fetch_timeout", "10s")
	v.SetDefault("snapshot.benchmark_ticker", "^GSPC")
	v.SetDefault("snapshot.benchmark_label", "S&P 500")
	v.SetDefault("snapshot.benchmark_currency", "USD")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
