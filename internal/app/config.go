package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/ozanyurt/order-discounts/internal/domain/discount"
)

// Config holds the complete application configuration, loadable from
// environment variables (ORDERS_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (ORDERS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Rules       RulesConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// RulesConfig holds the fixed numeric parameters of the discount rules.
// Defaults reproduce the standard promotion set: buy 6 get 1 free in
// category 2, 20% off the cheapest product when buying 2+ from category 1,
// and 10% off orders of 1000 or more.
type RulesConfig struct {
	Bundle    BundleRuleConfig
	Cheapest  CheapestRuleConfig
	Threshold ThresholdRuleConfig
}

// BundleRuleConfig parameterizes the buy-N-get-M-free rule.
type BundleRuleConfig struct {
	Category string `default:"2" usage:"Category id for the bundle rule"`
	Buy      int    `default:"6" usage:"Units to buy per bundle"`
	Free     int    `default:"1" usage:"Free units granted per bundle"`
}

// CheapestRuleConfig parameterizes the cheapest-in-category percent rule.
type CheapestRuleConfig struct {
	Category    string  `default:"1"   usage:"Category id for the cheapest-product rule"`
	MinQuantity int     `default:"2"   usage:"Minimum units from the category" flag:"cheapest-min-quantity"`
	Percent     float64 `default:"0.2" usage:"Discount fraction in [0,1] for the cheapest product"`
}

// ThresholdRuleConfig parameterizes the order-total threshold rule.
type ThresholdRuleConfig struct {
	Amount  float64 `default:"1000" usage:"Minimum order total for the threshold rule"`
	Percent float64 `default:"0.1"  usage:"Discount fraction in [0,1] for the whole order"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and platform defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "ORDERS",
		Files:     []string{"config.yaml", "/etc/order-discounts/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set ORDERS_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// BuildRules constructs the immutable rule set in its default application
// order: bundle, cheapest-in-category, order-total threshold. Invalid
// parameters fail here, before the engine ever runs.
func (c *RulesConfig) BuildRules() ([]discount.Rule, error) {
	bundle, err := discount.NewBundleRule(c.Bundle.Category, c.Bundle.Buy, c.Bundle.Free)
	if err != nil {
		return nil, errors.Wrap(err, "bundle rule config")
	}
	cheapest, err := discount.NewCheapestInCategoryRule(
		c.Cheapest.Category, c.Cheapest.MinQuantity, decimal.NewFromFloat(c.Cheapest.Percent),
	)
	if err != nil {
		return nil, errors.Wrap(err, "cheapest rule config")
	}
	threshold, err := discount.NewTotalThresholdRule(
		decimal.NewFromFloat(c.Threshold.Amount), decimal.NewFromFloat(c.Threshold.Percent),
	)
	if err != nil {
		return nil, errors.Wrap(err, "threshold rule config")
	}
	return []discount.Rule{bundle, cheapest, threshold}, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and
// PORT to the application's ORDERS_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
