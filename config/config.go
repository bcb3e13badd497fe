package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type JWTConfig struct {
	SecretKey string `mapstructure:"secretKey"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
}

type GenerationConfig struct {
	Models             []string      `mapstructure:"models"`
	APIKeys            []string      `mapstructure:"apiKeys"`
	MaxAttempts        int           `mapstructure:"maxAttempts"`
	RetryDelay         time.Duration `mapstructure:"retryDelay"`
	RateLimitBackoff   time.Duration `mapstructure:"rateLimitBackoff"`
	MaxRateLimitWaits  int           `mapstructure:"maxRateLimitWaits"`
	ModelTimeout       time.Duration `mapstructure:"modelTimeout"`
	Temperature        float32       `mapstructure:"temperature"`
	Strict             bool          `mapstructure:"strict"`
	DefaultInterests   string        `mapstructure:"defaultInterests"`
	MaxDuration        int           `mapstructure:"maxDuration"`
	JitterDegrees      float64       `mapstructure:"jitterDegrees"`
	PlaceLookupDelay   time.Duration `mapstructure:"placeLookupDelay"`
	RecordInteractions bool          `mapstructure:"recordInteractions"`
	InteractionTimeout time.Duration `mapstructure:"interactionTimeout"`
	SequenceKey        string        `mapstructure:"sequenceKey"`
}

type PlacesConfig struct {
	EnrichmentEnabled bool          `mapstructure:"enrichmentEnabled"`
	HTTPTimeout       time.Duration `mapstructure:"httpTimeout"`
	CacheTTL          time.Duration `mapstructure:"cacheTTL"`
	TripAdvisor       struct {
		BaseURL  string `mapstructure:"baseURL"`
		APIKey   string `mapstructure:"apiKey"`
		Language string `mapstructure:"language"`
		Currency string `mapstructure:"currency"`
	} `mapstructure:"tripadvisor"`
	Nominatim struct {
		BaseURL   string `mapstructure:"baseURL"`
		UserAgent string `mapstructure:"userAgent"`
	} `mapstructure:"nominatim"`
}

type Config struct {
	Mode         string `mapstructure:"mode"`
	Dotenv       string `mapstructure:"dotenv"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
		Redis struct {
			Addr     string `mapstructure:"addr"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
			Prefix   string `mapstructure:"prefix"`
		} `mapstructure:"redis"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort       string        `mapstructure:"HTTPPort"`
		Timeout        time.Duration `mapstructure:"HTTPTimeout"`
		RequestTimeout time.Duration `mapstructure:"requestTimeout"`
		AllowedOrigins []string      `mapstructure:"allowedOrigins"`
	} `mapstructure:"server"`
	JWT           JWTConfig        `mapstructure:"jwt"`
	Generation    GenerationConfig `mapstructure:"generation"`
	Places        PlacesConfig     `mapstructure:"places"`
	Observability struct {
		ServiceName string `mapstructure:"serviceName"`
		MetricsPort string `mapstructure:"metricsPort"`
	} `mapstructure:"observability"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Env vars override file values, e.g. GENERATION_APIKEYS="k1,k2".
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	config.applyDefaults()
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

// applyDefaults fills zero values the pipeline cannot run without.
func (c *Config) applyDefaults() {
	g := &c.Generation
	if g.MaxAttempts <= 0 {
		g.MaxAttempts = 3
	}
	if g.RetryDelay <= 0 {
		g.RetryDelay = time.Second
	}
	if g.RateLimitBackoff <= 0 {
		g.RateLimitBackoff = 2 * time.Second
	}
	if g.MaxRateLimitWaits <= 0 {
		g.MaxRateLimitWaits = 3
	}
	if g.ModelTimeout <= 0 {
		g.ModelTimeout = 90 * time.Second
	}
	if g.DefaultInterests == "" {
		g.DefaultInterests = "General sightseeing"
	}
	if g.MaxDuration <= 0 {
		g.MaxDuration = 14
	}
	if g.JitterDegrees <= 0 {
		g.JitterDegrees = 0.015
	}
	if g.InteractionTimeout <= 0 {
		g.InteractionTimeout = 5 * time.Second
	}
	if g.SequenceKey == "" {
		g.SequenceKey = "generation:sequence"
	}
	if c.Places.HTTPTimeout <= 0 {
		c.Places.HTTPTimeout = 10 * time.Second
	}
	if c.Places.CacheTTL <= 0 {
		c.Places.CacheTTL = 24 * time.Hour
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 5 * time.Minute
	}
}
