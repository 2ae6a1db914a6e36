package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Browser BrowserConfig
	Scraper ScraperConfig
	Redis   RedisConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type BrowserConfig struct {
	Headless          bool
	ViewportWidth     int
	ViewportHeight    int
	Locale            string
	AcceptLanguage    string
	UserAgent         string
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
}

type ScraperConfig struct {
	TargetURL        string
	DefaultRegion    string
	DefaultTimeRange string
	RowWaitTimeout   time.Duration
	MinProductLength int
	ConcurrentLimit  int
	RateLimitMin     time.Duration
	RateLimitMax     time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

// Enabled reports whether scrape results should be published to Redis.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type LoggingConfig struct {
	Level  string
	Format string
}

const DefaultTargetURL = "https://ads.tiktok.com/business/creativecenter/top-products/pc/en"

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvInt("PORT", 8080),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Browser: BrowserConfig{
			Headless:          getEnvBool("BROWSER_HEADLESS", true),
			ViewportWidth:     getEnvInt("BROWSER_VIEWPORT_WIDTH", 1365),
			ViewportHeight:    getEnvInt("BROWSER_VIEWPORT_HEIGHT", 768),
			Locale:            getEnv("BROWSER_LOCALE", "pt-BR"),
			AcceptLanguage:    getEnv("BROWSER_ACCEPT_LANGUAGE", "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7"),
			UserAgent:         getEnv("BROWSER_USER_AGENT", defaultUserAgent),
			NavigationTimeout: getEnvDuration("BROWSER_NAVIGATION_TIMEOUT", 120*time.Second),
			SettleDelay:       getEnvDuration("BROWSER_SETTLE_DELAY", 1500*time.Millisecond),
		},
		Scraper: ScraperConfig{
			TargetURL:        getEnv("SCRAPER_TARGET_URL", DefaultTargetURL),
			DefaultRegion:    getEnv("SCRAPER_DEFAULT_REGION", "Brasil"),
			DefaultTimeRange: getEnv("SCRAPER_DEFAULT_TIME_RANGE", "Últimos 7 dias"),
			RowWaitTimeout:   getEnvDuration("SCRAPER_ROW_WAIT_TIMEOUT", 60*time.Second),
			MinProductLength: getEnvInt("SCRAPER_MIN_PRODUCT_LENGTH", 2),
			ConcurrentLimit:  getEnvInt("SCRAPER_CONCURRENT_LIMIT", 2),
			RateLimitMin:     getEnvDuration("SCRAPER_RATE_LIMIT_MIN", 0),
			RateLimitMax:     getEnvDuration("SCRAPER_RATE_LIMIT_MAX", 0),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Stream:   getEnv("REDIS_STREAM", "stream:creative_center_top_products"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Scraper.TargetURL == "" {
		return fmt.Errorf("SCRAPER_TARGET_URL is required")
	}

	if c.Scraper.RowWaitTimeout <= 0 {
		return fmt.Errorf("SCRAPER_ROW_WAIT_TIMEOUT must be positive")
	}

	if c.Scraper.MinProductLength < 1 {
		return fmt.Errorf("SCRAPER_MIN_PRODUCT_LENGTH must be at least 1")
	}

	if c.Scraper.ConcurrentLimit < 1 {
		return fmt.Errorf("SCRAPER_CONCURRENT_LIMIT must be at least 1")
	}

	if c.Scraper.RateLimitMin > c.Scraper.RateLimitMax {
		return fmt.Errorf("SCRAPER_RATE_LIMIT_MIN cannot be greater than SCRAPER_RATE_LIMIT_MAX")
	}

	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("invalid viewport: %dx%d", c.Browser.ViewportWidth, c.Browser.ViewportHeight)
	}

	if c.Redis.Enabled() && c.Redis.Stream == "" {
		return fmt.Errorf("REDIS_STREAM is required when REDIS_ADDR is set")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported LOG_FORMAT: %s", c.Logging.Format)
	}

	return nil
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
