package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"medcenter/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Booking    BookingConfig    `yaml:"booking"`
	Wizard     WizardConfig     `yaml:"wizard"`
	Payments   PaymentsConfig   `yaml:"payments"`
	Messaging  MessagingConfig  `yaml:"messaging"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
	Bot        BotConfig        `yaml:"bot"`
	PagesPath  string           `yaml:"pages_path"`
	Catalog    string           `yaml:"catalog_path"`
}

type BotConfig struct {
	// APIBaseURL адрес REST API, через который бот создаёт записи
	APIBaseURL        string `yaml:"api_base_url"`
	APIKey            string `yaml:"api_key"`
	StaffChatID       int64  `yaml:"staff_chat_id"`
	RateLimitMessages int    `yaml:"rate_limit_messages"`
	RateLimitWindow   int    `yaml:"rate_limit_window"`
}

type BookingConfig struct {
	ServiceTypes   []string `yaml:"service_types"`
	TimeSlots      []string `yaml:"time_slots"`
	MaxBookingDays int      `yaml:"max_booking_days"`
	ListingRoute   string   `yaml:"listing_route"`
	Timezone       string   `yaml:"timezone"`
}

type WizardConfig struct {
	SessionTTL int `yaml:"session_ttl"`
}

type PaymentsConfig struct {
	Methods         []string `yaml:"methods"`
	DeclineSuffix   string   `yaml:"decline_suffix"`
	ReferencePrefix string   `yaml:"reference_prefix"`
}

type MessagingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	CORS      APICORSConfig      `yaml:"cors"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled    bool         `yaml:"enabled"`
	Port       int          `yaml:"port"`
	Reflection bool         `yaml:"reflection"`
	TLS        APITLSConfig `yaml:"tls"`
}

type APITLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`

	// BookingsPerMinute ограничивает создание записей с одного IP
	BookingsPerMinute int `yaml:"bookings_per_minute"`
}

type APICORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type GoogleConfig struct {
	CredentialsFile          string `yaml:"credentials_file"`
	AppointmentSpreadsheetID string `yaml:"appointments_spreadsheet_id"`
}

// Load читает YAML, подставляя переменные окружения. .env подхватывается,
// если он есть рядом с бинарником.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Booking.MaxBookingDays < 0 {
		return errors.New("booking.max_booking_days must not be negative")
	}
	if err := validateUnique("booking.time_slots", c.Booking.TimeSlots); err != nil {
		return err
	}
	if err := validateUnique("booking.service_types", c.Booking.ServiceTypes); err != nil {
		return err
	}
	if c.Messaging.Enabled && c.Messaging.URL == "" {
		return errors.New("messaging.url is required when messaging is enabled")
	}
	return nil
}

// ValidateBot проверяет то, что нужно только процессу бота.
func (c *Config) ValidateBot() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}
	if c.Bot.APIBaseURL == "" {
		return errors.New("bot.api_base_url is required")
	}
	return nil
}

func validateUnique(field string, values []string) error {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			return fmt.Errorf("%s contains an empty value", field)
		}
		if seen[v] {
			return fmt.Errorf("duplicate value in %s: %q", field, v)
		}
		seen[v] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 20
	}
	if c.API.RateLimit.BookingsPerMinute == 0 {
		c.API.RateLimit.BookingsPerMinute = 30
	}
	if len(c.API.CORS.AllowedOrigins) == 0 {
		c.API.CORS.AllowedOrigins = []string{"*"}
	}

	if len(c.Booking.ServiceTypes) == 0 {
		c.Booking.ServiceTypes = models.DefaultServiceTypes
	}
	if len(c.Booking.TimeSlots) == 0 {
		c.Booking.TimeSlots = models.DefaultTimeSlots
	}
	if c.Booking.MaxBookingDays == 0 {
		c.Booking.MaxBookingDays = models.DefaultMaxBookingDays
	}
	if c.Booking.ListingRoute == "" {
		c.Booking.ListingRoute = models.DefaultListingRoute
	}
	if c.Wizard.SessionTTL == 0 {
		c.Wizard.SessionTTL = models.DefaultSessionTTL
	}

	if len(c.Payments.Methods) == 0 {
		c.Payments.Methods = []string{models.PaymentMethodCard, models.PaymentMethodUPI, models.PaymentMethodCash}
	}
	if c.Payments.DeclineSuffix == "" {
		c.Payments.DeclineSuffix = "0000"
	}
	if c.Payments.ReferencePrefix == "" {
		c.Payments.ReferencePrefix = "PAY"
	}
	if c.Messaging.Exchange == "" {
		c.Messaging.Exchange = "medcenter.events"
	}

	if c.Bot.RateLimitMessages == 0 {
		c.Bot.RateLimitMessages = models.ContactRateLimitMessages
	}
	if c.Bot.RateLimitWindow == 0 {
		c.Bot.RateLimitWindow = models.ContactRateLimitWindow
	}
	if c.PagesPath == "" {
		c.PagesPath = "configs/pages.yaml"
	}
	if c.Catalog == "" {
		c.Catalog = "configs/catalog.yaml"
	}
}
