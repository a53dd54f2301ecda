package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// PostgreSQL
	Postgres PostgresConfig `mapstructure:"postgres"`

	// Redis
	Redis RedisConfig `mapstructure:"redis"`

	// NATS
	NATS NATSConfig `mapstructure:"nats"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`

	// Booking / scheduling behaviour
	Booking BookingConfig `mapstructure:"booking"`

	// Calendar provider
	Calendar CalendarConfig `mapstructure:"calendar"`

	// CRM record store
	CRM CRMConfig `mapstructure:"crm"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Port     int    `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   string `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   string `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod string `mapstructure:"health_check_period"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	MonitorPort int    `mapstructure:"monitor_port"`
}

type PrometheusConfig struct {
	Port           int    `mapstructure:"port"`
	Retention      string `mapstructure:"retention"`
	ScrapeInterval string `mapstructure:"scrape_interval"`
	Target         string `mapstructure:"target"`
}

// BookingConfig drives slot proposal and confirmation behaviour.
type BookingConfig struct {
	// BaseURL is the public origin used when building booking and short links.
	BaseURL string `mapstructure:"base_url"`

	// Timezone is the fixed zone meetings are proposed and displayed in.
	Timezone string `mapstructure:"timezone"`

	// WorkdayStartHour and WorkdayEndHour bound the working-hours band (24h clock).
	WorkdayStartHour int `mapstructure:"workday_start_hour"`
	WorkdayEndHour   int `mapstructure:"workday_end_hour"`

	// SlotMinutes is the meeting length offered to leads.
	SlotMinutes int `mapstructure:"slot_minutes"`

	// InviteCustomer controls whether the customer email is added as an
	// attendee on the created calendar event. The current rollout invites
	// the organizer only, so this defaults to false.
	InviteCustomer bool `mapstructure:"invite_customer"`

	OrganizerEmail string `mapstructure:"organizer_email"`
	OrganizerName  string `mapstructure:"organizer_name"`
}

type CalendarConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	CalendarID     string `mapstructure:"calendar_id"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type CRMConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Allow environment variables to override YAML entries.
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Preserve legacy env variable names.
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("booking.base_url", "http://localhost:8080")
	v.SetDefault("booking.timezone", "Europe/Oslo")
	v.SetDefault("booking.workday_start_hour", 9)
	v.SetDefault("booking.workday_end_hour", 16)
	v.SetDefault("booking.slot_minutes", 30)
	v.SetDefault("booking.invite_customer", false)
	v.SetDefault("calendar.timeout_seconds", 5)
	v.SetDefault("crm.timeout_seconds", 5)
}

func bindEnvVars(v *viper.Viper) {
	// PostgreSQL
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")
	v.BindEnv("nats.monitor_port", "NATS_MONITOR_PORT")

	// Prometheus
	v.BindEnv("prometheus.port", "PROM_PORT")
	v.BindEnv("prometheus.retention", "PROM_RETENTION")
	v.BindEnv("prometheus.scrape_interval", "PROM_SCRAPE_INTERVAL")
	v.BindEnv("prometheus.target", "PROM_TARGET")

	// Booking
	v.BindEnv("booking.base_url", "BOOKING_BASE_URL")
	v.BindEnv("booking.timezone", "BOOKING_TIMEZONE")
	v.BindEnv("booking.invite_customer", "BOOKING_INVITE_CUSTOMER")
	v.BindEnv("booking.organizer_email", "ORGANIZER_EMAIL")
	v.BindEnv("booking.organizer_name", "ORGANIZER_NAME")

	// Calendar provider
	v.BindEnv("calendar.base_url", "CALENDAR_BASE_URL")
	v.BindEnv("calendar.api_key", "CALENDAR_API_KEY")
	v.BindEnv("calendar.calendar_id", "CALENDAR_ID")

	// CRM
	v.BindEnv("crm.base_url", "CRM_BASE_URL")
	v.BindEnv("crm.api_key", "CRM_API_KEY")
}
