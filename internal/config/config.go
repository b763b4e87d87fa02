package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Bot       BotConfig
	Pricing   PricingConfig
	Referral  ReferralConfig
	Escrow    EscrowConfig
	Search    SearchConfig
	Broadcast BroadcastConfig
	Catalog   CatalogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	JWT       JWTConfig
	Argon2    Argon2Config
	Admin     AdminConfig
}

type AppConfig struct {
	Env     string
	Port    string
	LogMode string
}

type BotConfig struct {
	Name            string
	AdminIDs        []int64
	SourceChannelID int64
	AuditChatID     int64
	GatewayURL      string
	GatewayTimeout  time.Duration
	WebhookSecret   string
	AdminUsername   string
	AdminWhatsApp   string
}

// IsAdmin reports whether userID is in the configured admin list.
func (b BotConfig) IsAdmin(userID int64) bool {
	for _, id := range b.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type PricingConfig struct {
	ImageCost   decimal.Decimal
	PointValue  decimal.Decimal
	MinRecharge decimal.Decimal
	Currency    string
}

type ReferralConfig struct {
	Reward decimal.Decimal
}

type EscrowConfig struct {
	MaxPendingAge time.Duration
}

type SearchConfig struct {
	Limit  int
	Window time.Duration
}

type BroadcastConfig struct {
	Concurrency int
}

type CatalogConfig struct {
	URLHost    string
	FilePrefix string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type SessionConfig struct {
	Backend string
	TTL     time.Duration
}

type JWTConfig struct {
	SecretKey   string
	ExpiryHours int
}

type Argon2Config struct {
	Time       uint32
	Memory     uint32
	Threads    uint8
	KeyLength  uint32
	SaltLength uint32
}

type AdminConfig struct {
	PasswordHash string
}

var envBindings = map[string]string{
	"app.env":                    "APP_ENV",
	"app.port":                   "PORT",
	"app.log_mode":               "LOG_MODE",
	"bot.name":                   "BOT_NAME",
	"bot.admin_ids":              "BOT_ADMIN_IDS",
	"bot.source_channel_id":      "BOT_SOURCE_CHANNEL_ID",
	"bot.audit_chat_id":          "BOT_AUDIT_CHAT_ID",
	"bot.gateway_url":            "BOT_GATEWAY_URL",
	"bot.gateway_timeout":        "BOT_GATEWAY_TIMEOUT",
	"bot.webhook_secret":         "BOT_WEBHOOK_SECRET",
	"bot.admin_username":         "BOT_ADMIN_USERNAME",
	"bot.admin_whatsapp":         "BOT_ADMIN_WHATSAPP",
	"pricing.image_cost":         "PRICING_IMAGE_COST",
	"pricing.point_value":        "PRICING_POINT_VALUE",
	"pricing.min_recharge":       "PRICING_MIN_RECHARGE",
	"pricing.currency":           "PRICING_CURRENCY",
	"referral.reward":            "REFERRAL_REWARD",
	"escrow.max_pending_age":     "ESCROW_MAX_PENDING_AGE",
	"search.limit":               "SEARCH_LIMIT",
	"search.window":              "SEARCH_WINDOW",
	"broadcast.concurrency":      "BROADCAST_CONCURRENCY",
	"catalog.url_host":           "CATALOG_URL_HOST",
	"catalog.file_prefix":        "CATALOG_FILE_PREFIX",
	"database.driver":            "DATABASE_DRIVER",
	"database.host":              "DATABASE_HOST",
	"database.port":              "DATABASE_PORT",
	"database.user":              "DATABASE_USER",
	"database.password":          "DATABASE_PASSWORD",
	"database.name":              "DATABASE_NAME",
	"database.ssl_mode":          "DATABASE_SSL_MODE",
	"database.sqlite_path":       "DATABASE_SQLITE_PATH",
	"database.max_open_conns":    "DATABASE_MAX_OPEN_CONNS",
	"database.max_idle_conns":    "DATABASE_MAX_IDLE_CONNS",
	"database.conn_max_lifetime": "DATABASE_CONN_MAX_LIFETIME",
	"redis.enabled":              "REDIS_ENABLED",
	"redis.host":                 "REDIS_HOST",
	"redis.port":                 "REDIS_PORT",
	"redis.password":             "REDIS_PASSWORD",
	"redis.db":                   "REDIS_DB",
	"session.backend":            "SESSION_BACKEND",
	"session.ttl":                "SESSION_TTL",
	"jwt.secret_key":             "JWT_SECRET_KEY",
	"jwt.expiry_hours":           "JWT_EXPIRY_HOURS",
	"argon2.time":                "ARGON2_TIME",
	"argon2.memory":              "ARGON2_MEMORY",
	"argon2.threads":             "ARGON2_THREADS",
	"argon2.key_length":          "ARGON2_KEY_LENGTH",
	"argon2.salt_length":         "ARGON2_SALT_LENGTH",
	"admin.password_hash":        "ADMIN_PASSWORD_HASH",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.log_mode", "development")

	v.SetDefault("bot.name", "pointmart_bot")
	v.SetDefault("bot.admin_ids", "")
	v.SetDefault("bot.source_channel_id", 0)
	v.SetDefault("bot.audit_chat_id", 0)
	v.SetDefault("bot.gateway_url", "http://localhost:8081/bot")
	v.SetDefault("bot.gateway_timeout", 10*time.Second)
	v.SetDefault("bot.webhook_secret", "")
	v.SetDefault("bot.admin_username", "@pointmart_support")
	v.SetDefault("bot.admin_whatsapp", "")

	v.SetDefault("pricing.image_cost", "1")
	v.SetDefault("pricing.point_value", "10")
	v.SetDefault("pricing.min_recharge", "10")
	v.SetDefault("pricing.currency", "INR")
	v.SetDefault("referral.reward", "0.1")
	v.SetDefault("escrow.max_pending_age", 10*time.Minute)
	v.SetDefault("search.limit", 200)
	v.SetDefault("search.window", 24*time.Hour)
	v.SetDefault("broadcast.concurrency", 16)
	v.SetDefault("catalog.url_host", "shutterstock.com")
	v.SetDefault("catalog.file_prefix", "shutterstock_")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "pointmart")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.sqlite_path", "pointmart.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl", 24*time.Hour)

	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.expiry_hours", 12)

	v.SetDefault("argon2.time", 1)
	v.SetDefault("argon2.memory", 64*1024)
	v.SetDefault("argon2.threads", 4)
	v.SetDefault("argon2.key_length", 32)
	v.SetDefault("argon2.salt_length", 16)

	v.SetDefault("admin.password_hash", "")
}

// Load reads configFile (a .env file by default) and the environment.
// A missing config file is not an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile == "" {
		configFile = ".env"
	}
	v.SetConfigFile(configFile)
	v.SetConfigType("env")
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// .env keys are flat (DATABASE_HOST); lift them under their dotted
	// names so the environment can still override them.
	for key, env := range envBindings {
		if fileKey := strings.ToLower(env); v.InConfig(fileKey) {
			v.SetDefault(key, v.Get(fileKey))
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	adminIDs, err := parseIDList(v.GetString("bot.admin_ids"))
	if err != nil {
		return nil, fmt.Errorf("bot.admin_ids: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			LogMode: v.GetString("app.log_mode"),
		},
		Bot: BotConfig{
			Name:            v.GetString("bot.name"),
			AdminIDs:        adminIDs,
			SourceChannelID: v.GetInt64("bot.source_channel_id"),
			AuditChatID:     v.GetInt64("bot.audit_chat_id"),
			GatewayURL:      strings.TrimRight(v.GetString("bot.gateway_url"), "/"),
			GatewayTimeout:  v.GetDuration("bot.gateway_timeout"),
			WebhookSecret:   v.GetString("bot.webhook_secret"),
			AdminUsername:   v.GetString("bot.admin_username"),
			AdminWhatsApp:   v.GetString("bot.admin_whatsapp"),
		},
		Pricing: PricingConfig{Currency: v.GetString("pricing.currency")},
		Escrow:  EscrowConfig{MaxPendingAge: v.GetDuration("escrow.max_pending_age")},
		Search: SearchConfig{
			Limit:  v.GetInt("search.limit"),
			Window: v.GetDuration("search.window"),
		},
		Broadcast: BroadcastConfig{Concurrency: v.GetInt("broadcast.concurrency")},
		Catalog: CatalogConfig{
			URLHost:    v.GetString("catalog.url_host"),
			FilePrefix: v.GetString("catalog.file_prefix"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("database.driver")),
			Host:            v.GetString("database.host"),
			Port:            v.GetString("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.ssl_mode"),
			SQLitePath:      v.GetString("database.sqlite_path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetString("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Session: SessionConfig{
			Backend: strings.ToLower(v.GetString("session.backend")),
			TTL:     v.GetDuration("session.ttl"),
		},
		JWT: JWTConfig{
			SecretKey:   v.GetString("jwt.secret_key"),
			ExpiryHours: v.GetInt("jwt.expiry_hours"),
		},
		Argon2: Argon2Config{
			Time:       v.GetUint32("argon2.time"),
			Memory:     v.GetUint32("argon2.memory"),
			Threads:    uint8(v.GetUint("argon2.threads")),
			KeyLength:  v.GetUint32("argon2.key_length"),
			SaltLength: v.GetUint32("argon2.salt_length"),
		},
		Admin: AdminConfig{PasswordHash: v.GetString("admin.password_hash")},
	}

	decimals := map[string]*decimal.Decimal{
		"pricing.image_cost":   &cfg.Pricing.ImageCost,
		"pricing.point_value":  &cfg.Pricing.PointValue,
		"pricing.min_recharge": &cfg.Pricing.MinRecharge,
		"referral.reward":      &cfg.Referral.Reward,
	}
	for key, dst := range decimals {
		d, err := decimal.NewFromString(v.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("session.backend must be memory or redis, got %q", c.Session.Backend)
	}
	if !c.Pricing.ImageCost.IsPositive() {
		return errors.New("pricing.image_cost must be positive")
	}
	if c.Referral.Reward.IsNegative() {
		return errors.New("referral.reward must not be negative")
	}
	if c.Escrow.MaxPendingAge <= 0 {
		return errors.New("escrow.max_pending_age must be positive")
	}
	if c.Broadcast.Concurrency < 1 {
		return errors.New("broadcast.concurrency must be at least 1")
	}
	return nil
}

// parseIDList parses "1, 2,3" into ids.
func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Defaults returns the configuration with every default applied and
// nothing read from files or the environment.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := fromViper(v)
	if err != nil {
		panic(err)
	}
	return cfg
}
