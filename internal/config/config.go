package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the variable holding an optional YAML config path.
const ConfigFileEnv = "ROLEADMIN_CONFIG"

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	Database  DatabaseConfig  `yaml:"database" json:"database"`
	JWT       JWTConfig       `yaml:"jwt" json:"jwt"`
	Redis     RedisConfig     `yaml:"redis" json:"redis"`
	S3        S3Config        `yaml:"s3" json:"s3"`
	Worker    WorkerConfig    `yaml:"worker" json:"worker"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Schedule  ScheduleConfig  `yaml:"schedule" json:"schedule"`
	Admin     AdminConfig     `yaml:"admin" json:"admin"`
}

type ServerConfig struct {
	Host      string `yaml:"host" json:"host"`
	Port      int    `yaml:"port" json:"port"`
	PublicURL string `yaml:"public_url" json:"public_url"`
	// RequestsPerSecond feeds echo's in-memory limiter on the whole API. 0 disables it.
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	Debug             bool    `yaml:"debug" json:"debug"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"-"`
	Name     string `yaml:"name" json:"name"`
	SSLMode  string `yaml:"sslmode" json:"sslmode"`
}

// DSN is the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

type JWTConfig struct {
	Secret string `yaml:"secret" json:"-"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"-"`
	Username string `yaml:"username" json:"username"`
	DB       int    `yaml:"db" json:"db"`
}

type S3Config struct {
	BucketName string `yaml:"bucket_name" json:"bucket_name"`
	Endpoint   string `yaml:"endpoint" json:"endpoint"`
	Region     string `yaml:"region" json:"region"`
	AccessKey  string `yaml:"access_key" json:"-"`
	SecretKey  string `yaml:"secret_key" json:"-"`
}

// Enabled reports whether transaction archiving has a bucket to write to.
func (s S3Config) Enabled() bool {
	return s.BucketName != ""
}

type WorkerConfig struct {
	Concurrency int `yaml:"concurrency" json:"concurrency"`
}

// RateLimitConfig bounds mutating admin requests per actor with a redis sliding window.
type RateLimitConfig struct {
	Enabled       bool `yaml:"enabled" json:"enabled"`
	Requests      int  `yaml:"requests" json:"requests"`
	WindowSeconds int  `yaml:"window_seconds" json:"window_seconds"`
}

func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// ScheduleConfig holds cron specs for the periodic tasks. An empty spec disables the task.
type ScheduleConfig struct {
	Refill   string `yaml:"refill" json:"refill"`
	Archive  string `yaml:"archive" json:"archive"`
	Timezone string `yaml:"timezone" json:"timezone"`
}

// AdminConfig names the account promoted to ADMIN by migrate.
type AdminConfig struct {
	Email string `yaml:"email" json:"email"`
}

var (
	config *Config
	once   sync.Once
)

// GetConfig returns the singleton config instance
func GetConfig() *Config {
	once.Do(func() {
		cfg, err := Load()
		if err != nil {
			cfg = defaults()
		}
		config = cfg
	})
	return config
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "localhost",
			Port:      8080,
			PublicURL: "http://localhost:8080",
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "roleadmin",
			SSLMode: "disable",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Worker: WorkerConfig{
			Concurrency: 5,
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			Requests:      60,
			WindowSeconds: 60,
		},
		Schedule: ScheduleConfig{
			Refill:   "@every 1m",
			Archive:  "5 0 * * *",
			Timezone: "UTC",
		},
	}
}

// Load builds the config from defaults, then the YAML file named by
// ROLEADMIN_CONFIG when set, then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsInt("SERVER_PORT", c.Server.Port)
	c.Server.PublicURL = getEnv("PUBLIC_URL", c.Server.PublicURL)
	c.Server.RequestsPerSecond = getEnvAsFloat("SERVER_REQUESTS_PER_SECOND", c.Server.RequestsPerSecond)
	c.Server.Debug = getEnvAsBool("DEBUG", c.Server.Debug)

	c.Database.Host = getEnv("POSTGRES_HOST", c.Database.Host)
	c.Database.Port = getEnvAsInt("POSTGRES_PORT", c.Database.Port)
	c.Database.User = getEnv("POSTGRES_USER", c.Database.User)
	c.Database.Password = getEnv("POSTGRES_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("POSTGRES_DB", c.Database.Name)
	c.Database.SSLMode = getEnv("POSTGRES_SSLMODE", c.Database.SSLMode)

	c.JWT.Secret = getEnv("JWT_SECRET", c.JWT.Secret)

	if host, ok := os.LookupEnv("REDIS_HOST"); ok {
		c.Redis.Addr = fmt.Sprintf("%s:%d", host, getEnvAsInt("REDIS_PORT", 6379))
	}
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.Username = getEnv("REDIS_USERNAME", c.Redis.Username)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)

	c.S3.BucketName = getEnv("S3_BUCKET_NAME", c.S3.BucketName)
	c.S3.Endpoint = getEnv("S3_ENDPOINT", c.S3.Endpoint)
	c.S3.Region = getEnv("S3_REGION", c.S3.Region)
	c.S3.AccessKey = getEnv("S3_ACCESS_KEY", c.S3.AccessKey)
	c.S3.SecretKey = getEnv("S3_SECRET_KEY", c.S3.SecretKey)

	c.Worker.Concurrency = getEnvAsInt("WORKER_CONCURRENCY", c.Worker.Concurrency)

	c.RateLimit.Enabled = getEnvAsBool("RATE_LIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.Requests = getEnvAsInt("RATE_LIMIT_REQUESTS", c.RateLimit.Requests)
	c.RateLimit.WindowSeconds = getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", c.RateLimit.WindowSeconds)

	c.Schedule.Refill = getEnv("SCHEDULE_REFILL", c.Schedule.Refill)
	c.Schedule.Archive = getEnv("SCHEDULE_ARCHIVE", c.Schedule.Archive)
	c.Schedule.Timezone = getEnv("SCHEDULE_TIMEZONE", c.Schedule.Timezone)

	c.Admin.Email = getEnv("ADMIN_EMAIL", c.Admin.Email)
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server port %d out of range", c.Server.Port))
	}
	if c.Worker.Concurrency < 1 {
		problems = append(problems, "worker concurrency must be at least 1")
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests < 1 || c.RateLimit.WindowSeconds < 1) {
		problems = append(problems, "rate limit needs positive requests and window_seconds")
	}
	if c.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
			problems = append(problems, fmt.Sprintf("unknown schedule timezone %q", c.Schedule.Timezone))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// Save writes the config as JSON. Secrets are omitted.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
