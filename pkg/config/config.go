package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Store     StoreConfig
	Scenario  ScenarioConfig
	Scheduler SchedulerConfig
	DemandAPI DemandAPIConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers      []string
	TopicUpdates string
}

// StoreConfig bounds the queries issued against the forecast store.
type StoreConfig struct {
	ForecastTable    string
	ConsumptionTable string
	QueryTimeout     time.Duration
	MaxRows          int
	LookbackDays     int
}

type ScenarioConfig struct {
	DefaultCountry string
	SnapshotDir    string
	IssueListLimit int
}

type SchedulerConfig struct {
	ReforecastTimes []string // "HH:MM" in UTC
	RefreshInterval time.Duration
}

// DemandAPIConfig configures the alternate demand-forecast HTTP API.
type DemandAPIConfig struct {
	BaseURL        string
	TokenURL       string
	ClientID       string
	ClientSecret   string
	ForecastCurve  string
	EnsembleCurve  string
	HorizonDays    int
	RequestTimeout time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "analytics_viewer"),
			Password:        getEnv("DB_PASSWORD", ""),
			DBName:          getEnv("DB_NAME", "analytics"),
			SSLMode:         getEnv("DB_SSLMODE", "require"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 8),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 3),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:      strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicUpdates: getEnv("KAFKA_TOPIC_UPDATES", "residual.scenarios.updated"),
		},
		Store: StoreConfig{
			ForecastTable:    getEnv("STORE_FORECAST_TABLE", "silver.metdesk_forecasts"),
			ConsumptionTable: getEnv("STORE_CONSUMPTION_TABLE", "silver.eq_consumption"),
			QueryTimeout:     getEnvAsDuration("STORE_QUERY_TIMEOUT", 30*time.Second),
			MaxRows:          getEnvAsInt("STORE_MAX_ROWS", 50000),
			LookbackDays:     getEnvAsInt("STORE_LOOKBACK_DAYS", 2),
		},
		Scenario: ScenarioConfig{
			DefaultCountry: getEnv("SCENARIO_DEFAULT_COUNTRY", "FR"),
			SnapshotDir:    getEnv("SCENARIO_SNAPSHOT_DIR", "data"),
			IssueListLimit: getEnvAsInt("SCENARIO_ISSUE_LIST_LIMIT", 10),
		},
		Scheduler: SchedulerConfig{
			ReforecastTimes: strings.Split(getEnv("SCHEDULER_REFORECAST_TIMES", "06:00,12:00,18:00"), ","),
			RefreshInterval: getEnvAsDuration("SCHEDULER_REFRESH_INTERVAL", time.Hour),
		},
		DemandAPI: DemandAPIConfig{
			BaseURL:        getEnv("DEMAND_API_BASE_URL", "https://api.volueinsight.com/api"),
			TokenURL:       getEnv("DEMAND_API_TOKEN_URL", "https://auth.volueinsight.com/oauth2/token"),
			ClientID:       getEnv("DEMAND_API_CLIENT_ID", ""),
			ClientSecret:   getEnv("DEMAND_API_CLIENT_SECRET", ""),
			ForecastCurve:  getEnv("DEMAND_API_FORECAST_CURVE", "pro fr demand mwh/h cet h f"),
			EnsembleCurve:  getEnv("DEMAND_API_ENSEMBLE_CURVE", "pro fr demand mwh/h cet h ec00ens"),
			HorizonDays:    getEnvAsInt("DEMAND_API_HORIZON_DAYS", 14),
			RequestTimeout: getEnvAsDuration("DEMAND_API_REQUEST_TIMEOUT", 30*time.Second),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
