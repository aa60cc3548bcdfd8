package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"slack-connect/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	Database    Database    `json:"database"`
	App         App         `json:"app"`
	RedisClient RedisClient `json:"redisClient"`
	Slack       Slack       `json:"slack"`
	Scheduler   Scheduler   `json:"scheduler"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	Cors        Cors        `json:"cors"`
}

type App struct {
	Port        int    `json:"port"`
	SecretKey   string `json:"secretKey"`
	TLSEnabled  bool   `json:"tlsEnabled"`
	TLSCertFile string `json:"tlsCertFile"`
	TLSKeyFile  string `json:"tlsKeyFile"`
	FrontendURL string `json:"frontendURL"`
}

type Database struct {
	// Vendor selects the store backend: postgres (default), mssql or memory.
	Vendor string `json:"vendor"`
	Psql   Db     `json:"psql"`
	Mssql  Db     `json:"mssql"`
	Mongo  Mongo  `json:"mongo"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	SSLMode  string `json:"sslMode"`
}

type Mongo struct {
	URI        string `json:"uri"`
	Name       string `json:"name"`
	Collection string `json:"collection"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	Username string `json:"username"`
	// ChannelCacheTTLSeconds bounds how long a channel listing is served from cache.
	ChannelCacheTTLSeconds int `json:"channelCacheTTLSeconds"`
}

type Slack struct {
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	RedirectURI  string   `json:"redirectURI"`
	Scopes       []string `json:"scopes"`
	// APIURL overrides https://slack.com/api/ (tests, proxies).
	APIURL string `json:"apiURL"`
}

type Scheduler struct {
	Enabled                 *bool `json:"enabled"`
	TickIntervalSeconds     int   `json:"tickIntervalSeconds"`
	RefreshThresholdSeconds int   `json:"refreshThresholdSeconds"`
	RequestTimeoutSeconds   int   `json:"requestTimeoutSeconds"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

type Cors struct {
	AllowOrigins []string `json:"allowOrigins"`
}

var DefaultSlackScopes = []string{
	"channels:read",
	"channels:history",
	"chat:write",
	"chat:write.public",
	"groups:read",
	"im:read",
	"mpim:read",
}

var C Config

func init() {
	Reload()
}

// Reload rebuilds C from the config file and the current environment.
func Reload() {
	C = Config{}
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initSlack(&C)
	initScheduler(&C)
	initIntegrations(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	if v := os.Getenv("DB_VENDOR"); v != "" {
		C.Database.Vendor = v
	}
	if C.Database.Vendor == "" {
		env := os.Getenv("ENV")
		if env == "production" || env == "prod" {
			C.Database.Vendor = "mssql"
		} else {
			C.Database.Vendor = "postgres"
		}
	}
	C.Database.Vendor = strings.ToLower(C.Database.Vendor)

	C.Database.Psql.Name = getConfigValue(C.Database.Psql.Name, "DB_NAME", "slack_connect")
	C.Database.Psql.Host = getConfigValue(C.Database.Psql.Host, "DB_HOST", "localhost")
	C.Database.Psql.Port = getConfigValue(C.Database.Psql.Port, "DB_PORT", "5432")
	C.Database.Psql.User = getConfigValue(C.Database.Psql.User, "DB_USER", "postgres")
	C.Database.Psql.Password = getConfigValue(C.Database.Psql.Password, "DB_PASSWORD", "")
	C.Database.Psql.SSLMode = getConfigValue(C.Database.Psql.SSLMode, "DB_SSLMODE", "disable")

	// Optional MSSQL config via environment variables (for Azure SQL in production)
	C.Database.Mssql.Name = getConfigValue(C.Database.Mssql.Name, "MSSQL_DB_NAME", "slack_connect")
	C.Database.Mssql.Host = getConfigValue(C.Database.Mssql.Host, "MSSQL_HOST", "localhost")
	C.Database.Mssql.Port = getConfigValue(C.Database.Mssql.Port, "MSSQL_PORT", "1433")
	C.Database.Mssql.User = getConfigValue(C.Database.Mssql.User, "MSSQL_USER", "sa")
	C.Database.Mssql.Password = getConfigValue(C.Database.Mssql.Password, "MSSQL_PASSWORD", "")

	C.Database.Mongo.URI = getConfigValue(C.Database.Mongo.URI, "MONGO_URI", "")
	C.Database.Mongo.Name = getConfigValue(C.Database.Mongo.Name, "MONGO_DB_NAME", "slack_connect")
	C.Database.Mongo.Collection = getConfigValue(C.Database.Mongo.Collection, "MONGO_AUDIT_COLLECTION", "delivery_audit")
}

func initApp(C *Config) {
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		switch v {
		case "1", "true", "TRUE", "True":
			C.App.TLSEnabled = true
		case "0", "false", "FALSE", "False":
			C.App.TLSEnabled = false
		}
	}
	if C.App.TLSCertFile == "" {
		C.App.TLSCertFile = os.Getenv("TLS_CERT_FILE")
	}
	if C.App.TLSKeyFile == "" {
		C.App.TLSKeyFile = os.Getenv("TLS_KEY_FILE")
	}
	C.App.FrontendURL = getConfigValue(C.App.FrontendURL, "FRONTEND_URL", "/")
	if C.App.TLSEnabled {
		logger.GetLogger().WithFields(map[string]interface{}{"cert": C.App.TLSCertFile, "key": C.App.TLSKeyFile}).Info("TLS enabled via configuration")
	}
	if len(C.Cors.AllowOrigins) == 0 {
		C.Cors.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
}

func initSlack(C *Config) {
	C.Slack.ClientID = getConfigValue(C.Slack.ClientID, "SLACK_CLIENT_ID", "")
	C.Slack.ClientSecret = getConfigValue(C.Slack.ClientSecret, "SLACK_CLIENT_SECRET", "")
	C.Slack.RedirectURI = getConfigValue(C.Slack.RedirectURI, "SLACK_REDIRECT_URI", "")
	C.Slack.APIURL = getConfigValue(C.Slack.APIURL, "SLACK_API_URL", "")
	if len(C.Slack.Scopes) == 0 {
		C.Slack.Scopes = DefaultSlackScopes
	}
	// Prefer https redirect URIs when TLS is enabled
	if C.App.TLSEnabled && C.Slack.RedirectURI != "" && !hasHTTPS(C.Slack.RedirectURI) {
		C.Slack.RedirectURI = toHTTPSCallback(C.Slack.RedirectURI)
	}
	if C.Slack.ClientID == "" || C.Slack.ClientSecret == "" {
		logger.GetLogger().Warn("Slack client credentials not set; OAuth connect and token refresh will fail")
	}
}

func initScheduler(C *Config) {
	C.Scheduler.TickIntervalSeconds = getIntValue(C.Scheduler.TickIntervalSeconds, "SCHEDULER_TICK_SECONDS", 60)
	C.Scheduler.RefreshThresholdSeconds = getIntValue(C.Scheduler.RefreshThresholdSeconds, "SCHEDULER_REFRESH_THRESHOLD_SECONDS", 300)
	C.Scheduler.RequestTimeoutSeconds = getIntValue(C.Scheduler.RequestTimeoutSeconds, "SCHEDULER_REQUEST_TIMEOUT_SECONDS", 10)
	if v := os.Getenv("SCHEDULER_ENABLED"); v != "" {
		enabled := v == "1" || strings.EqualFold(v, "true")
		C.Scheduler.Enabled = &enabled
	}
}

func initIntegrations(C *Config) {
	C.RedisClient.Host = getConfigValue(C.RedisClient.Host, "REDIS_HOST", "")
	C.RedisClient.Port = getConfigValue(C.RedisClient.Port, "REDIS_PORT", "6379")
	C.RedisClient.Username = getConfigValue(C.RedisClient.Username, "REDIS_USERNAME", "")
	C.RedisClient.Password = getConfigValue(C.RedisClient.Password, "REDIS_PASSWORD", "")
	C.RedisClient.ChannelCacheTTLSeconds = getIntValue(C.RedisClient.ChannelCacheTTLSeconds, "REDIS_CHANNEL_CACHE_TTL_SECONDS", 300)

	C.Pubsub.ProjectID = getConfigValue(C.Pubsub.ProjectID, "PUBSUB_PROJECT_ID", "")
	C.Pubsub.Topic = getConfigValue(C.Pubsub.Topic, "PUBSUB_TOPIC", "slack-delivery-events")
	C.ServiceBus.Namespace = getConfigValue(C.ServiceBus.Namespace, "SERVICE_BUS_NAMESPACE", "")
	C.ServiceBus.Queue = getConfigValue(C.ServiceBus.Queue, "SERVICE_BUS_QUEUE", "slack-delivery-events")
}

// SchedulerEnabled defaults to true when not configured.
func (s Scheduler) SchedulerEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// getConfigValue gets value from environment first, then config, then default
func getConfigValue(configValue, envKey, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if configValue != "" && !strings.HasPrefix(configValue, "YOUR_") {
		return configValue
	}
	return defaultValue
}

func getIntValue(configValue int, envKey string, defaultValue int) int {
	if v := os.Getenv(envKey); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		logger.GetLogger().WithField(envKey, v).Warn("ignoring non-positive or malformed integer")
	}
	if configValue > 0 {
		return configValue
	}
	return defaultValue
}

// helpers to coerce local callback to https
func hasHTTPS(u string) bool { return strings.HasPrefix(u, "https://") }
func toHTTPSCallback(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}
