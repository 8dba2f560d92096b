package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Settings struct {
	Database      DbSettings        `mapstructure:"database"`
	Server        ServerSettings    `mapstructure:"server"`
	WebhookQueue  QueueSettings     `mapstructure:"webhook_queue"`
	MessageQueue  QueueSettings     `mapstructure:"message_queue"`
	Directory     DirectorySettings `mapstructure:"directory"`
	Ingress       IngressSettings   `mapstructure:"ingress"`
	Chatwoot      ChatwootSettings  `mapstructure:"chatwoot"`
	Observability Observability     `mapstructure:"observability"`
}

type DbSettings struct {
	Type     string `mapstructure:"type" validate:"required,oneof=postgres spanner mongo"`
	DSN      string `mapstructure:"dsn"`
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"db_name"`
}

type ServerSettings struct {
	Addr        string `mapstructure:"addr"`
	VerifyToken string `mapstructure:"verify_token" validate:"required"`
}

type DirectorySettings struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

type ChatwootSettings struct {
	BaseURL   string `mapstructure:"base_url" validate:"omitempty,url"`
	AccountID int    `mapstructure:"account_id"`
	InboxID   int    `mapstructure:"inbox_id"`
	APIToken  string `mapstructure:"api_token"`
}

func (c *Settings) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

func LoadFromFile(filePath string) (*Settings, error) {

	env := getEnvWithDefaultLookup("ENVIRONMENT", "development")

	cfg := &Settings{}
	viper.SetConfigType("yaml")
	viper.SetConfigName("relay")
	viper.AddConfigPath(filePath) // path to config
	viper.AddConfigPath(".")      // current directory

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("No config file found or read error: %v (will rely on env)", err)
	}

	err := mergeConfig(filePath, "relay."+env)
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("Error merging dev config: %s\n", err)
			os.Exit(1)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatalf("Failed to load from env: %v", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg, nil
}

func (c *Settings) LoadFromEnv() error {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("RELAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // env vars like RELAY_DATABASE_TYPE

	// Bind environment variables explicitly to ensure they map correctly
	viper.BindEnv("database.type")
	viper.BindEnv("database.dsn")
	viper.BindEnv("database.uri")
	viper.BindEnv("database.db_name")
	viper.BindEnv("server.addr")
	viper.BindEnv("server.verify_token")
	viper.BindEnv("directory.refresh_interval")
	viper.BindEnv("ingress.type")
	viper.BindEnv("ingress.url")
	viper.BindEnv("ingress.queue")
	viper.BindEnv("ingress.project_id")
	viper.BindEnv("ingress.subscription_id")
	viper.BindEnv("ingress.key")
	viper.BindEnv("chatwoot.base_url")
	viper.BindEnv("chatwoot.account_id")
	viper.BindEnv("chatwoot.inbox_id")
	viper.BindEnv("chatwoot.api_token")
	viper.BindEnv("observability.service_name")
	viper.BindEnv("observability.tracing_url")

	if err := viper.Unmarshal(&c); err != nil {
		return err
	}
	return nil
}

func (c *Settings) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":3005"
	}
	if c.Directory.RefreshInterval <= 0 {
		c.Directory.RefreshInterval = time.Minute
	}
	c.WebhookQueue.applyDefaults(DefaultWebhookBackoff)
	c.MessageQueue.applyDefaults(DefaultMessageBackoff)
}

func mergeConfig(path string, name string) error {
	viper.SetConfigName(name)
	viper.AddConfigPath(path)
	err := viper.MergeInConfig()
	if err != nil {
		return err
	}
	return nil
}

func getEnvWithDefaultLookup(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}
