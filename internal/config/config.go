package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Lark      LarkConfig      `mapstructure:"lark"`
	Sheet     SheetConfig     `mapstructure:"sheet"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Approvers ApproversConfig `mapstructure:"approvers"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LarkConfig holds chat platform credentials and the webhook route
type LarkConfig struct {
	AppID       string `mapstructure:"app_id"`
	AppSecret   string `mapstructure:"app_secret"`
	VerifyToken string `mapstructure:"verify_token"`
	EncryptKey  string `mapstructure:"encrypt_key"`
	WebhookPath string `mapstructure:"webhook_path"`
}

// SheetConfig holds the leave request sheet location
type SheetConfig struct {
	Path      string `mapstructure:"path"`
	SheetName string `mapstructure:"sheet_name"`
}

// LedgerConfig holds the processed-event ledger database configuration
type LedgerConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ApproversConfig holds the two fixed approver identities
type ApproversConfig struct {
	SupervisorID string `mapstructure:"supervisor_id"`
	HRID         string `mapstructure:"hr_id"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("lark.webhook_path", "/webhook/leave")

	viper.SetDefault("sheet.path", "data/leave_requests.xlsx")
	viper.SetDefault("sheet.sheet_name", "requests")

	viper.SetDefault("ledger.path", "data/events.db")
	viper.SetDefault("ledger.max_open_conns", 25)
	viper.SetDefault("ledger.max_idle_conns", 5)
	viper.SetDefault("ledger.conn_max_lifetime", 5*time.Minute)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

func bindEnvVars() {
	// Sensitive credentials and fixed recipient identities come from the
	// environment in deployment.
	viper.BindEnv("lark.app_id", "LARK_APP_ID")
	viper.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	viper.BindEnv("lark.verify_token", "LARK_VERIFY_TOKEN")
	viper.BindEnv("lark.encrypt_key", "LARK_ENCRYPT_KEY")
	viper.BindEnv("sheet.path", "SHEET_PATH")
	viper.BindEnv("approvers.supervisor_id", "SUPERVISOR_OPEN_ID")
	viper.BindEnv("approvers.hr_id", "HR_OPEN_ID")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Lark.AppID == "" {
		return fmt.Errorf("lark.app_id is required")
	}
	if c.Lark.AppSecret == "" {
		return fmt.Errorf("lark.app_secret is required")
	}
	if c.Sheet.Path == "" {
		return fmt.Errorf("sheet.path is required")
	}
	if c.Approvers.SupervisorID == "" {
		return fmt.Errorf("approvers.supervisor_id is required")
	}
	if c.Approvers.HRID == "" {
		return fmt.Errorf("approvers.hr_id is required")
	}
	return nil
}
