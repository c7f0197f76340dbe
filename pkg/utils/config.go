package utils

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Payment  PaymentConfig
	Midtrans MidtransConfig
	Tripay   TripayConfig
	Duitku   DuitkuConfig
	Sweeper  SweeperConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
	BaseURL string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

// PaymentConfig mengatur lifecycle attempt dan call ke gateway.
type PaymentConfig struct {
	AdminFee       int64
	AttemptTTL     time.Duration
	GatewayTimeout time.Duration
	RetryBackoff   time.Duration
}

type MidtransConfig struct {
	BaseURL   string
	ServerKey string
}

type TripayConfig struct {
	BaseURL      string
	MerchantCode string
	APIKey       string
	PrivateKey   string
}

type DuitkuConfig struct {
	BaseURL      string
	MerchantCode string
	APIKey       string
}

type SweeperConfig struct {
	// Jadwal cron (robfig), contoh "*/5 * * * *"
	Schedule  string
	Staleness time.Duration
	BatchSize int
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("ADMIN_FEE", 5000)
	viper.SetDefault("ATTEMPT_TTL_MINUTES", 60)
	viper.SetDefault("GATEWAY_TIMEOUT_SECONDS", 30)
	viper.SetDefault("GATEWAY_RETRY_BACKOFF_SECONDS", 2)
	viper.SetDefault("SWEEPER_SCHEDULE", "*/5 * * * *")
	viper.SetDefault("SWEEPER_STALENESS_MINUTES", 15)
	viper.SetDefault("SWEEPER_BATCH_SIZE", 100)
	viper.SetDefault("MIDTRANS_BASE_URL", "https://api.sandbox.midtrans.com")
	viper.SetDefault("TRIPAY_BASE_URL", "https://tripay.co.id/api-sandbox")
	viper.SetDefault("DUITKU_BASE_URL", "https://sandbox.duitku.com/webapi")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
			BaseURL: viper.GetString("APP_BASE_URL"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Payment: PaymentConfig{
			AdminFee:       viper.GetInt64("ADMIN_FEE"),
			AttemptTTL:     time.Duration(viper.GetInt("ATTEMPT_TTL_MINUTES")) * time.Minute,
			GatewayTimeout: time.Duration(viper.GetInt("GATEWAY_TIMEOUT_SECONDS")) * time.Second,
			RetryBackoff:   time.Duration(viper.GetInt("GATEWAY_RETRY_BACKOFF_SECONDS")) * time.Second,
		},
		Midtrans: MidtransConfig{
			BaseURL:   viper.GetString("MIDTRANS_BASE_URL"),
			ServerKey: viper.GetString("MIDTRANS_SERVER_KEY"),
		},
		Tripay: TripayConfig{
			BaseURL:      viper.GetString("TRIPAY_BASE_URL"),
			MerchantCode: viper.GetString("TRIPAY_MERCHANT_CODE"),
			APIKey:       viper.GetString("TRIPAY_API_KEY"),
			PrivateKey:   viper.GetString("TRIPAY_PRIVATE_KEY"),
		},
		Duitku: DuitkuConfig{
			BaseURL:      viper.GetString("DUITKU_BASE_URL"),
			MerchantCode: viper.GetString("DUITKU_MERCHANT_CODE"),
			APIKey:       viper.GetString("DUITKU_API_KEY"),
		},
		Sweeper: SweeperConfig{
			Schedule:  viper.GetString("SWEEPER_SCHEDULE"),
			Staleness: time.Duration(viper.GetInt("SWEEPER_STALENESS_MINUTES")) * time.Minute,
			BatchSize: viper.GetInt("SWEEPER_BATCH_SIZE"),
		},
	}

	return config, nil
}
