package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Port          int    `mapstructure:"PORT"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	NATSURL       string `mapstructure:"NATS_URL"`
	JWTSecret     string `mapstructure:"JWT_SECRET"`

	MailerSendAPIKey  string `mapstructure:"MAILERSEND_API_KEY"`
	MailFromEmail     string `mapstructure:"MAIL_FROM_EMAIL"`
	MailFromName      string `mapstructure:"MAIL_FROM_NAME"`
	WelcomeTemplateID string `mapstructure:"MAIL_WELCOME_TEMPLATE_ID"`
	OTPTemplateID     string `mapstructure:"MAIL_OTP_TEMPLATE_ID"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("PORT", 8080)
	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DATABASE", "revival_automotive")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("NATS_URL", "nats://localhost:4222")
	viper.SetDefault("JWT_SECRET", "your-secret-key")
	viper.SetDefault("MAILERSEND_API_KEY", "")
	viper.SetDefault("MAIL_FROM_EMAIL", "no-reply@revivalautomotive.co.za")
	viper.SetDefault("MAIL_FROM_NAME", "Revival Automotive")
	viper.SetDefault("MAIL_WELCOME_TEMPLATE_ID", "")
	viper.SetDefault("MAIL_OTP_TEMPLATE_ID", "")
	viper.SetDefault("SMTP_HOST", "")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SMTP_USERNAME", "")
	viper.SetDefault("SMTP_PASSWORD", "")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
