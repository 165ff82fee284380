package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	return &Config{
		Env:                 env,
		Port:                port,
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
	}, nil
}
