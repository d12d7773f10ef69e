package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort      string
	FirebaseProject string
	Environment     string
}

func Load() (*Config, error) {
	godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")

	config := &Config{
		ServerPort:      v.GetString("SERVER_PORT"),
		FirebaseProject: v.GetString("FIREBASE_PROJECT_ID"),
		Environment:     v.GetString("ENVIRONMENT"),
	}

	return config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
