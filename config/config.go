package config

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server   Server
	Database Database
	JWT      JWT
	Seed     Seed
}

type Server struct {
	Port string
}
type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}
type JWT struct {
	Secret      string
	ExpireHours int
}

// Seed controls the bootstrap admin created when the user table is empty.
type Seed struct {
	AdminUsername string
	AdminPassword string
	AdminEmail    string
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("DATABASE_SSLMODE", "disable")
	viper.SetDefault("JWT_EXPIRE_HOURS", 12)
	viper.SetDefault("SEED_ADMIN_USERNAME", "admin")
	viper.SetDefault("SEED_ADMIN_EMAIL", "admin@example.com")

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")
	config.Database.SSLMode = viper.GetString("DATABASE_SSLMODE")

	config.JWT.Secret = viper.GetString("JWT_SECRET")
	config.JWT.ExpireHours = viper.GetInt("JWT_EXPIRE_HOURS")

	config.Seed.AdminUsername = viper.GetString("SEED_ADMIN_USERNAME")
	config.Seed.AdminPassword = viper.GetString("SEED_ADMIN_PASSWORD")
	config.Seed.AdminEmail = viper.GetString("SEED_ADMIN_EMAIL")

	log.Info().Str("port", config.Server.Port).Str("db_host", config.Database.Host).Msg("Config loaded")
	return &config, nil
}
