package config

import (
	"fmt"
	"os"
	"strconv"
)

// PostgresConfig represents the configuration needed to connect to a PostgreSQL database
type PostgresConfig struct {
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	DBName       string `yaml:"dbname"`
	SSLMode      string `yaml:"sslmode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

func (pc *PostgresConfig) GetConnectionString() string {
	sslMode := pc.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName, sslMode)
}

// applyEnv overrides file values with POSTGRES_* variables when they are set.
func (pc *PostgresConfig) applyEnv() {
	pc.Host = getEnv("POSTGRES_HOST", pc.Host)
	pc.Port = getEnv("POSTGRES_PORT", pc.Port)
	pc.User = getEnv("POSTGRES_USER", pc.User)
	pc.Password = getEnv("POSTGRES_PASSWORD", pc.Password)
	pc.DBName = getEnv("POSTGRES_NAME", pc.DBName)
	pc.SSLMode = getEnv("POSTGRES_SSLMODE", pc.SSLMode)
	if v, err := strconv.Atoi(getEnv("POSTGRES_MAX_OPEN_CONNS", "")); err == nil && v > 0 {
		pc.MaxOpenConns = v
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
