package config

type DatabaseConfig interface {
	GetConnectionString() string
}
