package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort      string        `env:"HTTP_PORT" envDefault:"3301"`
	JWTSecret     string        `env:"JWT_SECRET,required,notEmpty"`
	JWTTTL        time.Duration `env:"JWT_TTL" envDefault:"720h"`
	BcryptCost    int           `env:"BCRYPT_COST" envDefault:"12"`
	OTPTTL        time.Duration `env:"OTP_TTL" envDefault:"5m"`
	OTPRateWindow time.Duration `env:"OTP_RATE_WINDOW" envDefault:"10m"`
	OTPRateMax    int           `env:"OTP_RATE_MAX" envDefault:"3"`
	OTPAttempts   int           `env:"OTP_MAX_ATTEMPTS" envDefault:"5"`
	SMTPHost      string        `env:"SMTP_HOST"`
	SMTPPort      int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser      string        `env:"SMTP_USER"`
	SMTPPass      string        `env:"SMTP_PASS"`
	SMTPFrom      string        `env:"SMTP_FROM"`
	SMTPFromName  string        `env:"SMTP_FROM_NAME"`
	SMTPUseTLS    bool          `env:"SMTP_USE_TLS" envDefault:"false"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`

	DatabaseConfig
	Minio MinioConfig
}

// MinioConfig agrupa el acceso al bucket de media. Endpoint vacio desactiva las subidas.
type MinioConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET" envDefault:"startup-media"`
	UseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
	PublicURL string `env:"MINIO_PUBLIC_URL"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DatabaseConfig es lo unico que necesitan los comandos de migracion.
type DatabaseConfig struct {
	DatabaseURL     string        `env:"DATABASE_URL,required,notEmpty"`
	MaxConns        int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	MinConns        int32         `env:"DB_MIN_CONNS" envDefault:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"30m"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	ConnectTimeout  time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"5s"`
}

func LoadDatabaseConfig() (*DatabaseConfig, error) {
	var cfg DatabaseConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
