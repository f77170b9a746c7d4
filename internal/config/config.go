package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Log struct {
		Level string
	}
	Database struct {
		Driver string
		DSN    string
	}
	Auth struct {
		JWTSecret         string
		AccessTTLMinutes  int
		RefreshTTLMinutes int
	}
	Storage struct {
		Bucket            string
		Region            string
		Endpoint          string
		PresignTTLMinutes int
	}
	AWS struct {
		Profile string
	}
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.Auth.AccessTTLMinutes) * time.Minute
}

func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.Auth.RefreshTTLMinutes) * time.Minute
}

func (c Config) PresignTTL() time.Duration {
	return time.Duration(c.Storage.PresignTTLMinutes) * time.Minute
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv(".env")

	v := viper.New()
	v.SetEnvPrefix("SOCIAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8000")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/social.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.accessttlminutes", 5)
	v.SetDefault("auth.refreshttlminutes", 1440)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.presignttlminutes", 15)
	v.SetDefault("aws.profile", "")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Auth.AccessTTLMinutes <= 0 || c.Auth.RefreshTTLMinutes <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	return nil
}

func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
