package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
		AccessTokenTTL  time.Duration
		RefreshTokenTTL time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          int
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	Config struct {
		Env      string
		Build    string
		Debug    bool
		TestMode bool

		AppName   string
		SecretKey string

		FrontendBaseURL    string
		DefaultFromName    string
		DefaultFromAddress string
		SendgridAPIKey     string
		RollbarToken       string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
	}
)

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromAddress}
}

// NewConfig loads the app configuration: defaults first, then an optional
// config/.env.<env> file, then environment variables prefixed with the ENV name
// (e.g. DEV_SERVER_HOST overrides server.host).
func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	// defaults
	v.SetDefault("env", env)
	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "Elimu")
	v.SetDefault("secretKey", "w3+8f)qn$2u^yx#ze&0d5m(h7r!c4e@v1s*k6t9l_pj-go8a")
	v.SetDefault("frontendBaseURL", "http://localhost:5173")
	v.SetDefault("defaultFromName", "Elimu")
	v.SetDefault("defaultFromAddress", "noreply@localhost")
	v.SetDefault("sendgridAPIKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.accessTokenTTL", 15*time.Minute)
	v.SetDefault("server.refreshTokenTTL", 7*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.name", "elimu")
	v.SetDefault("database.user", "elimu")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// load config/.env.<env> if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, err
	}

	err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(conf.SecretKey, "secretKey"),
		vala.StringNotEmpty(conf.AppName, "appName"),
		vala.StringNotEmpty(conf.Server.Host, "server.host"),
		vala.GreaterThan(int(conf.Server.AccessTokenTTL), 0, "server.accessTokenTTL"),
		vala.GreaterThan(int(conf.Server.RefreshTokenTTL), 0, "server.refreshTokenTTL"),
	).Check()
	if err != nil {
		return nil, err
	}
	return conf, nil
}
