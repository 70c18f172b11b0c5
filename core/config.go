package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName          string
		Build            string
		Env              string // DEV (local; default), TEST, QA, PROD
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		defaultFromEmail string

		// password reset links expire after this delay (rounded down to days)
		PasswordResetTimeout time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Log      LogConfig
		Catalog  CatalogConfig

		SendgridApiKey string
		RollbarToken   string
	}

	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		CORSOrigins               []string
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	LogConfig struct {
		File       string // no file rotation when empty
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}

	CatalogConfig struct {
		// client side cache
		CacheSize int
		CacheTTL  time.Duration
	}
)

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

func (conf *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
}

// NewConfig loads the app configuration from the environment.
// `config/.env.<env>` is loaded first when it exists.
func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	loadDotEnv(env)

	v := viper.New()
	v.SetEnvPrefix(env)
	v.SetTypeByDefaultValue(true)
	v.AutomaticEnv()

	// defaults
	v.SetDefault("appName", "Elimu")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("secretKey", "b2x$k#9+a=v7q!w8^ue)jz0p-4r(ny@3mgt6h*sdc&f1il5o")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("passwordResetTimeout", 3*24*time.Hour)

	v.SetDefault("serverHost", "0.0.0.0:8000")
	v.SetDefault("serverDebugHost", "0.0.0.0:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("corsOrigins", []string{"http://localhost:3000"})

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "elimu")
	v.SetDefault("dbUser", "elimu")
	v.SetDefault("dbPassword", "elimu")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "postgres")
	v.SetDefault("dbDisableTLS", true)

	v.SetDefault("logFile", "")
	v.SetDefault("logMaxSizeMB", 64)
	v.SetDefault("logMaxBackups", 7)
	v.SetDefault("logMaxAgeDays", 7)

	v.SetDefault("catalogCacheSize", 256)
	v.SetDefault("catalogCacheTTL", 5*time.Minute)

	return &Config{
		AppName:          v.GetString("appName"),
		Build:            v.GetString("build"),
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		defaultFromEmail: v.GetString("defaultFromEmail"),

		PasswordResetTimeout: v.GetDuration("passwordResetTimeout"),

		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			CORSOrigins:               v.GetStringSlice("corsOrigins"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		Log: LogConfig{
			File:       v.GetString("logFile"),
			MaxSizeMB:  v.GetInt("logMaxSizeMB"),
			MaxBackups: v.GetInt("logMaxBackups"),
			MaxAgeDays: v.GetInt("logMaxAgeDays"),
		},
		Catalog: CatalogConfig{
			CacheSize: v.GetInt("catalogCacheSize"),
			CacheTTL:  v.GetDuration("catalogCacheTTL"),
		},
		SendgridApiKey: v.GetString("sendgridApiKey"),
		RollbarToken:   v.GetString("rollbarToken"),
	}
}

// loadDotEnv loads .env if it exists (ignore if it does not)
func loadDotEnv(env string) {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
}
