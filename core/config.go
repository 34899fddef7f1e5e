package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	// Config holds all the settings the portal needs at runtime.
	// Values come from defaults, an optional config/.env.<env> file and
	// <ENV>_ prefixed environment variables, in increasing precedence.
	Config struct {
		Debug            bool
		TestMode         bool
		Env              string
		Build            string
		AppName          string
		SecretKey        string
		DefaultFromEmail string
		SendgridAPIKey   string
		RollbarToken     string
		WorkDir          string

		Server   ServerConfig
		Firebase FirebaseConfig
	}

	ServerConfig struct {
		Host               string
		Addr               string
		DebugAddr          string
		JWTExpirationDelta time.Duration
		ShutdownTimeout    time.Duration
	}

	// FirebaseConfig points at the externally supplied collaborators:
	// the realtime tree store (DatabaseURL + DatabaseSecret) and the
	// Identity Toolkit auth endpoint (APIKey).
	FirebaseConfig struct {
		DatabaseURL    string
		DatabaseSecret string
		APIKey         string
	}
)

func NewConfig() *Config {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("build", "dev")
	conf.SetDefault("appName", "Elearn")
	conf.SetDefault("secretKey", "x2c^8#sp0q=7y&4mz!w)5v+_ej*3du%1r$9k(gnb6h@tfl-a")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverAddr", ":8000")
	conf.SetDefault("serverDebugAddr", ":4000")
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("shutdownTimeout", 5*time.Second)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		Env:              env,
		Build:            conf.GetString("build"),
		AppName:          conf.GetString("appName"),
		SecretKey:        conf.GetString("secretKey"),
		DefaultFromEmail: conf.GetString("defaultFromEmail"),
		SendgridAPIKey:   conf.GetString("sendgridApiKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		WorkDir:          wd,
		Server: ServerConfig{
			Host:               conf.GetString("serverHost"),
			Addr:               conf.GetString("serverAddr"),
			DebugAddr:          conf.GetString("serverDebugAddr"),
			JWTExpirationDelta: conf.GetDuration("jwtExpirationDelta"),
			ShutdownTimeout:    conf.GetDuration("shutdownTimeout"),
		},
		Firebase: FirebaseConfig{
			DatabaseURL:    conf.GetString("firebaseDatabaseUrl"),
			DatabaseSecret: conf.GetString("firebaseDatabaseSecret"),
			APIKey:         conf.GetString("firebaseApiKey"),
		},
	}
}
