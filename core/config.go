package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultMoodleURL = "http://localhost/moodle/webservice/rest/server.php"

type (
	ServerConfig struct {
		Addr             string
		Host             string
		DebugHost        string
		ReadTimeout      time.Duration
		WriteTimeout     time.Duration
		ShutdownTimeout  time.Duration
		CORSAllowOrigins []string
	}

	MoodleConfig struct {
		URL     string
		Token   string // MoodleCredentialToken; never log it
		Timeout time.Duration
	}

	MailConfig struct {
		DefaultFromEmail string
		SendgridApiKey   string
		WelcomeEnabled   bool
	}

	// Config is built once at startup and handed to every component that needs it.
	Config struct {
		Env             string
		Build           string
		AppName         string
		Debug           bool
		TestMode        bool
		RollbarToken    string
		FrontendBaseURL string
		DefaultRoleID   int
		WorkDir         string

		Server ServerConfig
		Moodle MoodleConfig
		Mail   MailConfig
	}
)

// NewConfig loads the configuration from defaults, an optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed by the current ENV, eg. `DEV_MOODLE_TOKEN`.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Masomo Moodle Gateway")
	v.SetDefault("build", "develop")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.debugHost", ":5001")
	v.SetDefault("server.readTimeout", 10*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.corsAllowOrigins", []string{"*"})
	v.SetDefault("moodle.url", defaultMoodleURL)
	v.SetDefault("moodle.token", "")
	v.SetDefault("moodle.timeout", time.Duration(0)) // 0: http.Client default
	v.SetDefault("enrol.defaultRoleId", 5)
	v.SetDefault("mail.defaultFromEmail", "noreply@localhost")
	v.SetDefault("mail.sendgridApiKey", "")
	v.SetDefault("mail.welcomeEnabled", false)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:             env,
		Build:           v.GetString("build"),
		AppName:         v.GetString("appName"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		RollbarToken:    v.GetString("rollbarToken"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		DefaultRoleID:   v.GetInt("enrol.defaultRoleId"),
		WorkDir:         wd,
		Server: ServerConfig{
			Addr:             v.GetString("server.addr"),
			Host:             v.GetString("server.host"),
			DebugHost:        v.GetString("server.debugHost"),
			ReadTimeout:      v.GetDuration("server.readTimeout"),
			WriteTimeout:     v.GetDuration("server.writeTimeout"),
			ShutdownTimeout:  v.GetDuration("server.shutdownTimeout"),
			CORSAllowOrigins: v.GetStringSlice("server.corsAllowOrigins"),
		},
		Moodle: MoodleConfig{
			URL:     v.GetString("moodle.url"),
			Token:   v.GetString("moodle.token"),
			Timeout: v.GetDuration("moodle.timeout"),
		},
		Mail: MailConfig{
			DefaultFromEmail: v.GetString("mail.defaultFromEmail"),
			SendgridApiKey:   v.GetString("mail.sendgridApiKey"),
			WelcomeEnabled:   v.GetBool("mail.welcomeEnabled"),
		},
	}
}

// String describes the config without leaking secrets.
func (c Config) String() string {
	return fmt.Sprintf(
		"env=%s build=%s debug=%t addr=%s moodle=%s token=%s",
		c.Env, c.Build, c.Debug, c.Server.Addr, c.Moodle.URL, mask(c.Moodle.Token),
	)
}

func mask(secret string) string {
	if secret == "" {
		return "<unset>"
	}
	return "****"
}
