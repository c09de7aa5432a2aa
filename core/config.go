package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	LoginConfig struct {
		MaxAttempts int
		Window      time.Duration
	}

	AcademyConfig struct {
		Name               string
		Address            string
		Phone              string
		SessionsPerPackage int
		Currency           string
		ReceiptPrefix      string
	}

	Config struct {
		Env                       string // DEV (local; default), TEST, QA, PROD
		Build                     string
		Debug                     bool
		TestMode                  bool
		AppName                   string
		SecretKey                 string
		FrontendBaseURL           string
		SendgridApiKey            string
		RollbarToken              string
		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Login    LoginConfig
		Academy  AcademyConfig

		defaultFromEmail string
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	return *addr
}

// Address returns the "host:port" of the database server.
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// NewConfig reads the configuration for the current ENV from defaults,
// the optional config/.env.<env> file and the environment.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Sanur Akademi")
	v.SetDefault("secretKey", "2b!x%k1v7(ce0x9pr@q_z&7=a3w1sa-n#u5)0tyhx^+4ds9fm8")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Sanur Akademi <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 4*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "sanur")
	v.SetDefault("database.user", "sanur")
	v.SetDefault("database.password", "sanur")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("login.maxAttempts", 5)
	v.SetDefault("login.window", 15*time.Minute)

	v.SetDefault("academy.name", "Sanur Akademi")
	v.SetDefault("academy.address", "")
	v.SetDefault("academy.phone", "")
	v.SetDefault("academy.sessionsPerPackage", 6)
	v.SetDefault("academy.currency", "IDR")
	v.SetDefault("academy.receiptPrefix", "SA")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		AppName:                   v.GetString("appName"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		RollbarToken:              v.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		defaultFromEmail:          v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Login: LoginConfig{
			MaxAttempts: v.GetInt("login.maxAttempts"),
			Window:      v.GetDuration("login.window"),
		},
		Academy: AcademyConfig{
			Name:               v.GetString("academy.name"),
			Address:            v.GetString("academy.address"),
			Phone:              v.GetString("academy.phone"),
			SessionsPerPackage: v.GetInt("academy.sessionsPerPackage"),
			Currency:           v.GetString("academy.currency"),
			ReceiptPrefix:      v.GetString("academy.receiptPrefix"),
		},
	}
}

// NewTestConfig returns the configuration used by tests.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.Env = "TEST"
	conf.TestMode = true
	conf.Debug = false
	conf.SecretKey = "secret"
	conf.Academy.SessionsPerPackage = 6
	return conf
}

// PackageSize is the number of sessions in one package, 6 unless configured.
func (ac AcademyConfig) PackageSize() int {
	if ac.SessionsPerPackage > 0 {
		return ac.SessionsPerPackage
	}
	return 6
}
