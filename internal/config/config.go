package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	NotifierLog      = "log"
	NotifierSMTP     = "smtp"
	NotifierSendgrid = "sendgrid"
	NotifierRabbitMQ = "rabbitmq"
)

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	Storage    string `yaml:"storage" env:"STORAGE" env-default:"postgres"`
	HTTPServer `yaml:"http_server"`
	Postgres   `yaml:"postgres"`
	Redis      `yaml:"redis"`
	Tokens     `yaml:"tokens"`
	OTP        `yaml:"otp"`
	Notifier   `yaml:"notifier"`
	SMTP       `yaml:"smtp"`
	Sendgrid   `yaml:"sendgrid"`
	RabbitMQ   `yaml:"rabbitmq"`
	Janitor    `yaml:"janitor"`
	CORS       `yaml:"cors"`
}

type HTTPServer struct {
	Address        string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout        time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"5s"`
	IPRateLimit    bool          `yaml:"ip_rate_limit" env:"HTTP_IP_RATE_LIMIT" env-default:"true"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"postgres"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

// Redis is optional. An empty address disables per-identity rate limiting.
type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

type Tokens struct {
	SessionTokenTTL    time.Duration `yaml:"session_token_ttl" env-default:"168h"`
	SessionTokenSecret string        `yaml:"session_token_secret" env:"SESSION_TOKEN_SECRET" env-required:"true"`
}

type OTP struct {
	Length       int           `yaml:"length" env-default:"6"`
	TTL          time.Duration `yaml:"ttl" env:"OTP_TTL" env-default:"10m"`
	HashCost     int           `yaml:"hash_cost" env-default:"12"`
	MaxPerWindow int           `yaml:"max_per_window" env-default:"5"`
	Window       time.Duration `yaml:"window" env-default:"1h"`
}

type Notifier struct {
	Driver  string        `yaml:"driver" env:"NOTIFIER_DRIVER" env-default:"log"`
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
}

type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"SMTP_FROM"`
}

type Sendgrid struct {
	APIKey   string `yaml:"api_key" env:"SENDGRID_API_KEY"`
	From     string `yaml:"from" env:"SENDGRID_FROM"`
	FromName string `yaml:"from_name" env-default:"Notes"`
	Sandbox  bool   `yaml:"sandbox" env:"SENDGRID_SANDBOX"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL"`
	QueueName string `yaml:"queue_name" env:"RABBITMQ_QUEUE" env-default:"otp_emails"`
}

type Janitor struct {
	Enabled  bool   `yaml:"enabled" env-default:"true"`
	Schedule string `yaml:"schedule" env-default:"@every 5m"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:5173"`
}

// MustLoad reads the config file named by the -config flag or CONFIG_PATH,
// falling back to ./config/config.yaml. Environment variables override the file.
func MustLoad() *Config {
	return MustLoadPath(fetchConfigPath())
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("Config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("Failed to read config: " + err.Error())
	}

	return &cfg
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "./config/config.yaml"
	}

	return res
}
