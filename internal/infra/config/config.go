package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"Europe/Samara"`
	Port   int    `envconfig:"PORT" default:"8080"`

	DataDir string `envconfig:"DATA_DIR" default:"./data"`

	Telegram struct {
		Token string `envconfig:"TG_BOT_TOKEN"`
	} `envconfig:""`

	Max struct {
		Token   string `envconfig:"MAX_BOT_TOKEN"`
		BaseURL string `envconfig:"MAX_API_URL" default:"https://botapi.max.ru"`
	} `envconfig:""`

	OpenRouter struct {
		APIKey          string        `envconfig:"OPENROUTER_API_KEY"`
		BaseURL         string        `envconfig:"OPENROUTER_BASE_URL" default:"https://openrouter.ai/api/v1"`
		ClassifierModel string        `envconfig:"CLASSIFIER_MODEL" default:"google/gemini-2.0-flash-lite-001"`
		RewriterModel   string        `envconfig:"REWRITER_MODEL" default:"anthropic/claude-3.5-haiku"`
		Timeout         time.Duration `envconfig:"OPENROUTER_TIMEOUT" default:"30s"`
	} `envconfig:""`

	Sources struct {
		AdmBaseURL string `envconfig:"ADM_BASE_URL" default:"https://adm-sarapul.ru"`
		RSSHubURL  string `envconfig:"RSSHUB_URL" default:"http://localhost:1200"`
		ParseLimit int    `envconfig:"PARSE_LIMIT" default:"10"`
	} `envconfig:""`

	Broadcast struct {
		SendDelay time.Duration `envconfig:"BROADCAST_SEND_DELAY" default:"34ms"`
	} `envconfig:""`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Queue struct {
		Driver  string `envconfig:"QUEUE_DRIVER" default:"redis"`
		Key     string `envconfig:"BROADCAST_QUEUE_KEY" default:"broadcast_jobs"`
		AMQPURL string `envconfig:"AMQP_URL"`
	} `envconfig:""`

	AdminUsers string `envconfig:"ADMIN_USERS"`

	ParseInterval time.Duration `envconfig:"PARSE_INTERVAL" default:"30m"`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
