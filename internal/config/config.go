package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/joho/godotenv"
)

type ScoreDriver string

const (
	ScoreSQLite   ScoreDriver = "sqlite"
	ScorePostgres ScoreDriver = "postgres"
	ScoreRedis    ScoreDriver = "redis"
	ScoreMemory   ScoreDriver = "memory"
)

type Config struct {
	TelegramToken string
	BotDebug      bool
	QuestionFile  string

	ScoreDriver ScoreDriver
	DBDSN       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitURL      string
	RabbitExchange string

	MetricsAddr   string // empty disables the ops server
	UpdateWorkers int

	ExplanationSubject string

	OpenAIKey   string
	OpenAIModel string
}

// Load reads .env files (if any) into the environment and returns FromEnv.
// Variables already set in the environment win over .env values.
func Load(files ...string) Config {
	if err := godotenv.Load(files...); err != nil {
		glog.V(1).Infof("no .env file loaded: %v", err)
	}
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		TelegramToken: firstOf("TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN"),
		BotDebug:      envBool("BOT_DEBUG", false),
		QuestionFile:  envOr("QUESTION_FILE", "questions.json"),

		ScoreDriver: ScoreDriver(strings.ToLower(envOr("SCORE_DRIVER", string(ScoreSQLite)))),
		DBDSN:       envOr("DB_DSN", os.Getenv("DB_FILE")),

		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		RabbitURL:      os.Getenv("RABBITMQ_URI"),
		RabbitExchange: envOr("RABBITMQ_EXCHANGE", "quiz-events"),

		MetricsAddr:   envSet("METRICS_ADDR", ":9090"),
		UpdateWorkers: envInt("UPDATE_WORKERS", 16),

		ExplanationSubject: envOr("EXPLANATION_SUBJECT", "HCI"),

		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel: envOr("OPENAI_MODEL", "gpt-4o-mini"),
	}
}

func envOr(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

// envSet is envOr where an explicitly empty value is kept.
func envSet(k, def string) string {
	v, ok := os.LookupEnv(k)
	if !ok {
		return def
	}
	return strings.TrimSpace(v)
}

func firstOf(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		glog.Warningf("%s=%q is not a number, using %d", k, v, def)
		return def
	}
	return n
}
