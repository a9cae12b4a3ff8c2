package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN", "QUESTION_FILE", "SCORE_DRIVER", "DB_DSN", "DB_FILE", "METRICS_ADDR", "UPDATE_WORKERS", "RABBITMQ_URI", "EXPLANATION_SUBJECT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg := FromEnv()
	assert.Equal(t, "", cfg.TelegramToken)
	assert.Equal(t, "questions.json", cfg.QuestionFile)
	assert.Equal(t, ScoreSQLite, cfg.ScoreDriver)
	assert.Equal(t, "", cfg.DBDSN)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, 16, cfg.UpdateWorkers)
	assert.Equal(t, "quiz-events", cfg.RabbitExchange)
	assert.Equal(t, "HCI", cfg.ExplanationSubject)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "legacy-token")
	t.Setenv("SCORE_DRIVER", "Redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("UPDATE_WORKERS", "many")
	t.Setenv("METRICS_ADDR", "")
	t.Setenv("BOT_DEBUG", "yes")
	t.Setenv("DB_DSN", "")
	t.Setenv("DB_FILE", "scores.db")

	cfg := FromEnv()
	assert.Equal(t, "legacy-token", cfg.TelegramToken)
	assert.Equal(t, ScoreRedis, cfg.ScoreDriver)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 16, cfg.UpdateWorkers)
	assert.Equal(t, "", cfg.MetricsAddr, "explicitly empty disables the ops server")
	assert.True(t, cfg.BotDebug)
	assert.Equal(t, "scores.db", cfg.DBDSN)
}

func TestLoadReadsDotEnv(t *testing.T) {
	t.Setenv("QUESTION_FILE", "")
	os.Unsetenv("QUESTION_FILE")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("QUESTION_FILE=hci.json\n"), 0o644))

	cfg := Load(path)
	assert.Equal(t, "hci.json", cfg.QuestionFile)
}
