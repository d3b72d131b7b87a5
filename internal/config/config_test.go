package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitList(" a:9092, ,b:9092 "))
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "chat", SSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=chat port=5432 sslmode=disable", d.DSN())

	d.URI = "postgres://u:p@db/chat"
	assert.Equal(t, "postgres://u:p@db/chat", d.DSN())
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for raw, want := range cases {
		c := &Config{LogLevel: raw}
		assert.Equal(t, want, c.SlogLevel(), raw)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "chat.message-events", cfg.Kafka.Topic)
	assert.Equal(t, 256, cfg.WebSocket.SendBuffer)
	assert.Same(t, cfg, ConfigInstance)
}
