package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	obscontext "github.com/smallbiznis/tixora/internal/observability/context"
	"github.com/smallbiznis/tixora/internal/usercontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestClassifyStatement(t *testing.T) {
	cases := []struct {
		sql, op, table string
	}{
		{"SELECT * FROM discounts WHERE id = ?", "SELECT", "discounts"},
		{"  update invite_codes SET status = 'EXPIRED'", "UPDATE", "invite_codes"},
		{"INSERT INTO discounts (id) SELECT ? WHERE NOT EXISTS (SELECT 1 FROM discounts)", "INSERT", "discounts"},
		{`DELETE FROM "tickets" WHERE id = ?`, "DELETE", "tickets"},
		{"", "UNKNOWN", ""},
	}
	for _, tc := range cases {
		op, table := classifyStatement(tc.sql)
		assert.Equal(t, tc.op, op, tc.sql)
		assert.Equal(t, tc.table, table, tc.sql)
	}
}

func TestGormTraceLevel(t *testing.T) {
	l := NewGormLogger(DefaultGormLoggerConfig())

	_, ok := l.traceLevel(time.Millisecond, nil)
	assert.False(t, ok)
	_, ok = l.traceLevel(time.Millisecond, gormlogger.ErrRecordNotFound)
	assert.False(t, ok)

	level, ok := l.traceLevel(time.Second, nil)
	assert.True(t, ok)
	assert.Equal(t, zapcore.WarnLevel, level)

	level, ok = l.traceLevel(time.Millisecond, errors.New("deadlock"))
	assert.True(t, ok)
	assert.Equal(t, zapcore.ErrorLevel, level)

	verbose := l.LogMode(gormlogger.Info).(*GormLogger)
	level, ok = verbose.traceLevel(time.Millisecond, nil)
	assert.True(t, ok)
	assert.Equal(t, zapcore.DebugLevel, level)

	_, ok = l.LogMode(gormlogger.Silent).(*GormLogger).traceLevel(time.Second, errors.New("x"))
	assert.False(t, ok)
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-9")
	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	WithContext(ctx, base).Info("hello")

	entries := logs.TakeAll()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "system", fields["actor_type"])
	assert.Equal(t, "scheduler", fields["actor_id"])
	assert.NotContains(t, fields, "trace_id")
}

func TestWithContextFallsBackToCaller(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)

	WithContext(usercontext.WithUserID(context.Background(), "buyer-1"), base).Info("purchase")
	WithContext(context.Background(), base).Info("bare")

	entries := logs.TakeAll()
	require.Len(t, entries, 2)
	assert.Equal(t, "user", entries[0].ContextMap()["actor_type"])
	assert.Equal(t, "buyer-1", entries[0].ContextMap()["actor_id"])
	assert.Empty(t, entries[1].ContextMap())
}

func TestProductionConfig(t *testing.T) {
	cfg, err := productionConfig(Config{Format: " Console ", Level: "warn"})
	require.NoError(t, err)
	assert.Equal(t, "console", cfg.Encoding)
	assert.Equal(t, zapcore.WarnLevel, cfg.Level.Level())
	assert.Equal(t, 100, cfg.Sampling.Initial)

	cfg, err = productionConfig(Config{})
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Encoding)
	assert.Equal(t, zapcore.InfoLevel, cfg.Level.Level())

	_, err = productionConfig(Config{Level: "loud"})
	assert.Error(t, err)
}
