package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nhle/todo-overs/internal/model"
)

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New(model.LogConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)

	l, err := New(model.LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestWithHelpers_AddFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.WithComponent("sync").
		WithUserID("u1").
		WithTaskID("t1", "r1").
		WithError(errors.New("boom")).
		Infow("processed")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "sync", fields["component"])
	assert.Equal(t, "u1", fields["user_id"])
	assert.Equal(t, "t1", fields["task_id"])
	assert.Equal(t, "r1", fields["remote_id"])
	assert.Equal(t, "boom", fields["error"])
}

func TestLogRemoteCall_WarnsOnError(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.LogRemoteCall("GET", "/tags", 200, 12, nil)
	l.LogRemoteCall("GET", "/tags", 429, 3, errors.New("rate limited"))

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zap.DebugLevel, logs.All()[0].Level)
	assert.Equal(t, zap.WarnLevel, logs.All()[1].Level)
}
