package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestLogHandler_MasksAndStamps(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewLogHandler(&buf, "passgate", nil, []string{"password", "OTP"}))

	ctx := SetCorrelationID(context.Background(), "cid-1")
	logger.InfoContext(ctx, "register",
		"email", "a@x.com",
		"password", "hunter22",
		"body", `{"email":"a@x.com","otp":"K7QJ2P"}`,
	)

	line := decodeLine(t, &buf)
	assert.Equal(t, "register", line["msg"])
	assert.Equal(t, "INFO", line["severity"])
	assert.Equal(t, "cid-1", line["_cID"])
	assert.Equal(t, "passgate", line["service"])
	assert.Equal(t, "a@x.com", line["email"])
	assert.Equal(t, "***", line["password"])
	assert.JSONEq(t, `{"email":"a@x.com","otp":"***"}`, line["body"].(string))
	assert.Contains(t, line, "ts")
}

func TestLogHandler_WithAttrsMasked(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewLogHandler(&buf, "passgate", nil, []string{"token"})).With("token", "abc")

	logger.Info("refresh", "fields", map[string]string{"token": "x", "kind": "refresh"})

	line := decodeLine(t, &buf)
	assert.Equal(t, "***", line["token"])
	assert.Equal(t, map[string]any{"token": "***", "kind": "refresh"}, line["fields"])
	assert.NotContains(t, line, "_cID")
}

func TestCorrelationID(t *testing.T) {
	assert.Empty(t, GetCorrelationID(context.Background()))
	assert.Equal(t, "x", GetCorrelationID(SetCorrelationID(context.Background(), "x")))
}

func TestNew_Disabled(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	ins, err := New(context.Background(), Config{ServiceName: "passgate", LogOutput: &buf})
	require.NoError(t, err)

	_, span := ins.Tracer("test").Start(context.Background(), "op")
	span.End()
	assert.NoError(t, ins.Shutdown(context.Background()))

	slog.Info("hello")
	assert.Contains(t, buf.String(), `"service":"passgate"`)
}
