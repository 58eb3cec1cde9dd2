package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForRequest_AgregaTenantYActor(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, "info")

	base.ForRequest("tenant-1", "admin@coop").Info().Str("period_id", "p-1").Msg("ok")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "tenant-1", line["tenant_id"])
	assert.Equal(t, "admin@coop", line["actor_id"])
	assert.Equal(t, "p-1", line["period_id"])

	buf.Reset()
	base.Info().Msg("sin petición")
	assert.NotContains(t, buf.String(), "tenant_id", "el logger base no cambia")
}

func TestFromContext(t *testing.T) {
	fallback := Nop()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))

	reqLog := Nop().ForRequest("t", "a")
	ctx := IntoContext(context.Background(), reqLog)
	assert.Same(t, reqLog, FromContext(ctx, fallback))
}

func TestNewWithWriter_Nivel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn")
	l.Info().Msg("descartado")
	assert.Empty(t, buf.String())
	l.Warn().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}
