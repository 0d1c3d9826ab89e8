package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/review_widget/internal/domain"
)

func TestLogger_JSONWithPartition(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	log.WithPartition(domain.Partition{ProductID: "p1", Website: "shop.com"}).
		Error("store read failed", errors.New("timeout"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "p1", entry["product_id"])
	assert.Equal(t, "shop.com", entry["website"])
	assert.Equal(t, "timeout", entry["error"])
	assert.Equal(t, "store read failed", entry["message"])
}

func TestLogger_TestEnvSuppressesInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("test", &buf)

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogger_ProductionSuppressesDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	log.Debugf("cache hit for %s", "p1")
	assert.Empty(t, buf.String())
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().WithFields(map[string]any{"k": "v"}).Error("ignored", errors.New("x"))
	})
}
