package notify

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNotifier_Send(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	n := NewLogNotifier(&logger)
	res, err := n.Send(context.Background(), "+15550001111", "your otp is 123456")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Contains(t, buf.String(), `"destination":"+15550001111"`)
	assert.Contains(t, buf.String(), "your otp is 123456")
}

func TestLogNotifier_SendHidesMessageAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)

	n := NewLogNotifier(&logger)
	res, err := n.Send(context.Background(), "+15550001111", "your otp is 123456")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Contains(t, buf.String(), `"destination":"+15550001111"`)
	assert.NotContains(t, buf.String(), "123456")
}
