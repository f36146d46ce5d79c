package httpclient_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claims-orchestrator/internal/infra/httpclient"
)

func TestNewPooledClient_SharesTransport(t *testing.T) {
	embedder := httpclient.NewPooledClient(5 * time.Second)
	generator := httpclient.NewPooledClient(120 * time.Second)

	require.NotNil(t, embedder.Transport)
	assert.Same(t, embedder.Transport, generator.Transport)
	assert.Equal(t, 5*time.Second, embedder.Timeout)
	assert.Equal(t, 120*time.Second, generator.Timeout)
}
