//go:build integration

package adapters_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/simone-trubian/baldr/gatekeeper/internal/adapters"
	"github.com/simone-trubian/baldr/gatekeeper/internal/core/domain"
)

// startMockServer runs MockServer in Docker and returns its base URL.
func startMockServer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "mockserver/mockserver:5.15.0",
		ExposedPorts: []string{"1080/tcp"},
		// Wait for the actual HTTP Health endpoint, not the log.
		WaitingFor: wait.ForHTTP("/mockserver/status").
			WithPort("1080/tcp").
			WithMethod("PUT").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return "http://" + endpoint
}

// expectCompletion programs MockServer to answer the completions path with
// the given status, body and optional delay.
func expectCompletion(t *testing.T, baseURL string, status int, body string, delayMs int) {
	t.Helper()
	quoted, err := json.Marshal(body)
	require.NoError(t, err)

	payload := fmt.Sprintf(`{
		"httpRequest": {
			"method": "POST",
			"path": "/v1/chat/completions",
			"headers": {"Authorization": ["Bearer sk-integration"]}
		},
		"httpResponse": {
			"statusCode": %d,
			"headers": {"Content-Type": ["text/event-stream"]},
			"body": %s,
			"delay": {"timeUnit": "MILLISECONDS", "value": %d}
		}
	}`, status, quoted, delayMs)

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequest(http.MethodPut, baseURL+"/mockserver/expectation", strings.NewReader(payload))
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err, "Failed to connect to MockServer to set expectation")
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode, "MockServer rejected the expectation")
}

func TestLLM_Integration_StreamFromMockServer(t *testing.T) {
	base := startMockServer(t)

	var body strings.Builder
	for _, word := range []string{"Ore ", "grade ", "is ", "high."} {
		f, err := adapters.ChunkFrame(word)
		require.NoError(t, err)
		body.WriteString(f)
	}
	body.WriteString("data: {broken\n\n")
	body.WriteString("data: [DONE]\n\n")
	expectCompletion(t, base, 200, body.String(), 0)

	llm := adapters.NewLLM(adapters.LLMConfig{BaseURL: base + "/v1", APIKey: "sk-integration", StallTimeout: 5 * time.Second})
	stream, err := llm.Stream(context.Background(), completionRequest("ore grade"))
	require.NoError(t, err)

	frags := drain(stream)
	assert.NoError(t, stream.Err())
	assert.Equal(t, "Ore grade is high.", strings.Join(frags, ""))
	assert.Equal(t, []string{"Ore ", "grade ", "is ", "high.", ""}, frags)
}

func TestLLM_Integration_FailsFastOnSlowUpstream(t *testing.T) {
	base := startMockServer(t)
	expectCompletion(t, base, 200, "data: [DONE]\n\n", 5000)

	config := adapters.LLMConfig{BaseURL: base + "/v1", APIKey: "sk-integration"}
	llm := adapters.NewLLM(config)

	// A strict deadline on the caller side must cancel the upstream call.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	_, err := llm.Stream(ctx, completionRequest("ore grade"))
	duration := time.Since(start)

	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)
	assert.Less(t, duration.Seconds(), 1.5, "Proxy did not cancel the request in time!")
}

func TestLLM_Integration_UpstreamError(t *testing.T) {
	base := startMockServer(t)
	expectCompletion(t, base, 500, `{"error":"overloaded"}`, 0)

	llm := adapters.NewLLM(adapters.LLMConfig{BaseURL: base + "/v1", APIKey: "sk-integration"})
	_, err := llm.Stream(context.Background(), completionRequest("ore grade"))

	assert.ErrorIs(t, err, domain.ErrUpstreamConnect)
}
