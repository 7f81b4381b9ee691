package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status int
		kind   ErrorKind
	}{
		{429, KindRateLimited},
		{500, KindUnavailable},
		{502, KindUnavailable},
		{503, KindUnavailable},
		{504, KindTimeout},
		{408, KindTimeout},
		{400, KindClientError},
		{401, KindClientError},
		{403, KindClientError},
		{404, KindClientError},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := classifyHTTPError(tt.status, []byte("body"))
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(classifyHTTPError(429, nil)))
	assert.True(t, IsTransient(classifyHTTPError(500, nil)))
	assert.True(t, IsTransient(classifyHTTPError(503, nil)))
	assert.True(t, IsTransient(NewGatewayError(KindTimeout, errors.New("deadline"))))

	assert.False(t, IsTransient(classifyHTTPError(401, nil)))
	assert.False(t, IsTransient(classifyHTTPError(404, nil)))
	assert.False(t, IsTransient(errors.New("plain")))
}

func TestShouldRetry(t *testing.T) {
	cfg := DefaultRetryConfig() // ceiling of 3

	transient := []error{
		classifyHTTPError(429, nil),
		classifyHTTPError(500, nil),
		classifyHTTPError(503, nil),
		NewGatewayError(KindTimeout, errors.New("timeout")),
	}
	for _, err := range transient {
		assert.True(t, cfg.ShouldRetry(err, 1), "kind %s under ceiling", KindOf(err))
		assert.True(t, cfg.ShouldRetry(err, 2))
		assert.False(t, cfg.ShouldRetry(err, 3), "kind %s at ceiling", KindOf(err))
		assert.False(t, cfg.ShouldRetry(err, 4))
	}

	fatal := []error{
		classifyHTTPError(401, nil),
		classifyHTTPError(404, nil),
	}
	for _, err := range fatal {
		for attempts := 0; attempts <= 4; attempts++ {
			assert.False(t, cfg.ShouldRetry(err, attempts), "kind %s at attempt %d", KindOf(err), attempts)
		}
	}
}

func TestGatewayError_Unwrap(t *testing.T) {
	inner := errors.New("inner cause")
	err := NewGatewayError(KindUnavailable, inner)
	assert.ErrorIs(t, err, inner)
}

func TestModelName_EchoesUnknown(t *testing.T) {
	assert.Equal(t, "my-custom-model", ModelName("my-custom-model"))
	assert.NotEqual(t, "anthropic", ModelName("anthropic"))
}
