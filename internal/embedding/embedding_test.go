package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Harshitk-cp/substrate/internal/vecmath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClient_Deterministic(t *testing.T) {
	c := NewMockClient(64)
	ctx := context.Background()

	a, err := c.Embed(ctx, "The sky is blue")
	require.NoError(t, err)
	b, err := c.Embed(ctx, "the SKY is blue!")
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, vecmath.Norm(vecmath.FromFloat32(a)), 1e-6)
}

func TestMockClient_SharedWordsResonate(t *testing.T) {
	c := NewMockClient(256)
	ctx := context.Background()

	base, err := c.Embed(ctx, "water boils at one hundred degrees")
	require.NoError(t, err)
	near, err := c.Embed(ctx, "water boils at ninety degrees")
	require.NoError(t, err)

	sim := vecmath.Cosine(vecmath.FromFloat32(base), vecmath.FromFloat32(near))
	assert.Greater(t, sim, 0.5)
}

func TestMockClient_EmptyText(t *testing.T) {
	v, err := NewMockClient(8).Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), v)
}

func TestOpenAIClient_Embed(t *testing.T) {
	var got embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "substrate/dev", r.Header.Get("User-Agent"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("test-key", 3)
	c.url = srv.URL

	vec, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "hello", got.Input)
	assert.Equal(t, 3, got.Dimensions)
	assert.Equal(t, model, got.Model)
}

func TestOpenAIClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http status", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`},
		{"api error", http.StatusOK, `{"error":{"message":"quota"}}`},
		{"no data", http.StatusOK, `{"data":[]}`},
		{"wrong size", http.StatusOK, `{"data":[{"embedding":[0.1]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewOpenAIClient("k", 3)
			c.url = srv.URL
			_, err := c.Embed(context.Background(), "x")
			assert.Error(t, err)
		})
	}
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(ProviderMock, "", 0)
	require.NoError(t, err)
	v, err := c.Embed(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, v, DefaultDimensions)

	_, err = NewClient(ProviderOpenAI, "", 16)
	assert.Error(t, err)

	c, err = NewClient(ProviderOpenAI, "key", 16)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	_, err = NewClient("bogus", "", 16)
	assert.Error(t, err)
}
