package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientComplete(t *testing.T) {
	var gotReq chatRequest
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "Once upon a time."}},
			},
		})
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, "test-key")
	require.NoError(t, err)

	text, err := client.Complete(context.Background(),
		[]Message{{Role: "user", Content: "begin the story"}}, "some/model")
	require.NoError(t, err)

	assert.Equal(t, "Once upon a time.", text)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "some/model", gotReq.Model)
	assert.Equal(t, defaultMaxTokens, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "begin the story", gotReq.Messages[0].Content)
}

func TestHTTPClientNoAuthHeaderWithoutKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "ok"}},
			},
		})
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, "")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), []Message{{Role: "user", Content: "x"}}, "m")
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestHTTPClientNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, "k")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), []Message{{Role: "user", Content: "x"}}, "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestHTTPClientEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, "k")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), []Message{{Role: "user", Content: "x"}}, "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestNewHTTPClientRequiresEndpoint(t *testing.T) {
	_, err := NewHTTPClient("  ", "k")
	assert.Error(t, err)
}
