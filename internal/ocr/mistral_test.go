package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMistral(t *testing.T, h http.HandlerFunc) *MistralClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewMistralClient(MistralConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/",
		Model:   "mistral-ocr-latest",
		Timeout: 5 * time.Second,
	}, nil, nil)
}

func TestMistralClient_Process(t *testing.T) {
	t.Parallel()

	c := newTestMistral(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ocr", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "mistral-ocr-latest", body["model"])
		doc, _ := body["document"].(map[string]any)
		assert.Equal(t, "image_url", doc["type"])
		assert.Equal(t, "data:image/png;base64,AA==", doc["image_url"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pages":[{"index":1,"markdown":"b"},{"index":0,"markdown":"a"}]}`))
	})

	pages, err := c.Process(context.Background(), Document{Kind: ResourceImage, DataURI: "data:image/png;base64,AA=="})
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "a\nb", JoinPages(pages))
}

func TestMistralClient_ErrorStatus(t *testing.T) {
	t.Parallel()

	c := newTestMistral(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"rate limited"}`, http.StatusTooManyRequests)
	})

	_, err := c.Process(context.Background(), Document{Kind: ResourceDocument, DataURI: "data:application/pdf;base64,AA=="})
	require.ErrorIs(t, err, ErrProvider)
	assert.Contains(t, err.Error(), "429")
}

func TestMistralClient_MalformedBody(t *testing.T) {
	t.Parallel()

	c := newTestMistral(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := c.Process(context.Background(), Document{Kind: ResourceDocument, DataURI: "x"})
	require.ErrorIs(t, err, ErrProvider)
}

func TestMistralClient_TimeoutWithInjectedClient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
			_, _ = w.Write([]byte(`{"pages":[{"index":0,"markdown":"late"}]}`))
		}
	}))
	t.Cleanup(srv.Close)

	c := NewMistralClient(MistralConfig{BaseURL: srv.URL, Model: "m", Timeout: 100 * time.Millisecond}, &http.Client{}, nil)

	start := time.Now()
	_, err := c.Process(context.Background(), Document{Kind: ResourceDocument, DataURI: "data:application/pdf;base64,AA=="})

	require.ErrorIs(t, err, ErrProvider)
	assert.Less(t, time.Since(start), time.Second)
}
