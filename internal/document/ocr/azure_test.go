package ocr

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docflow/docflow-backend/internal/document/domain"
	"github.com/docflow/docflow-backend/pkg/config"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.OCRConfig{
		Endpoint:     srv.URL,
		Key:          "test-key",
		APIVersion:   "2023-07-31",
		PollInterval: 5 * time.Millisecond,
		Timeout:      2 * time.Second,
	}), srv
}

func TestReadText(t *testing.T) {
	var polls atomic.Int32

	mux := http.NewServeMux()
	var srvURL string

	mux.HandleFunc("/formrecognizer/documentModels/prebuilt-read:analyze", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		assert.Equal(t, "2023-07-31", r.URL.Query().Get("api-version"))

		w.Header().Set("Operation-Location", srvURL+"/results/op-1")
		w.WriteHeader(http.StatusAccepted)
	})

	mux.HandleFunc("/results/op-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Ocp-Apim-Subscription-Key"))

		if polls.Add(1) == 1 {
			w.Write([]byte(`{"status":"running"}`))
			return
		}
		w.Write([]byte(`{
			"status": "succeeded",
			"analyzeResult": {
				"pages": [
					{"lines": [{"content": "ROYAUME DU MAROC"}, {"content": "CARTE NATIONALE D'IDENTITE"}]},
					{"lines": [{"content": "AB123456"}]}
				]
			}
		}`))
	})

	client, srv := newTestClient(t, mux)
	srvURL = srv.URL

	text, err := client.ReadText(context.Background(), []byte("fake-image"))
	require.NoError(t, err)
	assert.Equal(t, "ROYAUME DU MAROC\nCARTE NATIONALE D'IDENTITE\nAB123456", text)
	assert.Equal(t, int32(2), polls.Load())
}

func TestReadText_SubmitRejected(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.ReadText(context.Background(), []byte("fake-image"))
	require.Error(t, err)

	var ocrErr *domain.OCRError
	assert.True(t, errors.As(err, &ocrErr))
}

func TestReadText_OperationFailed(t *testing.T) {
	mux := http.NewServeMux()
	var srvURL string

	mux.HandleFunc("/formrecognizer/documentModels/prebuilt-read:analyze", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Operation-Location", srvURL+"/results/op-2")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/results/op-2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"failed","error":{"code":"InvalidImage","message":"image unreadable"}}`))
	})

	client, srv := newTestClient(t, mux)
	srvURL = srv.URL

	_, err := client.ReadText(context.Background(), []byte("fake-image"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InvalidImage")
}

func TestReadText_ContextCancelled(t *testing.T) {
	mux := http.NewServeMux()
	var srvURL string

	mux.HandleFunc("/formrecognizer/documentModels/prebuilt-read:analyze", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Operation-Location", srvURL+"/results/op-3")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/results/op-3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"running"}`))
	})

	client, srv := newTestClient(t, mux)
	srvURL = srv.URL

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := client.ReadText(ctx, []byte("fake-image"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
