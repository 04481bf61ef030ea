package places

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerperClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Gym in Nashik best", body["q"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"places": [
			{"title": "Iron Temple", "address": "12 MG Road", "phoneNumber": "+91 12345", "website": "https://it.example", "rating": 4.5, "cid": "c1"},
			{"title": "Flex Zone", "placeId": "p2"}
		]}`))
	}))
	defer srv.Close()

	client := NewSerperClientWithURL("test-key", srv.URL)
	results, err := client.Search(context.Background(), "Gym in Nashik best")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Iron Temple", results[0].Title)
	assert.Equal(t, "c1", results[0].CID)
	assert.Equal(t, 4.5, results[0].Rating)
	assert.Equal(t, "p2", results[1].PlaceID)
}

func TestSerperClient_FatalStatuses(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid api key", status)
		}))

		client := NewSerperClientWithURL("bad-key", srv.URL)
		_, err := client.Search(context.Background(), "Gym in Nashik best")
		assert.ErrorIs(t, err, ErrFatal, "status %d must be fatal", status)

		srv.Close()
	}
}

func TestSerperClient_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream hiccup", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewSerperClientWithURL("test-key", srv.URL)
	_, err := client.Search(context.Background(), "Gym in Nashik best")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrFatal)
}

func TestSerperClient_TransportErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewSerperClientWithURL("test-key", srv.URL)
	_, err := client.Search(context.Background(), "Gym in Nashik best")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrFatal)
}

func TestSerperClient_EmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewSerperClientWithURL("test-key", srv.URL)
	results, err := client.Search(context.Background(), "Gym in Nowhere best")
	require.NoError(t, err)
	assert.Empty(t, results)
}
