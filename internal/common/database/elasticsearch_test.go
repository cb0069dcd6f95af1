package database

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"merchant-triggers/internal/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// esServer fakes the handful of endpoints the client touches. The product
// header is required by the v8 client's product check.
func esServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestElasticsearchClient_IndexDocument(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	srv := esServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	client, err := NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL})
	require.NoError(t, err)

	err = client.IndexDocument(context.Background(), "action-activities", "42", map[string]interface{}{
		"status": "sent",
	})
	require.NoError(t, err)
	assert.Equal(t, "/action-activities/_doc/42", gotPath)
	assert.Equal(t, "sent", gotBody["status"])
}

func TestElasticsearchClient_IndexDocument_ErrorStatus(t *testing.T) {
	srv := esServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"mapper_parsing_exception"}`))
	})

	client, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	err = client.IndexDocument(context.Background(), "action-activities", "1", map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
}
