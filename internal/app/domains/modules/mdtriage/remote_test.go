package mdtriage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertx/internal/app/domains/entity/ettriage"
	"alertx/internal/app/pkg/errorx"
)

func TestRemoteClassifierUsesInsight(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/insights", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var in ettriage.SymptomInput
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "rash", in.Description)

		_ = json.NewEncoder(w).Encode(ettriage.Insight{DistressLevel: "severe", Entities: []string{"skin"}})
	}))
	defer srv.Close()

	c := NewRemoteClassifier(RemoteConfig{Endpoint: srv.URL + "/", APIKey: "secret", Timeout: time.Second}, NewEngine(), nil)

	res, err := c.Classify(context.Background(), &ettriage.SymptomInput{Description: "rash"})
	require.NoError(t, err)
	assert.Equal(t, ettriage.SeverityMedium, res.Severity)
	require.NotNil(t, res.Insight)
	assert.Equal(t, "severe", res.Insight.DistressLevel)
}

func TestRemoteClassifierUnavailable(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c := NewRemoteClassifier(RemoteConfig{Endpoint: srv.URL}, NewEngine(), nil)
		_, err := c.Classify(context.Background(), &ettriage.SymptomInput{Description: "stroke"})
		assert.ErrorIs(t, err, errorx.ErrClassifierUnavailable)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c := NewRemoteClassifier(RemoteConfig{Endpoint: url}, NewEngine(), nil)
		_, err := c.Classify(context.Background(), &ettriage.SymptomInput{Description: "stroke"})
		assert.ErrorIs(t, err, errorx.ErrClassifierUnavailable)
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		c := NewRemoteClassifier(RemoteConfig{Endpoint: srv.URL, Timeout: 50 * time.Millisecond}, NewEngine(), nil)
		start := time.Now()
		_, err := c.Classify(context.Background(), &ettriage.SymptomInput{Description: "stroke"})
		assert.ErrorIs(t, err, errorx.ErrClassifierUnavailable)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}
