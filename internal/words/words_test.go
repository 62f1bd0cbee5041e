package words

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateWithinBounds(t *testing.T) {
	s := NewSource(4, 8, "")
	for i := 0; i < 100; i++ {
		w, err := s.Pick(context.Background())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(w), 4)
		assert.LessOrEqual(t, len(w), 8)
		assert.True(t, isAlpha(w), "generated word %q must be lowercase a-z", w)
	}
}

func TestGenerateInvalidBounds(t *testing.T) {
	s := NewSource(8, 4, "")
	_, err := s.Pick(context.Background())
	assert.Error(t, err)
}

func TestFetchUsesService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]string{"perro"})
	}))
	defer srv.Close()

	s := NewSource(4, 8, srv.URL)
	w, err := s.Pick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "perro", w)
}

func TestFetchDiscardsOutOfBoundsCandidates(t *testing.T) {
	responses := []string{"sol", "sol", "electrodomestico", "casa"}
	i := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]string{responses[i]})
		i++
	}))
	defer srv.Close()

	s := NewSource(4, 8, srv.URL)
	w, err := s.Pick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "casa", w)
	assert.Equal(t, 4, i, "each discarded candidate costs one attempt")
}

func TestFetchBoundedRetriesThenLocalFallback(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewSource(4, 8, srv.URL)
	w, err := s.Pick(context.Background())
	require.NoError(t, err, "local generator must cover a dead service")
	assert.Equal(t, maxFetchAttempts, calls)
	assert.GreaterOrEqual(t, len(w), 4)
	assert.LessOrEqual(t, len(w), 8)
}

func TestFetchNormalizesCase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]string{" GATO "})
	}))
	defer srv.Close()

	s := NewSource(4, 8, srv.URL)
	w, err := s.Pick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gato", w)
}
