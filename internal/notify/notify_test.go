package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conbadge/internal/model"
)

func TestNoopWhenUnconfigured(t *testing.T) {
	n := New("  ", slog.Default())
	// Must not panic or block.
	n.BadgeRegistered(context.Background(), model.BadgeRecord{BadgeNo: 1})
}

func TestPostsEvent(t *testing.T) {
	var got event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := New(srv.URL, slog.Default())
	n.BadgeRegistered(context.Background(), model.BadgeRecord{
		ID:      "abc",
		BadgeNo: 100,
		Name:    "Aila",
	})

	assert.Equal(t, "badge.registered", got.Event)
	assert.Equal(t, "abc", got.BadgeID)
	assert.Equal(t, 100, got.BadgeNo)
}

func TestDeliveryFailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	n := New(srv.URL, slog.Default())
	// The notifier logs and drops; the call itself never reports failure.
	n.BadgeRegistered(context.Background(), model.BadgeRecord{BadgeNo: 2})
}
