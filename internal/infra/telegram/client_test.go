package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"taskreminder/internal/config"
	"taskreminder/internal/domain"
)

func newClient(srv *httptest.Server, timeout time.Duration) *Client {
	return New(config.Telegram{Token: "123:secret", BaseURL: srv.URL + "/"}, timeout)
}

func TestSendPostsMessage(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bot123:secret/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	err := newClient(srv, time.Second).Send(context.Background(), 1001, "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(1001), got.ChatID)
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, "Markdown", got.ParseMode)
}

func TestSendClassifiesFailures(t *testing.T) {
	tests := []struct {
		status    int
		permanent bool
	}{
		{http.StatusBadRequest, true},
		{http.StatusUnauthorized, true},
		{http.StatusForbidden, true},
		{http.StatusNotFound, true},
		{http.StatusConflict, true},
		{http.StatusRequestEntityTooLarge, true},
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
		{http.StatusBadGateway, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"ok":false,"description":"nope"}`))
			}))
			defer srv.Close()

			err := newClient(srv, time.Second).Send(context.Background(), 1001, "hello")
			require.Error(t, err)
			assert.Equal(t, tt.permanent, domain.IsPermanent(err))

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "nope", apiErr.Description)
		})
	}
}

func TestSendTimeoutIsTransientAndHidesToken(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	err := newClient(srv, 20*time.Millisecond).Send(context.Background(), 1001, "hello")
	require.Error(t, err)
	assert.False(t, domain.IsPermanent(err))
	assert.NotContains(t, err.Error(), "secret")
}

func TestSendRejectsInvalidRecipient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))
	defer srv.Close()

	err := newClient(srv, time.Second).Send(context.Background(), 0, "hello")
	assert.True(t, domain.IsPermanent(err))
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
}
