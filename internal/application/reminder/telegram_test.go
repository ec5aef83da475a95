package reminder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramClient_Send(t *testing.T) {
	// Arrange
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(sendMessageResponse{OK: true})
	}))
	defer srv.Close()

	client := NewTelegramClient("test-token")
	client.baseURL = srv.URL

	// Act
	err := client.Send(context.Background(), "12345", "Hallo Max")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "12345", got.ChatID)
	assert.Equal(t, "Hallo Max", got.Text)
}

func TestTelegramClient_SendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(sendMessageResponse{OK: false, Description: "chat not found"})
	}))
	defer srv.Close()

	client := NewTelegramClient("test-token")
	client.baseURL = srv.URL

	err := client.Send(context.Background(), "0", "Hallo")

	assert.ErrorContains(t, err, "chat not found")
}
