package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_SendToUser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	userID := uuid.New()
	client := &Client{hub: hub, userID: userID, send: make(chan []byte, 1)}
	hub.Register(client)
	assert.Eventually(t, func() bool { return hub.Online(userID) }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.SendToUser(ctx, userID, "donation_received", map[string]string{"amount": "50000"}))
	require.NoError(t, hub.SendToUser(ctx, uuid.New(), "donation_received", nil))

	select {
	case raw := <-client.send:
		var msg struct {
			Type string            `json:"type"`
			Data map[string]string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "donation_received", msg.Type)
		assert.Equal(t, "50000", msg.Data["amount"])
	case <-time.After(time.Second):
		t.Fatal("сообщение не доставлено")
	}

	hub.Unregister(client)
	assert.Eventually(t, func() bool { return !hub.Online(userID) }, time.Second, 5*time.Millisecond)
}

func TestHub_StoppedHubDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	hub.Unregister(&Client{hub: hub, userID: uuid.New()})
	for i := 0; i < cap(hub.outbox)+1; i++ {
		_ = hub.SendToUser(context.Background(), uuid.New(), "x", nil)
	}
}
