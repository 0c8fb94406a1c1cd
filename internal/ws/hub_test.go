package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublishEnvelope(t *testing.T) {
	h := NewHub()
	h.Publish("batch_updated", map[string]interface{}{"remainingQuantity": 80})

	raw := <-h.Broadcast
	var msg struct {
		Type string                 `json:"type"`
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	require.Equal(t, "batch_updated", msg.Type)
	require.EqualValues(t, 80, msg.Data["remainingQuantity"])
}

func TestPublishDoesNotBlockWhenFull(t *testing.T) {
	h := NewHub()
	for i := 0; i < broadcastBuffer+10; i++ {
		h.Publish("wallet_updated", i)
	}
	require.Len(t, h.Broadcast, broadcastBuffer)
	require.Equal(t, 0, h.Count())
}

func TestLeaveAfterShutdownDoesNotBlock(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	cancel()

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	left := make(chan struct{})
	go func() {
		h.Leave(nil)
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(time.Second):
		t.Fatal("Leave blocked after shutdown")
	}
	require.False(t, h.Join(nil))
}
