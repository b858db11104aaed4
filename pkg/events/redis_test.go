package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return client, mr
}

func TestRedisPublisher_Publish(t *testing.T) {
	client, _ := setupRedis(t)
	publisher := NewRedisPublisher(client, "", 0)
	defer publisher.Close()

	ctx := context.Background()
	event := New(SecurityUpdated, 42, map[string]interface{}{"min_password_length": 12})

	if err := publisher.Publish(ctx, event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	entries, err := client.XRange(ctx, DefaultStream, "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 stream entry, got %d", len(entries))
	}

	if entries[0].Values["name"] != SecurityUpdated {
		t.Errorf("Expected event name %s, got %v", SecurityUpdated, entries[0].Values["name"])
	}

	var decoded Event
	if err := json.Unmarshal([]byte(entries[0].Values["payload"].(string)), &decoded); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if decoded.ID != event.ID {
		t.Errorf("Expected event id %s, got %s", event.ID, decoded.ID)
	}
	if decoded.OrganizationID != 42 {
		t.Errorf("Expected organization id 42, got %d", decoded.OrganizationID)
	}
}

func TestNew_UniqueIDs(t *testing.T) {
	a := New(APIKeyCreated, 1, nil)
	b := New(APIKeyCreated, 1, nil)
	if a.ID == b.ID {
		t.Error("Expected unique event ids for de-duplication")
	}
}
