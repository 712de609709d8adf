package store

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/eclipse/paho.mqtt.golang/packets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a miniredis instance and returns an opened store.
func setupTestStore(t *testing.T, clientID string) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	st := storeForAddr(t, clientID, mr.Addr())
	st.Open()
	return st, mr
}

// storeForAddr connects a store to an existing miniredis address without
// opening it.
func storeForAddr(t *testing.T, clientID, addr string) *RedisStore {
	t.Helper()

	st, err := NewRedisStore(clientID, Options{
		URL:            fmt.Sprintf("redis://%s", addr),
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		Logger:         slog.Default(),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = st.Shutdown()
	})

	return st
}

// publishPacket builds an outbound QoS 1 publish for store roundtrips.
func publishPacket(topic string, payload string, id uint16) *packets.PublishPacket {
	pub := packets.NewControlPacket(packets.Publish).(*packets.PublishPacket)
	pub.TopicName = topic
	pub.Payload = []byte(payload)
	pub.MessageID = id
	pub.Qos = 1
	return pub
}

func TestNewRedisStore(t *testing.T) {
	t.Run("successful connection", func(t *testing.T) {
		mr := miniredis.RunT(t)
		defer mr.Close()

		st, err := NewRedisStore("agent-abc123", Options{
			URL: fmt.Sprintf("redis://%s", mr.Addr()),
		})
		require.NoError(t, err)
		require.NotNil(t, st)
		defer st.Shutdown()
	})

	t.Run("empty client ID", func(t *testing.T) {
		_, err := NewRedisStore("", Options{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "client ID")
	})

	t.Run("connection failure", func(t *testing.T) {
		_, err := NewRedisStore("agent-abc123", Options{
			URL:            "redis://localhost:1",
			ConnectTimeout: 100 * time.Millisecond,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := NewRedisStore("agent-abc123", Options{
			URL: "invalid://url",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse Redis URL")
	})
}

func TestPutGetRoundtrip(t *testing.T) {
	st, _ := setupTestStore(t, "agent-abc123")

	pub := publishPacket("devices/agent/state", `{"temp":21.5}`, 7)
	st.Put("o.7", pub)

	got := st.Get("o.7")
	require.NotNil(t, got)

	gotPub, ok := got.(*packets.PublishPacket)
	require.True(t, ok, "expected a publish packet, got %T", got)
	assert.Equal(t, pub.TopicName, gotPub.TopicName)
	assert.Equal(t, pub.Payload, gotPub.Payload)
	assert.Equal(t, pub.MessageID, gotPub.MessageID)
	assert.Equal(t, pub.Qos, gotPub.Qos)
}

func TestGetMissingKey(t *testing.T) {
	st, _ := setupTestStore(t, "agent-abc123")
	assert.Nil(t, st.Get("o.99"))
}

func TestAllAndDel(t *testing.T) {
	st, _ := setupTestStore(t, "agent-abc123")

	st.Put("o.1", publishPacket("a", "1", 1))
	st.Put("o.2", publishPacket("b", "2", 2))
	st.Put("i.3", publishPacket("c", "3", 3))

	assert.ElementsMatch(t, []string{"o.1", "o.2", "i.3"}, st.All())

	st.Del("o.1")
	assert.ElementsMatch(t, []string{"o.2", "i.3"}, st.All())
	assert.Nil(t, st.Get("o.1"))
}

func TestReset(t *testing.T) {
	st, _ := setupTestStore(t, "agent-abc123")

	st.Put("o.1", publishPacket("a", "1", 1))
	st.Put("o.2", publishPacket("b", "2", 2))

	st.Reset()
	assert.Empty(t, st.All())

	// Reset on an already-empty store is a no-op.
	st.Reset()
	assert.Empty(t, st.All())
}

func TestClientIDsAreIsolated(t *testing.T) {
	mr := miniredis.RunT(t)

	first := storeForAddr(t, "agent-abc123", mr.Addr())
	second := storeForAddr(t, "agent-def456", mr.Addr())
	first.Open()
	second.Open()

	first.Put("o.1", publishPacket("a", "first", 1))
	second.Put("o.1", publishPacket("a", "second", 1))

	gotFirst := first.Get("o.1").(*packets.PublishPacket)
	gotSecond := second.Get("o.1").(*packets.PublishPacket)
	assert.Equal(t, []byte("first"), gotFirst.Payload)
	assert.Equal(t, []byte("second"), gotSecond.Payload)

	// Resetting one client's session leaves the other untouched.
	first.Reset()
	assert.Empty(t, first.All())
	assert.ElementsMatch(t, []string{"o.1"}, second.All())
}

func TestPacketsSurviveReopen(t *testing.T) {
	st, _ := setupTestStore(t, "agent-abc123")

	st.Put("o.5", publishPacket("devices/agent/state", "pending", 5))

	// A disconnect/reconnect cycle closes and reopens the store.
	st.Close()
	st.Open()

	got := st.Get("o.5")
	require.NotNil(t, got)
	assert.Equal(t, []byte("pending"), got.(*packets.PublishPacket).Payload)
}

func TestClosedStoreIgnoresOperations(t *testing.T) {
	mr := miniredis.RunT(t)
	st := storeForAddr(t, "agent-abc123", mr.Addr())

	// Never opened: everything is a logged no-op.
	st.Put("o.1", publishPacket("a", "1", 1))
	assert.Nil(t, st.Get("o.1"))
	assert.Nil(t, st.All())
	st.Del("o.1")
	st.Reset()

	st.Open()
	st.Put("o.1", publishPacket("a", "1", 1))
	st.Close()

	// Closed again: reads return nothing, the packet itself survives.
	assert.Nil(t, st.Get("o.1"))
	st.Open()
	require.NotNil(t, st.Get("o.1"))
}

func TestShutdown(t *testing.T) {
	mr := miniredis.RunT(t)
	st := storeForAddr(t, "agent-abc123", mr.Addr())
	st.Open()

	require.NoError(t, st.Shutdown())
}
