package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishOwner(context.Background(), 1, "payload"))
	assert.NoError(t, n.PublishAdmins(context.Background(), "payload"))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), nil))
}

func TestOwnerChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		ownerID  uint
		expected string
	}{
		{1, "requests:user:1"},
		{100, "requests:user:100"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, OwnerChannel(tt.ownerID))
	}
	assert.Equal(t, "requests:admin", AdminChannel())
}

func TestHub_StartWiringRoutesEvents(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	hub := NewHub(rdb)
	n := NewNotifier(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.StartWiring(ctx, n))

	owner, err := hub.Register(7, nil, false)
	require.NoError(t, err)
	admin, err := hub.Register(20, nil, true)
	require.NoError(t, err)
	require.NoError(t, hub.Subscribe(admin, ViewAll))

	// The pattern subscription needs a moment to become active.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, n.PublishOwner(ctx, 7, `{"type":"request_updated","payload":{"id":1}}`))
	require.NoError(t, n.PublishAdmins(ctx, `{"type":"request_created","payload":{"id":2}}`))

	assert.Eventually(t, func() bool {
		select {
		case msg := <-owner.Send:
			return string(msg) == `{"type":"request_updated","payload":{"id":1}}`
		default:
			return false
		}
	}, testEventuallyTimeout, testPollInterval)

	assert.Eventually(t, func() bool {
		select {
		case msg := <-admin.Send:
			return string(msg) == `{"type":"request_created","payload":{"id":2}}`
		default:
			return false
		}
	}, testEventuallyTimeout, testPollInterval)

	_ = hub.Shutdown(context.Background())
}
