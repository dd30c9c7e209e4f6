package chat_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatrelay/internal/chat"
	"github.com/Tyrowin/chatrelay/internal/logging"
)

func newDispatcher(t *testing.T) (*chat.Registry, *chat.Dispatcher) {
	t.Helper()
	reg := chat.NewRegistry()
	return reg, chat.NewDispatcher(reg, logging.Discard())
}

func connectHandles(t *testing.T, reg *chat.Registry, n int) []*recordingHandle {
	t.Helper()
	handles := make([]*recordingHandle, n)
	for i := range handles {
		handles[i] = &recordingHandle{}
		_, err := reg.Connect(handles[i], fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
	}
	return handles
}

func TestDispatcher_BroadcastReachesEveryEntryOnce(t *testing.T) {
	reg, d := newDispatcher(t)
	handles := connectHandles(t, reg, 10)

	msg := chat.Message{"text": "hi"}
	report := d.Broadcast(msg)

	assert.Equal(t, chat.Report{Recipients: 10, Delivered: 10}, report)
	for i, h := range handles {
		require.Equal(t, 1, h.count(), "handle %d", i)
		assert.Equal(t, msg, h.got[0])
	}
}

func TestDispatcher_BroadcastWithNoEntries(t *testing.T) {
	_, d := newDispatcher(t)
	assert.Equal(t, chat.Report{}, d.Broadcast(chat.Message{"text": "anyone?"}))
}

func TestDispatcher_FailureIsIsolated(t *testing.T) {
	reg, d := newDispatcher(t)
	handles := connectHandles(t, reg, 4)
	handles[0].err = errors.New("write: broken pipe")
	handles[2].err = chat.ErrSendQueueFull

	report := d.Broadcast(chat.Message{"text": "hi"})

	assert.Equal(t, 4, report.Recipients)
	assert.Equal(t, 2, report.Delivered)
	assert.Equal(t, 2, report.Failed)
	assert.Zero(t, handles[0].count())
	assert.Equal(t, 1, handles[1].count())
	assert.Zero(t, handles[2].count())
	assert.Equal(t, 1, handles[3].count())
}

func TestDispatcher_PanickingHandleDoesNotEscape(t *testing.T) {
	reg, d := newDispatcher(t)
	handles := connectHandles(t, reg, 3)
	handles[1].boom = true

	var report chat.Report
	require.NotPanics(t, func() {
		report = d.Broadcast(chat.Message{"text": "hi"})
	})
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, handles[0].count())
	assert.Equal(t, 1, handles[2].count())
}

func TestDispatcher_NoDeliveryAfterDisconnect(t *testing.T) {
	reg, d := newDispatcher(t)
	gone := &recordingHandle{}
	stay := &recordingHandle{}

	goneID, err := reg.Connect(gone, "alice")
	require.NoError(t, err)
	_, err = reg.Connect(stay, "bob")
	require.NoError(t, err)

	require.NoError(t, reg.Disconnect(goneID))
	d.Broadcast(chat.Message{"text": "after"})

	assert.Zero(t, gone.count())
	assert.Equal(t, 1, stay.count())
}

func TestDispatcher_PreservesOrderPerRecipient(t *testing.T) {
	reg, d := newDispatcher(t)
	handles := connectHandles(t, reg, 3)

	for i := 0; i < 50; i++ {
		d.Broadcast(chat.Message{"seq": i})
	}

	for _, h := range handles {
		require.Equal(t, 50, h.count())
		for i, msg := range h.got {
			assert.Equal(t, i, msg["seq"])
		}
	}
}
