package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversToSubscribers(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Notify("chamados", "created", "abc", nil)

	ev := <-ch
	assert.Equal(t, "chamados", ev.Topic)
	assert.Equal(t, "created", ev.Action)
	assert.Equal(t, "abc", ev.ID)
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		h.Notify("chamados", "updated", "x", nil)
	}
	// Publishing never blocked; the buffer holds at most its capacity.
	assert.Len(t, ch, subscriberBuffer)
}

func TestHubCancelRemovesSubscriber(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe()
	cancel()

	h.Notify("chamados", "created", "abc", nil)
	require.Empty(t, ch)
}
