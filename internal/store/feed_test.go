package store

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed_PerKindFIFO(t *testing.T) {
	feed := NewFeed()
	ch := feed.Subscribe(KindUsers, 16)

	for i := 0; i < 10; i++ {
		feed.Publish(Event{Kind: KindUsers, Op: OpDelete, ID: strconv.Itoa(i)})
	}

	for i := 0; i < 10; i++ {
		evt := <-ch
		assert.Equal(t, strconv.Itoa(i), evt.ID, "events must arrive in publish order")
	}
}

func TestFeed_KindIsolation(t *testing.T) {
	feed := NewFeed()
	users := feed.Subscribe(KindUsers, 4)
	sponsors := feed.Subscribe(KindSponsors, 4)

	feed.Publish(Event{Kind: KindUsers, Op: OpDelete, ID: "u-1"})
	feed.Publish(Event{Kind: KindSponsors, Op: OpDelete, ID: "s-1"})

	evt := <-users
	assert.Equal(t, KindUsers, evt.Kind)
	assert.Empty(t, users, "no cross-kind delivery")

	evt = <-sponsors
	assert.Equal(t, KindSponsors, evt.Kind)
}

func TestFeed_SlowSubscriberLosesEventsWithoutBlocking(t *testing.T) {
	feed := NewFeed()
	ch := feed.Subscribe(KindUsers, 1)

	// Publishing past the buffer must not block; the overflow is dropped.
	for i := 0; i < 3; i++ {
		feed.Publish(Event{Kind: KindUsers, Op: OpDelete, ID: strconv.Itoa(i)})
	}

	evt := <-ch
	require.Equal(t, "0", evt.ID)
	assert.Empty(t, ch)
}

func TestFeed_MultipleSubscribersEachReceive(t *testing.T) {
	feed := NewFeed()
	a := feed.Subscribe(KindGlobal, 4)
	b := feed.Subscribe(KindGlobal, 4)

	feed.Publish(Event{Kind: KindGlobal, Op: OpUpdate})

	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
}
