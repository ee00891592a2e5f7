package queue

import (
	"testing"
	"time"

	"github.com/chuliyu/jobgate/pkg/types"
	"github.com/stretchr/testify/assert"
)

func job() *types.Job {
	return types.NewMessageJob(types.MessagePayload{RandomNo: 1, Message: "x"})
}

func TestOfferAndPollFIFO(t *testing.T) {
	q := New(3)
	assert.True(t, q.IsEmpty())

	j1, j2, j3 := job(), job(), job()
	assert.True(t, q.Offer(j1))
	assert.True(t, q.Offer(j2))
	assert.True(t, q.Offer(j3))
	assert.Equal(t, 3, q.Size())
	assert.True(t, q.IsFull())

	got1, ok := q.Poll(time.Second)
	assert.True(t, ok)
	assert.Equal(t, j1.ID, got1.ID)

	got2, ok := q.Poll(time.Second)
	assert.True(t, ok)
	assert.Equal(t, j2.ID, got2.ID)

	got3, ok := q.Poll(time.Second)
	assert.True(t, ok)
	assert.Equal(t, j3.ID, got3.ID)

	assert.True(t, q.IsEmpty())
}

func TestOfferFailsAtCapacity(t *testing.T) {
	q := New(2)
	assert.True(t, q.Offer(job()))
	assert.True(t, q.Offer(job()))

	assert.False(t, q.Offer(job()), "offer past capacity must fail fast")
	assert.Equal(t, 2, q.Size())
	assert.Equal(t, 2, q.Capacity())
}

func TestPollTimesOutOnEmpty(t *testing.T) {
	q := New(1)
	start := time.Now()
	_, ok := q.Poll(30 * time.Millisecond)
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}

func TestSizeNeverExceedsCapacity(t *testing.T) {
	q := New(5)
	for i := 0; i < 10; i++ {
		q.Offer(job())
		assert.LessOrEqual(t, q.Size(), q.Capacity())
	}
}
