package game

import (
	"runtime"
	"sync/atomic"
)

// Intent is one key transition coming from a remote client.
type Intent struct {
	Action Action `json:"action" msgpack:"action"`
	Down   bool   `json:"down" msgpack:"down"`
}

const cacheLine = 64

type pad [cacheLine]byte

type intentSlot struct {
	seq    atomic.Uint64
	intent Intent
}

// IntentQueue is a bounded multi-producer single-consumer ring. Network
// readers push from any goroutine; the tick drains it under the engine
// lock. Each slot carries a sequence number so the consumer never reads a
// slot whose producer has claimed but not yet written it.
type IntentQueue struct {
	_     pad
	head  atomic.Uint64 // next slot to claim
	_     pad
	tail  atomic.Uint64 // next slot to read
	_     pad
	mask  uint64
	slots []intentSlot
}

// NewIntentQueue creates a queue holding at least capacity intents,
// rounded up to a power of two.
func NewIntentQueue(capacity int) *IntentQueue {
	n := 1
	for n < capacity {
		n <<= 1
	}
	q := &IntentQueue{mask: uint64(n - 1), slots: make([]intentSlot, n)}
	for i := range q.slots {
		q.slots[i].seq.Store(uint64(i))
	}
	return q
}

// TryPush adds in, reporting false when the queue is full.
func (q *IntentQueue) TryPush(in Intent) bool {
	for {
		head := q.head.Load()
		slot := &q.slots[head&q.mask]
		seq := slot.seq.Load()

		switch {
		case seq == head:
			if q.head.CompareAndSwap(head, head+1) {
				slot.intent = in
				slot.seq.Store(head + 1)
				return true
			}
		case seq < head:
			return false
		}
		// another producer won the slot
		runtime.Gosched()
	}
}

// TryPop removes the oldest intent. Single consumer only.
func (q *IntentQueue) TryPop() (Intent, bool) {
	tail := q.tail.Load()
	slot := &q.slots[tail&q.mask]
	if slot.seq.Load() != tail+1 {
		return Intent{}, false
	}
	in := slot.intent
	slot.seq.Store(tail + q.mask + 1)
	q.tail.Store(tail + 1)
	return in, true
}

// Len returns the approximate number of queued intents
func (q *IntentQueue) Len() int {
	head, tail := q.head.Load(), q.tail.Load()
	if head < tail {
		return 0
	}
	return int(head - tail)
}

// Cap returns the queue capacity
func (q *IntentQueue) Cap() int {
	return int(q.mask + 1)
}
