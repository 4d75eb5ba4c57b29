package timing

import "container/heap"

type eventQueue struct {
	events eventHeap
	seq    uint64
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	heap.Init(&q.events)
	return q
}

func (q *eventQueue) Push(evt Event) {
	q.seq++
	heap.Push(&q.events, queuedEvent{evt: evt, seq: q.seq})
}

func (q *eventQueue) Pop() Event {
	return heap.Pop(&q.events).(queuedEvent).evt
}

func (q *eventQueue) Peek() Event {
	return q.events[0].evt
}

func (q *eventQueue) Len() int {
	return q.events.Len()
}

// queuedEvent remembers the insertion order so that same-time events are
// handled in the order they were scheduled.
type queuedEvent struct {
	evt Event
	seq uint64
}

type eventHeap []queuedEvent

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	ti, tj := h[i].evt.Time(), h[j].evt.Time()
	if ti != tj {
		return ti < tj
	}

	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(queuedEvent))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	evt := old[n-1]
	*h = old[:n-1]
	return evt
}
