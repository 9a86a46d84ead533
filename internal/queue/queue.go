// Package queue provides allocation-free binary heaps of graph candidates.
package queue

// Item is a graph node paired with its distance to the current query.
type Item struct {
	ID       uint32
	Distance float32
}

// Queue is a binary heap of Items ordered by Distance. A min queue yields the
// closest item first, a max queue the farthest.
type Queue struct {
	max   bool
	items []Item
}

// NewMin returns a queue whose top is the closest item.
func NewMin(capacity int) *Queue {
	return &Queue{items: make([]Item, 0, capacity)}
}

// NewMax returns a queue whose top is the farthest item.
func NewMax(capacity int) *Queue {
	return &Queue{max: true, items: make([]Item, 0, capacity)}
}

// Len returns the number of queued items.
func (q *Queue) Len() int { return len(q.items) }

// Reset empties the queue, keeping its storage.
func (q *Queue) Reset() { q.items = q.items[:0] }

// Push inserts an item.
func (q *Queue) Push(item Item) {
	q.items = append(q.items, item)
	q.up(len(q.items) - 1)
}

// Top returns the head of the queue without removing it.
func (q *Queue) Top() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return q.items[0], true
}

// Pop removes and returns the head of the queue.
func (q *Queue) Pop() (Item, bool) {
	n := len(q.items)
	if n == 0 {
		return Item{}, false
	}
	head := q.items[0]
	q.items[0] = q.items[n-1]
	q.items = q.items[:n-1]
	if n > 1 {
		q.down(0)
	}
	return head, true
}

// Items exposes the heap storage in heap order. The slice is only valid until
// the next mutation.
func (q *Queue) Items() []Item { return q.items }

func (q *Queue) less(i, j int) bool {
	if q.max {
		return q.items[i].Distance > q.items[j].Distance
	}
	return q.items[i].Distance < q.items[j].Distance
}

func (q *Queue) up(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.less(i, p) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *Queue) down(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && q.less(r, l) {
			best = r
		}
		if !q.less(best, i) {
			return
		}
		q.items[i], q.items[best] = q.items[best], q.items[i]
		i = best
	}
}
