package settlement

import "time"

type retryQueue struct {
	out  chan<- Job
	done <-chan struct{}
}

func newRetryQueue(out chan<- Job, done <-chan struct{}) *retryQueue {
	return &retryQueue{out: out, done: done}
}

// Enqueue hands job back to the workers after delay. Jobs still in flight
// when the coordinator stops stay in the pending outbox.
func (q *retryQueue) Enqueue(job Job, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, func() {
		select {
		case <-q.done:
		case q.out <- job:
			metricQueueLen.Set(int64(len(q.out)))
		}
	})
}
