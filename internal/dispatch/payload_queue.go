/*
 * Copyright (c) 2025 The BatchServe Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package dispatch

import (
	"errors"
	"sync"
	"time"

	"github.com/batchserve/batchserve-worker-go/internal/payload"
	"github.com/batchserve/batchserve-worker-go/internal/queue"
)

var ErrQueueClosed = errors.New("payload queue is closed")

// PayloadQueue serializes all access to an InstanceQueue, whose payload
// sequence is unsynchronized by contract, and adds blocking dequeue on top.
// Producers must not hold any payload exec mutex while calling into the
// queue; the dispatch path acquires exec mutexes while holding the queue
// mutex and the reverse order would deadlock.
type PayloadQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  *queue.InstanceQueue
	closed bool
}

func NewPayloadQueue(maxBatchSize int32, maxQueueDelay time.Duration) *PayloadQueue {
	pq := &PayloadQueue{
		queue: queue.NewInstanceQueue(maxBatchSize, maxQueueDelay),
	}
	pq.cond = sync.NewCond(&pq.mu)
	return pq
}

func (pq *PayloadQueue) Enqueue(p *payload.Payload) error {
	pq.mu.Lock()
	if pq.closed {
		pq.mu.Unlock()
		return ErrQueueClosed
	}
	pq.queue.Enqueue(p)
	pq.mu.Unlock()
	pq.cond.Signal()
	return nil
}

// Dequeue blocks until a payload is available, then pops it together with
// any payloads merged into it. After Close it keeps returning remaining
// payloads until the queue drains, then reports ErrQueueClosed. The
// calling goroutine counts as a waiting consumer for the full call.
func (pq *PayloadQueue) Dequeue() (*payload.Payload, []*payload.Payload, error) {
	pq.queue.IncrementConsumerCount()
	defer pq.queue.DecrementConsumerCount()

	pq.mu.Lock()
	defer pq.mu.Unlock()
	for pq.queue.Empty() && !pq.closed {
		pq.cond.Wait()
	}
	if pq.queue.Empty() {
		return nil, nil, ErrQueueClosed
	}
	head, merged := pq.queue.Dequeue()
	return head, merged, nil
}

func (pq *PayloadQueue) Size() int {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	return pq.queue.Size()
}

func (pq *PayloadQueue) Closed() bool {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	return pq.closed
}

// WaitForConsumer blocks until at least one consumer goroutine is inside
// Dequeue. Producers use it to avoid dispatching into a dead instance.
func (pq *PayloadQueue) WaitForConsumer() {
	pq.queue.WaitForConsumer()
}

func (pq *PayloadQueue) WaitingConsumerCount() int {
	return pq.queue.WaitingConsumerCount()
}

// Close stops admission and wakes every blocked consumer.
func (pq *PayloadQueue) Close() {
	pq.mu.Lock()
	pq.closed = true
	pq.mu.Unlock()
	pq.cond.Broadcast()
}

// Drain removes whatever is still queued, in dispatch order. Meant for
// shutdown, after Close, to fail leftover work explicitly.
func (pq *PayloadQueue) Drain() []*payload.Payload {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	var leftovers []*payload.Payload
	for !pq.queue.Empty() {
		head, merged := pq.queue.Dequeue()
		leftovers = append(leftovers, head)
		leftovers = append(leftovers, merged...)
	}
	return leftovers
}
