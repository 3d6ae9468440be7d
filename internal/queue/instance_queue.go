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

package queue

import (
	"sync"
	"time"

	"github.com/batchserve/batchserve-worker-go/internal/payload"
)

// InstanceQueue is the admission queue of a single model instance. Payloads
// wait in FIFO order; when a consumer dequeues, payloads that already waited
// longer than maxQueueDelay are folded into the dispatched batch as long as
// the combined batch size stays within maxBatchSize.
//
// The payload sequence itself is not synchronized: callers serialize
// Enqueue, Dequeue, Size and Empty externally. The queue only synchronizes
// internally on each payload's exec mutex and on the waiting-consumer
// counter, which carries its own mutex and condition variable.
type InstanceQueue struct {
	queue         []*payload.Payload
	maxBatchSize  int32
	maxQueueDelay time.Duration

	waitingConsumerMu    sync.Mutex
	waitingConsumerCond  *sync.Cond
	waitingConsumerCount int
}

// NewInstanceQueue builds a queue with the given merge limits. Merging is
// disabled entirely when maxBatchSize <= 1 or maxQueueDelay == 0.
func NewInstanceQueue(maxBatchSize int32, maxQueueDelay time.Duration) *InstanceQueue {
	q := &InstanceQueue{
		queue:         make([]*payload.Payload, 0, 8),
		maxBatchSize:  maxBatchSize,
		maxQueueDelay: maxQueueDelay,
	}
	q.waitingConsumerCond = sync.NewCond(&q.waitingConsumerMu)
	return q
}

func (q *InstanceQueue) Size() int {
	return len(q.queue)
}

func (q *InstanceQueue) Empty() bool {
	return len(q.queue) == 0
}

// Enqueue appends a payload at the tail. No merging happens here; batching
// decisions are deferred to Dequeue so freshly arrived work still has a
// chance to ride along.
func (q *InstanceQueue) Enqueue(p *payload.Payload) {
	q.queue = append(q.queue, p)
}

// Dequeue removes the front payload, transitions it to executing under its
// exec mutex, and greedily merges queued payloads whose age exceeds
// maxQueueDelay while they fit under maxBatchSize. Merged payloads are
// returned in absorption order. A candidate that does not fit, or whose
// merge fails, keeps its queued state and position for a later dequeue.
//
// Callers must not invoke Dequeue on an empty queue.
func (q *InstanceQueue) Dequeue() (*payload.Payload, []*payload.Payload) {
	head := q.queue[0]
	q.queue = q.queue[1:]

	var mergedPayloads []*payload.Payload

	head.ExecMutex().Lock()
	defer head.ExecMutex().Unlock()
	head.SetState(payload.StateExecuting)

	if len(q.queue) > 0 && q.maxQueueDelay > 0 && q.maxBatchSize > 1 && !head.Saturated() {
		continueMerge := true
		for continueMerge {
			continueMerge = q.mergeFront(head, &mergedPayloads)
		}
	}
	return head, mergedPayloads
}

// mergeFront attempts to fold the current front payload into head.
// The executing transition is applied only after the fit check and the
// merge both succeeded, so a rejected candidate stays an ordinary queued
// payload. Caller holds head's exec mutex.
func (q *InstanceQueue) mergeFront(head *payload.Payload, mergedPayloads *[]*payload.Payload) bool {
	if len(q.queue) == 0 {
		return false
	}
	front := q.queue[0]
	if front.Saturated() {
		return false
	}
	if time.Since(front.BatcherStart()) <= q.maxQueueDelay {
		return false
	}

	front.ExecMutex().Lock()
	defer front.ExecMutex().Unlock()
	if head.BatchSize()+front.BatchSize() > q.maxBatchSize {
		return false
	}
	if err := head.Merge(front); err != nil {
		return false
	}
	front.SetState(payload.StateExecuting)
	q.queue = q.queue[1:]
	*mergedPayloads = append(*mergedPayloads, front)
	return true
}

// IncrementConsumerCount announces an idle consumer and wakes one waiter.
func (q *InstanceQueue) IncrementConsumerCount() {
	q.waitingConsumerMu.Lock()
	q.waitingConsumerCount++
	q.waitingConsumerMu.Unlock()
	q.waitingConsumerCond.Signal()
}

// DecrementConsumerCount retracts an idle consumer and wakes one waiter.
func (q *InstanceQueue) DecrementConsumerCount() {
	q.waitingConsumerMu.Lock()
	q.waitingConsumerCount--
	q.waitingConsumerMu.Unlock()
	q.waitingConsumerCond.Signal()
}

// WaitForConsumer blocks until at least one consumer is waiting for work.
// The wait is unbounded; callers needing a deadline layer their own.
func (q *InstanceQueue) WaitForConsumer() {
	q.waitingConsumerMu.Lock()
	defer q.waitingConsumerMu.Unlock()
	for q.waitingConsumerCount <= 0 {
		q.waitingConsumerCond.Wait()
	}
}

func (q *InstanceQueue) WaitingConsumerCount() int {
	q.waitingConsumerMu.Lock()
	defer q.waitingConsumerMu.Unlock()
	return q.waitingConsumerCount
}
