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

package batch

import (
	"sync"

	"github.com/batchserve/batchserve-worker-go/logger"
)

type EventQueue struct {
	capacity int32
	events   []interface{}
	lock     sync.RWMutex
}

func NewEventQueue(capacity int32) (q *EventQueue) {
	return &EventQueue{
		capacity: capacity,
		events:   make([]interface{}, 0, capacity),
	}
}

func (q *EventQueue) SubmitEvent(event interface{}) {
	q.push(event)
}

func (q *EventQueue) RetrieveEvents(batchSize int32) []interface{} {
	res := make([]interface{}, 0, batchSize)
	for i := int32(0); i < batchSize; i++ {
		event := q.pop()
		if event == nil {
			// empty, just break
			break
		}
		res = append(res, event)
	}
	return res
}

func (q *EventQueue) push(event interface{}) {
	if event != nil {
		if q.capacity > 0 && int32(q.Size()) == q.capacity {
			logger.Warnf("event queue is full, capacity: %d", q.capacity)
			return
		}
		q.lock.Lock()
		q.events = append(q.events, event)
		q.lock.Unlock()
	}
}

func (q *EventQueue) pop() interface{} {
	if q.Size() == 0 {
		return nil
	}
	q.lock.Lock()
	defer q.lock.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	event := q.events[0]
	q.events = q.events[1:]
	return event
}

func (q *EventQueue) SetCapacity(capacity int32) {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.capacity = capacity
	if int32(len(q.events)) > q.capacity {
		q.events = q.events[:q.capacity]
	}
}

func (q *EventQueue) Size() int {
	q.lock.RLock()
	defer q.lock.RUnlock()
	return len(q.events)
}

func (q *EventQueue) Clear() {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.events = nil
}
