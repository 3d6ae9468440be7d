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

package payload

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/batchserve/batchserve-worker-go/inference"
)

type State int32

const (
	StateUninitialized State = 0
	StateQueued        State = 1
	StateExecuting     State = 2
	StateReleased      State = 3
)

var stateDesc = map[State]string{
	StateUninitialized: "uninitialized",
	StateQueued:        "queued",
	StateExecuting:     "executing",
	StateReleased:      "released",
}

func (s State) String() string {
	return stateDesc[s]
}

var (
	ErrMergeSelf      = errors.New("cannot merge a payload into itself")
	ErrMergeNil       = errors.New("cannot merge a nil payload")
	ErrMergeNotQueued = errors.New("merge donor is not in queued state")
	ErrSaturated      = errors.New("payload is saturated")
	ErrNotGrowable    = errors.New("payload is no longer accepting requests")
)

// Payload groups inference requests that execute as one batch. The exec
// mutex is part of the public contract: the state transition to executing,
// request growth and merging all happen under it, so a producer still
// appending requests can never race the dispatch path. Saturated is set by
// the owning batcher before the payload is enqueued and never afterwards.
type Payload struct {
	id           int64
	mu           sync.Mutex
	state        State
	saturated    bool
	batcherStart time.Time
	requests     []*inference.Request
}

func New(id int64) *Payload {
	return &Payload{
		id:           id,
		state:        StateUninitialized,
		batcherStart: time.Now(),
	}
}

func (p *Payload) Id() int64 {
	return p.id
}

// ExecMutex returns the payload's exclusive lock. Holding it is the only
// sanctioned way to observe or change state, append requests, or merge.
func (p *Payload) ExecMutex() *sync.Mutex {
	return &p.mu
}

// State reads the lifecycle state. Caller holds the exec mutex.
func (p *Payload) State() State {
	return p.state
}

// SetState transitions the lifecycle state. Caller holds the exec mutex.
func (p *Payload) SetState(state State) {
	p.state = state
}

func (p *Payload) Saturated() bool {
	return p.saturated
}

// MarkSaturated declares the payload full. Caller holds the exec mutex;
// must happen before the payload is handed to a queue.
func (p *Payload) MarkSaturated() {
	p.saturated = true
}

func (p *Payload) BatcherStart() time.Time {
	return p.batcherStart
}

// SetBatcherStart stamps the moment the payload entered the batching
// system, the reference point for queue-delay accounting.
func (p *Payload) SetBatcherStart(t time.Time) {
	p.batcherStart = t
}

func (p *Payload) Requests() []*inference.Request {
	return p.requests
}

// BatchSize is the number of batch slots this payload occupies, the sum
// of its requests' batch dimensions.
func (p *Payload) BatchSize() int32 {
	var size int32
	for _, req := range p.requests {
		size += req.BatchSize()
	}
	return size
}

// AddRequest appends producer-side work. Caller holds the exec mutex.
// Growth is refused once the payload saturated or began executing.
func (p *Payload) AddRequest(req *inference.Request) error {
	if p.state != StateUninitialized && p.state != StateQueued {
		return ErrNotGrowable
	}
	if p.saturated {
		return ErrSaturated
	}
	p.requests = append(p.requests, req)
	return nil
}

// Merge absorbs other's requests into p. Caller holds both exec mutexes.
// The donor must still be queued; a payload whose executing transition
// completed can never be merged, that is the double-dispatch guard. On
// failure both payloads are left untouched.
func (p *Payload) Merge(other *Payload) error {
	if other == nil {
		return ErrMergeNil
	}
	if other == p {
		return ErrMergeSelf
	}
	if other.state != StateQueued {
		return ErrMergeNotQueued
	}
	if p.saturated {
		return ErrSaturated
	}
	p.requests = append(p.requests, other.requests...)
	return nil
}

// Release ends the payload's lifecycle after execution and drops request
// references. Takes the exec mutex itself.
func (p *Payload) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateReleased
	p.requests = nil
}

func (p *Payload) String() string {
	return fmt.Sprintf("Payload [id=%d, state=%s, batchSize=%d, saturated=%t]",
		p.id, p.state, p.BatchSize(), p.saturated)
}
