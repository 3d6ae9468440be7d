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
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/atomic"

	"github.com/batchserve/batchserve-worker-go/internal/constants"
	"github.com/batchserve/batchserve-worker-go/logger"
)

var _ EventHandler = &BaseEventHandler{}

// BaseEventHandler retrieves queued events in batches on a background
// goroutine and lets the embedding handler process each batch on a small
// worker pool. One handler serves one model.
type BaseEventHandler struct {
	modelName           string
	coreBatchThreadNum  int
	maxBatchThreadNum   int
	batchSize           int32
	eventQueue          *EventQueue
	batchRetrieveFunc   func()
	stopBatchRetrieveCh chan struct{}
	stopOnce            sync.Once
	batchProcessSvc     *ants.Pool
	defaultSleepMs      time.Duration
	emptySleepMs        time.Duration
	latestEvent         interface{}

	// ongoing runnable number, the embedding handler's process func must
	// decrement this when a batch is really done.
	activeRunnableNum *atomic.Int64
}

func NewBaseEventHandler(modelName string, coreBatchThreadNum int, maxBatchThreadNum int, batchSize int32, queue *EventQueue) (rcvr *BaseEventHandler) {
	rcvr = new(BaseEventHandler)
	rcvr.defaultSleepMs = constants.EventRetrieveInterval
	rcvr.emptySleepMs = 5 * constants.EventRetrieveInterval
	rcvr.activeRunnableNum = atomic.NewInt64(0)
	rcvr.modelName = modelName
	rcvr.coreBatchThreadNum = coreBatchThreadNum
	if maxBatchThreadNum > coreBatchThreadNum {
		rcvr.maxBatchThreadNum = maxBatchThreadNum
	} else {
		rcvr.maxBatchThreadNum = coreBatchThreadNum
	}
	rcvr.batchSize = batchSize
	rcvr.eventQueue = queue
	rcvr.stopBatchRetrieveCh = make(chan struct{})
	return
}

func (rcvr *BaseEventHandler) AsyncHandleEvents(h EventHandler) []interface{} {
	events := rcvr.eventQueue.RetrieveEvents(rcvr.batchSize)
	if len(events) > 0 {
		rcvr.activeRunnableNum.Inc()
		h.Process(rcvr.modelName, events)
	}
	return events
}

func (rcvr *BaseEventHandler) Clear() {
	if rcvr.eventQueue != nil {
		rcvr.eventQueue.Clear()
	}
	rcvr.activeRunnableNum.Store(0)
}

func (rcvr *BaseEventHandler) GetLatestEvent() interface{} {
	return rcvr.latestEvent
}

// IsActive queue has remaining or at least one runnable running, use this
// method with attention because batch process may be async, so
// activeRunnableNum is decremented only when a batch is really done.
func (rcvr *BaseEventHandler) IsActive() bool {
	return rcvr.eventQueue.Size() != 0 || rcvr.activeRunnableNum.Load() > 0
}

// Process logic implemented by the embedding handler for processing this
// batch of events.
func (rcvr *BaseEventHandler) Process(modelName string, events []interface{}) {
	// logic implemented by the embedding handler
}

func (rcvr *BaseEventHandler) SetBatchSize(batchSize int32) {
	rcvr.batchSize = batchSize
}

func (rcvr *BaseEventHandler) SetWorkThreadNum(workThreadNum int) {
	rcvr.coreBatchThreadNum = workThreadNum
	rcvr.maxBatchThreadNum = workThreadNum
}

func (rcvr *BaseEventHandler) Start(h EventHandler) error {
	gopool, err := ants.NewPool(rcvr.maxBatchThreadNum,
		ants.WithExpiryDuration(constants.PoolExpiryDuration),
		ants.WithPanicHandler(func(i interface{}) {
			if r := recover(); r != nil {
				logger.Errorf("Panic happened in BaseEventHandler Start, %v\n%s", r, debug.Stack())
			}
		}))
	if err != nil {
		return fmt.Errorf("New gopool failed, err=%s ", err.Error())
	}
	rcvr.batchProcessSvc = gopool

	rcvr.batchRetrieveFunc = func() {
		for {
			select {
			case <-rcvr.stopBatchRetrieveCh:
				return
			default:
				events := rcvr.AsyncHandleEvents(h)
				logger.Debugf("modelName=%s, batch retrieve events, size:%d, remain size:%d, batchSize:%d",
					rcvr.modelName, len(events), rcvr.eventQueue.Size(), rcvr.batchSize)
				if int32(len(events)) < rcvr.batchSize*4/5 {
					// not reach expect batch size, sleep a while for aggregation
					time.Sleep(rcvr.emptySleepMs)
				} else {
					time.Sleep(rcvr.defaultSleepMs)
				}
			}
		}
	}
	go rcvr.batchRetrieveFunc()

	return nil
}

func (rcvr *BaseEventHandler) Stop() {
	rcvr.stopOnce.Do(func() {
		close(rcvr.stopBatchRetrieveCh)
	})
	if rcvr.batchProcessSvc != nil {
		rcvr.batchProcessSvc.Release()
	}
	if rcvr.eventQueue != nil {
		rcvr.eventQueue.Clear()
	}
}

func (rcvr *BaseEventHandler) SubmitEvent(event interface{}) {
	rcvr.latestEvent = event
	rcvr.eventQueue.SubmitEvent(event)
}
