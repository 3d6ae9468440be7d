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
	"github.com/batchserve/batchserve-worker-go/internal/common"
	"github.com/batchserve/batchserve-worker-go/internal/history"
	"github.com/batchserve/batchserve-worker-go/logger"
)

// HistoryEventHandler batch writes dispatch events into the history store.
type HistoryEventHandler struct {
	*BaseEventHandler
	store   *history.Store
	keepMax int32
}

func NewHistoryEventHandler(modelName string, coreBatchThreadNum int, maxBatchThreadNum int, batchSize int32,
	queue *EventQueue, store *history.Store, keepMax int32) *HistoryEventHandler {
	return &HistoryEventHandler{
		BaseEventHandler: NewBaseEventHandler(modelName, coreBatchThreadNum, maxBatchThreadNum, batchSize, queue),
		store:            store,
		keepMax:          keepMax,
	}
}

func (h *HistoryEventHandler) Process(modelName string, events []interface{}) {
	dispatchEvents := make([]*common.DispatchEvent, 0, len(events))
	for _, event := range events {
		dispatchEvents = append(dispatchEvents, event.(*common.DispatchEvent))
	}
	if len(dispatchEvents) == 0 {
		logger.Warnf("Process HistoryEventHandler, but events is empty, modelName=%s", modelName)
		return
	}

	err := h.batchProcessSvc.Submit(func() {
		if _, err := h.store.BatchRecord(dispatchEvents); err != nil {
			logger.Errorf("Batch record dispatch events failed, modelName=%s, err=%s", modelName, err.Error())
		}
		if h.keepMax > 0 {
			if _, err := h.store.Prune(h.keepMax); err != nil {
				logger.Errorf("Prune dispatch history failed, modelName=%s, err=%s", modelName, err.Error())
			}
		}
		h.activeRunnableNum.Dec()
	})
	if err != nil {
		h.activeRunnableNum.Dec()
		logger.Errorf("Process HistoryEventHandler failed, submit to batchProcessSvc failed, err=%s", err.Error())
	}
}
