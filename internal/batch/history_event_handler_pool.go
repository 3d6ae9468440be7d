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

	"github.com/batchserve/batchserve-worker-go/internal/common"
)

var (
	historyEventHandlerPool *HistoryEventHandlerPool
	once                    sync.Once
)

func GetHistoryEventHandlerPool() *HistoryEventHandlerPool {
	once.Do(func() {
		historyEventHandlerPool = NewHistoryEventHandlerPool()
	})
	return historyEventHandlerPool
}

// HistoryEventHandlerPool an event handler per model
type HistoryEventHandlerPool struct {
	handlers *sync.Map // Map<string, *HistoryEventHandler>
}

func NewHistoryEventHandlerPool() *HistoryEventHandlerPool {
	return &HistoryEventHandlerPool{
		handlers: new(sync.Map),
	}
}

func (p *HistoryEventHandlerPool) Start(modelName string, eventHandler *HistoryEventHandler) {
	// only process init phase;
	// make sure no other already create mapping during sync blocking time range.
	handler, ok := p.handlers.LoadOrStore(modelName, eventHandler)
	if !ok {
		if historyHandler, ok := handler.(*HistoryEventHandler); ok {
			historyHandler.Start(historyHandler)
		}
	}
}

func (p *HistoryEventHandlerPool) Stop(modelName string) {
	handler, ok := p.handlers.LoadAndDelete(modelName)
	if ok {
		handler.(*HistoryEventHandler).Stop()
		handler = nil
	}
}

func (p *HistoryEventHandlerPool) Contains(modelName string) bool {
	_, ok := p.handlers.Load(modelName)
	return ok
}

func (p *HistoryEventHandlerPool) SubmitEvent(modelName string, event *common.DispatchEvent) bool {
	success := false
	handler, ok := p.handlers.Load(modelName)
	if ok {
		success = true
		handler.(*HistoryEventHandler).SubmitEvent(event)
	}
	return success
}

func (p *HistoryEventHandlerPool) GetHandlers() *sync.Map {
	return p.handlers
}
