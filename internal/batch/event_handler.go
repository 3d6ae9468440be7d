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

// EventHandler batches completion events of one model before handing them
// to Process, hugely reducing the number of downstream writes.
type EventHandler interface {
	Start(h EventHandler) error
	Stop()
	Clear()
	IsActive() bool
	GetLatestEvent() interface{}
	SetBatchSize(batchSize int32)
	SetWorkThreadNum(workThreadNum int)
	SubmitEvent(event interface{})
	AsyncHandleEvents(h EventHandler) []interface{}
	Process(modelName string, events []interface{})
}
