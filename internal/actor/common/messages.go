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

package actorcomm

import (
	"github.com/batchserve/batchserve-worker-go/processor"
	"github.com/batchserve/batchserve-worker-go/stats"
)

const (
	ControlPidId = "model_control_routing"
)

// Control messages are delivered in-process only, so they stay plain
// structs instead of generated protobuf types.

type LoadModelRequest struct {
	ConfigText string
	Processor  processor.Processor
}

type LoadModelResponse struct {
	Success   bool
	Message   string
	ModelName string
}

type UnloadModelRequest struct {
	ModelName string
}

type UnloadModelResponse struct {
	Success bool
	Message string
}

// FlushModelRequest forces the open batch window of a model to close
// so queued requests dispatch without waiting out the delay.
type FlushModelRequest struct {
	ModelName string
}

type FlushModelResponse struct {
	Success bool
	Message string
}

// QueryStatsRequest with an empty ModelName reports every loaded model.
type QueryStatsRequest struct {
	ModelName string
}

type QueryStatsResponse struct {
	Success bool
	Message string
	Stats   []*stats.ModelStats
}
