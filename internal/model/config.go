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

package model

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tidwall/gjson"

	"github.com/batchserve/batchserve-worker-go/internal/constants"
)

// Config is the parsed model configuration, e.g.
//
//	{
//	  "name": "resnet50",
//	  "version": 3,
//	  "max_batch_size": 8,
//	  "instance_group": {"count": 2},
//	  "dynamic_batching": {
//	    "preferred_batch_size": [4, 8],
//	    "max_queue_delay_microseconds": 100,
//	    "max_queue_size": 1024
//	  }
//	}
//
// Without a dynamic_batching block every request is dispatched as its own
// batch and queue-time merging stays off.
type Config struct {
	name                  string
	version               int64
	maxBatchSize          int32
	instanceCount         int32
	dynamicBatchingEnable bool
	preferredBatchSizes   []int32
	maxQueueDelay         time.Duration
	maxQueueSize          int32
}

func ParseConfig(raw string) (*Config, error) {
	if raw == "" {
		return nil, errors.New("model config is empty")
	}
	if !gjson.Valid(raw) {
		return nil, errors.New("model config is not valid json")
	}

	cfg := &Config{
		version:       1,
		maxBatchSize:  constants.MaxBatchSizeDefault,
		instanceCount: constants.InstanceCountDefault,
	}

	cfg.name = gjson.Get(raw, "name").String()
	if cfg.name == "" {
		return nil, errors.New("model config missing name")
	}

	if version := gjson.Get(raw, "version"); version.Exists() {
		if version.Int() <= 0 {
			return nil, fmt.Errorf("invalid version: %d", version.Int())
		}
		cfg.version = version.Int()
	}

	if maxBatchSize := gjson.Get(raw, "max_batch_size"); maxBatchSize.Exists() {
		if maxBatchSize.Int() < 0 {
			return nil, fmt.Errorf("invalid max_batch_size: %d", maxBatchSize.Int())
		}
		cfg.maxBatchSize = int32(maxBatchSize.Int())
	}

	if count := gjson.Get(raw, "instance_group.count"); count.Exists() {
		if count.Int() <= 0 {
			return nil, fmt.Errorf("invalid instance_group.count: %d", count.Int())
		}
		cfg.instanceCount = int32(count.Int())
	}

	if dynamicBatching := gjson.Get(raw, "dynamic_batching"); dynamicBatching.Exists() {
		cfg.dynamicBatchingEnable = true
		cfg.maxQueueDelay = constants.MaxQueueDelayDefault
		cfg.maxQueueSize = constants.MaxQueueSizeDefault

		if delay := gjson.Get(raw, "dynamic_batching.max_queue_delay_microseconds"); delay.Exists() {
			if delay.Int() < 0 {
				return nil, fmt.Errorf("invalid max_queue_delay_microseconds: %d", delay.Int())
			}
			cfg.maxQueueDelay = time.Duration(delay.Int()) * time.Microsecond
		}

		if queueSize := gjson.Get(raw, "dynamic_batching.max_queue_size"); queueSize.Exists() {
			if queueSize.Int() < 0 {
				return nil, fmt.Errorf("invalid max_queue_size: %d", queueSize.Int())
			}
			// Zero lifts the admission cap.
			cfg.maxQueueSize = int32(queueSize.Int())
		}

		for _, preferred := range gjson.Get(raw, "dynamic_batching.preferred_batch_size").Array() {
			size := preferred.Int()
			if size <= 0 || size > int64(cfg.maxBatchSize) {
				return nil, fmt.Errorf("invalid preferred_batch_size: %d, max_batch_size=%d", size, cfg.maxBatchSize)
			}
			cfg.preferredBatchSizes = append(cfg.preferredBatchSizes, int32(size))
		}
		sort.Slice(cfg.preferredBatchSizes, func(i, j int) bool {
			return cfg.preferredBatchSizes[i] < cfg.preferredBatchSizes[j]
		})
	}

	return cfg, nil
}

func (c *Config) Name() string {
	return c.name
}

func (c *Config) Version() int64 {
	return c.version
}

func (c *Config) MaxBatchSize() int32 {
	return c.maxBatchSize
}

func (c *Config) InstanceCount() int32 {
	return c.instanceCount
}

func (c *Config) DynamicBatchingEnable() bool {
	return c.dynamicBatchingEnable
}

func (c *Config) PreferredBatchSizes() []int32 {
	return c.preferredBatchSizes
}

// MaxQueueDelay is how long a payload may wait before it must be swept
// into whatever batch dispatches next. Zero disables merging.
func (c *Config) MaxQueueDelay() time.Duration {
	return c.maxQueueDelay
}

// MaxQueueSize caps admitted requests awaiting execution, zero means
// unbounded.
func (c *Config) MaxQueueSize() int32 {
	return c.maxQueueSize
}
