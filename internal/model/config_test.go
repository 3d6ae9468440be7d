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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseConfigFull(t *testing.T) {
	raw := `{
		"name": "resnet50",
		"version": 3,
		"max_batch_size": 8,
		"instance_group": {"count": 2},
		"dynamic_batching": {
			"preferred_batch_size": [8, 4],
			"max_queue_delay_microseconds": 100,
			"max_queue_size": 64
		}
	}`

	cfg, err := ParseConfig(raw)
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	ass := assert.New(t)
	ass.Equal("resnet50", cfg.Name())
	ass.Equal(int64(3), cfg.Version())
	ass.Equal(int32(8), cfg.MaxBatchSize())
	ass.Equal(int32(2), cfg.InstanceCount())
	ass.True(cfg.DynamicBatchingEnable())
	ass.Equal([]int32{4, 8}, cfg.PreferredBatchSizes())
	ass.Equal(100*time.Microsecond, cfg.MaxQueueDelay())
	ass.Equal(int32(64), cfg.MaxQueueSize())
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(`{"name": "echo"}`)
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if cfg.Version() != 1 {
		t.Errorf("Expected default version 1, but got %d", cfg.Version())
	}
	if cfg.InstanceCount() != 1 {
		t.Errorf("Expected default instance count 1, but got %d", cfg.InstanceCount())
	}
	if cfg.DynamicBatchingEnable() {
		t.Error("Expected dynamic batching disabled by default")
	}
	if cfg.MaxQueueDelay() != 0 {
		t.Errorf("Expected zero queue delay without dynamic batching, but got %v", cfg.MaxQueueDelay())
	}
}

func TestParseConfigEmptyDynamicBatchingBlock(t *testing.T) {
	cfg, err := ParseConfig(`{"name": "echo", "dynamic_batching": {}}`)
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if !cfg.DynamicBatchingEnable() {
		t.Fatal("Expected dynamic batching enabled")
	}
	if cfg.MaxQueueDelay() <= 0 {
		t.Errorf("Expected default queue delay, but got %v", cfg.MaxQueueDelay())
	}
	if cfg.MaxQueueSize() <= 0 {
		t.Errorf("Expected default queue size cap, but got %d", cfg.MaxQueueSize())
	}
}

func TestParseConfigUnboundedQueue(t *testing.T) {
	cfg, err := ParseConfig(`{"name": "echo", "dynamic_batching": {"max_queue_size": 0}}`)
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if cfg.MaxQueueSize() != 0 {
		t.Errorf("Expected explicit zero to lift the cap, but got %d", cfg.MaxQueueSize())
	}
}

func TestParseConfigErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"invalid json", `{"name": `},
		{"missing name", `{"max_batch_size": 8}`},
		{"negative batch size", `{"name": "m", "max_batch_size": -1}`},
		{"zero instance count", `{"name": "m", "instance_group": {"count": 0}}`},
		{"negative delay", `{"name": "m", "dynamic_batching": {"max_queue_delay_microseconds": -5}}`},
		{"preferred over max", `{"name": "m", "max_batch_size": 4, "dynamic_batching": {"preferred_batch_size": [8]}}`},
		{"zero preferred", `{"name": "m", "dynamic_batching": {"preferred_batch_size": [0]}}`},
		{"bad version", `{"name": "m", "version": 0}`},
	}
	for _, c := range cases {
		if _, err := ParseConfig(c.raw); err == nil {
			t.Errorf("Expected error for %s config", c.name)
		}
	}
}
