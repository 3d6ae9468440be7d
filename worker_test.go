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

package batchserve

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/batchserve/batchserve-worker-go/config"
	"github.com/batchserve/batchserve-worker-go/inference"
	"github.com/batchserve/batchserve-worker-go/internal/history"
	"github.com/batchserve/batchserve-worker-go/processor"
	"github.com/batchserve/batchserve-worker-go/processor/execcontext"
)

const workerModelConfig = `{
	"name": "resnet",
	"max_batch_size": 4,
	"instance_group": {"count": 1}
}`

type echoProcessor struct{}

func (p *echoProcessor) Infer(ctx *execcontext.ExecContext) (*processor.Result, error) {
	result := processor.NewResult(processor.WithStatus(processor.BatchStatusSucceed))
	for _, req := range ctx.Requests() {
		result.SetOutput(req.Id(), append([]byte("echo:"), req.Input()...))
	}
	return result, nil
}

// Test config validation
func TestConfigIsValid(t *testing.T) {
	var nilCfg *Config
	if nilCfg.IsValid() {
		t.Fatalf("Expected nil config to be invalid")
	}
	if (&Config{}).IsValid() {
		t.Fatalf("Expected config without worker name to be invalid")
	}
	if !(&Config{WorkerName: "w"}).IsValid() {
		t.Fatalf("Expected config with worker name to be valid")
	}
}

// Test the facade lifecycle end to end on the worker singleton
func TestWorkerLifecycle(t *testing.T) {
	w, err := GetWorker(&Config{WorkerName: "test-worker"},
		WithWorkerConfig(config.NewWorkerConfig(
			config.WithHealthPort(0),
			config.WithMetricsPort(0),
			config.WithDisableHostMetrics())))
	if err != nil {
		t.Fatalf("Expected GetWorker to succeed, but got err=%s", err.Error())
	}

	again, err := GetWorker(&Config{WorkerName: "other"})
	if err != nil {
		t.Fatalf("Expected second GetWorker to succeed, but got err=%s", err.Error())
	}
	if again != w {
		t.Fatalf("Expected GetWorker to return the same instance")
	}

	modelName, err := w.RegisterModel(workerModelConfig, &echoProcessor{})
	if err != nil {
		t.Fatalf("Expected RegisterModel to succeed, but got err=%s", err.Error())
	}
	if modelName != "resnet" {
		t.Fatalf("Expected model name resnet, but got %s", modelName)
	}

	if _, err := w.RegisterModel(workerModelConfig, &echoProcessor{}); err == nil {
		t.Fatalf("Expected duplicate RegisterModel to fail")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	resp, err := w.Infer(ctx, "resnet", []byte("a"))
	if err != nil {
		t.Fatalf("Expected Infer to succeed, but got err=%s", err.Error())
	}
	if got := string(resp.Output()); got != "echo:a" {
		t.Fatalf("Expected echo:a, but got %s", got)
	}

	if _, err := w.Infer(ctx, "missing", []byte("a")); err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Fatalf("Expected a not registered error, but got %v", err)
	}

	oversized := inference.NewRequest("resnet", []byte("x"), inference.WithBatchSize(99))
	if err := w.Submit(oversized); err == nil {
		t.Fatalf("Expected an oversized request to be rejected")
	}

	snapshots, err := w.Stats("resnet")
	if err != nil {
		t.Fatalf("Expected Stats to succeed, but got err=%s", err.Error())
	}
	if len(snapshots) != 1 || snapshots[0].GetModelName() != "resnet" {
		t.Fatalf("Expected a single snapshot for resnet, but got %+v", snapshots)
	}
	if len(snapshots[0].GetInstances()) != 1 {
		t.Fatalf("Expected 1 instance snapshot, but got %d", len(snapshots[0].GetInstances()))
	}

	all, err := w.Stats("")
	if err != nil {
		t.Fatalf("Expected Stats of all models to succeed, but got err=%s", err.Error())
	}
	if len(all) != 1 {
		t.Fatalf("Expected 1 model snapshot, but got %d", len(all))
	}

	if _, err := w.Stats("missing"); err == nil {
		t.Fatalf("Expected Stats of an unknown model to fail")
	}

	if err := w.Flush("resnet"); err != nil {
		t.Fatalf("Expected Flush to succeed, but got err=%s", err.Error())
	}
	if err := w.Flush("missing"); err == nil {
		t.Fatalf("Expected Flush of an unknown model to fail")
	}

	// dispatch history persists in the background
	deadline := time.Now().Add(3 * time.Second)
	for {
		cnt, err := history.GetMemoryStore().CountByModel("resnet")
		if err == nil && cnt >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected at least 1 dispatch record, but got %d", cnt)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if err := w.UnregisterModel("resnet"); err != nil {
		t.Fatalf("Expected UnregisterModel to succeed, but got err=%s", err.Error())
	}
	if err := w.UnregisterModel("resnet"); err == nil {
		t.Fatalf("Expected second UnregisterModel to fail")
	}
	if _, err := w.Infer(context.Background(), "resnet", []byte("b")); err == nil {
		t.Fatalf("Expected Infer after unregister to fail")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	w.Shutdown(shutdownCtx)
	w.Shutdown(shutdownCtx)
}
