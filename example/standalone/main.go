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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/batchserve/batchserve-worker-go"
	"github.com/batchserve/batchserve-worker-go/config"
)

const echoModelConfig = `{
	"name": "echo",
	"version": 1,
	"max_batch_size": 8,
	"instance_group": {"count": 2},
	"dynamic_batching": {
		"preferred_batch_size": [4, 8],
		"max_queue_delay_microseconds": 5000
	}
}`

func main() {
	worker, err := batchserve.GetWorker(&batchserve.Config{WorkerName: "batchserve-example"},
		batchserve.WithWorkerConfig(config.NewWorkerConfig(
			config.WithHealthPort(8001),
			config.WithMetricsPort(8002))))
	if err != nil {
		panic(err)
	}

	modelName, err := worker.RegisterModel(echoModelConfig, &Echo{})
	if err != nil {
		panic(err)
	}

	// Drive some concurrent traffic so the batcher has something to merge.
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			resp, err := worker.Infer(ctx, modelName, []byte(fmt.Sprintf(`{"text":"hello-%d"}`, i)))
			if err != nil {
				fmt.Printf("infer %d failed: %v\n", i, err)
				return
			}
			fmt.Printf("infer %d -> %s\n", i, resp.Output())
		}(i)
	}
	wg.Wait()

	snapshots, err := worker.Stats(modelName)
	if err != nil {
		panic(err)
	}
	for _, snapshot := range snapshots {
		fmt.Printf("model=%s queueSize=%d pending=%d\n",
			snapshot.GetModelName(), snapshot.GetQueueSize(), snapshot.GetPendingRequests())
		for _, inst := range snapshot.GetInstances() {
			fmt.Printf("  instance=%d dispatches=%d requests=%d merged=%d failed=%d\n",
				inst.GetInstanceId(), inst.GetDispatchCount(), inst.GetRequestCount(),
				inst.GetMergedCount(), inst.GetFailedCount())
		}
	}

	// wait for the stop signal
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	worker.Shutdown(ctx)
}
