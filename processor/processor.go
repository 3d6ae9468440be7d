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

package processor

import (
	"github.com/batchserve/batchserve-worker-go/processor/execcontext"
)

// Processor runs one dequeued batch. Implementations are user code, one
// per registered model, shared by every instance of that model.
type Processor interface {
	Infer(ctx *execcontext.ExecContext) (*Result, error)
}

// WarmupProcessor is invoked once per instance before it starts consuming,
// typically to load weights or prime caches.
type WarmupProcessor interface {
	Processor
	Warmup(ctx *execcontext.ExecContext) error
}

// CloseableProcessor is invoked when the owning model is unloaded.
type CloseableProcessor interface {
	Processor
	Close() error
}
