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

package tracer

import (
	"sync"

	"github.com/batchserve/batchserve-worker-go/processor"
	"github.com/batchserve/batchserve-worker-go/processor/execcontext"
)

var (
	once   sync.Once
	tracer Tracer
)

// Tracer wraps every batch execution. Start may decorate the context,
// End may decorate the result; both are invoked on the executing
// instance's goroutine.
type Tracer interface {
	Start(ctx *execcontext.ExecContext) *execcontext.ExecContext
	End(ctx *execcontext.ExecContext, ret *processor.Result) *processor.Result
}

func InitTracer(t Tracer) {
	once.Do(func() {
		tracer = t
	})
}

func GetTracer() Tracer {
	return tracer
}
