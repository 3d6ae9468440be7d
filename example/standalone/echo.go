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
	"fmt"

	"github.com/batchserve/batchserve-worker-go/processor"
	"github.com/batchserve/batchserve-worker-go/processor/execcontext"
)

var _ processor.Processor = &Echo{}

// Echo answers every request with the text field of its json input.
// A real processor would run the batch through a model backend here.
type Echo struct{}

func (e *Echo) Infer(ctx *execcontext.ExecContext) (*processor.Result, error) {
	fmt.Printf("[Echo] executing batch, model=%s, requests=%d, merged=%d\n",
		ctx.ModelName(), len(ctx.Requests()), ctx.MergedCount())

	result := processor.NewResult(processor.WithStatus(processor.BatchStatusSucceed))
	for i, req := range ctx.Requests() {
		text := ctx.InputField(i, "text").String()
		result.SetOutput(req.Id(), []byte(fmt.Sprintf(`{"echo":%q}`, text)))
	}
	return result, nil
}
