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

package actor

import (
	"github.com/asynkron/protoactor-go/actor"

	actorcomm "github.com/batchserve/batchserve-worker-go/internal/actor/common"
	"github.com/batchserve/batchserve-worker-go/internal/model"
	"github.com/batchserve/batchserve-worker-go/logger"
	"github.com/batchserve/batchserve-worker-go/processor"
	"github.com/batchserve/batchserve-worker-go/stats"
)

// ModelLoader is implemented by the worker facade. The control actor
// reaches the facade through it instead of importing the root package.
type ModelLoader interface {
	LoadModel(configText string, proc processor.Processor) (*model.Model, error)
	UnloadModel(modelName string) error
	FlushModel(modelName string) error
	ModelStats(modelName string) ([]*stats.ModelStats, error)
}

var _ actor.Actor = &controlActor{}

// controlActor serializes model lifecycle operations through its mailbox,
// so concurrent loads and unloads of the same model never interleave.
type controlActor struct {
	loader ModelLoader
}

func newControlActor(loader ModelLoader) *controlActor {
	return &controlActor{
		loader: loader,
	}
}

func (a *controlActor) Receive(actorCtx actor.Context) {
	switch msg := actorCtx.Message().(type) {
	case *actorcomm.LoadModelRequest:
		a.handleLoadModel(actorCtx, msg)
	case *actorcomm.UnloadModelRequest:
		a.handleUnloadModel(actorCtx, msg)
	case *actorcomm.FlushModelRequest:
		a.handleFlushModel(actorCtx, msg)
	case *actorcomm.QueryStatsRequest:
		a.handleQueryStats(actorCtx, msg)
	default:
		logger.Debugf("[controlActor] receive unhandled message, msg=%+v", actorCtx.Message())
	}
}

func (a *controlActor) handleLoadModel(actorCtx actor.Context, req *actorcomm.LoadModelRequest) {
	resp := new(actorcomm.LoadModelResponse)
	m, err := a.loader.LoadModel(req.ConfigText, req.Processor)
	if err != nil {
		logger.Errorf("load model failed, err=%s", err.Error())
		resp.Success = false
		resp.Message = err.Error()
	} else {
		resp.Success = true
		resp.ModelName = m.Name()
	}
	if senderPid := actorCtx.Sender(); senderPid != nil {
		actorCtx.Send(senderPid, resp)
	} else {
		logger.Warnf("Cannot send LoadModelResponse due to sender is unknown in handleLoadModel of controlActor, request=%+v", req)
	}
}

func (a *controlActor) handleUnloadModel(actorCtx actor.Context, req *actorcomm.UnloadModelRequest) {
	resp := new(actorcomm.UnloadModelResponse)
	if err := a.loader.UnloadModel(req.ModelName); err != nil {
		logger.Errorf("unload model=%s failed, err=%s", req.ModelName, err.Error())
		resp.Success = false
		resp.Message = err.Error()
	} else {
		resp.Success = true
	}
	if senderPid := actorCtx.Sender(); senderPid != nil {
		actorCtx.Send(senderPid, resp)
	} else {
		logger.Warnf("Cannot send UnloadModelResponse due to sender is unknown in handleUnloadModel of controlActor, request=%+v", req)
	}
}

func (a *controlActor) handleFlushModel(actorCtx actor.Context, req *actorcomm.FlushModelRequest) {
	resp := new(actorcomm.FlushModelResponse)
	if err := a.loader.FlushModel(req.ModelName); err != nil {
		resp.Success = false
		resp.Message = err.Error()
	} else {
		resp.Success = true
	}
	if senderPid := actorCtx.Sender(); senderPid != nil {
		actorCtx.Send(senderPid, resp)
	} else {
		logger.Warnf("Cannot send FlushModelResponse due to sender is unknown in handleFlushModel of controlActor, request=%+v", req)
	}
}

func (a *controlActor) handleQueryStats(actorCtx actor.Context, req *actorcomm.QueryStatsRequest) {
	resp := new(actorcomm.QueryStatsResponse)
	stats, err := a.loader.ModelStats(req.ModelName)
	if err != nil {
		resp.Success = false
		resp.Message = err.Error()
	} else {
		resp.Success = true
		resp.Stats = stats
	}
	if senderPid := actorCtx.Sender(); senderPid != nil {
		actorCtx.Send(senderPid, resp)
	} else {
		logger.Warnf("Cannot send QueryStatsResponse due to sender is unknown in handleQueryStats of controlActor, request=%+v", req)
	}
}
