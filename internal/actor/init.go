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
)

// InitActors spawns the control actor and returns its pid. The worker
// facade sends every model lifecycle request through that pid.
func InitActors(actorSystem *actor.ActorSystem, loader ModelLoader) (*actor.PID, error) {
	controlPid, err := actorSystem.Root.SpawnNamed(actor.PropsFromProducer(func() actor.Actor {
		return newControlActor(loader)
	}), actorcomm.ControlPidId)
	if err != nil {
		return nil, err
	}
	return controlPid, nil
}
