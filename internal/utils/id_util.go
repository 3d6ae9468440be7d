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

package utils

import (
	"fmt"
	"strconv"
	"strings"
)

type IdType int32

const (
	IdTypeInstanceId IdType = 0
	IdTypePayloadId  IdType = 1

	SplitterToken = "_"
)

// GetDispatchUniqueId builds the "<model>_<instanceId>_<payloadId>" key
// used by dispatch history and logs.
func GetDispatchUniqueId(modelName string, instanceId, payloadId int64) string {
	ids := []string{
		modelName,
		strconv.FormatInt(instanceId, 10),
		strconv.FormatInt(payloadId, 10),
	}
	return strings.Join(ids, SplitterToken)
}

// ParseId extracts an id from a dispatch unique id. Model names may
// themselves contain the splitter, so ids are taken from the right.
func ParseId(uniqueId string, idType IdType) (int64, error) {
	tokens := strings.Split(uniqueId, SplitterToken)
	if len(tokens) < 3 {
		return -1, fmt.Errorf("Invalid uniqueId: %s ", uniqueId)
	}
	switch idType {
	case IdTypeInstanceId:
		return strconv.ParseInt(tokens[len(tokens)-2], 10, 64)
	case IdTypePayloadId:
		return strconv.ParseInt(tokens[len(tokens)-1], 10, 64)
	}
	return -1, fmt.Errorf("Invalid idType: %d ", idType)
}

func ParseModelName(uniqueId string) (string, error) {
	tokens := strings.Split(uniqueId, SplitterToken)
	if len(tokens) < 3 {
		return "", fmt.Errorf("Invalid uniqueId: %s ", uniqueId)
	}
	return strings.Join(tokens[:len(tokens)-2], SplitterToken), nil
}
