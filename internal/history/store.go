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

package history

import (
	"sync"
	"time"

	"github.com/batchserve/batchserve-worker-go/internal/common"
	"github.com/batchserve/batchserve-worker-go/logger"
)

var (
	memOnce     sync.Once
	memoryStore *Store
)

// GetMemoryStore returns the shared in-memory dispatch history. The first
// call opens the database and creates the table.
func GetMemoryStore() *Store {
	memOnce.Do(func() {
		var err error
		memoryStore, err = NewStore()
		if err != nil {
			panic("NewStore err=" + err.Error())
		}
		memoryStore.InitTable()
	})
	return memoryStore
}

// Store keeps the recent dispatch history queryable with SQL. The default
// backing database is in-memory sqlite, so the history dies with the
// process by design of the worker, not of this type.
type Store struct {
	pool   *ConnectionPool
	dao    *DispatchDao
	inited bool
	lock   sync.RWMutex
}

func NewStore(opts ...Option) (*Store, error) {
	pool, err := NewConnectionPool(opts...)
	if err != nil {
		return nil, err
	}
	return &Store{
		pool: pool,
		dao:  NewDispatchDao(pool),
	}, nil
}

func (rcvr *Store) InitTable() {
	rcvr.lock.Lock()
	defer rcvr.lock.Unlock()
	if !rcvr.inited {
		rcvr.dao.DropTable()
		rcvr.dao.CreateTable()
		rcvr.inited = true
	}
}

func (rcvr *Store) IsInited() bool {
	rcvr.lock.RLock()
	defer rcvr.lock.RUnlock()
	return rcvr.inited
}

func (rcvr *Store) RecordDispatch(event *common.DispatchEvent) error {
	return rcvr.dao.Insert(event)
}

// BatchRecord inserts a batch of dispatch events, retrying on a failed
// transaction before giving up.
func (rcvr *Store) BatchRecord(events []*common.DispatchEvent) (int64, error) {
	var (
		affectCnt int64
		err       error
	)
	for i := 0; i < 3; i++ {
		affectCnt, err = rcvr.dao.BatchInsert(events)
		if err != nil {
			logger.Warnf("batch insert dispatch events error, try after 100ms, err=%s", err.Error())
			time.Sleep(100 * time.Millisecond)
			continue
		}
		break
	}
	return affectCnt, err
}

// RecentByModel returns up to limit newest records of a model, newest
// first.
func (rcvr *Store) RecentByModel(modelName string, limit int32) ([]*DispatchRecord, error) {
	return rcvr.dao.QueryByModel(modelName, limit)
}

func (rcvr *Store) FindByUniqueId(uniqueId string) (*DispatchRecord, error) {
	return rcvr.dao.QueryByUniqueId(uniqueId)
}

func (rcvr *Store) Count() (int64, error) {
	return rcvr.dao.Count()
}

func (rcvr *Store) CountByModel(modelName string) (int64, error) {
	return rcvr.dao.CountByModel(modelName)
}

func (rcvr *Store) ClearModel(modelName string) error {
	_, err := rcvr.dao.DeleteByModel(modelName)
	return err
}

// Prune caps the table at keepMax rows, dropping the oldest.
func (rcvr *Store) Prune(keepMax int32) (int64, error) {
	if keepMax <= 0 {
		return 0, nil
	}
	return rcvr.dao.Prune(keepMax)
}

func (rcvr *Store) Close() error {
	return rcvr.pool.Close()
}
