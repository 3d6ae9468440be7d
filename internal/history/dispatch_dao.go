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
	"context"
	"database/sql"

	"github.com/batchserve/batchserve-worker-go/internal/common"
)

type DispatchDao struct {
	pool *ConnectionPool
}

func NewDispatchDao(pool *ConnectionPool) *DispatchDao {
	return &DispatchDao{
		pool: pool,
	}
}

func (d *DispatchDao) CreateTable() error {
	sql := "CREATE TABLE IF NOT EXISTS dispatch_history (" +
		"unique_id varchar(100) NOT NULL," +
		"model_name varchar(100) NOT NULL DEFAULT ''," +
		"instance_id unsigned bigint(20) NOT NULL," +
		"payload_id unsigned bigint(20) NOT NULL," +
		"batch_size int(11) NOT NULL," +
		"merged_count int(11) NOT NULL," +
		"request_count int(11) NOT NULL," +
		"queue_delay_ns unsigned bigint(20) NOT NULL," +
		"exec_duration_ns unsigned bigint(20) NOT NULL," +
		"status varchar(20) NOT NULL DEFAULT ''," +
		"gmt_dispatch datetime NOT NULL," +
		"CONSTRAINT uk_unique_id UNIQUE (unique_id));" +
		"CREATE INDEX IF NOT EXISTS idx_model_name ON dispatch_history (model_name);" +
		"CREATE INDEX IF NOT EXISTS idx_gmt_dispatch ON dispatch_history (gmt_dispatch);"

	_, err := d.pool.Exec(sql)
	return err
}

func (d *DispatchDao) DropTable() error {
	sql := "DROP TABLE IF EXISTS dispatch_history"
	_, err := d.pool.Exec(sql)
	return err
}

func (d *DispatchDao) Insert(event *common.DispatchEvent) error {
	sql := "insert into dispatch_history(unique_id,model_name,instance_id,payload_id,batch_size,merged_count,request_count," +
		"queue_delay_ns,exec_duration_ns,status,gmt_dispatch) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	stmt, err := d.pool.Prepare(sql)
	if err != nil {
		return err
	}
	defer stmt.Close()
	_, err = stmt.Exec(
		event.GetUniqueId(),
		event.GetModelName(),
		event.GetInstanceId(),
		event.GetPayloadId(),
		event.GetBatchSize(),
		event.GetMergedCount(),
		event.GetRequestCount(),
		event.GetQueueDelay().Nanoseconds(),
		event.GetExecDuration().Nanoseconds(),
		event.GetStatus(),
		event.GetDispatchTime().UnixMilli())
	return err
}

func (d *DispatchDao) BatchInsert(events []*common.DispatchEvent) (int64, error) {
	var (
		totalAffectCnt int64
		ctx            = context.Background()
	)

	err := WithTransaction(ctx, d.pool.DB, func(tx *sql.Tx) error {
		sql := "insert into dispatch_history(unique_id,model_name,instance_id,payload_id,batch_size,merged_count,request_count," +
			"queue_delay_ns,exec_duration_ns,status,gmt_dispatch) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		stmt, err := tx.Prepare(sql)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, event := range events {
			ret, err := stmt.ExecContext(ctx,
				event.GetUniqueId(),
				event.GetModelName(),
				event.GetInstanceId(),
				event.GetPayloadId(),
				event.GetBatchSize(),
				event.GetMergedCount(),
				event.GetRequestCount(),
				event.GetQueueDelay().Nanoseconds(),
				event.GetExecDuration().Nanoseconds(),
				event.GetStatus(),
				event.GetDispatchTime().UnixMilli())
			if err != nil {
				continue
			}
			affectCnt, _ := ret.RowsAffected()
			totalAffectCnt += affectCnt
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return totalAffectCnt, nil
}

func (d *DispatchDao) QueryByUniqueId(uniqueId string) (*DispatchRecord, error) {
	sql := "select unique_id,model_name,instance_id,payload_id,batch_size,merged_count,request_count," +
		"queue_delay_ns,exec_duration_ns,status,gmt_dispatch from dispatch_history where unique_id=?"
	stmt, err := d.pool.Prepare(sql)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	record := NewDispatchRecord()
	err = stmt.QueryRow(uniqueId).Scan(
		&record.UniqueId,
		&record.ModelName,
		&record.InstanceId,
		&record.PayloadId,
		&record.BatchSize,
		&record.MergedCount,
		&record.RequestCount,
		&record.QueueDelayNs,
		&record.ExecDurationNs,
		&record.Status,
		&record.GmtDispatch)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// QueryByModel returns the newest records of one model, newest first.
func (d *DispatchDao) QueryByModel(modelName string, limit int32) ([]*DispatchRecord, error) {
	sql := "select unique_id,model_name,instance_id,payload_id,batch_size,merged_count,request_count," +
		"queue_delay_ns,exec_duration_ns,status,gmt_dispatch from dispatch_history where model_name=? " +
		"order by gmt_dispatch desc, rowid desc limit ?"
	stmt, err := d.pool.Prepare(sql)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.Query(modelName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*DispatchRecord
	for rows.Next() {
		record := NewDispatchRecord()
		if err = rows.Scan(
			&record.UniqueId,
			&record.ModelName,
			&record.InstanceId,
			&record.PayloadId,
			&record.BatchSize,
			&record.MergedCount,
			&record.RequestCount,
			&record.QueueDelayNs,
			&record.ExecDurationNs,
			&record.Status,
			&record.GmtDispatch); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	err = rows.Err()
	return records, err
}

func (d *DispatchDao) Count() (int64, error) {
	sql := "select count(*) from dispatch_history"
	var cnt int64
	err := d.pool.QueryRow(sql).Scan(&cnt)
	return cnt, err
}

func (d *DispatchDao) CountByModel(modelName string) (int64, error) {
	sql := "select count(*) from dispatch_history where model_name=?"
	stmt, err := d.pool.Prepare(sql)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var cnt int64
	err = stmt.QueryRow(modelName).Scan(&cnt)
	return cnt, err
}

func (d *DispatchDao) DeleteByModel(modelName string) (int64, error) {
	sql := "delete from dispatch_history where model_name=?"
	stmt, err := d.pool.Prepare(sql)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	ret, err := stmt.Exec(modelName)
	if err != nil {
		return 0, err
	}
	return ret.RowsAffected()
}

// Prune drops everything but the newest keepMax records.
func (d *DispatchDao) Prune(keepMax int32) (int64, error) {
	sql := "delete from dispatch_history where rowid not in " +
		"(select rowid from dispatch_history order by gmt_dispatch desc, rowid desc limit ?)"
	stmt, err := d.pool.Prepare(sql)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	ret, err := stmt.Exec(keepMax)
	if err != nil {
		return 0, err
	}
	return ret.RowsAffected()
}
