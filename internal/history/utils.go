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

	"github.com/batchserve/batchserve-worker-go/logger"
)

// SQLTxFunc is a function that will be called with an initialized 'DbTx' object
// that can be used for executing statements and queries against a database.
type SQLTxFunc func(tx *sql.Tx) error

// WithTransaction creates a new transaction and handles rollback/commit based on the
// error object returned by the 'SQLTxFunc'
func WithTransaction(ctx context.Context, db *sql.DB, fn SQLTxFunc) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		logger.Errorf("db begin error.%v", err)
		return
	}

	defer func() {
		if p := recover(); p != nil {
			// a panic occurred, rollback and repanic
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				logger.Errorf("rollback error.%v", rollbackErr)
			}
			panic(p)
		} else if err != nil {
			// something went wrong, rollback
			logger.Errorf("fn error.%v", err)
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				logger.Errorf("rollback error.%v", rollbackErr)
			}
		} else {
			// all good, commit
			err = tx.Commit()
			if err != nil {
				logger.Errorf("commit error.%v", err)
			}
		}
	}()

	err = fn(tx)
	return err
}
