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
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/batchserve/batchserve-worker-go/logger"
)

// Shared-cache memory DSN, so every pooled connection sees the same
// in-memory database instead of opening a fresh empty one.
const memoryModeDataSourceName = "file:batchserve?mode=memory&cache=shared&_busy_timeout=5000"

type ConnectionPool struct {
	*sql.DB
}

type Options struct {
	dataSourceName string
}

type Option func(o *Options)

func WithDataSourceName(dataSourceName string) Option {
	return func(o *Options) {
		o.dataSourceName = dataSourceName
	}
}

func NewConnectionPool(opts ...Option) (*ConnectionPool, error) {
	options := new(Options)
	for _, opt := range opts {
		opt(options)
	}

	dataSourceName := memoryModeDataSourceName
	if options.dataSourceName != "" {
		dataSourceName = options.dataSourceName
	}

	files, err := filepath.Glob("batchserve_*_sqlite3.db")
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if err := os.Remove(file); err != nil {
			return nil, err
		}
	}

	// memory mode no need creating local file
	if filepath.Ext(dataSourceName) == ".db" {
		logger.Infof("Creating %s sqlite3...", dataSourceName)
		file, err := os.Create(dataSourceName)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		logger.Infof("sqlite3 DB=%s created", dataSourceName)
	}

	sqliteDatabase, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}

	return &ConnectionPool{
		sqliteDatabase,
	}, nil
}
