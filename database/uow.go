/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/uptrace/bun"
)

// ErrUnitClosed is returned when a closed unit of work is used.
var ErrUnitClosed = errors.New("unit of work is closed")

// UnitOfWorkFactory opens units of work over one connection pool.
type UnitOfWorkFactory struct {
	db     *bun.DB
	logger Logger
}

func NewUnitOfWorkFactory(db *bun.DB, logger Logger) *UnitOfWorkFactory {
	if logger == nil {
		logger = GetLogger()
	}
	return &UnitOfWorkFactory{db: db, logger: logger}
}

// Begin acquires a connection and starts a transaction. The caller must
// Close the returned unit on every path, normally with defer.
func (f *UnitOfWorkFactory) Begin(ctx context.Context) (*UnitOfWork, error) {
	if f.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &UnitOfWork{tx: tx, logger: f.logger}, nil
}

// Do runs fn inside a unit of work and commits when fn returns nil.
func (f *UnitOfWorkFactory) Do(ctx context.Context, fn func(ctx context.Context, tx bun.IDB) error) (err error) {
	uow, err := f.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := uow.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err = fn(ctx, uow.Tx()); err != nil {
		return err
	}
	return uow.Commit()
}

// UnitOfWork is one transaction on one pooled connection. Nothing becomes
// durable until Commit; Close rolls back anything uncommitted.
type UnitOfWork struct {
	mu        sync.Mutex
	tx        bun.Tx
	logger    Logger
	committed bool
	closed    bool
}

// Tx is the handle repositories run their statements on.
func (u *UnitOfWork) Tx() bun.IDB {
	return u.tx
}

func (u *UnitOfWork) Commit() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return ErrUnitClosed
	}
	if u.committed {
		return nil
	}
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	u.committed = true
	return nil
}

// Committed reports whether Commit succeeded.
func (u *UnitOfWork) Committed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.committed
}

// Close releases the connection, rolling back unless the unit was
// committed. Calling it again is a no-op.
func (u *UnitOfWork) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return nil
	}
	u.closed = true
	if u.committed {
		return nil
	}

	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		u.logger.Error("Failed to rollback transaction", "error", err)
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}
