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

package repository

import (
	"fmt"

	"github.com/tomoncle/weldreg/database"
	"github.com/tomoncle/weldreg/types"
)

// Operation names a repository operation.
type Operation int

const (
	OpGet Operation = iota
	OpGetMany
	OpAdd
	OpUpdate
	OpDelete
	OpCount
	OpSelect
)

var operationNames = []string{"get", "get_many", "add", "update", "delete", "count", "select"}

var _ types.BaseEnum = OpGet

func (o Operation) IsValid() bool  { return o >= OpGet && int(o) < len(operationNames) }
func (o Operation) Number() int    { return int(o) }
func (o Operation) String() string { return types.EnumName(o) }
func (o Operation) Desc() string   { return o.String() }

func (o Operation) Name() string {
	if !o.IsValid() {
		return types.IllegalName
	}
	return operationNames[o]
}

// Failure is the common part of every repository failure: the operation,
// the table it ran against, the classified storage error and its cause.
type Failure struct {
	Op     Operation
	Entity string
	Kind   database.SQLError
	Err    error
}

func newFailure(op Operation, entity string, err error) Failure {
	_, kind := database.IsSqlError(err)
	return Failure{Op: op, Entity: entity, Kind: kind, Err: err}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s %s failed (%s): %v", f.Entity, f.Op, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// ConstraintViolation reports whether the cause was an integrity error.
func (f *Failure) ConstraintViolation() bool {
	return database.IsConstraintViolation(f.Kind)
}

// GetFailure is returned when a single-record lookup fails. A missing
// record is not a failure.
type GetFailure struct{ Failure }

// GetManyFailure is returned when a filtered query or count fails.
type GetManyFailure struct{ Failure }

// CreationFailure is returned when an insert is rejected, typically for a
// duplicate alternate key or a missing parent.
type CreationFailure struct{ Failure }

// UpdateFailure is returned when a partial update is rejected.
type UpdateFailure struct{ Failure }

// DeletionFailure is returned when a delete is rejected.
type DeletionFailure struct{ Failure }

// WrapFailure wraps err in the failure type of op. It is used for errors
// raised around repository calls, such as beginning or committing the
// transaction they run in.
func WrapFailure(op Operation, entity string, err error) error {
	if err == nil {
		return nil
	}
	f := newFailure(op, entity, err)
	switch op {
	case OpGet:
		return &GetFailure{f}
	case OpAdd:
		return &CreationFailure{f}
	case OpUpdate:
		return &UpdateFailure{f}
	case OpDelete:
		return &DeletionFailure{f}
	default:
		return &GetManyFailure{f}
	}
}
