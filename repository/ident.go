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
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomoncle/weldreg/models"
)

// ErrUnsupportedIdent is returned for identifier values that are neither a
// UUID nor a string.
var ErrUnsupportedIdent = errors.New("unsupported identifier type")

// IdentKind tells which variant of Ident is set.
type IdentKind int

const (
	IdentUUID IdentKind = iota + 1
	IdentKey
)

// Ident is a parsed identifier: either a UUID or an alternate key string.
type Ident struct {
	Kind IdentKind
	UUID uuid.UUID
	Key  string
}

func (i Ident) String() string {
	if i.Kind == IdentUUID {
		return i.UUID.String()
	}
	return i.Key
}

// ParseIdent classifies an identifier value. Strings that parse as a UUID
// become IdentUUID, every other string becomes IdentKey.
func ParseIdent(v any) (Ident, error) {
	switch id := v.(type) {
	case uuid.UUID:
		return Ident{Kind: IdentUUID, UUID: id}, nil
	case *uuid.UUID:
		if id == nil {
			return Ident{}, fmt.Errorf("%w: nil *uuid.UUID", ErrUnsupportedIdent)
		}
		return Ident{Kind: IdentUUID, UUID: *id}, nil
	case string:
		if u, err := uuid.Parse(id); err == nil {
			return Ident{Kind: IdentUUID, UUID: u}, nil
		}
		return Ident{Kind: IdentKey, Key: id}, nil
	case Ident:
		return id, nil
	default:
		return Ident{}, fmt.Errorf("%w: %T", ErrUnsupportedIdent, v)
	}
}

// Column is the column an identifier addresses and the value to match.
type Column struct {
	Name  string
	Value any
}

// IdentPolicy chooses the column an identifier addresses. Degraded reports
// that the value fit neither key shape and was sent to the alternate key
// column, where it will not match.
type IdentPolicy interface {
	Resolve(id Ident) (col Column, degraded bool)
}

const primaryKeyColumn = "ident"

// PrimaryKeyPolicy resolves every identifier to the primary key. A key that
// is not a UUID is compared as text and matches nothing.
type PrimaryKeyPolicy struct{}

func (PrimaryKeyPolicy) Resolve(id Ident) (Column, bool) {
	if id.Kind == IdentUUID {
		return Column{Name: primaryKeyColumn, Value: id.UUID}, false
	}
	return Column{Name: primaryKeyColumn, Value: id.Key}, true
}

// AlternateKeyPolicy resolves UUIDs to the primary key and any other string
// to Column.
type AlternateKeyPolicy struct {
	Column string
}

func (p AlternateKeyPolicy) Resolve(id Ident) (Column, bool) {
	if id.Kind == IdentUUID {
		return Column{Name: primaryKeyColumn, Value: id.UUID}, false
	}
	return Column{Name: p.Column, Value: id.Key}, false
}

// WelderPolicy resolves kleymo-shaped strings to the kleymo column and UUIDs
// to the primary key. Anything else is looked up by kleymo and reported as
// degraded.
type WelderPolicy struct{}

func (WelderPolicy) Resolve(id Ident) (Column, bool) {
	switch {
	case id.Kind == IdentUUID:
		return Column{Name: primaryKeyColumn, Value: id.UUID}, false
	case models.IsKleymo(id.Key):
		return Column{Name: "kleymo", Value: id.Key}, false
	default:
		return Column{Name: "kleymo", Value: id.Key}, true
	}
}
