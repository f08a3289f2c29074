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

package types

import (
	"bytes"
	"encoding/json"
)

// Change is implemented by update fields that tell an unset field apart from
// one explicitly set to null.
type Change interface {
	// ChangeValue returns the value to write and whether the field was set.
	// A set field with a nil value clears the column.
	ChangeValue() (value any, set bool)
}

// Optional is a partial update field for a nullable column. The zero value
// is unset.
type Optional[T any] struct {
	value T
	set   bool
	null  bool
}

var _ Change = Optional[string]{}

// Some returns an Optional set to v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Null returns an Optional that clears its column.
func Null[T any]() Optional[T] {
	return Optional[T]{set: true, null: true}
}

func (o Optional[T]) IsSet() bool  { return o.set }
func (o Optional[T]) IsNull() bool { return o.set && o.null }

// IsZero reports an unset field, so `json:",omitzero"` skips it.
func (o Optional[T]) IsZero() bool { return !o.set }

// Get returns the value and true when the field is set to a non-null value.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set && !o.null
}

func (o Optional[T]) ChangeValue() (any, bool) {
	switch {
	case !o.set:
		return nil, false
	case o.null:
		return nil, true
	default:
		return o.value, true
	}
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set || o.null {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON marks the field set; a JSON null sets it to null.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	var zero T
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*o = Optional[T]{value: zero, set: true, null: true}
		return nil
	}
	v := zero
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Optional[T]{value: v, set: true}
	return nil
}
