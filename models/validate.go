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

package models

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tomoncle/weldreg/types"
)

var kleymoPattern = regexp.MustCompile(`^[A-Z0-9]{4}$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("kleymo", func(fl validator.FieldLevel) bool {
			return IsKleymo(fl.Field().String())
		})
		validate.RegisterCustomTypeFunc(optionalValue,
			types.Optional[string]{},
			types.Optional[float64]{},
			types.Optional[time.Time]{},
			types.Optional[types.StringList]{},
		)
	})
	return validate
}

// optionalValue exposes the value of a set Optional to its field tags. Unset
// and null fields validate as empty.
func optionalValue(v reflect.Value) interface{} {
	if c, ok := v.Interface().(types.Change); ok {
		if value, set := c.ChangeValue(); set {
			return value
		}
	}
	return nil
}

// IsKleymo reports whether s is a welder stamp: four upper-case letters or
// digits.
func IsKleymo(s string) bool {
	return kleymoPattern.MatchString(s)
}

// Validate checks the struct tags of a record, update or request shape.
func Validate(v any) error {
	return validatorInstance().Struct(v)
}

// Normalizer is implemented by records that canonicalise their own values
// before they are written and after they are read.
type Normalizer interface {
	Normalize()
}

// Identified is implemented by records with a UUID primary key.
type Identified interface {
	PrimaryIdent() *uuid.UUID
}

// Changes returns the columns set on a partial update shape. Every exported
// field of the shape is tagged with its bun column name and is either a
// pointer, where nil means unset, or a types.Change, which can also clear a
// nullable column by setting it to nil. Time values are converted to UTC.
func Changes(update any) (map[string]any, error) {
	if update == nil {
		return map[string]any{}, nil
	}
	v := reflect.ValueOf(update)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return map[string]any{}, nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("update shape must be a struct, got %T", update)
	}

	t := v.Type()
	changes := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		column, _, _ := strings.Cut(field.Tag.Get("bun"), ",")
		if column == "" || column == "-" {
			continue
		}
		fv := v.Field(i)
		if c, ok := fv.Interface().(types.Change); ok {
			value, set := c.ChangeValue()
			if !set {
				continue
			}
			if tm, ok := value.(time.Time); ok {
				value = utc(tm)
			}
			changes[column] = value
			continue
		}
		if fv.Kind() != reflect.Pointer {
			return nil, fmt.Errorf("update field %s.%s must be a pointer or an optional", t.Name(), field.Name)
		}
		if fv.IsNil() {
			continue
		}
		value := fv.Elem().Interface()
		if tm, ok := value.(time.Time); ok {
			value = utc(tm)
		}
		changes[column] = value
	}
	return changes, nil
}

// SortedColumns returns the keys of changes in a stable order.
func SortedColumns(changes map[string]any) []string {
	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Microsecond)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := utc(*t)
	return &v
}

func date(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := date(*t)
	return &v
}
