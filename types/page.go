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

import "github.com/uptrace/bun"

// DefaultPageLimit is applied when a request does not ask for a page size.
const DefaultPageLimit = 100

// QueryFilter describes a WHERE clause schema and its argument values.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// Apply adds the filter as a WHERE clause. A nil or empty filter leaves the
// query untouched.
func (f *QueryFilter) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	if f == nil || f.Schema == "" {
		return q
	}
	return q.Where(f.Schema, f.Args...)
}

// PageRequest describes a limit/offset window over an ordered result set.
type PageRequest struct {
	Limit  int `json:"limit" yaml:"limit"`
	Offset int `json:"offset" yaml:"offset"`
}

func (p PageRequest) GetLimit() int {
	if p.Limit < 1 {
		return DefaultPageLimit
	}
	return p.Limit
}

func (p PageRequest) GetOffset() int {
	if p.Offset < 0 {
		return 0
	}
	return p.Offset
}

// Page returns the request itself so request shapes embedding PageRequest
// expose their paging.
func (p PageRequest) Page() PageRequest {
	return p
}

// NewPageRequest constructs a PageRequest from a limit and an offset.
func NewPageRequest(limit, offset int) PageRequest {
	return PageRequest{Limit: limit, Offset: offset}
}

// Pagination holds one page of items along with the size of the full
// matching set.
type Pagination[T any] struct {
	Limit  int
	Offset int
	Total  int
	Items  []*T
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page PageRequest) *Pagination[T] {
	return &Pagination[T]{page.GetLimit(), page.GetOffset(), 0, make([]*T, 0)}
}
