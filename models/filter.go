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
	"time"

	"github.com/uptrace/bun"
)

const welderJoinAlias = "welder"

func whereIn[T any](q *bun.SelectQuery, column string, values []T) *bun.SelectQuery {
	if len(values) == 0 {
		return q
	}
	return q.Where("?TableAlias.? IN (?)", bun.Ident(column), bun.In(values))
}

func whereJoinedIn[T any](q *bun.SelectQuery, alias, column string, values []T) *bun.SelectQuery {
	if len(values) == 0 {
		return q
	}
	return q.Where("?.? IN (?)", bun.Ident(alias), bun.Ident(column), bun.In(values))
}

func whereEq[T any](q *bun.SelectQuery, column string, value *T) *bun.SelectQuery {
	if value == nil {
		return q
	}
	return q.Where("?TableAlias.? = ?", bun.Ident(column), *value)
}

// whereRange bounds column by [from, before), ignoring nil ends.
func whereRange(q *bun.SelectQuery, column string, from, before *time.Time) *bun.SelectQuery {
	if from != nil {
		q = q.Where("?TableAlias.? >= ?", bun.Ident(column), utc(*from))
	}
	if before != nil {
		q = q.Where("?TableAlias.? < ?", bun.Ident(column), utc(*before))
	}
	return q
}

// joinWelder joins the owning welder on kleymo for child tables aliased
// childAlias.
func joinWelder(q *bun.SelectQuery, childAlias string) *bun.SelectQuery {
	return q.Join("JOIN ? AS ? ON ?.? = ?.?",
		bun.Ident(WelderTable), bun.Ident(welderJoinAlias),
		bun.Ident(welderJoinAlias), bun.Ident("kleymo"),
		bun.Ident(childAlias), bun.Ident("kleymo"),
	)
}
