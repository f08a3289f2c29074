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
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/tomoncle/weldreg/database"
	"github.com/tomoncle/weldreg/models"
	"github.com/tomoncle/weldreg/types"
)

// Filter narrows a select query built on the repository's model.
type Filter interface {
	Apply(q *bun.SelectQuery) *bun.SelectQuery
}

// PageFilter is a Filter carrying limit and offset.
type PageFilter interface {
	Filter
	Page() types.PageRequest
}

// Schema describes how a repository addresses its table.
type Schema struct {
	Table  string
	Policy IdentPolicy
}

// Repository runs typed CRUD statements for model M on whatever bun.IDB it
// is handed, normally the transaction of a unit of work. It keeps no
// connection of its own.
type Repository[M any] struct {
	schema Schema
	logger database.Logger
}

// New returns a repository for M. A nil Policy resolves identifiers to the
// primary key only.
func New[M any](schema Schema, logger database.Logger) *Repository[M] {
	if schema.Policy == nil {
		schema.Policy = PrimaryKeyPolicy{}
	}
	if logger == nil {
		logger = database.GetLogger()
	}
	return &Repository[M]{schema: schema, logger: logger}
}

func (r *Repository[M]) Table() string { return r.schema.Table }

// resolve parses ident and picks its column.
func (r *Repository[M]) resolve(ident any) (Column, error) {
	id, err := ParseIdent(ident)
	if err != nil {
		return Column{}, err
	}
	col, degraded := r.schema.Policy.Resolve(id)
	if degraded {
		r.logger.Debug("Identifier fits no key shape, matching it against the alternate key",
			"table", r.schema.Table, "column", col.Name, "ident", id.String())
	}
	return col, nil
}

// Get returns the record addressed by ident, or nil when there is none.
func (r *Repository[M]) Get(ctx context.Context, db bun.IDB, ident any) (*M, error) {
	col, err := r.resolve(ident)
	if err != nil {
		return nil, &GetFailure{newFailure(OpGet, r.schema.Table, err)}
	}

	entity := new(M)
	err = db.NewSelect().
		Model(entity).
		Where("?TableAlias.? = ?", bun.Ident(col.Name), col.Value).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &GetFailure{newFailure(OpGet, r.schema.Table, err)}
	}

	if err := r.project(entity); err != nil {
		return nil, &GetFailure{newFailure(OpGet, r.schema.Table, err)}
	}
	return entity, nil
}

// GetMany returns one page of the records matching filter together with the
// number of all matching records.
func (r *Repository[M]) GetMany(ctx context.Context, db bun.IDB, filter PageFilter) (*types.Pagination[M], error) {
	var page types.PageRequest
	if filter != nil {
		page = filter.Page()
	}

	var entities []*M
	query := db.NewSelect().Model(&entities)
	if filter != nil {
		query = filter.Apply(query)
	}

	pagination := types.NewDefaultPagination[M](page)
	total, err := query.Count(ctx)
	if err != nil {
		return nil, &GetManyFailure{newFailure(OpGetMany, r.schema.Table, err)}
	}
	if total == 0 {
		return pagination, nil
	}

	err = query.
		OrderExpr("?TableAlias.? ASC", bun.Ident(primaryKeyColumn)).
		Limit(page.GetLimit()).
		Offset(page.GetOffset()).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, &GetManyFailure{newFailure(OpGetMany, r.schema.Table, err)}
	}

	for _, entity := range entities {
		if err := r.project(entity); err != nil {
			return nil, &GetManyFailure{newFailure(OpGetMany, r.schema.Table, err)}
		}
	}

	pagination.Total = total
	pagination.Items = entities
	return pagination, nil
}

// SelectBy returns every record whose column equals value.
func (r *Repository[M]) SelectBy(ctx context.Context, db bun.IDB, column string, value any) ([]*M, error) {
	var entities []*M
	err := db.NewSelect().
		Model(&entities).
		Where("?TableAlias.? = ?", bun.Ident(column), value).
		OrderExpr("?TableAlias.? ASC", bun.Ident(primaryKeyColumn)).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, &GetManyFailure{newFailure(OpSelect, r.schema.Table, err)}
	}
	for _, entity := range entities {
		if err := r.project(entity); err != nil {
			return nil, &GetManyFailure{newFailure(OpSelect, r.schema.Table, err)}
		}
	}
	return entities, nil
}

// Add inserts the records in one statement, assigning a primary key to
// those that have none.
func (r *Repository[M]) Add(ctx context.Context, db bun.IDB, entity ...*M) error {
	if len(entity) == 0 {
		return nil
	}

	entities := make([]*M, 0, len(entity))
	for _, e := range entity {
		if e == nil {
			return &CreationFailure{newFailure(OpAdd, r.schema.Table, errors.New("nil record"))}
		}
		assignIdent(e)
		if n, ok := any(e).(models.Normalizer); ok {
			n.Normalize()
		}
		if err := models.Validate(e); err != nil {
			return &CreationFailure{newFailure(OpAdd, r.schema.Table, err)}
		}
		entities = append(entities, e)
	}

	if _, err := db.NewInsert().Model(&entities).Exec(ctx); err != nil {
		return &CreationFailure{newFailure(OpAdd, r.schema.Table, err)}
	}
	return nil
}

// Update applies the non-nil fields of changes, a pointer-field update
// shape, to the record addressed by ident. Nothing is written when no field
// is set.
func (r *Repository[M]) Update(ctx context.Context, db bun.IDB, ident any, changes any) error {
	col, err := r.resolve(ident)
	if err != nil {
		return &UpdateFailure{newFailure(OpUpdate, r.schema.Table, err)}
	}

	values, err := models.Changes(changes)
	if err != nil {
		return &UpdateFailure{newFailure(OpUpdate, r.schema.Table, err)}
	}
	if len(values) == 0 {
		return nil
	}
	if err := models.Validate(changes); err != nil {
		return &UpdateFailure{newFailure(OpUpdate, r.schema.Table, err)}
	}

	query := db.NewUpdate().Model((*M)(nil))
	for _, name := range models.SortedColumns(values) {
		query = query.Set("? = ?", bun.Ident(name), values[name])
	}
	if _, err := query.Where("? = ?", bun.Ident(col.Name), col.Value).Exec(ctx); err != nil {
		return &UpdateFailure{newFailure(OpUpdate, r.schema.Table, err)}
	}
	return nil
}

// Delete removes the records addressed by idents, resolving each one on its
// own.
func (r *Repository[M]) Delete(ctx context.Context, db bun.IDB, idents ...any) error {
	for _, ident := range idents {
		col, err := r.resolve(ident)
		if err != nil {
			return &DeletionFailure{newFailure(OpDelete, r.schema.Table, err)}
		}
		_, err = db.NewDelete().
			Model((*M)(nil)).
			Where("? = ?", bun.Ident(col.Name), col.Value).
			Exec(ctx)
		if err != nil {
			return &DeletionFailure{newFailure(OpDelete, r.schema.Table, err)}
		}
	}
	return nil
}

// Count returns the number of records matching filter, or of the whole
// table when filter is nil.
func (r *Repository[M]) Count(ctx context.Context, db bun.IDB, filter Filter) (int, error) {
	query := db.NewSelect().Model((*M)(nil))
	if filter != nil {
		query = filter.Apply(query)
	}
	n, err := query.Count(ctx)
	if err != nil {
		return 0, &GetManyFailure{newFailure(OpCount, r.schema.Table, err)}
	}
	return n, nil
}

// project canonicalises and validates a scanned row.
func (r *Repository[M]) project(entity *M) error {
	if n, ok := any(entity).(models.Normalizer); ok {
		n.Normalize()
	}
	if err := models.Validate(entity); err != nil {
		return fmt.Errorf("invalid %s row: %w", r.schema.Table, err)
	}
	return nil
}

func assignIdent[M any](entity *M) {
	if s, ok := any(entity).(models.Identified); ok {
		if id := s.PrimaryIdent(); *id == uuid.Nil {
			*id = uuid.New()
		}
	}
}
