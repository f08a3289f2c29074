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

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/tomoncle/weldreg/types"
)

const (
	WelderTable = "welder_table"
	WelderAlias = "w"
)

// Welder is a registered welder. Kleymo is the welder's stamp and an
// alternate key referenced by certifications and NDT results.
type Welder struct {
	bun.BaseModel `bun:"table:welder_table,alias:w"`

	Ident          uuid.UUID  `bun:"ident,pk,type:varchar(36)" json:"ident"`
	Kleymo         string     `bun:"kleymo,type:varchar(4),notnull,unique" json:"kleymo" validate:"required,kleymo"`
	Name           *string    `bun:"name" json:"name"`
	Birthday       *time.Time `bun:"birthday,type:date" json:"birthday"`
	Sicil          *string    `bun:"sicil" json:"sicil"`
	PassportNumber *string    `bun:"passport_number" json:"passport_number"`
	Nation         *string    `bun:"nation" json:"nation"`
	Status         int16      `bun:"status,type:smallint,notnull" json:"status" validate:"gte=0"`
}

func (w *Welder) PrimaryIdent() *uuid.UUID { return &w.Ident }

func (w *Welder) Normalize() {
	w.Birthday = datePtr(w.Birthday)
}

// WelderUpdate is a partial update of a Welder; unset fields are untouched.
type WelderUpdate struct {
	Kleymo         *string                   `bun:"kleymo" json:"kleymo,omitempty" validate:"omitempty,kleymo"`
	Name           types.Optional[string]    `bun:"name" json:"name,omitzero"`
	Birthday       types.Optional[time.Time] `bun:"birthday" json:"birthday,omitzero"`
	Sicil          types.Optional[string]    `bun:"sicil" json:"sicil,omitzero"`
	PassportNumber types.Optional[string]    `bun:"passport_number" json:"passport_number,omitzero"`
	Nation         types.Optional[string]    `bun:"nation" json:"nation,omitzero"`
	Status         *int16                    `bun:"status" json:"status,omitempty" validate:"omitempty,gte=0"`
}

// WelderRequest selects welders. Fields are combined with AND, values of
// one field with OR.
type WelderRequest struct {
	types.PageRequest

	Idents         []uuid.UUID `json:"idents,omitempty"`
	Kleymos        []string    `json:"kleymos,omitempty"`
	Names          []string    `json:"names,omitempty"`
	Statuses       []int16     `json:"statuses,omitempty"`
	BirthdayFrom   *time.Time  `json:"birthday_from,omitempty"`
	BirthdayBefore *time.Time  `json:"birthday_before,omitempty"`
}

func (r *WelderRequest) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	q = whereIn(q, "ident", r.Idents)
	q = whereIn(q, "kleymo", r.Kleymos)
	q = whereIn(q, "name", r.Names)
	q = whereIn(q, "status", r.Statuses)
	return whereRange(q, "birthday", r.BirthdayFrom, r.BirthdayBefore)
}
