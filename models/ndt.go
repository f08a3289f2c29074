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

	"github.com/tomoncle/weldreg/database"
	"github.com/tomoncle/weldreg/types"
)

const (
	NDTTable = "ndt_table"
	NDTAlias = "ndt"
)

// NDT is a non-destructive testing summary for a welder's work on one
// welding date. Counters are lengths or joint counts and never negative.
type NDT struct {
	bun.BaseModel `bun:"table:ndt_table,alias:ndt"`

	Ident       uuid.UUID `bun:"ident,pk,type:varchar(36)" json:"ident"`
	Kleymo      string    `bun:"kleymo,type:varchar(4),notnull" json:"kleymo" validate:"required,kleymo"`
	Company     *string   `bun:"company" json:"company"`
	Subcompany  *string   `bun:"subcompany" json:"subcompany"`
	Project     *string   `bun:"project" json:"project"`
	WeldingDate time.Time `bun:"welding_date,type:date,notnull" json:"welding_date" validate:"required"`
	NDTType     *string   `bun:"ndt_type" json:"ndt_type"`
	TotalWelded float64   `bun:"total_welded,notnull" json:"total_welded" validate:"gte=0"`
	TotalNDT    float64   `bun:"total_ndt,notnull" json:"total_ndt" validate:"gte=0"`
	Accepted    float64   `bun:"accepted,notnull" json:"accepted" validate:"gte=0"`
	Rejected    float64   `bun:"rejected,notnull" json:"rejected" validate:"gte=0"`
}

func (n *NDT) PrimaryIdent() *uuid.UUID { return &n.Ident }

func (n *NDT) Normalize() {
	n.WeldingDate = date(n.WeldingDate)
}

func (*NDT) ForeignKeys() []database.ForeignKeyConstraint {
	return []database.ForeignKeyConstraint{welderForeignKey(NDTTable)}
}

type NDTUpdate struct {
	Kleymo      *string                `bun:"kleymo" json:"kleymo,omitempty" validate:"omitempty,kleymo"`
	Company     types.Optional[string] `bun:"company" json:"company,omitzero"`
	Subcompany  types.Optional[string] `bun:"subcompany" json:"subcompany,omitzero"`
	Project     types.Optional[string] `bun:"project" json:"project,omitzero"`
	WeldingDate *time.Time             `bun:"welding_date" json:"welding_date,omitempty"`
	NDTType     types.Optional[string] `bun:"ndt_type" json:"ndt_type,omitzero"`
	TotalWelded *float64               `bun:"total_welded" json:"total_welded,omitempty" validate:"omitempty,gte=0"`
	TotalNDT    *float64               `bun:"total_ndt" json:"total_ndt,omitempty" validate:"omitempty,gte=0"`
	Accepted    *float64               `bun:"accepted" json:"accepted,omitempty" validate:"omitempty,gte=0"`
	Rejected    *float64               `bun:"rejected" json:"rejected,omitempty" validate:"omitempty,gte=0"`
}

// NDTRequest selects NDT results. WelderNames joins welder_table.
type NDTRequest struct {
	types.PageRequest

	Idents            []uuid.UUID `json:"idents,omitempty"`
	Kleymos           []string    `json:"kleymos,omitempty"`
	Companies         []string    `json:"companies,omitempty"`
	Subcompanies      []string    `json:"subcompanies,omitempty"`
	Projects          []string    `json:"projects,omitempty"`
	NDTTypes          []string    `json:"ndt_types,omitempty"`
	WelderNames       []string    `json:"names,omitempty"`
	WeldingDateFrom   *time.Time  `json:"welding_date_from,omitempty"`
	WeldingDateBefore *time.Time  `json:"welding_date_before,omitempty"`
}

func (r *NDTRequest) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	if len(r.WelderNames) > 0 {
		q = joinWelder(q, NDTAlias)
		q = whereJoinedIn(q, welderJoinAlias, "name", r.WelderNames)
	}
	q = whereIn(q, "ident", r.Idents)
	q = whereIn(q, "kleymo", r.Kleymos)
	q = whereIn(q, "company", r.Companies)
	q = whereIn(q, "subcompany", r.Subcompanies)
	q = whereIn(q, "project", r.Projects)
	q = whereIn(q, "ndt_type", r.NDTTypes)
	return whereRange(q, "welding_date", r.WeldingDateFrom, r.WeldingDateBefore)
}
