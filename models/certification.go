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
	WelderCertificationTable = "welder_certification_table"
	WelderCertificationAlias = "wc"
)

// WelderCertification is a welder's qualification for a welding method.
// A certificate is identified by its number, insert, issue date and actual
// expiry date together.
type WelderCertification struct {
	bun.BaseModel `bun:"table:welder_certification_table,alias:wc"`

	Ident                  uuid.UUID        `bun:"ident,pk,type:varchar(36)" json:"ident"`
	Kleymo                 string           `bun:"kleymo,type:varchar(4),notnull" json:"kleymo" validate:"required,kleymo"`
	JobTitle               *string          `bun:"job_title" json:"job_title"`
	CertificationNumber    string           `bun:"certification_number,notnull,unique:certification_id" json:"certification_number" validate:"required"`
	CertificationDate      time.Time        `bun:"certification_date,type:date,notnull,unique:certification_id" json:"certification_date" validate:"required"`
	ExpirationDate         time.Time        `bun:"expiration_date,type:date,notnull" json:"expiration_date" validate:"required"`
	ExpirationDateFact     time.Time        `bun:"expiration_date_fact,type:date,notnull,unique:certification_id" json:"expiration_date_fact" validate:"required"`
	Insert                 *string          `bun:"insert,unique:certification_id" json:"insert"`
	CertificationType      *string          `bun:"certification_type" json:"certification_type"`
	Company                *string          `bun:"company" json:"company"`
	GTD                    types.StringList `bun:"gtd,type:text" json:"gtd"`
	Method                 *string          `bun:"method" json:"method"`
	DetailsType            types.StringList `bun:"details_type,type:text" json:"details_type"`
	JointType              types.StringList `bun:"joint_type,type:text" json:"joint_type"`
	WeldingMaterialsGroups types.StringList `bun:"welding_materials_groups,type:text" json:"welding_materials_groups"`
	WeldingMaterials       *string          `bun:"welding_materials" json:"welding_materials"`
	DetailsThiknessFrom    *float64         `bun:"details_thikness_from" json:"details_thikness_from"`
	DetailsThiknessBefore  *float64         `bun:"details_thikness_before" json:"details_thikness_before"`
	OuterDiameterFrom      *float64         `bun:"outer_diameter_from" json:"outer_diameter_from"`
	OuterDiameterBefore    *float64         `bun:"outer_diameter_before" json:"outer_diameter_before"`
	WeldingPosition        *string          `bun:"welding_position" json:"welding_position"`
	ConnectionType         *string          `bun:"connection_type" json:"connection_type"`
	RodDiameterFrom        *float64         `bun:"rod_diameter_from" json:"rod_diameter_from"`
	RodDiameterBefore      *float64         `bun:"rod_diameter_before" json:"rod_diameter_before"`
	RodAxisPosition        *string          `bun:"rod_axis_position" json:"rod_axis_position"`
	WeldType               *string          `bun:"weld_type" json:"weld_type"`
	JointLayer             *string          `bun:"joint_layer" json:"joint_layer"`
	SDR                    *string          `bun:"sdr" json:"sdr"`
	AutomationLevel        *string          `bun:"automation_level" json:"automation_level"`
	DetailsDiameterFrom    *float64         `bun:"details_diameter_from" json:"details_diameter_from"`
	DetailsDiameterBefore  *float64         `bun:"details_diameter_before" json:"details_diameter_before"`
	WeldingEquipment       *string          `bun:"welding_equipment" json:"welding_equipment"`
}

func (c *WelderCertification) PrimaryIdent() *uuid.UUID { return &c.Ident }

func (c *WelderCertification) Normalize() {
	c.CertificationDate = date(c.CertificationDate)
	c.ExpirationDate = date(c.ExpirationDate)
	c.ExpirationDateFact = date(c.ExpirationDateFact)
}

func (*WelderCertification) ForeignKeys() []database.ForeignKeyConstraint {
	return []database.ForeignKeyConstraint{welderForeignKey(WelderCertificationTable)}
}

func welderForeignKey(table string) database.ForeignKeyConstraint {
	return database.ForeignKeyConstraint{
		Table:           table,
		Column:          "kleymo",
		ReferenceTable:  WelderTable,
		ReferenceColumn: "kleymo",
		OnDelete:        "CASCADE",
		OnUpdate:        "CASCADE",
	}
}

type WelderCertificationUpdate struct {
	Kleymo                 *string                          `bun:"kleymo" json:"kleymo,omitempty" validate:"omitempty,kleymo"`
	JobTitle               types.Optional[string]           `bun:"job_title" json:"job_title,omitzero"`
	CertificationNumber    *string                          `bun:"certification_number" json:"certification_number,omitempty" validate:"omitempty,min=1"`
	CertificationDate      *time.Time                       `bun:"certification_date" json:"certification_date,omitempty"`
	ExpirationDate         *time.Time                       `bun:"expiration_date" json:"expiration_date,omitempty"`
	ExpirationDateFact     *time.Time                       `bun:"expiration_date_fact" json:"expiration_date_fact,omitempty"`
	Insert                 types.Optional[string]           `bun:"insert" json:"insert,omitzero"`
	CertificationType      types.Optional[string]           `bun:"certification_type" json:"certification_type,omitzero"`
	Company                types.Optional[string]           `bun:"company" json:"company,omitzero"`
	GTD                    types.Optional[types.StringList] `bun:"gtd" json:"gtd,omitzero"`
	Method                 types.Optional[string]           `bun:"method" json:"method,omitzero"`
	DetailsType            types.Optional[types.StringList] `bun:"details_type" json:"details_type,omitzero"`
	JointType              types.Optional[types.StringList] `bun:"joint_type" json:"joint_type,omitzero"`
	WeldingMaterialsGroups types.Optional[types.StringList] `bun:"welding_materials_groups" json:"welding_materials_groups,omitzero"`
	WeldingMaterials       types.Optional[string]           `bun:"welding_materials" json:"welding_materials,omitzero"`
	DetailsThiknessFrom    types.Optional[float64]          `bun:"details_thikness_from" json:"details_thikness_from,omitzero"`
	DetailsThiknessBefore  types.Optional[float64]          `bun:"details_thikness_before" json:"details_thikness_before,omitzero"`
	OuterDiameterFrom      types.Optional[float64]          `bun:"outer_diameter_from" json:"outer_diameter_from,omitzero"`
	OuterDiameterBefore    types.Optional[float64]          `bun:"outer_diameter_before" json:"outer_diameter_before,omitzero"`
	WeldingPosition        types.Optional[string]           `bun:"welding_position" json:"welding_position,omitzero"`
	ConnectionType         types.Optional[string]           `bun:"connection_type" json:"connection_type,omitzero"`
	RodDiameterFrom        types.Optional[float64]          `bun:"rod_diameter_from" json:"rod_diameter_from,omitzero"`
	RodDiameterBefore      types.Optional[float64]          `bun:"rod_diameter_before" json:"rod_diameter_before,omitzero"`
	RodAxisPosition        types.Optional[string]           `bun:"rod_axis_position" json:"rod_axis_position,omitzero"`
	WeldType               types.Optional[string]           `bun:"weld_type" json:"weld_type,omitzero"`
	JointLayer             types.Optional[string]           `bun:"joint_layer" json:"joint_layer,omitzero"`
	SDR                    types.Optional[string]           `bun:"sdr" json:"sdr,omitzero"`
	AutomationLevel        types.Optional[string]           `bun:"automation_level" json:"automation_level,omitzero"`
	DetailsDiameterFrom    types.Optional[float64]          `bun:"details_diameter_from" json:"details_diameter_from,omitzero"`
	DetailsDiameterBefore  types.Optional[float64]          `bun:"details_diameter_before" json:"details_diameter_before,omitzero"`
	WeldingEquipment       types.Optional[string]           `bun:"welding_equipment" json:"welding_equipment,omitzero"`
}

// WelderCertificationRequest selects certifications. WelderNames filters on
// the owning welder and joins welder_table.
type WelderCertificationRequest struct {
	types.PageRequest

	Idents                   []uuid.UUID `json:"idents,omitempty"`
	Kleymos                  []string    `json:"kleymos,omitempty"`
	CertificationNumbers     []string    `json:"certification_numbers,omitempty"`
	Methods                  []string    `json:"methods,omitempty"`
	Companies                []string    `json:"companies,omitempty"`
	WelderNames              []string    `json:"names,omitempty"`
	CertificationDateFrom    *time.Time  `json:"certification_date_from,omitempty"`
	CertificationDateBefore  *time.Time  `json:"certification_date_before,omitempty"`
	ExpirationDateFactFrom   *time.Time  `json:"expiration_date_fact_from,omitempty"`
	ExpirationDateFactBefore *time.Time  `json:"expiration_date_fact_before,omitempty"`
}

func (r *WelderCertificationRequest) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	if len(r.WelderNames) > 0 {
		q = joinWelder(q, WelderCertificationAlias)
		q = whereJoinedIn(q, welderJoinAlias, "name", r.WelderNames)
	}
	q = whereIn(q, "ident", r.Idents)
	q = whereIn(q, "kleymo", r.Kleymos)
	q = whereIn(q, "certification_number", r.CertificationNumbers)
	q = whereIn(q, "method", r.Methods)
	q = whereIn(q, "company", r.Companies)
	q = whereRange(q, "certification_date", r.CertificationDateFrom, r.CertificationDateBefore)
	return whereRange(q, "expiration_date_fact", r.ExpirationDateFactFrom, r.ExpirationDateFactBefore)
}
