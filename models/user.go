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
	UserTable         = "user_table"
	UserAlias         = "u"
	RefreshTokenTable = "refresh_token_table"
	RefreshTokenAlias = "rt"
)

// User is an account of the registry. Login is an alternate key.
type User struct {
	bun.BaseModel `bun:"table:user_table,alias:u"`

	Ident          uuid.UUID `bun:"ident,pk,type:varchar(36)" json:"ident"`
	Name           string    `bun:"name,notnull" json:"name" validate:"required"`
	Login          string    `bun:"login,notnull,unique" json:"login" validate:"required"`
	HashedPassword string    `bun:"hashed_password,notnull" json:"-" validate:"required"`
	Email          *string   `bun:"email" json:"email" validate:"omitempty,email"`
	SignDate       time.Time `bun:"sign_date,notnull" json:"sign_date" validate:"required"`
	UpdateDate     time.Time `bun:"update_date,notnull" json:"update_date" validate:"required"`
	LoginDate      time.Time `bun:"login_date,notnull" json:"login_date" validate:"required"`
	IsSuperuser    bool      `bun:"is_superuser,notnull" json:"is_superuser"`
}

func (u *User) PrimaryIdent() *uuid.UUID { return &u.Ident }

func (u *User) Normalize() {
	u.SignDate = utc(u.SignDate)
	u.UpdateDate = utc(u.UpdateDate)
	u.LoginDate = utc(u.LoginDate)
}

type UserUpdate struct {
	Name           *string                `bun:"name" json:"name,omitempty" validate:"omitempty,min=1"`
	Login          *string                `bun:"login" json:"login,omitempty" validate:"omitempty,min=1"`
	HashedPassword *string                `bun:"hashed_password" json:"-"`
	Email          types.Optional[string] `bun:"email" json:"email,omitzero" validate:"omitempty,email"`
	SignDate       *time.Time             `bun:"sign_date" json:"sign_date,omitempty"`
	UpdateDate     *time.Time             `bun:"update_date" json:"update_date,omitempty"`
	LoginDate      *time.Time             `bun:"login_date" json:"login_date,omitempty"`
	IsSuperuser    *bool                  `bun:"is_superuser" json:"is_superuser,omitempty"`
}

type UserRequest struct {
	types.PageRequest

	Idents         []uuid.UUID `json:"idents,omitempty"`
	Logins         []string    `json:"logins,omitempty"`
	Names          []string    `json:"names,omitempty"`
	IsSuperuser    *bool       `json:"is_superuser,omitempty"`
	SignDateFrom   *time.Time  `json:"sign_date_from,omitempty"`
	SignDateBefore *time.Time  `json:"sign_date_before,omitempty"`
}

func (r *UserRequest) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	q = whereIn(q, "ident", r.Idents)
	q = whereIn(q, "login", r.Logins)
	q = whereIn(q, "name", r.Names)
	q = whereEq(q, "is_superuser", r.IsSuperuser)
	return whereRange(q, "sign_date", r.SignDateFrom, r.SignDateBefore)
}

// RefreshToken is an issued refresh token of a user. Token is an alternate
// key.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_token_table,alias:rt"`

	Ident     uuid.UUID `bun:"ident,pk,type:varchar(36)" json:"ident"`
	UserIdent uuid.UUID `bun:"user_ident,type:varchar(36),notnull" json:"user_ident" validate:"required"`
	Token     string    `bun:"token,notnull,unique" json:"token" validate:"required"`
	Revoked   bool      `bun:"revoked,notnull" json:"revoked"`
	ExpDt     time.Time `bun:"exp_dt,notnull" json:"exp_dt" validate:"required"`
	GenDt     time.Time `bun:"gen_dt,notnull" json:"gen_dt" validate:"required"`
}

func (t *RefreshToken) PrimaryIdent() *uuid.UUID { return &t.Ident }

func (t *RefreshToken) Normalize() {
	t.ExpDt = utc(t.ExpDt)
	t.GenDt = utc(t.GenDt)
}

func (*RefreshToken) ForeignKeys() []database.ForeignKeyConstraint {
	return []database.ForeignKeyConstraint{{
		Table:           RefreshTokenTable,
		Column:          "user_ident",
		ReferenceTable:  UserTable,
		ReferenceColumn: "ident",
		OnDelete:        "CASCADE",
		OnUpdate:        "CASCADE",
	}}
}

type RefreshTokenUpdate struct {
	UserIdent *uuid.UUID `bun:"user_ident" json:"user_ident,omitempty"`
	Token     *string    `bun:"token" json:"token,omitempty" validate:"omitempty,min=1"`
	Revoked   *bool      `bun:"revoked" json:"revoked,omitempty"`
	ExpDt     *time.Time `bun:"exp_dt" json:"exp_dt,omitempty"`
	GenDt     *time.Time `bun:"gen_dt" json:"gen_dt,omitempty"`
}

// RefreshTokenRequest selects refresh tokens. GenDtBefore and ExpDtBefore
// are exclusive upper bounds, GenDtAfter an inclusive lower bound.
type RefreshTokenRequest struct {
	types.PageRequest

	Revoked     *bool       `json:"revoked,omitempty"`
	UserIdents  []uuid.UUID `json:"user_idents,omitempty"`
	GenDtAfter  *time.Time  `json:"gen_dt_after,omitempty"`
	GenDtBefore *time.Time  `json:"gen_dt_before,omitempty"`
	ExpDtBefore *time.Time  `json:"exp_dt_before,omitempty"`
}

func (r *RefreshTokenRequest) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	q = whereEq(q, "revoked", r.Revoked)
	q = whereIn(q, "user_ident", r.UserIdents)
	q = whereRange(q, "gen_dt", r.GenDtAfter, r.GenDtBefore)
	return whereRange(q, "exp_dt", nil, r.ExpDtBefore)
}
