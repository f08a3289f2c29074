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
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/tomoncle/weldreg/database"
	"github.com/tomoncle/weldreg/types"
)

func ptr[T any](v T) *T { return &v }

func TestIsKleymo(t *testing.T) {
	for _, s := range []string{"A1B2", "11F9", "ZZZZ", "0000"} {
		assert.True(t, IsKleymo(s), s)
	}
	for _, s := range []string{"a1b2", "A1B", "A1B2C", "A-B2", "", "d6f81d0030a44b21afc6d6cc8d99e13b"} {
		assert.False(t, IsKleymo(s), s)
	}
}

func TestValidateWelder(t *testing.T) {
	assert.NoError(t, Validate(&Welder{Kleymo: "A1B2"}))
	assert.Error(t, Validate(&Welder{Kleymo: "a1b2"}))
	assert.Error(t, Validate(&Welder{Kleymo: "A1B2", Status: -1}))
	assert.NoError(t, Validate(&WelderUpdate{}))
	assert.Error(t, Validate(&WelderUpdate{Kleymo: ptr("bad")}))
}

func TestValidateNDTAndUser(t *testing.T) {
	day := time.Date(2023, 7, 11, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, Validate(&NDT{Kleymo: "A1B2", WeldingDate: day, TotalWelded: 3}))
	assert.Error(t, Validate(&NDT{Kleymo: "A1B2", WeldingDate: day, Rejected: -0.5}))
	assert.Error(t, Validate(&NDTUpdate{Accepted: ptr(-1.0)}))

	now := time.Now().UTC()
	user := &User{Name: "Test", Login: "TestUser", HashedPassword: "x", SignDate: now, UpdateDate: now, LoginDate: now}
	assert.NoError(t, Validate(user))
	user.Email = ptr("not-an-email")
	assert.Error(t, Validate(user))
	user.Email = ptr("hello@mail.ru")
	assert.NoError(t, Validate(user))
	assert.Error(t, Validate(&RefreshToken{Token: "t", ExpDt: now, GenDt: now}))

	assert.Error(t, Validate(&UserUpdate{Email: types.Some("not-an-email")}))
	assert.NoError(t, Validate(&UserUpdate{Email: types.Some("hello@mail.ru")}))
	assert.NoError(t, Validate(&UserUpdate{Email: types.Null[string]()}))
	assert.NoError(t, Validate(&UserUpdate{}))
}

func TestChangesKeepsOnlySetFields(t *testing.T) {
	birthday := time.Date(1995, 2, 2, 3, 0, 0, 0, time.FixedZone("MSK", 3*3600))
	changes, err := Changes(&WelderUpdate{Name: types.Some("dsdsds"), Birthday: types.Some(birthday)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":     "dsdsds",
		"birthday": time.Date(1995, 2, 2, 0, 0, 0, 0, time.UTC),
	}, changes)
	assert.Equal(t, []string{"birthday", "name"}, SortedColumns(changes))

	changes, err = Changes(&WelderCertificationUpdate{WeldingMaterialsGroups: types.Some(types.StringList{"dsdsds"})})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"welding_materials_groups": types.StringList{"dsdsds"}}, changes)

	changes, err = Changes(&WelderUpdate{Name: types.Null[string](), Status: ptr(int16(2))})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": nil, "status": int16(2)}, changes)

	changes, err = Changes(&UserUpdate{Email: types.Null[string]()})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"email": nil}, changes)

	changes, err = Changes(&RefreshTokenUpdate{})
	require.NoError(t, err)
	assert.Empty(t, changes)

	changes, err = Changes(nil)
	require.NoError(t, err)
	assert.Empty(t, changes)

	_, err = Changes(struct {
		Name string `bun:"name"`
	}{Name: "x"})
	assert.Error(t, err)

	_, err = Changes(42)
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	msk := time.FixedZone("MSK", 3*3600)
	w := &Welder{Birthday: ptr(time.Date(1990, 5, 6, 23, 30, 0, 0, msk))}
	w.Normalize()
	assert.Equal(t, time.Date(1990, 5, 6, 0, 0, 0, 0, time.UTC), *w.Birthday)

	tok := &RefreshToken{GenDt: time.Date(2024, 1, 1, 3, 0, 0, 1500, msk)}
	tok.Normalize()
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 1000, time.UTC), tok.GenDt)
	assert.True(t, tok.ExpDt.IsZero())
}

func TestRegistryOrdersParentsFirst(t *testing.T) {
	instances := database.ModelInstances(NewRegistry())
	require.Len(t, instances, 5)
	assert.IsType(t, (*Welder)(nil), instances[0])
	assert.IsType(t, (*User)(nil), instances[1])

	fks := database.NewForeignKeyManager(NewRegistry(), nil)
	assert.Empty(t, fks.ValidateConstraints())
	assert.Len(t, fks.ListAllConstraints(), 3)
	assert.Len(t, fks.GetConstraintsByTable(RefreshTokenTable), 1)
}

func newQueryDB(t *testing.T) *bun.DB {
	t.Helper()
	sqlDB, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRequestFiltersBuildWhereClauses(t *testing.T) {
	db := newQueryDB(t)

	req := &RefreshTokenRequest{
		Revoked:     ptr(true),
		UserIdents:  []uuid.UUID{uuid.MustParse("80943143-bd4e-4d42-b86f-98790eee534c")},
		GenDtBefore: ptr(time.Date(2024, 1, 1, 1, 1, 1, 0, time.UTC)),
	}
	sqlText := req.Apply(db.NewSelect().Model((*RefreshToken)(nil))).String()
	assert.Contains(t, sqlText, `"rt"."revoked" = `)
	assert.Contains(t, sqlText, `"rt"."user_ident" IN ('80943143-bd4e-4d42-b86f-98790eee534c')`)
	assert.Contains(t, sqlText, `"rt"."gen_dt" < `)
	assert.NotContains(t, sqlText, "exp_dt\" <")

	empty := (&WelderRequest{}).Apply(db.NewSelect().Model((*Welder)(nil))).String()
	assert.NotContains(t, empty, "WHERE")
}

func TestChildRequestsJoinWelderOnlyWhenNeeded(t *testing.T) {
	db := newQueryDB(t)

	plain := (&WelderCertificationRequest{Kleymos: []string{"A1B2", "11F9"}}).
		Apply(db.NewSelect().Model((*WelderCertification)(nil))).String()
	assert.NotContains(t, plain, "JOIN")
	assert.Contains(t, plain, `"wc"."kleymo" IN ('A1B2', '11F9')`)

	joined := (&NDTRequest{WelderNames: []string{"Ivanov"}}).
		Apply(db.NewSelect().Model((*NDT)(nil))).String()
	assert.Contains(t, joined, `JOIN "welder_table" AS "welder" ON "welder"."kleymo" = "ndt"."kleymo"`)
	assert.Contains(t, joined, `"welder"."name" IN ('Ivanov')`)
}
