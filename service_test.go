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

package weldreg

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/tomoncle/weldreg/database"
	"github.com/tomoncle/weldreg/models"
	"github.com/tomoncle/weldreg/repository"
	"github.com/tomoncle/weldreg/types"
)

func ptr[T any](v T) *T { return &v }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var signedAt = time.Date(2024, 5, 17, 9, 30, 15, 123456000, time.UTC)

func newServices(t *testing.T) *Services {
	t.Helper()
	cfg := database.DefaultConfig()
	cfg.ConnectionConfig.Type = "sqlite"
	cfg.ConnectionConfig.InMemory = true
	cfg.ConnectionConfig.DBName = "svc_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	cfg.ConnectionConfig.HealthCheckInterval = 0

	engine, err := database.Open(context.Background(), cfg, models.NewRegistry(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })
	return NewServices(engine.UnitOfWork(), nil)
}

func welder(kleymo string) *models.Welder {
	return &models.Welder{
		Kleymo:         kleymo,
		Name:           ptr("Ivanov Ivan"),
		Birthday:       ptr(day(1987, 4, 12)),
		Sicil:          ptr("0042"),
		PassportNumber: ptr("4510 123456"),
		Nation:         ptr("RU"),
		Status:         1,
	}
}

func user(login string) *models.User {
	return &models.User{
		Name:           "Operator " + login,
		Login:          login,
		HashedPassword: "$2b$12$hash",
		Email:          ptr(login + "@example.com"),
		SignDate:       signedAt,
		UpdateDate:     signedAt,
		LoginDate:      signedAt,
	}
}

func token(userIdent uuid.UUID, value string, revoked bool, gen time.Time) *models.RefreshToken {
	return &models.RefreshToken{
		UserIdent: userIdent,
		Token:     value,
		Revoked:   revoked,
		GenDt:     gen,
		ExpDt:     gen.Add(30 * 24 * time.Hour),
	}
}

func TestWelderLookupByIdentAndKleymo(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	w := welder("A1B2")
	require.NoError(t, s.Welders.Add(ctx, w))

	byIdent, err := s.Welders.Get(ctx, w.Ident)
	require.NoError(t, err)
	byKleymo, err := s.Welders.Get(ctx, "A1B2")
	require.NoError(t, err)

	require.NotNil(t, byIdent)
	assert.Equal(t, w, byIdent)
	assert.Equal(t, byIdent, byKleymo)

	absent, err := s.Welders.Get(ctx, "garbage-ident")
	assert.NoError(t, err)
	assert.Nil(t, absent)
}

func TestRoundTripEveryEntity(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	w := welder("Z9Y8")
	require.NoError(t, s.Welders.Add(ctx, w))

	cert := &models.WelderCertification{
		Kleymo:                 w.Kleymo,
		JobTitle:               ptr("welder"),
		CertificationNumber:    "MR-1GAC-II-01234",
		CertificationDate:      day(2022, 6, 1),
		ExpirationDate:         day(2024, 6, 1),
		ExpirationDateFact:     day(2024, 6, 1),
		Insert:                 ptr("1"),
		Company:                ptr("NAKS"),
		GTD:                    types.StringList{"GDO", "KO"},
		Method:                 ptr("RD"),
		DetailsType:            types.StringList{"T", "P"},
		JointType:              types.StringList{"SS"},
		WeldingMaterialsGroups: types.StringList{"M01"},
		OuterDiameterFrom:      ptr(25.0),
		OuterDiameterBefore:    ptr(530.5),
		WeldingPosition:        ptr("H1"),
	}
	require.NoError(t, s.WelderCertifications.Add(ctx, cert))
	gotCert, err := s.WelderCertifications.Get(ctx, cert.Ident)
	require.NoError(t, err)
	assert.Equal(t, cert, gotCert)

	ndt := &models.NDT{
		Kleymo:      w.Kleymo,
		Company:     ptr("Gazprom"),
		Project:     ptr("Power of Siberia"),
		WeldingDate: day(2023, 9, 3),
		TotalWelded: 12.5,
		TotalNDT:    10,
		Accepted:    9,
		Rejected:    1,
	}
	require.NoError(t, s.NDTs.Add(ctx, ndt))
	gotNDT, err := s.NDTs.Get(ctx, ndt.Ident.String())
	require.NoError(t, err)
	assert.Equal(t, ndt, gotNDT)

	u := user("operator")
	require.NoError(t, s.Users.Add(ctx, u))
	gotUser, err := s.Users.Get(ctx, u.Ident)
	require.NoError(t, err)
	assert.Equal(t, u, gotUser)

	rt := token(u.Ident, "refresh-1", false, signedAt)
	require.NoError(t, s.RefreshTokens.Add(ctx, rt))
	gotToken, err := s.RefreshTokens.Get(ctx, rt.Ident)
	require.NoError(t, err)
	assert.Equal(t, rt, gotToken)
}

func TestUserLookupByLoginOrIdent(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	u := user("jdoe")
	require.NoError(t, s.Users.Add(ctx, u))

	byLogin, err := s.Users.Get(ctx, "jdoe")
	require.NoError(t, err)
	byIdent, err := s.Users.Get(ctx, u.Ident.String())
	require.NoError(t, err)
	assert.Equal(t, byIdent, byLogin)

	rt := token(u.Ident, "opaque-token", false, signedAt)
	require.NoError(t, s.RefreshTokens.Add(ctx, rt))
	byToken, err := s.RefreshTokens.Get(ctx, "opaque-token")
	require.NoError(t, err)
	require.NotNil(t, byToken)
	assert.Equal(t, rt.Ident, byToken.Ident)
}

func TestDuplicateAlternateKeysLeaveCountUnchanged(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	require.NoError(t, s.Welders.Add(ctx, welder("K001")))
	u := user("dup")
	require.NoError(t, s.Users.Add(ctx, u))
	require.NoError(t, s.RefreshTokens.Add(ctx, token(u.Ident, "same", false, signedAt)))

	cases := []struct {
		name  string
		count func() (int, error)
		add   func() error
	}{
		{"welder kleymo",
			func() (int, error) { return s.Welders.Count(ctx, nil) },
			func() error { return s.Welders.Add(ctx, welder("K002"), welder("K001")) }},
		{"user login",
			func() (int, error) { return s.Users.Count(ctx, nil) },
			func() error { return s.Users.Add(ctx, user("dup")) }},
		{"refresh token",
			func() (int, error) { return s.RefreshTokens.Count(ctx, nil) },
			func() error { return s.RefreshTokens.Add(ctx, token(u.Ident, "same", true, signedAt)) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before, err := tc.count()
			require.NoError(t, err)

			err = tc.add()
			var creation *repository.CreationFailure
			require.ErrorAs(t, err, &creation)
			assert.Equal(t, database.DuplicateKeyErr, creation.Kind)

			after, err := tc.count()
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestUpdateKeepsUnnamedFields(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	w := welder("Q7Q7")
	require.NoError(t, s.Welders.Add(ctx, w))

	require.NoError(t, s.Welders.Update(ctx, w.Kleymo, &models.WelderUpdate{
		Name:     types.Some("dsdsds"),
		Birthday: types.Some(day(1990, 1, 1)),
	}))

	got, err := s.Welders.Get(ctx, w.Ident)
	require.NoError(t, err)
	assert.Equal(t, "dsdsds", *got.Name)
	assert.Equal(t, day(1990, 1, 1), *got.Birthday)
	assert.Equal(t, w.Kleymo, got.Kleymo)
	assert.Equal(t, w.Status, got.Status)
	assert.Equal(t, w.Sicil, got.Sicil)
	assert.Equal(t, w.PassportNumber, got.PassportNumber)
	assert.Equal(t, w.Nation, got.Nation)
}

func TestUpdateClearsNullableColumns(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	w := welder("N0N0")
	require.NoError(t, s.Welders.Add(ctx, w))
	u := user("clearme")
	require.NoError(t, s.Users.Add(ctx, u))

	require.NoError(t, s.Welders.Update(ctx, w.Kleymo, &models.WelderUpdate{Name: types.Null[string]()}))
	require.NoError(t, s.Users.Update(ctx, "clearme", &models.UserUpdate{Email: types.Null[string]()}))

	gotWelder, err := s.Welders.Get(ctx, w.Ident)
	require.NoError(t, err)
	assert.Nil(t, gotWelder.Name)
	assert.Equal(t, w.Sicil, gotWelder.Sicil)
	assert.Equal(t, w.Birthday, gotWelder.Birthday)

	gotUser, err := s.Users.Get(ctx, u.Ident)
	require.NoError(t, err)
	assert.Nil(t, gotUser.Email)
	assert.Equal(t, u.Name, gotUser.Name)
}

func TestUpdateCascadesKleymoToChildren(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	w := welder("OLD1")
	require.NoError(t, s.Welders.Add(ctx, w))
	require.NoError(t, s.NDTs.Add(ctx, &models.NDT{Kleymo: "OLD1", WeldingDate: day(2023, 3, 3)}))

	require.NoError(t, s.Welders.Update(ctx, w.Ident, &models.WelderUpdate{Kleymo: ptr("NEW1")}))

	moved, err := s.NDTs.SelectByKleymo(ctx, "NEW1")
	require.NoError(t, err)
	assert.Len(t, moved, 1)
	left, err := s.NDTs.SelectByKleymo(ctx, "OLD1")
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestDeleteWelderCascades(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	w := welder("D3L3")
	require.NoError(t, s.Welders.Add(ctx, w))
	for i := 0; i < 3; i++ {
		require.NoError(t, s.WelderCertifications.Add(ctx, &models.WelderCertification{
			Kleymo:              w.Kleymo,
			CertificationNumber: fmt.Sprintf("C-%d", i),
			CertificationDate:   day(2020, 1, 1+i),
			ExpirationDate:      day(2022, 1, 1+i),
			ExpirationDateFact:  day(2022, 1, 1+i),
		}))
		require.NoError(t, s.NDTs.Add(ctx, &models.NDT{Kleymo: w.Kleymo, WeldingDate: day(2023, 1, 1+i)}))
	}

	certs, err := s.WelderCertifications.SelectByKleymo(ctx, w.Kleymo)
	require.NoError(t, err)
	require.Len(t, certs, 3)

	require.NoError(t, s.Welders.Delete(ctx, w.Ident))

	got, err := s.Welders.Get(ctx, w.Ident)
	require.NoError(t, err)
	assert.Nil(t, got)

	certs, err = s.WelderCertifications.SelectByKleymo(ctx, w.Kleymo)
	require.NoError(t, err)
	assert.Empty(t, certs)
	ndts, err := s.NDTs.SelectByKleymo(ctx, w.Kleymo)
	require.NoError(t, err)
	assert.Empty(t, ndts)
}

func TestRevokedTokenTotalIgnoresPaging(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	u := user("tokens")
	require.NoError(t, s.Users.Add(ctx, u))

	tokens := make([]*models.RefreshToken, 0, 24)
	for i := 0; i < 24; i++ {
		tokens = append(tokens, token(u.Ident, fmt.Sprintf("t-%02d", i), i < 16, signedAt.Add(time.Duration(i)*time.Hour)))
	}
	require.NoError(t, s.RefreshTokens.Add(ctx, tokens...))

	for _, page := range []types.PageRequest{{Limit: 1}, {Limit: 5, Offset: 5}, {Limit: 10, Offset: 15}, {Limit: 50}} {
		result, err := s.RefreshTokens.GetMany(ctx, &models.RefreshTokenRequest{
			PageRequest: page,
			Revoked:     ptr(true),
		})
		require.NoError(t, err)
		assert.Equal(t, 16, result.Total)
		assert.Len(t, result.Items, min(page.GetLimit(), max(16-page.GetOffset(), 0)))
		for _, rt := range result.Items {
			assert.True(t, rt.Revoked)
		}
	}

	result, err := s.RefreshTokens.GetMany(ctx, &models.RefreshTokenRequest{
		Revoked:     ptr(false),
		UserIdents:  []uuid.UUID{u.Ident},
		GenDtAfter:  ptr(signedAt.Add(20 * time.Hour)),
		GenDtBefore: ptr(signedAt.Add(23 * time.Hour)),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
}

func TestBatchRollsBackOnLaterFailure(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	require.NoError(t, s.Welders.Add(ctx, welder("B001")))

	before, err := s.Welders.Count(ctx, nil)
	require.NoError(t, err)

	repo := s.Welders.Repository()
	err = s.Welders.Batch(ctx, func(ctx context.Context, tx bun.IDB) error {
		if err := repo.Add(ctx, tx, welder("B002")); err != nil {
			return err
		}
		return repo.Update(ctx, tx, "B002", &models.WelderUpdate{Kleymo: ptr("B001")})
	})
	var update *repository.UpdateFailure
	require.ErrorAs(t, err, &update)
	assert.True(t, update.ConstraintViolation())

	after, err := s.Welders.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	got, err := s.Welders.Get(ctx, "B002")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBatchCommitsAcrossTables(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	w := welder("M4M4")
	err := s.Welders.Batch(ctx, func(ctx context.Context, tx bun.IDB) error {
		if err := s.Welders.Repository().Add(ctx, tx, w); err != nil {
			return err
		}
		return s.NDTs.Repository().Add(ctx, tx, &models.NDT{Kleymo: w.Kleymo, WeldingDate: day(2024, 2, 2)})
	})
	require.NoError(t, err)

	n, err := s.NDTs.Count(ctx, types.NewQueryFilter("?TableAlias.kleymo = ?", w.Kleymo))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
