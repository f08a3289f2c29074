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

	"github.com/uptrace/bun"

	"github.com/tomoncle/weldreg/database"
	"github.com/tomoncle/weldreg/models"
	"github.com/tomoncle/weldreg/repository"
	"github.com/tomoncle/weldreg/types"
)

// Service runs repository operations of one record type, each in its own
// unit of work. Mutations commit when the operation succeeds; anything that
// fails is rolled back.
type Service[M any] struct {
	uow  *database.UnitOfWorkFactory
	repo *repository.Repository[M]
}

func NewService[M any](uow *database.UnitOfWorkFactory, repo *repository.Repository[M]) *Service[M] {
	return &Service[M]{uow: uow, repo: repo}
}

// Repository returns the underlying repository, for use inside Batch.
func (s *Service[M]) Repository() *repository.Repository[M] {
	return s.repo
}

// Get returns the record addressed by ident, or nil when there is none.
func (s *Service[M]) Get(ctx context.Context, ident any) (*M, error) {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, repository.WrapFailure(repository.OpGet, s.repo.Table(), err)
	}
	defer uow.Close()

	return s.repo.Get(ctx, uow.Tx(), ident)
}

func (s *Service[M]) GetMany(ctx context.Context, filter repository.PageFilter) (*types.Pagination[M], error) {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, repository.WrapFailure(repository.OpGetMany, s.repo.Table(), err)
	}
	defer uow.Close()

	return s.repo.GetMany(ctx, uow.Tx(), filter)
}

func (s *Service[M]) Count(ctx context.Context, filter repository.Filter) (int, error) {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return 0, repository.WrapFailure(repository.OpCount, s.repo.Table(), err)
	}
	defer uow.Close()

	return s.repo.Count(ctx, uow.Tx(), filter)
}

// Add inserts all records or none.
func (s *Service[M]) Add(ctx context.Context, entity ...*M) error {
	return s.mutate(ctx, repository.OpAdd, func(ctx context.Context, tx bun.IDB) error {
		return s.repo.Add(ctx, tx, entity...)
	})
}

func (s *Service[M]) Update(ctx context.Context, ident any, changes any) error {
	return s.mutate(ctx, repository.OpUpdate, func(ctx context.Context, tx bun.IDB) error {
		return s.repo.Update(ctx, tx, ident, changes)
	})
}

// Delete removes every record addressed by idents, or none of them.
func (s *Service[M]) Delete(ctx context.Context, idents ...any) error {
	return s.mutate(ctx, repository.OpDelete, func(ctx context.Context, tx bun.IDB) error {
		return s.repo.Delete(ctx, tx, idents...)
	})
}

// Batch runs fn in one unit of work and commits only if fn returns nil.
func (s *Service[M]) Batch(ctx context.Context, fn func(ctx context.Context, tx bun.IDB) error) error {
	return s.uow.Do(ctx, fn)
}

func (s *Service[M]) mutate(ctx context.Context, op repository.Operation, fn func(ctx context.Context, tx bun.IDB) error) error {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return repository.WrapFailure(op, s.repo.Table(), err)
	}
	defer uow.Close()

	if err := fn(ctx, uow.Tx()); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return repository.WrapFailure(op, s.repo.Table(), err)
	}
	return nil
}

// selectByKleymo returns the records of a welder's child table.
func selectByKleymo[M any](ctx context.Context, s *Service[M], kleymo string) ([]*M, error) {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, repository.WrapFailure(repository.OpSelect, s.repo.Table(), err)
	}
	defer uow.Close()

	return s.repo.SelectBy(ctx, uow.Tx(), "kleymo", kleymo)
}

type WelderService struct {
	*Service[models.Welder]
}

type WelderCertificationService struct {
	*Service[models.WelderCertification]
}

// SelectByKleymo returns the certifications of the welder with the given
// stamp.
func (s *WelderCertificationService) SelectByKleymo(ctx context.Context, kleymo string) ([]*models.WelderCertification, error) {
	return selectByKleymo(ctx, s.Service, kleymo)
}

type NDTService struct {
	*Service[models.NDT]
}

// SelectByKleymo returns the NDT results of the welder with the given stamp.
func (s *NDTService) SelectByKleymo(ctx context.Context, kleymo string) ([]*models.NDT, error) {
	return selectByKleymo(ctx, s.Service, kleymo)
}

type UserService struct {
	*Service[models.User]
}

type RefreshTokenService struct {
	*Service[models.RefreshToken]
}

// Services groups the services of every registry table over one pool.
type Services struct {
	Welders              *WelderService
	WelderCertifications *WelderCertificationService
	NDTs                 *NDTService
	Users                *UserService
	RefreshTokens        *RefreshTokenService
}

// NewServices builds all services over uow. A nil logger means the
// database package logger.
func NewServices(uow *database.UnitOfWorkFactory, logger database.Logger) *Services {
	return &Services{
		Welders:              &WelderService{NewService(uow, repository.NewWelderRepository(logger))},
		WelderCertifications: &WelderCertificationService{NewService(uow, repository.NewWelderCertificationRepository(logger))},
		NDTs:                 &NDTService{NewService(uow, repository.NewNDTRepository(logger))},
		Users:                &UserService{NewService(uow, repository.NewUserRepository(logger))},
		RefreshTokens:        &RefreshTokenService{NewService(uow, repository.NewRefreshTokenRepository(logger))},
	}
}
