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
	"github.com/tomoncle/weldreg/database"
	"github.com/tomoncle/weldreg/models"
)

func NewWelderRepository(logger database.Logger) *Repository[models.Welder] {
	return New[models.Welder](Schema{Table: models.WelderTable, Policy: WelderPolicy{}}, logger)
}

func NewWelderCertificationRepository(logger database.Logger) *Repository[models.WelderCertification] {
	return New[models.WelderCertification](Schema{Table: models.WelderCertificationTable}, logger)
}

func NewNDTRepository(logger database.Logger) *Repository[models.NDT] {
	return New[models.NDT](Schema{Table: models.NDTTable}, logger)
}

func NewUserRepository(logger database.Logger) *Repository[models.User] {
	return New[models.User](Schema{Table: models.UserTable, Policy: AlternateKeyPolicy{Column: "login"}}, logger)
}

func NewRefreshTokenRepository(logger database.Logger) *Repository[models.RefreshToken] {
	return New[models.RefreshToken](Schema{Table: models.RefreshTokenTable, Policy: AlternateKeyPolicy{Column: "token"}}, logger)
}
