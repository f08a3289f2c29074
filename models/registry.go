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

import "github.com/tomoncle/weldreg/database"

// Table creation order. Parents come before the tables referencing them.
const (
	priorityWelder = iota * 10
	priorityUser
	priorityWelderCertification
	priorityNDT
	priorityRefreshToken
)

// Register adds every registry table to r.
func Register(r database.ModelRegistry) {
	r.Register(
		database.NewModelAdapter((*Welder)(nil), priorityWelder),
		database.NewModelAdapter((*User)(nil), priorityUser),
		database.NewModelAdapter((*WelderCertification)(nil), priorityWelderCertification),
		database.NewModelAdapter((*NDT)(nil), priorityNDT),
		database.NewModelAdapter((*RefreshToken)(nil), priorityRefreshToken),
	)
}

// NewRegistry returns a registry holding every registry table.
func NewRegistry() database.ModelRegistry {
	r := database.NewModelRegistry()
	Register(r)
	return r
}
