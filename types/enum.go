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

package types

// IllegalName is reported for enum values outside their range.
const IllegalName = "unknown"

// BaseEnum is implemented by integer enums that carry a name and a
// description.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// EnumName returns the enum name, or IllegalName for values outside the
// enum's range.
func EnumName(e BaseEnum) string {
	if e == nil || !e.IsValid() {
		return IllegalName
	}
	return e.Name()
}
