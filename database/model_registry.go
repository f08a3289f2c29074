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

package database

import (
	"reflect"
	"sort"
	"sync"
)

// SQLModel is a table created by migrations. Instance returns a nil struct
// pointer Bun can build a table from. Tables with a lower Priority are
// created first, so referenced tables must rank below the tables that
// reference them.
type SQLModel interface {
	Instance() interface{}
	Priority() int
}

// ModelRegistry holds the tables of a schema.
type ModelRegistry interface {
	Register(models ...SQLModel)
	Models() []SQLModel
}

// modelRegistry keys models by their Go type; registering a type again
// replaces its earlier entry.
type modelRegistry struct {
	mu     sync.RWMutex
	order  []reflect.Type
	models map[reflect.Type]SQLModel
}

func NewModelRegistry() ModelRegistry {
	return &modelRegistry{models: make(map[reflect.Type]SQLModel)}
}

func (r *modelRegistry) Register(models ...SQLModel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range models {
		key := reflect.TypeOf(m.Instance())
		if _, ok := r.models[key]; !ok {
			r.order = append(r.order, key)
		}
		r.models[key] = m
	}
}

// Models returns the registered models by ascending priority, ties kept in
// registration order.
func (r *modelRegistry) Models() []SQLModel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]SQLModel, 0, len(r.order))
	for _, key := range r.order {
		result = append(result, r.models[key])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Priority() < result[j].Priority()
	})
	return result
}

type tableModel struct {
	instance interface{}
	priority int
}

// NewModelAdapter registers instance, a nil pointer to a Bun model, at the
// given creation priority.
func NewModelAdapter(instance interface{}, priority int) SQLModel {
	return tableModel{instance: instance, priority: priority}
}

func (m tableModel) Instance() interface{} { return m.instance }
func (m tableModel) Priority() int         { return m.priority }

// ModelInstances returns the registered instances in creation order.
func ModelInstances(registry ModelRegistry) []interface{} {
	models := registry.Models()
	instances := make([]interface{}, len(models))
	for i, m := range models {
		instances[i] = m.Instance()
	}
	return instances
}
