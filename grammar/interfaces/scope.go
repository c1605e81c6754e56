// Mgmt
// Copyright (C) James Shubin and the project contributors
// Written by James Shubin <james@shubin.ca> and the project contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.
//
// Additional permission under GNU GPL version 3 section 7
//
// If you modify this program, or any covered work, by linking or combining it
// with embedded mcl code and modules (and that the embedded mcl code and
// modules which link with this program, contain a copy of their source code in
// the authoritative form) containing parts covered by the terms of any other
// license, the licensors of this program grant you additional permission to
// convey the resulting work. Furthermore, the licensors of this program grant
// the original author, James Shubin, additional permission to update this
// additional permission if he deems it necessary to achieve the goals of this
// additional permission.

package interfaces

import (
	"sort"
)

// Env is the execution environment handle. It is passed unexamined to every
// action.
type Env interface{}

// Context is the keyword context which is handed to factories and actions.
type Context map[string]interface{}

// Action is a side effect which is attached to a node and run at execution
// time. It receives the scope snapshot of its node, with any earlier updates
// merged on top. It may return updates for the nodes that are visited after
// it. A nil return means no updates.
type Action func(env Env, scope Scope, ctx Context) (Scope, error)

// Scope is the mapping of contextual values which is threaded through
// generation and execution.
type Scope map[string]interface{}

// EmptyScope returns a new scope with no values.
func EmptyScope() Scope {
	return make(Scope)
}

// Copy returns a shallow copy of the scope. Changes to the map of the copy
// don't affect the original, but the values are shared.
func (obj Scope) Copy() Scope {
	scope := make(Scope, len(obj))
	for k, v := range obj {
		scope[k] = v
	}
	return scope
}

// Merge adds all of the updates to this scope, overwriting any existing keys.
func (obj Scope) Merge(updates Scope) {
	for k, v := range updates {
		obj[k] = v
	}
}

// Get returns the value stored at key, and whether it existed.
func (obj Scope) Get(key string) (interface{}, bool) {
	v, exists := obj[key]
	return v, exists
}

// Keys returns the sorted list of keys in this scope.
func (obj Scope) Keys() []string {
	keys := []string{}
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Copy returns a shallow copy of the context.
func (obj Context) Copy() Context {
	ctx := make(Context, len(obj))
	for k, v := range obj {
		ctx[k] = v
	}
	return ctx
}
