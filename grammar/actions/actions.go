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

// Package actions provides a registry of named actions that grammar files can
// attach to nodes.
package actions

import (
	"fmt"
	"sort"

	"github.com/purpleidea/agt/grammar/interfaces"
)

// Builder builds an action from its arguments.
type Builder func(args map[string]interface{}) (interfaces.Action, error)

// registeredActions is a global map of all possible actions which can be used.
// You should never touch this map directly. Use methods like Register instead.
var registeredActions = make(map[string]Builder) // must initialize

// Register takes an action builder and its name and makes it available for
// use. It is commonly called in the init() method of the action at program
// startup. There is no matching Unregister function.
func Register(name string, builder Builder) {
	if _, exists := registeredActions[name]; exists {
		panic(fmt.Sprintf("an action named %s is already registered", name))
	}
	registeredActions[name] = builder
}

// Lookup builds the action of that name with the given arguments.
func Lookup(name string, args map[string]interface{}) (interfaces.Action, error) {
	builder, exists := registeredActions[name]
	if !exists {
		return nil, fmt.Errorf("action `%s` not found", name)
	}
	if args == nil {
		args = make(map[string]interface{})
	}
	return builder(args)
}

// Names returns the sorted list of registered action names.
func Names() []string {
	names := []string{}
	for name := range registeredActions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// stringArg returns a required string argument.
func stringArg(args map[string]interface{}, key string) (string, error) {
	v, exists := args[key]
	if !exists {
		return "", fmt.Errorf("missing `%s` argument", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument `%s` is a %T, not a string", key, v)
	}
	return s, nil
}

// intArg returns an optional int argument.
func intArg(args map[string]interface{}, key string, def int) (int, error) {
	v, exists := args[key]
	if !exists {
		return def, nil
	}
	i, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("argument `%s` is a %T, not an int", key, v)
	}
	return i, nil
}
