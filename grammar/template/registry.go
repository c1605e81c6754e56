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

package template

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps names to factories and values, which is what Ref templates
// resolve against. It is safe for concurrent use.
type Registry struct {
	mutex     *sync.Mutex
	factories map[string]FactoryFunc
	values    map[string]Template
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		mutex:     &sync.Mutex{},
		factories: make(map[string]FactoryFunc),
		values:    make(map[string]Template),
	}
}

// RegisterFactory adds a named factory. Each name can only be used once.
func (obj *Registry) RegisterFactory(name string, fn FactoryFunc) error {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	if err := obj.check(name); err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("factory `%s` is nil", name)
	}
	obj.factories[name] = fn
	return nil
}

// RegisterValue adds a named template. Each name can only be used once.
func (obj *Registry) RegisterValue(name string, t Template) error {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	if err := obj.check(name); err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("value `%s` is nil", name)
	}
	obj.values[name] = t
	return nil
}

func (obj *Registry) check(name string) error {
	if name == "" {
		return fmt.Errorf("empty name")
	}
	if _, exists := obj.factories[name]; exists {
		return fmt.Errorf("a factory named `%s` is already registered", name)
	}
	if _, exists := obj.values[name]; exists {
		return fmt.Errorf("a value named `%s` is already registered", name)
	}
	return nil
}

// Lookup returns the template registered under name. Factories are returned
// as named factory templates.
func (obj *Registry) Lookup(name string) (Template, bool) {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	if fn, exists := obj.factories[name]; exists {
		return NamedFactory(name, fn), true
	}
	if t, exists := obj.values[name]; exists {
		return t, true
	}
	return nil, false
}

// Names returns the sorted list of registered names.
func (obj *Registry) Names() []string {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	names := []string{}
	for name := range obj.factories {
		names = append(names, name)
	}
	for name := range obj.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
