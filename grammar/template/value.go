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

	"github.com/purpleidea/agt/grammar/interfaces"
	"github.com/purpleidea/agt/util/errwrap"
)

// FromValue converts an untyped literal into a template. It is the entry point
// for grammars written as Go literals, such as nested slices and maps.
//
// A string is a Ref, a slice is a sequence, and a map is a mapping. Sequences
// and mappings may contain at most one int, which becomes the sampled count.
// Mapping keys are sorted, since the order of a map is lost.
func FromValue(v interface{}) (Template, error) {
	switch x := v.(type) {
	case Template:
		return x, nil

	case interfaces.Node:
		return FromNode(x), nil

	case string:
		return Ref(x), nil

	case FactoryFunc:
		return Factory(x), nil

	case func(interfaces.Context) (Template, error):
		return Factory(x), nil

	case []interface{}:
		n := 0
		counted := false
		items := []Template{}
		for i, value := range x {
			if c, ok := value.(int); ok {
				if counted {
					return nil, errwrap.Wrapf(interfaces.ErrInvalidTemplate, "more than one count in sequence")
				}
				n, counted = c, true
				continue
			}
			t, err := FromValue(value)
			if err != nil {
				return nil, errwrap.Wrapf(err, "item %d", i)
			}
			items = append(items, t)
		}
		return SeqN(n, items...), nil

	case map[string]interface{}:
		return fromMap(x)

	case map[interface{}]interface{}: // what yaml decodes into
		m := make(map[string]interface{}, len(x))
		for k, value := range x {
			key, ok := k.(string)
			if !ok {
				return nil, errwrap.Wrapf(interfaces.ErrInvalidTemplate, "mapping key %v is a %T, not a string", k, k)
			}
			m[key] = value
		}
		return fromMap(m)
	}

	return nil, errwrap.Wrapf(interfaces.ErrInvalidTemplate, "can't build a template from a %T", v)
}

func fromMap(m map[string]interface{}) (Template, error) {
	keys := []string{}
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	n := 0
	counted := false
	entries := []Entry{}
	for _, k := range keys {
		if c, ok := m[k].(int); ok {
			if counted {
				return nil, errwrap.Wrapf(interfaces.ErrInvalidTemplate, "more than one count in mapping")
			}
			n, counted = c, true
			continue
		}
		t, err := FromValue(m[k])
		if err != nil {
			return nil, errwrap.Wrapf(err, "key `%s`", k)
		}
		entries = append(entries, Entry{Key: k, Template: t})
	}
	return MapN(n, entries...), nil
}

// MustValue is like FromValue, but it panics on error. It is meant for
// grammars which are written out in code.
func MustValue(v interface{}) Template {
	t, err := FromValue(v)
	if err != nil {
		panic(fmt.Sprintf("invalid template: %+v", err))
	}
	return t
}
