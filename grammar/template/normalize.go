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
	"github.com/purpleidea/agt/grammar/ast"
	"github.com/purpleidea/agt/grammar/interfaces"
	"github.com/purpleidea/agt/util/errwrap"
)

// Option changes how a template gets normalized.
type Option func(*normalizer)

// WithRegistry sets the registry that Ref templates are resolved against.
func WithRegistry(registry *Registry) Option {
	return func(obj *normalizer) { obj.registry = registry }
}

// normalizer holds the state of one Normalize call.
type normalizer struct {
	registry *Registry

	// resolving is the set of registry values currently being normalized.
	// A reference back to one of them becomes a lazy node.
	resolving map[string]struct{}
}

// Normalize converts a template into its canonical node tree. The returned tree
// is a grammar, and it is never generated itself.
func Normalize(t Template, opts ...Option) (interfaces.Node, error) {
	obj := &normalizer{
		resolving: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(obj)
	}
	return obj.normalize(t)
}

func (obj *normalizer) normalize(t Template) (interfaces.Node, error) {
	switch x := t.(type) {
	case nil:
		return nil, errwrap.Wrapf(interfaces.ErrInvalidTemplate, "nil template")

	case nodeTemplate:
		if x.node == nil {
			return nil, errwrap.Wrapf(interfaces.ErrInvalidTemplate, "nil node")
		}
		return x.node.Copy(), nil

	case strTemplate:
		return ast.NewString(x.value), nil

	case refTemplate:
		return obj.ref(x.name)

	case factoryTemplate:
		return obj.lazy(x.name, x.fn), nil

	case setTemplate:
		nodes, err := obj.all(x.items)
		if err != nil {
			return nil, err
		}
		switch len(nodes) {
		case 0:
			return nil, errwrap.Wrapf(interfaces.ErrInvalidTemplate, "empty set")
		case 1:
			return nodes[0], nil
		}
		return ast.NewUnion(nodes), nil

	case seqTemplate:
		return obj.seq(x.n, x.items)

	case mapTemplate:
		if x.n < 0 {
			return nil, errwrap.Wrapf(interfaces.ErrInvalidTemplate, "negative count of %d", x.n)
		}
		seen := make(map[string]struct{})
		nodes := []interfaces.Node{}
		for _, entry := range x.entries {
			if entry.Key == "" {
				return nil, errwrap.Wrapf(interfaces.ErrInvalidTemplate, "empty mapping key")
			}
			if _, exists := seen[entry.Key]; exists {
				return nil, errwrap.Wrapf(interfaces.ErrInvalidTemplate, "duplicate mapping key `%s`", entry.Key)
			}
			seen[entry.Key] = struct{}{}
			node, err := obj.normalize(entry.Template)
			if err != nil {
				return nil, errwrap.Wrapf(err, "mapping key `%s`", entry.Key)
			}
			node.SetScopeKey(entry.Key)
			nodes = append(nodes, node)
		}
		if x.n > 0 {
			return ast.NewConcatN(x.n, nodes), nil
		}
		return ast.NewConcat(nodes), nil

	case listTemplate:
		nodes, err := obj.all(x.items)
		if err != nil {
			return nil, err
		}
		switch len(nodes) {
		case 0:
			return ast.NewEmpty(), nil
		case 1:
			return nodes[0], nil
		}
		return ast.NewOptional(ast.NewConcat(nodes)), nil

	case iterTemplate:
		if x.seq == nil {
			return nil, errwrap.Wrapf(interfaces.ErrInvalidTemplate, "nil iterator")
		}
		items := []Template{}
		for item := range x.seq {
			if len(items) == MaxIterItems {
				return nil, errwrap.Wrapf(interfaces.ErrInvalidTemplate, "iterator has more than %d items", MaxIterItems)
			}
			items = append(items, item)
		}
		return obj.seq(0, items)

	case optionalTemplate:
		item, err := obj.normalize(x.item)
		if err != nil {
			return nil, err
		}
		return ast.NewOptional(item), nil

	case repeatTemplate:
		item, err := obj.normalize(x.opts.Item)
		if err != nil {
			return nil, errwrap.Wrapf(err, "repeat item")
		}
		sep, err := obj.optional(x.opts.Sep)
		if err != nil {
			return nil, errwrap.Wrapf(err, "repeat separator")
		}
		lastSep, err := obj.optional(x.opts.LastSep)
		if err != nil {
			return nil, errwrap.Wrapf(err, "repeat last separator")
		}
		if x.opts.Max > 0 && x.opts.Max < x.opts.Min {
			return nil, errwrap.Wrapf(interfaces.ErrInvalidTemplate, "max count of %d is below min count of %d", x.opts.Max, x.opts.Min)
		}
		node := ast.NewRepeat(item, sep, lastSep)
		if x.opts.Count != nil {
			count := *x.opts.Count
			node.Count = &count
		}
		node.Rate = x.opts.Rate
		node.Min = x.opts.Min
		node.Max = x.opts.Max
		return node, nil

	case excludeTemplate:
		lhs, err := obj.normalize(x.opts.Lhs)
		if err != nil {
			return nil, errwrap.Wrapf(err, "exclude lhs")
		}
		rhs, err := obj.normalize(x.opts.Rhs)
		if err != nil {
			return nil, errwrap.Wrapf(err, "exclude rhs")
		}
		node := ast.NewExclude(lhs, rhs)
		node.Attempts = x.opts.Attempts
		node.Policy = x.opts.Policy
		return node, nil

	case withTemplate:
		node, err := obj.normalize(x.inner)
		if err != nil {
			return nil, err
		}
		return ast.Configure(node, x.opts...), nil
	}

	return nil, errwrap.Wrapf(interfaces.ErrInvalidTemplate, "unknown template type %T", t)
}

// all normalizes each of the templates in order.
func (obj *normalizer) all(items []Template) ([]interfaces.Node, error) {
	nodes := []interfaces.Node{}
	for i, item := range items {
		node, err := obj.normalize(item)
		if err != nil {
			return nil, errwrap.Wrapf(err, "item %d", i)
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// optional normalizes a template which is allowed to be missing.
func (obj *normalizer) optional(t Template) (interfaces.Node, error) {
	if t == nil {
		return nil, nil
	}
	return obj.normalize(t)
}

func (obj *normalizer) seq(n int, items []Template) (interfaces.Node, error) {
	if n < 0 {
		return nil, errwrap.Wrapf(interfaces.ErrInvalidTemplate, "negative count of %d", n)
	}
	nodes, err := obj.all(items)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return ast.NewConcatN(n, nodes), nil
	}
	return ast.NewConcat(nodes), nil
}

// ref resolves a lazy variable. Names that aren't registered are literal text.
func (obj *normalizer) ref(name string) (interfaces.Node, error) {
	if obj.registry == nil {
		return ast.NewString(name), nil
	}
	t, exists := obj.registry.Lookup(name)
	if !exists {
		return ast.NewString(name), nil
	}
	if f, ok := t.(factoryTemplate); ok {
		return obj.lazy(f.name, f.fn), nil
	}

	// a value which refers back to itself
	if _, exists := obj.resolving[name]; exists {
		return obj.lazy(name, func(interfaces.Context) (Template, error) { return t, nil }), nil
	}
	obj.resolving[name] = struct{}{}
	defer delete(obj.resolving, name)
	node, err := obj.normalize(t)
	if err != nil {
		return nil, errwrap.Wrapf(err, "reference `%s`", name)
	}
	return node, nil
}

// lazy builds a lazy node which calls the factory and normalizes its result
// with the same registry.
func (obj *normalizer) lazy(name string, fn FactoryFunc) interfaces.Node {
	registry := obj.registry
	return ast.NewLazy(name, func(ctx interfaces.Context) (interfaces.Node, error) {
		t, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return Normalize(t, WithRegistry(registry))
	})
}
