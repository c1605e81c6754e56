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

// Package template contains the grammar template literals and the normalizer
// which turns them into a canonical tree of grammar nodes.
package template

import (
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/purpleidea/agt/grammar/ast"
	"github.com/purpleidea/agt/grammar/interfaces"
)

// MaxIterItems is the maximum number of templates that are read out of an
// iterator before normalization gives up.
const MaxIterItems = 10000

// Template is a grammar literal which has not been normalized yet. The set of
// templates is closed, and each one is built with one of the constructors in
// this package.
type Template interface {
	template()
}

// FactoryFunc builds a template on demand. It receives the keyword context of
// the generation that needs it.
type FactoryFunc func(ctx interfaces.Context) (Template, error)

// Entry is a named member of a mapping template.
type Entry struct {
	Key      string
	Template Template
}

// RepeatOpts describes a repeat template. See ast.RepeatNode for the meaning
// of each field.
type RepeatOpts struct {
	Item    Template
	Sep     Template
	LastSep Template

	Count *int
	Rate  float64
	Min   int
	Max   int
}

// ExcludeOpts describes an exclude template. See ast.ExcludeNode for the
// meaning of each field.
type ExcludeOpts struct {
	Lhs Template
	Rhs Template

	Attempts int
	Policy   ast.ExcludePolicy
}

type nodeTemplate struct{ node interfaces.Node }
type strTemplate struct{ value string }
type refTemplate struct{ name string }
type factoryTemplate struct {
	name string
	fn   FactoryFunc
}
type setTemplate struct{ items []Template }
type seqTemplate struct {
	n     int
	items []Template
}
type mapTemplate struct {
	n       int
	entries []Entry
}
type listTemplate struct{ items []Template }
type iterTemplate struct{ seq iter.Seq[Template] }
type optionalTemplate struct{ item Template }
type repeatTemplate struct{ opts RepeatOpts }
type excludeTemplate struct{ opts ExcludeOpts }
type withTemplate struct {
	inner Template
	opts  []ast.Option
}

func (nodeTemplate) template()     {}
func (strTemplate) template()      {}
func (refTemplate) template()      {}
func (factoryTemplate) template()  {}
func (setTemplate) template()      {}
func (seqTemplate) template()      {}
func (mapTemplate) template()      {}
func (listTemplate) template()     {}
func (iterTemplate) template()     {}
func (optionalTemplate) template() {}
func (repeatTemplate) template()   {}
func (excludeTemplate) template()  {}
func (withTemplate) template()     {}

// factories counts anonymous factories so that each one gets a unique name.
var factories uint64

// FromNode wraps an already built node. The normalized result is a copy.
func FromNode(node interfaces.Node) Template { return nodeTemplate{node: node} }

// Str is literal text.
func Str(value string) Template { return strTemplate{value: value} }

// Ref is a lazy variable. It resolves to a registered factory or value of that
// name, and otherwise it is literal text.
func Ref(name string) Template { return refTemplate{name: name} }

// Factory is a template that is built on demand during generation. This is how
// recursive grammars are expressed.
func Factory(fn FactoryFunc) Template {
	n := atomic.AddUint64(&factories, 1)
	return factoryTemplate{name: fmt.Sprintf("factory%d", n), fn: fn}
}

// NamedFactory is like Factory, but the name is chosen by the caller. Two lazy
// references with the same name match each other.
func NamedFactory(name string, fn FactoryFunc) Template {
	return factoryTemplate{name: name, fn: fn}
}

// Set is a choice of exactly one of the items.
func Set(items ...Template) Template { return setTemplate{items: items} }

// Seq is the concatenation of all the items.
func Seq(items ...Template) Template { return seqTemplate{items: items} }

// SeqN is the concatenation of n items sampled out of the given ones.
func SeqN(n int, items ...Template) Template { return seqTemplate{n: n, items: items} }

// Map is the concatenation of all the entries, where each entry publishes
// itself under its key.
func Map(entries ...Entry) Template { return mapTemplate{entries: entries} }

// MapN is like Map, but only n of the entries are sampled.
func MapN(n int, entries ...Entry) Template { return mapTemplate{n: n, entries: entries} }

// List is optional content. An empty list is the empty leaf, a single item is
// the item itself, and more items are an optional concatenation.
func List(items ...Template) Template { return listTemplate{items: items} }

// Iter reads the templates out of the iterator, and then behaves as Seq.
func Iter(seq iter.Seq[Template]) Template { return iterTemplate{seq: seq} }

// Optional is either the empty leaf or the item.
func Optional(item Template) Template { return optionalTemplate{item: item} }

// Repeat repeats an item with separators.
func Repeat(opts RepeatOpts) Template { return repeatTemplate{opts: opts} }

// Exclude generates the lhs until it doesn't match the rhs.
func Exclude(opts ExcludeOpts) Template { return excludeTemplate{opts: opts} }

// With applies node options such as a scope key or an action to the node
// which the template normalizes to.
func With(t Template, opts ...ast.Option) Template { return withTemplate{inner: t, opts: opts} }
