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

// Package interfaces contains the common interfaces and types which are shared
// by the grammar packages.
package interfaces

import (
	"math/rand"
)

// Kind identifies the variant of a grammar node.
type Kind int

const (
	// KindString is a literal text leaf.
	KindString Kind = iota
	// KindEmpty is the empty leaf.
	KindEmpty
	// KindConcat is a sequence, optionally sampled down to N items.
	KindConcat
	// KindRepeat repeats an item with separators between occurrences.
	KindRepeat
	// KindUnion picks exactly one of its candidates.
	KindUnion
	// KindOptional is a union between the empty leaf and one item.
	KindOptional
	// KindExclude regenerates its lhs until it fails to match its rhs.
	KindExclude
	// KindLazy is a deferred reference which resolves during generation.
	KindLazy
)

// String returns the variant type name. This is also the default scope key of
// a node.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindEmpty:
		return "Empty"
	case KindConcat:
		return "Concat"
	case KindRepeat:
		return "Repeat"
	case KindUnion:
		return "Union"
	case KindOptional:
		return "Optional"
	case KindExclude:
		return "Exclude"
	case KindLazy:
		return "Lazy"
	}
	return "Unknown"
}

// Node represents a grammar node. The same type is used for the grammar itself
// and for its generated instances (derivations). A grammar node is never
// generated directly, instead a Copy of it is generated, which leaves the
// grammar untouched and able to produce many independent derivations.
type Node interface {
	// String returns a short representation of this node for diagnostics.
	String() string

	// Kind returns the variant of this node.
	Kind() Kind

	// ScopeKey is the key under which this node publishes itself into the
	// scope when it gets generated.
	ScopeKey() string

	// SetScopeKey changes the scope key. It is used by the normalizer when
	// building named children.
	SetScopeKey(string)

	// Copy returns a fresh, ungenerated, deep copy of this node.
	Copy() Node

	// Generate resolves the concrete children of this node, generates them
	// in order against the in-flight scope, freezes a snapshot of the
	// scope, and returns the accumulated scope updates. A nil scope is
	// replaced by a new empty one.
	Generate(data *Data, scope Scope) (Scope, error)

	// Generated returns true once Generate has succeeded on this node.
	Generated() bool

	// Children returns the generated children of this node. It is nil
	// before generation.
	Children() []Node

	// Scope returns the frozen scope snapshot taken during generation.
	Scope() Scope

	// Render returns the string that this derivation represents.
	Render() (string, error)

	// Execute runs the actions of this derivation in traversal order,
	// threading the scope updates through, and returns all the updates
	// accumulated so far.
	Execute(env Env, updates Scope, ctx Context) (Scope, error)

	// Apply is a general purpose iterator which runs fn on every generated
	// node of the tree, children before parents.
	Apply(fn func(Node) error) error
}

// Traversal returns the order in which a node and its children are visited
// during execution. The self node must appear in the returned list for its own
// action to run.
type Traversal func(self Node, children []Node) []Node

// Stats is an optional sink for engine events. It is usually backed by the
// prometheus metrics package.
type Stats interface {
	// Generated is called each time a node finishes generating.
	Generated(kind Kind)

	// ExcludeRetry is called for each rejected exclude attempt.
	ExcludeRetry()

	// Failed is called when a node fails to generate.
	Failed(kind Kind)
}

// Data is the set of values which get passed down through generation. A
// single Data is meant for one top-level generation call at a time.
type Data struct {
	// Rand is the only source of randomness used by the engine. Tests can
	// seed it to force determinism.
	Rand *rand.Rand

	// Context is the keyword context given to lazy factories.
	Context Context

	// MaxDepth bounds the nesting of lazy references. Zero means the
	// default is used.
	MaxDepth int

	// ExcludeLimit caps the attempts of exclude nodes with an unbounded
	// retry budget. Zero means the default is used.
	ExcludeLimit int

	// Stats receives engine events if it is not nil.
	Stats Stats

	// Debug enables additional log messages.
	Debug bool

	// Logf is the logger to use.
	Logf func(format string, v ...interface{})

	// depth is the current lazy nesting depth.
	depth int
}

// Enter records that a lazy reference is being resolved. It returns false if
// doing so would exceed the depth limit.
func (obj *Data) Enter() bool {
	max := obj.MaxDepth
	if max <= 0 {
		max = DefaultMaxDepth
	}
	if obj.depth >= max {
		return false
	}
	obj.depth++
	return true
}

// Leave is the counterpart to Enter.
func (obj *Data) Leave() {
	if obj.depth > 0 {
		obj.depth--
	}
}

// Depth returns the current lazy nesting depth.
func (obj *Data) Depth() int { return obj.depth }

// Limit returns the effective unbounded exclude attempt limit.
func (obj *Data) Limit() int {
	if obj.ExcludeLimit <= 0 {
		return DefaultExcludeLimit
	}
	return obj.ExcludeLimit
}

// Log logs through Logf if it is set.
func (obj *Data) Log(format string, v ...interface{}) {
	if obj == nil || obj.Logf == nil {
		return
	}
	obj.Logf(format, v...)
}
