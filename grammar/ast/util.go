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

package ast

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/purpleidea/agt/grammar/interfaces"
	"github.com/purpleidea/agt/util/errwrap"
)

// Meta holds the fields which every non-lazy node has in common.
type Meta struct {
	// Key is the scope key that the node publishes itself under. It
	// defaults to the variant name when empty.
	Key string

	// Action is run when the node is visited during execution.
	Action interfaces.Action

	// Traversal is the execution order of this node and its children. The
	// default is PostOrder.
	Traversal interfaces.Traversal
}

// key returns the effective scope key.
func (obj *Meta) key(kind interfaces.Kind) string {
	if obj.Key == "" {
		return kind.String()
	}
	return obj.Key
}

// Option modifies the common fields of a node when it is built.
type Option func(*Meta)

// WithKey sets the scope key of the node.
func WithKey(key string) Option {
	return func(m *Meta) { m.Key = key }
}

// WithAction attaches an action to the node.
func WithAction(action interfaces.Action) Option {
	return func(m *Meta) { m.Action = action }
}

// WithTraversal sets the execution order of the node.
func WithTraversal(traversal interfaces.Traversal) Option {
	return func(m *Meta) { m.Traversal = traversal }
}

// meta gives access to the embedded common fields.
func (obj *Meta) meta() *Meta { return obj }

// Configure applies the options to an already built node and returns it. A
// lazy node only has a scope key, so it gets wrapped in a concatenation when
// it needs an action or a traversal.
func Configure(node interfaces.Node, opts ...Option) interfaces.Node {
	if len(opts) == 0 {
		return node
	}
	if lazy, ok := node.(*LazyNode); ok {
		m := newMeta(opts)
		if m.Action == nil && m.Traversal == nil {
			lazy.Key = m.Key
			return lazy
		}
		return &ConcatNode{Meta: m, Pool: []interfaces.Node{lazy}}
	}
	if x, ok := node.(interface{ meta() *Meta }); ok {
		m := x.meta()
		for _, opt := range opts {
			opt(m)
		}
	}
	return node
}

func newMeta(opts []Option) Meta {
	m := Meta{}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// PostOrder visits the children, in order, and then the node itself. This is
// the default traversal.
func PostOrder(self interfaces.Node, children []interfaces.Node) []interfaces.Node {
	order := make([]interfaces.Node, 0, len(children)+1)
	order = append(order, children...)
	return append(order, self)
}

// PreOrder visits the node itself before its children.
func PreOrder(self interfaces.Node, children []interfaces.Node) []interfaces.Node {
	order := make([]interfaces.Node, 0, len(children)+1)
	order = append(order, self)
	return append(order, children...)
}

// ensure makes sure we always have some data to pass down.
func ensure(data *interfaces.Data) *interfaces.Data {
	if data == nil {
		return &interfaces.Data{}
	}
	return data
}

// random returns the random source or an error if none was given.
func random(data *interfaces.Data) (*rand.Rand, error) {
	if data.Rand == nil {
		return nil, fmt.Errorf("no random source was given")
	}
	return data.Rand, nil
}

// copyNodes returns a fresh copy of each node in the list.
func copyNodes(nodes []interfaces.Node) []interfaces.Node {
	if nodes == nil {
		return nil
	}
	out := make([]interfaces.Node, 0, len(nodes))
	for _, x := range nodes {
		out = append(out, x.Copy())
	}
	return out
}

// copyNode is like Copy but it tolerates nil.
func copyNode(node interfaces.Node) interfaces.Node {
	if node == nil {
		return nil
	}
	return node.Copy()
}

// sample picks n distinct indices out of size, uniformly and without
// replacement, and returns them in increasing order. The pool must be strictly
// larger than the sample.
func sample(rnd *rand.Rand, size, n int) ([]int, error) {
	if n < 1 {
		return nil, errwrap.Wrapf(interfaces.ErrSampling, "count of %d must be positive", n)
	}
	if size <= n {
		return nil, errwrap.Wrapf(interfaces.ErrSampling, "pool of %d can't be sampled to %d", size, n)
	}
	indexes := rnd.Perm(size)[:n]
	sort.Ints(indexes)
	return indexes, nil
}

// generateAll generates each of the children in order against the in-flight
// scope. The updates of each child are merged into the scope before the next
// sibling runs. It returns the accumulated updates.
func generateAll(data *interfaces.Data, scope interfaces.Scope, children []interfaces.Node) (interfaces.Scope, error) {
	updates := interfaces.EmptyScope()
	for _, child := range children {
		u, err := child.Generate(data, scope)
		if err != nil {
			return nil, err
		}
		scope.Merge(u)
		updates.Merge(u)
	}
	return updates, nil
}

// freeze takes the snapshot of the in-flight scope for a node and publishes
// the node into both the snapshot and the updates.
func freeze(self interfaces.Node, scope, updates interfaces.Scope) interfaces.Scope {
	snapshot := scope.Copy()
	key := self.ScopeKey()
	snapshot[key] = self
	updates[key] = self
	return snapshot
}

// done reports a successful generation.
func done(data *interfaces.Data, kind interfaces.Kind) {
	if data.Stats != nil {
		data.Stats.Generated(kind)
	}
}

// fail wraps an error that originated in a node, and reports it.
func fail(data *interfaces.Data, self interfaces.Node, count int, err error) error {
	if data.Stats != nil {
		data.Stats.Failed(self.Kind())
	}
	return &interfaces.NodeError{
		Kind:     self.Kind(),
		ScopeKey: self.ScopeKey(),
		Count:    count,
		Err:      err,
	}
}

// execute runs the shared execution protocol of a node. The cumulative updates
// of earlier visited nodes are merged over a copy of each snapshot, so that
// the stored snapshot stays frozen.
func execute(self interfaces.Node, meta *Meta, snapshot interfaces.Scope, children []interfaces.Node, env interfaces.Env, updates interfaces.Scope, ctx interfaces.Context) (interfaces.Scope, error) {
	cumulative := interfaces.EmptyScope()
	cumulative.Merge(updates)

	traversal := meta.Traversal
	if traversal == nil {
		traversal = PostOrder
	}
	for _, node := range traversal(self, children) {
		if node != self {
			u, err := node.Execute(env, cumulative, ctx)
			if err != nil {
				return nil, err
			}
			cumulative.Merge(u)
			continue
		}

		if meta.Action == nil {
			continue // many nodes simply supply information
		}
		view := snapshot.Copy()
		view.Merge(cumulative)
		u, err := meta.Action(env, view, ctx)
		if err != nil {
			return nil, err // the action owns its errors
		}
		cumulative.Merge(u)
	}
	return cumulative, nil
}

// render concatenates the renders of the children.
func render(children []interfaces.Node) (string, error) {
	var b strings.Builder
	for _, child := range children {
		s, err := child.Render()
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// apply runs fn on each child tree and then on the node itself.
func apply(self interfaces.Node, children []interfaces.Node, fn func(interfaces.Node) error) error {
	for _, x := range children {
		if err := x.Apply(fn); err != nil {
			return err
		}
	}
	return fn(self)
}

// join returns the short representations of the nodes joined with sep.
func join(nodes []interfaces.Node, sep string) string {
	s := []string{}
	for _, x := range nodes {
		s = append(s, x.String())
	}
	return strings.Join(s, sep)
}
