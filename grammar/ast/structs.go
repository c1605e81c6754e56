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

// Package ast contains the grammar node variants and the generation, render,
// execution and matching algorithms which operate on them.
package ast

import (
	"fmt"
	"strconv"

	"github.com/purpleidea/agt/grammar/interfaces"
	"github.com/purpleidea/agt/util/errwrap"
)

// ExcludePolicy decides what an exclude node does when its bounded retry
// budget runs out.
type ExcludePolicy int

const (
	// PolicyFallback accepts the last attempt, even though it still
	// matches the excluded rhs.
	PolicyFallback ExcludePolicy = iota

	// PolicyStrict fails with a non-terminating grammar error.
	PolicyStrict
)

// String returns the name of the policy.
func (p ExcludePolicy) String() string {
	if p == PolicyStrict {
		return "strict"
	}
	return "fallback"
}

// StringNode is a literal text leaf.
type StringNode struct {
	Meta

	Value string

	scope     interfaces.Scope
	generated bool
}

// NewString builds a new literal text leaf.
func NewString(value string, opts ...Option) *StringNode {
	return &StringNode{Meta: newMeta(opts), Value: value}
}

// String returns a short representation of this node.
func (obj *StringNode) String() string { return fmt.Sprintf("str(%s)", strconv.Quote(obj.Value)) }

// Kind returns the variant of this node.
func (obj *StringNode) Kind() interfaces.Kind { return interfaces.KindString }

// ScopeKey returns the key this node publishes itself under.
func (obj *StringNode) ScopeKey() string { return obj.Meta.key(obj.Kind()) }

// SetScopeKey changes the scope key.
func (obj *StringNode) SetScopeKey(key string) { obj.Meta.Key = key }

// Copy returns a fresh, ungenerated copy of this node.
func (obj *StringNode) Copy() interfaces.Node {
	return &StringNode{Meta: obj.Meta, Value: obj.Value}
}

// Generate freezes the scope and publishes this node. A leaf has no children.
func (obj *StringNode) Generate(data *interfaces.Data, scope interfaces.Scope) (interfaces.Scope, error) {
	data = ensure(data)
	if scope == nil {
		scope = interfaces.EmptyScope()
	}
	updates := interfaces.EmptyScope()
	obj.scope = freeze(obj, scope, updates)
	obj.generated = true
	done(data, obj.Kind())
	return updates, nil
}

// Generated returns true once this node was generated.
func (obj *StringNode) Generated() bool { return obj.generated }

// Children returns nil since this is a leaf.
func (obj *StringNode) Children() []interfaces.Node { return nil }

// Scope returns the frozen scope snapshot.
func (obj *StringNode) Scope() interfaces.Scope { return obj.scope }

// Render returns the literal text.
func (obj *StringNode) Render() (string, error) {
	if !obj.generated {
		return "", interfaces.ErrNotGenerated
	}
	return obj.Value, nil
}

// Execute runs the action of this node, if any.
func (obj *StringNode) Execute(env interfaces.Env, updates interfaces.Scope, ctx interfaces.Context) (interfaces.Scope, error) {
	if !obj.generated {
		return nil, interfaces.ErrNotGenerated
	}
	return execute(obj, &obj.Meta, obj.scope, nil, env, updates, ctx)
}

// Apply runs fn on this node.
func (obj *StringNode) Apply(fn func(interfaces.Node) error) error { return fn(obj) }

// EmptyNode is the empty leaf. It is useful for optional nodes, for setting
// scope values and for attaching actions that render nothing.
type EmptyNode struct {
	Meta

	scope     interfaces.Scope
	generated bool
}

// NewEmpty builds a new empty leaf.
func NewEmpty(opts ...Option) *EmptyNode {
	return &EmptyNode{Meta: newMeta(opts)}
}

// String returns a short representation of this node.
func (obj *EmptyNode) String() string { return "empty" }

// Kind returns the variant of this node.
func (obj *EmptyNode) Kind() interfaces.Kind { return interfaces.KindEmpty }

// ScopeKey returns the key this node publishes itself under.
func (obj *EmptyNode) ScopeKey() string { return obj.Meta.key(obj.Kind()) }

// SetScopeKey changes the scope key.
func (obj *EmptyNode) SetScopeKey(key string) { obj.Meta.Key = key }

// Copy returns a fresh, ungenerated copy of this node.
func (obj *EmptyNode) Copy() interfaces.Node {
	return &EmptyNode{Meta: obj.Meta}
}

// Generate freezes the scope and publishes this node.
func (obj *EmptyNode) Generate(data *interfaces.Data, scope interfaces.Scope) (interfaces.Scope, error) {
	data = ensure(data)
	if scope == nil {
		scope = interfaces.EmptyScope()
	}
	updates := interfaces.EmptyScope()
	obj.scope = freeze(obj, scope, updates)
	obj.generated = true
	done(data, obj.Kind())
	return updates, nil
}

// Generated returns true once this node was generated.
func (obj *EmptyNode) Generated() bool { return obj.generated }

// Children returns nil since this is a leaf.
func (obj *EmptyNode) Children() []interfaces.Node { return nil }

// Scope returns the frozen scope snapshot.
func (obj *EmptyNode) Scope() interfaces.Scope { return obj.scope }

// Render returns the empty string.
func (obj *EmptyNode) Render() (string, error) {
	if !obj.generated {
		return "", interfaces.ErrNotGenerated
	}
	return "", nil
}

// Execute runs the action of this node, if any.
func (obj *EmptyNode) Execute(env interfaces.Env, updates interfaces.Scope, ctx interfaces.Context) (interfaces.Scope, error) {
	if !obj.generated {
		return nil, interfaces.ErrNotGenerated
	}
	return execute(obj, &obj.Meta, obj.scope, nil, env, updates, ctx)
}

// Apply runs fn on this node.
func (obj *EmptyNode) Apply(fn func(interfaces.Node) error) error { return fn(obj) }

// ConcatNode concatenates its children. If N is positive, then only N of the
// candidates in the pool are used, sampled without replacement and kept in
// their original relative order.
type ConcatNode struct {
	Meta

	// Pool is the list of candidate children.
	Pool []interfaces.Node

	// N is the number of candidates to sample. Zero means all of them.
	N int

	indexes   []int
	children  []interfaces.Node
	scope     interfaces.Scope
	generated bool
}

// NewConcat builds a concatenation of every node in the pool.
func NewConcat(pool []interfaces.Node, opts ...Option) *ConcatNode {
	return &ConcatNode{Meta: newMeta(opts), Pool: pool}
}

// NewConcatN builds a concatenation of n nodes sampled from the pool.
func NewConcatN(n int, pool []interfaces.Node, opts ...Option) *ConcatNode {
	return &ConcatNode{Meta: newMeta(opts), Pool: pool, N: n}
}

// String returns a short representation of this node.
func (obj *ConcatNode) String() string {
	if obj.N > 0 {
		return fmt.Sprintf("concat[%d](%s)", obj.N, join(obj.Pool, ", "))
	}
	return fmt.Sprintf("concat(%s)", join(obj.Pool, ", "))
}

// Kind returns the variant of this node.
func (obj *ConcatNode) Kind() interfaces.Kind { return interfaces.KindConcat }

// ScopeKey returns the key this node publishes itself under.
func (obj *ConcatNode) ScopeKey() string { return obj.Meta.key(obj.Kind()) }

// SetScopeKey changes the scope key.
func (obj *ConcatNode) SetScopeKey(key string) { obj.Meta.Key = key }

// Copy returns a fresh, ungenerated copy of this node and its pool.
func (obj *ConcatNode) Copy() interfaces.Node {
	return &ConcatNode{
		Meta: obj.Meta,
		Pool: copyNodes(obj.Pool),
		N:    obj.N,
	}
}

// Generate picks the children out of the pool and generates them in order.
func (obj *ConcatNode) Generate(data *interfaces.Data, scope interfaces.Scope) (interfaces.Scope, error) {
	data = ensure(data)
	if scope == nil {
		scope = interfaces.EmptyScope()
	}

	var indexes []int
	if obj.N == 0 {
		for i := range obj.Pool {
			indexes = append(indexes, i)
		}
	} else {
		rnd, err := random(data)
		if err != nil {
			return nil, fail(data, obj, obj.N, err)
		}
		if indexes, err = sample(rnd, len(obj.Pool), obj.N); err != nil {
			return nil, fail(data, obj, obj.N, err)
		}
	}

	children := []interfaces.Node{}
	for _, i := range indexes {
		children = append(children, obj.Pool[i].Copy())
	}
	updates, err := generateAll(data, scope, children)
	if err != nil {
		return nil, err
	}

	obj.indexes = indexes
	obj.children = children
	obj.scope = freeze(obj, scope, updates)
	obj.generated = true
	done(data, obj.Kind())
	return updates, nil
}

// Indexes returns the pool indexes which were chosen during generation.
func (obj *ConcatNode) Indexes() []int { return obj.indexes }

// Generated returns true once this node was generated.
func (obj *ConcatNode) Generated() bool { return obj.generated }

// Children returns the generated children.
func (obj *ConcatNode) Children() []interfaces.Node { return obj.children }

// Scope returns the frozen scope snapshot.
func (obj *ConcatNode) Scope() interfaces.Scope { return obj.scope }

// Render returns the concatenation of the renders of the children.
func (obj *ConcatNode) Render() (string, error) {
	if !obj.generated {
		return "", interfaces.ErrNotGenerated
	}
	return render(obj.children)
}

// Execute runs the actions of this node and its children in traversal order.
func (obj *ConcatNode) Execute(env interfaces.Env, updates interfaces.Scope, ctx interfaces.Context) (interfaces.Scope, error) {
	if !obj.generated {
		return nil, interfaces.ErrNotGenerated
	}
	return execute(obj, &obj.Meta, obj.scope, obj.children, env, updates, ctx)
}

// Apply runs fn on each generated child tree and then on this node.
func (obj *ConcatNode) Apply(fn func(interfaces.Node) error) error {
	return apply(obj, obj.children, fn)
}

// RepeatNode repeats an item a number of times, with separators between each
// occurrence. The repetition count is either fixed, or sampled from an
// exponential distribution and then clamped to the min and max bounds.
type RepeatNode struct {
	Meta

	Item interfaces.Node

	// Sep goes between occurrences. It may be nil.
	Sep interfaces.Node

	// LastSep goes between the last two occurrences instead of Sep. It
	// may be nil, in which case Sep is used there too.
	LastSep interfaces.Node

	// Count is a fixed repetition count. If it's nil, the count is
	// sampled.
	Count *int

	// Rate is the rate parameter of the exponential distribution. The
	// mean count is 1 / Rate. Zero means DefaultRate.
	Rate float64

	// Min is the minimum sampled count.
	Min int

	// Max is the maximum sampled count. Zero means there is no bound.
	Max int

	count     int
	children  []interfaces.Node
	scope     interfaces.Scope
	generated bool
}

// NewRepeat builds a repetition of item, with optional separators.
func NewRepeat(item, sep, lastSep interfaces.Node, opts ...Option) *RepeatNode {
	return &RepeatNode{
		Meta:    newMeta(opts),
		Item:    item,
		Sep:     sep,
		LastSep: lastSep,
	}
}

// String returns a short representation of this node.
func (obj *RepeatNode) String() string {
	sep, last := "nil", "nil"
	if obj.Sep != nil {
		sep = obj.Sep.String()
	}
	if obj.LastSep != nil {
		last = obj.LastSep.String()
	}
	return fmt.Sprintf("repeat(%s, %s, %s)", obj.Item, sep, last)
}

// Kind returns the variant of this node.
func (obj *RepeatNode) Kind() interfaces.Kind { return interfaces.KindRepeat }

// ScopeKey returns the key this node publishes itself under.
func (obj *RepeatNode) ScopeKey() string { return obj.Meta.key(obj.Kind()) }

// SetScopeKey changes the scope key.
func (obj *RepeatNode) SetScopeKey(key string) { obj.Meta.Key = key }

// Copy returns a fresh, ungenerated copy of this node.
func (obj *RepeatNode) Copy() interfaces.Node {
	var count *int
	if obj.Count != nil {
		c := *obj.Count
		count = &c
	}
	return &RepeatNode{
		Meta:    obj.Meta,
		Item:    copyNode(obj.Item),
		Sep:     copyNode(obj.Sep),
		LastSep: copyNode(obj.LastSep),
		Count:   count,
		Rate:    obj.Rate,
		Min:     obj.Min,
		Max:     obj.Max,
	}
}

// repetitions returns the number of occurrences to build.
func (obj *RepeatNode) repetitions(data *interfaces.Data) (int, error) {
	if obj.Count != nil {
		if *obj.Count < 0 {
			return 0, errwrap.Wrapf(interfaces.ErrInvalidTemplate, "negative repeat count of %d", *obj.Count)
		}
		return *obj.Count, nil
	}
	if obj.Max > 0 && obj.Max < obj.Min {
		return 0, errwrap.Wrapf(interfaces.ErrInvalidTemplate, "max count of %d is below min count of %d", obj.Max, obj.Min)
	}
	rnd, err := random(data)
	if err != nil {
		return 0, err
	}
	rate := obj.Rate
	if rate <= 0 {
		rate = interfaces.DefaultRate
	}
	count := int(rnd.ExpFloat64() / rate)
	if count < obj.Min {
		count = obj.Min
	}
	if obj.Max > 0 && count > obj.Max {
		count = obj.Max
	}
	return count, nil
}

// sequence builds the list of fresh items and separators for count
// occurrences. Separators only go strictly between occurrences, and the final
// gap uses LastSep when it's set.
func (obj *RepeatNode) sequence(count int) []interfaces.Node {
	children := []interfaces.Node{}
	for i := 0; i < count; i++ {
		children = append(children, obj.Item.Copy())
		if i == count-1 {
			break
		}
		sep := obj.Sep
		if i == count-2 && obj.LastSep != nil {
			sep = obj.LastSep
		}
		if sep != nil {
			children = append(children, sep.Copy())
		}
	}
	return children
}

// Generate picks the repetition count, builds the sequence and generates it.
func (obj *RepeatNode) Generate(data *interfaces.Data, scope interfaces.Scope) (interfaces.Scope, error) {
	data = ensure(data)
	if scope == nil {
		scope = interfaces.EmptyScope()
	}
	if obj.Item == nil {
		return nil, fail(data, obj, 0, errwrap.Wrapf(interfaces.ErrInvalidTemplate, "repeat has no item"))
	}

	count, err := obj.repetitions(data)
	if err != nil {
		return nil, fail(data, obj, count, err)
	}
	children := obj.sequence(count)
	updates, err := generateAll(data, scope, children)
	if err != nil {
		return nil, err
	}

	obj.count = count
	obj.children = children
	obj.scope = freeze(obj, scope, updates)
	obj.generated = true
	done(data, obj.Kind())
	return updates, nil
}

// Repetitions returns the number of occurrences that were generated.
func (obj *RepeatNode) Repetitions() int { return obj.count }

// Generated returns true once this node was generated.
func (obj *RepeatNode) Generated() bool { return obj.generated }

// Children returns the generated items and separators.
func (obj *RepeatNode) Children() []interfaces.Node { return obj.children }

// Scope returns the frozen scope snapshot.
func (obj *RepeatNode) Scope() interfaces.Scope { return obj.scope }

// Render returns the concatenation of the renders of the children.
func (obj *RepeatNode) Render() (string, error) {
	if !obj.generated {
		return "", interfaces.ErrNotGenerated
	}
	return render(obj.children)
}

// Execute runs the actions of this node and its children in traversal order.
func (obj *RepeatNode) Execute(env interfaces.Env, updates interfaces.Scope, ctx interfaces.Context) (interfaces.Scope, error) {
	if !obj.generated {
		return nil, interfaces.ErrNotGenerated
	}
	return execute(obj, &obj.Meta, obj.scope, obj.children, env, updates, ctx)
}

// Apply runs fn on each generated child tree and then on this node.
func (obj *RepeatNode) Apply(fn func(interfaces.Node) error) error {
	return apply(obj, obj.children, fn)
}

// UnionNode picks exactly one of its candidates, uniformly at random. It is
// the same as a concatenation with a count of one.
type UnionNode struct {
	Meta

	Pool []interfaces.Node

	index     int
	children  []interfaces.Node
	scope     interfaces.Scope
	generated bool
}

// NewUnion builds a union of the candidates in the pool.
func NewUnion(pool []interfaces.Node, opts ...Option) *UnionNode {
	return &UnionNode{Meta: newMeta(opts), Pool: pool}
}

// String returns a short representation of this node.
func (obj *UnionNode) String() string {
	return fmt.Sprintf("union(%s)", join(obj.Pool, " | "))
}

// Kind returns the variant of this node.
func (obj *UnionNode) Kind() interfaces.Kind { return interfaces.KindUnion }

// ScopeKey returns the key this node publishes itself under.
func (obj *UnionNode) ScopeKey() string { return obj.Meta.key(obj.Kind()) }

// SetScopeKey changes the scope key.
func (obj *UnionNode) SetScopeKey(key string) { obj.Meta.Key = key }

// Copy returns a fresh, ungenerated copy of this node and its pool.
func (obj *UnionNode) Copy() interfaces.Node {
	return &UnionNode{Meta: obj.Meta, Pool: copyNodes(obj.Pool)}
}

// Generate chooses one candidate and generates it.
func (obj *UnionNode) Generate(data *interfaces.Data, scope interfaces.Scope) (interfaces.Scope, error) {
	data = ensure(data)
	if scope == nil {
		scope = interfaces.EmptyScope()
	}
	rnd, err := random(data)
	if err != nil {
		return nil, fail(data, obj, 1, err)
	}
	indexes, err := sample(rnd, len(obj.Pool), 1)
	if err != nil {
		return nil, fail(data, obj, 1, err)
	}

	index := indexes[0]
	children := []interfaces.Node{obj.Pool[index].Copy()}
	updates, err := generateAll(data, scope, children)
	if err != nil {
		return nil, err
	}

	obj.index = index
	obj.children = children
	obj.scope = freeze(obj, scope, updates)
	obj.generated = true
	done(data, obj.Kind())
	return updates, nil
}

// Index returns the pool index of the chosen candidate.
func (obj *UnionNode) Index() int { return obj.index }

// Generated returns true once this node was generated.
func (obj *UnionNode) Generated() bool { return obj.generated }

// Children returns the single chosen child.
func (obj *UnionNode) Children() []interfaces.Node { return obj.children }

// Scope returns the frozen scope snapshot.
func (obj *UnionNode) Scope() interfaces.Scope { return obj.scope }

// Render returns the render of the chosen child.
func (obj *UnionNode) Render() (string, error) {
	if !obj.generated {
		return "", interfaces.ErrNotGenerated
	}
	return render(obj.children)
}

// Execute runs the actions of this node and its child in traversal order.
func (obj *UnionNode) Execute(env interfaces.Env, updates interfaces.Scope, ctx interfaces.Context) (interfaces.Scope, error) {
	if !obj.generated {
		return nil, interfaces.ErrNotGenerated
	}
	return execute(obj, &obj.Meta, obj.scope, obj.children, env, updates, ctx)
}

// Apply runs fn on the chosen child tree and then on this node.
func (obj *UnionNode) Apply(fn func(interfaces.Node) error) error {
	return apply(obj, obj.children, fn)
}

// OptionalNode is a union between the empty leaf and an item.
type OptionalNode struct {
	Meta

	Item interfaces.Node

	chosen    bool // did we pick the item?
	children  []interfaces.Node
	scope     interfaces.Scope
	generated bool
}

// NewOptional builds an optional item.
func NewOptional(item interfaces.Node, opts ...Option) *OptionalNode {
	return &OptionalNode{Meta: newMeta(opts), Item: item}
}

// String returns a short representation of this node.
func (obj *OptionalNode) String() string { return fmt.Sprintf("optional(%s)", obj.Item) }

// Kind returns the variant of this node.
func (obj *OptionalNode) Kind() interfaces.Kind { return interfaces.KindOptional }

// ScopeKey returns the key this node publishes itself under.
func (obj *OptionalNode) ScopeKey() string { return obj.Meta.key(obj.Kind()) }

// SetScopeKey changes the scope key.
func (obj *OptionalNode) SetScopeKey(key string) { obj.Meta.Key = key }

// Copy returns a fresh, ungenerated copy of this node.
func (obj *OptionalNode) Copy() interfaces.Node {
	return &OptionalNode{Meta: obj.Meta, Item: copyNode(obj.Item)}
}

// Generate picks either the empty leaf or the item, and generates it.
func (obj *OptionalNode) Generate(data *interfaces.Data, scope interfaces.Scope) (interfaces.Scope, error) {
	data = ensure(data)
	if scope == nil {
		scope = interfaces.EmptyScope()
	}
	if obj.Item == nil {
		return nil, fail(data, obj, 1, errwrap.Wrapf(interfaces.ErrInvalidTemplate, "optional has no item"))
	}
	rnd, err := random(data)
	if err != nil {
		return nil, fail(data, obj, 1, err)
	}

	chosen := rnd.Intn(2) == 1
	var child interfaces.Node = NewEmpty()
	if chosen {
		child = obj.Item.Copy()
	}
	children := []interfaces.Node{child}
	updates, err := generateAll(data, scope, children)
	if err != nil {
		return nil, err
	}

	obj.chosen = chosen
	obj.children = children
	obj.scope = freeze(obj, scope, updates)
	obj.generated = true
	done(data, obj.Kind())
	return updates, nil
}

// Chosen returns true if the item was picked over the empty leaf.
func (obj *OptionalNode) Chosen() bool { return obj.chosen }

// Generated returns true once this node was generated.
func (obj *OptionalNode) Generated() bool { return obj.generated }

// Children returns the single chosen child.
func (obj *OptionalNode) Children() []interfaces.Node { return obj.children }

// Scope returns the frozen scope snapshot.
func (obj *OptionalNode) Scope() interfaces.Scope { return obj.scope }

// Render returns the render of the chosen child.
func (obj *OptionalNode) Render() (string, error) {
	if !obj.generated {
		return "", interfaces.ErrNotGenerated
	}
	return render(obj.children)
}

// Execute runs the actions of this node and its child in traversal order.
func (obj *OptionalNode) Execute(env interfaces.Env, updates interfaces.Scope, ctx interfaces.Context) (interfaces.Scope, error) {
	if !obj.generated {
		return nil, interfaces.ErrNotGenerated
	}
	return execute(obj, &obj.Meta, obj.scope, obj.children, env, updates, ctx)
}

// Apply runs fn on the chosen child tree and then on this node.
func (obj *OptionalNode) Apply(fn func(interfaces.Node) error) error {
	return apply(obj, obj.children, fn)
}

// ExcludeNode generates its lhs over and over until the result no longer
// matches its rhs. This can be expensive, and it only terminates if enough of
// the lhs generations don't match the rhs.
type ExcludeNode struct {
	Meta

	Lhs interfaces.Node
	Rhs interfaces.Node

	// Attempts is the retry budget. Zero means unbounded, which is still
	// capped by the engine, and fails when the cap is hit.
	Attempts int

	// Policy decides what happens when a bounded budget runs out.
	Policy ExcludePolicy

	attempts  int
	excluded  bool // true if the accepted lhs doesn't match the rhs
	children  []interfaces.Node
	scope     interfaces.Scope
	generated bool
}

// NewExclude builds an exclusion of rhs from lhs.
func NewExclude(lhs, rhs interfaces.Node, opts ...Option) *ExcludeNode {
	return &ExcludeNode{Meta: newMeta(opts), Lhs: lhs, Rhs: rhs}
}

// String returns a short representation of this node.
func (obj *ExcludeNode) String() string { return fmt.Sprintf("exclude(%s, %s)", obj.Lhs, obj.Rhs) }

// Kind returns the variant of this node.
func (obj *ExcludeNode) Kind() interfaces.Kind { return interfaces.KindExclude }

// ScopeKey returns the key this node publishes itself under.
func (obj *ExcludeNode) ScopeKey() string { return obj.Meta.key(obj.Kind()) }

// SetScopeKey changes the scope key.
func (obj *ExcludeNode) SetScopeKey(key string) { obj.Meta.Key = key }

// Copy returns a fresh, ungenerated copy of this node.
func (obj *ExcludeNode) Copy() interfaces.Node {
	return &ExcludeNode{
		Meta:     obj.Meta,
		Lhs:      copyNode(obj.Lhs),
		Rhs:      copyNode(obj.Rhs),
		Attempts: obj.Attempts,
		Policy:   obj.Policy,
	}
}

// Generate regenerates the lhs until it fails to match the rhs. The scope
// changes of each rejected attempt are thrown away.
func (obj *ExcludeNode) Generate(data *interfaces.Data, scope interfaces.Scope) (interfaces.Scope, error) {
	data = ensure(data)
	if scope == nil {
		scope = interfaces.EmptyScope()
	}
	if obj.Lhs == nil || obj.Rhs == nil {
		return nil, fail(data, obj, 0, errwrap.Wrapf(interfaces.ErrInvalidTemplate, "exclude needs both sides"))
	}

	bounded := obj.Attempts > 0
	limit := obj.Attempts
	if !bounded {
		limit = data.Limit()
	}

	var last interfaces.Node
	var updates interfaces.Scope
	excluded := false
	attempt := 0
	for attempt < limit {
		attempt++
		candidate := obj.Lhs.Copy()
		trial := scope.Copy() // scratch scope for this attempt
		u, err := candidate.Generate(data, trial)
		if err != nil {
			return nil, err
		}
		last, updates = candidate, u
		if !isLegal(candidate, obj.Rhs, data.Context) {
			excluded = true
			break
		}
		if data.Stats != nil {
			data.Stats.ExcludeRetry()
		}
	}

	if !excluded {
		if !bounded || obj.Policy == PolicyStrict {
			err := &interfaces.NonTerminatingError{
				Lhs:      obj.Lhs,
				Rhs:      obj.Rhs,
				Attempts: attempt,
			}
			return nil, fail(data, obj, attempt, err)
		}
		data.Log("exclude: accepting %s after %d attempts, it still matches %s", last, attempt, obj.Rhs)
	}

	scope.Merge(updates)
	obj.attempts = attempt
	obj.excluded = excluded
	obj.children = []interfaces.Node{last}
	obj.scope = freeze(obj, scope, updates)
	obj.generated = true
	done(data, obj.Kind())
	return updates, nil
}

// Tries returns how many lhs generations were needed.
func (obj *ExcludeNode) Tries() int { return obj.attempts }

// Excluded returns false if the accepted lhs is a fallback that still matches
// the rhs.
func (obj *ExcludeNode) Excluded() bool { return obj.excluded }

// Generated returns true once this node was generated.
func (obj *ExcludeNode) Generated() bool { return obj.generated }

// Children returns the accepted lhs.
func (obj *ExcludeNode) Children() []interfaces.Node { return obj.children }

// Scope returns the frozen scope snapshot.
func (obj *ExcludeNode) Scope() interfaces.Scope { return obj.scope }

// Render returns the render of the accepted lhs.
func (obj *ExcludeNode) Render() (string, error) {
	if !obj.generated {
		return "", interfaces.ErrNotGenerated
	}
	return render(obj.children)
}

// Execute runs the actions of this node and its lhs in traversal order.
func (obj *ExcludeNode) Execute(env interfaces.Env, updates interfaces.Scope, ctx interfaces.Context) (interfaces.Scope, error) {
	if !obj.generated {
		return nil, interfaces.ErrNotGenerated
	}
	return execute(obj, &obj.Meta, obj.scope, obj.children, env, updates, ctx)
}

// Apply runs fn on the accepted lhs tree and then on this node.
func (obj *ExcludeNode) Apply(fn func(interfaces.Node) error) error {
	return apply(obj, obj.children, fn)
}

// Resolver builds the node behind a lazy reference.
type Resolver func(ctx interfaces.Context) (interfaces.Node, error)

// LazyNode is a deferred reference to another node. It gets resolved on demand
// during generation, which is what makes recursive grammars possible. Once
// generated it is transparent, and everything is delegated to the target.
type LazyNode struct {
	// Key overrides the scope key of the target, if it is set.
	Key string

	// Name identifies the reference. Two ungenerated lazy nodes with the
	// same name are considered the same grammar.
	Name string

	Resolve Resolver

	ctx       interfaces.Context
	target    interfaces.Node
	generated bool
}

// NewLazy builds a lazy reference.
func NewLazy(name string, resolve Resolver) *LazyNode {
	return &LazyNode{Name: name, Resolve: resolve}
}

// String returns a short representation of this node.
func (obj *LazyNode) String() string {
	if obj.target != nil {
		return obj.target.String()
	}
	return fmt.Sprintf("lazy(%s)", obj.Name)
}

// Kind returns the variant of this node.
func (obj *LazyNode) Kind() interfaces.Kind { return interfaces.KindLazy }

// ScopeKey returns the key this node publishes itself under.
func (obj *LazyNode) ScopeKey() string {
	if obj.Key != "" {
		return obj.Key
	}
	if obj.target != nil {
		return obj.target.ScopeKey()
	}
	return obj.Kind().String()
}

// SetScopeKey changes the scope key.
func (obj *LazyNode) SetScopeKey(key string) { obj.Key = key }

// Copy returns a fresh, unresolved copy of this node.
func (obj *LazyNode) Copy() interfaces.Node {
	return &LazyNode{Key: obj.Key, Name: obj.Name, Resolve: obj.Resolve}
}

// resolve builds the target with the given context.
func (obj *LazyNode) resolve(ctx interfaces.Context) (interfaces.Node, error) {
	if obj.Resolve == nil {
		return nil, &LazyError{Name: obj.Name, Err: fmt.Errorf("no resolver")}
	}
	node, err := obj.Resolve(ctx.Copy()) // the resolver can't change the caller's context
	if err != nil {
		return nil, &LazyError{Name: obj.Name, Err: err}
	}
	if node == nil {
		return nil, &LazyError{Name: obj.Name, Err: fmt.Errorf("resolved to nil")}
	}
	node = node.Copy()
	if obj.Key != "" {
		node.SetScopeKey(obj.Key)
	}
	return node, nil
}

// Generate resolves the reference and generates the target in its place.
func (obj *LazyNode) Generate(data *interfaces.Data, scope interfaces.Scope) (interfaces.Scope, error) {
	data = ensure(data)
	if scope == nil {
		scope = interfaces.EmptyScope()
	}
	if !data.Enter() {
		return nil, fail(data, obj, data.Depth(), &DepthError{Name: obj.Name, Depth: data.Depth()})
	}
	defer data.Leave()

	target, err := obj.resolve(data.Context)
	if err != nil {
		return nil, fail(data, obj, data.Depth(), err)
	}
	if data.Debug {
		data.Log("lazy: resolved %s at depth %d", obj.Name, data.Depth())
	}
	updates, err := target.Generate(data, scope)
	if err != nil {
		return nil, err
	}
	obj.ctx = data.Context.Copy()
	obj.target = target
	obj.generated = true
	return updates, nil
}

// Target returns the resolved node, or nil before generation.
func (obj *LazyNode) Target() interfaces.Node { return obj.target }

// Generated returns true once this node was generated.
func (obj *LazyNode) Generated() bool { return obj.generated }

// Children returns the children of the target.
func (obj *LazyNode) Children() []interfaces.Node {
	if obj.target == nil {
		return nil
	}
	return obj.target.Children()
}

// Scope returns the scope snapshot of the target.
func (obj *LazyNode) Scope() interfaces.Scope {
	if obj.target == nil {
		return nil
	}
	return obj.target.Scope()
}

// Render returns the render of the target.
func (obj *LazyNode) Render() (string, error) {
	if !obj.generated {
		return "", interfaces.ErrNotGenerated
	}
	return obj.target.Render()
}

// Execute executes the target.
func (obj *LazyNode) Execute(env interfaces.Env, updates interfaces.Scope, ctx interfaces.Context) (interfaces.Scope, error) {
	if !obj.generated {
		return nil, interfaces.ErrNotGenerated
	}
	return obj.target.Execute(env, updates, ctx)
}

// Apply runs fn on the target tree.
func (obj *LazyNode) Apply(fn func(interfaces.Node) error) error {
	if obj.target == nil {
		return nil
	}
	return obj.target.Apply(fn)
}

// LazyError is returned when a lazy reference can't be resolved. It matches
// ErrUnresolvedLazyReference and whatever caused it.
type LazyError struct {
	Name string
	Err  error
}

// Error fulfills the error interface of this type.
func (obj *LazyError) Error() string {
	return fmt.Sprintf("%s `%s`: %v", interfaces.ErrUnresolvedLazyReference, obj.Name, obj.Err)
}

// Unwrap returns both the sentinel and the cause.
func (obj *LazyError) Unwrap() []error {
	return []error{interfaces.ErrUnresolvedLazyReference, obj.Err}
}

// DepthError is returned when lazy references nest too deeply. It matches both
// ErrDepthExceeded and ErrNonTerminatingGrammar.
type DepthError struct {
	Name  string
	Depth int
}

// Error fulfills the error interface of this type.
func (obj *DepthError) Error() string {
	return fmt.Sprintf("%s: `%s` at depth %d", interfaces.ErrDepthExceeded, obj.Name, obj.Depth)
}

// Is matches the two sentinel errors.
func (obj *DepthError) Is(target error) bool {
	return target == interfaces.ErrDepthExceeded || target == interfaces.ErrNonTerminatingGrammar
}
