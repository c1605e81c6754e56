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
	"github.com/purpleidea/agt/grammar/interfaces"
)

// IsLegal returns true if x is a possible derivation of the grammar g. The x
// node may be generated or not. When it isn't, the two grammars are compared
// structurally, and lazy references on both sides are compared by name so that
// recursive grammars terminate. Mismatched variants are never legal.
func IsLegal(x, g interfaces.Node) bool {
	return isLegal(x, g, nil)
}

// isLegal is IsLegal with the context that unresolved lazy references are
// resolved with.
func isLegal(x, g interfaces.Node, ctx interfaces.Context) bool {
	m := &matcher{ctx: ctx}
	return m.legal(x, g)
}

type matcher struct {
	ctx interfaces.Context // context of the most recent lazy in x
}

func (obj *matcher) legal(x, g interfaces.Node) bool {
	if x == nil || g == nil {
		return x == nil && g == nil
	}

	// generated lazy nodes are transparent
	if lx, ok := x.(*LazyNode); ok && lx.generated {
		ctx := obj.ctx
		obj.ctx = lx.ctx
		defer func() { obj.ctx = ctx }()
		return obj.legal(lx.target, g)
	}

	lx, xLazy := x.(*LazyNode)
	lg, gLazy := g.(*LazyNode)
	if xLazy && gLazy {
		return lx.Name == lg.Name
	}
	if gLazy {
		target, err := lg.resolve(obj.ctx)
		if err != nil {
			return false
		}
		return obj.legal(x, target)
	}
	if xLazy {
		target, err := lx.resolve(obj.ctx)
		if err != nil {
			return false
		}
		return obj.legal(target, g)
	}

	switch gx := x.(type) {
	case *StringNode:
		gg, ok := g.(*StringNode)
		return ok && gx.Value == gg.Value

	case *EmptyNode:
		_, ok := g.(*EmptyNode)
		return ok

	case *ConcatNode:
		gg, ok := g.(*ConcatNode)
		if !ok {
			return false
		}
		return obj.concat(gx, gg)

	case *RepeatNode:
		gg, ok := g.(*RepeatNode)
		if !ok {
			return false
		}
		return obj.repeat(gx, gg)

	case *UnionNode:
		gg, ok := g.(*UnionNode)
		if !ok {
			return false
		}
		if !gx.generated {
			return obj.pairwise(gx.Pool, gg.Pool)
		}
		if gx.index >= len(gg.Pool) || len(gx.children) != 1 {
			return false
		}
		return obj.legal(gx.children[0], gg.Pool[gx.index])

	case *OptionalNode:
		gg, ok := g.(*OptionalNode)
		if !ok {
			return false
		}
		if !obj.legal(gx.Item, gg.Item) {
			return false
		}
		if gx.generated && gx.chosen {
			return len(gx.children) == 1 && obj.legal(gx.children[0], gg.Item)
		}
		return true

	case *ExcludeNode:
		gg, ok := g.(*ExcludeNode)
		if !ok {
			return false
		}
		if !obj.legal(gx.Rhs, gg.Rhs) {
			return false
		}
		if gx.generated && len(gx.children) == 1 {
			return obj.legal(gx.children[0], gg.Lhs)
		}
		return obj.legal(gx.Lhs, gg.Lhs)
	}

	return false
}

// pairwise returns true if both lists have the same length and each pair of
// nodes is legal.
func (obj *matcher) pairwise(xs, gs []interfaces.Node) bool {
	if len(xs) != len(gs) {
		return false
	}
	for i := range xs {
		if !obj.legal(xs[i], gs[i]) {
			return false
		}
	}
	return true
}

func (obj *matcher) concat(x, g *ConcatNode) bool {
	if !x.generated {
		return x.N == g.N && obj.pairwise(x.Pool, g.Pool)
	}
	if g.N == 0 {
		return obj.pairwise(x.children, g.Pool)
	}
	if len(x.children) != g.N {
		return false
	}
	return obj.combination(x.children, g.Pool, 0, 0)
}

// combination searches for an order preserving assignment of each child to a
// distinct candidate of the pool, starting at child i and candidate j.
func (obj *matcher) combination(children, pool []interfaces.Node, i, j int) bool {
	if i == len(children) {
		return true
	}
	// leave room for the remaining children
	for k := j; k <= len(pool)-(len(children)-i); k++ {
		if !obj.legal(children[i], pool[k]) {
			continue
		}
		if obj.combination(children, pool, i+1, k+1) {
			return true
		}
	}
	return false
}

func (obj *matcher) repeat(x, g *RepeatNode) bool {
	if !obj.legal(x.Item, g.Item) || !obj.legal(x.Sep, g.Sep) || !obj.legal(x.LastSep, g.LastSep) {
		return false
	}
	if !x.generated {
		return true
	}
	if g.Count != nil && x.count != *g.Count {
		return false
	}
	// every generated child is an item or one of the separators
	for _, child := range x.children {
		if obj.legal(child, g.Item) {
			continue
		}
		if g.Sep != nil && obj.legal(child, g.Sep) {
			continue
		}
		if g.LastSep != nil && obj.legal(child, g.LastSep) {
			continue
		}
		return false
	}
	return true
}
