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

package grammar

import (
	"fmt"
	"strconv"

	"github.com/purpleidea/agt/grammar/ast"
	"github.com/purpleidea/agt/grammar/interfaces"
	"github.com/purpleidea/agt/pgraph"
	"github.com/purpleidea/agt/util/errwrap"

	"github.com/google/uuid"
)

// Derivation is one generated instance of a grammar.
type Derivation struct {
	// ID uniquely identifies this derivation.
	ID uuid.UUID

	// Root is the generated tree.
	Root interfaces.Node

	// Updates are the scope updates that generation produced.
	Updates interfaces.Scope
}

// Render returns the string that this derivation represents.
func (obj *Derivation) Render() (string, error) {
	return obj.Root.Render()
}

// Execute runs the actions of this derivation and returns all the scope
// updates that they produced.
func (obj *Derivation) Execute(env interfaces.Env, ctx interfaces.Context) (interfaces.Scope, error) {
	return obj.Root.Execute(env, interfaces.EmptyScope(), ctx)
}

// RenderAndExecute renders the derivation and then executes it.
func (obj *Derivation) RenderAndExecute(env interfaces.Env, ctx interfaces.Context) (string, interfaces.Scope, error) {
	s, err := obj.Render()
	if err != nil {
		return "", nil, errwrap.Wrapf(err, "render failed")
	}
	updates, err := obj.Execute(env, ctx)
	if err != nil {
		return "", nil, errwrap.Wrapf(err, "execute failed")
	}
	return s, updates, nil
}

// IsLegal returns true if this derivation could have been generated by the
// grammar.
func (obj *Derivation) IsLegal(grammar interfaces.Node) bool {
	return ast.IsLegal(obj.Root, grammar)
}

// vertex wraps a derivation node so that it can be stored in a graph.
type vertex struct {
	node  interfaces.Node
	label string
}

func (obj *vertex) String() string { return obj.label }

// label returns the text shown for a node in the graph.
func label(node interfaces.Node) string {
	s := fmt.Sprintf("%s (%s)", node.Kind(), node.ScopeKey())
	switch x := node.(type) {
	case *ast.StringNode:
		return fmt.Sprintf("%s: %s", s, strconv.Quote(x.Value))
	case *ast.UnionNode:
		return fmt.Sprintf("%s: #%d", s, x.Index())
	case *ast.RepeatNode:
		return fmt.Sprintf("%s: x%d", s, x.Repetitions())
	case *ast.ExcludeNode:
		return fmt.Sprintf("%s: %d tries", s, x.Tries())
	}
	return s
}

// unwrap skips over any resolved lazy references.
func unwrap(node interfaces.Node) interfaces.Node {
	for {
		lazy, ok := node.(*ast.LazyNode)
		if !ok || lazy.Target() == nil {
			return node
		}
		node = lazy.Target()
	}
}

// Graph builds the graph of the derivation tree. Each edge is labelled with
// the position of the child under its parent.
func (obj *Derivation) Graph() (*pgraph.Graph, error) {
	g, err := pgraph.NewGraph(obj.ID.String())
	if err != nil {
		return nil, err
	}
	var walk func(interfaces.Node) *vertex
	walk = func(node interfaces.Node) *vertex {
		node = unwrap(node)
		v := &vertex{node: node, label: label(node)}
		g.AddVertex(v)
		for i, child := range node.Children() {
			g.AddEdge(v, walk(child), pgraph.Label(strconv.Itoa(i)))
		}
		return v
	}
	root := walk(obj.Root)
	if err := tree(g, root); err != nil {
		return nil, errwrap.Wrapf(err, "invalid derivation graph")
	}
	return g, nil
}

// tree checks that the graph is a tree which hangs off of root: it has no
// cycles, every other vertex has exactly one parent, and all of them can be
// reached from the root.
func tree(g *pgraph.Graph, root pgraph.Vertex) error {
	if !g.HasVertex(root) {
		return fmt.Errorf("root %s is not in the graph", root)
	}
	if _, err := g.TopologicalSort(); err != nil {
		return err
	}
	for _, v := range g.Vertices() {
		parents := len(g.IncomingGraphVertices(v))
		if v == root && parents != 0 {
			return fmt.Errorf("root %s has %d parents", v, parents)
		}
		if v != root && parents != 1 {
			return fmt.Errorf("vertex %s has %d parents", v, parents)
		}
	}
	if n := len(g.DFS(root)); n != g.NumVertices() {
		return fmt.Errorf("only %d of %d vertices are reachable", n, g.NumVertices())
	}
	return nil
}

// Graphviz returns the DOT representation of the derivation tree.
func (obj *Derivation) Graphviz() (string, error) {
	if !obj.Root.Generated() {
		return "", interfaces.ErrNotGenerated
	}
	g, err := obj.Graph()
	if err != nil {
		return "", err
	}
	return g.Graphviz(), nil
}
