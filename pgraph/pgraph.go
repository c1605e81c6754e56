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

// Package pgraph represents the "pointer graph" that we use to describe
// derivation trees.
package pgraph

import (
	"fmt"
	"sort"
)

// Graph is the graph structure in this library. The directed graph arrows
// point from left to right ( -> ), which is from a parent to each of its
// children. Vertices are kept in insertion order so that the output of the
// graph is stable.
type Graph struct {
	Name string

	adjacency map[Vertex]map[Vertex]Edge // Vertex -> Vertex (edge)
	vertices  []Vertex                   // in insertion order
}

// Vertex is the primary vertex struct in this library. It can be anything that
// implements Stringer. Vertices are compared by identity, so they should be
// pointers.
type Vertex interface {
	fmt.Stringer // String() string
}

// Edge is the primary edge struct in this library. It can be anything that
// implements Stringer.
type Edge interface {
	fmt.Stringer // String() string
}

// Label is a simple edge which is only a name.
type Label string

// String returns the name of the edge.
func (obj Label) String() string { return string(obj) }

// NewGraph builds a new graph.
func NewGraph(name string) (*Graph, error) {
	if name == "" {
		return nil, fmt.Errorf("empty graph name")
	}
	return &Graph{
		Name:      name,
		adjacency: make(map[Vertex]map[Vertex]Edge),
	}, nil
}

// GetName returns the name of the graph.
func (g *Graph) GetName() string {
	return g.Name
}

// AddVertex uses variadic input to add all listed vertices to the graph.
func (g *Graph) AddVertex(xv ...Vertex) {
	if g.adjacency == nil { // initialize on first use
		g.adjacency = make(map[Vertex]map[Vertex]Edge)
	}
	for _, v := range xv {
		if _, exists := g.adjacency[v]; !exists {
			g.adjacency[v] = make(map[Vertex]Edge)
			g.vertices = append(g.vertices, v)
		}
	}
}

// AddEdge adds a directed edge to the graph from v1 to v2. Both vertices are
// added if they are missing.
func (g *Graph) AddEdge(v1, v2 Vertex, e Edge) {
	g.AddVertex(v1, v2)
	g.adjacency[v1][v2] = e
}

// HasVertex returns if the input vertex exists in the graph.
func (g *Graph) HasVertex(v Vertex) bool {
	_, exists := g.adjacency[v]
	return exists
}

// NumVertices returns the number of vertices in the graph.
func (g *Graph) NumVertices() int {
	return len(g.vertices)
}

// NumEdges returns the number of edges in the graph.
func (g *Graph) NumEdges() int {
	count := 0
	for k := range g.adjacency {
		count += len(g.adjacency[k])
	}
	return count
}

// Vertices returns the list of vertices in insertion order.
func (g *Graph) Vertices() []Vertex {
	vertices := make([]Vertex, len(g.vertices))
	copy(vertices, g.vertices)
	return vertices
}

// String makes the graph pretty print.
func (g *Graph) String() string {
	return fmt.Sprintf("Vertices(%d), Edges(%d)", g.NumVertices(), g.NumEdges())
}

// index returns the insertion position of each vertex.
func (g *Graph) index() map[Vertex]int {
	index := make(map[Vertex]int, len(g.vertices))
	for i, v := range g.vertices {
		index[v] = i
	}
	return index
}

// OutgoingGraphVertices returns the list of all vertices that vertex v points
// to (v -> ???), in insertion order.
func (g *Graph) OutgoingGraphVertices(v Vertex) []Vertex {
	index := g.index()
	var s []Vertex
	for k := range g.adjacency[v] { // forward paths
		s = append(s, k)
	}
	sort.Slice(s, func(i, j int) bool { return index[s[i]] < index[s[j]] })
	return s
}

// IncomingGraphVertices returns the list of all vertices that point to vertex
// v (??? -> v), in insertion order.
func (g *Graph) IncomingGraphVertices(v Vertex) []Vertex {
	var s []Vertex
	for _, k := range g.vertices { // reverse paths
		if _, exists := g.adjacency[k][v]; exists {
			s = append(s, k)
		}
	}
	return s
}

// Adjacency returns the edge between two vertices, if it exists.
func (g *Graph) Adjacency(v1, v2 Vertex) (Edge, bool) {
	e, exists := g.adjacency[v1][v2]
	return e, exists
}

// InDegree returns the count of vertices that point to each vertex.
func (g *Graph) InDegree() map[Vertex]int {
	result := make(map[Vertex]int)
	for k := range g.adjacency {
		result[k] = 0 // initialize
	}
	for k := range g.adjacency {
		for z := range g.adjacency[k] {
			result[z]++
		}
	}
	return result
}

// DFS returns a depth first search for the graph, starting at the input
// vertex, following the edges forward.
func (g *Graph) DFS(start Vertex) []Vertex {
	var d []Vertex // discovered
	var s []Vertex // stack
	if _, exists := g.adjacency[start]; !exists {
		return nil
	}
	seen := make(map[Vertex]struct{})
	s = append(s, start)
	for len(s) > 0 {
		var v Vertex
		v, s = s[len(s)-1], s[:len(s)-1] // s.pop()

		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{} // label as discovered
		d = append(d, v)

		out := g.OutgoingGraphVertices(v)
		for i := len(out) - 1; i >= 0; i-- { // so the first child pops first
			s = append(s, out[i])
		}
	}
	return d
}

// TopologicalSort returns the sort of graph vertices in that order. It errors
// if the graph is not a DAG.
func (g *Graph) TopologicalSort() ([]Vertex, error) { // kahn's algorithm
	var L []Vertex                    // empty list that will contain the sorted elements
	var S []Vertex                    // set of all nodes with no incoming edges
	remaining := make(map[Vertex]int) // amount of edges remaining

	indegree := g.InDegree()
	for i := len(g.vertices) - 1; i >= 0; i-- {
		v := g.vertices[i]
		if d := indegree[v]; d == 0 {
			S = append(S, v)
		} else {
			remaining[v] = d
		}
	}

	for len(S) > 0 {
		last := len(S) - 1 // remove a node v from S
		v := S[last]
		S = S[:last]
		L = append(L, v) // add v to tail of L
		for _, n := range g.OutgoingGraphVertices(v) {
			if remaining[n] > 0 {
				remaining[n]--         // remove edge from the graph
				if remaining[n] == 0 { // if n has no other incoming edges
					S = append(S, n) // insert n into S
				}
			}
		}
	}

	for _, in := range remaining {
		if in > 0 {
			return nil, fmt.Errorf("not a dag")
		}
	}
	return L, nil
}
