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

package pgraph

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/purpleidea/agt/util/errwrap"
)

// Graphviz outputs the graph in graphviz format. Vertices are named by their
// insertion position so that the output is stable.
// https://en.wikipedia.org/wiki/DOT_%28graph_description_language%29
func (g *Graph) Graphviz() string {
	//digraph g {
	//	label="hello world";
	//	node [shape=box];
	//	v0 [label="A"];
	//	v1 [label="B"];
	//	v0 -> v1 [label="0"];
	//}
	var out strings.Builder
	out.WriteString(fmt.Sprintf("digraph %s {\n", strconv.Quote(g.GetName())))
	out.WriteString(fmt.Sprintf("\tlabel=%s;\n", strconv.Quote(g.GetName())))
	out.WriteString("\tnode [shape=box];\n")
	index := g.index()
	str := ""
	for i, v := range g.Vertices() {
		out.WriteString(fmt.Sprintf("\tv%d [label=%s];\n", i, strconv.Quote(v.String())))
		for _, w := range g.OutgoingGraphVertices(v) {
			edge, _ := g.Adjacency(v, w)
			e := strconv.Quote(edge.String())
			// use str for clearer output ordering
			str += fmt.Sprintf("\tv%d -> v%d [label=%s];\n", i, index[w], e)
		}
	}
	out.WriteString(str)
	out.WriteString("}\n")
	return out.String()
}

// ExecGraphviz writes out the graphviz data and runs the correct graphviz
// filter command. An empty program only writes the data.
func (g *Graph) ExecGraphviz(program, filename string) error {
	switch program {
	case "", "dot", "neato", "twopi", "circo", "fdp":
	default:
		return fmt.Errorf("invalid graphviz program selected")
	}

	if filename == "" {
		return fmt.Errorf("no filename given")
	}

	if err := os.WriteFile(filename, []byte(g.Graphviz()), 0644); err != nil {
		return errwrap.Wrapf(err, "error writing to filename")
	}
	if program == "" {
		return nil
	}

	path, err := exec.LookPath(program)
	if err != nil {
		return fmt.Errorf("the Graphviz program is missing")
	}

	out := fmt.Sprintf("%s.png", filename)
	cmd := exec.Command(path, "-Tpng", fmt.Sprintf("-o%s", out), filename)
	if _, err := cmd.Output(); err != nil {
		return errwrap.Wrapf(err, "error writing to image")
	}
	return nil
}
