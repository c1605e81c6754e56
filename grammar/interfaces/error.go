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

package interfaces

import (
	"fmt"
)

// Error is a constant error type that implements error.
type Error string

// Error fulfills the error interface of this type.
func (e Error) Error() string { return string(e) }

const (
	// ErrInvalidTemplate is returned when a template literal has a shape
	// that can't be normalized into a node.
	ErrInvalidTemplate = Error("invalid template")

	// ErrSampling is returned when a sampled concatenation asks for more
	// items than its candidate pool can provide.
	ErrSampling = Error("sampling error")

	// ErrNotGenerated is returned when a node is rendered or executed
	// before it was generated.
	ErrNotGenerated = Error("node was not generated")

	// ErrNonTerminatingGrammar is returned when an exclusion can't be
	// satisfied within its retry budget, or when a recursive grammar
	// doesn't bottom out.
	ErrNonTerminatingGrammar = Error("non-terminating grammar")

	// ErrUnresolvedLazyReference is returned when resolving a lazy
	// reference itself fails.
	ErrUnresolvedLazyReference = Error("unresolved lazy reference")

	// ErrDepthExceeded is returned when lazy references nest deeper than
	// the configured limit.
	ErrDepthExceeded = Error("lazy reference depth exceeded")
)

// NodeError adds the node variant, scope key and attempted count to an error
// which happened while generating that node.
type NodeError struct {
	Kind     Kind
	ScopeKey string
	Count    int // the attempted count, if any
	Err      error
}

// Error fulfills the error interface of this type.
func (obj *NodeError) Error() string {
	return fmt.Sprintf("%s node `%s` (count: %d): %v", obj.Kind, obj.ScopeKey, obj.Count, obj.Err)
}

// Unwrap returns the wrapped error.
func (obj *NodeError) Unwrap() error { return obj.Err }

// NonTerminatingError is returned when an exclude node runs out of attempts.
// It keeps the two sides of the exclusion for diagnosis.
type NonTerminatingError struct {
	Lhs      Node
	Rhs      Node
	Attempts int
}

// Error fulfills the error interface of this type.
func (obj *NonTerminatingError) Error() string {
	return fmt.Sprintf("%s: %s still matches %s after %d attempts", ErrNonTerminatingGrammar, obj.Lhs, obj.Rhs, obj.Attempts)
}

// Unwrap returns the sentinel error so that errors.Is works.
func (obj *NonTerminatingError) Unwrap() error { return ErrNonTerminatingGrammar }
