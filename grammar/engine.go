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

// Package grammar is the top-level entry point into the grammar engine. It
// holds a grammar, a source of randomness and the generation knobs, and it
// produces independent derivations out of them.
package grammar

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/purpleidea/agt/grammar/interfaces"
	"github.com/purpleidea/agt/util/errwrap"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
)

// Engine is the main grammar engine object. Generation is serialized, since a
// single random source is shared between calls.
type Engine struct {
	// Grammar is the root node which every derivation is generated from.
	// It is never modified by the engine.
	Grammar interfaces.Node

	// Seed is used to build the random source if Rand is not given. Zero
	// means that a time based seed is chosen.
	Seed int64

	// Rand is the random source. If it is set, Seed is ignored.
	Rand *rand.Rand

	// Context is the keyword context passed to lazy factories.
	Context interfaces.Context

	MaxDepth     int
	ExcludeLimit int

	// Metrics receives engine events if it is not nil.
	Metrics interfaces.Stats

	Debug bool
	Logf  func(format string, v ...interface{})

	mutex *sync.Mutex
}

// Validate checks that the engine has been configured correctly.
func (obj *Engine) Validate() error {
	if obj.Grammar == nil {
		return fmt.Errorf("the Grammar is nil")
	}
	if obj.MaxDepth < 0 {
		return fmt.Errorf("the MaxDepth of %d is negative", obj.MaxDepth)
	}
	if obj.ExcludeLimit < 0 {
		return fmt.Errorf("the ExcludeLimit of %d is negative", obj.ExcludeLimit)
	}
	return nil
}

// Init validates the engine and builds the random source. It must be called
// before any generation.
func (obj *Engine) Init() error {
	if err := obj.Validate(); err != nil {
		return errwrap.Wrapf(err, "invalid engine")
	}
	if obj.Logf == nil {
		obj.Logf = func(format string, v ...interface{}) {}
	}
	if obj.Rand == nil {
		if obj.Seed == 0 {
			obj.Seed = time.Now().UnixNano()
		}
		obj.Rand = rand.New(rand.NewSource(obj.Seed))
		if obj.Debug {
			obj.Logf("seed: %d", obj.Seed)
		}
	}
	obj.mutex = &sync.Mutex{}
	if obj.Debug {
		obj.Logf("grammar: %s", obj.Grammar)
	}
	return nil
}

// data builds the per call generation data.
func (obj *Engine) data() *interfaces.Data {
	return &interfaces.Data{
		Rand:         obj.Rand,
		Context:      obj.Context,
		MaxDepth:     obj.MaxDepth,
		ExcludeLimit: obj.ExcludeLimit,
		Stats:        obj.Metrics,
		Debug:        obj.Debug,
		Logf: func(format string, v ...interface{}) {
			obj.Logf("generate: "+format, v...)
		},
	}
}

// Generate produces a new derivation of the grammar. The scope is the initial
// in-flight scope, and it may be nil.
func (obj *Engine) Generate(scope interfaces.Scope) (*Derivation, error) {
	if obj.mutex == nil {
		return nil, fmt.Errorf("the engine was not initialized")
	}
	obj.mutex.Lock()
	defer obj.mutex.Unlock()

	root := obj.Grammar.Copy()
	updates, err := root.Generate(obj.data(), scope)
	if err != nil {
		return nil, err
	}
	d := &Derivation{
		ID:      uuid.New(),
		Root:    root,
		Updates: updates,
	}
	if obj.Debug {
		obj.Logf("derivation %s scope:\n%s", d.ID, spew.Sdump(root.Scope().Keys()))
	}
	return d, nil
}

// GenerateN produces n derivations. Each one starts from its own copy of the
// scope. It stops at the first error.
func (obj *Engine) GenerateN(n int, scope interfaces.Scope) ([]*Derivation, error) {
	if n < 0 {
		return nil, fmt.Errorf("can't generate %d derivations", n)
	}
	derivations := []*Derivation{}
	for i := 0; i < n; i++ {
		var s interfaces.Scope
		if scope != nil {
			s = scope.Copy()
		}
		d, err := obj.Generate(s)
		if err != nil {
			return nil, errwrap.Wrapf(err, "derivation %d failed", i)
		}
		derivations = append(derivations, d)
	}
	return derivations, nil
}
