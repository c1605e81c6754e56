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

// Package prometheus provides functions that are useful to control and manage
// the build-in prometheus instance.
package prometheus

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/purpleidea/agt/grammar/interfaces"
	"github.com/purpleidea/agt/util/errwrap"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultPrometheusListen is registered in
// https://github.com/prometheus/prometheus/wiki/Default-port-allocations
const DefaultPrometheusListen = "127.0.0.1:9233"

// Prometheus is the struct that contains information about the prometheus
// instance. Run Init() on it. It implements the grammar Stats interface, so it
// can be given to the engine directly.
type Prometheus struct {
	Listen string // the listen address for the metrics server

	Logf func(format string, v ...interface{})

	registry *prometheus.Registry

	generateTotal           *prometheus.CounterVec // total of generated nodes
	errorsTotal             *prometheus.CounterVec // total of failed nodes
	excludeRetriesTotal     prometheus.Counter     // total of rejected exclude attempts
	executeTotal            prometheus.Counter     // total of executed derivations
	processStartTimeSeconds prometheus.Gauge       // process start time in seconds since unix epoch

	mutex  *sync.Mutex
	server *http.Server
	addr   net.Addr
	wg     *sync.WaitGroup
}

// Init some parameters - currently the Listen address - and registers all the
// metrics in a private registry.
func (obj *Prometheus) Init() error {
	if len(obj.Listen) == 0 {
		obj.Listen = DefaultPrometheusListen
	}
	if obj.Logf == nil {
		obj.Logf = func(format string, v ...interface{}) {}
	}
	obj.mutex = &sync.Mutex{}
	obj.wg = &sync.WaitGroup{}
	obj.registry = prometheus.NewRegistry()

	obj.generateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agt_generate_total",
			Help: "Number of grammar nodes that have been generated.",
		},
		// kind: node variant: String, Concat, Union, ...
		[]string{"kind"},
	)
	obj.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agt_errors_total",
			Help: "Number of grammar nodes that failed to generate.",
		},
		[]string{"kind"},
	)
	obj.excludeRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agt_exclude_retries_total",
			Help: "Number of exclude attempts that were rejected.",
		},
	)
	obj.executeTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agt_execute_total",
			Help: "Number of derivations that have been executed.",
		},
	)
	obj.processStartTimeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agt_process_start_time_seconds",
			Help: "Start time of the process since unix epoch in seconds.",
		},
	)
	// directly set the processStartTimeSeconds
	obj.processStartTimeSeconds.SetToCurrentTime()

	for _, c := range []prometheus.Collector{
		obj.generateTotal,
		obj.errorsTotal,
		obj.excludeRetriesTotal,
		obj.executeTotal,
		obj.processStartTimeSeconds,
		collectors.NewGoCollector(),
	} {
		if err := obj.registry.Register(c); err != nil {
			return errwrap.Wrapf(err, "could not register metric")
		}
	}

	return nil
}

// Registry returns the registry which holds all of our metrics.
func (obj *Prometheus) Registry() *prometheus.Registry {
	return obj.registry
}

// Start runs a http server in a go routine, that responds to /metrics as
// prometheus would expect.
func (obj *Prometheus) Start() error {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	if obj.server != nil {
		return fmt.Errorf("already started")
	}

	listener, err := net.Listen("tcp", obj.Listen)
	if err != nil {
		return errwrap.Wrapf(err, "can't listen on %s", obj.Listen)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(obj.registry, promhttp.HandlerOpts{}))
	obj.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	obj.wg.Add(1)
	go func(server *http.Server) {
		defer obj.wg.Done()
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			obj.Logf("prometheus: server failed: %+v", err)
		}
	}(obj.server)
	obj.addr = listener.Addr()
	obj.Logf("prometheus: listening on %s", obj.addr)
	return nil
}

// Addr returns the address that the server is listening on, or nil if it is
// not running.
func (obj *Prometheus) Addr() net.Addr {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	return obj.addr
}

// Stop the http server.
func (obj *Prometheus) Stop() error {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	if obj.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := obj.server.Shutdown(ctx)
	obj.wg.Wait()
	obj.server = nil
	obj.addr = nil
	return err
}

// Generated counts a generated node of this kind.
func (obj *Prometheus) Generated(kind interfaces.Kind) {
	obj.generateTotal.With(prometheus.Labels{"kind": kind.String()}).Inc()
}

// Failed counts a node of this kind which failed to generate.
func (obj *Prometheus) Failed(kind interfaces.Kind) {
	obj.errorsTotal.With(prometheus.Labels{"kind": kind.String()}).Inc()
}

// ExcludeRetry counts a rejected exclude attempt.
func (obj *Prometheus) ExcludeRetry() {
	obj.excludeRetriesTotal.Inc()
}

// Executed counts an executed derivation.
func (obj *Prometheus) Executed() {
	obj.executeTotal.Inc()
}
