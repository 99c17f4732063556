/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package fake provides an in-memory Kafka Connect REST API for tests.
package fake

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strconv"
	"sync"

	kafkaconnect "github.com/b1zzu/connect-operator/pkg/kafka-connect"
)

// Operations recorded by API.
const (
	OpList           = "list"
	OpCreateOrUpdate = "createOrUpdate"
	OpStatus         = "status"
	OpDelete         = "delete"
	OpPause          = "pause"
	OpResume         = "resume"
	OpPlugins        = "plugins"
)

// Call is a single recorded invocation.
type Call struct {
	Op   string
	Host string
	Port int32
	Name string
}

type connector struct {
	paused bool
	config map[string]string
}

// API keeps one set of connectors per host:port and records every call.
type API struct {
	mu sync.Mutex

	endpoints map[string]map[string]*connector
	calls     []Call
	failures  map[string]error
	plugins   []kafkaconnect.ConnectorPlugin
}

var _ kafkaconnect.API = &API{}

func New() *API {
	return &API{
		endpoints: map[string]map[string]*connector{},
		failures:  map[string]error{},
	}
}

// FailOn makes every following call of op return err, a nil err clears it.
func (f *API) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

// SetPlugins sets the plugins returned by every Plugins call.
func (f *API) SetPlugins(plugins ...kafkaconnect.ConnectorPlugin) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.plugins = plugins
}

// Add seeds a connector as if it had been created out of band.
func (f *API) Add(host string, port int32, name string, paused bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.connectorsFor(host, port)[name] = &connector{paused: paused}
}

// Connectors returns the sorted connector names known at host:port.
func (f *API) Connectors(host string, port int32) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.namesFor(host, port)
}

// Config returns the last configuration stored for the connector.
func (f *API) Config(host string, port int32, name string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.connectorsFor(host, port)[name]
	if !ok {
		return nil
	}
	return c.config
}

// Count returns how many times op was called for name at host:port.
func (f *API) Count(op, host string, port int32, name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.calls {
		if c.Op == op && c.Host == host && c.Port == port && c.Name == name {
			n++
		}
	}
	return n
}

// Calls returns a copy of every recorded call.
func (f *API) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.calls)
}

func (f *API) List(_ context.Context, host string, port int32) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record(OpList, host, port, ""); err != nil {
		return nil, err
	}
	return f.namesFor(host, port), nil
}

func (f *API) CreateOrUpdate(_ context.Context, host string, port int32, name string, config map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record(OpCreateOrUpdate, host, port, name); err != nil {
		return err
	}

	connectors := f.connectorsFor(host, port)
	c, ok := connectors[name]
	if !ok {
		c = &connector{}
		connectors[name] = c
	}
	c.config = config
	return nil
}

func (f *API) Status(_ context.Context, host string, port int32, name string) (*kafkaconnect.ConnectorStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record(OpStatus, host, port, name); err != nil {
		return nil, err
	}

	c, ok := f.connectorsFor(host, port)[name]
	if !ok {
		return nil, notFound(http.MethodGet, "/connectors/"+name+"/status", name)
	}

	state := kafkaconnect.StateRunning
	if c.paused {
		state = kafkaconnect.StatePaused
	}
	return &kafkaconnect.ConnectorStatus{
		Name: name,
		Connector: kafkaconnect.ConnectorStatusConnector{
			State:    state,
			WorkerID: "somehost0:8083",
		},
		Tasks: []kafkaconnect.ConnectorStatusTask{
			{ID: 0, State: state, WorkerID: "somehost2:8083"},
		},
	}, nil
}

func (f *API) Delete(_ context.Context, host string, port int32, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record(OpDelete, host, port, name); err != nil {
		return err
	}

	connectors := f.connectorsFor(host, port)
	if _, ok := connectors[name]; !ok {
		return notFound(http.MethodDelete, "/connectors/"+name, name)
	}
	delete(connectors, name)
	return nil
}

func (f *API) Pause(_ context.Context, host string, port int32, name string) error {
	return f.setPaused(OpPause, host, port, name, true)
}

func (f *API) Resume(_ context.Context, host string, port int32, name string) error {
	return f.setPaused(OpResume, host, port, name, false)
}

func (f *API) Plugins(_ context.Context, host string, port int32) ([]kafkaconnect.ConnectorPlugin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record(OpPlugins, host, port, ""); err != nil {
		return nil, err
	}
	return slices.Clone(f.plugins), nil
}

func (f *API) setPaused(op, host string, port int32, name string, paused bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record(op, host, port, name); err != nil {
		return err
	}

	c, ok := f.connectorsFor(host, port)[name]
	if !ok {
		return notFound(http.MethodPut, "/connectors/"+name+"/"+op, name)
	}
	c.paused = paused
	return nil
}

// record must be called with f.mu held.
func (f *API) record(op, host string, port int32, name string) error {
	f.calls = append(f.calls, Call{Op: op, Host: host, Port: port, Name: name})
	return f.failures[op]
}

func (f *API) connectorsFor(host string, port int32) map[string]*connector {
	key := net.JoinHostPort(host, strconv.Itoa(int(port)))
	connectors, ok := f.endpoints[key]
	if !ok {
		connectors = map[string]*connector{}
		f.endpoints[key] = connectors
	}
	return connectors
}

func (f *API) namesFor(host string, port int32) []string {
	names := []string{}
	for name := range f.connectorsFor(host, port) {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func notFound(method, path, name string) error {
	return kafkaconnect.NewRESTError(method, path, http.StatusNotFound, fmt.Sprintf("Connector %s not found", name))
}
