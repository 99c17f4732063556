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

// Package kafkaconnect
package kafkaconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// API is the Kafka Connect REST management API of a single Connect cluster,
// addressed by the host and port of its REST endpoint.
//
// Calls are not retried; every non 2xx response is returned as a *RESTError.
type API interface {
	// List returns the names of the connectors known to the cluster.
	List(ctx context.Context, host string, port int32) ([]string, error)

	// CreateOrUpdate creates the connector or replaces its configuration.
	CreateOrUpdate(ctx context.Context, host string, port int32, name string, config map[string]string) error

	// Status returns the runtime status of the connector and its tasks.
	Status(ctx context.Context, host string, port int32, name string) (*ConnectorStatus, error)

	Delete(ctx context.Context, host string, port int32, name string) error
	Pause(ctx context.Context, host string, port int32, name string) error
	Resume(ctx context.Context, host string, port int32, name string) error

	// Plugins returns the connector plugins installed on the workers.
	Plugins(ctx context.Context, host string, port int32) ([]ConnectorPlugin, error)
}

// Connector states reported by Kafka Connect.
const (
	StateRunning    = "RUNNING"
	StatePaused     = "PAUSED"
	StateFailed     = "FAILED"
	StateUnassigned = "UNASSIGNED"
)

type Client struct {
	client *http.Client
	scheme string
}

var _ API = &Client{}

type ConnectorStatus struct {
	Name      string                   `json:"name"`
	Connector ConnectorStatusConnector `json:"connector"`
	Tasks     []ConnectorStatusTask    `json:"tasks"`
	Type      string                   `json:"type,omitempty"`
}

type ConnectorStatusConnector struct {
	State    string `json:"state"`
	WorkerID string `json:"worker_id"`
	Trace    string `json:"trace,omitempty"`
}

type ConnectorStatusTask struct {
	ID       int    `json:"id"`
	State    string `json:"state"`
	WorkerID string `json:"worker_id"`
	Trace    string `json:"trace,omitempty"`
}

type ConnectorPlugin struct {
	Class   string `json:"class"`
	Type    string `json:"type,omitempty"`
	Version string `json:"version,omitempty"`
}

// NewClient create a a http client to interact with kafka connect.
//
// The timeout bounds every single request, a zero timeout
// falls back to 30 seconds.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = time.Second * 30
	}

	client := &http.Client{
		Timeout: timeout,
	}

	return &Client{
		client: client,
		scheme: "http",
	}
}

func (c *Client) List(ctx context.Context, host string, port int32) ([]string, error) {
	names := []string{}
	err := c.do(ctx, http.MethodGet, host, port, "/connectors", nil, &names)
	if err != nil {
		return nil, err
	}

	return names, nil
}

func (c *Client) CreateOrUpdate(ctx context.Context, host string, port int32, name string, config map[string]string) error {
	return c.do(ctx, http.MethodPut, host, port, connectorPath(name, "config"), config, nil)
}

func (c *Client) Status(ctx context.Context, host string, port int32, name string) (*ConnectorStatus, error) {
	status := &ConnectorStatus{}
	err := c.do(ctx, http.MethodGet, host, port, connectorPath(name, "status"), nil, status)
	if err != nil {
		return nil, err
	}

	return status, nil
}

func (c *Client) Delete(ctx context.Context, host string, port int32, name string) error {
	return c.do(ctx, http.MethodDelete, host, port, connectorPath(name, ""), nil, nil)
}

func (c *Client) Pause(ctx context.Context, host string, port int32, name string) error {
	return c.do(ctx, http.MethodPut, host, port, connectorPath(name, "pause"), nil, nil)
}

func (c *Client) Resume(ctx context.Context, host string, port int32, name string) error {
	return c.do(ctx, http.MethodPut, host, port, connectorPath(name, "resume"), nil, nil)
}

func (c *Client) Plugins(ctx context.Context, host string, port int32) ([]ConnectorPlugin, error) {
	plugins := []ConnectorPlugin{}
	err := c.do(ctx, http.MethodGet, host, port, "/connector-plugins", nil, &plugins)
	if err != nil {
		return nil, err
	}

	return plugins, nil
}

func connectorPath(name, action string) string {
	path := "/connectors/" + url.PathEscape(name)
	if action != "" {
		path += "/" + action
	}
	return path
}

func (c *Client) do(ctx context.Context, method, host string, port int32, path string, in any, out any) error {
	u := fmt.Sprintf("%s://%s%s", c.scheme, net.JoinHostPort(host, strconv.Itoa(int(port))), path)

	var body io.Reader
	if in != nil {
		b := &bytes.Buffer{}
		e := json.NewEncoder(b)
		err := e.Encode(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s request: %w", method, path, err)
		}
		body = b
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}

	req.Header.Add("Accept", "application/json")
	if body != nil {
		req.Header.Add("Content-Type", "application/json")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return newRESTError(method, path, res)
	}

	if out == nil {
		return nil
	}

	d := json.NewDecoder(res.Body)
	err = d.Decode(out)
	if err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}

	return nil
}
