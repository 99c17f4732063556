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

package kafkaconnect

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// RESTError is a non 2xx response of the Kafka Connect REST API.
type RESTError struct {
	Method     string
	Path       string
	StatusCode int
	Reason     string
	Message    string
}

func (e *RESTError) Error() string {
	return fmt.Sprintf("%s %s returned %d (%s): %s", e.Method, e.Path, e.StatusCode, e.Reason, e.Message)
}

// NewRESTError builds the error for a response with the given status code.
func NewRESTError(method, path string, statusCode int, message string) *RESTError {
	return &RESTError{
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		Reason:     http.StatusText(statusCode),
		Message:    message,
	}
}

// IsNotFound reports whether err is a 404 returned by Kafka Connect.
func IsNotFound(err error) bool {
	var restErr *RESTError
	return errors.As(err, &restErr) && restErr.StatusCode == http.StatusNotFound
}

// TransportError is a request that did not get a response from Kafka Connect.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err is a *TransportError.
func IsTransportError(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// errorBody is the body Kafka Connect sends along with error responses.
type errorBody struct {
	ErrorCode int    `json:"error_code"`
	Message   string `json:"message"`
}

func newRESTError(method, path string, res *http.Response) *RESTError {
	rb, _ := io.ReadAll(res.Body)

	message := strings.TrimSpace(string(rb))
	eb := errorBody{}
	if err := json.Unmarshal(rb, &eb); err == nil && eb.Message != "" {
		message = eb.Message
	}

	return NewRESTError(method, path, res.StatusCode, message)
}
