/*
Copyright 2026.

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

package config

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"
)

// ValidationError is a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors collects every invalid field of a configuration.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 1 {
		return ve[0].Error()
	}

	messages := make([]string, 0, len(ve))
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

func (ve *ValidationErrors) add(field, format string, args ...any) {
	*ve = append(*ve, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate returns a ValidationErrors listing every invalid field, or nil.
func (c *OperatorConfig) Validate() error {
	errs := ValidationErrors{}

	for _, ns := range c.Namespaces {
		for _, msg := range validation.IsDNS1123Label(ns) {
			errs.add("namespaces", "%q %s", ns, msg)
		}
	}
	if c.FullReconciliationInterval.Duration < 0 {
		errs.add("fullReconciliationInterval", "must not be negative")
	}
	if c.MaxConcurrentReconciles < 1 {
		errs.add("maxConcurrentReconciles", "must be greater than 0")
	}
	if c.ConnectRequestTimeout.Duration <= 0 {
		errs.add("connectRequestTimeout", "must be greater than 0")
	}
	if c.DefaultImage == "" {
		errs.add("defaultImage", "is required")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
