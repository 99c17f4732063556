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

// Package status builds the conditions written to the status of clusters and connectors.
package status

import (
	"errors"

	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	kafkaconnect "github.com/b1zzu/connect-operator/pkg/kafka-connect"
)

// TypeReady is the only condition type maintained by the operator.
const TypeReady = "Ready"

// Condition reasons.
const (
	ReasonReady                = "Ready"
	ReasonError                = "Error"
	ReasonInvalidResource      = "InvalidResourceException"
	ReasonMissingAssociation   = "MissingAssociation"
	ReasonNoSuchResource       = "NoSuchResourceException"
	ReasonManagementDisabled   = "ManagementDisabled"
	ReasonClusterNotReady      = "ClusterNotReady"
	ReasonConnectRestException = "ConnectRestException"
	ReasonDeploymentNotReady   = "DeploymentNotReady"
	ReasonDeploymentError      = "DeploymentError"
)

// Reasoner is implemented by errors that carry their own condition reason.
type Reasoner interface {
	Reason() string
}

// InvalidResourceError reports a resource whose spec cannot be acted upon.
type InvalidResourceError struct {
	Message string
}

func (e *InvalidResourceError) Error() string { return e.Message }
func (e *InvalidResourceError) Reason() string {
	return ReasonInvalidResource
}

// InvalidResource returns an *InvalidResourceError with the given message.
func InvalidResource(message string) error {
	return &InvalidResourceError{Message: message}
}

// Ready returns a Ready=True condition.
func Ready(generation int64, message string) metav1.Condition {
	return metav1.Condition{
		Type:               TypeReady,
		Status:             metav1.ConditionTrue,
		Reason:             ReasonReady,
		Message:            message,
		ObservedGeneration: generation,
	}
}

// NotReady returns a Ready=False condition.
func NotReady(generation int64, reason, message string) metav1.Condition {
	return metav1.Condition{
		Type:               TypeReady,
		Status:             metav1.ConditionFalse,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: generation,
	}
}

// FromError returns the Ready=False condition describing err.
//
// Errors implementing Reasoner keep their reason, Kafka Connect REST and
// transport errors are reported as ConnectRestException.
func FromError(generation int64, err error) metav1.Condition {
	return NotReady(generation, ReasonFor(err), err.Error())
}

// ReasonFor returns the condition reason for err.
func ReasonFor(err error) string {
	var reasoner Reasoner
	if errors.As(err, &reasoner) {
		return reasoner.Reason()
	}

	var restErr *kafkaconnect.RESTError
	if errors.As(err, &restErr) || kafkaconnect.IsTransportError(err) {
		return ReasonConnectRestException
	}

	return ReasonError
}

// Replace returns the full new set of conditions.
//
// Conditions not listed in conditions are dropped. The lastTransitionTime of
// a condition whose type and status did not change is carried over from existing.
func Replace(existing []metav1.Condition, conditions ...metav1.Condition) []metav1.Condition {
	now := metav1.Now()

	result := make([]metav1.Condition, 0, len(conditions))
	for _, c := range conditions {
		old := meta.FindStatusCondition(existing, c.Type)
		switch {
		case old != nil && old.Status == c.Status && !old.LastTransitionTime.IsZero():
			c.LastTransitionTime = old.LastTransitionTime
		case c.LastTransitionTime.IsZero():
			c.LastTransitionTime = now
		}
		result = append(result, c)
	}

	return result
}

// IsReady reports whether conditions contain Ready=True.
func IsReady(conditions []metav1.Condition) bool {
	return meta.IsStatusConditionTrue(conditions, TypeReady)
}

// IsCurrent reports whether the status was computed for the current generation.
func IsCurrent(generation, observedGeneration int64) bool {
	return generation == observedGeneration
}

// Equal reports whether two condition sets are the same ignoring lastTransitionTime.
func Equal(a, b []metav1.Condition) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Type != b[i].Type ||
			a[i].Status != b[i].Status ||
			a[i].Reason != b[i].Reason ||
			a[i].Message != b[i].Message ||
			a[i].ObservedGeneration != b[i].ObservedGeneration {
			return false
		}
	}
	return true
}
