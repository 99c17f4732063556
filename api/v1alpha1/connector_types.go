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

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ConnectorSpec defines the desired state of Connector
type ConnectorSpec struct {
	// Java class of the connector, rendered as "connector.class".
	// +optional
	Class string `json:"class,omitempty"`

	// Maximum number of tasks, rendered as "tasks.max".
	// +optional
	// +kubebuilder:validation:Minimum:=1
	TasksMax *int32 `json:"tasksMax,omitempty"`

	// Connector configuration passed to Kafka Connect as is.
	// +optional
	Config map[string]string `json:"config,omitempty"`

	// Whether the connector should be paused.
	// +optional
	Pause bool `json:"pause,omitempty"`
}

// ConnectorState is the state of a connector or task as reported by Kafka Connect.
type ConnectorState struct {
	State    string `json:"state"`
	WorkerID string `json:"workerId,omitempty"`
	// +optional
	Trace string `json:"trace,omitempty"`
}

// TaskState is the state of a single connector task.
type TaskState struct {
	ID             int32 `json:"id"`
	ConnectorState `json:",inline"`
}

// ConnectorRuntimeStatus is the last connector status reported by Kafka Connect.
type ConnectorRuntimeStatus struct {
	Name      string         `json:"name"`
	Connector ConnectorState `json:"connector"`
	// +optional
	Tasks []TaskState `json:"tasks,omitempty"`
}

// ConnectorStatus defines the observed state of Connector.
type ConnectorStatus struct {
	// +listType=map
	// +listMapKey=type
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`

	// The metadata.generation the status was computed for.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// Runtime status of the connector and its tasks.
	// +optional
	ConnectorStatus *ConnectorRuntimeStatus `json:"connectorStatus,omitempty"`

	// Number of tasks currently running for the connector.
	// +optional
	TasksMax int32 `json:"tasksMax,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Cluster",type=string,JSONPath=`.metadata.labels.kafka-connect\.b1zzu\.net/cluster`
// +kubebuilder:printcolumn:name="State",type=string,JSONPath=`.status.connectorStatus.connector.state`
// +kubebuilder:printcolumn:name="Ready",type=string,JSONPath=`.status.conditions[?(@.type=="Ready")].status`

// Connector is the Schema for the connectors API
type Connector struct {
	metav1.TypeMeta `json:",inline"`

	// +optional
	metav1.ObjectMeta `json:"metadata,omitzero"`

	// +required
	Spec *ConnectorSpec `json:"spec,omitempty"`

	// +optional
	Status ConnectorStatus `json:"status,omitzero"`
}

// +kubebuilder:object:root=true

// ConnectorList contains a list of Connector
type ConnectorList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitzero"`
	Items           []Connector `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Connector{}, &ConnectorList{})
}
