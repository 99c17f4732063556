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
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// NOTE: json tags are required.  Any new fields you add must have json tags for the fields to be serialized.

// ClusterSpec defines the desired state of Cluster
type ClusterSpec struct {
	// Number of Kafka Connect replicas to run
	// +optional
	// +kubebuilder:validation:Minimum:=0
	Replicas *int32 `json:"replicas,omitempty"`

	// Container image running the Kafka Connect workers.
	// Defaults to the operator's default image.
	// +optional
	Image string `json:"image,omitempty"`

	// Kafka bootstrap servers the workers connect to.
	// +optional
	BootstrapServers string `json:"bootstrapServers,omitempty"`

	// Kafka Connect configs: https://kafka.apache.org/41/configuration/kafka-connect-configs/
	// +optional
	Config map[string]string `json:"config,omitempty"`
}

// ConnectorPlugin is a connector plugin installed on the Kafka Connect workers.
type ConnectorPlugin struct {
	Class string `json:"class"`
	// +optional
	Type string `json:"type,omitempty"`
	// +optional
	Version string `json:"version,omitempty"`
}

// ClusterStatus defines the observed state of Cluster.
type ClusterStatus struct {
	// conditions represent the current state of the Cluster resource.
	// A single "Ready" condition is maintained and replaced on every reconciliation.
	// +listType=map
	// +listMapKey=type
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`

	// The metadata.generation the status was computed for.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// URL of the Kafka Connect REST API.
	// +optional
	URL string `json:"url,omitempty"`

	// Name of the Service exposing the Kafka Connect REST API.
	// +optional
	ServiceName string `json:"serviceName,omitempty"`

	// Port of the Kafka Connect REST API.
	// +optional
	Port int32 `json:"port,omitempty"`

	// Connector plugins reported by the Kafka Connect REST API.
	// +optional
	ConnectorPlugins []ConnectorPlugin `json:"connectorPlugins,omitempty"`

	// The hash of the Cluster ConfigMap app
	// If no config is applied yet, this will be null.
	// +optional
	ConfigHash *string `json:"configHash,omitempty"`
}

// ConnectCluster is implemented by the resources a Connector can be bound to.
// +kubebuilder:object:generate=false
type ConnectCluster interface {
	client.Object

	ConnectSpec() *ClusterSpec
	ConnectStatus() *ClusterStatus

	// ResourcePrefix is prepended to the names of the resources generated for the cluster.
	ResourcePrefix() string
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Replicas",type=integer,JSONPath=`.spec.replicas`
// +kubebuilder:printcolumn:name="Ready",type=string,JSONPath=`.status.conditions[?(@.type=="Ready")].status`

// Cluster is the Schema for the clusters API
type Cluster struct {
	metav1.TypeMeta `json:",inline"`

	// metadata is a standard object metadata
	// +optional
	metav1.ObjectMeta `json:"metadata,omitzero"`

	// spec defines the desired state of Cluster
	// +required
	Spec *ClusterSpec `json:"spec,omitempty"`

	// status defines the observed state of Cluster
	// +optional
	Status ClusterStatus `json:"status,omitzero"`
}

func (c *Cluster) ConnectSpec() *ClusterSpec     { return c.Spec }
func (c *Cluster) ConnectStatus() *ClusterStatus { return &c.Status }
func (c *Cluster) ResourcePrefix() string        { return c.Name + "-connect" }

// +kubebuilder:object:root=true

// ClusterList contains a list of Cluster
type ClusterList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitzero"`
	Items           []Cluster `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Cluster{}, &ClusterList{})
}
