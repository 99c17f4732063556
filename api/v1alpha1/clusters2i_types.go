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

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=kcs2i
// +kubebuilder:printcolumn:name="Replicas",type=integer,JSONPath=`.spec.replicas`
// +kubebuilder:printcolumn:name="Ready",type=string,JSONPath=`.status.conditions[?(@.type=="Ready")].status`

// ClusterS2I is the Schema for the clusters2is API.
// It is a Kafka Connect cluster whose worker image is produced by a source-to-image
// build; connectors bind to it exactly like they bind to a Cluster.
type ClusterS2I struct {
	metav1.TypeMeta `json:",inline"`

	// +optional
	metav1.ObjectMeta `json:"metadata,omitzero"`

	// +required
	Spec *ClusterSpec `json:"spec,omitempty"`

	// +optional
	Status ClusterStatus `json:"status,omitzero"`
}

func (c *ClusterS2I) ConnectSpec() *ClusterSpec     { return c.Spec }
func (c *ClusterS2I) ConnectStatus() *ClusterStatus { return &c.Status }
func (c *ClusterS2I) ResourcePrefix() string        { return c.Name + "-connect-s2i" }

// +kubebuilder:object:root=true

// ClusterS2IList contains a list of ClusterS2I
type ClusterS2IList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitzero"`
	Items           []ClusterS2I `json:"items"`
}

func init() {
	SchemeBuilder.Register(&ClusterS2I{}, &ClusterS2IList{})
}
