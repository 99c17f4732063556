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

// Package association resolves the Kafka Connect cluster a Connector is bound to
// through the kafka-connect.b1zzu.net/cluster label.
package association

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	kcv1alpha1 "github.com/b1zzu/connect-operator/api/v1alpha1"
	"github.com/b1zzu/connect-operator/internal/status"
)

// ConnectorClusterIndex is the field index of Connectors by the value of their cluster label.
const ConnectorClusterIndex = "metadata.labels.cluster"

const (
	KindCluster    = "Cluster"
	KindClusterS2I = "ClusterS2I"
)

// Target is a ready cluster whose REST API manages the connector.
type Target struct {
	Kind    string
	Name    string
	Host    string
	Port    int32
	Cluster kcv1alpha1.ConnectCluster
}

// Error is a failed resolution. Its reason is used as the condition reason.
type Error struct {
	reason  string
	message string

	// Cluster is set when the cluster exists but cannot be used.
	Cluster kcv1alpha1.ConnectCluster
}

func (e *Error) Error() string  { return e.message }
func (e *Error) Reason() string { return e.reason }

// Resolve finds the cluster named by the connector label, preferring a Cluster
// over a ClusterS2I of the same name, and checks it can manage connectors.
//
// Errors other than *Error come from the reader.
func Resolve(ctx context.Context, reader client.Reader, connector *kcv1alpha1.Connector) (*Target, error) {
	name := connector.Labels[kcv1alpha1.ClusterLabel]
	if name == "" {
		return nil, &Error{
			reason: status.ReasonMissingAssociation,
			message: fmt.Sprintf("Resource lacks label '%s': No connect cluster in which to create this connector.",
				kcv1alpha1.ClusterLabel),
		}
	}

	cluster, kind, err := getCluster(ctx, reader, types.NamespacedName{Namespace: connector.Namespace, Name: name})
	if err != nil {
		return nil, err
	}
	if cluster == nil {
		return nil, &Error{
			reason: status.ReasonNoSuchResource,
			message: fmt.Sprintf("Cluster resource '%s' identified by label '%s' does not exist in namespace %s.",
				name, kcv1alpha1.ClusterLabel, connector.Namespace),
		}
	}

	if !ManagesConnectors(cluster) {
		return nil, &Error{
			reason: status.ReasonManagementDisabled,
			message: fmt.Sprintf("Cluster '%s' is not configured with annotation %s",
				name, kcv1alpha1.UseConnectorResourcesAnnotation),
			Cluster: cluster,
		}
	}

	host, port, ok := Endpoint(cluster)
	if !ok || !status.IsReady(cluster.ConnectStatus().Conditions) ||
		!status.IsCurrent(cluster.GetGeneration(), cluster.ConnectStatus().ObservedGeneration) {
		return nil, &Error{
			reason:  status.ReasonClusterNotReady,
			message: fmt.Sprintf("Cluster '%s' is not ready", name),
			Cluster: cluster,
		}
	}

	return &Target{
		Kind:    kind,
		Name:    name,
		Host:    host,
		Port:    port,
		Cluster: cluster,
	}, nil
}

// ManagesConnectors reports whether the cluster carries the use-connector-resources annotation.
func ManagesConnectors(cluster kcv1alpha1.ConnectCluster) bool {
	return cluster.GetAnnotations()[kcv1alpha1.UseConnectorResourcesAnnotation] == "true"
}

// Endpoint returns the REST API address published in the cluster status.
func Endpoint(cluster kcv1alpha1.ConnectCluster) (string, int32, bool) {
	s := cluster.ConnectStatus()
	if s.ServiceName == "" || s.Port == 0 {
		return "", 0, false
	}
	return ServiceHost(s.ServiceName, cluster.GetNamespace()), s.Port, true
}

// ServiceHost is the in-cluster DNS name of a Service.
func ServiceHost(name, namespace string) string {
	return fmt.Sprintf("%s.%s.svc", name, namespace)
}

func getCluster(ctx context.Context, reader client.Reader, key types.NamespacedName) (kcv1alpha1.ConnectCluster, string, error) {
	cluster := &kcv1alpha1.Cluster{}
	err := reader.Get(ctx, key, cluster)
	if err == nil {
		return cluster, KindCluster, nil
	}
	if !apierrors.IsNotFound(err) {
		return nil, "", fmt.Errorf("failed to get Cluster %s: %w", key, err)
	}

	s2i := &kcv1alpha1.ClusterS2I{}
	err = reader.Get(ctx, key, s2i)
	if err == nil {
		return s2i, KindClusterS2I, nil
	}
	if !apierrors.IsNotFound(err) {
		return nil, "", fmt.Errorf("failed to get ClusterS2I %s: %w", key, err)
	}

	return nil, "", nil
}

// ConnectorsForCluster returns the connectors whose label resolves to cluster.
//
// Connectors being deleted are included: until their finalizer runs they are
// still desired, and the finalizer alone removes them from Kafka Connect.
// A ClusterS2I shadowed by a Cluster with the same name has no connectors.
func ConnectorsForCluster(ctx context.Context, reader client.Reader, cluster kcv1alpha1.ConnectCluster) ([]kcv1alpha1.Connector, error) {
	if _, ok := cluster.(*kcv1alpha1.ClusterS2I); ok {
		shadow := &kcv1alpha1.Cluster{}
		err := reader.Get(ctx, client.ObjectKeyFromObject(cluster), shadow)
		if err == nil {
			return nil, nil
		}
		if !apierrors.IsNotFound(err) {
			return nil, fmt.Errorf("failed to get Cluster %s: %w", client.ObjectKeyFromObject(cluster), err)
		}
	}

	list := &kcv1alpha1.ConnectorList{}
	err := reader.List(ctx, list,
		client.InNamespace(cluster.GetNamespace()),
		client.MatchingFields{ConnectorClusterIndex: cluster.GetName()})
	if err != nil {
		return nil, fmt.Errorf("failed to list Connectors of %s: %w", cluster.GetName(), err)
	}

	return list.Items, nil
}

// IndexConnectorByCluster is the indexer function of ConnectorClusterIndex.
func IndexConnectorByCluster(obj client.Object) []string {
	name := obj.GetLabels()[kcv1alpha1.ClusterLabel]
	if name == "" {
		return nil
	}
	return []string{name}
}
