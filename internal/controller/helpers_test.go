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

package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/utils/ptr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	kcv1alpha1 "github.com/b1zzu/connect-operator/api/v1alpha1"
	"github.com/b1zzu/connect-operator/internal/association"
	"github.com/b1zzu/connect-operator/internal/status"
	kafkaconnectfake "github.com/b1zzu/connect-operator/pkg/kafka-connect/fake"
)

const testNamespace = "kafka"

func newScheme(t *testing.T) *runtime.Scheme {
	t.Helper()

	scheme := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(scheme))
	require.NoError(t, kcv1alpha1.AddToScheme(scheme))
	return scheme
}

func newFakeClient(t *testing.T, scheme *runtime.Scheme, objs ...client.Object) client.Client {
	t.Helper()

	return fake.NewClientBuilder().
		WithScheme(scheme).
		WithObjects(objs...).
		WithStatusSubresource(&kcv1alpha1.Cluster{}, &kcv1alpha1.ClusterS2I{}, &kcv1alpha1.Connector{}).
		WithIndex(&kcv1alpha1.Connector{}, association.ConnectorClusterIndex, association.IndexConnectorByCluster).
		Build()
}

// clusterHost is the REST API host published by a cluster built by newCluster.
func clusterHost(name string) string {
	return name + "-connect-api." + testNamespace + ".svc"
}

func readyClusterStatus(name string) kcv1alpha1.ClusterStatus {
	return kcv1alpha1.ClusterStatus{
		Conditions:         []metav1.Condition{status.Ready(1, "")},
		ObservedGeneration: 1,
		URL:                "http://" + clusterHost(name) + ":8083",
		ServiceName:        name + "-connect-api",
		Port:               8083,
	}
}

func newCluster(name string, managed, ready bool) *kcv1alpha1.Cluster {
	cluster := &kcv1alpha1.Cluster{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: testNamespace, Generation: 1},
		Spec:       &kcv1alpha1.ClusterSpec{BootstrapServers: "kafka:9092"},
	}
	if managed {
		cluster.Annotations = map[string]string{kcv1alpha1.UseConnectorResourcesAnnotation: "true"}
	}
	if ready {
		cluster.Status = readyClusterStatus(name)
	}
	return cluster
}

func newConnector(name, cluster string) *kcv1alpha1.Connector {
	connector := &kcv1alpha1.Connector{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: testNamespace},
		Spec: &kcv1alpha1.ConnectorSpec{
			Class:    "org.apache.kafka.connect.file.FileStreamSinkConnector",
			TasksMax: ptr.To[int32](1),
			Config:   map[string]string{"topics": "my-topic", "file": "/tmp/out"},
		},
	}
	if cluster != "" {
		connector.Labels = map[string]string{kcv1alpha1.ClusterLabel: cluster}
	}
	return connector
}

func newConnectorReconciler(t *testing.T, c client.Client, api *kafkaconnectfake.API) *ConnectorReconciler {
	t.Helper()

	r, err := NewConnectorReconciler(c, c.Scheme(), api)
	require.NoError(t, err)
	return r
}

func request(name string) ctrl.Request {
	return ctrl.Request{NamespacedName: client.ObjectKey{Namespace: testNamespace, Name: name}}
}

func getConnector(t *testing.T, c client.Client, name string) *kcv1alpha1.Connector {
	t.Helper()

	connector := &kcv1alpha1.Connector{}
	require.NoError(t, c.Get(context.Background(), client.ObjectKey{Namespace: testNamespace, Name: name}, connector))
	return connector
}

func readyCondition(t *testing.T, conditions []metav1.Condition) metav1.Condition {
	t.Helper()

	require.Len(t, conditions, 1)
	require.Equal(t, status.TypeReady, conditions[0].Type)
	return conditions[0]
}
