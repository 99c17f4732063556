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
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	kcv1alpha1 "github.com/b1zzu/connect-operator/api/v1alpha1"
	"github.com/b1zzu/connect-operator/internal/status"
	kafkaconnect "github.com/b1zzu/connect-operator/pkg/kafka-connect"
	kafkaconnectfake "github.com/b1zzu/connect-operator/pkg/kafka-connect/fake"
)

func TestConnectorMissingLabel(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient(t, newScheme(t), newConnector("my-sink", ""))
	api := kafkaconnectfake.New()
	r := newConnectorReconciler(t, c, api)

	result, err := r.Reconcile(ctx, request("my-sink"))
	require.NoError(t, err)
	assert.Equal(t, reconcile.Result{}, result)

	connector := getConnector(t, c, "my-sink")
	ready := readyCondition(t, connector.Status.Conditions)
	assert.Equal(t, metav1.ConditionFalse, ready.Status)
	assert.Equal(t, status.ReasonMissingAssociation, ready.Reason)
	assert.Equal(t, "Resource lacks label 'kafka-connect.b1zzu.net/cluster': No connect cluster in which to create this connector.", ready.Message)
	assert.Equal(t, connector.Generation, connector.Status.ObservedGeneration)
	assert.True(t, controllerutil.ContainsFinalizer(connector, connectorFinalizer))
	assert.Empty(t, api.Calls())
}

func TestConnectorClusterCreatedLater(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient(t, newScheme(t), newConnector("my-sink", "my"))
	api := kafkaconnectfake.New()
	r := newConnectorReconciler(t, c, api)

	_, err := r.Reconcile(ctx, request("my-sink"))
	require.NoError(t, err)

	connector := getConnector(t, c, "my-sink")
	ready := readyCondition(t, connector.Status.Conditions)
	assert.Equal(t, metav1.ConditionFalse, ready.Status)
	assert.Equal(t, status.ReasonNoSuchResource, ready.Reason)
	assert.Equal(t, "Cluster resource 'my' identified by label 'kafka-connect.b1zzu.net/cluster' does not exist in namespace kafka.", ready.Message)
	assert.Empty(t, api.Calls())

	cluster := newCluster("my", true, false)
	require.NoError(t, c.Create(ctx, cluster))
	cluster.Status = readyClusterStatus("my")
	require.NoError(t, c.Status().Update(ctx, cluster))

	_, err = r.Reconcile(ctx, request("my-sink"))
	require.NoError(t, err)

	connector = getConnector(t, c, "my-sink")
	ready = readyCondition(t, connector.Status.Conditions)
	assert.Equal(t, metav1.ConditionTrue, ready.Status)
	assert.Equal(t, status.ReasonReady, ready.Reason)
	assert.Equal(t, 1, api.Count(kafkaconnectfake.OpCreateOrUpdate, clusterHost("my"), 8083, "my-sink"))
	assert.Equal(t, []string{"my-sink"}, api.Connectors(clusterHost("my"), 8083))

	require.NotNil(t, connector.Status.ConnectorStatus)
	assert.Equal(t, "my-sink", connector.Status.ConnectorStatus.Name)
	assert.Equal(t, kafkaconnect.StateRunning, connector.Status.ConnectorStatus.Connector.State)
	assert.Len(t, connector.Status.ConnectorStatus.Tasks, 1)
	assert.Equal(t, int32(1), connector.Status.TasksMax)
}

func TestConnectorConfig(t *testing.T) {
	ctx := context.Background()
	connector := newConnector("my-sink", "my")
	connector.Spec.Config["tasks.max"] = "10"
	c := newFakeClient(t, newScheme(t), newCluster("my", true, true), connector)
	api := kafkaconnectfake.New()
	r := newConnectorReconciler(t, c, api)

	_, err := r.Reconcile(ctx, request("my-sink"))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"connector.class": "org.apache.kafka.connect.file.FileStreamSinkConnector",
		"tasks.max":       "1",
		"topics":          "my-topic",
		"file":            "/tmp/out",
	}, api.Config(clusterHost("my"), 8083, "my-sink"))
}

func TestConnectorIdempotent(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient(t, newScheme(t), newCluster("my", true, true), newConnector("my-sink", "my"))
	api := kafkaconnectfake.New()
	r := newConnectorReconciler(t, c, api)

	_, err := r.Reconcile(ctx, request("my-sink"))
	require.NoError(t, err)
	first := getConnector(t, c, "my-sink")

	_, err = r.Reconcile(ctx, request("my-sink"))
	require.NoError(t, err)
	second := getConnector(t, c, "my-sink")

	assert.Equal(t, first.ResourceVersion, second.ResourceVersion, "status must not be rewritten when unchanged")
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, []string{"my-sink"}, api.Connectors(clusterHost("my"), 8083))
	assert.Zero(t, api.Count(kafkaconnectfake.OpPause, clusterHost("my"), 8083, "my-sink"))
	assert.Zero(t, api.Count(kafkaconnectfake.OpResume, clusterHost("my"), 8083, "my-sink"))
}

func TestConnectorPauseResume(t *testing.T) {
	ctx := context.Background()
	connector := newConnector("my-sink", "my")
	connector.Spec.Pause = true
	c := newFakeClient(t, newScheme(t), newCluster("my", true, true), connector)
	api := kafkaconnectfake.New()
	r := newConnectorReconciler(t, c, api)
	host := clusterHost("my")

	_, err := r.Reconcile(ctx, request("my-sink"))
	require.NoError(t, err)

	connector = getConnector(t, c, "my-sink")
	assert.Equal(t, metav1.ConditionTrue, readyCondition(t, connector.Status.Conditions).Status)
	assert.Equal(t, kafkaconnect.StatePaused, connector.Status.ConnectorStatus.Connector.State)
	assert.Equal(t, 1, api.Count(kafkaconnectfake.OpPause, host, 8083, "my-sink"))

	_, err = r.Reconcile(ctx, request("my-sink"))
	require.NoError(t, err)
	assert.Equal(t, 1, api.Count(kafkaconnectfake.OpPause, host, 8083, "my-sink"), "a paused connector is not paused again")

	connector = getConnector(t, c, "my-sink")
	connector.Spec.Pause = false
	require.NoError(t, c.Update(ctx, connector))

	_, err = r.Reconcile(ctx, request("my-sink"))
	require.NoError(t, err)

	connector = getConnector(t, c, "my-sink")
	assert.Equal(t, kafkaconnect.StateRunning, connector.Status.ConnectorStatus.Connector.State)
	assert.Equal(t, 1, api.Count(kafkaconnectfake.OpResume, host, 8083, "my-sink"))
	assert.Equal(t, 1, api.Count(kafkaconnectfake.OpPause, host, 8083, "my-sink"))
}

func TestConnectorPauseNotFoundRequeues(t *testing.T) {
	ctx := context.Background()
	connector := newConnector("my-sink", "my")
	connector.Spec.Pause = true
	c := newFakeClient(t, newScheme(t), newCluster("my", true, true), connector)
	api := kafkaconnectfake.New()
	api.FailOn(kafkaconnectfake.OpPause, kafkaconnect.NewRESTError(http.MethodPut, "/connectors/my-sink/pause", http.StatusNotFound, "Connector my-sink not found"))
	r := newConnectorReconciler(t, c, api)

	result, err := r.Reconcile(ctx, request("my-sink"))
	require.NoError(t, err)
	assert.Equal(t, pauseRetryDelay, result.RequeueAfter)

	connector = getConnector(t, c, "my-sink")
	assert.Empty(t, connector.Status.Conditions, "no failure is reported for a transient not found")
}

func TestConnectorRESTError(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient(t, newScheme(t), newCluster("my", true, true), newConnector("my-sink", "my"))
	api := kafkaconnectfake.New()
	api.FailOn(kafkaconnectfake.OpCreateOrUpdate, kafkaconnect.NewRESTError(http.MethodPut, "/connectors/my-sink/config", http.StatusInternalServerError, "Request timed out"))
	r := newConnectorReconciler(t, c, api)

	result, err := r.Reconcile(ctx, request("my-sink"))
	require.NoError(t, err, "Kafka Connect errors are reported in the status only")
	assert.Equal(t, reconcile.Result{}, result)

	connector := getConnector(t, c, "my-sink")
	ready := readyCondition(t, connector.Status.Conditions)
	assert.Equal(t, metav1.ConditionFalse, ready.Status)
	assert.Equal(t, status.ReasonConnectRestException, ready.Reason)
	assert.Equal(t, "PUT /connectors/my-sink/config returned 500 (Internal Server Error): Request timed out", ready.Message)
	assert.Nil(t, connector.Status.ConnectorStatus)

	api.FailOn(kafkaconnectfake.OpCreateOrUpdate, nil)
	_, err = r.Reconcile(ctx, request("my-sink"))
	require.NoError(t, err)

	connector = getConnector(t, c, "my-sink")
	ready = readyCondition(t, connector.Status.Conditions)
	assert.Equal(t, metav1.ConditionTrue, ready.Status)
}

func TestConnectorNotReadyCluster(t *testing.T) {
	tests := []struct {
		name    string
		cluster client.Object
		reason  string
		message string
	}{
		{
			name:    "management disabled",
			cluster: newCluster("my", false, true),
			reason:  status.ReasonManagementDisabled,
			message: "Cluster 'my' is not configured with annotation kafka-connect.b1zzu.net/use-connector-resources",
		},
		{
			name:    "cluster not ready",
			cluster: newCluster("my", true, false),
			reason:  status.ReasonClusterNotReady,
			message: "Cluster 'my' is not ready",
		},
		{
			name: "s2i cluster not ready",
			cluster: &kcv1alpha1.ClusterS2I{
				ObjectMeta: metav1.ObjectMeta{
					Name:        "my",
					Namespace:   testNamespace,
					Annotations: map[string]string{kcv1alpha1.UseConnectorResourcesAnnotation: "true"},
				},
				Spec: &kcv1alpha1.ClusterSpec{},
				Status: kcv1alpha1.ClusterStatus{
					Conditions: []metav1.Condition{status.NotReady(1, status.ReasonDeploymentNotReady, "")},
				},
			},
			reason:  status.ReasonClusterNotReady,
			message: "Cluster 'my' is not ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			c := newFakeClient(t, newScheme(t), tt.cluster, newConnector("my-sink", "my"))
			api := kafkaconnectfake.New()
			r := newConnectorReconciler(t, c, api)

			_, err := r.Reconcile(ctx, request("my-sink"))
			require.NoError(t, err)

			connector := getConnector(t, c, "my-sink")
			ready := readyCondition(t, connector.Status.Conditions)
			assert.Equal(t, metav1.ConditionFalse, ready.Status)
			assert.Equal(t, tt.reason, ready.Reason)
			assert.Equal(t, tt.message, ready.Message)
			assert.Empty(t, api.Calls())
		})
	}
}

func TestConnectorInvalidSpec(t *testing.T) {
	noSpec := newConnector("my-sink", "my")
	noSpec.Spec = nil

	zeroTasks := newConnector("my-sink", "my")
	zeroTasks.Spec.TasksMax = ptr.To[int32](0)

	tests := []struct {
		name      string
		connector *kcv1alpha1.Connector
		message   string
	}{
		{name: "missing spec", connector: noSpec, message: "spec property is required"},
		{name: "zero tasks", connector: zeroTasks, message: "spec.tasksMax must be greater than 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			c := newFakeClient(t, newScheme(t), newCluster("my", true, true), tt.connector)
			api := kafkaconnectfake.New()
			r := newConnectorReconciler(t, c, api)

			_, err := r.Reconcile(ctx, request("my-sink"))
			require.NoError(t, err)

			connector := getConnector(t, c, "my-sink")
			ready := readyCondition(t, connector.Status.Conditions)
			assert.Equal(t, metav1.ConditionFalse, ready.Status)
			assert.Equal(t, status.ReasonInvalidResource, ready.Reason)
			assert.Equal(t, tt.message, ready.Message)
			assert.Empty(t, api.Calls())
		})
	}
}

func TestConnectorDelete(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient(t, newScheme(t), newCluster("my", true, true), newConnector("my-sink", "my"))
	api := kafkaconnectfake.New()
	r := newConnectorReconciler(t, c, api)
	host := clusterHost("my")

	_, err := r.Reconcile(ctx, request("my-sink"))
	require.NoError(t, err)
	require.Equal(t, []string{"my-sink"}, api.Connectors(host, 8083))

	require.NoError(t, c.Delete(ctx, getConnector(t, c, "my-sink")))

	_, err = r.Reconcile(ctx, request("my-sink"))
	require.NoError(t, err)

	assert.Equal(t, 1, api.Count(kafkaconnectfake.OpDelete, host, 8083, "my-sink"))
	assert.Empty(t, api.Connectors(host, 8083))

	err = c.Get(ctx, client.ObjectKey{Namespace: testNamespace, Name: "my-sink"}, &kcv1alpha1.Connector{})
	assert.True(t, apierrors.IsNotFound(err), "finalizer is released")
}

func deletingConnector(name, cluster string) *kcv1alpha1.Connector {
	connector := newConnector(name, cluster)
	connector.Finalizers = []string{connectorFinalizer}
	connector.DeletionTimestamp = ptr.To(metav1.Now())
	return connector
}

func TestConnectorDeleteAlreadyGoneFromKafkaConnect(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient(t, newScheme(t), newCluster("my", true, true), deletingConnector("my-sink", "my"))
	api := kafkaconnectfake.New()
	r := newConnectorReconciler(t, c, api)

	_, err := r.Reconcile(ctx, request("my-sink"))
	require.NoError(t, err)

	assert.Equal(t, 1, api.Count(kafkaconnectfake.OpDelete, clusterHost("my"), 8083, "my-sink"))
	err = c.Get(ctx, client.ObjectKey{Namespace: testNamespace, Name: "my-sink"}, &kcv1alpha1.Connector{})
	assert.True(t, apierrors.IsNotFound(err))
}

func TestConnectorDeleteWithoutCluster(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient(t, newScheme(t), deletingConnector("my-sink", "my"))
	api := kafkaconnectfake.New()
	r := newConnectorReconciler(t, c, api)

	_, err := r.Reconcile(ctx, request("my-sink"))
	require.NoError(t, err)

	assert.Empty(t, api.Calls(), "no cluster, nothing to delete from")
	err = c.Get(ctx, client.ObjectKey{Namespace: testNamespace, Name: "my-sink"}, &kcv1alpha1.Connector{})
	assert.True(t, apierrors.IsNotFound(err))
}

func TestConnectorDeleteRESTErrorReleasesFinalizer(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient(t, newScheme(t), newCluster("my", true, true), deletingConnector("my-sink", "my"))
	api := kafkaconnectfake.New()
	api.Add(clusterHost("my"), 8083, "my-sink", false)
	api.FailOn(kafkaconnectfake.OpDelete, kafkaconnect.NewRESTError(http.MethodDelete, "/connectors/my-sink", http.StatusConflict, "rebalance in progress"))
	r := newConnectorReconciler(t, c, api)

	_, err := r.Reconcile(ctx, request("my-sink"))
	require.NoError(t, err)

	err = c.Get(ctx, client.ObjectKey{Namespace: testNamespace, Name: "my-sink"}, &kcv1alpha1.Connector{})
	assert.True(t, apierrors.IsNotFound(err))
	assert.Equal(t, []string{"my-sink"}, api.Connectors(clusterHost("my"), 8083), "left for the cluster orphan sweep")
}

func TestConnectorsForClusterMapping(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient(t, newScheme(t),
		newConnector("one", "my"),
		newConnector("two", "my"),
		newConnector("three", "other"),
		newConnector("four", ""),
	)
	r := newConnectorReconciler(t, c, kafkaconnectfake.New())

	requests := r.connectorsForCluster(ctx, newCluster("my", true, true))
	assert.ElementsMatch(t, []reconcile.Request{request("one"), request("two")}, requests)

	// deleted and shadowed clusters still map to every labelled connector
	s2i := &kcv1alpha1.ClusterS2I{ObjectMeta: metav1.ObjectMeta{Name: "other", Namespace: testNamespace}}
	assert.Equal(t, []reconcile.Request{request("three")}, r.connectorsForCluster(ctx, s2i))
}

func TestDesiredPauseChange(t *testing.T) {
	assert.Nil(t, desiredPauseChange(false, kafkaconnect.StateRunning))
	assert.Nil(t, desiredPauseChange(true, kafkaconnect.StatePaused))
	assert.Nil(t, desiredPauseChange(false, kafkaconnect.StateFailed))
	assert.NotNil(t, desiredPauseChange(true, kafkaconnect.StateRunning))
	assert.NotNil(t, desiredPauseChange(true, kafkaconnect.StateFailed))
	assert.NotNil(t, desiredPauseChange(false, kafkaconnect.StatePaused))
}
