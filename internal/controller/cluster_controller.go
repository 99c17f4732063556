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

// Package controller
package controller

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/utils/ptr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/apiutil"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	"sigs.k8s.io/controller-runtime/pkg/source"

	kcv1alpha1 "github.com/b1zzu/connect-operator/api/v1alpha1"
	"github.com/b1zzu/connect-operator/internal/association"
	"github.com/b1zzu/connect-operator/internal/status"
	kafkaconnect "github.com/b1zzu/connect-operator/pkg/kafka-connect"
)

// orphanDeleteConcurrency bounds the parallel connector deletions of a single cluster.
const orphanDeleteConcurrency = 4

// ClusterReconciler reconciles a Cluster or a ClusterS2I object
type ClusterReconciler struct {
	client.Client
	Scheme *runtime.Scheme

	// NewObject returns an empty object of the reconciled kind.
	NewObject func() kcv1alpha1.ConnectCluster

	Deployments DeploymentManager
	ConnectAPI  kafkaconnect.API

	// Trigger, when set, receives the connectors of every reconciled cluster.
	Trigger *ConnectorTrigger

	MaxConcurrentReconciles int
}

// +kubebuilder:rbac:groups=kafka-connect.b1zzu.net,resources=clusters;clusters2is,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=kafka-connect.b1zzu.net,resources=clusters/status;clusters2is/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=kafka-connect.b1zzu.net,resources=clusters/finalizers;clusters2is/finalizers,verbs=update
// +kubebuilder:rbac:groups=events.k8s.io,resources=events,verbs=create;patch
// +kubebuilder:rbac:groups=core,resources=pods,verbs=get;list;watch

// Reconcile is part of the main kubernetes reconciliation loop which aims to
// move the current state of the cluster closer to the desired state.
//
// For more details, check Reconcile and its Result here:
// - https://pkg.go.dev/sigs.k8s.io/controller-runtime@v0.23.1/pkg/reconcile
func (r *ClusterReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := logf.FromContext(ctx)

	log.V(1).Info("Start Reconcile loop")

	// Get the resource definition from the API
	cluster, err := r.getCluster(ctx, req.NamespacedName)
	if err != nil {
		return ctrl.Result{}, err
	}

	if cluster == nil {
		// The cluster was deleted, owned resources are garbage collected and
		// the connector controller re-evaluates the connectors bound to it
		return ctrl.Result{}, nil
	}

	newStatus, reconcileErr := r.reconcileCluster(ctx, cluster)

	err = r.updateStatus(ctx, cluster, newStatus)
	if err != nil {
		return ctrl.Result{}, err
	}

	err = r.triggerConnectors(ctx, cluster)
	if err != nil {
		return ctrl.Result{}, err
	}

	if reconcileErr != nil {
		return ctrl.Result{}, reconcileErr
	}

	log.V(1).Info("Reconcile completed")
	return ctrl.Result{}, nil
}

// reconcileCluster applies the cluster workloads, removes the connectors no
// resource declares anymore and returns the status to write.
//
// A nil status means only a Kubernetes API error occurred and the status must
// be left untouched. Any returned error requeues the cluster.
func (r *ClusterReconciler) reconcileCluster(ctx context.Context, cluster kcv1alpha1.ConnectCluster) (*kcv1alpha1.ClusterStatus, error) {
	log := logf.FromContext(ctx)
	generation := cluster.GetGeneration()

	newStatus := cluster.ConnectStatus().DeepCopy()
	newStatus.ObservedGeneration = generation

	withCondition := func(c metav1.Condition) *kcv1alpha1.ClusterStatus {
		newStatus.Conditions = status.Replace(cluster.ConnectStatus().Conditions, c)
		return newStatus
	}

	err := validateCluster(cluster)
	if err != nil {
		return withCondition(status.FromError(generation, err)), nil
	}

	deployment, err := r.Deployments.Apply(ctx, cluster)
	if err != nil {
		log.Error(err, "Failed to apply cluster resources")
		return withCondition(status.NotReady(generation, status.ReasonDeploymentError, err.Error())), err
	}

	newStatus.URL = deployment.URL
	newStatus.ServiceName = deployment.ServiceName
	newStatus.Port = deployment.Port
	newStatus.ConfigHash = ptr.To(deployment.ConfigHash)

	if !deployment.Ready {
		return withCondition(status.NotReady(generation, status.ReasonDeploymentNotReady, deployment.Message)), nil
	}

	host := association.ServiceHost(deployment.ServiceName, cluster.GetNamespace())

	plugins, err := r.ConnectAPI.Plugins(ctx, host, deployment.Port)
	if err != nil {
		log.Error(err, "Failed to list connector plugins")
		return withCondition(status.FromError(generation, err)), nil
	}
	newStatus.ConnectorPlugins = connectorPlugins(plugins)

	if association.ManagesConnectors(cluster) {
		// List Kafka Connect before the resources, a connector created in
		// between is then never seen as an orphan
		running, err := r.ConnectAPI.List(ctx, host, deployment.Port)
		if err != nil {
			log.Error(err, "Failed to list connectors")
			return withCondition(status.FromError(generation, err)), nil
		}

		desired, err := association.ConnectorsForCluster(ctx, r.Client, cluster)
		if err != nil {
			return nil, err
		}

		err = r.deleteOrphanConnectors(ctx, cluster, host, deployment.Port, running, desired)
		if err != nil {
			log.Error(err, "Failed to delete orphan connectors")
			return withCondition(status.FromError(generation, err)), nil
		}
	}

	return withCondition(status.Ready(generation, "")), nil
}

// deleteOrphanConnectors deletes from Kafka Connect the running connectors no
// Connector resource bound to the cluster declares.
func (r *ClusterReconciler) deleteOrphanConnectors(
	ctx context.Context,
	cluster kcv1alpha1.ConnectCluster,
	host string,
	port int32,
	running []string,
	desired []kcv1alpha1.Connector,
) error {
	log := logf.FromContext(ctx)

	names := sets.New[string]()
	for _, c := range desired {
		names.Insert(c.Name)
	}

	gvk, err := apiutil.GVKForObject(cluster, r.Scheme)
	if err != nil {
		return err
	}
	kind := kindLabel(gvk)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(orphanDeleteConcurrency)
	for _, name := range running {
		if names.Has(name) {
			continue
		}

		g.Go(func() error {
			log.Info("Delete orphan connector", "connector", name)

			err := r.ConnectAPI.Delete(gctx, host, port, name)
			if err != nil && !kafkaconnect.IsNotFound(err) {
				return err
			}
			orphanConnectorsDeleted.WithLabelValues(kind).Inc()
			return nil
		})
	}

	return g.Wait()
}

// triggerConnectors enqueues every connector bound to the cluster so that
// readiness and management changes reach them.
func (r *ClusterReconciler) triggerConnectors(ctx context.Context, cluster kcv1alpha1.ConnectCluster) error {
	if r.Trigger == nil {
		return nil
	}

	connectors, err := association.ConnectorsForCluster(ctx, r.Client, cluster)
	if err != nil {
		return err
	}

	objs := make([]client.Object, 0, len(connectors))
	for i := range connectors {
		objs = append(objs, &connectors[i])
	}
	return r.Trigger.Enqueue(ctx, objs...)
}

// SetupWithManager sets up the controller with the Manager.
//
// resync, when not nil, is watched for clusters enqueued by the full reconciliation.
func (r *ClusterReconciler) SetupWithManager(mgr ctrl.Manager, resync <-chan event.GenericEvent) error {
	obj := r.NewObject()

	gvk, err := apiutil.GVKForObject(obj, mgr.GetScheme())
	if err != nil {
		return err
	}

	b := ctrl.NewControllerManagedBy(mgr).
		For(obj, builder.WithPredicates(predicate.Or(
			predicate.GenerationChangedPredicate{},
			predicate.AnnotationChangedPredicate{},
		))).
		Owns(&appsv1.Deployment{}).
		Owns(&corev1.Service{}).
		Owns(&corev1.ConfigMap{}).
		WithOptions(controller.Options{MaxConcurrentReconciles: r.MaxConcurrentReconciles}).
		Named(kindLabel(gvk))

	if resync != nil {
		b = b.WatchesRawSource(source.Channel(resync, &handler.EnqueueRequestForObject{}))
	}

	return b.Complete(r)
}

func (r *ClusterReconciler) getCluster(ctx context.Context, key types.NamespacedName) (kcv1alpha1.ConnectCluster, error) {
	log := logf.FromContext(ctx)

	cluster := r.NewObject()
	err := r.Get(ctx, key, cluster)
	if err != nil {
		if apierrors.IsNotFound(err) {
			// This happens when the resource is deleted, in this case
			// we are just letting the kubernetes garbage collector do
			// it's job.
			log.Info("Resource has been deleted")
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get cluster: %w", err)
	}
	return cluster, nil
}

func (r *ClusterReconciler) updateStatus(
	ctx context.Context,
	cluster kcv1alpha1.ConnectCluster,
	newStatus *kcv1alpha1.ClusterStatus,
) error {
	log := logf.FromContext(ctx)

	if newStatus == nil || equality.Semantic.DeepEqual(cluster.ConnectStatus(), newStatus) {
		return nil
	}

	condition := newStatus.Conditions[0]
	log.Info("Update cluster status condition", "type", condition.Type, "status", condition.Status, "reason", condition.Reason)

	*cluster.ConnectStatus() = *newStatus
	err := r.Status().Update(ctx, cluster)
	if err != nil {
		return fmt.Errorf("failed to update cluster status: %w", err)
	}

	return nil
}

func validateCluster(cluster kcv1alpha1.ConnectCluster) error {
	spec := cluster.ConnectSpec()
	if spec == nil {
		return status.InvalidResource("spec property is required")
	}
	if spec.Replicas != nil && *spec.Replicas < 0 {
		return status.InvalidResource("spec.replicas must not be negative")
	}
	return nil
}

func connectorPlugins(plugins []kafkaconnect.ConnectorPlugin) []kcv1alpha1.ConnectorPlugin {
	if len(plugins) == 0 {
		return nil
	}

	result := make([]kcv1alpha1.ConnectorPlugin, 0, len(plugins))
	for _, p := range plugins {
		result = append(result, kcv1alpha1.ConnectorPlugin{Class: p.Class, Type: p.Type, Version: p.Version})
	}
	return result
}
