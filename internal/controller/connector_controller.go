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
	"errors"
	"fmt"
	"strconv"
	"time"

	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/finalizer"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
	"sigs.k8s.io/controller-runtime/pkg/source"

	kcv1alpha1 "github.com/b1zzu/connect-operator/api/v1alpha1"
	"github.com/b1zzu/connect-operator/internal/association"
	"github.com/b1zzu/connect-operator/internal/status"
	kafkaconnect "github.com/b1zzu/connect-operator/pkg/kafka-connect"
	"github.com/b1zzu/connect-operator/pkg/utils"
)

const (
	connectorFinalizer = "kafka-connect.b1zzu.net/connector"

	// pauseRetryDelay is the requeue delay when a connector vanished between
	// its creation and its pause or resume.
	pauseRetryDelay = 5 * time.Second
)

// ConnectorReconciler reconciles a Connector object
type ConnectorReconciler struct {
	client.Client
	Scheme     *runtime.Scheme
	ConnectAPI kafkaconnect.API

	// Trigger, when set, is watched for connectors enqueued by the cluster
	// controllers and the full reconciliation.
	Trigger *ConnectorTrigger

	MaxConcurrentReconciles int

	finalizers finalizer.Finalizers
}

// NewConnectorReconciler returns a ConnectorReconciler with its finalizer registered.
func NewConnectorReconciler(c client.Client, scheme *runtime.Scheme, api kafkaconnect.API) (*ConnectorReconciler, error) {
	r := &ConnectorReconciler{
		Client:     c,
		Scheme:     scheme,
		ConnectAPI: api,
	}

	r.finalizers = finalizer.NewFinalizers()
	if err := r.finalizers.Register(connectorFinalizer, r); err != nil {
		return nil, fmt.Errorf("failed to register finalizer: %w", err)
	}

	return r, nil
}

// +kubebuilder:rbac:groups=kafka-connect.b1zzu.net,resources=connectors,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=kafka-connect.b1zzu.net,resources=connectors/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=kafka-connect.b1zzu.net,resources=connectors/finalizers,verbs=update

// Reconcile drives the connector in the Kafka Connect cluster named by its
// label toward the Connector spec and reports the outcome in a Ready condition.
//
// Failures to talk to Kafka Connect end up in the status and are not retried
// until the next event or full reconciliation; only errors of the Kubernetes
// API are returned.
func (r *ConnectorReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := logf.FromContext(ctx)

	connector, err := r.getConnector(ctx, req.NamespacedName)
	if err != nil || connector == nil {
		return ctrl.Result{}, err
	}

	finalizationResult, err := r.finalizers.Finalize(ctx, connector)
	if err != nil {
		return ctrl.Result{}, fmt.Errorf("failed to finalize: %w", err)
	}
	if finalizationResult.Updated {
		if err = r.Update(ctx, connector); err != nil {
			return ctrl.Result{}, fmt.Errorf("failed to update based on finalization result: %w", err)
		}
	}

	if !connector.DeletionTimestamp.IsZero() {
		return ctrl.Result{}, nil
	}

	newStatus, result, err := r.reconcileConnector(ctx, connector)
	if err != nil || newStatus == nil {
		return result, err
	}

	ready := newStatus.Conditions[0]
	connectorReconciles.WithLabelValues(ready.Reason).Inc()
	log.V(1).Info("Reconciled Connector", "ready", ready.Status, "reason", ready.Reason)

	err = r.updateStatus(ctx, connector, newStatus)
	if err != nil {
		return ctrl.Result{}, err
	}

	return result, nil
}

// reconcileConnector returns the status to write. A nil status with a nil
// error means the status must be left untouched.
func (r *ConnectorReconciler) reconcileConnector(
	ctx context.Context,
	connector *kcv1alpha1.Connector,
) (*kcv1alpha1.ConnectorStatus, ctrl.Result, error) {
	log := logf.FromContext(ctx)
	generation := connector.Generation

	notReady := func(err error) *kcv1alpha1.ConnectorStatus {
		return &kcv1alpha1.ConnectorStatus{
			Conditions:         status.Replace(connector.Status.Conditions, status.FromError(generation, err)),
			ObservedGeneration: generation,
		}
	}

	err := validateConnector(connector)
	if err != nil {
		return notReady(err), ctrl.Result{}, nil
	}

	target, err := association.Resolve(ctx, r.Client, connector)
	if err != nil {
		var resolveErr *association.Error
		if !errors.As(err, &resolveErr) {
			return nil, ctrl.Result{}, err
		}
		return notReady(err), ctrl.Result{}, nil
	}

	log = log.WithValues("cluster", target.Name, "kind", target.Kind)

	err = r.ConnectAPI.CreateOrUpdate(ctx, target.Host, target.Port, connector.Name, connectorConfig(connector))
	if err != nil {
		log.Error(err, "Failed to create or update connector")
		return notReady(err), ctrl.Result{}, nil
	}

	running, err := r.ConnectAPI.Status(ctx, target.Host, target.Port, connector.Name)
	if err != nil {
		log.Error(err, "Failed to get connector status")
		return notReady(err), ctrl.Result{}, nil
	}

	if pauseChange := desiredPauseChange(connector.Spec.Pause, running.Connector.State); pauseChange != nil {
		log.Info("Change connector state", "pause", connector.Spec.Pause, "state", running.Connector.State)

		err = pauseChange(r.ConnectAPI, ctx, target.Host, target.Port, connector.Name)
		if kafkaconnect.IsNotFound(err) {
			log.Info("Connector not found while changing its state, retrying", "after", pauseRetryDelay)
			return nil, ctrl.Result{RequeueAfter: pauseRetryDelay}, nil
		}
		if err != nil {
			log.Error(err, "Failed to change connector state")
			return notReady(err), ctrl.Result{}, nil
		}

		running, err = r.ConnectAPI.Status(ctx, target.Host, target.Port, connector.Name)
		if err != nil {
			log.Error(err, "Failed to get connector status")
			return notReady(err), ctrl.Result{}, nil
		}
	}

	return &kcv1alpha1.ConnectorStatus{
		Conditions:         status.Replace(connector.Status.Conditions, status.Ready(generation, "")),
		ObservedGeneration: generation,
		ConnectorStatus:    runtimeStatus(running),
		TasksMax:           int32(len(running.Tasks)),
	}, ctrl.Result{}, nil
}

type pauseFunc func(api kafkaconnect.API, ctx context.Context, host string, port int32, name string) error

// desiredPauseChange returns the call moving a connector in state toward pause, or nil.
func desiredPauseChange(pause bool, state string) pauseFunc {
	switch {
	case pause && state != kafkaconnect.StatePaused:
		return kafkaconnect.API.Pause
	case !pause && state == kafkaconnect.StatePaused:
		return kafkaconnect.API.Resume
	default:
		return nil
	}
}

// Finalize deletes the connector from the Kafka Connect cluster it resolves to.
//
// Only errors reading the cluster keep the finalizer; a connector that could
// not be deleted from Kafka Connect is removed by the cluster orphan sweep.
func (r *ConnectorReconciler) Finalize(ctx context.Context, obj client.Object) (finalizer.Result, error) {
	log := logf.FromContext(ctx)
	connector := obj.(*kcv1alpha1.Connector)

	target, err := association.Resolve(ctx, r.Client, connector)
	if err != nil {
		var resolveErr *association.Error
		if !errors.As(err, &resolveErr) {
			return finalizer.Result{}, err
		}
		log.Info("Skip connector deletion", "reason", resolveErr.Reason(), "message", resolveErr.Error())
		return finalizer.Result{}, nil
	}

	log.Info("Delete connector", "cluster", target.Name, "kind", target.Kind)

	err = r.ConnectAPI.Delete(ctx, target.Host, target.Port, connector.Name)
	if err != nil && !kafkaconnect.IsNotFound(err) {
		log.Error(err, "Failed to delete connector", "cluster", target.Name)
	}

	return finalizer.Result{}, nil
}

// SetupWithManager sets up the controller with the Manager.
func (r *ConnectorReconciler) SetupWithManager(mgr ctrl.Manager) error {
	b := ctrl.NewControllerManagedBy(mgr).
		For(&kcv1alpha1.Connector{}, builder.WithPredicates(predicate.Or(
			predicate.GenerationChangedPredicate{},
			predicate.LabelChangedPredicate{},
		))).
		Watches(&kcv1alpha1.Cluster{}, handler.EnqueueRequestsFromMapFunc(r.connectorsForCluster)).
		Watches(&kcv1alpha1.ClusterS2I{}, handler.EnqueueRequestsFromMapFunc(r.connectorsForCluster)).
		WithOptions(controller.Options{MaxConcurrentReconciles: r.MaxConcurrentReconciles}).
		Named("connector")

	if r.Trigger != nil {
		b = b.WatchesRawSource(source.Channel(r.Trigger.Events(), &handler.EnqueueRequestForObject{}))
	}

	return b.Complete(r)
}

// connectorsForCluster maps a cluster to every connector labelled with its name,
// whether or not the label currently resolves to it.
func (r *ConnectorReconciler) connectorsForCluster(ctx context.Context, obj client.Object) []reconcile.Request {
	log := logf.FromContext(ctx)

	connectors := &kcv1alpha1.ConnectorList{}
	err := r.List(ctx, connectors,
		client.InNamespace(obj.GetNamespace()),
		client.MatchingFields{association.ConnectorClusterIndex: obj.GetName()})
	if err != nil {
		log.Error(err, "Failed to list Connectors of cluster", "cluster", obj.GetName())
		return nil
	}

	requests := make([]reconcile.Request, 0, len(connectors.Items))
	for _, c := range connectors.Items {
		requests = append(requests, reconcile.Request{NamespacedName: client.ObjectKeyFromObject(&c)})
	}
	return requests
}

func (r *ConnectorReconciler) getConnector(ctx context.Context, key client.ObjectKey) (*kcv1alpha1.Connector, error) {
	log := logf.FromContext(ctx)

	connector := &kcv1alpha1.Connector{}
	err := r.Get(ctx, key, connector)
	if err != nil {
		if apierrors.IsNotFound(err) {
			log.Info("Resource has been deleted")
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get Connector: %w", err)
	}
	return connector, nil
}

func (r *ConnectorReconciler) updateStatus(
	ctx context.Context,
	connector *kcv1alpha1.Connector,
	newStatus *kcv1alpha1.ConnectorStatus,
) error {
	log := logf.FromContext(ctx)

	if equality.Semantic.DeepEqual(connector.Status, *newStatus) {
		return nil
	}

	if status.Equal(connector.Status.Conditions, newStatus.Conditions) {
		log.V(1).Info("Update Connector runtime status")
	} else {
		condition := newStatus.Conditions[0]
		log.Info("Update Connector status condition", "type", condition.Type, "status", condition.Status, "reason", condition.Reason)
	}

	connector.Status = *newStatus
	err := r.Status().Update(ctx, connector)
	if err != nil {
		return fmt.Errorf("failed to update Connector status: %w", err)
	}

	return nil
}

func validateConnector(connector *kcv1alpha1.Connector) error {
	if connector.Spec == nil {
		return status.InvalidResource("spec property is required")
	}
	if connector.Spec.TasksMax != nil && *connector.Spec.TasksMax < 1 {
		return status.InvalidResource("spec.tasksMax must be greater than 0")
	}
	return nil
}

// connectorConfig renders the configuration sent to Kafka Connect.
// class and tasksMax take precedence over the same keys in spec.config.
func connectorConfig(connector *kcv1alpha1.Connector) map[string]string {
	spec := connector.Spec

	fields := map[string]string{}
	if spec.Class != "" {
		fields["connector.class"] = spec.Class
	}
	if spec.TasksMax != nil {
		fields["tasks.max"] = strconv.Itoa(int(*spec.TasksMax))
	}

	return utils.MergeProperties(spec.Config, fields)
}

func runtimeStatus(s *kafkaconnect.ConnectorStatus) *kcv1alpha1.ConnectorRuntimeStatus {
	rs := &kcv1alpha1.ConnectorRuntimeStatus{
		Name: s.Name,
		Connector: kcv1alpha1.ConnectorState{
			State:    s.Connector.State,
			WorkerID: s.Connector.WorkerID,
			Trace:    s.Connector.Trace,
		},
	}
	for _, t := range s.Tasks {
		rs.Tasks = append(rs.Tasks, kcv1alpha1.TaskState{
			ID: int32(t.ID),
			ConnectorState: kcv1alpha1.ConnectorState{
				State:    t.State,
				WorkerID: t.WorkerID,
				Trace:    t.Trace,
			},
		})
	}
	return rs
}
