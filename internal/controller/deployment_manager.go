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
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/apiutil"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	kcv1alpha1 "github.com/b1zzu/connect-operator/api/v1alpha1"
	"github.com/b1zzu/connect-operator/pkg/utils"
)

const (
	// serverSideApplyManager the manager id set when performing Server-Side Apply
	serverSideApplyManager = "kafka-connect-operator"
)

// Deployment is the observed state of the workloads running a Kafka Connect cluster.
type Deployment struct {
	// Ready is true when the workers are available.
	Ready bool

	// Message explains why the deployment is not ready.
	Message string

	ServiceName string
	Port        int32
	URL         string
	ConfigHash  string
}

// DeploymentManager creates and updates the workloads of a Kafka Connect cluster.
type DeploymentManager interface {
	Apply(ctx context.Context, cluster kcv1alpha1.ConnectCluster) (*Deployment, error)
}

// ServerSideApplyDeploymentManager applies the worker ConfigMap, Deployment and
// Service of a cluster using Server-Side Apply.
type ServerSideApplyDeploymentManager struct {
	client.Client
	Scheme       *runtime.Scheme
	DefaultImage string
}

var _ DeploymentManager = &ServerSideApplyDeploymentManager{}

// +kubebuilder:rbac:groups=apps,resources=deployments,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=core,resources=configmaps;services,verbs=get;list;watch;create;update;patch;delete

func (m *ServerSideApplyDeploymentManager) Apply(ctx context.Context, cluster kcv1alpha1.ConnectCluster) (*Deployment, error) {
	log := logf.FromContext(ctx)

	gvk, err := apiutil.GVKForObject(cluster, m.Scheme)
	if err != nil {
		return nil, err
	}

	configMapA, configHash := configMapForCluster(cluster, gvk)
	err = m.serverSideApply(ctx, configMapA)
	if err != nil {
		return nil, fmt.Errorf("failed to apply ConfigMap: %w", err)
	}

	deploymentA := deploymentForCluster(cluster, gvk, m.DefaultImage, configHash)
	err = m.serverSideApply(ctx, deploymentA)
	if err != nil {
		return nil, fmt.Errorf("failed to apply Deployment: %w", err)
	}

	serviceA := serviceForCluster(cluster, gvk)
	err = m.serverSideApply(ctx, serviceA)
	if err != nil {
		return nil, fmt.Errorf("failed to apply Service: %w", err)
	}

	deployment := &appsv1.Deployment{}
	err = m.Get(ctx, types.NamespacedName{Name: *deploymentA.Name, Namespace: *deploymentA.Namespace}, deployment)
	if err != nil {
		return nil, fmt.Errorf("failed to get Deployment after apply: %w", err)
	}

	d := &Deployment{
		ServiceName: serviceNameForCluster(cluster),
		Port:        restPort,
		URL:         urlForCluster(cluster),
		ConfigHash:  configHash,
	}
	d.Ready, d.Message = deploymentAvailable(deployment)

	log.V(1).Info("Applied Deployment", "deployment", deployment.Name, "ready", d.Ready, "configHash", configHash)
	return d, nil
}

func (m *ServerSideApplyDeploymentManager) serverSideApply(ctx context.Context, obj runtime.ApplyConfiguration) error {
	return m.Client.Apply(ctx, obj, &client.ApplyOptions{
		Force:        ptr.To(false),
		FieldManager: serverSideApplyManager,
	})
}

// deploymentAvailable copies the Available condition of the Deployment.
func deploymentAvailable(deployment *appsv1.Deployment) (bool, string) {
	if !utils.DeploymentObserved(deployment) {
		return false, fmt.Sprintf("Deployment %s rollout has not been observed yet", deployment.Name)
	}

	available := utils.DeploymentCondition(deployment, appsv1.DeploymentAvailable)
	if available == nil {
		return false, fmt.Sprintf("Deployment %s has no Available condition yet", deployment.Name)
	}
	if available.Status != corev1.ConditionTrue {
		return false, fmt.Sprintf("Deployment %s is not available: %s", deployment.Name, available.Message)
	}
	return true, ""
}
