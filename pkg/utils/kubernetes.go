// Package utils
package utils

import (
	appsv1 "k8s.io/api/apps/v1"
)

// DeploymentCondition returns the condition of the given type, or nil.
func DeploymentCondition(
	deployment *appsv1.Deployment,
	conditionType appsv1.DeploymentConditionType,
) *appsv1.DeploymentCondition {
	for i := range deployment.Status.Conditions {
		if deployment.Status.Conditions[i].Type == conditionType {
			return &deployment.Status.Conditions[i]
		}
	}

	return nil
}

// DeploymentObserved reports whether the Deployment controller has seen the
// latest spec, so that its conditions describe the current rollout.
func DeploymentObserved(deployment *appsv1.Deployment) bool {
	return deployment.Status.ObservedGeneration >= deployment.Generation
}
