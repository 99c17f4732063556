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
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	connectorReconciles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kafka_connect_operator",
		Name:      "connector_reconciles_total",
		Help:      "Connector reconciliations by resulting Ready condition reason.",
	}, []string{"reason"})

	orphanConnectorsDeleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kafka_connect_operator",
		Name:      "orphan_connectors_deleted_total",
		Help:      "Connectors deleted from Kafka Connect because no Connector resource declares them.",
	}, []string{"kind"})

	resyncedResources = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kafka_connect_operator",
		Name:      "resynced_resources_total",
		Help:      "Resources re-enqueued by the periodic full reconciliation.",
	}, []string{"kind"})
)

func init() {
	metrics.Registry.MustRegister(connectorReconciles, orphanConnectorsDeleted, resyncedResources)
}
