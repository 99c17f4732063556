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
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/event"

	kcv1alpha1 "github.com/b1zzu/connect-operator/api/v1alpha1"
	"github.com/b1zzu/connect-operator/internal/status"
)

const resyncBufferSize = 1024

// Resync periodically re-enqueues every Cluster, ClusterS2I and Connector so
// that drift in Kafka Connect is corrected even without resource events.
type Resync struct {
	reader   client.Reader
	interval time.Duration
	log      logr.Logger

	clusters    chan event.GenericEvent
	clusterS2Is chan event.GenericEvent
	connectors  *ConnectorTrigger
}

func NewResync(reader client.Reader, interval time.Duration, connectors *ConnectorTrigger, log logr.Logger) *Resync {
	return &Resync{
		reader:      reader,
		interval:    interval,
		log:         log,
		clusters:    make(chan event.GenericEvent, resyncBufferSize),
		clusterS2Is: make(chan event.GenericEvent, resyncBufferSize),
		connectors:  connectors,
	}
}

// Clusters is the channel consumed by the cluster controller.
func (r *Resync) Clusters() <-chan event.GenericEvent { return r.clusters }

// ClusterS2Is is the channel consumed by the clusters2i controller.
func (r *Resync) ClusterS2Is() <-chan event.GenericEvent { return r.clusterS2Is }

// NeedLeaderElection implements manager.LeaderElectionRunnable.
func (r *Resync) NeedLeaderElection() bool { return true }

// Start implements manager.Runnable.
func (r *Resync) Start(ctx context.Context) error {
	if r.interval <= 0 {
		r.log.Info("Full reconciliation disabled")
		return nil
	}

	r.log.Info("Starting full reconciliation", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := r.RunOnce(ctx)
			if err != nil && ctx.Err() == nil {
				r.log.Error(err, "Full reconciliation failed")
			}
		}
	}
}

// RunOnce lists every resource and enqueues it into its controller.
func (r *Resync) RunOnce(ctx context.Context) error {
	log := r.log.WithValues("resync", uuid.NewString())

	clusters := &kcv1alpha1.ClusterList{}
	err := r.reader.List(ctx, clusters)
	if err != nil {
		return fmt.Errorf("failed to list Clusters: %w", err)
	}

	clusterS2Is := &kcv1alpha1.ClusterS2IList{}
	err = r.reader.List(ctx, clusterS2Is)
	if err != nil {
		return fmt.Errorf("failed to list ClusterS2Is: %w", err)
	}

	connectors := &kcv1alpha1.ConnectorList{}
	err = r.reader.List(ctx, connectors)
	if err != nil {
		return fmt.Errorf("failed to list Connectors: %w", err)
	}

	for i := range clusters.Items {
		err := send(ctx, r.clusters, &clusters.Items[i])
		if err != nil {
			return err
		}
	}
	resyncedResources.WithLabelValues("cluster").Add(float64(len(clusters.Items)))

	for i := range clusterS2Is.Items {
		err := send(ctx, r.clusterS2Is, &clusterS2Is.Items[i])
		if err != nil {
			return err
		}
	}
	resyncedResources.WithLabelValues("clusters2i").Add(float64(len(clusterS2Is.Items)))

	stale := 0
	objs := make([]client.Object, 0, len(connectors.Items))
	for i := range connectors.Items {
		c := &connectors.Items[i]
		if !status.IsCurrent(c.Generation, c.Status.ObservedGeneration) {
			stale++
		}
		objs = append(objs, c)
	}
	err = r.connectors.Enqueue(ctx, objs...)
	if err != nil {
		return err
	}
	resyncedResources.WithLabelValues("connector").Add(float64(len(connectors.Items)))

	log.Info("Full reconciliation enqueued",
		"clusters", len(clusters.Items),
		"clusterS2Is", len(clusterS2Is.Items),
		"connectors", len(connectors.Items),
		"staleConnectors", stale)
	return nil
}

func send(ctx context.Context, ch chan<- event.GenericEvent, obj client.Object) error {
	select {
	case ch <- event.GenericEvent{Object: obj}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
