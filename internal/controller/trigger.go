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

	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/event"
)

// ConnectorTrigger enqueues connectors into the connector controller from
// outside its own watches.
type ConnectorTrigger struct {
	events chan event.GenericEvent
}

func NewConnectorTrigger(size int) *ConnectorTrigger {
	return &ConnectorTrigger{events: make(chan event.GenericEvent, size)}
}

// Enqueue blocks until every object is queued or ctx is done.
func (t *ConnectorTrigger) Enqueue(ctx context.Context, objs ...client.Object) error {
	for _, obj := range objs {
		err := send(ctx, t.events, obj)
		if err != nil {
			return err
		}
	}
	return nil
}

// Events is the channel consumed by the connector controller.
func (t *ConnectorTrigger) Events() <-chan event.GenericEvent {
	return t.events
}
