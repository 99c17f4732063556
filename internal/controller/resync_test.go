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

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/event"

	kcv1alpha1 "github.com/b1zzu/connect-operator/api/v1alpha1"
)

func names(ch <-chan event.GenericEvent) []string {
	result := []string{}
	for {
		select {
		case e := <-ch:
			result = append(result, e.Object.GetName())
		default:
			return result
		}
	}
}

func TestResyncRunOnce(t *testing.T) {
	scheme := newScheme(t)
	c := newFakeClient(t, scheme,
		newCluster("a", true, true),
		newCluster("b", false, false),
		&kcv1alpha1.ClusterS2I{ObjectMeta: metav1.ObjectMeta{Name: "s", Namespace: testNamespace}},
		newConnector("one", "a"),
		newConnector("two", ""),
	)
	trigger := NewConnectorTrigger(10)
	resync := NewResync(c, 0, trigger, logr.Discard())

	require.NoError(t, resync.RunOnce(context.Background()))

	assert.ElementsMatch(t, []string{"a", "b"}, names(resync.Clusters()))
	assert.Equal(t, []string{"s"}, names(resync.ClusterS2Is()))
	assert.ElementsMatch(t, []string{"one", "two"}, names(trigger.Events()))
}

func TestResyncDisabled(t *testing.T) {
	resync := NewResync(newFakeClient(t, newScheme(t)), 0, NewConnectorTrigger(1), logr.Discard())

	assert.NoError(t, resync.Start(context.Background()))
	assert.True(t, resync.NeedLeaderElection())
}

func TestConnectorTriggerCanceled(t *testing.T) {
	trigger := NewConnectorTrigger(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, trigger.Enqueue(context.Background(), newConnector("one", "a")))
	err := trigger.Enqueue(ctx, newConnector("two", "a"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"one"}, names(trigger.Events()))
}
