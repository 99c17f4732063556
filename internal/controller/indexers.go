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

	"sigs.k8s.io/controller-runtime/pkg/client"

	kcv1alpha1 "github.com/b1zzu/connect-operator/api/v1alpha1"
	"github.com/b1zzu/connect-operator/internal/association"
)

// AddIndexers registers the field indexes the controllers rely on.
func AddIndexers(ctx context.Context, indexer client.FieldIndexer) error {
	err := indexer.IndexField(ctx, &kcv1alpha1.Connector{}, association.ConnectorClusterIndex, association.IndexConnectorByCluster)
	if err != nil {
		return fmt.Errorf("failed to add connector cluster index: %w", err)
	}
	return nil
}
