/*
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

package utils

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// MergeProperties returns a new map with the properties of every layer,
// later layers override earlier ones.
func MergeProperties(layers ...map[string]string) map[string]string {
	properties := map[string]string{}
	for _, l := range layers {
		maps.Copy(properties, l)
	}
	return properties
}

// FormatProperties renders properties as a Java properties file with sorted keys.
func FormatProperties(properties map[string]string) string {
	b := &strings.Builder{}
	for _, k := range slices.Sorted(maps.Keys(properties)) {
		fmt.Fprintf(b, "%s=%s\n", k, properties[k])
	}
	return b.String()
}
