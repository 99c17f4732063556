package utils

import (
	"fmt"
	"hash/fnv"
)

// ConfigHash returns a fixed width hash of parts, used to roll workers when
// their rendered configuration changes.
func ConfigHash(parts ...string) string {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
