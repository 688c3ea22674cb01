package util

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	gstr "github.com/savsgio/gotils/strconv"
)

// Hash will take one or more values and return a xxhash calculated value for the input
func Hash(vals ...any) string {
	h := xxhash.New()
	for _, v := range vals {
		h.Write(gstr.S2B(fmt.Sprintf("%+v", v)))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Fingerprint returns the hash of the JSON encoding of the value. Map keys are encoded sorted so equal
// documents have equal fingerprints.
func Fingerprint(val any) string {
	return Hash(JSONStringify(val))
}
