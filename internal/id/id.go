// Package id generates prefixed entity identifiers.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Entity prefixes. The prefix makes an id self-describing in logs and
// keeps ids from different tables visually distinct.
const (
	PrefixTag         = "tag"
	PrefixNodeTag     = "ntag"
	PrefixTagRelation = "rel"
	PrefixClient      = "live"
)

// Generate creates an id of the form prefix-nanoid, e.g. "tag-V1StGXR8_Z5jdHi6B-myT".
// NanoIDs never contain ':' so ids are safe inside colon-separated store keys.
func Generate(prefix string) (string, error) {
	nid, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + nid, nil
}

// MustGenerate is like Generate but panics if the system has no entropy.
func MustGenerate(prefix string) string {
	v, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return v
}
