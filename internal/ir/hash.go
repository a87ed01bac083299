package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSolution = "ibis/solution/v1"
	DomainDocument = "ibis/document/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Edge is a directed pair of node handles as seen by the digest functions.
type Edge struct {
	From uint32
	To   uint32
}

// EdgeSetDigest computes the content address of an edge set.
// Edges must already be sorted and free of duplicates; the solution store
// guarantees both.
func EdgeSetDigest(edges []Edge) string {
	arr := make([]any, len(edges))
	for i, e := range edges {
		arr[i] = []any{e.From, e.To}
	}
	data, err := MarshalCanonical(arr)
	if err != nil {
		// uint32 pairs always marshal
		panic(err)
	}
	return hashWithDomain(DomainSolution, data)
}

// DocumentDigest computes the content address of a decoded input document.
// The value must consist of canonical-JSON-compatible Go values.
func DocumentDigest(doc any) (string, error) {
	data, err := MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("DocumentDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDocument, data), nil
}
