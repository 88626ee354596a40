package idhash

import (
	"crypto/sha256"
	"strings"

	"github.com/mr-tron/base58"
)

// runIDLength is the truncated base58 length used for run identifiers.
const runIDLength = 16

// ComputeRunID computes a deterministic review-run identifier.
// Formula: base58(SHA256(review_run|generated_at_utc|draft_id...)) truncated
// to 16 characters. Draft IDs must be passed in review order.
func ComputeRunID(generatedAtUTC string, draftIDs []string) string {
	parts := make([]string, 0, len(draftIDs)+2)
	parts = append(parts, "review_run", generatedAtUTC)
	parts = append(parts, draftIDs...)

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	encoded := base58.Encode(hash[:])
	if len(encoded) > runIDLength {
		encoded = encoded[:runIDLength]
	}
	return encoded
}
