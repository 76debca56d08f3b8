package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTokenID computes a deterministic token_id using SHA256.
// Formula: SHA256(external_id|symbol)
// Returns hex-encoded hash (64 characters).
func ComputeTokenID(externalID, symbol string) string {
	data := fmt.Sprintf("%s|%s", externalID, symbol)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeLaunchID computes a deterministic launch_id using SHA256.
// Formula: SHA256(token_id|detected_at)
// Returns hex-encoded hash (64 characters).
func ComputeLaunchID(tokenID string, detectedAt int64) string {
	data := fmt.Sprintf("%s|%d", tokenID, detectedAt)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
