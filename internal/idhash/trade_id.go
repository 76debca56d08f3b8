package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(portfolio_id|launch_id|token_id|executed_at)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(portfolioID, launchID, tokenID string, executedAt int64) string {
	data := fmt.Sprintf("%s|%s|%s|%d",
		portfolioID,
		launchID,
		tokenID,
		executedAt,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
