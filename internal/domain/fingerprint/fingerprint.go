// Package fingerprint derives the stable content hash used to deduplicate
// channel announcements and to correlate a human approval back to its
// pending transaction.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/example/firefly-kresus-sync/internal/domain/ledger"
)

// Sum returns the SHA-256 hex digest of the transaction's canonical
// serialization: a JSON object covering every content field, keys in
// sorted order, the date in ISO form. The digest therefore survives
// process restarts and field reordering, and changing any single field
// changes it.
//
// The ledger id participates when present, so a persisted record and its
// unpersisted twin fingerprint differently.
func Sum(t ledger.Transaction) string {
	var id any
	if t.ID != "" {
		id = t.ID
	}
	canonical := map[string]any{
		"amount":           t.Amount,
		"date":             t.DateString(),
		"description":      t.Description,
		"destination_name": t.DestinationName,
		"source_name":      t.SourceName,
		"transaction_id":   id,
		"type":             string(t.Type),
	}

	data, _ := json.Marshal(canonical)
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}
