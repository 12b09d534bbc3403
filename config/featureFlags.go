package config

import (
	"os"
	"strings"
)

// AutoFillDisabled turns off vendor-identifier backfill after match apply.
// Matching itself is unaffected; only the opportunistic copy-back is skipped.
//
// Set via env:
// - AUTO_FILL_DISABLED=true
func AutoFillDisabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("AUTO_FILL_DISABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// OutboxDispatchDisabled stops the background event dispatcher from starting.
// Outbox rows still accumulate and are published once re-enabled.
//
// Set via env:
// - OUTBOX_DISPATCH_DISABLED=true
func OutboxDispatchDisabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("OUTBOX_DISPATCH_DISABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
