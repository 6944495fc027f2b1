package config

import (
	"os"
	"strings"
)

// RenumberOnSnapshot keeps the legacy behavior of kicking a renumber pass on
// every delivered snapshot. When off, renumbering only runs from the explicit
// HTTP trigger and the Pub/Sub push subscription.
//
// Set via env:
// - JOURNAL_RENUMBER_ON_SNAPSHOT=true
func RenumberOnSnapshot() bool {
	return envFlag("JOURNAL_RENUMBER_ON_SNAPSHOT")
}

// ResetSelectionOnSnapshot drops all selection flags whenever a fresh
// snapshot arrives. Default is to carry selection across snapshots by report
// id, so a delete-triggered refresh does not unselect the surviving rows.
//
// Set via env:
// - JOURNAL_RESET_SELECTION=true
func ResetSelectionOnSnapshot() bool {
	return envFlag("JOURNAL_RESET_SELECTION")
}

func envFlag(name string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
