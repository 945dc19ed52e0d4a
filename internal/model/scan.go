package model

import "time"

// ScanAttempt is one append-only audit record for a seller scan.
// ErrorMessage is empty when Success is true.
type ScanAttempt struct {
	PlayerID     int64     `json:"player_id"`
	ScanTime     time.Time `json:"scan_time"`
	ItemsFound   int       `json:"items_found"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
}
