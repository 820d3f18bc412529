package domain

import "time"

// AlertState records the last notification sent for one identity. Used to
// suppress repeat alerts across review runs.
type AlertState struct {
	IdentityID  string
	Level       RiskLevel
	LastAlerted time.Time
}
