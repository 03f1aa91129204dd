package domain

import "strings"

// CameraDevice identifies one video input device on the host.
type CameraDevice struct {
	ID    string `json:"deviceId"`
	Label string `json:"label"`
}

// IsRearFacing guesses device orientation from its label. Hosts expose no
// structured facing info, so label matching is the best available signal.
func (d CameraDevice) IsRearFacing() bool {
	label := strings.ToLower(d.Label)
	return strings.Contains(label, "back") ||
		strings.Contains(label, "rear") ||
		strings.Contains(label, "environment")
}
