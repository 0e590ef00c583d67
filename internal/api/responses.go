package api

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

// StatusResponse is the envelope for webhook processing outcomes that
// carry no counters (duplicate, invalid_payload).
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
	Reason string `json:"reason,omitempty"`
}

// BroadcastResponse reports a completed notification fan-out. Sent and
// Failed are always present, zero included.
type BroadcastResponse struct {
	Status string `json:"status" example:"ok"`
	Type   string `json:"type"`
	Sent   int    `json:"sent"`
	Failed int    `json:"failed"`
}
