package gateway

import (
	"encoding/json"
	"errors"
	"strconv"
)

// EventKind is the closed set of gateway notifications we recognize.
// Anything else maps to EventUnknown, which is acknowledged and ignored:
// the gateway retries any non-2xx response forever, so an event we will
// never handle must still be answered with success.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventPaymentSucceeded
	EventPaymentCanceled
	EventPaymentWaitingForCapture
	EventRefundSucceeded
)

var ErrMalformedPayload = errors.New("malformed webhook payload")

// rawEvent mirrors the gateway's wire shape: {"event": ..., "object": ...}.
type rawEvent struct {
	Event  string `json:"event"`
	Object struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Amount struct {
			Value    string `json:"value"`
			Currency string `json:"currency"`
		} `json:"amount"`
		Description string            `json:"description"`
		Metadata    map[string]string `json:"metadata"`
	} `json:"object"`
}

// Event is the parsed, typed form handed to the processor.
type Event struct {
	Kind        EventKind
	Name        string
	ChargeID    string
	UserID      int64
	HasUserID   bool
	Package     string
	Description string
}

// ParseEvent decodes a gateway delivery. Malformed JSON is an error
// (400 to the gateway); well-formed JSON without the required fields
// comes back as EventUnknown so the transport can acknowledge it.
func ParseEvent(body []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return Event{}, ErrMalformedPayload
	}

	ev := Event{Name: raw.Event, ChargeID: raw.Object.ID, Description: raw.Object.Description}

	if raw.Event == "" || raw.Object.ID == "" {
		return ev, nil
	}

	switch raw.Event {
	case "payment.succeeded":
		ev.Kind = EventPaymentSucceeded
	case "payment.canceled":
		ev.Kind = EventPaymentCanceled
	case "payment.waiting_for_capture":
		ev.Kind = EventPaymentWaitingForCapture
	case "refund.succeeded":
		ev.Kind = EventRefundSucceeded
	default:
		ev.Kind = EventUnknown
		return ev, nil
	}

	if userID, ok := raw.Object.Metadata["user_id"]; ok {
		if parsed, err := strconv.ParseInt(userID, 10, 64); err == nil {
			ev.UserID = parsed
			ev.HasUserID = true
		}
	}
	ev.Package = raw.Object.Metadata["package"]

	return ev, nil
}
