package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent_PaymentSucceeded(t *testing.T) {
	body := []byte(`{
		"event": "payment.succeeded",
		"object": {
			"id": "2f2ad4c7-000f-5000-8000-1f64111bc63e",
			"status": "succeeded",
			"amount": {"value": "499.00", "currency": "RUB"},
			"metadata": {"user_id": "42", "package": "tokens_1000"}
		}
	}`)

	ev, err := ParseEvent(body)
	require.NoError(t, err)
	assert.Equal(t, EventPaymentSucceeded, ev.Kind)
	assert.Equal(t, "2f2ad4c7-000f-5000-8000-1f64111bc63e", ev.ChargeID)
	assert.True(t, ev.HasUserID)
	assert.Equal(t, int64(42), ev.UserID)
	assert.Equal(t, "tokens_1000", ev.Package)
}

func TestParseEvent_MalformedJSON(t *testing.T) {
	_, err := ParseEvent([]byte(`{"event": "payment.succeeded"`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestParseEvent_MissingRequiredFields(t *testing.T) {
	// Well-formed JSON without event/object resolves to unknown, which
	// the handler acknowledges so the gateway stops redelivering.
	ev, err := ParseEvent([]byte(`{"foo": "bar"}`))
	require.NoError(t, err)
	assert.Equal(t, EventUnknown, ev.Kind)
}

func TestParseEvent_UnrecognizedEventName(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"event": "deal.closed", "object": {"id": "x1"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventUnknown, ev.Kind)
	assert.Equal(t, "deal.closed", ev.Name)
}

func TestParseEvent_MissingUserID(t *testing.T) {
	ev, err := ParseEvent([]byte(`{
		"event": "payment.succeeded",
		"object": {"id": "x2", "metadata": {"package": "tokens_500"}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, EventPaymentSucceeded, ev.Kind)
	assert.False(t, ev.HasUserID)
}

func TestAllowlist(t *testing.T) {
	al := NewAllowlist()

	assert.True(t, al.Contains("185.71.76.5"))
	assert.True(t, al.Contains("77.75.156.11"))
	assert.True(t, al.Contains("2a02:5180::1"))

	assert.False(t, al.Contains("10.0.0.1"))
	assert.False(t, al.Contains("185.71.76.200"))
	assert.False(t, al.Contains("not-an-ip"))
	assert.False(t, al.Contains(""))
}

func TestAllowlistFromRanges_SkipsBadPrefixes(t *testing.T) {
	al := NewAllowlistFromRanges([]string{"192.168.0.0/24", "garbage"})
	assert.True(t, al.Contains("192.168.0.10"))
	assert.False(t, al.Contains("192.169.0.10"))
}
