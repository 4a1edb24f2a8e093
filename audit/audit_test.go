package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeEventHash_Deterministic(t *testing.T) {
	data := map[string]any{"job_id": "j1", "role": "read"}
	h1, err := ComputeEventHash(EventSessionCreated, data, "")
	require.NoError(t, err)
	h2, err := ComputeEventHash(EventSessionCreated, data, "")
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.NotEmpty(t, h1)
}

func TestComputeEventHash_SensitiveToPrevHash(t *testing.T) {
	data := map[string]any{"job_id": "j1"}
	h1, err := ComputeEventHash(EventSessionCreated, data, "")
	require.NoError(t, err)
	h2, err := ComputeEventHash(EventSessionCreated, data, "deadbeef")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestVerifyChain_ValidChain(t *testing.T) {
	e1Data := map[string]any{"seq": float64(1)}
	h1, err := ComputeEventHash(EventSetupCompleted, e1Data, "")
	require.NoError(t, err)

	e2Data := map[string]any{"seq": float64(2)}
	h2, err := ComputeEventHash(EventSessionCreated, e2Data, h1)
	require.NoError(t, err)

	events := []Event{
		{EventType: EventSetupCompleted, EventData: e1Data, EventHash: h1},
		{EventType: EventSessionCreated, EventData: e2Data, PrevHash: h1, EventHash: h2},
	}

	ok, err := VerifyChain(events)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyChain_TamperedEventBreaksChain(t *testing.T) {
	e1Data := map[string]any{"seq": float64(1)}
	h1, err := ComputeEventHash(EventSetupCompleted, e1Data, "")
	require.NoError(t, err)

	events := []Event{
		{EventType: EventSetupCompleted, EventData: e1Data, EventHash: h1},
		{EventType: EventSessionCreated, EventData: map[string]any{"tampered": true}, PrevHash: "wrong-prev", EventHash: "bogus"},
	}

	ok, err := VerifyChain(events)
	require.NoError(t, err)
	assert.False(t, ok)
}
