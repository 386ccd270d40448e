package gesture

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventJSONKeepsCellZero(t *testing.T) {
	t.Parallel()

	event := Event{
		ID:         "x",
		Kind:       KindZone,
		Subject:    1,
		Type:       TypePulseZone,
		Strength:   0.5,
		Cell:       0,
		UnixMillis: 123,
	}

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	// The top-left grid cell is index 0; sinks must still see it.
	require.Contains(t, decoded, "cell")
	assert.EqualValues(t, 0, decoded["cell"])
}

func TestEventJSONCellSentinel(t *testing.T) {
	t.Parallel()

	event := Event{
		ID:         "y",
		Kind:       KindVoice,
		Subject:    2,
		Type:       TypeRaise,
		Strength:   1.0,
		Cell:       -1,
		UnixMillis: 456,
	}

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.EqualValues(t, -1, decoded["cell"], "whole-subject events carry the -1 sentinel")
}
