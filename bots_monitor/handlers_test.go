package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spyton-bot/internal/storage"
)

func TestGroupPayloadRoundTrip(t *testing.T) {
	for _, gid := range []int64{-1001234567890, -42, 777} {
		got, err := decodeGroupPayload(encodeGroupPayload(gid))
		require.NoError(t, err)
		assert.Equal(t, gid, got)
	}

	// Padded payloads from older deep links still decode.
	padded := encodeGroupPayload(-100500) + "=="
	got, err := decodeGroupPayload(padded)
	require.NoError(t, err)
	assert.Equal(t, int64(-100500), got)

	_, err = decodeGroupPayload("!!not base64!!")
	assert.Error(t, err)
}

func TestStatusText(t *testing.T) {
	text := statusText(&storage.Group{
		GroupID:       -100,
		Enabled:       true,
		Approved:      false,
		MinBuyTON:     2.5,
		TokenSymbol:   "SPY",
		JettonAddress: "EQjetton1",
		StonfiPool:    "EQstonfi1",
	})

	assert.Contains(t, text, "Enabled: yes")
	assert.Contains(t, text, "Approved: no")
	assert.Contains(t, text, "Token: SPY")
	assert.Contains(t, text, "<code>EQjetton1</code>")
	assert.Contains(t, text, "Min buy: 2.50 TON")
	// Unset pool renders as a dash.
	assert.Contains(t, text, "DeDust pool: <code>-</code>")
}

func TestStartWelcomeText(t *testing.T) {
	text := startWelcomeText()
	assert.Contains(t, text, "/addtoken")
	assert.Contains(t, text, "/minbuy")
	assert.Contains(t, text, "/on")
	assert.Contains(t, text, "/status")
}
