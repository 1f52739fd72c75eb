package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrivate_AddressesOneParticipant(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("KST", 9*3600))

	e, err := events.NewPrivate("s1", events.EventTypeBudget, events.BudgetPayload{Budget: 40}, at)
	require.NoError(t, err)

	assert.True(t, e.Private())
	assert.Equal(t, "s1", e.To)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, time.UTC, e.Timestamp.Location())
	assert.JSONEq(t, `{"budget":40}`, string(e.Data))
}

func TestEvent_WireFormatOmitsTarget(t *testing.T) {
	e, err := events.NewPrivate("s1", events.EventTypeKicked, events.KickedPayload{Reason: "bye"}, time.Now())
	require.NoError(t, err)

	raw, err := json.Marshal(e)
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.Equal(t, "kicked", wire["type"])
	assert.NotContains(t, wire, "To")
	assert.NotContains(t, wire, "to")
}

func TestParseEventPayload(t *testing.T) {
	e, err := events.New(events.EventTypePrice, events.PricePayload{
		Price:  60,
		Bidder: &events.Bidder{ID: "b", Nickname: "Bora", Avatar: 2},
	}, time.Now())
	require.NoError(t, err)

	payload, err := events.ParseEventPayload(e)
	require.NoError(t, err)

	price, ok := payload.(*events.PricePayload)
	require.True(t, ok)
	assert.Equal(t, 60, price.Price)
	require.NotNil(t, price.Bidder)
	assert.Equal(t, "Bora", price.Bidder.Nickname)

	unknown, err := events.ParseEventPayload(&events.Event{Type: "mystery"})
	assert.NoError(t, err)
	assert.Nil(t, unknown)
}

func TestFanout_PreservesOrderPerEmitter(t *testing.T) {
	var a, b events.Recorder
	fan := events.Fanout{&a, nil, &b}

	for _, typ := range []events.EventType{events.EventTypeRoundStart, events.EventTypePrice, events.EventTypeLog} {
		e, err := events.New(typ, struct{}{}, time.Now())
		require.NoError(t, err)
		fan.Emit(e)
	}

	for _, rec := range []*events.Recorder{&a, &b} {
		got := rec.Events()
		require.Len(t, got, 3)
		assert.Equal(t, events.EventTypeRoundStart, got[0].Type)
		assert.Equal(t, events.EventTypePrice, got[1].Type)
		assert.Equal(t, events.EventTypeLog, got[2].Type)
	}
}
