package events

import (
	"MicroPaper/internal/engine"
)

// Outbound event types.
const (
	TypeTradeExecuted = "trade_executed"
	TypeNoteSettled   = "note_settled"
)

// FromMatchResult expands a committed match run into one trade_executed
// event per trade.
func FromMatchResult(res *engine.MatchResult) []MarketEvent {
	events := make([]MarketEvent, 0, len(res.Trades))
	for _, trade := range res.Trades {
		events = append(events, MarketEvent{
			EventType: TypeTradeExecuted,
			NoteID:    res.NoteID,
			RunID:     res.RunID.String(),
			Payload:   trade,
			Timestamp: res.ExecutedAt,
		})
	}
	return events
}

// FromSettleResult wraps a committed settlement run as a note_settled
// event.
func FromSettleResult(res *engine.SettleResult) MarketEvent {
	return MarketEvent{
		EventType: TypeNoteSettled,
		NoteID:    res.NoteID,
		RunID:     res.RunID.String(),
		Payload:   res,
		Timestamp: res.SettledAt,
	}
}
