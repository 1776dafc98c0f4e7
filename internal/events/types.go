// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// EventType represents the type of event.
type EventType string

const (
	// Curve and pool lifecycle
	CurveCreated    EventType = "curve.created"
	CurveUpdated    EventType = "curve.updated"
	PoolInitialized EventType = "pool.initialized"
	PoolUpdated     EventType = "pool.updated"
	PoolClosed      EventType = "pool.closed"

	// Value movement
	TradeExecuted       EventType = "trade.executed"
	ReservesTransferred EventType = "reserves.transferred"

	// Host
	InstructionFailed EventType = "instruction.failed"
)

// Side of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// NewBase stamps an event with the host clock (unix seconds).
func NewBase(t EventType, unix int64) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Unix(unix, 0).UTC()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType { return e.EventType }

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time { return e.EventTime }

// CurveCreatedEvent is emitted when a curve record is stored.
type CurveCreatedEvent struct {
	BaseEvent
	Curve      solana.PublicKey
	Definition string
}

// CurveUpdatedEvent is emitted when a pool is repointed to a new curve.
type CurveUpdatedEvent struct {
	BaseEvent
	Pool     solana.PublicKey
	OldCurve solana.PublicKey
	NewCurve solana.PublicKey
}

// PoolInitializedEvent is emitted when a bonding pool becomes active.
type PoolInitializedEvent struct {
	BaseEvent
	Pool        solana.PublicKey
	Curve       solana.PublicKey
	TargetMint  solana.PublicKey
	ReserveMint solana.PublicKey
	Vault       solana.PublicKey
}

// PoolUpdatedEvent is emitted for authority-gated field changes.
type PoolUpdatedEvent struct {
	BaseEvent
	Pool   solana.PublicKey
	Signer solana.PublicKey
	Change string // "pool", "reserve_authority"
}

// PoolClosedEvent is emitted when a pool reaches its terminal state.
type PoolClosedEvent struct {
	BaseEvent
	Pool   solana.PublicKey
	Refund solana.PublicKey
	Swept  uint64
}

// TradeExecutedEvent is emitted for every committed buy or sell.
type TradeExecutedEvent struct {
	BaseEvent
	Pool   solana.PublicKey
	Trader solana.PublicKey
	Side   Side
	// TargetAmount is minted on buy and burned on sell, in target base units.
	TargetAmount uint64
	// ReserveAmount is the curve cost (buy) or gross proceeds (sell) before fees.
	ReserveAmount uint64
	Fee           uint64
	SupplyAfter   uint64
	// SpotPrice after the trade, decimal string in whole reserve units.
	SpotPrice string
}

// ReservesTransferredEvent is emitted when the reserve authority withdraws.
type ReservesTransferredEvent struct {
	BaseEvent
	Pool        solana.PublicKey
	Destination solana.PublicKey
	Amount      uint64
	FromFees    uint64
}

// InstructionFailedEvent is emitted by the host for rejected instructions.
type InstructionFailedEvent struct {
	BaseEvent
	Instruction string
	Signer      solana.PublicKey
	Code        uint32
	Error       error
}
