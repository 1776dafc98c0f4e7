package export

import (
	"strconv"
	"time"

	"github.com/rovshanmuradov/curvebond/internal/events"
	"github.com/rovshanmuradov/curvebond/internal/storage/models"
)

// Trade is one row of the trade journal. Amounts are base units.
type Trade struct {
	Timestamp     time.Time `json:"timestamp"`
	Pool          string    `json:"pool"`
	Trader        string    `json:"trader"`
	Side          string    `json:"side"`
	TargetAmount  uint64    `json:"target_amount"`
	ReserveAmount uint64    `json:"reserve_amount"`
	Fee           uint64    `json:"fee"`
	SupplyAfter   uint64    `json:"supply_after"`
	SpotPrice     string    `json:"spot_price"`
}

// TradeFromEvent converts a committed trade event.
func TradeFromEvent(ev *events.TradeExecutedEvent) Trade {
	return Trade{
		Timestamp:     ev.Timestamp(),
		Pool:          ev.Pool.String(),
		Trader:        ev.Trader.String(),
		Side:          string(ev.Side),
		TargetAmount:  ev.TargetAmount,
		ReserveAmount: ev.ReserveAmount,
		Fee:           ev.Fee,
		SupplyAfter:   ev.SupplyAfter,
		SpotPrice:     ev.SpotPrice,
	}
}

// TradesFromModels converts persisted journal rows.
func TradesFromModels(rows []models.Trade) []Trade {
	out := make([]Trade, 0, len(rows))
	for _, r := range rows {
		out = append(out, Trade{
			Timestamp:     r.ExecutedAt,
			Pool:          r.Pool,
			Trader:        r.Trader,
			Side:          r.Side,
			TargetAmount:  r.TargetAmount,
			ReserveAmount: r.ReserveAmount,
			Fee:           r.Fee,
			SupplyAfter:   r.SupplyAfter,
			SpotPrice:     r.SpotPrice,
		})
	}
	return out
}

// Model converts the row for the sql journal.
func (t Trade) Model() *models.Trade {
	return &models.Trade{
		Pool:          t.Pool,
		Trader:        t.Trader,
		Side:          t.Side,
		TargetAmount:  t.TargetAmount,
		ReserveAmount: t.ReserveAmount,
		Fee:           t.Fee,
		SupplyAfter:   t.SupplyAfter,
		SpotPrice:     t.SpotPrice,
		ExecutedAt:    t.Timestamp,
	}
}

// CSVHeaders matches ToCSV.
func CSVHeaders() []string {
	return []string{"timestamp", "pool", "trader", "side", "target_amount", "reserve_amount", "fee", "supply_after", "spot_price"}
}

func (t Trade) ToCSV() []string {
	return []string{
		t.Timestamp.UTC().Format(time.RFC3339),
		t.Pool,
		t.Trader,
		t.Side,
		strconv.FormatUint(t.TargetAmount, 10),
		strconv.FormatUint(t.ReserveAmount, 10),
		strconv.FormatUint(t.Fee, 10),
		strconv.FormatUint(t.SupplyAfter, 10),
		t.SpotPrice,
	}
}
