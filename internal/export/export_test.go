package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvebond/internal/events"
	"github.com/rovshanmuradov/curvebond/internal/storage/models"
)

var (
	poolA = "DCy6L7FGjNZr6oYLZsojS9aC9LJ2XniiTiF7qhkEfBme"
	poolB = "11111111111111111111111111111111"
	day   = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
)

func generateTestTrades() []Trade {
	return []Trade{
		{Timestamp: day.Add(9 * time.Hour), Pool: poolA, Trader: "alice", Side: "buy", TargetAmount: 1_000, ReserveAmount: 1_050, Fee: 10, SpotPrice: "1.1"},
		{Timestamp: day.Add(9*time.Hour + time.Minute), Pool: poolA, Trader: "bob", Side: "buy", TargetAmount: 500, ReserveAmount: 560, Fee: 6, SpotPrice: "1.15"},
		{Timestamp: day.Add(14 * time.Hour), Pool: poolA, Trader: "alice", Side: "sell", TargetAmount: 1_000, ReserveAmount: 1_100, Fee: 11, SpotPrice: "1.05"},
		{Timestamp: day.Add(26 * time.Hour), Pool: poolB, Trader: "carol", Side: "buy", TargetAmount: 7, ReserveAmount: 7, SpotPrice: "1"},
	}
}

func TestTradeExportCSV(t *testing.T) {
	exporter := NewTradeExporter(zap.NewNop())
	outputPath, err := exporter.ExportTrades(generateTestTrades(), ExportOptions{
		Format:     FormatCSV,
		OutputDir:  t.TempDir(),
		PoolFilter: poolA,
	})
	require.NoError(t, err)
	assert.Contains(t, outputPath, "trades_all_DCy6L7FG")

	f, err := os.Open(outputPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, CSVHeaders(), rows[0])
	assert.Equal(t, "2024-03-01T09:00:00Z", rows[1][0])
	assert.Equal(t, "1050", rows[1][5])
	assert.Equal(t, "sell", rows[3][3])
}

func TestTradeExportJSON(t *testing.T) {
	exporter := NewTradeExporter(zap.NewNop())
	outputPath, err := exporter.ExportTrades(generateTestTrades(), ExportOptions{
		Format:     FormatJSON,
		OutputDir:  t.TempDir(),
		SideFilter: "buy",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	var out struct {
		TradeCount int           `json:"trade_count"`
		Summary    ExportSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, 3, out.TradeCount)
	assert.Equal(t, 3, out.Summary.BuyCount)
	assert.Equal(t, uint64(1_617), out.Summary.BuyVolume)
	assert.Equal(t, 2, out.Summary.UniquePools)
	assert.Equal(t, uint64(1_507), out.Summary.TargetMinted)
}

func TestTradeExport_Rejects(t *testing.T) {
	exporter := NewTradeExporter(zap.NewNop())
	_, err := exporter.ExportTrades(generateTestTrades(), ExportOptions{Format: FormatCSV, OutputDir: t.TempDir(), SideFilter: "mint"})
	assert.Error(t, err)

	_, err = exporter.ExportTrades(generateTestTrades(), ExportOptions{Format: "xml", OutputDir: t.TempDir()})
	assert.Error(t, err)
}

func TestCalculateSummary(t *testing.T) {
	s := NewTradeExporter(zap.NewNop()).calculateSummary(generateTestTrades()[:3])
	assert.Equal(t, 3, s.TotalTrades)
	assert.Equal(t, 1, s.SellCount)
	assert.Equal(t, uint64(1_100), s.SellVolume)
	assert.Equal(t, uint64(27), s.TotalFees)
	assert.Equal(t, uint64(1_000), s.TargetBurned)
	assert.Equal(t, 2, s.UniqueTraders)
	assert.Equal(t, "1.05", s.LastSpotPrice)
}

func TestExportDailyReport(t *testing.T) {
	exporter := NewTradeExporter(zap.NewNop())
	dir := t.TempDir()

	path, err := exporter.ExportDailyReport(generateTestTrades(), day.Add(5*time.Hour), dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var report DailyReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 3, report.TradeCount)
	require.Len(t, report.HourlyBreakdown, 2)
	assert.Equal(t, 9, report.HourlyBreakdown[0].Hour)
	assert.Equal(t, 2, report.HourlyBreakdown[0].BuyCount)
	assert.Equal(t, uint64(1_100), report.HourlyBreakdown[1].Volume)

	path, err = exporter.ExportDailyReport(generateTestTrades(), day.Add(-48*time.Hour), dir)
	require.NoError(t, err)
	assert.Empty(t, path)
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) SaveTrade(ctx context.Context, trade *models.Trade) error {
	return m.Called(ctx, trade).Error(0)
}

func TestJournal(t *testing.T) {
	pool := solana.MustPublicKeyFromBase58(poolA)
	trader := solana.MustPublicKeyFromBase58(poolB)
	ev := &events.TradeExecutedEvent{
		BaseEvent:     events.NewBase(events.TradeExecuted, day.Unix()),
		Pool:          pool,
		Trader:        trader,
		Side:          events.SideBuy,
		TargetAmount:  1_000,
		ReserveAmount: 1_050,
		Fee:           10,
		SupplyAfter:   1_000,
		SpotPrice:     "1.1",
	}

	sink := &mockSink{}
	sink.On("SaveTrade", mock.Anything, mock.MatchedBy(func(m *models.Trade) bool {
		return m.Pool == poolA && m.Side == "buy" && m.ReserveAmount == 1_050 && m.ExecutedAt.Equal(day)
	})).Return(nil).Once()

	j := NewJournal(sink, zap.NewNop())
	require.NoError(t, j.Handle(context.Background(), ev))
	sink.AssertExpectations(t)

	trades := j.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, TradeFromEvent(ev), trades[0])
	assert.Equal(t, trades, TradesFromModels([]models.Trade{*trades[0].Model()}))

	err := j.Handle(context.Background(), &events.PoolClosedEvent{BaseEvent: events.NewBase(events.PoolClosed, 0)})
	assert.ErrorIs(t, err, events.ErrUnexpectedEvent)
	assert.Equal(t, 1, j.Len())

	failing := &mockSink{}
	failing.On("SaveTrade", mock.Anything, mock.Anything).Return(errors.New("db down"))
	j = NewJournal(failing, nil)
	assert.Error(t, j.Handle(context.Background(), ev))
	assert.Equal(t, 1, j.Len())
}

func TestJournal_AttachedToBus(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), 8)
	defer bus.Shutdown(context.Background())

	j := NewJournal(nil, nil)
	sub := j.Attach(bus)
	defer sub.Unsubscribe()

	require.NoError(t, bus.PublishSync(context.Background(), &events.TradeExecutedEvent{
		BaseEvent: events.NewBase(events.TradeExecuted, day.Unix()),
		Side:      events.SideSell,
	}))
	assert.Equal(t, 1, j.Len())
}
