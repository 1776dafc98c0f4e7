package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/curvebond/internal/scenario"
)

func TestComputeQuote_Amount(t *testing.T) {
	q, err := parseQuoteFlags([]string{"-base", "1", "-slope", "0.0001", "-amount", "1000", "-fee-bps", "100"})
	require.NoError(t, err)

	res, err := computeQuote(q)
	require.NoError(t, err)
	assert.Equal(t, "1", res.Price.String())
	assert.Equal(t, "1050", res.Cost.String())
	assert.Equal(t, "10.5", res.Fee.String())
	assert.Equal(t, "1060.5", res.Total.String())
}

func TestComputeQuote_Budget(t *testing.T) {
	q, err := parseQuoteFlags([]string{"-base", "1", "-slope", "0.0001", "-budget", "1060.5", "-fee-bps", "100"})
	require.NoError(t, err)

	res, err := computeQuote(q)
	require.NoError(t, err)
	assert.InDelta(t, 1000, res.Amount.Float64(), 1e-6)
	total, _ := res.Total.Float64()
	assert.LessOrEqual(t, total, 1060.5+1e-6)
}

func TestParseQuoteFlags_Rejects(t *testing.T) {
	tests := [][]string{
		{"-amount", "1", "-budget", "1"},
		{"-fee-bps", "10001"},
		{"-pow", "300"},
	}
	for _, args := range tests {
		_, err := parseQuoteFlags(args)
		assert.Error(t, err, "%v", args)
	}

	q, err := parseQuoteFlags([]string{"-kind", "cubic"})
	require.NoError(t, err)
	_, err = computeQuote(q)
	assert.Error(t, err)
}

func TestQuoteCommand_Renders(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, quoteCommand([]string{"-kind", "exponential", "-c", "1", "-pow", "1", "-frac", "2", "-supply", "4"}, &out))
	assert.Contains(t, out.String(), "spot price")
	assert.Contains(t, out.String(), "2")
}

func TestRenderResult(t *testing.T) {
	res := &scenario.Result{
		Name:  "demo",
		Steps: []scenario.StepResult{{Index: 0, Op: "buy", Pool: "main", Wallet: "alice"}},
		Pools: []scenario.PoolSummary{{Name: "main", State: "active", Supply: "10"}},
	}
	out := renderResult(res)
	assert.Contains(t, out, "demo")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "active")
}
