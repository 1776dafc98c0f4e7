// cmd/bondingctl/quote.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/curvebond/internal/curve"
	"github.com/rovshanmuradov/curvebond/internal/precise"
)

type quoteFlags struct {
	kind   string
	base   string
	slope  string
	c      string
	b      string
	pow    uint
	frac   uint
	supply string
	amount string
	budget string
	feeBps uint
}

func parseQuoteFlags(args []string) (*quoteFlags, error) {
	q := &quoteFlags{}
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	fs.StringVar(&q.kind, "kind", "linear", "curve kind: linear or exponential")
	fs.StringVar(&q.base, "base", "1", "linear intercept")
	fs.StringVar(&q.slope, "slope", "0", "linear slope")
	fs.StringVar(&q.c, "c", "1", "exponential coefficient")
	fs.StringVar(&q.b, "b", "0", "exponential base price")
	fs.UintVar(&q.pow, "pow", 1, "exponent numerator")
	fs.UintVar(&q.frac, "frac", 1, "exponent denominator")
	fs.StringVar(&q.supply, "supply", "0", "current supply in whole tokens")
	fs.StringVar(&q.amount, "amount", "", "tokens to buy")
	fs.StringVar(&q.budget, "budget", "", "reserve to spend, fee included")
	fs.UintVar(&q.feeBps, "fee-bps", 0, "founder reward in basis points")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if q.amount != "" && q.budget != "" {
		return nil, errors.New("-amount and -budget are mutually exclusive")
	}
	if q.feeBps > 10_000 {
		return nil, fmt.Errorf("fee-bps %d above 10000", q.feeBps)
	}
	if q.pow > 255 || q.frac > 255 {
		return nil, errors.New("pow and frac must fit in a byte")
	}
	return q, nil
}

func (q *quoteFlags) definition() (curve.Definition, error) {
	var def curve.Definition
	switch q.kind {
	case "linear":
		base, err := precise.ParseNumber(q.base)
		if err != nil {
			return def, fmt.Errorf("base: %w", err)
		}
		slope, err := precise.ParseNumber(q.slope)
		if err != nil {
			return def, fmt.Errorf("slope: %w", err)
		}
		def = curve.NewLinear(base, slope)
	case "exponential":
		c, err := precise.ParseNumber(q.c)
		if err != nil {
			return def, fmt.Errorf("c: %w", err)
		}
		b, err := precise.ParseNumber(q.b)
		if err != nil {
			return def, fmt.Errorf("b: %w", err)
		}
		def = curve.NewExponential(c, b, uint8(q.pow), uint8(q.frac))
	default:
		return def, fmt.Errorf("unknown curve kind %q", q.kind)
	}
	return def, def.Validate()
}

// quote is the result of pricing one purchase, in whole units.
type quote struct {
	Curve  string
	Price  precise.Number
	Amount precise.Number
	Cost   precise.Number
	Fee    decimal.Decimal
	Total  decimal.Decimal
}

func computeQuote(q *quoteFlags) (*quote, error) {
	def, err := q.definition()
	if err != nil {
		return nil, err
	}
	supply, err := precise.ParseNumber(q.supply)
	if err != nil {
		return nil, fmt.Errorf("supply: %w", err)
	}
	price, err := def.Price(supply)
	if err != nil {
		return nil, err
	}
	res := &quote{Curve: def.String(), Price: price}
	rate := decimal.New(int64(q.feeBps), -4)

	switch {
	case q.amount != "":
		if res.Amount, err = precise.ParseNumber(q.amount); err != nil {
			return nil, fmt.Errorf("amount: %w", err)
		}
		to, err := supply.CheckedAdd(res.Amount)
		if err != nil {
			return nil, err
		}
		if res.Cost, err = def.Cost(supply, to); err != nil {
			return nil, err
		}
	case q.budget != "":
		total, err := decimal.NewFromString(q.budget)
		if err != nil {
			return nil, fmt.Errorf("budget: %w", err)
		}
		// бюджет без комиссии
		net, err := precise.FromDecimal(total.Div(decimal.NewFromInt(1).Add(rate)))
		if err != nil {
			return nil, err
		}
		if res.Amount, err = def.TargetForReserve(supply, net); err != nil {
			return nil, err
		}
		to, err := supply.CheckedAdd(res.Amount)
		if err != nil {
			return nil, err
		}
		if res.Cost, err = def.Cost(supply, to); err != nil {
			return nil, err
		}
	default:
		res.Total = decimal.Zero
		return res, nil
	}

	res.Fee = res.Cost.Decimal().Mul(rate)
	res.Total = res.Cost.Decimal().Add(res.Fee)
	return res, nil
}

func quoteCommand(args []string, out io.Writer) error {
	q, err := parseQuoteFlags(args)
	if err != nil {
		return err
	}
	res, err := computeQuote(q)
	if err != nil {
		return err
	}

	rows := [][2]string{
		{"curve", res.Curve},
		{"supply", q.supply},
		{"spot price", res.Price.String()},
	}
	if q.amount != "" || q.budget != "" {
		rows = append(rows,
			[2]string{"tokens", res.Amount.String()},
			[2]string{"cost", res.Cost.String()},
			[2]string{"fee", res.Fee.String()},
			[2]string{"total", res.Total.String()},
		)
	}
	fmt.Fprintln(out, titleStyle.Render("▶ quote"))
	fmt.Fprintln(out, boxStyle.Render(kv(rows...)))
	return nil
}
