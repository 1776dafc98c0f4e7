// internal/scenario/scenario.go
package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is one YAML file: participants, curves, pools and a sequence of
// instructions executed against a fresh account store.
type Scenario struct {
	Name            string            `yaml:"name"`
	Now             int64             `yaml:"now"`
	ReserveDecimals uint8             `yaml:"reserve_decimals"`
	Wallets         map[string]string `yaml:"wallets"` // имя -> стартовый баланс резерва
	Curves          []CurveSpec       `yaml:"curves"`
	Pools           []PoolSpec        `yaml:"pools"`
	Steps           []Step            `yaml:"steps"`
}

// CurveSpec describes a curve; the fields used depend on Kind.
type CurveSpec struct {
	Name   string      `yaml:"name"`
	Kind   string      `yaml:"kind"` // linear | exponential | piecewise
	Base   string      `yaml:"base"`
	Slope  string      `yaml:"slope"`
	C      string      `yaml:"c"`
	B      string      `yaml:"b"`
	Pow    uint8       `yaml:"pow"`
	Frac   uint8       `yaml:"frac"`
	Pieces []PieceSpec `yaml:"pieces"`
}

type PieceSpec struct {
	From  string `yaml:"from"`
	Kind  string `yaml:"kind"`
	Base  string `yaml:"base"`
	Slope string `yaml:"slope"`
	C     string `yaml:"c"`
	B     string `yaml:"b"`
	Pow   uint8  `yaml:"pow"`
	Frac  uint8  `yaml:"frac"`
}

type PoolSpec struct {
	Name             string `yaml:"name"`
	Curve            string `yaml:"curve"`
	TargetDecimals   uint8  `yaml:"target_decimals"`
	Index            uint16 `yaml:"index"`
	Authority        string `yaml:"authority"`
	ReserveAuthority string `yaml:"reserve_authority"`
	CurveAuthority   string `yaml:"curve_authority"`
	FounderRewardBps uint16 `yaml:"founder_reward_bps"`
	MintCap          string `yaml:"mint_cap"`
	PurchaseCap      string `yaml:"purchase_cap"`
	GoLive           *int64 `yaml:"go_live"`
	FreezeBuy        *int64 `yaml:"freeze_buy"`
}

// Step is one instruction or host action.
type Step struct {
	Op     string `yaml:"op"`
	Pool   string `yaml:"pool"`
	Wallet string `yaml:"wallet"`

	// buy / sell / buy_reserve / transfer_reserves
	Amount   string `yaml:"amount"`
	MaxPrice string `yaml:"max_price"`
	MinPrice string `yaml:"min_price"`
	MinOut   string `yaml:"min_out"`
	To       string `yaml:"to"`

	// update_curve
	Curve string `yaml:"curve"`

	// update_pool: nil keeps the current value
	GeneralAuthority string  `yaml:"general_authority"`
	FounderRewardBps *uint16 `yaml:"founder_reward_bps"`
	BuyFrozen        *bool   `yaml:"buy_frozen"`
	SellFrozen       *bool   `yaml:"sell_frozen"`

	// advance
	Seconds int64 `yaml:"seconds"`

	Expect Expect `yaml:"expect"`
}

// Expect is checked after the step. Empty fields are not checked.
type Expect struct {
	Error     string `yaml:"error"` // подстрока сообщения об ошибке
	Code      uint32 `yaml:"code"`
	Total     string `yaml:"total"`
	Target    string `yaml:"target"`
	Supply    string `yaml:"supply"`
	SpotPrice string `yaml:"spot_price"`
	State     string `yaml:"state"`
}

func (e Expect) wantsFailure() bool {
	return e.Error != "" || e.Code != 0
}

var knownOps = map[string]bool{
	"buy": true, "buy_reserve": true, "sell": true, "transfer_reserves": true,
	"update_reserve_authority": true, "update_pool": true, "update_curve": true,
	"close_pool": true, "advance": true, "fund": true,
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sc, nil
}

// Parse decodes and validates scenario YAML.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) validate() error {
	if len(sc.Pools) == 0 {
		return fmt.Errorf("scenario has no pools")
	}
	curves := make(map[string]bool, len(sc.Curves))
	for _, c := range sc.Curves {
		if c.Name == "" || curves[c.Name] {
			return fmt.Errorf("curve name %q is empty or duplicated", c.Name)
		}
		curves[c.Name] = true
	}
	pools := make(map[string]bool, len(sc.Pools))
	for _, p := range sc.Pools {
		if p.Name == "" || pools[p.Name] {
			return fmt.Errorf("pool name %q is empty or duplicated", p.Name)
		}
		if !curves[p.Curve] {
			return fmt.Errorf("pool %s: unknown curve %q", p.Name, p.Curve)
		}
		if !sc.hasWallet(p.Authority) {
			return fmt.Errorf("pool %s: unknown authority %q", p.Name, p.Authority)
		}
		pools[p.Name] = true
	}
	for i, st := range sc.Steps {
		if !knownOps[st.Op] {
			return fmt.Errorf("step %d: unsupported op %q", i, st.Op)
		}
		if st.Op != "advance" && st.Op != "fund" && !pools[st.Pool] {
			return fmt.Errorf("step %d: unknown pool %q", i, st.Pool)
		}
		if st.Op != "advance" && !sc.hasWallet(st.Wallet) {
			return fmt.Errorf("step %d: unknown wallet %q", i, st.Wallet)
		}
		if st.Op == "update_curve" && !curves[st.Curve] {
			return fmt.Errorf("step %d: unknown curve %q", i, st.Curve)
		}
	}
	return nil
}

func (sc *Scenario) hasWallet(name string) bool {
	_, ok := sc.Wallets[name]
	return ok
}
