package models

import "encoding/json"

// BacktestConfig 回测配置，对应策略实验室表单
type BacktestConfig struct {
	Symbol         string         `json:"symbol"`
	Template       string         `json:"template"` // S1~S5
	Params         map[string]any `json:"params"`
	StartDate      string         `json:"start_date,omitempty"`
	EndDate        string         `json:"end_date,omitempty"`
	OOSStartDate   string         `json:"oos_start_date,omitempty"`
	InitialCash    float64        `json:"initial_cash,omitempty"`
	CommissionRate float64        `json:"commission_rate,omitempty"`
	StampDutyRate  float64        `json:"stamp_duty_rate,omitempty"`
	SlippageBps    float64        `json:"slippage_bps,omitempty"`
	LotSize        int            `json:"lot_size,omitempty"`
}

// BacktestMetrics 回测指标汇总
type BacktestMetrics struct {
	TotalReturn float64 `json:"total_return"`
	CAGR        float64 `json:"cagr"`
	MaxDrawdown float64 `json:"max_drawdown"`
	Sharpe      float64 `json:"sharpe"`
	Calmar      float64 `json:"calmar"`
	Trades      int     `json:"trades"`
	WinRate     float64 `json:"win_rate"`
	EndEquity   float64 `json:"end_equity"`
}

// EquityPoint 权益曲线上的一个点
type EquityPoint struct {
	Date          string  `json:"date"`
	Equity        float64 `json:"equity"`
	Cash          float64 `json:"cash"`
	PositionValue float64 `json:"position_value"`
	Shares        int     `json:"shares"`
}

// BacktestTrade 单笔交易明细
type BacktestTrade struct {
	EntryDate  string  `json:"entry_date"`
	EntryPrice float64 `json:"entry_price"`
	ExitDate   string  `json:"exit_date"`
	ExitPrice  float64 `json:"exit_price"`
	Shares     int     `json:"shares"`
	ReturnPct  float64 `json:"return_pct"`
	PnL        float64 `json:"pnl"`
}

// BacktestReport 回测报告
// evaluation / rule_draft 结构由后端决定，原样透传给报告页
type BacktestReport struct {
	Config      json.RawMessage `json:"config"`
	Metrics     BacktestMetrics `json:"metrics"`
	Evaluation  json.RawMessage `json:"evaluation,omitempty"`
	RuleDraft   json.RawMessage `json:"rule_draft,omitempty"`
	EquityCurve []EquityPoint   `json:"equity_curve"`
	Trades      []BacktestTrade `json:"trades"`
}
