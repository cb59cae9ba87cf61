package models

import "encoding/json"

// EventItem 个股事件时间线条目
type EventItem struct {
	Title               string `json:"title"`
	EventType           string `json:"event_type,omitempty"`
	Source              string `json:"source,omitempty"`
	SourceURL           string `json:"source_url,omitempty"`
	EventTime           string `json:"event_time,omitempty"`
	MarketEffectiveTime string `json:"market_effective_time,omitempty"`
	Evidence            string `json:"evidence,omitempty"`
}

// SignalItem 信号解释条目
// similar_samples 结构较深且只做展示，原样透传
type SignalItem struct {
	Template        string          `json:"template"`
	Name            string          `json:"name,omitempty"`
	Status          string          `json:"status"` // triggered / not_triggered
	RiskLevel       string          `json:"risk_level,omitempty"`
	LastTriggerDate string          `json:"last_trigger_date,omitempty"`
	TriggerFactors  []string        `json:"trigger_factors,omitempty"`
	Evidence        []string        `json:"evidence,omitempty"`
	Risks           []string        `json:"risks,omitempty"`
	Invalidation    []string        `json:"invalidation,omitempty"`
	SimilarSamples  json.RawMessage `json:"similar_samples,omitempty"`
}

// SignalsPayload signals 接口的返回体：信号解释 + 买卖时机综合报告
type SignalsPayload struct {
	Signals      []SignalItem    `json:"signals"`
	TimingReport json.RawMessage `json:"timing_report,omitempty"`
}
