package models

// StockInfo 个股信息（搜索与个股研究共用）
type StockInfo struct {
	TsCode               string  `json:"ts_code"`
	Name                 string  `json:"name"`
	Industry             string  `json:"industry,omitempty"`
	ListingDate          string  `json:"listing_date,omitempty"`
	MarketCap            string  `json:"market_cap,omitempty"`
	TotalShares          string  `json:"total_shares,omitempty"`
	CirculatingShares    string  `json:"circulating_shares,omitempty"`
	CirculatingMarketCap string  `json:"circulating_market_cap,omitempty"`
	Price                float64 `json:"price,omitempty"`
	ChangePct            float64 `json:"change_pct,omitempty"`
	Volume               int64   `json:"volume,omitempty"`
	TurnoverRate         float64 `json:"turnover_rate,omitempty"`
	PE                   float64 `json:"pe,omitempty"`
}

// MarketIndex 大盘指数
type MarketIndex struct {
	Title  string  `json:"title"`  // 指数名称，如 上证指数
	Value  float64 `json:"value"`  // 当前点位
	Change float64 `json:"change"` // 涨跌幅(%)
	IsUp   bool    `json:"is_up"`
}

// GainerItem 涨幅榜条目
type GainerItem struct {
	TsCode    string  `json:"ts_code"`
	Name      string  `json:"name"`
	ChangePct float64 `json:"change_pct"`
}

// IndustryItem 行业涨幅条目
type IndustryItem struct {
	Name      string  `json:"name"`
	ChangePct float64 `json:"change_pct"`
}
