package model

// PeriodKey identifies a bar series. Two bars with the same key and the same
// TimestampInUs are the same bar, retransmitted while it is still forming.
type PeriodKey struct {
	DatasourceID string
	ProductID    string
	PeriodInSec  int64
}

// Period is one OHLC bar for a product over a fixed interval
type Period struct {
	DatasourceID  string  `json:"datasource_id" yaml:"datasource_id"`
	ProductID     string  `json:"product_id" yaml:"product_id"`
	PeriodInSec   int64   `json:"period_in_sec" yaml:"period_in_sec"`
	TimestampInUs int64   `json:"timestamp_in_us" yaml:"timestamp_in_us"`
	Open          float64 `json:"open" yaml:"open"`
	High          float64 `json:"high" yaml:"high"`
	Low           float64 `json:"low" yaml:"low"`
	Close         float64 `json:"close" yaml:"close"`
	Volume        float64 `json:"volume" yaml:"volume"`
	OpenInterest  float64 `json:"open_interest,omitempty" yaml:"open_interest"`
	Spread        float64 `json:"spread,omitempty" yaml:"spread"` // 0 when absent
}

func (p Period) Key() PeriodKey {
	return PeriodKey{DatasourceID: p.DatasourceID, ProductID: p.ProductID, PeriodInSec: p.PeriodInSec}
}

// Quote is the latest ask/bid for a product
type Quote struct {
	ProductID string  `json:"product_id" yaml:"product_id"`
	Ask       float64 `json:"ask" yaml:"ask"`
	Bid       float64 `json:"bid" yaml:"bid"`
}
