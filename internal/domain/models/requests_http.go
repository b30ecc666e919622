package models

// Requests for the scan HTTP endpoints. Bound by echo, defaulted and validated in pkg/http.

type ScanRequest struct {
	Date       string   `json:"date" validate:"required,datetime=2006-01-02"`
	Tickers    []string `json:"tickers" validate:"omitempty,dive,required"`
	Patterns   []string `json:"patterns" validate:"omitempty,dive,required"`
	RSICeiling float64  `json:"rsi_ceiling" validate:"gte=0,lte=100"`
}

type LifecycleRequest struct {
	AsOf string `json:"as_of" validate:"required,datetime=2006-01-02"`
}

type SignalsRequest struct {
	Ticker  string `query:"ticker"`
	Pattern string `query:"pattern"`
	Status  string `query:"status" validate:"omitempty,oneof=active closed"`
	From    string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To      string `query:"to" validate:"omitempty,datetime=2006-01-02"`
	Limit   int    `query:"limit" default:"200" validate:"gte=1,lte=5000"`
}

type StatsRequest struct {
	Pattern       string `query:"pattern"`
	ExpiredPolicy string `query:"expired_policy" default:"exclude" validate:"oneof=exclude by_sign"`
}

type BacktestRequest struct {
	Start         string   `json:"start" validate:"required,datetime=2006-01-02"`
	End           string   `json:"end" validate:"required,datetime=2006-01-02"`
	StrideDays    int      `json:"stride_days" validate:"gte=0,lte=365"`
	Tickers       []string `json:"tickers" validate:"omitempty,dive,required"`
	Patterns      []string `json:"patterns" validate:"omitempty,dive,required"`
	RSICeiling    float64  `json:"rsi_ceiling" validate:"gte=0,lte=100"`
	ExpiredPolicy string   `json:"expired_policy" validate:"omitempty,oneof=exclude by_sign"`
	HorizonDays   int      `json:"horizon_days" validate:"gte=0,lte=60"`
	HorizonUnit   string   `json:"horizon_unit" validate:"omitempty,oneof=calendar trading"`
}

type BacktestReportRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}
