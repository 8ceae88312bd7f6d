package models

// ServerStatus is the payload of GET /api/v1/status
type ServerStatus struct {
	Timestamp     string  `json:"timestamp"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	Goroutines    int     `json:"goroutines"`
	RAMUsedPct    float64 `json:"ram_used_pct"`
	LoadAvg1      float64 `json:"load_avg_1"`
	LoadAvg5      float64 `json:"load_avg_5"`
	LoadAvg15     float64 `json:"load_avg_15"`
	DatabaseUp    bool    `json:"database_up"`
}
