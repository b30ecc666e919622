package models

// Command names accepted on the scheduler commands topic.
const (
	CommandScan      = "scan"
	CommandLifecycle = "lifecycle"
)

// Command is the message a scheduler publishes to trigger a run.
// Example: {"command":"scan","date":"2024-03-01","tickers":["AAPL"]}
type Command struct {
	Command string   `json:"command"`
	Date    string   `json:"date"`
	Tickers []string `json:"tickers,omitempty"`
}

// BacktestJobType is the queue message type for asynchronous backtests.
const BacktestJobType = "backtest.run"

// BacktestJob is the queued payload; RunID is assigned at submission.
type BacktestJob struct {
	RunID   string          `json:"run_id"`
	Request BacktestRequest `json:"request"`
}
