package repository

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"ChartScan/internal/domain/models"
	"ChartScan/pkg/util"
)

// ReportFormat selects the export encoding of a backtest report.
type ReportFormat string

const (
	FormatJSON ReportFormat = "json"
	FormatCSV  ReportFormat = "csv"
)

func ParseReportFormat(s string) (ReportFormat, error) {
	switch ReportFormat(s) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

var recordHeader = []string{
	"date", "ticker", "pattern", "entry", "support", "target", "rr",
	"status", "return_pct", "max_gain", "max_loss", "days_held",
}

// WriteReport exports r. JSON carries the whole report; CSV carries the
// flat records only.
func WriteReport(w io.Writer, r *models.BacktestReport, format ReportFormat) error {
	switch format {
	case FormatCSV:
		return writeRecordsCSV(w, r.Records)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
}

func writeRecordsCSV(w io.Writer, records []models.BacktestRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(recordHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			util.FormatDate(r.Date),
			r.Ticker,
			string(r.Pattern),
			r.Entry.String(),
			r.Support.String(),
			r.Target.String(),
			r.RR.StringFixed(2),
			string(r.Status),
			r.ReturnPct.StringFixed(2),
			r.MaxGain.StringFixed(2),
			r.MaxLoss.StringFixed(2),
			strconv.Itoa(r.DaysHeld),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
