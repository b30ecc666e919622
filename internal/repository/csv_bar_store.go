package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"ChartScan/internal/domain/models"
	"ChartScan/pkg/util"

	"github.com/shopspring/decimal"
)

// CSVBarStore reads one <TICKER>.csv per ticker from dir with the header
// date,open,high,low,close,volume. Files are parsed once and kept in memory.
type CSVBarStore struct {
	dir   string
	mu    sync.Mutex
	cache *MemoryBarStore
	seen  map[string]bool
}

func NewCSVBarStore(dir string) *CSVBarStore {
	return &CSVBarStore{dir: dir, cache: NewMemoryBarStore(), seen: map[string]bool{}}
}

func (s *CSVBarStore) load(ticker string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[ticker] {
		return nil
	}
	path := filepath.Join(s.dir, ticker+".csv")
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		// unknown tickers simply have no bars
		s.seen[ticker] = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %v: %w", path, err, models.ErrBarStoreUnavailable)
	}
	defer f.Close()

	bars, err := ReadBarsCSV(ticker, f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s.cache.Put(ticker, bars)
	s.seen[ticker] = true
	return nil
}

func (s *CSVBarStore) BarsFor(ctx context.Context, ticker string, start, end time.Time) ([]models.Bar, error) {
	if err := s.load(ticker); err != nil {
		return nil, err
	}
	return s.cache.BarsFor(ctx, ticker, start, end)
}

func (s *CSVBarStore) LatestPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	if err := s.load(ticker); err != nil {
		return decimal.Zero, err
	}
	return s.cache.LatestPrice(ctx, ticker)
}

// ReadBarsCSV parses daily bars. Columns are located by header name so
// extra columns such as adj_close are ignored.
func ReadBarsCSV(ticker string, r io.Reader) ([]models.Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range []string{"date", "open", "high", "low", "close", "volume"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var bars []models.Bar
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		b := models.Bar{Ticker: ticker}
		if b.Date, err = util.ParseDate(rec[col["date"]]); err != nil {
			return nil, fmt.Errorf("line %d: date: %w", line, err)
		}
		prices := []struct {
			name string
			dst  *decimal.Decimal
		}{{"open", &b.Open}, {"high", &b.High}, {"low", &b.Low}, {"close", &b.Close}}
		for _, p := range prices {
			if *p.dst, err = decimal.NewFromString(strings.TrimSpace(rec[col[p.name]])); err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, p.name, err)
			}
		}
		vol := strings.TrimSpace(rec[col["volume"]])
		if b.Volume, err = strconv.ParseInt(vol, 10, 64); err != nil {
			// some exports write volume as 1.2e6
			f, ferr := strconv.ParseFloat(vol, 64)
			if ferr != nil {
				return nil, fmt.Errorf("line %d: volume: %w", line, err)
			}
			b.Volume = int64(f)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// WriteBarsCSV writes bars with the header ReadBarsCSV expects.
func WriteBarsCSV(w io.Writer, bars []models.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		rec := []string{
			util.FormatDate(b.Date),
			b.Open.String(), b.High.String(), b.Low.String(), b.Close.String(),
			strconv.FormatInt(b.Volume, 10),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
