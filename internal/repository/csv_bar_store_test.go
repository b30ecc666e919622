package repository

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadBarsCSV(t *testing.T) {
	in := "Date,Open,High,Low,Close,Adj_Close,Volume\n" +
		"2024-03-01,10.5,11,10,10.75,10.7,12000\n" +
		"2024-03-04,10.75,11.2,10.6,11.1,11.0,1.5e4\n"
	bars, err := ReadBarsCSV("AAPL", strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars", len(bars))
	}
	if !bars[0].Close.Equal(d("10.75")) || bars[1].Volume != 15000 || bars[1].Date.Day() != 4 {
		t.Fatalf("got %+v", bars)
	}
}

func TestReadBarsCSVErrors(t *testing.T) {
	cases := map[string]string{
		"missing column": "date,open,high,low,close\n2024-03-01,1,1,1,1\n",
		"bad date":       "date,open,high,low,close,volume\n03/01/2024,1,1,1,1,1\n",
		"bad price":      "date,open,high,low,close,volume\n2024-03-01,x,1,1,1,1\n",
		"bad volume":     "date,open,high,low,close,volume\n2024-03-01,1,1,1,1,lots\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadBarsCSV("X", strings.NewReader(in)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCSVRoundTripThroughStore(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	if err := WriteBarsCSV(&buf, testBars(5)); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "MSFT.csv"), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewCSVBarStore(dir)
	got, err := s.BarsFor(context.Background(), "MSFT", day0, day0.AddDate(0, 0, 30))
	if err != nil || len(got) != 5 {
		t.Fatalf("got %d bars, %v", len(got), err)
	}
	if !got[4].High.Equal(d("105")) {
		t.Fatalf("high %s", got[4].High)
	}

	none, err := s.BarsFor(context.Background(), "ZZZZ", day0, day0)
	if err != nil || len(none) != 0 {
		t.Fatalf("unknown ticker: %v, %v", none, err)
	}
}
