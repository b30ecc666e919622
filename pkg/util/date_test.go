package util

import (
	"reflect"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2024-03-01", "2024-03-01", false},
		{" 2024-03-01 ", "2024-03-01", false},
		{"2024-03-01T22:10:10Z", "2024-03-01", false},
		{"03/01/2024", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseDate(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if FormatDate(got) != tc.want || got.Location() != time.UTC {
				t.Fatalf("got %v", got)
			}
		})
	}
}

func TestParseDateDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	if got := ParseDateDefault("nope", def); !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestDateRangeMovesWeekends(t *testing.T) {
	// Friday 2024-03-01 through Tuesday 2024-03-05
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	var got []string
	for _, d := range DateRange(start, end, 1) {
		got = append(got, FormatDate(d))
	}
	want := []string{"2024-03-01", "2024-03-04", "2024-03-05"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}

	got = got[:0]
	for _, d := range DateRange(start, end, 2) {
		got = append(got, FormatDate(d))
	}
	// 03-03 is a Sunday and moves to 03-04
	if want := []string{"2024-03-01", "2024-03-04", "2024-03-05"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("stride 2: got %v want %v", got, want)
	}
	if n := len(DateRange(end, start, 1)); n != 0 {
		t.Fatalf("reversed range: got %d dates", n)
	}
}

func TestDateRangeWeeklyStrideFromWeekend(t *testing.T) {
	sat := time.Date(2024, 4, 27, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  []string
	}{
		{"saturday start", sat, sat.AddDate(0, 0, 35), []string{"2024-04-29", "2024-05-06", "2024-05-13", "2024-05-20", "2024-05-27"}},
		{"sunday start", sat.AddDate(0, 0, 1), sat.AddDate(0, 0, 16), []string{"2024-04-29", "2024-05-06", "2024-05-13"}},
		{"weekday start", sat.AddDate(0, 0, 3), sat.AddDate(0, 0, 17), []string{"2024-04-30", "2024-05-07", "2024-05-14"}},
		{"weekend only", sat, sat.AddDate(0, 0, 1), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got []string
			for _, d := range DateRange(tc.start, tc.end, 7) {
				got = append(got, FormatDate(d))
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestTradingDaysBack(t *testing.T) {
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	if got := FormatDate(TradingDaysBack(monday, 1)); got != "2024-03-01" {
		t.Fatalf("got %s", got)
	}
	if got := FormatDate(TradingDaysBack(monday, 6)); got != "2024-02-23" {
		t.Fatalf("got %s", got)
	}
}

func TestSplitTickers(t *testing.T) {
	got := SplitTickers("aapl, msft\tAAPL,,nvda ")
	want := []string{"AAPL", "MSFT", "NVDA"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if len(SplitTickers("")) != 0 {
		t.Fatal("expected empty")
	}
}

func TestParseIntDefault(t *testing.T) {
	if ParseIntDefault("12", 3) != 12 || ParseIntDefault("x", 3) != 3 || ParseIntDefault("", 3) != 3 {
		t.Fatal("unexpected parse")
	}
}
