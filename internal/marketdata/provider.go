// Package marketdata loads daily price history for the backtester and derives sector volatility.
package marketdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"meanrev-go/internal/frame"
	"meanrev-go/internal/indicator"
)

const (
	// SectorVolWindow is the rolling window of daily sector returns.
	SectorVolWindow = 20
	// TradingDays annualizes daily volatility.
	TradingDays = 252
)

// ErrNoData is returned when a stock has no rows in the requested range.
var ErrNoData = errors.New("marketdata: no data")

// Provider returns an ascending daily frame with a sector_vol column for [start, end].
// Zero start or end leave that side open.
type Provider interface {
	Get(ctx context.Context, stock string, start, end time.Time, sectorTicker string) (*frame.Frame, error)
}

// CSVProvider reads <dir>/<STOCK>.csv files with a date,open,high,low,close,volume header.
type CSVProvider struct {
	dir string
	log zerolog.Logger
}

// NewCSVProvider builds a provider rooted at dir.
func NewCSVProvider(dir string, log zerolog.Logger) *CSVProvider {
	return &CSVProvider{dir: dir, log: log}
}

// Get loads the stock, derives sector volatility from sectorTicker when given and trims to range.
// Rows without sector history carry sector_vol 0.
func (p *CSVProvider) Get(ctx context.Context, stock string, start, end time.Time, sectorTicker string) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bars, err := p.load(stock)
	if err != nil {
		return nil, err
	}
	if sectorTicker != "" {
		sector, err := p.load(sectorTicker)
		if err != nil {
			return nil, fmt.Errorf("sector %s: %w", sectorTicker, err)
		}
		attachSectorVol(bars, sector)
	}

	kept := bars[:0]
	for _, b := range bars {
		if !start.IsZero() && b.Date.Before(start) {
			continue
		}
		if !end.IsZero() && b.Date.After(end) {
			continue
		}
		kept = append(kept, b)
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, stock)
	}
	p.log.Debug().Str("stock", stock).Int("rows", len(kept)).Msg("loaded price history")
	return frame.FromBars(kept)
}

func (p *CSVProvider) load(stock string) ([]frame.Bar, error) {
	path := filepath.Join(p.dir, strings.ToUpper(stock)+".csv")
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoData, stock)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	bars, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return bars, nil
}

var csvColumns = []string{"date", "open", "high", "low", "close", "volume"}

// ReadCSV parses bars, sorting them ascending and keeping the last row for duplicate dates.
func ReadCSV(r io.Reader) ([]frame.Bar, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range csvColumns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}

	var bars []frame.Bar
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		date, err := time.Parse(time.DateOnly, strings.TrimSpace(rec[idx["date"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		var vals [5]float64
		for i, c := range csvColumns[1:] {
			if vals[i], err = strconv.ParseFloat(strings.TrimSpace(rec[idx[c]]), 64); err != nil {
				return nil, fmt.Errorf("line %d %s: %w", line, c, err)
			}
		}
		bars = append(bars, frame.Bar{Date: date, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4]})
	}
	return frame.SortBars(bars), nil
}

// SectorVolatility is the annualized sample std of the trailing SectorVolWindow daily returns,
// aligned to sector bars. Rows without a full window are NaN.
func SectorVolatility(sector []frame.Bar) []float64 {
	out := frame.NaNs(len(sector))
	if len(sector) <= SectorVolWindow {
		return out
	}
	returns := make([]float64, len(sector)-1)
	for i := 1; i < len(sector); i++ {
		returns[i-1] = sector[i].Close/sector[i-1].Close - 1
	}
	std, ok := indicator.RollingStd(returns, SectorVolWindow, 1)
	if !ok {
		return out
	}
	for i, v := range std {
		out[i+1] = v * math.Sqrt(TradingDays)
	}
	return out
}

// attachSectorVol sets each bar's SectorVol to the latest sector value dated on or before it.
func attachSectorVol(bars, sector []frame.Bar) {
	vol := SectorVolatility(sector)
	k := -1
	for i := range bars {
		for k+1 < len(sector) && !sector[k+1].Date.After(bars[i].Date) {
			k++
		}
		bars[i].SectorVol = 0
		if k >= 0 && !math.IsNaN(vol[k]) {
			bars[i].SectorVol = vol[k]
		}
	}
}
