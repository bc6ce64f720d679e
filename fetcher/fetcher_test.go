package fetcher

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"szakszon.com/holdings"
	"szakszon.com/holdings/fs"
	"szakszon.com/holdings/logger"
)

type stubService struct {
	calls   []string
	results map[string]*holdings.HoldingsFetchOutput
}

func (s *stubService) Fetch(
	ctx context.Context,
	in *holdings.HoldingsFetchInput,
) (*holdings.HoldingsFetchOutput, error) {
	s.calls = append(s.calls, in.Symbol)
	out, ok := s.results[in.Symbol]
	if !ok {
		return nil, holdings.ErrNotRetrieved
	}
	if !in.LogEntry {
		return &holdings.HoldingsFetchOutput{Holdings: out.Holdings}, nil
	}
	return out, nil
}

func newStub() *stubService {
	return &stubService{
		results: map[string]*holdings.HoldingsFetchOutput{
			"SCHD": {
				Holdings: []*holdings.Holding{
					{Symbol: "ABBV", Description: "AbbVie Inc", PortfolioWeight: "4.5%", SharesHeld: "12.3M", MarketValue: "$2.1B"},
					{Symbol: "CASH", Description: "Cash", PortfolioWeight: "-", SharesHeld: "-", MarketValue: "$1,234"},
				},
				LogEntry: &holdings.LogEntry{Symbol: "SCHD", Name: "Schwab US Dividend Equity ETF", LastPrice: "$78.12", NumHoldings: 2},
			},
			"VTI": {
				Holdings: []*holdings.Holding{
					{Symbol: "AAPL", Description: "Apple Inc", PortfolioWeight: "6%", SharesHeld: "2K", MarketValue: "$3M"},
				},
			},
		},
	}
}

func readCSV(t *testing.T, p string) [][]string {
	t.Helper()
	f, err := os.Open(p)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestFetch(t *testing.T) {
	dir := t.TempDir()
	svc := newStub()
	f := NewFetcher(
		HoldingsService(svc),
		Writer(&fs.Writer{Dir: dir}),
	)

	f.Fetch(context.Background(), []string{"SCHD", "BAD", "VTI"})

	assert.Equal(t, []string{"SCHD", "BAD", "VTI"}, svc.calls)
	assert.Equal(t, []string{"SCHD", "VTI"}, f.Symbols())
	assert.Equal(t, 2, f.Files())
	require.Len(t, f.Errs(), 1)

	var fe *FetchError
	require.True(t, errors.As(f.Errs()[0], &fe))
	assert.Equal(t, "BAD", fe.Symbol)
	assert.ErrorIs(t, f.Errs()[0], holdings.ErrNotRetrieved)

	records := readCSV(t, filepath.Join(dir, "SCHD-holdings.csv"))
	require.Len(t, records, 3)
	assert.Equal(t, holdings.HoldingsHeader, records[0])
	assert.Equal(t, []string{"CASH", "Cash", "-", "-", "$1,234"}, records[2])

	_, err := os.Stat(filepath.Join(dir, "BAD-holdings.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestFetchLogsFailuresAsWarnings(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := NewFetcher(
		HoldingsService(newStub()),
		Writer(&fs.Writer{Dir: t.TempDir()}),
		Log(logger.Sugar(zap.New(core))),
	)

	f.Fetch(context.Background(), []string{"BAD", "VTI"})

	warns := logs.FilterLevelExact(zap.WarnLevel).All()
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0].Message, "BAD not retrieved")

	infos := logs.FilterLevelExact(zap.InfoLevel).All()
	require.Len(t, infos, 1)
	assert.Equal(t, "VTI: 1 holdings retrieved", infos[0].Message)
}

func TestFetchDuplicateSymbol(t *testing.T) {
	dir := t.TempDir()
	svc := newStub()
	f := NewFetcher(
		HoldingsService(svc),
		Writer(&fs.Writer{Dir: dir}),
	)

	f.Fetch(context.Background(), []string{"VTI", "VTI", "BAD", "BAD"})

	assert.Equal(t, []string{"VTI", "BAD"}, svc.calls)
	assert.Equal(t, []string{"VTI"}, f.Symbols())
	assert.Equal(t, 1, f.Files())
	assert.Len(t, f.Errs(), 1)
}

func TestFetchRaw(t *testing.T) {
	dir := t.TempDir()
	f := NewFetcher(
		HoldingsService(newStub()),
		Writer(&fs.Writer{Dir: dir}),
		Raw(true),
	)

	f.Fetch(context.Background(), []string{"SCHD", "VTI"})
	require.Empty(t, f.Errs())

	assert.Equal(t, [][]string{
		holdings.HoldingsHeader,
		{"ABBV", "AbbVie Inc", "0.045", "12300000", "2100000000"},
		{"CASH", "Cash", "0", "0", "1234"},
	}, readCSV(t, filepath.Join(dir, "SCHD-holdings.csv")))

	assert.Equal(t, [][]string{
		holdings.HoldingsHeader,
		{"AAPL", "Apple Inc", "0.06", "2000", "3000000"},
	}, readCSV(t, filepath.Join(dir, "VTI-holdings.csv")))
}

func TestFetchRawInvalidValue(t *testing.T) {
	svc := &stubService{
		results: map[string]*holdings.HoldingsFetchOutput{
			"ODD": {Holdings: []*holdings.Holding{
				{Symbol: "X", PortfolioWeight: "n/a", SharesHeld: "1", MarketValue: "1"},
			}},
		},
	}
	f := NewFetcher(
		HoldingsService(svc),
		Writer(&fs.Writer{Dir: t.TempDir()}),
		Raw(true),
	)

	f.Fetch(context.Background(), []string{"ODD"})
	assert.Empty(t, f.Symbols())
	assert.Len(t, f.Errs(), 1)
}

func TestWriteLog(t *testing.T) {
	dir := t.TempDir()
	f := NewFetcher(
		HoldingsService(newStub()),
		Writer(&fs.Writer{Dir: dir}),
		LogEntries(true),
	)

	f.Fetch(context.Background(), []string{"SCHD", "VTI"})
	require.Len(t, f.LogEntries(), 1)

	p, err := f.WriteLog()
	require.NoError(t, err)
	assert.Equal(t, 3, f.Files())
	assert.Equal(t, [][]string{
		holdings.LogHeader,
		{"SCHD", "Schwab US Dividend Equity ETF", "$78.12", "2"},
	}, readCSV(t, p))
}

func TestFetchCancelled(t *testing.T) {
	svc := newStub()
	f := NewFetcher(
		HoldingsService(svc),
		Writer(&fs.Writer{Dir: t.TempDir()}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.Fetch(ctx, []string{"SCHD", "VTI"})

	assert.Empty(t, svc.calls)
	assert.Equal(t, 0, f.Files())
}
