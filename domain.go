package holdings

import (
	"context"
	"errors"
	"fmt"
)

// DefaultURLTemplate is the holdings page of one ETF; %s is the symbol.
const DefaultURLTemplate = "https://www.schwab.wallst.com/schwab/Prospect/research/etfs/schwabETF/index.asp?type=holdings&symbol=%s"

type Command interface {
	Execute(ctx context.Context) error
}

// HoldingsService retrieves the holdings table of one ETF.
type HoldingsService interface {
	Fetch(
		ctx context.Context,
		in *HoldingsFetchInput,
	) (*HoldingsFetchOutput, error)
}

type HoldingsFetchInput struct {
	Symbol string

	// LogEntry asks the service to scrape the fund header as well.
	// Services that cannot do it leave the output entry nil.
	LogEntry bool
}

type HoldingsFetchOutput struct {
	Holdings []*Holding
	LogEntry *LogEntry
}

type Holding struct {
	Symbol          string
	Description     string
	PortfolioWeight string
	SharesHeld      string
	MarketValue     string
}

func (h *Holding) String() string {
	return fmt.Sprintf("%v: %v", h.Symbol, h.PortfolioWeight)
}

var HoldingsHeader = []string{
	"Symbol",
	"Description",
	"Portfolio Weight",
	"Shares Held",
	"Market Value",
}

type LogEntry struct {
	Symbol      string
	Name        string
	LastPrice   string
	NumHoldings int
}

var LogHeader = []string{
	"Symbol",
	"Name",
	"Last Price",
	"Number of Holdings",
}

var (
	ErrNotRetrieved  = errors.New("not retrieved (invalid or driver error)")
	ErrPageUnchanged = errors.New("page did not update")
)

// HoldingsFromRows maps table rows onto holdings. Rows must have
// the five columns of HoldingsHeader, shorter rows are padded.
func HoldingsFromRows(rows [][]string) ([]*Holding, error) {
	hs := make([]*Holding, 0, len(rows))
	for i, row := range rows {
		if len(row) > len(HoldingsHeader) {
			return nil, fmt.Errorf(
				"row %d: expected %d columns, got %d",
				i, len(HoldingsHeader), len(row),
			)
		}
		cells := make([]string, len(HoldingsHeader))
		copy(cells, row)
		hs = append(hs, &Holding{
			Symbol:          cells[0],
			Description:     cells[1],
			PortfolioWeight: cells[2],
			SharesHeld:      cells[3],
			MarketValue:     cells[4],
		})
	}
	return hs, nil
}
