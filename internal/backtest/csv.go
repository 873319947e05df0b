package backtest

import (
	"encoding/csv"
	"fmt"
	"os"

	"tradesim/internal/model"
	"tradesim/internal/serialization"
)

// LoadTicksCSV reads quote ticks from a CSV file with columns:
// symbol,bid,ask,bid_size,ask_size,timestamp. The timestamp column uses the
// wire format (ISO-8601 UTC).
func LoadTicksCSV(path string) ([]model.QuoteTick, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tick data: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read tick data: %w", err)
	}

	ticks := make([]model.QuoteTick, 0, len(records))
	for i, record := range records {
		if i == 0 && record[0] == "symbol" {
			continue
		}
		if len(record) != 6 {
			return nil, fmt.Errorf("row %d: expected 6 columns (was %d)", i, len(record))
		}
		symbol, err := model.ParseSymbol(record[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		bid, err := model.NewPriceFromString(record[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		ask, err := model.NewPriceFromString(record[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		bidSize, err := model.NewQuantityFromString(record[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		askSize, err := model.NewQuantityFromString(record[4])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		timestamp, err := serialization.ParseTimestamp(record[5])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		ticks = append(ticks, model.QuoteTick{
			Symbol:    symbol,
			Bid:       bid,
			Ask:       ask,
			BidSize:   bidSize,
			AskSize:   askSize,
			Timestamp: timestamp,
		})
	}
	return ticks, nil
}
