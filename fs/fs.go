package fs

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"szakszon.com/holdings"
)

const LogFileName = "etf-log.csv"

func HoldingsFileName(symbol string) string {
	return symbol + "-holdings.csv"
}

type Writer struct {
	Dir string
}

// WriteHoldings overwrites <symbol>-holdings.csv with the header
// and the given records.
func (w *Writer) WriteHoldings(
	symbol string,
	records [][]string,
) (string, error) {
	p := filepath.Join(w.Dir, HoldingsFileName(symbol))
	all := make([][]string, 0, len(records)+1)
	all = append(all, holdings.HoldingsHeader)
	all = append(all, records...)

	if err := save(p, all); err != nil {
		return "", fmt.Errorf("save holdings %s: %v", symbol, err)
	}
	return p, nil
}

// WriteLog overwrites etf-log.csv. An empty entry list still writes
// the header.
func (w *Writer) WriteLog(entries []*holdings.LogEntry) (string, error) {
	p := filepath.Join(w.Dir, LogFileName)
	all := make([][]string, 0, len(entries)+1)
	all = append(all, holdings.LogHeader)
	for _, e := range entries {
		all = append(all, []string{
			e.Symbol,
			e.Name,
			e.LastPrice,
			strconv.Itoa(e.NumHoldings),
		})
	}

	if err := save(p, all); err != nil {
		return "", fmt.Errorf("save log: %v", err)
	}
	return p, nil
}

func save(p string, records [][]string) error {
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir %s: %v", dir, err)
	}

	tmp, err := saveCSVTmp(dir, filepath.Base(p)+".tmp", records)
	if err != nil {
		return fmt.Errorf("save temp file: %v", err)
	}
	defer os.Remove(tmp)

	if err = os.Rename(tmp, p); err != nil {
		return fmt.Errorf("rename %s -> %s: %v", tmp, p, err)
	}
	return nil
}

func saveCSVTmp(dir, name string, records [][]string) (string, error) {
	tmp, err := os.CreateTemp(dir, name)
	if err != nil {
		return "", fmt.Errorf("create temp file: %v", err)
	}
	defer tmp.Close()

	if err = writeCSV(tmp, records); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %v", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("chmod temp file: %v", err)
	}

	return tmp.Name(), nil
}

func writeCSV(o io.Writer, records [][]string) error {
	w := csv.NewWriter(o)
	w.WriteAll(records)
	err := w.Error()
	if err != nil {
		return fmt.Errorf("write csv: %v", err)
	}
	return nil
}
