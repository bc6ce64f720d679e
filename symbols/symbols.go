package symbols

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// FromArgs returns a copy of the symbols given on the command line.
func FromArgs(args []string) []string {
	symbols := make([]string, 0, len(args))
	for _, v := range args {
		v = strings.TrimSpace(v)
		if v != "" {
			symbols = append(symbols, v)
		}
	}
	return symbols
}

// ReadFile reads one symbol per line. Duplicates, order and case
// are preserved; blank lines are skipped.
func ReadFile(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open symbols file: %w", err)
	}
	defer f.Close()

	symbols, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read symbols file %s: %v", name, err)
	}
	return symbols, nil
}

func Read(r io.Reader) ([]string, error) {
	symbols := make([]string, 0)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		v := strings.TrimSpace(sc.Text())
		if v == "" {
			continue
		}
		symbols = append(symbols, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return symbols, nil
}

// Sort orders symbols byte-wise, so upper case sorts before lower case.
func Sort(symbols []string) {
	sort.Strings(symbols)
}
