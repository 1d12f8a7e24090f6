package pipeline

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/dnldd/etfsignal/shared"
	"github.com/gocarina/gocsv"
)

// utf8BOM marks csv artifacts as utf-8 for spreadsheet tools.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvRow represents one (symbol, timestamp) row of the csv artifact.
type csvRow struct {
	Symbol    string `csv:"symbol"`
	Timestamp string `csv:"timestamp"`
	Open      string `csv:"open"`
	High      string `csv:"high"`
	Low       string `csv:"low"`
	Close     string `csv:"close"`
	Volume    string `csv:"volume"`
}

// csvValue stringifies a bar value, NaN becomes an empty cell.
func csvValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}

	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes the canonical columns of the provided series tagged with their
// symbol, one row per bar.
func WriteCSV(w io.Writer, series []*shared.Series) error {
	rows := make([]*csvRow, 0)
	for _, s := range series {
		layout := shared.DateLayout
		if s.Frequency.Intraday() {
			layout = shared.DateTimeLayout
		}

		for idx := range s.Bars {
			bar := s.Bars[idx]
			rows = append(rows, &csvRow{
				Symbol:    s.Symbol,
				Timestamp: bar.Timestamp.Format(layout),
				Open:      csvValue(bar.Open),
				High:      csvValue(bar.High),
				Low:       csvValue(bar.Low),
				Close:     csvValue(bar.Close),
				Volume:    csvValue(bar.Volume),
			})
		}
	}

	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("writing byte order mark: %w", err)
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("marshalling csv rows: %w", err)
	}

	return nil
}

// WriteCSVFile writes the csv artifact to the provided path.
func WriteCSVFile(path string, series []*shared.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	err = WriteCSV(f, series)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing %s: %w", path, cerr)
	}

	return err
}
