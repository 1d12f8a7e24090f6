package fetch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dnldd/etfsignal/shared"
	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// utf8BOM is the byte order mark spreadsheet tools prefix csv exports with.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SymbolColumn is the column multi-symbol data files tag rows with.
const SymbolColumn = "symbol"

// HistoricDataConfig represents the historic data source configuration.
type HistoricDataConfig struct {
	// FilePath is the filepath to the historic market data, a csv or json array file.
	FilePath string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// HistoricData represents a local historic market data file.
type HistoricData struct {
	cfg   *HistoricDataConfig
	table *shared.RawTable
}

// Ensure HistoricData implements the MarketFetcher interface.
var _ MarketFetcher = (*HistoricData)(nil)

// loadCSV parses csv bytes into a raw table.
func loadCSV(data []byte) (*shared.RawTable, error) {
	rows, err := gocsv.CSVToMaps(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}

	// Recover the header order, maps do not keep it.
	header, _, _ := bytes.Cut(data, []byte("\n"))
	columns := strings.Split(strings.TrimRight(string(header), "\r"), ",")
	for idx := range columns {
		columns[idx] = strings.Trim(columns[idx], "\" ")
	}

	return &shared.RawTable{Columns: columns, Rows: rows}, nil
}

// loadJSON parses a json array of objects into a raw table.
func loadJSON(data []byte) (*shared.RawTable, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json")
	}

	items := gjson.ParseBytes(data).Array()
	table := shared.NewRawTable()
	for idx := range items {
		row := make(map[string]string)
		items[idx].ForEach(func(key, value gjson.Result) bool {
			name := key.String()
			if !table.HasColumn(name) {
				table.Columns = append(table.Columns, name)
			}
			if value.Type != gjson.Null {
				row[name] = value.String()
			}
			return true
		})
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// loadHistoricData loads the historic data table from the provided file path.
func loadHistoricData(path string) (*shared.RawTable, error) {
	readb, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading historic data from file with path '%s': %w", path, err)
	}

	readb = bytes.TrimPrefix(readb, utf8BOM)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadJSON(readb)
	default:
		return loadCSV(readb)
	}
}

// NewHistoricData initializes a new historic data source.
func NewHistoricData(cfg *HistoricDataConfig) (*HistoricData, error) {
	table, err := loadHistoricData(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("loading historic data: %w", err)
	}

	cfg.Logger.Info().Msgf("loaded %d historic data rows from %s", table.Len(), cfg.FilePath)

	return &HistoricData{cfg: cfg, table: table}, nil
}

// Name returns the data source name.
func (h *HistoricData) Name() string {
	return "file"
}

// Fetch returns the rows of the requested symbol. Files without a symbol column
// are assumed to hold a single symbol. The date range is applied after normalization.
func (h *HistoricData) Fetch(ctx context.Context, req *Request) (*shared.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	columns := slices.Clone(h.table.Columns)
	if !h.table.HasColumn(SymbolColumn) {
		return &shared.RawTable{Columns: columns, Rows: slices.Clone(h.table.Rows)}, nil
	}

	table := &shared.RawTable{Columns: columns, Rows: make([]map[string]string, 0)}
	for _, row := range h.table.Rows {
		if row[SymbolColumn] == req.Symbol {
			table.Rows = append(table.Rows, row)
		}
	}

	if table.Len() == 0 {
		return nil, fmt.Errorf("no rows for %s in %s", req.Symbol, h.cfg.FilePath)
	}

	return table, nil
}
