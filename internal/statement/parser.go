package statement

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const headerScanRows = 40

// ErrNoStatementSheet is returned when no worksheet carries the
// expected header row.
var ErrNoStatementSheet = errors.New("no worksheet with statement headers")

// Config selects the statement's currency columns. The home currency
// column feeds the settled amount; the foreign columns hold converted
// values in the order they appear on the sheet.
type Config struct {
	HomeCurrency      string
	ForeignCurrencies []string
}

// DefaultConfig matches the bank's export layout.
func DefaultConfig() Config {
	return Config{
		HomeCurrency:      "GEL",
		ForeignCurrencies: []string{"USD", "EUR", "GBP"},
	}
}

// ParsedTransaction is one normalized statement row.
type ParsedTransaction struct {
	Date             time.Time
	PostedDate       *time.Time
	DescriptionRaw   string
	Direction        string
	AmountOriginal   decimal.Decimal
	CurrencyOriginal string
	AmountGEL        decimal.Decimal
	ConversionRate   *decimal.Decimal
	CardLast4        string
	MCCCode          string
	DedupKey         string
}

// Result carries the parsed rows plus row accounting and the header
// diagnostics stored on the upload record.
type Result struct {
	Transactions              []ParsedTransaction
	RowsTotal                 int
	RowsSkippedNonTransaction int
	RowsInvalid               int

	SheetNames []string
	SheetName  string
	HeaderRow  int
}

// Parser turns statement .xlsx bytes into normalized transactions.
// Row failures are counted, never propagated: one ruined row must not
// sink the batch.
type Parser struct {
	log        *zap.Logger
	home       string
	currencies []string // home first, then foreign, lowercased
}

func NewParser(cfg Config, log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	home := strings.ToLower(strings.TrimSpace(cfg.HomeCurrency))
	if home == "" {
		home = "gel"
	}
	currencies := []string{home}
	for _, c := range cfg.ForeignCurrencies {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || c == home {
			continue
		}
		currencies = append(currencies, c)
	}
	return &Parser{
		log:        log.Named("statement.parser"),
		home:       home,
		currencies: currencies,
	}
}

// Parse reads the workbook, locates the first worksheet with a header
// row and normalizes every data row under it.
func (p *Parser) Parse(data []byte) (*Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()

	var (
		rows      [][]string
		headerIdx int
		headerMap map[string]int
		sheetName string
		found     bool
	)
	for _, sheet := range sheets {
		sheetRows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		idx, cols, ok := p.findHeader(sheetRows)
		if !ok {
			continue
		}
		rows, headerIdx, headerMap, sheetName, found = sheetRows, idx, cols, sheet, true
		break
	}
	if !found {
		return nil, ErrNoStatementSheet
	}

	p.log.Debug("statement header located",
		zap.String("sheet", sheetName),
		zap.Int("header_row", headerIdx+1),
	)

	result := &Result{
		SheetNames: sheets,
		SheetName:  sheetName,
		HeaderRow:  headerIdx + 1,
	}

	for rowIdx := headerIdx + 1; rowIdx < len(rows); rowIdx++ {
		values := cellValues(rows[rowIdx], headerMap)

		if allBlank(values) {
			continue
		}

		// Row accounting counts every non-blank row, including the
		// ones skipped below. Skip tests run after the increment.
		result.RowsTotal++

		dateCell := values["date"]
		details := strings.TrimSpace(values["details"])

		if strings.ToLower(strings.TrimSpace(dateCell)) == "balance" {
			result.RowsSkippedNonTransaction++
			continue
		}
		if normalizeHeader(dateCell) == "date" && normalizeHeader(values["details"]) == "details" {
			result.RowsSkippedNonTransaction++
			continue
		}
		if details == "" && p.allCurrenciesBlank(values) {
			result.RowsSkippedNonTransaction++
			continue
		}

		txn, err := p.parseRow(dateCell, details, values)
		if err != nil {
			result.RowsInvalid++
			p.log.Debug("row failed to parse",
				zap.String("sheet", sheetName),
				zap.Int("row", rowIdx+1),
				zap.Error(err),
			)
			continue
		}
		result.Transactions = append(result.Transactions, txn)
	}

	return result, nil
}

func (p *Parser) parseRow(dateCell, details string, values map[string]string) (ParsedTransaction, error) {
	statementDate, err := parseStatementDate(dateCell)
	if err != nil {
		return ParsedTransaction{}, err
	}

	postedDate := ExtractPostedDate(details)
	direction := InferDirection(details)

	var (
		currencyOriginal string
		amountOriginal   decimal.Decimal
	)
	tableCurrency, tableSigned, tableOK := p.signedCurrencyValue(values)
	if narrCurrency, narrAmount, ok := ExtractNarrativeAmount(details); ok {
		currencyOriginal = narrCurrency
		amountOriginal = narrAmount
	} else {
		if !tableOK {
			return ParsedTransaction{}, errors.New("missing amount information")
		}
		currencyOriginal = tableCurrency
		amountOriginal = tableSigned.Abs()
	}

	conversionRate := ExtractConversionRate(details)

	homeUpper := strings.ToUpper(p.home)
	var amountGEL decimal.Decimal
	gelCell := strings.TrimSpace(values[p.home])
	switch {
	case gelCell != "":
		parsed, err := ParseDecimal(gelCell)
		if err != nil {
			return ParsedTransaction{}, err
		}
		amountGEL = parsed.Abs()
	case currencyOriginal != homeUpper && conversionRate != nil:
		amountGEL = amountOriginal.Mul(*conversionRate).Round(2)
	case currencyOriginal == homeUpper:
		amountGEL = amountOriginal
	case tableOK:
		amountGEL = tableSigned.Abs()
	default:
		return ParsedTransaction{}, errors.New("unable to derive home-currency amount")
	}

	return ParsedTransaction{
		Date:             statementDate,
		PostedDate:       postedDate,
		DescriptionRaw:   details,
		Direction:        direction,
		AmountOriginal:   amountOriginal.RoundBank(2),
		CurrencyOriginal: currencyOriginal,
		AmountGEL:        amountGEL.RoundBank(2),
		ConversionRate:   conversionRate,
		CardLast4:        ExtractCardLast4(details),
		MCCCode:          ExtractMCC(details),
		DedupKey:         ComputeDedupKey(statementDate, amountOriginal, details),
	}, nil
}

// findHeader scans the leading rows for a header carrying a date
// column, a details column and at least one currency column.
func (p *Parser) findHeader(rows [][]string) (int, map[string]int, bool) {
	maxScan := min(len(rows), headerScanRows)
	for rowIdx := 0; rowIdx < maxScan; rowIdx++ {
		headerMap := map[string]int{}
		for colIdx, cell := range rows[rowIdx] {
			normalized := normalizeHeader(cell)
			switch {
			case normalized == "date":
				headerMap["date"] = colIdx
			case normalized == "details":
				headerMap["details"] = colIdx
			case p.isCurrencyHeader(normalized):
				headerMap[normalized] = colIdx
			}
		}

		_, hasDate := headerMap["date"]
		_, hasDetails := headerMap["details"]
		if hasDate && hasDetails && p.currencyColumns(headerMap) > 0 {
			return rowIdx, headerMap, true
		}
	}
	return 0, nil, false
}

func (p *Parser) isCurrencyHeader(normalized string) bool {
	for _, c := range p.currencies {
		if normalized == c {
			return true
		}
	}
	return false
}

func (p *Parser) currencyColumns(headerMap map[string]int) int {
	n := 0
	for _, c := range p.currencies {
		if _, ok := headerMap[c]; ok {
			n++
		}
	}
	return n
}

// signedCurrencyValue returns the first parsable currency cell, home
// column first, preserving its sign.
func (p *Parser) signedCurrencyValue(values map[string]string) (string, decimal.Decimal, bool) {
	for _, currency := range p.currencies {
		raw := strings.TrimSpace(values[currency])
		if raw == "" {
			continue
		}
		parsed, err := ParseDecimal(raw)
		if err != nil {
			continue
		}
		return strings.ToUpper(currency), parsed, true
	}
	return "", decimal.Decimal{}, false
}

func (p *Parser) allCurrenciesBlank(values map[string]string) bool {
	for _, currency := range p.currencies {
		if strings.TrimSpace(values[currency]) != "" {
			return false
		}
	}
	return true
}

func cellValues(row []string, headerMap map[string]int) map[string]string {
	values := make(map[string]string, len(headerMap))
	for key, colIdx := range headerMap {
		if colIdx < len(row) {
			values[key] = row[colIdx]
		} else {
			values[key] = ""
		}
	}
	return values
}

func allBlank(values map[string]string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

var statementDateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"01-02-06",
	"1-2-06",
}

// parseStatementDate handles the date column's shapes: the bank's
// DD/MM/YYYY text, ISO text, excelize-rendered date cells and raw
// Excel serials.
func parseStatementDate(value string) (time.Time, error) {
	text := strings.TrimSpace(value)
	if text == "" {
		return time.Time{}, errors.New("empty date cell")
	}

	for _, layout := range statementDateLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			return parsed.UTC(), nil
		}
	}

	if serial, err := strconv.ParseFloat(text, 64); err == nil {
		parsed, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}
