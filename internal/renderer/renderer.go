// Package renderer fills the xlsx order template for one client group.
// The template is a styled workbook carrying placeholder tokens; rendering
// replaces the metadata tokens, expands the single model row into one row
// per transaction while preserving the template styling, and writes the
// group total below the table.
package renderer

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"astob-order-generator/internal/reconciler"
	"astob-order-generator/pkg/errors"
	"astob-order-generator/pkg/logger"
)

// tokenPos is a 1-based cell coordinate where a token was found.
type tokenPos struct {
	row int
	col int
}

// Render produces the order document for one client group from the xlsx
// template. collectionPeriod and runDate are shared across all documents
// of a run.
func Render(template []byte, group reconciler.ClientGroup, collectionPeriod string, runDate time.Time) ([]byte, error) {
	log := logger.GetGlobalLogger().WithComponent("renderer")

	if len(group.Transactions) == 0 {
		return nil, errors.InternalError("render called with an empty client group", nil)
	}

	f, err := excelize.OpenReader(bytes.NewReader(template))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryTemplate, errors.CodeTemplateRead, "failed to open the order template workbook")
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	positions, err := locateTokens(f, sheet)
	if err != nil {
		return nil, err
	}

	// The model row sits directly below the lowest table-header token. Its
	// cells carry the styling every data row inherits.
	modelRow := 0
	for _, tok := range []string{TokenSite, TokenTerminal, TokenProduct, TokenAmount, TokenTimestamp} {
		if r := positions[tok].row; r > modelRow {
			modelRow = r
		}
	}
	modelRow++

	columns := map[string]int{
		TokenSite:      positions[TokenSite].col,
		TokenTerminal:  positions[TokenTerminal].col,
		TokenProduct:   positions[TokenProduct].col,
		TokenAmount:    positions[TokenAmount].col,
		TokenTimestamp: positions[TokenTimestamp].col,
	}

	// Capture the model row before inserting: style ids per column and the
	// row height, so inserted rows come out identical.
	modelStyles := make(map[string]int, len(columns))
	for tok, col := range columns {
		cell, err := excelize.CoordinatesToCellName(col, modelRow)
		if err != nil {
			return nil, errors.InternalError("invalid model row coordinates", err)
		}
		styleID, err := f.GetCellStyle(sheet, cell)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryTemplate, errors.CodeTemplateRead, "failed to read template cell styling")
		}
		modelStyles[tok] = styleID
	}
	modelHeight, err := f.GetRowHeight(sheet, modelRow)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryTemplate, errors.CodeTemplateRead, "failed to read template row height")
	}

	n := len(group.Transactions)
	if n > 1 {
		// Insert before the row after the model row so the model row keeps
		// its position and everything below, the total included, shifts down.
		if err := f.InsertRows(sheet, modelRow+1, n-1); err != nil {
			return nil, errors.InternalError("expanding the template data region", err)
		}
	}

	// The amount and timestamp columns get fixed number formats regardless
	// of what the template declares for the model row.
	amountStyle, err := overrideNumFmt(f, modelStyles[TokenAmount], amountNumFmt)
	if err != nil {
		return nil, err
	}
	timestampStyle, err := overrideNumFmt(f, modelStyles[TokenTimestamp], timestampNumFmt)
	if err != nil {
		return nil, err
	}

	for i, tx := range group.Transactions {
		r := modelRow + i
		amount, _ := tx.Amount.Round(2).Float64()

		if err := setCell(f, sheet, columns[TokenSite], r, group.Client.SiteLabel, modelStyles[TokenSite]); err != nil {
			return nil, err
		}
		if err := setCell(f, sheet, columns[TokenTerminal], r, tx.TerminalID, modelStyles[TokenTerminal]); err != nil {
			return nil, err
		}
		if err := setCell(f, sheet, columns[TokenProduct], r, tx.ProductLabel, modelStyles[TokenProduct]); err != nil {
			return nil, err
		}
		if err := setCell(f, sheet, columns[TokenAmount], r, amount, amountStyle); err != nil {
			return nil, err
		}
		if err := setCell(f, sheet, columns[TokenTimestamp], r, tx.Timestamp, timestampStyle); err != nil {
			return nil, err
		}

		if i > 0 && modelHeight > 0 {
			if err := f.SetRowHeight(sheet, r, modelHeight); err != nil {
				return nil, errors.InternalError("setting data row height", err)
			}
		}
	}

	// The total cell moved down with everything below the model row.
	totalRow := positions[TokenTotal].row + (n - 1)
	totalCol := positions[TokenTotal].col
	totalCell, err := excelize.CoordinatesToCellName(totalCol, totalRow)
	if err != nil {
		return nil, errors.InternalError("invalid total cell coordinates", err)
	}
	totalStyleID, err := f.GetCellStyle(sheet, totalCell)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryTemplate, errors.CodeTemplateRead, "failed to read total cell styling")
	}
	totalStyle, err := overrideNumFmt(f, totalStyleID, amountNumFmt)
	if err != nil {
		return nil, err
	}
	total, _ := group.Total.Float64()
	if err := setCell(f, sheet, totalCol, totalRow, total, totalStyle); err != nil {
		return nil, err
	}

	if err := replaceTextTokens(f, sheet, group, collectionPeriod, runDate); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.InternalError("serializing the rendered workbook", err)
	}

	log.WithFields(logger.Fields{
		"client":       group.Client.ClientName,
		"transactions": n,
		"total":        group.Total.String(),
	}).Debug("Rendered order document")

	return buf.Bytes(), nil
}

// locateTokens scans the sheet for every required token and returns the
// first occurrence of each. A token the template lacks is a layout error
// the caller cannot recover from.
func locateTokens(f *excelize.File, sheet string) (map[string]tokenPos, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryTemplate, errors.CodeTemplateRead, "failed to read template rows")
	}

	positions := make(map[string]tokenPos, len(requiredTokens))
	for ri, row := range rows {
		for ci, text := range row {
			if !strings.Contains(text, "{") {
				continue
			}
			for _, tok := range requiredTokens {
				if _, seen := positions[tok]; seen {
					continue
				}
				if strings.Contains(text, tok) {
					positions[tok] = tokenPos{row: ri + 1, col: ci + 1}
				}
			}
		}
	}

	var missing []string
	for _, tok := range requiredTokens {
		if _, ok := positions[tok]; !ok {
			missing = append(missing, tok)
		}
	}
	if len(missing) > 0 {
		return nil, errors.TemplateLayoutError(missing)
	}
	return positions, nil
}

// replaceTextTokens rewrites every remaining token occurrence in place:
// metadata tokens with the client and run values, table-header tokens with
// their display labels. Substring replacement keeps the surrounding text
// of mixed cells like "Client: {NUME}".
func replaceTextTokens(f *excelize.File, sheet string, group reconciler.ClientGroup, collectionPeriod string, runDate time.Time) error {
	replacements := map[string]string{
		TokenHeaderDate:   HeaderDate(runDate),
		TokenPeriod:       collectionPeriod,
		TokenClientName:   group.Client.ClientName,
		TokenRegistration: group.Client.RegistrationNumber,
		TokenTaxID:        group.Client.TaxID,
		TokenAddress:      group.Client.Address,
	}
	for tok, label := range headerLabels {
		replacements[tok] = label
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return errors.Wrap(err, errors.CategoryTemplate, errors.CodeTemplateRead, "failed to re-read template rows")
	}

	for ri, row := range rows {
		for ci, text := range row {
			if !strings.Contains(text, "{") {
				continue
			}
			replaced := text
			for tok, value := range replacements {
				replaced = strings.ReplaceAll(replaced, tok, value)
			}
			if replaced == text {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(ci+1, ri+1)
			if err != nil {
				return errors.InternalError("invalid token cell coordinates", err)
			}
			if err := f.SetCellValue(sheet, cell, replaced); err != nil {
				return errors.InternalError("replacing a template token", err)
			}
		}
	}
	return nil
}

// overrideNumFmt clones a style with its number format replaced.
func overrideNumFmt(f *excelize.File, styleID int, numFmt string) (int, error) {
	style, err := f.GetStyle(styleID)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryTemplate, errors.CodeTemplateRead, "failed to read template style")
	}
	style.NumFmt = 0
	style.CustomNumFmt = &numFmt
	newID, err := f.NewStyle(style)
	if err != nil {
		return 0, errors.InternalError("building a data cell style", err)
	}
	return newID, nil
}

// setCell writes a value and then forces the style, so the explicit style
// wins over any default excelize applies for the value type.
func setCell(f *excelize.File, sheet string, col, row int, value interface{}, styleID int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return errors.InternalError(fmt.Sprintf("invalid cell coordinates (%d,%d)", col, row), err)
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return errors.InternalError("writing a data cell", err)
	}
	if err := f.SetCellStyle(sheet, cell, cell, styleID); err != nil {
		return errors.InternalError("styling a data cell", err)
	}
	return nil
}
