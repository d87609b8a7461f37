package pipeline

import (
	"astob-order-generator/internal/models"
	"astob-order-generator/internal/schema"
	"astob-order-generator/internal/tabular"
	"astob-order-generator/pkg/logger"
)

// columnIndexes maps resolved logical fields to column positions in one
// table. Fields that did not resolve are absent; Table.Cell treats their
// -1 index as an empty cell.
type columnIndexes map[string]int

func indexColumns(table *tabular.Table, resolved map[string]string) columnIndexes {
	idx := make(columnIndexes, len(resolved))
	for field, header := range resolved {
		idx[field] = table.ColumnIndex(header)
	}
	return idx
}

func (c columnIndexes) get(field string) int {
	if i, ok := c[field]; ok {
		return i
	}
	return -1
}

// buildReferenceRecords converts the reference table rows into records.
// Rows without a terminal id carry no join key and are skipped.
func buildReferenceRecords(table *tabular.Table, cols columnIndexes, log logger.Logger) []models.ReferenceRecord {
	var records []models.ReferenceRecord
	skipped := 0

	for ri := range table.Rows {
		tid := models.NormalizeTerminalID(table.Cell(ri, cols.get(schema.FieldTerminalID)))
		if tid == "" {
			skipped++
			continue
		}
		records = append(records, models.ReferenceRecord{
			TerminalID:         tid,
			SiteLabel:          table.Cell(ri, cols.get(schema.FieldSiteLabel)).String(),
			ClientName:         table.Cell(ri, cols.get(schema.FieldClientName)).String(),
			RegistrationNumber: table.Cell(ri, cols.get(schema.FieldRegistration)).String(),
			TaxID:              table.Cell(ri, cols.get(schema.FieldTaxID)).String(),
			Address:            table.Cell(ri, cols.get(schema.FieldAddress)).String(),
		})
	}

	if skipped > 0 {
		log.WithField("rows", skipped).Debug("Skipped reference rows without a terminal id")
	}
	return records
}

// buildTransactionRecords converts the transaction table rows into records.
// Rows without a terminal id or without a parsable timestamp are dropped;
// the dropped count is returned for reporting.
func buildTransactionRecords(table *tabular.Table, cols columnIndexes, log logger.Logger) ([]models.TransactionRecord, int) {
	var records []models.TransactionRecord
	dropped := 0

	for ri := range table.Rows {
		tid := models.NormalizeTerminalID(table.Cell(ri, cols.get(schema.FieldTerminalID)))
		if tid == "" {
			dropped++
			continue
		}

		ts, ok := models.ParseTimestamp(
			table.Cell(ri, cols.get(schema.FieldDate)),
			table.Cell(ri, cols.get(schema.FieldTime)),
		)
		if !ok {
			dropped++
			continue
		}

		records = append(records, models.TransactionRecord{
			TerminalID:   tid,
			ProductLabel: table.Cell(ri, cols.get(schema.FieldProduct)).String(),
			Amount:       models.ParseAmount(table.Cell(ri, cols.get(schema.FieldAmount))),
			Timestamp:    ts,
		})
	}

	if dropped > 0 {
		log.WithField("rows", dropped).Debug("Dropped transaction rows without terminal id or timestamp")
	}
	return records, dropped
}
