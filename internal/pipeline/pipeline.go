// Package pipeline orchestrates one order-generation run: ingest the
// transaction log and the reference table, reconcile them, render one
// document per qualifying client and package the archive.
package pipeline

import (
	"time"

	"github.com/google/uuid"

	"astob-order-generator/internal/archive"
	"astob-order-generator/internal/reconciler"
	"astob-order-generator/internal/renderer"
	"astob-order-generator/internal/schema"
	"astob-order-generator/internal/tabular"
	"astob-order-generator/pkg/logger"
)

// Options carries the per-run knobs. Zero values select the defaults:
// the current Bucharest time and the built-in column aliases.
type Options struct {
	RunDate            time.Time
	ReferenceAliases   schema.FieldAliases
	TransactionAliases schema.FieldAliases
}

// Output is the result of one successful run.
type Output struct {
	RunID            string
	Documents        []archive.Document
	Archive          []byte
	ArchiveName      string
	CollectionPeriod string
}

// LocalTime returns the local wall clock the generated documents are
// dated in. The documents are for Romanian entities, so this is Bucharest
// time, with a fixed UTC+3 fallback when the platform has no tz database.
func LocalTime() time.Time {
	loc, err := time.LoadLocation("Europe/Bucharest")
	if err != nil {
		loc = time.FixedZone("EEST", 3*60*60)
	}
	return time.Now().In(loc)
}

// Generate runs the full pipeline over the raw input bytes and returns the
// rendered documents plus the packaged archive. Inputs are the transaction
// log (astob), the reference table (key) and the xlsx order template.
func Generate(astob, key, template []byte, opts Options) (*Output, error) {
	runID := uuid.NewString()
	log := logger.GetGlobalLogger().
		WithComponent("pipeline").
		WithField("run_id", runID)

	runDate := opts.RunDate
	if runDate.IsZero() {
		runDate = LocalTime()
	}
	refAliases := opts.ReferenceAliases
	if refAliases == nil {
		refAliases = schema.DefaultReferenceAliases()
	}
	txAliases := opts.TransactionAliases
	if txAliases == nil {
		txAliases = schema.DefaultTransactionAliases()
	}

	log.WithFields(logger.Fields{
		"astob_bytes":    len(astob),
		"key_bytes":      len(key),
		"template_bytes": len(template),
	}).Info("Starting order generation run")

	keyTable, err := tabular.Load(key, "key")
	if err != nil {
		return nil, err
	}
	astobTable, err := tabular.Load(astob, "astob")
	if err != nil {
		return nil, err
	}
	log.WithFields(logger.Fields{
		"key_rows":   len(keyTable.Rows),
		"astob_rows": len(astobTable.Rows),
	}).Debug("Input tables loaded")

	refCols, err := resolveReferenceColumns(keyTable, refAliases)
	if err != nil {
		return nil, err
	}
	txResolver := schema.NewResolver(astobTable.Headers)
	txResolved, err := txResolver.ResolveAll(txAliases, schema.FieldTime)
	if err != nil {
		return nil, err
	}
	txCols := indexColumns(astobTable, txResolved)

	reference := buildReferenceRecords(keyTable, refCols, log)
	transactions, dropped := buildTransactionRecords(astobTable, txCols, log)
	log.WithFields(logger.Fields{
		"reference_records":   len(reference),
		"transaction_records": len(transactions),
		"dropped_rows":        dropped,
	}).Info("Input records built")

	result, err := reconciler.Reconcile(transactions, reference)
	if err != nil {
		return nil, err
	}

	documents := make([]archive.Document, 0, len(result.Groups))
	for _, group := range result.Groups {
		data, err := renderer.Render(template, group, result.CollectionPeriod, runDate)
		if err != nil {
			return nil, err
		}
		documents = append(documents, archive.Document{
			Name: archive.SafeFileName(group.Client.ClientName),
			Data: data,
		})
	}

	zipData, err := archive.Package(documents)
	if err != nil {
		return nil, err
	}

	log.WithFields(logger.Fields{
		"documents":         len(documents),
		"archive_bytes":     len(zipData),
		"collection_period": result.CollectionPeriod,
	}).Info("Order generation run complete")

	return &Output{
		RunID:            runID,
		Documents:        documents,
		Archive:          zipData,
		ArchiveName:      archive.ArchiveName,
		CollectionPeriod: result.CollectionPeriod,
	}, nil
}

// resolveReferenceColumns resolves the reference table schema. The client
// name column is optional in the wild: exports that lack it use the site
// column as the billing entity name.
func resolveReferenceColumns(table *tabular.Table, aliases schema.FieldAliases) (columnIndexes, error) {
	resolver := schema.NewResolver(table.Headers)
	resolved, err := resolver.ResolveAll(aliases, schema.FieldClientName)
	if err != nil {
		return nil, err
	}
	if _, ok := resolved[schema.FieldClientName]; !ok {
		resolved[schema.FieldClientName] = resolved[schema.FieldSiteLabel]
	}
	return indexColumns(table, resolved), nil
}
