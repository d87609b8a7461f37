// Package reconciler joins transaction records to reference records by
// terminal id, groups them by client, and computes per-client totals plus
// the global collection period.
package reconciler

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"astob-order-generator/internal/models"
	"astob-order-generator/pkg/errors"
	"astob-order-generator/pkg/logger"
)

// ClientGroup is the set of transactions attributable to one billing
// entity, sorted ascending by timestamp.
type ClientGroup struct {
	Client       models.ReferenceRecord
	Transactions []models.TransactionRecord
	Total        decimal.Decimal
}

// Result is the outcome of one reconciliation: the qualifying client
// groups, ordered by client name, and the collection period shared by
// every output document.
type Result struct {
	Groups           []ClientGroup
	PeriodStart      time.Time
	PeriodEnd        time.Time
	CollectionPeriod string
}

// collectionPeriodLayout is the day.month.year form used in document headers.
const collectionPeriodLayout = "02.01.2006"

// Reconcile joins transactions to reference records and produces the
// qualifying client groups.
//
// Policy decisions, fixed as contract:
//   - duplicate terminal ids in the reference table: first occurrence wins;
//   - transactions on unknown terminals are dropped, not errors;
//   - totals are rounded half away from zero to 2 decimals, and only
//     groups with a strictly positive total qualify;
//   - groups are ordered by client name so output is deterministic.
func Reconcile(transactions []models.TransactionRecord, reference []models.ReferenceRecord) (*Result, error) {
	log := logger.GetGlobalLogger().WithComponent("reconciler")

	if len(transactions) == 0 {
		return nil, errors.EmptyResultError(errors.CodeNoValidTimestamps)
	}

	lookup := buildLookup(reference)

	grouped := make(map[string][]models.TransactionRecord)
	clientInfo := make(map[string]models.ReferenceRecord)
	matched := 0
	var periodStart, periodEnd time.Time

	for _, tx := range transactions {
		ref, ok := lookup[tx.TerminalID]
		if !ok {
			continue
		}
		matched++
		grouped[ref.ClientName] = append(grouped[ref.ClientName], tx)
		if _, seen := clientInfo[ref.ClientName]; !seen {
			clientInfo[ref.ClientName] = ref
		}
		if periodStart.IsZero() || tx.Timestamp.Before(periodStart) {
			periodStart = tx.Timestamp
		}
		if periodEnd.IsZero() || tx.Timestamp.After(periodEnd) {
			periodEnd = tx.Timestamp
		}
	}

	log.WithFields(logger.Fields{
		"transactions": len(transactions),
		"reference":    len(lookup),
		"matched":      matched,
		"clients":      len(grouped),
	}).Debug("Join complete")

	if matched == 0 {
		return nil, errors.EmptyResultError(errors.CodeNoTerminalMatches)
	}

	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)

	var groups []ClientGroup
	for _, name := range names {
		txs := grouped[name]
		// Stable sort keeps original input order for equal timestamps.
		sort.SliceStable(txs, func(i, j int) bool {
			return txs[i].Timestamp.Before(txs[j].Timestamp)
		})

		total := decimal.Zero
		for _, tx := range txs {
			total = total.Add(tx.Amount)
		}
		total = total.Round(2)

		if total.Cmp(decimal.Zero) <= 0 {
			log.WithFields(logger.Fields{"client": name, "total": total.String()}).
				Debug("Dropping client with non-positive total")
			continue
		}

		groups = append(groups, ClientGroup{
			Client:       clientInfo[name],
			Transactions: txs,
			Total:        total,
		})
	}

	if len(groups) == 0 {
		return nil, errors.EmptyResultError(errors.CodeNonPositiveTotals)
	}

	result := &Result{
		Groups:      groups,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		CollectionPeriod: periodStart.Format(collectionPeriodLayout) +
			" - " + periodEnd.Format(collectionPeriodLayout),
	}

	log.WithFields(logger.Fields{
		"qualifying_clients": len(groups),
		"collection_period":  result.CollectionPeriod,
	}).Info("Reconciliation complete")

	return result, nil
}

// buildLookup indexes reference records by terminal id, first occurrence
// winning on duplicates.
func buildLookup(reference []models.ReferenceRecord) map[string]models.ReferenceRecord {
	lookup := make(map[string]models.ReferenceRecord, len(reference))
	for _, ref := range reference {
		if _, exists := lookup[ref.TerminalID]; exists {
			continue
		}
		lookup[ref.TerminalID] = ref
	}
	return lookup
}
