// Package models defines the record types flowing through the pipeline and
// the value-level parsing rules that turn raw cells into canonical typed
// values.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReferenceRecord is one row of the reference (KEY) table: the billing
// metadata for a terminal.
type ReferenceRecord struct {
	TerminalID         string
	SiteLabel          string
	ClientName         string
	RegistrationNumber string
	TaxID              string
	Address            string
}

// Validate performs basic validation on the ReferenceRecord.
func (r *ReferenceRecord) Validate() error {
	if strings.TrimSpace(r.TerminalID) == "" {
		return fmt.Errorf("reference record terminal id cannot be empty")
	}
	if strings.TrimSpace(r.ClientName) == "" {
		return fmt.Errorf("reference record client name cannot be empty")
	}
	return nil
}

// String returns a string representation of the ReferenceRecord.
func (r *ReferenceRecord) String() string {
	return fmt.Sprintf("ReferenceRecord{TID: %s, Client: %s, Site: %s}",
		r.TerminalID, r.ClientName, r.SiteLabel)
}

// TransactionRecord is one row of the transaction (ASTOB) log.
type TransactionRecord struct {
	TerminalID   string
	ProductLabel string
	Amount       decimal.Decimal
	Timestamp    time.Time
}

// String returns a string representation of the TransactionRecord.
func (t *TransactionRecord) String() string {
	return fmt.Sprintf("TransactionRecord{TID: %s, Product: %s, Amount: %s, Time: %s}",
		t.TerminalID, t.ProductLabel, t.Amount.String(), t.Timestamp.Format("2006-01-02 15:04:05"))
}

// Equals compares two TransactionRecord instances for equality.
func (t *TransactionRecord) Equals(other *TransactionRecord) bool {
	if other == nil {
		return false
	}
	return t.TerminalID == other.TerminalID &&
		t.ProductLabel == other.ProductLabel &&
		t.Amount.Equal(other.Amount) &&
		t.Timestamp.Equal(other.Timestamp)
}
