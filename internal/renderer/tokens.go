package renderer

import (
	"fmt"
	"time"
)

// Placeholder tokens expected in the template, matched as substrings of
// cell text. Header/metadata tokens are replaced in place; table-header
// tokens also anchor the data region.
const (
	TokenHeaderDate   = "{HEADER_DATE}"
	TokenPeriod       = "{COLECTARI}"
	TokenClientName   = "{NUME}"
	TokenRegistration = "{NR. INREGISTRARE R.C.}"
	TokenTaxID        = "{CUI}"
	TokenAddress      = "{ADRESA}"

	TokenSite      = "{DENUMIRE SITE}"
	TokenTerminal  = "{TID}"
	TokenProduct   = "{DENUMIRE PRODUS}"
	TokenAmount    = "{VALOARE CU TVA}"
	TokenTimestamp = "{DATA TRANZACTIEI}"

	TokenTotal = "{TOTAL}"
)

// requiredTokens lists every token the template must contain.
var requiredTokens = []string{
	TokenHeaderDate,
	TokenPeriod,
	TokenClientName,
	TokenRegistration,
	TokenTaxID,
	TokenAddress,
	TokenSite,
	TokenTerminal,
	TokenProduct,
	TokenAmount,
	TokenTimestamp,
	TokenTotal,
}

// Display labels written over the table-header tokens.
var headerLabels = map[string]string{
	TokenSite:      "Denumire Site",
	TokenTerminal:  "TID",
	TokenProduct:   "Denumire Produs",
	TokenAmount:    "Valoare cu TVA",
	TokenTimestamp: "Data Tranzactiei",
}

// romanianMonths holds the uppercase month names used in document headers.
var romanianMonths = [...]string{
	"IANUARIE", "FEBRUARIE", "MARTIE", "APRILIE", "MAI", "IUNIE",
	"IULIE", "AUGUST", "SEPTEMBRIE", "OCTOMBRIE", "NOIEMBRIE", "DECEMBRIE",
}

// HeaderDate formats the run date for the document header, e.g.
// "5 AUGUST 2024".
func HeaderDate(d time.Time) string {
	return fmt.Sprintf("%d %s %d", d.Day(), romanianMonths[d.Month()-1], d.Year())
}

// Number format overrides applied to the data region. Templates in the
// wild carry incorrect inherited formats in the model row, so the amount
// and timestamp columns always get these instead.
const (
	amountNumFmt    = "0.00"
	timestampNumFmt = "yyyy-mm-dd hh:mm:ss"
)
