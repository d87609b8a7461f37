package schema

// Logical field names resolved against the reference (KEY) table.
const (
	FieldTerminalID   = "terminal_id"
	FieldSiteLabel    = "site_label"
	FieldClientName   = "client_name"
	FieldRegistration = "registration_number"
	FieldTaxID        = "tax_id"
	FieldAddress      = "address"
)

// Logical field names resolved against the transaction (ASTOB) table.
const (
	FieldProduct = "product_label"
	FieldAmount  = "amount"
	FieldDate    = "date"
	FieldTime    = "time"
)

// FieldAliases maps a logical field name to its accepted column headers,
// ordered by priority: the first candidate that matches wins.
type FieldAliases map[string][]string

// Clone returns a deep copy so callers can customize aliases without
// mutating the defaults.
func (fa FieldAliases) Clone() FieldAliases {
	out := make(FieldAliases, len(fa))
	for field, candidates := range fa {
		out[field] = append([]string(nil), candidates...)
	}
	return out
}

// DefaultReferenceAliases returns the accepted headers for the reference
// (KEY) table. Upstream exports are inconsistent about header wording, so
// each field carries the synonyms observed in production files.
func DefaultReferenceAliases() FieldAliases {
	return FieldAliases{
		FieldTerminalID:   {"TID", "NR. TERMINAL", "NR TERMINAL"},
		FieldSiteLabel:    {"DENUMIRE SITE", "DENUMIRE SOCIETATEAGENT", "DENUMIRE SOCIETATE AGENT", "SITE"},
		FieldClientName:   {"NUME", "CLIENT", "DENUMIRE CLIENT", "DENUMIRE"},
		FieldRegistration: {"NR. INREGISTRARE R.C.", "NR INREGISTRARE RC", "NR INREGISTRARE", "NR. INREGISTRARE"},
		FieldTaxID:        {"CUI", "CUI CNP"},
		FieldAddress:      {"ADRESA", "SEDIUL CENTRAL", "ADRESA SEDIUL CENTRAL"},
	}
}

// DefaultTransactionAliases returns the accepted headers for the
// transaction (ASTOB) table.
func DefaultTransactionAliases() FieldAliases {
	return FieldAliases{
		FieldTerminalID: {"NR. TERMINAL", "NR TERMINAL", "TID"},
		FieldProduct:    {"NUME OPERATOR", "NUME COMERCIANT", "COMERCIANT", "DENUMIRE PRODUS"},
		FieldAmount:     {"SUMA TRANZACTIEI", "SUMA TRANZACTIE", "SUMA", "VALOARE CU TVA", "VALOARE TRANZACTIE"},
		FieldDate:       {"DATA TRANZACTIEI", "DATA"},
		FieldTime:       {"ORA TRANZACTIEI", "ORA"},
	}
}
