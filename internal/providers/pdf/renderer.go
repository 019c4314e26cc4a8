// Package pdf renders printable invoice documents.
package pdf

import (
	"context"
	"fmt"
	"time"
)

// LineItem is one printed invoice position.
type LineItem struct {
	Kind           string
	Description    string
	Quantity       int64
	UnitPriceCents int64
	AmountCents    int64
}

// Document carries everything the invoice PDF shows, decoupled from the
// persistence types.
type Document struct {
	Number    string
	Status    string
	IssueDate time.Time
	Currency  string

	LabName    string
	LabAddress string
	LabEmail   string
	LabPhone   string

	DentistName    string
	ClinicName     string
	DentistAddress string

	BankName      string
	IBAN          string
	BIC           string
	AccountHolder string

	Items      []LineItem
	TotalCents int64
}

// Renderer turns a document into PDF bytes.
type Renderer interface {
	RenderInvoice(ctx context.Context, doc Document) ([]byte, error)
}

// FormatCents renders a signed cent amount as a decimal string, e.g. -1050
// becomes "-10.50".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
