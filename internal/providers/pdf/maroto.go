package pdf

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"go.uber.org/zap"
)

type marotoRenderer struct {
	log *zap.Logger
}

// NewRenderer builds the maroto-backed invoice renderer.
func NewRenderer(log *zap.Logger) Renderer {
	return &marotoRenderer{log: log.Named("pdf.maroto")}
}

func (r *marotoRenderer) RenderInvoice(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)

	m.AddRows(
		row.New(12).Add(
			text.NewCol(8, doc.LabName, props.Text{Size: 16, Style: fontstyle.Bold}),
			text.NewCol(4, fmt.Sprintf("Invoice %s", doc.Number), props.Text{
				Size:  14,
				Style: fontstyle.Bold,
				Align: align.Right,
			}),
		),
		row.New(5).Add(
			text.NewCol(8, doc.LabAddress, props.Text{Size: 9}),
			text.NewCol(4, fmt.Sprintf("Issue date: %s", doc.IssueDate.Format("2006-01-02")), props.Text{
				Size:  9,
				Align: align.Right,
			}),
		),
		row.New(5).Add(
			text.NewCol(8, fmt.Sprintf("%s  %s", doc.LabEmail, doc.LabPhone), props.Text{Size: 9}),
			text.NewCol(4, fmt.Sprintf("Status: %s", doc.Status), props.Text{
				Size:  9,
				Align: align.Right,
			}),
		),
	)

	m.AddRows(
		row.New(8),
		text.NewRow(5, "Billed to", props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewRow(5, billedTo(doc), props.Text{Size: 9}),
	)
	if doc.DentistAddress != "" {
		m.AddRows(text.NewRow(5, doc.DentistAddress, props.Text{Size: 9}))
	}

	m.AddRows(
		row.New(8),
		row.New(6).Add(
			text.NewCol(6, "Description", props.Text{Size: 9, Style: fontstyle.Bold}),
			text.NewCol(2, "Qty", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
			text.NewCol(2, "Unit", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
			text.NewCol(2, "Amount", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
		),
		row.New(2).Add(line.NewCol(12)),
	)

	for _, item := range doc.Items {
		m.AddRows(itemRow(item))
	}

	m.AddRows(
		row.New(2).Add(line.NewCol(12)),
		row.New(7).Add(
			col.New(8),
			text.NewCol(2, "Total", props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%s %s", doc.Currency, FormatCents(doc.TotalCents)), props.Text{
				Size:  10,
				Style: fontstyle.Bold,
				Align: align.Right,
			}),
		),
	)

	if doc.IBAN != "" {
		m.AddRows(
			row.New(10),
			text.NewRow(5, "Payment details", props.Text{Size: 9, Style: fontstyle.Bold}),
			text.NewRow(5, fmt.Sprintf("%s  IBAN %s", doc.BankName, doc.IBAN), props.Text{Size: 9}),
		)
		if doc.BIC != "" || doc.AccountHolder != "" {
			m.AddRows(text.NewRow(5, fmt.Sprintf("BIC %s  %s", doc.BIC, doc.AccountHolder), props.Text{Size: 9}))
		}
	}

	generated, err := m.Generate()
	if err != nil {
		r.log.Warn("invoice render failed", zap.String("number", doc.Number), zap.Error(err))
		return nil, err
	}
	return generated.GetBytes(), nil
}

func itemRow(item LineItem) core.Row {
	description := item.Description
	if description == "" {
		description = item.Kind
	}
	return row.New(6).Add(
		text.NewCol(6, description, props.Text{Size: 9}),
		text.NewCol(2, fmt.Sprintf("%d", item.Quantity), props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, FormatCents(item.UnitPriceCents), props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, FormatCents(item.AmountCents), props.Text{Size: 9, Align: align.Right}),
	)
}

func billedTo(doc Document) string {
	if doc.ClinicName != "" {
		return fmt.Sprintf("%s, %s", doc.DentistName, doc.ClinicName)
	}
	return doc.DentistName
}
