package commands

import (
	"fmt"
	"os"

	"medauth-backend/internal/scrapers/portal"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func printLookups(lookups []lookup) {
	t := newTable()
	t.AppendHeader(table.Row{"Documento", "Autorización", "Medicamento", "Cantidad", "Dispensada"})

	mergeConfig := table.RowConfig{AutoMerge: true}
	for _, l := range lookups {
		document := fmt.Sprintf("%s %s", l.docType, l.docNumber)
		if l.result.Message != portal.MessageNone {
			t.AppendRow(table.Row{document, l.result.Message.String(), "", "", ""})
			continue
		}
		for _, record := range l.result.Records {
			dispensed := "-"
			if record.Dispensed != nil && *record.Dispensed {
				dispensed = "sí"
			} else if record.Dispensed != nil {
				dispensed = "no"
			}
			if len(record.Items) == 0 {
				t.AppendRow(table.Row{document, record.AuthorizationNumber, "", "", dispensed}, mergeConfig)
				continue
			}
			for _, item := range record.Items {
				t.AppendRow(table.Row{document, record.AuthorizationNumber, item.Product, item.Quantity, dispensed}, mergeConfig)
			}
		}
		t.AppendSeparator()
	}
	t.Render()
}
