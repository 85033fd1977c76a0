package commands

import (
	"medauth-backend/internal/scrapers/portal"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(doctypesCmd)
}

var doctypesCmd = &cobra.Command{
	Use:   "doctypes",
	Short: "Lists the document types the portal can be searched by.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		t := newTable()
		t.AppendHeader(table.Row{"Tipo", "Descripción"})
		for _, docType := range portal.DocumentTypes() {
			t.AppendRow(table.Row{docType, docType.Description()})
		}
		t.Render()
	},
}
