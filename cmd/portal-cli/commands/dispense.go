package commands

import (
	"log/slog"

	"medauth-backend/internal/scrapers/portal"

	"github.com/spf13/cobra"
)

var dispenseDb *string

func init() {
	dispenseDb = dispenseCmd.Flags().String("db", "", "The sqlite database results were saved to, overrides the config.")
	rootCmd.AddCommand(dispenseCmd)
}

var dispenseCmd = &cobra.Command{
	Use:   "dispense <document type> <document number> <authorization number> [--db <path/to/results.db>]",
	Short: "Marks a saved authorization as dispensed.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		docType, err := portal.ParseDocumentType(args[0])
		if err != nil {
			return err
		}
		numbers, err := documentNumbers(args[1:])
		if err != nil {
			return err
		}
		docNumber, authorization := numbers[0], numbers[1]

		store, err := openStore(cmd, *dispenseDb)
		if err != nil {
			return err
		}
		defer store.Close()

		err = store.MarkDispensed(cmd.Context(), docType, docNumber, authorization)
		if err != nil {
			return err
		}
		slog.Info("marked as dispensed", "type", docType, "document", docNumber, "authorization", authorization)
		return nil
	},
}
