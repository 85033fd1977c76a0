package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"medauth-backend/cmd/portal-cli/globals"
	"medauth-backend/internal/db"
	"medauth-backend/internal/scrapers/portal"

	"github.com/spf13/cobra"
)

var showDb *string
var showJson *bool

func init() {
	showDb = showCmd.Flags().String("db", "", "The sqlite database results were saved to, overrides the config.")
	showJson = showCmd.Flags().Bool("json", false, "Print results as JSON.")
	rootCmd.AddCommand(showCmd)
}

func openStore(cmd *cobra.Command, override string) (db.Store, error) {
	path := globals.Get(cmd.Context()).Config.Db
	if override != "" {
		path = override
	}
	if path == "" {
		return db.Store{}, fmt.Errorf("no database configured, pass --db or set \"db\" in the config")
	}
	return db.Open(cmd.Context(), path)
}

var showCmd = &cobra.Command{
	Use:   "show <document type> <document number>... [--db <path/to/results.db>] [--json]",
	Short: "Shows the last saved lookup of documents without contacting the portal.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		docType, err := portal.ParseDocumentType(args[0])
		if err != nil {
			return err
		}
		numbers, err := documentNumbers(args[1:])
		if err != nil {
			return err
		}
		store, err := openStore(cmd, *showDb)
		if err != nil {
			return err
		}
		defer store.Close()

		var lookups []lookup
		for _, number := range numbers {
			result, at, err := store.Load(cmd.Context(), docType, number)
			if errors.Is(err, db.ErrNotFound) {
				slog.Warn("document was never looked up", "type", docType, "number", number)
				continue
			}
			if err != nil {
				return err
			}
			slog.Info("saved lookup", "document", number, "looked_up_at", at)
			lookups = append(lookups, lookup{docType: docType, docNumber: number, result: result})
		}

		if *showJson {
			return printJson(lookups)
		}
		printLookups(lookups)
		return nil
	},
}
