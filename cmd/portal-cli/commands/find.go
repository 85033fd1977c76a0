package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"medauth-backend/cmd/portal-cli/globals"
	"medauth-backend/internal/components/telemetry"
	"medauth-backend/internal/db"
	"medauth-backend/internal/resultcache"
	"medauth-backend/internal/scrapers/portal"

	"github.com/spf13/cobra"
)

var findDb *string
var findJson *bool
var findDump *bool

func init() {
	findDb = findCmd.Flags().String("db", "", "The sqlite database to save results to, overrides the config.")
	findJson = findCmd.Flags().Bool("json", false, "Print results as JSON.")
	findDump = findCmd.Flags().Bool("dump", false, "Write every http exchange to the configured dump directory.")
	rootCmd.AddCommand(findCmd)
}

func newScraper(cfg globals.Config, value *globals.Value, output telemetry.MessageOutput) (*portal.Scraper, error) {
	opts := portal.DefaultOptions()
	opts.BaseUrl = cfg.BaseUrl
	opts.Username = cfg.Username
	opts.Password = cfg.Password
	opts.CloudflareBypass = cfg.CloudflareBypass
	opts.Output = output
	if cfg.LoginPath != "" {
		opts.LoginPath = cfg.LoginPath
	}
	if cfg.HomePath != "" {
		opts.HomePath = cfg.HomePath
	}
	if cfg.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if cfg.RequestsPerSecond > 0 {
		opts.RequestsPerSecond = cfg.RequestsPerSecond
	}
	return portal.NewScraper(opts, value.Tel, value.Clock)
}

// documentNumbers trims the document numbers given on the command line so the cache,
// the portal and the database all see the same key.
func documentNumbers(args []string) ([]string, error) {
	numbers := make([]string, 0, len(args))
	for _, arg := range args {
		number := strings.TrimSpace(arg)
		if number == "" {
			return nil, fmt.Errorf("document number %q is empty", arg)
		}
		numbers = append(numbers, number)
	}
	return numbers, nil
}

// lookup is one document given on the command line.
type lookup struct {
	docType   portal.DocumentType
	docNumber string
	result    portal.Result
}

var findCmd = &cobra.Command{
	Use:   "find <document type> <document number>... [--db <path/to/results.db>] [--json] [--dump]",
	Short: "Looks up the pending authorizations of one or more documents.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value := globals.Get(cmd.Context())
		cfg := value.Config

		docType, err := portal.ParseDocumentType(args[0])
		if err != nil {
			return err
		}
		numbers, err := documentNumbers(args[1:])
		if err != nil {
			return err
		}

		var output telemetry.MessageOutput
		if *findDump {
			dir := cfg.DumpDir
			if dir == "" {
				dir = ".dev/portal"
			}
			fs, err := telemetry.NewFilesystemOutput(dir)
			if err != nil {
				return fmt.Errorf("create dump directory: %w", err)
			}
			slog.Info("dumping http exchanges", "dir", fs.Directory())
			output = fs
		}

		scraper, err := newScraper(cfg, value, output)
		if err != nil {
			return err
		}
		finder := resultcache.New(
			scraper,
			cfg.CacheSize,
			time.Duration(cfg.CacheTTLSeconds)*time.Second,
			value.Tel,
		)

		dbPath := cfg.Db
		if *findDb != "" {
			dbPath = *findDb
		}
		var store *db.Store
		if dbPath != "" {
			opened, err := db.Open(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer opened.Close()
			store = &opened
		}

		var lookups []lookup
		for _, number := range numbers {
			result, err := findOne(cmd.Context(), finder, docType, number)
			if err != nil {
				return fmt.Errorf("%s %s: %w", docType, number, err)
			}
			if store != nil {
				err = store.Save(cmd.Context(), docType, number, result, value.Clock.Now())
				if err != nil {
					return fmt.Errorf("save %s %s: %w", docType, number, err)
				}
			}
			lookups = append(lookups, lookup{docType: docType, docNumber: number, result: result})
		}

		if *findJson {
			return printJson(lookups)
		}
		printLookups(lookups)
		return nil
	},
}

// findOne bounds a single lookup in time, a stuck portal should not hang the cli.
func findOne(ctx context.Context, finder portal.Finder, docType portal.DocumentType, number string) (portal.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	start := time.Now()
	result, err := finder.FindUser(ctx, docType, number)
	if err != nil {
		return portal.Result{}, err
	}
	slog.Info("lookup finished", "document", number, "records", len(result.Records), "seconds", time.Since(start).Seconds())
	return result, nil
}

func printJson(lookups []lookup) error {
	type entry struct {
		DocumentType   portal.DocumentType `json:"document_type"`
		DocumentNumber string              `json:"document_number"`
		portal.Result
	}
	out := make([]entry, len(lookups))
	for i, l := range lookups {
		out[i] = entry{DocumentType: l.docType, DocumentNumber: l.docNumber, Result: l.result}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
