package main

import (
	"fmt"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lobbying-cli/internal/fetcher"
	"github.com/sells-group/lobbying-cli/internal/gifts"
	"github.com/sells-group/lobbying-cli/internal/store"
)

var giftsCmd = &cobra.Command{
	Use:   "gifts",
	Short: "Import, export and summarize lobbyist gift disclosures",
}

var giftsImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import an Ethics Commission expenditure report (XLSX or CSV)",
	Long: `Parses a lobbyist expenditure report and upserts its rows. The report is
read from a local file, or downloaded from --url (default gifts.source_url).
Use --replace to drop previously imported rows first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().With(zap.String("command", "gifts import"))

		src := ""
		if len(args) == 1 {
			src = args[0]
		}
		url, _ := cmd.Flags().GetString("url")
		if src == "" {
			if url == "" {
				url = cfg.Gifts.SourceURL
			}
			if url == "" {
				return eris.New("a report file or --url is required")
			}
			if err := os.MkdirAll(cfg.Gifts.TempDir, 0o755); err != nil {
				return eris.Wrapf(err, "create %s", cfg.Gifts.TempDir)
			}
			src = filepath.Join(cfg.Gifts.TempDir, reportName(url))
			n, err := fetcher.NewHTTPFetcher(cfg.Geocode.UserAgent, 0).DownloadToFile(ctx, url, src)
			if err != nil {
				return err
			}
			log.Info("downloaded report", zap.String("url", url), zap.Int64("bytes", n))
		}

		dir, err := initDirectory()
		if err != nil {
			return err
		}

		tbl, err := fetcher.ReadTable(ctx, src)
		if err != nil {
			return err
		}
		exps, rowErrs, err := gifts.ParseTable(tbl, dir)
		if err != nil {
			return err
		}
		for _, re := range rowErrs {
			log.Warn("skipped row", zap.Int("row", re.Row), zap.Error(re.Err))
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if replace, _ := cmd.Flags().GetBool("replace"); replace {
			n, err := st.DeleteExpenditures(ctx)
			if err != nil {
				return err
			}
			log.Info("cleared expenditures", zap.Int64("rows", n))
		}

		saved, err := st.SaveExpenditures(ctx, exps)
		if err != nil {
			return err
		}
		source := src
		if url != "" {
			source = url
		}
		run, err := st.RecordImport(ctx, source, len(exps), len(rowErrs))
		if err != nil {
			return err
		}

		log.Info("import complete",
			zap.String("source", source),
			zap.String("import_id", run.ID),
			zap.Int64("saved", saved),
			zap.Int("skipped", len(rowErrs)),
		)
		return nil
	},
}

var giftsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every stored expenditure as CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		dir, err := initDirectory()
		if err != nil {
			return err
		}
		exps, err := st.ListExpenditures(ctx, store.ExpenditureFilter{})
		if err != nil {
			return err
		}

		outPath, _ := cmd.Flags().GetString("out")
		out, closeOut, err := outputWriter(outPath)
		if err != nil {
			return err
		}
		defer closeOut()

		if err := gifts.WriteCSV(out, exps, dir); err != nil {
			return err
		}
		zap.L().Info("export complete", zap.Int("rows", len(exps)), zap.String("out", outPath))
		return nil
	},
}

var giftsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print spending totals and the top recipients and organizations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		exps, err := st.ListExpenditures(ctx, store.ExpenditureFilter{})
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		s := gifts.Summarize(exps, time.Now())
		if asJSON {
			return writeJSONTo(cmd.OutOrStdout(), s)
		}
		printSummary(cmd, s)
		return nil
	},
}

var giftsImportsCmd = &cobra.Command{
	Use:   "imports",
	Short: "List recent import runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListImports(ctx, limit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSOURCE\tROWS\tSKIPPED\tIMPORTED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", r.ID, r.Source, r.Rows, r.Skipped, r.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

func printSummary(cmd *cobra.Command, s gifts.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Since %s: $%.2f across %d expenditures\n",
		s.Since.Format("January 2006"), s.TotalSpending, s.TotalExpenditures)
	fmt.Fprintf(out, "%d organizations, %d lobbyists, %d legislators\n\n",
		s.Organizations, s.Lobbyists, s.Legislators)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	section := func(title string, totals []gifts.Total) {
		fmt.Fprintln(w, title)
		for i, t := range totals {
			fmt.Fprintf(w, "%d.\t%s\t$%.2f\t%d\n", i+1, t.Name, t.Amount, t.Count)
		}
		fmt.Fprintln(w)
	}
	section("Top legislators", s.TopLegislators)
	section("Top organizations", s.TopOrganizations)
	section("Categories", s.Categories)
	_ = w.Flush()
}

// reportName derives a local file name from a report URL.
func reportName(url string) string {
	name := path.Base(url)
	if name == "" || name == "." || name == "/" {
		return "expenditures.xlsx"
	}
	return name
}

func init() {
	giftsImportCmd.Flags().String("url", "", "download the report from this URL (default gifts.source_url)")
	giftsImportCmd.Flags().Bool("replace", false, "delete stored expenditures before importing")
	giftsExportCmd.Flags().StringP("out", "o", gifts.DownloadFilename, "output CSV path (- for stdout)")
	giftsSummaryCmd.Flags().Bool("json", false, "print the summary as JSON")
	giftsImportsCmd.Flags().Int("limit", 20, "number of runs to show")

	giftsCmd.AddCommand(giftsImportCmd, giftsExportCmd, giftsSummaryCmd, giftsImportsCmd)
	rootCmd.AddCommand(giftsCmd)
}
