package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lobbying-cli/internal/district"
	"github.com/sells-group/lobbying-cli/internal/fetcher"
)

var (
	lookupLat   float64
	lookupLng   float64
	lookupPoint bool
	lookupBatch string
	lookupOut   string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [address]",
	Short: "Find the senate and house districts for an address or point",
	Long: `Geocodes an address and resolves it to Missouri senate and house districts.

Use --lat/--lng to skip geocoding, or --batch with a CSV/XLSX file carrying an
"address" column to resolve many addresses at once.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("lookup"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initLookup(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		out, closeOut, err := outputWriter(lookupOut)
		if err != nil {
			return err
		}
		defer closeOut()

		switch {
		case lookupBatch != "":
			addresses, err := readAddresses(ctx, lookupBatch)
			if err != nil {
				return err
			}
			results, err := env.Lookup.LookupBatch(ctx, addresses)
			if err != nil {
				return err
			}
			zap.L().Info("batch lookup complete", zap.Int("addresses", len(addresses)))
			return writeJSONTo(out, results)

		case lookupPoint:
			ticket := district.Detached(ctx)
			resp, err := env.Lookup.LookupPoint(ctx, ticket, district.Point{Lat: lookupLat, Lng: lookupLng})
			if err != nil {
				return err
			}
			return writeJSONTo(out, resp)

		default:
			if len(args) == 0 {
				return eris.New("an address, --lat/--lng or --batch is required")
			}
			ticket := district.Detached(ctx)
			resp, err := env.Lookup.LookupAddress(ctx, ticket, args[0])
			if err != nil {
				return err
			}
			return writeJSONTo(out, resp)
		}
	},
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		latSet := cmd.Flags().Changed("lat")
		lngSet := cmd.Flags().Changed("lng")
		if latSet != lngSet {
			return eris.New("--lat and --lng must be given together")
		}
		lookupPoint = latSet && lngSet
		return nil
	},
}

// readAddresses pulls the address column from a CSV or XLSX file.
func readAddresses(ctx context.Context, path string) ([]string, error) {
	tbl, err := fetcher.ReadTable(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := tbl.Require("address"); err != nil {
		return nil, eris.Wrapf(err, "batch file %s", path)
	}
	addresses := make([]string, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		if a := strings.TrimSpace(tbl.Get(row, "address")); a != "" {
			addresses = append(addresses, a)
		}
	}
	return addresses, nil
}

// outputWriter opens path for writing, or stdout when path is empty or "-".
func outputWriter(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "create %s", path)
	}
	return f, func() { _ = f.Close() }, nil
}

func writeJSONTo(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "write json")
}

func init() {
	lookupCmd.Flags().Float64Var(&lookupLat, "lat", 0, "latitude (skips geocoding)")
	lookupCmd.Flags().Float64Var(&lookupLng, "lng", 0, "longitude (skips geocoding)")
	lookupCmd.Flags().StringVar(&lookupBatch, "batch", "", "CSV or XLSX file with an address column")
	lookupCmd.Flags().StringVarP(&lookupOut, "out", "o", "", "write JSON to this file instead of stdout")
	rootCmd.AddCommand(lookupCmd)
}
