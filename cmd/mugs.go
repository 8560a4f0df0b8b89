package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lobbying-cli/internal/district"
	"github.com/sells-group/lobbying-cli/internal/mugs"
)

var mugsCmd = &cobra.Command{
	Use:   "mugs",
	Short: "Download legislator portraits from the house and senate rosters",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		chamberFlag, _ := cmd.Flags().GetString("chamber")
		dest, _ := cmd.Flags().GetString("dir")
		if dest == "" {
			dest = cfg.Mugs.Dir
		}

		chambers := district.Chambers
		if chamberFlag != "" {
			c, err := district.ParseChamber(chamberFlag)
			if err != nil {
				return err
			}
			chambers = []district.Chamber{c}
		}

		scraper := mugs.NewScraper(
			mugs.WithRateLimit(cfg.Mugs.RateLimit),
			mugs.WithConcurrency(cfg.Mugs.Concurrency),
			mugs.WithUserAgent(cfg.Geocode.UserAgent),
		)

		var all []mugs.Photo
		for _, c := range chambers {
			src := mugs.House(cfg.Mugs.HouseURL)
			if c == district.Senate {
				src = mugs.Senate(cfg.Mugs.SenateURL)
			}
			photos, err := scraper.Scrape(ctx, src, dest)
			if err != nil {
				return err
			}
			zap.L().Info("portraits saved",
				zap.String("chamber", string(c)),
				zap.Int("count", len(photos)),
				zap.String("dir", dest),
			)
			all = append(all, photos...)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSONTo(cmd.OutOrStdout(), all)
		}
		return nil
	},
}

func init() {
	mugsCmd.Flags().String("chamber", "", "house or senate (default both)")
	mugsCmd.Flags().String("dir", "", "destination directory (default mugs.dir)")
	mugsCmd.Flags().Bool("json", false, "print the saved photos as JSON")
	rootCmd.AddCommand(mugsCmd)
}
