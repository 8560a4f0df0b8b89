package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/lobbying-cli/internal/district"
	"github.com/sells-group/lobbying-cli/internal/tiger"
)

var districtsCmd = &cobra.Command{
	Use:   "districts",
	Short: "Inspect and fetch legislative district boundaries",
}

var districtsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the districts in the configured boundary files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sets, err := loadConfiguredSets(cmd)
		if err != nil {
			return err
		}
		for _, c := range district.Chambers {
			set, ok := sets[c]
			if !ok {
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d districts\n", c, set.Len())
			for _, d := range set.Districts() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-4s %s\n", d.ID, d.Name)
			}
		}
		return nil
	},
}

var districtsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Show every district containing a point, flagging overlapping boundaries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		lat, _ := cmd.Flags().GetFloat64("lat")
		lng, _ := cmd.Flags().GetFloat64("lng")
		p := district.Point{Lat: lat, Lng: lng}
		if err := p.Validate(); err != nil {
			return err
		}

		sets, err := loadConfiguredSets(cmd)
		if err != nil {
			return err
		}
		for _, c := range district.Chambers {
			set, ok := sets[c]
			if !ok {
				continue
			}
			ids := district.Matches(p, set)
			res := district.Resolve(p, set)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: resolved=%q matches=%v\n", c, res.DistrictID, ids)
			if len(ids) > 1 {
				zap.L().Warn("overlapping districts",
					zap.String("chamber", string(c)),
					zap.Strings("districts", ids),
				)
			}
		}
		return nil
	},
}

var districtsFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download TIGER/Line state legislative boundaries",
	Long: `Downloads the Census TIGER/Line SLDU (senate) and SLDL (house) shapefiles
for Missouri, writes them as GeoJSON for the scan backend, and optionally
persists them to PostGIS for the postgis backend.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("districts"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		year, _ := cmd.Flags().GetInt("year")
		if year == 0 {
			year = cfg.Districts.TigerYear
		}
		outDir, _ := cmd.Flags().GetString("out-dir")
		save, _ := cmd.Flags().GetBool("save")

		log := zap.L().With(zap.String("command", "districts fetch"), zap.Int("year", year))

		sets, err := tiger.Fetch(ctx, tiger.NewDownloader(), tiger.LoadOptions{
			Year:    year,
			BaseURL: cfg.Districts.TigerBaseURL,
			TempDir: cfg.Districts.TempDir,
		})
		if err != nil {
			return err
		}

		if outDir != "" {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return eris.Wrapf(err, "create %s", outDir)
			}
			for c, set := range sets {
				path := filepath.Join(outDir, string(c)+".geojson")
				if err := writeGeoJSON(path, set); err != nil {
					return err
				}
				log.Info("wrote boundaries", zap.String("chamber", string(c)), zap.String("path", path))
			}
		}

		if save {
			st, err := initPostgres(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			if err := tiger.CreateSchema(ctx, st.Pool()); err != nil {
				return err
			}
			for _, c := range district.Chambers {
				set, ok := sets[c]
				if !ok {
					continue
				}
				n, err := tiger.SaveSet(ctx, st.Pool(), set, year)
				if err != nil {
					return err
				}
				log.Info("saved boundaries", zap.String("chamber", string(c)), zap.Int64("rows", n))
			}
		}
		return nil
	},
}

// loadConfiguredSets reads the boundary files named in config, or the
// --senate/--house overrides.
func loadConfiguredSets(cmd *cobra.Command) (map[district.Chamber]*district.DistrictSet, error) {
	senate, _ := cmd.Flags().GetString("senate")
	house, _ := cmd.Flags().GetString("house")
	if senate == "" {
		senate = cfg.Districts.SenatePath
	}
	if house == "" {
		house = cfg.Districts.HousePath
	}
	return district.LoadChambers(cmd.Context(), map[district.Chamber]district.LoadOptions{
		district.Senate: chamberFile(senate),
		district.House:  chamberFile(house),
	})
}

// writeGeoJSON writes a set as a FeatureCollection keyed by the configured
// id and name properties.
func writeGeoJSON(path string, set *district.DistrictSet) error {
	idProp := cfg.Districts.IDProperty
	if idProp == "" {
		idProp = "district"
	}
	nameProp := cfg.Districts.NameProperty
	if nameProp == "" {
		nameProp = "name"
	}

	fc := geojson.FeatureCollection{}
	for _, d := range set.Districts() {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       d.ID,
			Geometry: d.Geometry,
			Properties: map[string]any{
				idProp:   d.ID,
				nameProp: d.Name,
			},
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return eris.Wrapf(err, "encode %s", path)
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "write %s", path)
}

func init() {
	for _, c := range []*cobra.Command{districtsListCmd, districtsCheckCmd} {
		c.Flags().String("senate", "", "senate boundary file (default from config)")
		c.Flags().String("house", "", "house boundary file (default from config)")
	}
	districtsCheckCmd.Flags().Float64("lat", 0, "latitude")
	districtsCheckCmd.Flags().Float64("lng", 0, "longitude")
	_ = districtsCheckCmd.MarkFlagRequired("lat")
	_ = districtsCheckCmd.MarkFlagRequired("lng")

	districtsFetchCmd.Flags().Int("year", 0, "TIGER/Line vintage (default from config)")
	districtsFetchCmd.Flags().String("out-dir", "data", "directory for GeoJSON output (empty to skip)")
	districtsFetchCmd.Flags().Bool("save", false, "persist boundaries to PostGIS")

	districtsCmd.AddCommand(districtsListCmd, districtsCheckCmd, districtsFetchCmd)
	rootCmd.AddCommand(districtsCmd)
}
