package tiger

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lobbying-cli/internal/district"
)

// LoadOptions configures a TIGER/Line boundary fetch.
type LoadOptions struct {
	Year      int                // TIGER/Line vintage (default 2024)
	StateFIPS string             // default Missouri
	BaseURL   string             // default Census TIGER root
	TempDir   string             // download directory
	Chambers  []district.Chamber // empty = both
}

func (o *LoadOptions) defaults() {
	if o.Year == 0 {
		o.Year = DefaultYear
	}
	if o.StateFIPS == "" {
		o.StateFIPS = MissouriFIPS
	}
	if o.TempDir == "" {
		o.TempDir = filepath.Join("/tmp", "tiger")
	}
	if len(o.Chambers) == 0 {
		o.Chambers = district.Chambers
	}
}

// Fetch downloads the requested chambers' layers in parallel and decodes them
// into district sets.
func Fetch(ctx context.Context, d *Downloader, opts LoadOptions) (map[district.Chamber]*district.DistrictSet, error) {
	opts.defaults()

	sets := make([]*district.DistrictSet, len(opts.Chambers))
	g, gCtx := errgroup.WithContext(ctx)
	for i, c := range opts.Chambers {
		p, ok := ProductFor(c)
		if !ok {
			return nil, eris.Errorf("tiger: no product for chamber %q", c)
		}
		g.Go(func() error {
			set, err := fetchProduct(gCtx, d, p, opts)
			if err != nil {
				return err
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[district.Chamber]*district.DistrictSet, len(sets))
	for i, c := range opts.Chambers {
		out[c] = sets[i]
	}
	return out, nil
}

func fetchProduct(ctx context.Context, d *Downloader, p Product, opts LoadOptions) (*district.DistrictSet, error) {
	log := zap.L().With(
		zap.String("component", "tiger.loader"),
		zap.String("product", p.Name),
		zap.String("state", opts.StateFIPS),
	)

	url := DownloadURL(opts.BaseURL, p, opts.Year, opts.StateFIPS)
	destDir := filepath.Join(opts.TempDir, opts.StateFIPS, p.Name)
	shpPath, err := d.Download(ctx, url, destDir)
	if err != nil {
		return nil, eris.Wrapf(err, "tiger: download %s", p.Name)
	}

	set, err := ReadProduct(shpPath, p)
	if err != nil {
		return nil, err
	}
	log.Info("boundaries loaded", zap.String("path", shpPath), zap.Int("districts", set.Len()))
	return set, nil
}

// ReadProduct decodes an extracted TIGER/Line shapefile into a district set.
func ReadProduct(shpPath string, p Product) (*district.DistrictSet, error) {
	districts, err := district.ReadShapefile(shpPath, p.Chamber, p.IDField, p.NameField)
	if err != nil {
		return nil, eris.Wrapf(err, "tiger: parse %s", p.Name)
	}
	set, err := district.NewDistrictSet(p.Chamber, districts)
	if err != nil {
		return nil, eris.Wrapf(err, "tiger: build %s set", p.Name)
	}
	return set, nil
}
