package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lobbying-cli/internal/db"
	"github.com/sells-group/lobbying-cli/internal/directory"
	"github.com/sells-group/lobbying-cli/internal/district"
	"github.com/sells-group/lobbying-cli/internal/lookup"
	"github.com/sells-group/lobbying-cli/internal/resilience"
	"github.com/sells-group/lobbying-cli/internal/store"
	"github.com/sells-group/lobbying-cli/internal/tiger"
	"github.com/sells-group/lobbying-cli/pkg/geocode"
)

// lookupEnv holds everything the lookup and serve commands need.
type lookupEnv struct {
	Store     store.Store // may be nil for lookup-only commands
	Directory *directory.Directory
	Sets      map[district.Chamber]*district.DistrictSet
	Caches    map[district.Chamber]*district.GridCache
	Resolvers []district.Resolver
	Lookup    *lookup.Service
}

// Close releases the store.
func (e *lookupEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens and migrates the configured store.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// storePool returns the Postgres pool behind st, or nil for other drivers.
func storePool(st store.Store) db.Pool {
	if pg, ok := st.(*store.PostgresStore); ok {
		return pg.Pool()
	}
	return nil
}

// initDirectory loads the legislator roster. A missing roster path yields an
// empty directory so lookups still return districts.
func initDirectory() (*directory.Directory, error) {
	if cfg.Directory.Path == "" {
		return directory.New(nil)
	}
	dir, err := directory.Load(cfg.Directory.Path)
	if err != nil {
		return nil, eris.Wrap(err, "load legislator directory")
	}
	return dir, nil
}

// initResolvers builds one resolver per configured chamber for the selected
// backend. pool is required for the postgis backend.
func initResolvers(ctx context.Context, pool db.Pool) ([]district.Resolver, map[district.Chamber]*district.DistrictSet, map[district.Chamber]*district.GridCache, error) {
	switch cfg.Districts.Backend {
	case "scan":
		sets, err := district.LoadChambers(ctx, map[district.Chamber]district.LoadOptions{
			district.Senate: chamberFile(cfg.Districts.SenatePath),
			district.House:  chamberFile(cfg.Districts.HousePath),
		})
		if err != nil {
			return nil, nil, nil, err
		}
		var resolvers []district.Resolver
		for _, c := range district.Chambers {
			if set, ok := sets[c]; ok {
				resolvers = append(resolvers, district.NewScanResolver(set))
			}
		}
		return resolvers, sets, nil, nil

	case "grid":
		urls := map[district.Chamber]string{
			district.Senate: cfg.Grid.SenateURL,
			district.House:  cfg.Grid.HouseURL,
		}
		breaker := resilience.NewBreaker(cfg.Grid.BreakerThreshold, time.Duration(cfg.Grid.BreakerCooldownSecs)*time.Second)
		client := &http.Client{Timeout: time.Duration(cfg.Grid.TimeoutSecs) * time.Second}

		var resolvers []district.Resolver
		caches := map[district.Chamber]*district.GridCache{}
		for _, c := range district.Chambers {
			if urls[c] == "" {
				continue
			}
			cache := district.NewGridCache(cfg.Grid.CacheSize, time.Duration(cfg.Grid.CacheTTLSecs)*time.Second)
			src, err := district.NewHTTPGridSource(string(c), urls[c],
				district.WithGridHTTPClient(client),
				district.WithGridRateLimit(cfg.Grid.RateLimit),
				district.WithGridBreaker(breaker),
				district.WithGridCache(cache),
				district.WithGridUserAgent(cfg.Geocode.UserAgent),
			)
			if err != nil {
				return nil, nil, nil, err
			}
			caches[c] = cache
			resolvers = append(resolvers, district.NewGridResolver(c, src,
				district.WithGridZoom(cfg.Grid.Zoom),
				district.WithDistrictProperty(cfg.Grid.Property),
			))
		}
		return resolvers, nil, caches, nil

	case "postgis":
		if pool == nil {
			return nil, nil, nil, eris.New("postgis backend requires the postgres store")
		}
		resolvers := make([]district.Resolver, 0, len(district.Chambers))
		for _, c := range district.Chambers {
			resolvers = append(resolvers, tiger.NewPostGISResolver(pool, c))
		}
		return resolvers, nil, nil, nil

	default:
		return nil, nil, nil, eris.Errorf("unsupported districts backend: %s", cfg.Districts.Backend)
	}
}

func chamberFile(path string) district.LoadOptions {
	return district.LoadOptions{
		Path:         path,
		Object:       cfg.Districts.Object,
		IDProperty:   cfg.Districts.IDProperty,
		NameProperty: cfg.Districts.NameProperty,
	}
}

// initGeocoder builds the configured provider, cached in Postgres when a pool
// is available.
func initGeocoder(pool db.Pool) (geocode.Provider, error) {
	client := &http.Client{Timeout: time.Duration(cfg.Geocode.TimeoutSecs) * time.Second}
	nominatim := func() geocode.Provider {
		opts := []geocode.Option{
			geocode.WithBaseURL(cfg.Geocode.BaseURL),
			geocode.WithHTTPClient(client),
			geocode.WithRateLimit(cfg.Geocode.RateLimit),
			geocode.WithUserAgent(cfg.Geocode.UserAgent),
		}
		if cfg.Geocode.Limit > 0 {
			opts = append(opts, geocode.WithLimit(cfg.Geocode.Limit))
		}
		if cfg.Geocode.CountryCodes != "" {
			opts = append(opts, geocode.WithCountryCodes(strings.Split(cfg.Geocode.CountryCodes, ",")...))
		}
		return geocode.NewNominatim(opts...)
	}

	var p geocode.Provider
	switch cfg.Geocode.Provider {
	case "nominatim":
		p = nominatim()
	case "census":
		p = geocode.NewCensus(client)
	case "chain":
		p = geocode.NewChain(nominatim(), geocode.NewCensus(client))
	default:
		return nil, eris.Errorf("unsupported geocode provider: %s", cfg.Geocode.Provider)
	}

	if pool != nil {
		p = geocode.NewCached(p, pool, cfg.Geocode.CacheTTLDays)
	}
	return p, nil
}

// initLookup wires the directory, resolvers and geocoder into a lookup
// service. withStore opens the configured store as well.
func initLookup(ctx context.Context, withStore bool) (*lookupEnv, error) {
	env := &lookupEnv{}
	if withStore {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		env.Store = st
	}
	pool := storePool(env.Store)
	if cfg.Districts.Backend == "postgis" && pool == nil {
		st, err := initPostgres(ctx)
		if err != nil {
			return nil, err
		}
		env.Store = st
		pool = st.Pool()
	}
	if pool != nil {
		if _, err := pool.Exec(ctx, geocode.CacheSchema); err != nil {
			env.Close()
			return nil, eris.Wrap(err, "create geocode cache")
		}
	}

	dir, err := initDirectory()
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Directory = dir

	env.Resolvers, env.Sets, env.Caches, err = initResolvers(ctx, pool)
	if err != nil {
		env.Close()
		return nil, err
	}

	geocoder, err := initGeocoder(pool)
	if err != nil {
		env.Close()
		return nil, err
	}

	env.Lookup = lookup.NewService(geocoder, dir, env.Resolvers,
		lookup.WithRegions(cfg.Geocode.Regions...),
		lookup.WithConcurrency(cfg.Lookup.BatchConcurrency),
	)

	zap.L().Info("lookup ready",
		zap.String("backend", cfg.Districts.Backend),
		zap.String("geocoder", geocoder.Name()),
		zap.Int("chambers", len(env.Resolvers)),
		zap.Int("legislators", dir.Len()),
	)
	return env, nil
}

// initPostgres opens the Postgres store regardless of the configured driver.
func initPostgres(ctx context.Context) (*store.PostgresStore, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, eris.New("store.database_url is required (LOBBYING_STORE_DATABASE_URL)")
	}
	st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
