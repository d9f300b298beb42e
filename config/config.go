package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" envDefault:"database/propwatch.db"`

	// Address for the HTTP API
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":5250"`

	Upstream struct {
		// Base URL of the listing site API
		BaseURL string `env:"UPSTREAM_BASE_URL" envDefault:"https://www.rightmove.co.uk"`

		// Per-request timeout in seconds
		Timeout int `env:"UPSTREAM_TIMEOUT" envDefault:"15"`

		// Maximum number of retries for failed network calls
		MaxRetries int `env:"UPSTREAM_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds, doubled on each attempt
		RetryDelay int `env:"UPSTREAM_RETRY_DELAY" envDefault:"2"`

		// Capacity of the region-code lookup cache
		RegionCacheSize int `env:"UPSTREAM_REGION_CACHE_SIZE" envDefault:"32"`
	}

	Search struct {
		// Search term resolved to a region code before any area search
		Region string `env:"SEARCH_REGION" envDefault:"LONDON"`

		// Root viewport coordinates
		Lat1 float64 `env:"SEARCH_LAT1" envDefault:"51.313447"`
		Lat2 float64 `env:"SEARCH_LAT2" envDefault:"51.720223"`
		Lon1 float64 `env:"SEARCH_LON1" envDefault:"-0.5245971"`
		Lon2 float64 `env:"SEARCH_LON2" envDefault:"0.36117554"`

		// Result count above which a viewport is split
		ResultCap int `env:"SEARCH_RESULT_CAP" envDefault:"400"`

		// Maximum recursion depth for viewport splitting
		MaxDepth int `env:"SEARCH_MAX_DEPTH" envDefault:"16"`

		// Maximum concurrent in-flight area searches
		MaxInFlight int64 `env:"SEARCH_MAX_IN_FLIGHT" envDefault:"8"`

		// Search radius in miles
		Radius int `env:"SEARCH_RADIUS" envDefault:"5"`

		// Channels searched on each scheduled run
		Channels []string `env:"SEARCH_CHANNELS" envDefault:"BUY" envSeparator:","`

		// Listing categories filtered out of every search
		Exclude []string `env:"SEARCH_EXCLUDE" envDefault:"newHome,sharedOwnership,retirement" envSeparator:","`
	}

	Ingest struct {
		// Number of ids per detail fetch
		DetailBatchSize int `env:"INGEST_DETAIL_BATCH_SIZE" envDefault:"25"`

		// Number of summary batches the queue can buffer
		QueueSize int `env:"INGEST_QUEUE_SIZE" envDefault:"64"`

		// Number of concurrent batch writers
		WriterCount int `env:"INGEST_WRITER_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batch writes
		MaxRetries int `env:"INGEST_MAX_RETRIES" envDefault:"3"`

		// Delay between write retries in seconds
		RetryDelay int `env:"INGEST_RETRY_DELAY" envDefault:"5"`

		// Hours after which a current row is considered stale and refreshed
		RefreshAfter int `env:"INGEST_REFRESH_AFTER" envDefault:"24"`
	}

	Geofence struct {
		// Directory of inclusion shape files, one per travel-time threshold
		ShapeDir string `env:"GEOFENCE_SHAPE_DIR" envDefault:"shapes"`

		// Directory of exclusion shape files
		ExclusionDir string `env:"GEOFENCE_EXCLUSION_DIR" envDefault:"shapes/excluded"`

		// Travel-time ceiling for the pending-review query
		MaxTravelTime int `env:"GEOFENCE_MAX_TRAVEL_TIME" envDefault:"45"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
