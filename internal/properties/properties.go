package properties

import (
	"os"
	"strconv"
	"time"
)

const (
	DefaultStacAPIURL    = "https://earth-search.aws.element84.com/v1"
	DefaultCollection    = "sentinel-2-l2a"
	DefaultNIRBand       = "nir08"
	DefaultSWIRBand      = "swir16"
	DefaultMaxItems      = 10
	DefaultHistogramBins = 50
	DefaultHTTPTimeout   = 60 * time.Second
	DefaultCacheMaxAge   = 24 * time.Hour
)

func RootPath() string {
	return os.Getenv("ROOT_PATH")
}

func StacAPIURL() string {
	return getenv("STAC_API_URL", DefaultStacAPIURL)
}

func StacCollection() string {
	return getenv("STAC_COLLECTION", DefaultCollection)
}

func CopernicusClientID() string {
	return os.Getenv("COPERNICUS_CLIENT_ID")
}

func CopernicusClientSecret() string {
	return os.Getenv("COPERNICUS_CLIENT_SECRET")
}

func CopernicusTokenURL() string {
	return os.Getenv("COPERNICUS_TOKEN_URL")
}

// HTTPTimeout bounds every catalog request and remote band read. Invalid or
// non-positive values fall back to the default; there is no way to disable it.
func HTTPTimeout() time.Duration {
	return duration("HTTP_TIMEOUT", DefaultHTTPTimeout)
}

func CacheMaxAge() time.Duration {
	return duration("CATALOG_CACHE_MAX_AGE", DefaultCacheMaxAge)
}

func S3Bucket() string {
	return os.Getenv("S3_BUCKET")
}

func AWSRegion() string {
	return getenv("AWS_REGION", "us-west-2")
}

func MetricsTextfile() string {
	return os.Getenv("METRICS_TEXTFILE")
}

func Workers() int {
	n, err := strconv.Atoi(os.Getenv("WORKERS"))
	if err != nil || n <= 0 {
		return 4
	}
	return n
}

func DiscordErrorNotificationUrl() string {
	return os.Getenv("DISCORD_ERROR_NOTIFICATION_URL")
}
func DiscordSuccessNotificationUrl() string {
	return os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// duration accepts Go durations ("90s") or plain seconds ("90").
func duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if s, err := strconv.Atoi(v); err == nil && s > 0 {
		return time.Duration(s) * time.Second
	}
	return fallback
}
