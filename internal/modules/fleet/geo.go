// README: Redis GEO index mirroring driver positions for nearby queries.
package fleet

import (
	"context"
	"math"
	"strconv"

	"github.com/redis/go-redis/v9"

	"cargoflow/internal/types"
)

const driverGeoKey = "geo:drivers"

// GeoIndex keeps a best-effort mirror of driver positions in Redis so
// proximity queries do not scan the registry. The registry remains the
// source of truth; the index may briefly lag it.
type GeoIndex struct {
	redis *redis.Client
}

func NewGeoIndex(rdb *redis.Client) *GeoIndex {
	return &GeoIndex{redis: rdb}
}

func (g *GeoIndex) Upsert(ctx context.Context, id types.ID, p types.Point) error {
	return g.redis.GeoAdd(ctx, driverGeoKey, &redis.GeoLocation{
		Name:      strconv.FormatInt(int64(id), 10),
		Longitude: p.Lng,
		Latitude:  p.Lat,
	}).Err()
}

func (g *GeoIndex) Remove(ctx context.Context, id types.ID) error {
	return g.redis.ZRem(ctx, driverGeoKey, strconv.FormatInt(int64(id), 10)).Err()
}

// Nearby returns driver ids within radiusKm of p, closest first.
func (g *GeoIndex) Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]types.ID, error) {
	results, err := g.redis.GeoSearch(ctx, driverGeoKey, &redis.GeoSearchQuery{
		Longitude:  p.Lng,
		Latitude:   p.Lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, 0, len(results))
	for _, r := range results {
		n, err := strconv.ParseInt(r, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, types.ID(n))
	}
	return ids, nil
}

const earthRadiusKm = 6371.0

// haversineKm returns the great-circle distance in kilometres between
// two points specified in decimal degrees. Used as the fallback when no
// geo index is configured.
func haversineKm(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
