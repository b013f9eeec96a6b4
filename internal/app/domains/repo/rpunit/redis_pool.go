package rpunit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"alertx/internal/app/domains/entity/etprimitive"
	"alertx/internal/app/domains/entity/etunit"
)

// RedisUnitPool 基于 Redis GEO 的车辆池
// 每个车辆等级一个 GEO 集合：{prefix}:{class}；车辆等级记录在 {prefix}:class 哈希中
type RedisUnitPool struct {
	rdb      redis.UniversalClient
	prefix   string
	radiusKm float64
}

// NewRedisUnitPool 创建 Redis 车辆池
func NewRedisUnitPool(rdb redis.UniversalClient, prefix string, radiusKm float64) *RedisUnitPool {
	if prefix == "" {
		prefix = "alertx:units"
	}
	if radiusKm <= 0 {
		radiusKm = 50
	}
	return &RedisUnitPool{rdb: rdb, prefix: prefix, radiusKm: radiusKm}
}

func (p *RedisUnitPool) geoKey(class etunit.UnitClass) string {
	return fmt.Sprintf("%s:%s", p.prefix, class)
}

func (p *RedisUnitPool) classKey() string {
	return p.prefix + ":class"
}

// FindNearest 实现 UnitPool
func (p *RedisUnitPool) FindNearest(ctx context.Context, class etunit.UnitClass, at etprimitive.Coordinates) (*etunit.Unit, error) {
	locs, err := p.rdb.GeoSearchLocation(ctx, p.geoKey(class), &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  at.Longitude,
			Latitude:   at.Latitude,
			Radius:     p.radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
			Count:      1,
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geo search %s failed: %w", class, err)
	}
	if len(locs) == 0 {
		return nil, nil
	}

	loc := locs[0]
	return &etunit.Unit{
		ID:        loc.Name,
		Class:     class,
		Location:  etprimitive.Coordinates{Latitude: loc.Latitude, Longitude: loc.Longitude},
		Available: true,
	}, nil
}

// Register 车辆上线（可派）
func (p *RedisUnitPool) Register(ctx context.Context, unit etunit.Unit) error {
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, p.classKey(), unit.ID, string(unit.Class))
		pipe.GeoAdd(ctx, p.geoKey(unit.Class), &redis.GeoLocation{
			Name:      unit.ID,
			Longitude: unit.Location.Longitude,
			Latitude:  unit.Location.Latitude,
		})
		return nil
	})
	return err
}

// Claim 实现 UnitPool：从 GEO 集合移出即占用
// ZREM 原子执行，并发占用同一车辆只有一方删除成功
func (p *RedisUnitPool) Claim(ctx context.Context, unitID string) (bool, error) {
	class, err := p.rdb.HGet(ctx, p.classKey(), unitID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	removed, err := p.rdb.ZRem(ctx, p.geoKey(etunit.UnitClass(class)), unitID).Result()
	if err != nil {
		return false, fmt.Errorf("claim unit %s: %w", unitID, err)
	}
	return removed == 1, nil
}

// Release 实现 UnitPool：按最后位置重新加入 GEO 集合，未登记车辆忽略
func (p *RedisUnitPool) Release(ctx context.Context, unitID string, at etprimitive.Coordinates) error {
	class, err := p.rdb.HGet(ctx, p.classKey(), unitID).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	return p.rdb.GeoAdd(ctx, p.geoKey(etunit.UnitClass(class)), &redis.GeoLocation{
		Name:      unitID,
		Longitude: at.Longitude,
		Latitude:  at.Latitude,
	}).Err()
}

// UpdatePosition 实现 UnitPool；仅刷新在池中的车辆
func (p *RedisUnitPool) UpdatePosition(ctx context.Context, unitID string, at etprimitive.Coordinates) error {
	class, err := p.rdb.HGet(ctx, p.classKey(), unitID).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}

	key := p.geoKey(etunit.UnitClass(class))
	// 占用中的车辆不重新加入
	if err := p.rdb.ZScore(ctx, key, unitID).Err(); err != nil {
		if err == redis.Nil {
			return nil
		}
		return err
	}
	return p.rdb.GeoAdd(ctx, key, &redis.GeoLocation{
		Name:      unitID,
		Longitude: at.Longitude,
		Latitude:  at.Latitude,
	}).Err()
}
