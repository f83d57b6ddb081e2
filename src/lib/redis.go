package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"
	"wanderlust/src/config"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

// OrderIntent caches the server-side quote for the payment round-trip. The
// pending booking row is authoritative; this entry only short-circuits
// lookups while the client completes payment out-of-band.
type OrderIntent struct {
	BookingID string `json:"booking_id"`
	Amount    int64  `json:"amount"`
}

func orderIntentKey(orderId string) string {
	return fmt.Sprintf("order_intent:%s", orderId)
}

func CacheOrderIntent(ctx context.Context, orderId string, intent OrderIntent) {
	rd := GetRedisClient()
	if rd == nil {
		return
	}
	b, err := json.Marshal(&intent)
	if err != nil {
		log.Printf("[redis] Error serializing order intent: %s\n", err.Error())
		return
	}
	ttl := config.ORDER_INTENT_TTL_HOURS * time.Hour
	if err := rd.SetEx(ctx, orderIntentKey(orderId), string(b), ttl).Err(); err != nil {
		log.Printf("[redis] Failed to cache intent for order %s: %s\n", orderId, err.Error())
	}
}

// Matches reports whether the cached quote agrees with the ledger row the
// confirm transition settled on.
func (i *OrderIntent) Matches(bookingId string, amount int64) bool {
	return i.BookingID == bookingId && i.Amount == amount
}

func GetOrderIntent(ctx context.Context, orderId string) (*OrderIntent, error) {
	rd := GetRedisClient()
	if rd == nil {
		return nil, redis.Nil
	}
	val, err := rd.Get(ctx, orderIntentKey(orderId)).Result()
	if err != nil {
		return nil, err
	}
	var intent OrderIntent
	if err := json.Unmarshal([]byte(val), &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// DropOrderIntent removes the cached quote once the round-trip settles.
func DropOrderIntent(ctx context.Context, orderId string) {
	rd := GetRedisClient()
	if rd == nil {
		return
	}
	if err := rd.Del(ctx, orderIntentKey(orderId)).Err(); err != nil {
		log.Printf("[redis] Failed to drop intent for order %s: %s\n", orderId, err.Error())
	}
}
