package cache

import "time"

// Cache is the backend-neutral contract used for detection results and
// resolved favicons. Values must be JSON-serializable: the Redis backend
// round-trips them as JSON.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	SetWithTTL(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	Clear()
}
