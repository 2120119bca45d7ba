package storage

import (
	"encoding/binary"
	"time"

	"github.com/rs/zerolog"
)

// ResponseCache keeps explorer responses in Pebble for a fixed time to live.
// Each value is stored as an 8-byte big-endian expiry (unix nanoseconds) followed by the body.
type ResponseCache struct {
	db     *PebbleDB
	ttl    time.Duration
	logger *zerolog.Logger
	now    func() time.Time
}

func NewResponseCache(db *PebbleDB, ttl time.Duration, logger *zerolog.Logger) *ResponseCache {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &ResponseCache{
		db:     db,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns a cached body that has not expired yet.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	raw, err := c.db.Get(CFResponses, []byte(key))
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to read response cache")
		return nil, false
	}
	if len(raw) < 8 {
		return nil, false
	}

	expiry := int64(binary.BigEndian.Uint64(raw[:8]))
	if c.now().UnixNano() >= expiry {
		return nil, false
	}
	return raw[8:], true
}

func (c *ResponseCache) Set(key string, value []byte) error {
	buf := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(buf[:8], uint64(c.now().Add(c.ttl).UnixNano()))
	copy(buf[8:], value)
	return c.db.Put(CFResponses, []byte(key), buf)
}

// Prune deletes expired entries and returns how many were removed.
func (c *ResponseCache) Prune() (int, error) {
	now := c.now().UnixNano()
	var expired [][]byte
	err := c.db.ForEach(CFResponses, func(key, value []byte) error {
		if len(value) < 8 || int64(binary.BigEndian.Uint64(value[:8])) <= now {
			k := make([]byte, len(key))
			copy(k, key)
			expired = append(expired, k)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, k := range expired {
		if err := c.db.Delete(CFResponses, k); err != nil {
			return 0, err
		}
	}
	if len(expired) > 0 {
		c.logger.Debug().Int("entries", len(expired)).Msg("Pruned expired responses")
	}
	return len(expired), nil
}
