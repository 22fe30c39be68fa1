package directory

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/syndtr/goleveldb/leveldb"
)

type cacheEntry struct {
	Address common.Address `json:"address"`
	Expires time.Time      `json:"expires"`
}

// Cache memoizes successful lookups for the session and, when a database is
// attached, across sessions until TTL elapses. Failures are never stored.
type Cache struct {
	Next Resolver
	TTL  time.Duration
	Log  *logrus.Entry

	db  *leveldb.DB
	now func() time.Time

	mu  sync.Mutex
	mem map[string]cacheEntry
}

// NewCache wraps next. db may be nil for a memory-only cache; ttl <= 0 disables expiry.
func NewCache(next Resolver, db *leveldb.DB, ttl time.Duration) *Cache {
	return &Cache{
		Next: next,
		TTL:  ttl,
		Log:  logrus.NewEntry(logrus.StandardLogger()),
		db:   db,
		now:  time.Now,
		mem:  make(map[string]cacheEntry),
	}
}

// OpenDB opens (or creates) the LevelDB store backing a persistent cache.
func OpenDB(dir string) (*leveldb.DB, error) {
	return leveldb.OpenFile(dir, nil)
}

var _ Resolver = (*Cache)(nil)

// cacheKey folds case: directory usernames are lower-case.
func cacheKey(namespace common.Address, localName string) string {
	return "handle/" + strings.ToLower(namespace.Hex()) + "/" + strings.ToLower(strings.TrimSpace(localName))
}

func (c *Cache) ResolveHandle(ctx context.Context, namespace common.Address, localName string) (common.Address, error) {
	key := cacheKey(namespace, localName)
	if addr, ok := c.lookup(key); ok {
		return addr, nil
	}
	addr, err := c.Next.ResolveHandle(ctx, namespace, localName)
	if err != nil {
		return common.Address{}, err
	}
	c.store(key, addr)
	return addr, nil
}

func (c *Cache) fresh(e cacheEntry) bool {
	return e.Expires.IsZero() || c.now().Before(e.Expires)
}

func (c *Cache) lookup(key string) (common.Address, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.mem[key]; ok {
		if c.fresh(e) {
			return e.Address, true
		}
		delete(c.mem, key)
	}
	if c.db == nil {
		return common.Address{}, false
	}
	raw, err := c.db.Get([]byte(key), nil)
	if err != nil {
		if !errors.Is(err, leveldb.ErrNotFound) {
			c.Log.WithError(err).Warn("handle cache read failed")
		}
		return common.Address{}, false
	}
	var e cacheEntry
	if err := json.Unmarshal(raw, &e); err != nil || !c.fresh(e) {
		_ = c.db.Delete([]byte(key), nil)
		return common.Address{}, false
	}
	c.mem[key] = e
	return e.Address, true
}

func (c *Cache) store(key string, addr common.Address) {
	e := cacheEntry{Address: addr}
	if c.TTL > 0 {
		e.Expires = c.now().Add(c.TTL)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mem[key] = e
	if c.db == nil {
		return
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := c.db.Put([]byte(key), raw, nil); err != nil {
		c.Log.WithError(err).Warn("handle cache write failed")
	}
}
