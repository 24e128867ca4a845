package chart

import (
	"sync"
	"time"
)

type cacheItem struct {
	PNG        []byte
	Caption    string
	Expiration time.Time
}

var (
	renderCache = make(map[string]*cacheItem)
	cacheMutex  sync.Mutex
)

// CacheGet returns a previously rendered chart while it is still fresh.
func CacheGet(pair string) ([]byte, string, bool) {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()

	if item, found := renderCache[pair]; found && time.Now().Before(item.Expiration) {
		return item.PNG, item.Caption, true
	}
	return nil, "", false
}

func CacheSet(pair string, png []byte, caption string, duration time.Duration) {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()

	renderCache[pair] = &cacheItem{
		PNG:        png,
		Caption:    caption,
		Expiration: time.Now().Add(duration),
	}
}
