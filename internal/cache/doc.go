// Package cache provides a small in-process key/value store with per-entry
// absolute expiration.
//
// Keys are case-insensitive. An entry expires a fixed time after it was first
// inserted; replacing the value of a live entry keeps the original deadline.
// Expired entries are dropped lazily on access, or eagerly by the optional
// janitor goroutine:
//
//	c := cache.New[*State]()
//	c.StartJanitor(ctx, time.Minute)
//	c.Set("api.example.com", state, 15*time.Minute)
//	if s, ok := c.Get("API.example.com"); ok {
//	    // ...
//	}
package cache
