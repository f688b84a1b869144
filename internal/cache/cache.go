// Package cache memoizes completion responses so an identical prompt does
// not hit the provider twice. Two tiers: an in-process sync.Map and a
// SQLite table that survives restarts.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"goutgle/internal/session"
)

// CachedResponse represents a cached API response
type CachedResponse struct {
	Response  string
	Timestamp time.Time
}

// GenerateKey generates a cache key from messages
func GenerateKey(messages []session.Message) string {
	h := sha256.New()
	for _, msg := range messages {
		h.Write([]byte(msg.Role))
		h.Write([]byte(msg.Content))
		for _, part := range msg.Parts {
			h.Write([]byte(part.Type))
			h.Write([]byte(part.Text))
			h.Write([]byte(part.ImageURL))
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Store is the two-tier response cache. db may be nil, in which case only
// the in-process tier is used.
type Store struct {
	mem    sync.Map
	db     *sql.DB
	logger *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Get returns a cached response for key, checking memory first and falling
// back to SQLite.
func (s *Store) Get(key string) (string, bool) {
	if val, ok := s.mem.Load(key); ok {
		cached := val.(CachedResponse)
		s.logger.Info("cache hit", "tier", "memory", "key", key[:16])
		return cached.Response, true
	}

	if s.db != nil {
		var response string
		err := s.db.QueryRow("SELECT response FROM responses WHERE key = ?", key).
			Scan(&response)
		if err == nil {
			s.mem.Store(key, CachedResponse{Response: response, Timestamp: time.Now()})
			s.logger.Info("cache hit", "tier", "sqlite", "key", key[:16])
			return response, true
		}
		if err != sql.ErrNoRows {
			s.logger.Warn("cache lookup failed", "error", err)
		}
	}

	return "", false
}

// Put stores a response under key in both tiers.
func (s *Store) Put(key, response string) {
	s.mem.Store(key, CachedResponse{
		Response:  response,
		Timestamp: time.Now(),
	})

	if s.db != nil {
		_, err := s.db.Exec(
			"INSERT OR REPLACE INTO responses (key, response, created_at) VALUES (?, ?, ?)",
			key, response, time.Now(),
		)
		if err != nil {
			s.logger.Warn("failed to persist cached response", "error", err)
		}
	}

	s.logger.Info("cached response", "key", key[:16])
}
