package memory

import (
	"time"

	"ai-edulab-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// SessionRepository caches the latest snapshot of in-flight and
// recently finished pipeline sessions so the read endpoint does not
// hit the database for active runs.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository() *SessionRepository {
	// Snapshots expire after an hour; expired entries purged every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &SessionRepository{
		cache: c,
	}
}

func (r *SessionRepository) Save(session *entity.GenerationSession) {
	r.cache.Set(session.Id.String(), session, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*entity.GenerationSession, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*entity.GenerationSession), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
