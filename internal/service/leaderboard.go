package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/NilaySharma23/finplay/internal/database"
	"github.com/NilaySharma23/finplay/internal/models"
)

const (
	leaderboardLimit = 20
	leaderboardTTL   = time.Minute
)

// Leaderboard serves balance rankings. With Redis configured, computed
// boards are cached as JSON for a minute; without it every read goes
// to Postgres.
type Leaderboard struct {
	repo *database.Repo
	rdb  *redis.Client
	log  *logrus.Logger
}

// NewLeaderboard creates the service. rdb may be nil.
func NewLeaderboard(repo *database.Repo, rdb *redis.Client, log *logrus.Logger) *Leaderboard {
	return &Leaderboard{repo: repo, rdb: rdb, log: log}
}

// Global ranks all users by virtual balance.
func (l *Leaderboard) Global(ctx context.Context) ([]models.LeaderboardEntry, error) {
	return l.cached(ctx, "leaderboard:global", func() ([]models.LeaderboardEntry, error) {
		return l.repo.Leaderboard(ctx, leaderboardLimit)
	})
}

// League ranks the members of one league.
func (l *Leaderboard) League(ctx context.Context, leagueID string) ([]models.LeaderboardEntry, error) {
	return l.cached(ctx, "leaderboard:league:"+leagueID, func() ([]models.LeaderboardEntry, error) {
		return l.repo.LeagueLeaderboard(ctx, leagueID)
	})
}

func (l *Leaderboard) cached(ctx context.Context, key string, fetch func() ([]models.LeaderboardEntry, error)) ([]models.LeaderboardEntry, error) {
	if l.rdb != nil {
		if data, err := l.rdb.Get(ctx, key).Bytes(); err == nil {
			var entries []models.LeaderboardEntry
			if err := json.Unmarshal(data, &entries); err == nil {
				return entries, nil
			}
			l.log.Warnf("bad leaderboard cache entry for %s, refetching", key)
		}
	}

	entries, err := fetch()
	if err != nil {
		return nil, err
	}

	if l.rdb != nil {
		if data, err := json.Marshal(entries); err == nil {
			if err := l.rdb.Set(ctx, key, data, leaderboardTTL).Err(); err != nil {
				l.log.Warnf("leaderboard cache write failed for %s: %v", key, err)
			}
		}
	}
	return entries, nil
}
