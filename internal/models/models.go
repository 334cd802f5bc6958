package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is one learner account. CashBalance is the virtual trading
// balance, not real money.
type User struct {
	ID               string          `db:"id" json:"id"`
	Username         string          `db:"username" json:"username"`
	Name             string          `db:"name" json:"name"`
	Age              int             `db:"age" json:"age"`
	Language         string          `db:"language" json:"language"`
	CashBalance      decimal.Decimal `db:"cash_balance" json:"cashBalance"`
	GamePoints       int             `db:"game_points" json:"gamePoints"`
	StreakCount      int             `db:"streak_count" json:"streakCount"`
	StreakLastActive *time.Time      `db:"streak_last_active" json:"streakLastActive,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"createdAt"`
}

// Profile is the full user view served to the dashboard: account data
// plus learning progress and earned badges.
type Profile struct {
	User     User           `json:"user"`
	Progress map[string]int `json:"progress"`
	Badges   []string       `json:"badges"`
}

// Streak tracks consecutive active days.
type Streak struct {
	Count      int    `json:"count"`
	LastActive string `json:"lastActive"`
}

type League struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatorID   string    `db:"creator_id" json:"creatorId"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// DailyResult is the outcome of a daily-challenge attempt.
type DailyResult struct {
	Correct      bool   `json:"correct"`
	Percent      int    `json:"percent,omitempty"`
	Badge        string `json:"badge,omitempty"`
	LastAnswered string `json:"lastAnswered"`
}

// LeaderboardEntry ranks users by virtual balance.
type LeaderboardEntry struct {
	Username    string          `db:"username" json:"username"`
	CashBalance decimal.Decimal `db:"cash_balance" json:"cashBalance"`
}
