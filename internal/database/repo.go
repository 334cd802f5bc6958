package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/NilaySharma23/finplay/internal/ledger"
	"github.com/NilaySharma23/finplay/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// InitialBalance is the virtual cash every new account starts with.
var InitialBalance = decimal.NewFromInt(100000)

type Repo struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func New(db *sqlx.DB, log *logrus.Logger) *Repo {
	return &Repo{db: db, log: log}
}

func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUser inserts a new account with onboarding defaults: the
// initial virtual balance, zero points and no streak. The generated id
// and timestamps are written back into u.
func (r *Repo) CreateUser(ctx context.Context, u *models.User) error {
	q := `INSERT INTO users (id, username, name, age, language, cash_balance, created_at)
	      VALUES (gen_random_uuid(), $1, $2, $3, $4, $5::numeric, now())
	      RETURNING id, cash_balance, game_points, streak_count, created_at`
	err := r.db.QueryRowxContext(ctx, q, u.Username, u.Name, u.Age, u.Language, InitialBalance.String()).
		Scan(&u.ID, &u.CashBalance, &u.GamePoints, &u.StreakCount, &u.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("username %s: %w", u.Username, ErrDuplicate)
		}
		return err
	}
	return nil
}

func (r *Repo) GetUser(ctx context.Context, userID string) (models.User, error) {
	var u models.User
	q := `SELECT id, username, name, age, language, cash_balance, game_points, streak_count, streak_last_active, created_at
	      FROM users WHERE id = $1`
	if err := r.db.GetContext(ctx, &u, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return models.User{}, err
	}
	return u, nil
}

// LearnModules are the four lesson tracks and the badge each awards at
// 100% progress.
var LearnModules = map[string]string{
	"basics":    "Market Starter",
	"risk":      "Risk Warrior",
	"algo":      "Algo Explorer",
	"portfolio": "Portfolio Champ",
}

// GetProfile loads a user with learning progress and badges. Modules
// with no row yet report 0 so the client never sees missing fields.
func (r *Repo) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	u, err := r.GetUser(ctx, userID)
	if err != nil {
		return models.Profile{}, err
	}
	p := models.Profile{User: u, Progress: map[string]int{}, Badges: []string{}}
	for module := range LearnModules {
		p.Progress[module] = 0
	}

	rows, err := r.db.QueryxContext(ctx, `SELECT module, percent FROM progress WHERE user_id = $1`, userID)
	if err != nil {
		return models.Profile{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var pr progressRow
		if err := rows.StructScan(&pr); err != nil {
			r.log.Warnf("scan progress failed: %v", err)
			continue
		}
		p.Progress[pr.Module] = pr.Percent
	}

	if err := r.db.SelectContext(ctx, &p.Badges, `SELECT badge FROM badges WHERE user_id = $1 ORDER BY awarded_at`, userID); err != nil {
		return models.Profile{}, err
	}
	return p, nil
}

// LoadPortfolio reads a user's cash balance and open positions.
func (r *Repo) LoadPortfolio(ctx context.Context, userID string) (ledger.Portfolio, error) {
	var p ledger.Portfolio
	if err := r.db.GetContext(ctx, &p.CashBalance, `SELECT cash_balance FROM users WHERE id = $1`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Portfolio{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return ledger.Portfolio{}, err
	}
	p.Positions = []ledger.Position{}
	rows, err := r.db.QueryxContext(ctx, `SELECT symbol, quantity, total_cost, current_price FROM positions WHERE user_id = $1 ORDER BY symbol`, userID)
	if err != nil {
		return ledger.Portfolio{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var pos ledger.Position
		if err := rows.StructScan(&pos); err != nil {
			r.log.Warnf("scan position failed: %v", err)
			continue
		}
		p.Positions = append(p.Positions, pos)
	}
	return p, nil
}

// SavePortfolio replaces a user's stored portfolio with p. Balance and
// positions commit in one transaction: the stored document is either
// the old portfolio or the new one, never a mix.
func (r *Repo) SavePortfolio(ctx context.Context, userID string, p ledger.Portfolio) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE users SET cash_balance = $2::numeric WHERE id = $1`, userID, p.CashBalance.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE user_id = $1`, userID); err != nil {
		return err
	}
	insert := `INSERT INTO positions (user_id, symbol, quantity, total_cost, current_price, last_updated)
	           VALUES ($1, $2, $3, $4::numeric, $5::numeric, now())`
	for _, pos := range p.Positions {
		if _, err := tx.ExecContext(ctx, insert, userID, pos.Symbol, pos.Quantity, pos.TotalCost.String(), pos.CurrentPrice.String()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AddGamePoints credits delta points and returns the new total.
func (r *Repo) AddGamePoints(ctx context.Context, userID string, delta int) (int, error) {
	var total int
	err := r.db.QueryRowxContext(ctx, `UPDATE users SET game_points = game_points + $2 WHERE id = $1 RETURNING game_points`, userID, delta).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return total, err
}

// TouchStreak records activity for today: consecutive days increment
// the streak, a gap resets it to 1, a repeat on the same day is a
// no-op.
func (r *Repo) TouchStreak(ctx context.Context, userID string, today time.Time) (models.Streak, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Streak{}, err
	}
	defer tx.Rollback()

	var count int
	var last sql.NullTime
	err = tx.QueryRowxContext(ctx, `SELECT streak_count, streak_last_active FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&count, &last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Streak{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return models.Streak{}, err
	}

	day := today.UTC().Format("2006-01-02")
	yesterday := today.UTC().AddDate(0, 0, -1).Format("2006-01-02")
	switch {
	case last.Valid && last.Time.UTC().Format("2006-01-02") == day:
		// already counted today
	case last.Valid && last.Time.UTC().Format("2006-01-02") == yesterday:
		count++
	default:
		count = 1
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET streak_count = $2, streak_last_active = $3 WHERE id = $1`, userID, count, day); err != nil {
		return models.Streak{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Streak{}, err
	}
	return models.Streak{Count: count, LastActive: day}, nil
}

// The daily challenge is one fixed quiz question with one attempt per
// user per day, right or wrong.
const (
	DailyQuestion = "What is a stock?"
	DailyAnswer   = "A share in a company"
	DailyBadge    = "Daily Scholar"
)

var DailyOptions = []string{
	"A type of debt",
	"A share in a company",
	"A government bond",
	"A fixed deposit",
}

// AnswerDailyChallenge records today's quiz attempt. A repeat on the
// same day returns ErrDuplicate. A correct answer adds 10% to the
// basics module capped at 100 and awards the Daily Scholar badge.
func (r *Repo) AnswerDailyChallenge(ctx context.Context, userID string, correct bool, today time.Time) (models.DailyResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.DailyResult{}, err
	}
	defer tx.Rollback()

	var last sql.NullTime
	err = tx.QueryRowxContext(ctx, `SELECT daily_last_answered FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DailyResult{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return models.DailyResult{}, err
	}

	day := today.UTC().Format("2006-01-02")
	if last.Valid && last.Time.UTC().Format("2006-01-02") == day {
		return models.DailyResult{}, fmt.Errorf("daily challenge on %s: %w", day, ErrDuplicate)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET daily_last_answered = $2 WHERE id = $1`, userID, day); err != nil {
		return models.DailyResult{}, err
	}

	res := models.DailyResult{Correct: correct, LastAnswered: day}
	if correct {
		q := `INSERT INTO progress (user_id, module, percent) VALUES ($1, 'basics', 10)
		      ON CONFLICT (user_id, module) DO UPDATE SET percent = LEAST(100, progress.percent + 10)
		      RETURNING percent`
		if err := tx.QueryRowxContext(ctx, q, userID).Scan(&res.Percent); err != nil {
			return models.DailyResult{}, err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO badges (user_id, badge, awarded_at) VALUES ($1, $2, now()) ON CONFLICT DO NOTHING`, userID, DailyBadge); err != nil {
			return models.DailyResult{}, err
		}
		res.Badge = DailyBadge
	}
	if err := tx.Commit(); err != nil {
		return models.DailyResult{}, err
	}
	return res, nil
}

// CompleteChapter advances a learn module by 20%, capped at 100. At
// 100% the module's badge is awarded (once) and returned.
func (r *Repo) CompleteChapter(ctx context.Context, userID, module string) (int, string, error) {
	badge, ok := LearnModules[module]
	if !ok {
		return 0, "", fmt.Errorf("module %s: %w", module, ErrNotFound)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, "", err
	}
	defer tx.Rollback()

	var percent int
	q := `INSERT INTO progress (user_id, module, percent) VALUES ($1, $2, 20)
	      ON CONFLICT (user_id, module) DO UPDATE SET percent = LEAST(100, progress.percent + 20)
	      RETURNING percent`
	if err := tx.QueryRowxContext(ctx, q, userID, module).Scan(&percent); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return 0, "", fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return 0, "", err
	}

	awarded := ""
	if percent >= 100 {
		if _, err := tx.ExecContext(ctx, `INSERT INTO badges (user_id, badge, awarded_at) VALUES ($1, $2, now()) ON CONFLICT DO NOTHING`, userID, badge); err != nil {
			return 0, "", err
		}
		awarded = badge
	}
	if err := tx.Commit(); err != nil {
		return 0, "", err
	}
	return percent, awarded, nil
}

// Leaderboard returns the top users by virtual balance.
func (r *Repo) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	entries := []models.LeaderboardEntry{}
	err := r.db.SelectContext(ctx, &entries, `SELECT username, cash_balance FROM users ORDER BY cash_balance DESC, username ASC LIMIT $1`, limit)
	return entries, err
}

// CreateLeague inserts a league and enrols the creator.
func (r *Repo) CreateLeague(ctx context.Context, name, description, creatorID string) (models.League, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.League{}, err
	}
	defer tx.Rollback()

	var l models.League
	q := `INSERT INTO leagues (id, name, description, creator_id, created_at)
	      VALUES (gen_random_uuid(), $1, $2, $3, now())
	      RETURNING id, name, description, creator_id, created_at`
	if err := tx.QueryRowxContext(ctx, q, name, description, creatorID).StructScan(&l); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return models.League{}, fmt.Errorf("user %s: %w", creatorID, ErrNotFound)
		}
		return models.League{}, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO league_members (league_id, user_id) VALUES ($1, $2)`, l.ID, creatorID); err != nil {
		return models.League{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.League{}, err
	}
	return l, nil
}

func (r *Repo) JoinLeague(ctx context.Context, leagueID, userID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO league_members (league_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, leagueID, userID)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
		return fmt.Errorf("league %s or user %s: %w", leagueID, userID, ErrNotFound)
	}
	return err
}

func (r *Repo) ListLeagues(ctx context.Context) ([]models.League, error) {
	leagues := []models.League{}
	err := r.db.SelectContext(ctx, &leagues, `SELECT id, name, description, creator_id, created_at FROM leagues ORDER BY created_at`)
	return leagues, err
}

// LeagueLeaderboard ranks league members by virtual balance.
func (r *Repo) LeagueLeaderboard(ctx context.Context, leagueID string) ([]models.LeaderboardEntry, error) {
	entries := []models.LeaderboardEntry{}
	q := `SELECT u.username, u.cash_balance
	      FROM league_members m JOIN users u ON u.id = m.user_id
	      WHERE m.league_id = $1
	      ORDER BY u.cash_balance DESC, u.username ASC`
	err := r.db.SelectContext(ctx, &entries, q, leagueID)
	return entries, err
}
