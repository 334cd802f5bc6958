package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/NilaySharma23/finplay/internal/database"
	"github.com/NilaySharma23/finplay/internal/ledger"
	"github.com/NilaySharma23/finplay/internal/models"
	"github.com/NilaySharma23/finplay/internal/quotes"
	"github.com/NilaySharma23/finplay/internal/service"
	"github.com/NilaySharma23/finplay/internal/simulate"
)

// Store is the persistence surface the handlers need, implemented by
// *database.Repo.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
	LoadPortfolio(ctx context.Context, userID string) (ledger.Portfolio, error)
	SavePortfolio(ctx context.Context, userID string, p ledger.Portfolio) error
	AddGamePoints(ctx context.Context, userID string, delta int) (int, error)
	TouchStreak(ctx context.Context, userID string, today time.Time) (models.Streak, error)
	AnswerDailyChallenge(ctx context.Context, userID string, correct bool, today time.Time) (models.DailyResult, error)
	CompleteChapter(ctx context.Context, userID, module string) (int, string, error)
	CreateLeague(ctx context.Context, name, description, creatorID string) (models.League, error)
	JoinLeague(ctx context.Context, leagueID, userID string) error
	ListLeagues(ctx context.Context) ([]models.League, error)
}

// QuoteGetter fetches normalized quotes, implemented by *quotes.Client.
type QuoteGetter interface {
	GetQuote(ctx context.Context, symbol string) (quotes.Quote, error)
}

// Boards serves leaderboards, implemented by *service.Leaderboard.
type Boards interface {
	Global(ctx context.Context) ([]models.LeaderboardEntry, error)
	League(ctx context.Context, leagueID string) ([]models.LeaderboardEntry, error)
}

// Advisor is the AI assistant, implemented by *service.Assistant.
type Advisor interface {
	Answer(ctx context.Context, query, language string) (string, error)
	AnalyzePortfolio(ctx context.Context, portfolioJSON, language string) (string, error)
}

type Handler struct {
	store   Store
	quotes  QuoteGetter
	prices  service.PriceProvider
	boards  Boards
	advisor Advisor
	log     *logrus.Logger
}

// NewHandler creates the handler set. advisor may be nil when no
// Gemini key is configured; chat endpoints then report unavailability.
func NewHandler(store Store, q QuoteGetter, prices service.PriceProvider, boards Boards, advisor Advisor, log *logrus.Logger) *Handler {
	return &Handler{store: store, quotes: q, prices: prices, boards: boards, advisor: advisor, log: log}
}

// GetStock handles GET /api/stock/:symbol, the quote gateway surface.
// The response contract is fixed: 400 without a symbol, 404 when the
// provider has no data, 500 with the provider message otherwise.
func (h *Handler) GetStock(c *gin.Context) {
	symbol := c.Param("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Symbol is required"})
		return
	}

	q, err := h.quotes.GetQuote(c.Request.Context(), symbol)
	if err != nil {
		switch {
		case errors.Is(err, quotes.ErrInvalidSymbol):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Symbol is required"})
		case errors.Is(err, quotes.ErrNoData):
			c.JSON(http.StatusNotFound, gin.H{"error": "No data found for symbol: " + quotes.FormatSymbol(symbol)})
		default:
			h.log.Warnf("quote fetch failed for %s: %v", symbol, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stock data: " + err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, q)
}

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Language string `json:"language"`
}

// CreateUser handles POST /api/users (onboarding).
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid onboarding body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Age < 1 || req.Age > 150 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid age."})
		return
	}
	if req.Language == "" {
		req.Language = "English"
	}

	u := models.User{Username: req.Username, Name: req.Name, Age: req.Age, Language: req.Language}
	if err := h.store.CreateUser(c.Request.Context(), &u); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "username is taken"})
			return
		}
		h.log.Errorf("create user failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusCreated, u)
}

// GetProfile handles GET /api/users/:userId.
func (h *Handler) GetProfile(c *gin.Context) {
	p, err := h.store.GetProfile(c.Request.Context(), c.Param("userId"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.log.Errorf("get profile failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// TouchStreak handles POST /api/users/:userId/streak.
func (h *Handler) TouchStreak(c *gin.Context) {
	s, err := h.store.TouchStreak(c.Request.Context(), c.Param("userId"), time.Now())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.log.Errorf("touch streak failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, s)
}

// GetDailyChallenge handles GET /api/daily-challenge.
func (h *Handler) GetDailyChallenge(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"question": database.DailyQuestion, "options": database.DailyOptions})
}

type dailyChallengeRequest struct {
	Answer string `json:"answer" binding:"required"`
}

// AnswerDailyChallenge handles POST /api/users/:userId/daily-challenge.
// One attempt per day, right or wrong; a correct answer adds 10% to
// the basics module and awards the Daily Scholar badge.
func (h *Handler) AnswerDailyChallenge(c *gin.Context) {
	var req dailyChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	correct := strings.TrimSpace(req.Answer) == database.DailyAnswer
	res, err := h.store.AnswerDailyChallenge(c.Request.Context(), c.Param("userId"), correct, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicate):
			c.JSON(http.StatusConflict, gin.H{"error": "Already answered today. Try again tomorrow!"})
		case errors.Is(err, database.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			h.log.Errorf("daily challenge failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		}
		return
	}
	c.JSON(http.StatusOK, res)
}

type tradeRequest struct {
	Symbol   string `json:"symbol" binding:"required"`
	Quantity int64  `json:"quantity" binding:"required"`
}

// Buy handles POST /api/users/:userId/trades/buy: fetch the live
// price, apply the buy to the loaded portfolio, persist the result.
// Nothing is saved when the ledger rejects the trade.
func (h *Handler) Buy(c *gin.Context) {
	h.trade(c, ledger.Buy)
}

// Sell handles POST /api/users/:userId/trades/sell.
func (h *Handler) Sell(c *gin.Context) {
	h.trade(c, ledger.Sell)
}

func (h *Handler) trade(c *gin.Context, apply func(ledger.Portfolio, string, int64, decimal.Decimal) (ledger.Portfolio, error)) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid trade body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	userID := c.Param("userId")
	symbol := quotes.FormatSymbol(req.Symbol)

	portfolio, err := h.store.LoadPortfolio(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.log.Errorf("load portfolio failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	price, err := h.prices.GetPrice(ctx, symbol)
	if err != nil {
		switch {
		case errors.Is(err, quotes.ErrNoData):
			c.JSON(http.StatusNotFound, gin.H{"error": "No data found for symbol: " + symbol})
		default:
			h.log.Warnf("price fetch failed for %s: %v", symbol, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stock data: " + err.Error()})
		}
		return
	}

	updated, err := apply(portfolio, symbol, req.Quantity, price)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientBalance):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient balance."})
		case errors.Is(err, ledger.ErrInvalidQuantity):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sell quantity."})
		case errors.Is(err, ledger.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.log.Errorf("trade failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		}
		return
	}

	if err := h.store.SavePortfolio(ctx, userID, updated); err != nil {
		h.log.Errorf("save portfolio failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// GetPortfolio handles GET /api/users/:userId/portfolio: a valuation
// with refreshed prices. A symbol whose lookup fails keeps its last
// stored price; the refreshed prices are persisted best-effort.
func (h *Handler) GetPortfolio(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("userId")

	portfolio, err := h.store.LoadPortfolio(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.log.Errorf("load portfolio failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	v := ledger.Valuate(portfolio, func(symbol string) (decimal.Decimal, error) {
		price, err := h.prices.GetPrice(ctx, symbol)
		if err != nil {
			h.log.Warnf("valuation price fetch failed for %s: %v", symbol, err)
		}
		return price, err
	})

	refreshed := ledger.Portfolio{CashBalance: v.CashBalance, Positions: v.Positions}
	if err := h.store.SavePortfolio(ctx, userID, refreshed); err != nil {
		h.log.Warnf("persisting refreshed prices failed: %v", err)
	}
	c.JSON(http.StatusOK, v)
}

// GetLeaderboard handles GET /api/leaderboard.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	entries, err := h.boards.Global(c.Request.Context())
	if err != nil {
		h.log.Errorf("leaderboard failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

type createLeagueRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	CreatorID   string `json:"creatorId" binding:"required"`
}

// CreateLeague handles POST /api/leagues.
func (h *Handler) CreateLeague(c *gin.Context) {
	var req createLeagueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid league body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	l, err := h.store.CreateLeague(c.Request.Context(), req.Name, req.Description, req.CreatorID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.log.Errorf("create league failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusCreated, l)
}

// JoinLeague handles POST /api/leagues/:leagueId/join.
func (h *Handler) JoinLeague(c *gin.Context) {
	var req struct {
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.JoinLeague(c.Request.Context(), c.Param("leagueId"), req.UserID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "league or user not found"})
			return
		}
		h.log.Errorf("join league failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "joined"})
}

// ListLeagues handles GET /api/leagues.
func (h *Handler) ListLeagues(c *gin.Context) {
	leagues, err := h.store.ListLeagues(c.Request.Context())
	if err != nil {
		h.log.Errorf("list leagues failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leagues": leagues})
}

// GetLeagueLeaderboard handles GET /api/leagues/:leagueId/leaderboard.
func (h *Handler) GetLeagueLeaderboard(c *gin.Context) {
	entries, err := h.boards.League(c.Request.Context(), c.Param("leagueId"))
	if err != nil {
		h.log.Errorf("league leaderboard failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

// GetDemoPath handles GET /api/demo/path/:seed.
func (h *Handler) GetDemoPath(c *gin.Context) {
	c.JSON(http.StatusOK, simulate.GeneratePath(c.Param("seed")))
}

// GetDemoChart handles GET /api/demo/chart/:seed with a PNG body.
func (h *Handler) GetDemoChart(c *gin.Context) {
	png, err := simulate.RenderChart(simulate.GeneratePath(c.Param("seed")))
	if err != nil {
		h.log.Errorf("chart render failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

type predictionRequest struct {
	Symbol string `json:"symbol"`
	Guess  string `json:"guess" binding:"required"`
}

// PlayPrediction handles POST /api/users/:userId/games/prediction.
// The outcome is fully determined by the symbol seed; a correct guess
// earns 10 points.
func (h *Handler) PlayPrediction(c *gin.Context) {
	var req predictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Guess != "rise" && req.Guess != "fall" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "guess must be rise or fall"})
		return
	}

	pred := simulate.PredictMove(req.Symbol)
	correct := (req.Guess == "rise") == pred.Rose

	delta := 0
	if correct {
		delta = 10
	}
	points, err := h.store.AddGamePoints(c.Request.Context(), c.Param("userId"), delta)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.log.Errorf("add game points failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"correct":      correct,
		"currentPrice": pred.CurrentPrice,
		"futurePrice":  pred.FuturePrice,
		"gamePoints":   points,
	})
}

// CompleteChapter handles POST /api/users/:userId/learn/:module/chapter.
func (h *Handler) CompleteChapter(c *gin.Context) {
	percent, badge, err := h.store.CompleteChapter(c.Request.Context(), c.Param("userId"), c.Param("module"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown user or module"})
			return
		}
		h.log.Errorf("complete chapter failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	resp := gin.H{"module": c.Param("module"), "percent": percent}
	if badge != "" {
		resp["badge"] = badge
	}
	c.JSON(http.StatusOK, resp)
}

type chatRequest struct {
	Query     string          `json:"query"`
	Language  string          `json:"language"`
	Portfolio json.RawMessage `json:"portfolio"`
}

// Chat handles POST /api/chat. With a portfolio attached the assistant
// analyzes it for risk, otherwise it answers the free-form query.
func (h *Handler) Chat(c *gin.Context) {
	if h.advisor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "assistant is not configured"})
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var answer string
	var err error
	switch {
	case len(req.Portfolio) > 0:
		answer, err = h.advisor.AnalyzePortfolio(c.Request.Context(), string(req.Portfolio), req.Language)
	case req.Query != "":
		answer, err = h.advisor.Answer(c.Request.Context(), req.Query, req.Language)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "query or portfolio is required"})
		return
	}
	if err != nil {
		h.log.Warnf("assistant call failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get a response from the assistant: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}
