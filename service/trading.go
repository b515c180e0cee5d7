package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"papertrade/database"
	"papertrade/lookup"
	"papertrade/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores everything past 72 bytes
const maxPasswordBytes = 72

// Store is the persistence the trading rules run against.
type Store interface {
	CreateUser(ctx context.Context, username, hash string, cash decimal.Decimal) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UserByID(ctx context.Context, id uint) (*models.User, error)
	Holding(ctx context.Context, userID uint, symbol string) (int64, error)
	Holdings(ctx context.Context, userID uint) ([]models.Position, error)
	History(ctx context.Context, userID uint) ([]models.Transaction, error)
	Buy(ctx context.Context, userID uint, symbol string, shares int64, price, cost decimal.Decimal) error
	Sell(ctx context.Context, userID uint, symbol string, shares int64, price, proceeds decimal.Decimal) error
}

// PriceLookup fetches a fresh quote for an upper-case symbol.
type PriceLookup interface {
	Lookup(ctx context.Context, symbol string) (*models.Quote, error)
}

type RegisterForm struct {
	Username     string `form:"username" json:"username"`
	Password     string `form:"password" json:"password"`
	Confirmation string `form:"confirmation" json:"confirmation"`
}

type LoginForm struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

type QuoteForm struct {
	Symbol string `form:"symbol" json:"symbol"`
}

// TradeForm is a buy or sell order. Shares stays a string so that anything
// other than plain digits can be rejected.
type TradeForm struct {
	Symbol string `form:"symbol" json:"symbol"`
	Shares string `form:"shares" json:"shares"`
}

// Receipt describes an executed trade.
type Receipt struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Shares int64           `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Total  decimal.Decimal `json:"total"`
}

// Portfolio is the user's priced holdings plus cash.
type Portfolio struct {
	Holdings []models.Holding `json:"holdings"`
	Cash     decimal.Decimal  `json:"cash"`
	Total    decimal.Decimal  `json:"total"`
}

// Trading implements registration, login and the trading rules.
type Trading struct {
	store        Store
	prices       PriceLookup
	startingCash decimal.Decimal
	hashCost     int
}

func NewTrading(store Store, prices PriceLookup, startingCash decimal.Decimal) *Trading {
	return &Trading{
		store:        store,
		prices:       prices,
		startingCash: startingCash,
		hashCost:     bcrypt.DefaultCost,
	}
}

// Register creates a user with the starting cash balance.
func (t *Trading) Register(ctx context.Context, form RegisterForm) (*models.User, error) {
	check := Require(
		Field{"username", form.Username},
		Field{"password", form.Password},
		Field{"confirmation", form.Confirmation},
	)
	if !check.OK() {
		return nil, missing(check)
	}
	if form.Password != form.Confirmation {
		return nil, newError(KindValidation, http.StatusBadRequest, "Both passwords must be same")
	}
	if len(form.Password) > maxPasswordBytes {
		return nil, newError(KindValidation, http.StatusBadRequest, "Password is too long")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), t.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := t.store.CreateUser(ctx, form.Username, string(hash), t.startingCash)
	if errors.Is(err, database.ErrDuplicateUsername) {
		return nil, &Error{
			Kind:    KindConflict,
			Message: "Username already exists, try a different username",
			Err:     err,
		}
	}
	if err != nil {
		return nil, err
	}

	log.WithField("user_id", user.ID).Info("User registered")
	return user, nil
}

// Login checks credentials. Unknown users and wrong passwords fail identically.
func (t *Trading) Login(ctx context.Context, form LoginForm) (*models.User, error) {
	check := Require(Field{"username", form.Username}, Field{"password", form.Password})
	if !check.OK() {
		return nil, missing(check)
	}

	invalid := newError(KindAuth, http.StatusForbidden, "invalid username and/or password")

	user, err := t.store.UserByUsername(ctx, form.Username)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Hash), []byte(form.Password)); err != nil {
		return nil, invalid
	}
	return user, nil
}

func (t *Trading) Quote(ctx context.Context, form QuoteForm) (*models.Quote, error) {
	symbol := NormalizeSymbol(form.Symbol)
	if check := Require(Field{"symbol", symbol}); !check.OK() {
		return nil, missing(check)
	}
	return t.lookup(ctx, symbol, "Invalid Symbol")
}

// Buy purchases shares at the current price. The whole cost must be covered
// by the user's cash.
func (t *Trading) Buy(ctx context.Context, userID uint, form TradeForm) (*Receipt, error) {
	symbol := NormalizeSymbol(form.Symbol)
	if check := Require(Field{"symbol", symbol}, Field{"shares", form.Shares}); !check.OK() {
		return nil, newError(KindValidation, http.StatusBadRequest,
			"Please provide a Symbol and/or no.of shares you want to buy")
	}
	shares, check := ParseShares(form.Shares)
	if !check.OK() {
		return nil, check.err(http.StatusBadRequest)
	}

	quote, err := t.lookup(ctx, symbol, "Invalid Symbol")
	if err != nil {
		return nil, err
	}

	receipt := newReceipt(quote, symbol, shares)
	err = t.store.Buy(ctx, userID, symbol, shares, quote.Price, receipt.Total)
	if errors.Is(err, database.ErrInsufficientFunds) {
		return nil, &Error{Kind: KindInsufficientFunds, Message: "Can't Afford", Err: err}
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"symbol":  symbol,
		"shares":  shares,
		"price":   quote.Price.String(),
	}).Info("Bought shares")
	return receipt, nil
}

// Sell sells shares of an active holding at the current price.
func (t *Trading) Sell(ctx context.Context, userID uint, form TradeForm) (*Receipt, error) {
	symbol := NormalizeSymbol(form.Symbol)
	if check := Require(Field{"symbol", symbol}, Field{"shares", form.Shares}); !check.OK() {
		return nil, newError(KindValidation, http.StatusBadRequest,
			"Please provide a Symbol and/or no.of shares you want to sell")
	}
	shares, check := ParseShares(form.Shares)
	if !check.OK() {
		return nil, check.err(http.StatusBadRequest)
	}

	tooMany := func(err error) error {
		return &Error{Kind: KindInsufficientShares, Message: "Too Many Shares!!", Err: err}
	}

	held, err := t.store.Holding(ctx, userID, symbol)
	if err != nil {
		return nil, err
	}
	if shares > held {
		return nil, tooMany(nil)
	}

	quote, err := t.lookup(ctx, symbol, "Invalid Symbol!")
	if err != nil {
		return nil, err
	}

	receipt := newReceipt(quote, symbol, shares)
	err = t.store.Sell(ctx, userID, symbol, shares, quote.Price, receipt.Total)
	if errors.Is(err, database.ErrInsufficientShares) {
		return nil, tooMany(err)
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"symbol":  symbol,
		"shares":  shares,
		"price":   quote.Price.String(),
	}).Info("Sold shares")
	return receipt, nil
}

// Portfolio prices every active holding. One failed lookup fails the view.
func (t *Trading) Portfolio(ctx context.Context, userID uint) (*Portfolio, error) {
	positions, err := t.store.Holdings(ctx, userID)
	if err != nil {
		return nil, err
	}
	user, err := t.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	portfolio := &Portfolio{
		Holdings: make([]models.Holding, 0, len(positions)),
		Cash:     user.Cash,
		Total:    user.Cash,
	}
	for _, p := range positions {
		quote, err := t.lookup(ctx, p.Symbol, "No price available for "+p.Symbol)
		if err != nil {
			return nil, err
		}
		line := quote.Price.Mul(decimal.NewFromInt(p.Shares))
		portfolio.Holdings = append(portfolio.Holdings, models.Holding{
			Symbol: p.Symbol,
			Name:   quote.Name,
			Shares: p.Shares,
			Price:  quote.Price,
			Total:  line,
		})
		portfolio.Total = portfolio.Total.Add(line)
	}
	return portfolio, nil
}

func (t *Trading) History(ctx context.Context, userID uint) ([]models.Transaction, error) {
	return t.store.History(ctx, userID)
}

// SellableSymbols lists the symbols the user currently holds.
func (t *Trading) SellableSymbols(ctx context.Context, userID uint) ([]string, error) {
	positions, err := t.store.Holdings(ctx, userID)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(positions))
	for _, p := range positions {
		symbols = append(symbols, p.Symbol)
	}
	return symbols, nil
}

func (t *Trading) lookup(ctx context.Context, symbol, notFound string) (*models.Quote, error) {
	quote, err := t.prices.Lookup(ctx, symbol)
	switch {
	case errors.Is(err, lookup.ErrNotFound):
		return nil, &Error{Kind: KindNotFound, Message: notFound, Err: err}
	case errors.Is(err, lookup.ErrTransport):
		return nil, &Error{Kind: KindTransport, Message: "Quote service unavailable, try again later", Err: err}
	case err != nil:
		return nil, fmt.Errorf("failed to look up %s: %w", symbol, err)
	}
	return quote, nil
}

// newReceipt prices a trade. Total is rounded to cents and is exactly the
// amount that moves in or out of the user's cash.
func newReceipt(quote *models.Quote, symbol string, shares int64) *Receipt {
	return &Receipt{
		Symbol: symbol,
		Name:   quote.Name,
		Shares: shares,
		Price:  quote.Price,
		Total:  quote.Price.Mul(decimal.NewFromInt(shares)).Round(2),
	}
}
