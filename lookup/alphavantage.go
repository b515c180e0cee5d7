package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"papertrade/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrNotFound means the provider does not know the symbol.
	ErrNotFound = errors.New("symbol not found")
	// ErrTransport means the provider could not be reached or gave an unusable answer.
	ErrTransport = errors.New("quote provider unavailable")
)

type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol string `json:"01. symbol"`
		Price  string `json:"05. price"`
	} `json:"Global Quote"`
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

type symbolSearchResponse struct {
	BestMatches []struct {
		Symbol string `json:"1. symbol"`
		Name   string `json:"2. name"`
	} `json:"bestMatches"`
}

// Client looks up current prices from Alpha Vantage. Prices are never
// cached; company names are, once resolved.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	timeout    time.Duration
	names      sync.Map // symbol -> company name
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		apiKey:     apiKey,
		timeout:    timeout,
	}
}

// Lookup returns the current quote for symbol. Failures wrap ErrNotFound or
// ErrTransport. A transport failure is retried once.
func (c *Client) Lookup(ctx context.Context, symbol string) (*models.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrNotFound
	}

	var result globalQuoteResponse
	params := url.Values{"function": {"GLOBAL_QUOTE"}, "symbol": {symbol}}
	err := c.get(ctx, params, &result)
	if errors.Is(err, ErrTransport) {
		log.WithError(err).WithField("symbol", symbol).Warn("Quote lookup failed, retrying")
		result = globalQuoteResponse{}
		err = c.get(ctx, params, &result)
	}
	if err != nil {
		return nil, err
	}

	switch {
	case result.Note != "" || result.Information != "":
		return nil, fmt.Errorf("%w: %s%s", ErrTransport, result.Note, result.Information)
	case result.ErrorMessage != "", result.GlobalQuote.Price == "":
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}

	price, err := decimal.NewFromString(result.GlobalQuote.Price)
	if err != nil {
		return nil, fmt.Errorf("%w: bad price %q for %s", ErrTransport, result.GlobalQuote.Price, symbol)
	}

	quoted := symbol
	if result.GlobalQuote.Symbol != "" {
		quoted = strings.ToUpper(result.GlobalQuote.Symbol)
	}

	return &models.Quote{
		Symbol: quoted,
		Name:   c.name(ctx, quoted),
		Price:  price,
	}, nil
}

// name resolves the company name for symbol, falling back to the symbol.
func (c *Client) name(ctx context.Context, symbol string) string {
	if name, ok := c.names.Load(symbol); ok {
		return name.(string)
	}

	var result symbolSearchResponse
	params := url.Values{"function": {"SYMBOL_SEARCH"}, "keywords": {symbol}}
	if err := c.get(ctx, params, &result); err != nil {
		log.WithError(err).WithField("symbol", symbol).Debug("Symbol search failed")
		return symbol
	}
	for _, match := range result.BestMatches {
		if strings.EqualFold(match.Symbol, symbol) && match.Name != "" {
			c.names.Store(symbol, match.Name)
			return match.Name
		}
	}
	return symbol
}

func (c *Client) get(ctx context.Context, params url.Values, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params.Set("apikey", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build quote request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrTransport, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to parse quote data: %v", ErrTransport, err)
	}
	return nil
}
