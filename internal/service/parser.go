package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"smartline/internal/model"
)

// TextParser is the boundary to the external text-understanding service.
// Implementations must always return a (possibly empty) list and never
// partially populated items.
type TextParser interface {
	ParseOrders(ctx context.Context, text string) ([]model.ParsedOrder, error)
	ParsePrices(ctx context.Context, text string) ([]model.ParsedPrice, error)
}

// ParserClient talks to the parser service over HTTP. Any transport failure
// or contract violation comes back as a *ParsingError.
type ParserClient struct {
	baseURL string
	client  *http.Client
}

func NewParserClient(baseURL string) *ParserClient {
	return &ParserClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type parseRequest struct {
	Text string `json:"text"`
}

func (c *ParserClient) post(ctx context.Context, path, text string, out any) error {
	body, err := json.Marshal(parseRequest{Text: text})
	if err != nil {
		return &ParsingError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &ParsingError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &ParsingError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &ParsingError{Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, respBody)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ParsingError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *ParserClient) ParseOrders(ctx context.Context, text string) ([]model.ParsedOrder, error) {
	var res struct {
		Orders []model.ParsedOrder `json:"orders"`
	}
	if err := c.post(ctx, "/v1/parse-orders", text, &res); err != nil {
		return nil, err
	}
	for _, block := range res.Orders {
		for _, item := range block.Items {
			if item.Name == "" || item.Quantity <= 0 {
				return nil, &ParsingError{Err: fmt.Errorf("item missing name or quantity")}
			}
		}
	}
	return res.Orders, nil
}

func (c *ParserClient) ParsePrices(ctx context.Context, text string) ([]model.ParsedPrice, error) {
	var res struct {
		Prices []model.ParsedPrice `json:"prices"`
	}
	if err := c.post(ctx, "/v1/parse-prices", text, &res); err != nil {
		return nil, err
	}
	for _, p := range res.Prices {
		if p.ItemName == "" {
			return nil, &ParsingError{Err: fmt.Errorf("price entry missing item name")}
		}
	}
	return res.Prices, nil
}
