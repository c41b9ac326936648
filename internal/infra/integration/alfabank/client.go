package alfabank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	testBaseURL = "https://alfa.rbsuat.com/payment/rest"
	prodBaseURL = "https://alfa.rbs.com/payment/rest"
)

// Client wraps the Alfa-Bank SBP acquiring REST API.
type Client struct {
	baseURL   string
	login     string
	password  string
	returnURL string
	http      *http.Client
}

func NewClient(login, password, returnURL string, testEnv bool) *Client {
	base := prodBaseURL
	if testEnv {
		base = testBaseURL
	}
	return &Client{
		baseURL:   base,
		login:     login,
		password:  password,
		returnURL: returnURL,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

// RegisterOrder mints a payment link for amount (kopeks) correlated by
// orderNumber.
func (c *Client) RegisterOrder(ctx context.Context, amount int64, orderNumber, description string) (RegisterOrderOutput, error) {
	form := url.Values{
		"userName":    {c.login},
		"password":    {c.password},
		"amount":      {strconv.FormatInt(amount, 10)},
		"orderNumber": {orderNumber},
		"returnUrl":   {c.returnURL},
		"description": {description},
		"language":    {"ru"},
		"currency":    {"643"}, // RUB
		"pageView":    {"DESKTOP"},
	}

	var resp registerOrderResponse
	if err := c.postForm(ctx, "/register.do", form, &resp); err != nil {
		return RegisterOrderOutput{}, err
	}

	if resp.ErrorCode != "" && resp.ErrorCode != "0" {
		return RegisterOrderOutput{}, fmt.Errorf("alfabank: register.do error %s: %s", resp.ErrorCode, resp.ErrorMessage)
	}
	if resp.FormURL == "" || resp.OrderID == "" {
		return RegisterOrderOutput{}, fmt.Errorf("alfabank: register.do returned no formUrl/orderId for order %s", orderNumber)
	}

	return RegisterOrderOutput{FormURL: resp.FormURL, OrderID: resp.OrderID}, nil
}

// GetOrderStatus polls the gateway for the current state of an order.
// Compare the result with OrderStatusDeposited.
func (c *Client) GetOrderStatus(ctx context.Context, orderNumber string) (int, error) {
	form := url.Values{
		"userName":    {c.login},
		"password":    {c.password},
		"orderNumber": {orderNumber},
	}

	var resp orderStatusResponse
	if err := c.postForm(ctx, "/getOrderStatusExtended.do", form, &resp); err != nil {
		return 0, err
	}

	if resp.ErrorCode != "" && resp.ErrorCode != "0" {
		return 0, fmt.Errorf("alfabank: getOrderStatusExtended.do error %s: %s", resp.ErrorCode, resp.ErrorMessage)
	}
	return resp.OrderStatus, nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("alfabank: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("❌ alfabank: POST %s -> %d: %s", path, resp.StatusCode, string(body))
		return fmt.Errorf("alfabank: POST %s returned status %d", path, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("alfabank: decode %s response: %w", path, err)
	}
	return nil
}
