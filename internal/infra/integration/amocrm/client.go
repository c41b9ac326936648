package amocrm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/xavierca1/amo-sbp-bridge/internal/entity"
)

// Client wraps the amoCRM v4 REST API for the handful of lead operations
// the reconciler needs.
type Client struct {
	baseURL  string
	apiToken string
	http     *http.Client
}

func NewClient(domain, apiToken string) *Client {
	return &Client{
		baseURL:  fmt.Sprintf("https://%s/api/v4", domain),
		apiToken: apiToken,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// GetLead reads the current lead snapshot, embedded tags included.
func (c *Client) GetLead(ctx context.Context, leadID string) (*entity.Lead, error) {
	url := fmt.Sprintf("%s/leads/%s?with=tags", c.baseURL, leadID)

	body, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var resp leadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("amocrm: decode lead %s: %w", leadID, err)
	}

	lead := &entity.Lead{
		ID:         strconv.Itoa(resp.ID),
		Name:       resp.Name,
		Price:      resp.Price,
		PipelineID: resp.PipelineID,
		StatusID:   resp.StatusID,
	}
	for _, t := range resp.Embedded.Tags {
		lead.Tags = append(lead.Tags, t.Name)
	}
	return lead, nil
}

// UpdateLeadField writes a value into the custom field holding the payment
// link.
func (c *Client) UpdateLeadField(ctx context.Context, leadID string, fieldID int, value string) error {
	url := fmt.Sprintf("%s/leads/%s", c.baseURL, leadID)

	payload := updateFieldRequest{
		CustomFieldsValues: []customField{
			{FieldID: fieldID, Values: []customFieldValue{{Value: value}}},
		},
	}
	_, err := c.do(ctx, http.MethodPatch, url, payload)
	return err
}

// AddNote appends a common note to the lead's timeline. The note trail
// doubles as the user-visible audit record of payment events.
func (c *Client) AddNote(ctx context.Context, leadID, text string) error {
	url := fmt.Sprintf("%s/leads/%s/notes", c.baseURL, leadID)

	note := noteRequest{NoteType: "common"}
	note.Params.Text = text

	// amoCRM expects notes as an array even for a single entry.
	_, err := c.do(ctx, http.MethodPost, url, []noteRequest{note})
	return err
}

// AddTag merges a tag into the lead's existing tag set. amoCRM replaces
// _embedded.tags wholesale on PATCH, so this has to read-modify-write;
// skips the call entirely when the tag is already present.
func (c *Client) AddTag(ctx context.Context, leadID, name string) error {
	lead, err := c.GetLead(ctx, leadID)
	if err != nil {
		return err
	}
	if lead.HasTag(name) {
		log.Printf("🏷️ amocrm: lead %s already tagged %q, skipping", leadID, name)
		return nil
	}

	var payload updateTagsRequest
	for _, t := range lead.Tags {
		payload.Embedded.Tags = append(payload.Embedded.Tags, tag{Name: t})
	}
	payload.Embedded.Tags = append(payload.Embedded.Tags, tag{Name: name})

	url := fmt.Sprintf("%s/leads/%s", c.baseURL, leadID)
	_, err = c.do(ctx, http.MethodPatch, url, payload)
	return err
}

// ChangeStatus moves the lead to another pipeline stage.
func (c *Client) ChangeStatus(ctx context.Context, leadID string, statusID int) error {
	url := fmt.Sprintf("%s/leads/%s", c.baseURL, leadID)
	_, err := c.do(ctx, http.MethodPatch, url, changeStatusRequest{StatusID: statusID})
	return err
}

func (c *Client) do(ctx context.Context, method, url string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("amocrm: marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("amocrm: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("❌ amocrm: %s %s -> %d: %s", method, url, resp.StatusCode, string(body))
		return nil, fmt.Errorf("amocrm: %s %s returned status %d", method, url, resp.StatusCode)
	}
	return body, nil
}
