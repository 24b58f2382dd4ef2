// Package crm pushes completed quotes to the external CRM.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"quote-orchestrator/internal/domain/ports/adapter"
)

var _ adapter.CRMClient = (*HubSpotClient)(nil)

// HubSpotClient implements adapter.CRMClient against the HubSpot v3 objects
// API: upsert a contact by email, create a deal, attach the quote link as a
// note. Any failure here is the caller's to log, never to escalate.
type HubSpotClient struct {
	baseURL  string
	token    string
	pipeline string
	stage    string
	client   *http.Client
}

func NewHubSpotClient(baseURL, token, pipeline, stage string) (*HubSpotClient, error) {
	if token == "" {
		return nil, errors.New("hubspot token empty")
	}
	if baseURL == "" {
		baseURL = "https://api.hubapi.com"
	}
	return &HubSpotClient{
		baseURL:  baseURL,
		token:    token,
		pipeline: pipeline,
		stage:    stage,
		client:   &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (h *HubSpotClient) Push(ctx context.Context, req adapter.CRMPush) (adapter.CRMResult, error) {
	contactID, err := h.upsertContact(ctx, req.Email, req.Name, req.Phone)
	if err != nil {
		return adapter.CRMResult{}, fmt.Errorf("upsert contact: %w", err)
	}
	dealID, err := h.createDeal(ctx, req.DealName, req.Amount, contactID)
	if err != nil {
		return adapter.CRMResult{}, fmt.Errorf("create deal: %w", err)
	}
	if req.NoteURL != "" {
		if err := h.attachNote(ctx, dealID, req.NoteURL); err != nil {
			return adapter.CRMResult{}, fmt.Errorf("attach note: %w", err)
		}
	}
	return adapter.CRMResult{ContactID: contactID, DealID: dealID}, nil
}

func (h *HubSpotClient) upsertContact(ctx context.Context, email, name, phone string) (string, error) {
	payload := map[string]any{
		"properties": map[string]string{
			"email":     email,
			"firstname": name,
			"phone":     phone,
		},
	}
	id, err := h.post(ctx, "/crm/v3/objects/contacts", payload)
	if err == nil {
		return id, nil
	}
	// 409 means the contact exists; the error body carries "Existing ID: <id>"
	var conflict *conflictError
	if errors.As(err, &conflict) && conflict.existingID != "" {
		return conflict.existingID, nil
	}
	return "", err
}

func (h *HubSpotClient) createDeal(ctx context.Context, name string, amount float64, contactID string) (string, error) {
	props := map[string]string{
		"dealname": name,
		"amount":   strconv.FormatFloat(amount, 'f', 2, 64),
	}
	if h.pipeline != "" {
		props["pipeline"] = h.pipeline
	}
	if h.stage != "" {
		props["dealstage"] = h.stage
	}
	payload := map[string]any{
		"properties": props,
		"associations": []map[string]any{{
			"to": map[string]string{"id": contactID},
			"types": []map[string]any{{
				"associationCategory": "HUBSPOT_DEFINED",
				"associationTypeId":   3, // deal-to-contact
			}},
		}},
	}
	return h.post(ctx, "/crm/v3/objects/deals", payload)
}

func (h *HubSpotClient) attachNote(ctx context.Context, dealID, noteURL string) error {
	payload := map[string]any{
		"properties": map[string]string{
			"hs_note_body": "Offerte: " + noteURL,
			"hs_timestamp": strconv.FormatInt(time.Now().UnixMilli(), 10),
		},
		"associations": []map[string]any{{
			"to": map[string]string{"id": dealID},
			"types": []map[string]any{{
				"associationCategory": "HUBSPOT_DEFINED",
				"associationTypeId":   214, // note-to-deal
			}},
		}},
	}
	_, err := h.post(ctx, "/crm/v3/objects/notes", payload)
	return err
}

type conflictError struct {
	existingID string
	body       string
}

func (e *conflictError) Error() string { return "conflict: " + e.body }

func (h *HubSpotClient) post(ctx context.Context, path string, payload any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.token)

	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	dec := json.NewDecoder(resp.Body)
	_ = dec.Decode(&out)

	switch {
	case resp.StatusCode == http.StatusConflict:
		return "", &conflictError{existingID: extractExistingID(out.Message), body: out.Message}
	case resp.StatusCode >= 300:
		return "", fmt.Errorf("hubspot %s returned %d: %s", path, resp.StatusCode, out.Message)
	}
	return out.ID, nil
}

// extractExistingID pulls the contact id out of HubSpot's conflict message
// ("Contact already exists. Existing ID: 1234").
func extractExistingID(msg string) string {
	const marker = "Existing ID: "
	for i := 0; i+len(marker) <= len(msg); i++ {
		if msg[i:i+len(marker)] == marker {
			return msg[i+len(marker):]
		}
	}
	return ""
}
