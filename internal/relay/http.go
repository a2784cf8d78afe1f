package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"parley/internal/domain"
)

// HTTP is the JSON-over-HTTP relay client.
type HTTP struct {
	Base string
	HTTP *http.Client
}

// NewHTTP builds a client for the relay at base (scheme and host, no
// trailing slash).
func NewHTTP(base string) *HTTP { return &HTTP{Base: base, HTTP: http.DefaultClient} }

var _ domain.RelayClient = (*HTTP)(nil)

func (c *HTTP) RegisterDevice(ctx context.Context, key domain.DeviceKey) error {
	return c.post(ctx, "/devices", key, nil)
}

func (c *HTTP) FetchDeviceKeys(ctx context.Context, userIDs []string) ([]domain.DeviceKey, error) {
	var out []domain.DeviceKey
	in := struct {
		UserIDs []string `json:"userIds"`
	}{UserIDs: userIDs}
	if err := c.post(ctx, "/devices/lookup", in, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTP) PublishGrants(ctx context.Context, grants []domain.KeyGrant) error {
	return c.post(ctx, "/grants", grants, nil)
}

func (c *HTTP) FetchGrants(ctx context.Context, deviceID string) ([]domain.KeyGrant, error) {
	var out []domain.KeyGrant
	if err := c.getJSON(ctx, "/grants/"+url.PathEscape(deviceID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTP) CreateConversation(ctx context.Context, conv domain.Conversation) error {
	return c.post(ctx, "/conversations", conv, nil)
}

func (c *HTTP) AddParticipants(ctx context.Context, conversationID string, members []domain.Member) error {
	return c.post(ctx, "/conversations/"+url.PathEscape(conversationID)+"/members", members, nil)
}

func (c *HTTP) SetParticipantRole(ctx context.Context, conversationID, userID string, role domain.Role) error {
	in := struct {
		Role domain.Role `json:"role"`
	}{Role: role}
	path := "/conversations/" + url.PathEscape(conversationID) + "/members/" + url.PathEscape(userID) + "/role"
	return c.post(ctx, path, in, nil)
}

func (c *HTTP) FetchParticipants(ctx context.Context, conversationID string) ([]domain.Member, error) {
	var out []domain.Member
	if err := c.getJSON(ctx, "/conversations/"+url.PathEscape(conversationID)+"/members", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTP) SendEnvelope(ctx context.Context, env domain.CipherEnvelope) error {
	return c.post(ctx, "/envelopes", env, nil)
}

func (c *HTTP) FetchEnvelopes(ctx context.Context, deviceID string, limit int) ([]domain.CipherEnvelope, error) {
	path := "/envelopes/" + url.PathEscape(deviceID)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []domain.CipherEnvelope
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTP) AckEnvelopes(ctx context.Context, deviceID string, count int) error {
	in := struct {
		Count int `json:"count"`
	}{Count: count}
	return c.post(ctx, "/envelopes/"+url.PathEscape(deviceID)+"/ack", in, nil)
}

func (c *HTTP) PushSignal(ctx context.Context, sig domain.Signal) error {
	return c.post(ctx, "/signals", sig, nil)
}

func (c *HTTP) CreatePin(ctx context.Context, p domain.Pin) error {
	return c.post(ctx, "/conversations/"+url.PathEscape(p.ConversationID)+"/pins", p, nil)
}

func (c *HTTP) FetchPins(ctx context.Context, conversationID string) ([]domain.Pin, error) {
	var out []domain.Pin
	if err := c.getJSON(ctx, "/conversations/"+url.PathEscape(conversationID)+"/pins", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTP) DeletePin(ctx context.Context, conversationID, messageID string) error {
	path := "/conversations/" + url.PathEscape(conversationID) + "/pins/" + url.PathEscape(messageID)
	return c.delete(ctx, path)
}

func (c *HTTP) post(ctx context.Context, path string, in, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("relay post %s: %s", path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *HTTP) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("relay get %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *HTTP) delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.Base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("relay delete %s: %s", path, resp.Status)
	}
	return nil
}
