package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"whispr/internal/domain/message"
	"whispr/internal/domain/user"
	"whispr/internal/transport/httpdto"
	whispr_errors "whispr/pkg/errors"
)

// HTTPAPI implements API against the HTTP surface.
type HTTPAPI struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPAPI(baseURL, token string) *HTTPAPI {
	return &HTTPAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *HTTPAPI) Contacts(ctx context.Context) ([]user.User, error) {
	return doJSON[[]user.User](ctx, a, http.MethodGet, "/api/messages/users", nil)
}

func (a *HTTPAPI) ChatPartners(ctx context.Context) ([]Partner, error) {
	return doJSON[[]Partner](ctx, a, http.MethodGet, "/api/messages/chats", nil)
}

func (a *HTTPAPI) Conversation(ctx context.Context, peer uuid.UUID) ([]message.Message, error) {
	return doJSON[[]message.Message](ctx, a, http.MethodGet, "/api/messages/"+peer.String(), nil)
}

func (a *HTTPAPI) Pinned(ctx context.Context, peer uuid.UUID) ([]message.Message, error) {
	return doJSON[[]message.Message](ctx, a, http.MethodGet, "/api/messages/pinned/"+peer.String(), nil)
}

func (a *HTTPAPI) SendMessage(ctx context.Context, peer uuid.UUID, text, image string) (message.Message, error) {
	body := httpdto.SendMessageRequest{Text: text, Image: image}
	return doJSON[message.Message](ctx, a, http.MethodPost, "/api/messages/send/"+peer.String(), body)
}

func (a *HTTPAPI) MarkRead(ctx context.Context, peer uuid.UUID) (int64, error) {
	resp, err := doJSON[httpdto.MarkReadResponse](ctx, a, http.MethodPut, "/api/messages/read/"+peer.String(), nil)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *HTTPAPI) Pin(ctx context.Context, messageID uuid.UUID) (message.Message, error) {
	return doJSON[message.Message](ctx, a, http.MethodPut, "/api/messages/pin/"+messageID.String(), nil)
}

func (a *HTTPAPI) Unpin(ctx context.Context, messageID uuid.UUID) (message.Message, error) {
	return doJSON[message.Message](ctx, a, http.MethodPut, "/api/messages/unpin/"+messageID.String(), nil)
}

func (a *HTTPAPI) DeleteForEveryone(ctx context.Context, messageID uuid.UUID) error {
	_, err := doJSON[any](ctx, a, http.MethodDelete, "/api/messages/everyone/"+messageID.String(), nil)
	return err
}

func (a *HTTPAPI) DeleteForMe(ctx context.Context, messageID uuid.UUID) error {
	_, err := doJSON[any](ctx, a, http.MethodDelete, "/api/messages/me/"+messageID.String(), nil)
	return err
}

func doJSON[T any](ctx context.Context, a *HTTPAPI, method, path string, body interface{}) (T, error) {
	var zero T

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return zero, err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return zero, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	var envelope httpdto.Response[T]
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return zero, fmt.Errorf("decode response: %w", err)
	}
	if !envelope.Success {
		return zero, errorFromCode(envelope.Code, envelope.Error)
	}
	return envelope.Data, nil
}

// errorFromCode maps wire error codes back onto the sentinel taxonomy
// so callers can errors.Is on both sides of the boundary.
func errorFromCode(code, msg string) error {
	switch code {
	case "NOT_FOUND":
		return whispr_errors.ErrNotFound
	case "FORBIDDEN":
		return whispr_errors.ErrForbidden
	case "UNAUTHORIZED":
		return whispr_errors.ErrUnauthorized
	case "ALREADY_DELETED":
		return whispr_errors.ErrAlreadyDeleted
	case "VALIDATION":
		return whispr_errors.ErrValidation
	case "SELF_MESSAGE":
		return whispr_errors.ErrSelfMessage
	case "INVALID_REQUEST":
		return whispr_errors.ErrInvalidInput
	default:
		if msg == "" {
			msg = "request failed"
		}
		return fmt.Errorf("%s", msg)
	}
}
