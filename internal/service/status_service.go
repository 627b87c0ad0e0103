package service

import (
	"context"
	"fmt"
	"time"

	"kycut-bot/internal/httpapi"
	"kycut-bot/internal/model"
)

// StatusService covers the non-order API surface: connectivity checks,
// system status, and the activity heartbeat the website uses to mark
// the bot alive.
type StatusService struct {
	api *httpapi.Client
}

func NewStatusService(api *httpapi.Client) *StatusService {
	return &StatusService{api: api}
}

// Ping probes the API and returns the round-trip time and whether the
// probe succeeded.
func (s *StatusService) Ping(ctx context.Context) (time.Duration, bool) {
	start := time.Now()
	res := s.api.Do(ctx, httpapi.Request{Endpoint: httpapi.EndpointPing, Method: "GET"})
	return time.Since(start), res.Success
}

type systemStatusResponse struct {
	Status model.SystemStatus `json:"status"`
}

// SystemStatus fetches the website's health payload.
func (s *StatusService) SystemStatus(ctx context.Context) (model.SystemStatus, error) {
	res := s.api.Do(ctx, httpapi.Request{Endpoint: httpapi.EndpointStatus, Method: "GET"})
	if !res.Success {
		return model.SystemStatus{}, fmt.Errorf("%s", res.Error)
	}
	var payload systemStatusResponse
	if err := res.Decode(&payload); err != nil {
		return model.SystemStatus{}, err
	}
	return payload.Status, nil
}

type activityPayload struct {
	TelegramUserID int64  `json:"telegram_user_id,omitempty"`
	Action         string `json:"action"`
}

// UpdateActivity posts an activity heartbeat. userID may be zero for a
// process-level heartbeat. The call is best effort.
func (s *StatusService) UpdateActivity(ctx context.Context, userID int64) error {
	res := s.api.Do(ctx, httpapi.Request{
		Endpoint: httpapi.EndpointWebhook,
		Method:   "POST",
		Body:     activityPayload{TelegramUserID: userID, Action: "update_activity"},
	})
	if !res.Success {
		return fmt.Errorf("%s", res.Error)
	}
	return nil
}
