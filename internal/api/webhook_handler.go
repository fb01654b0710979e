package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ustc-compiler/gitlab-scripts/internal/logging"
)

const (
	headerGitLabToken     = "X-Gitlab-Token"
	headerGitLabEventUUID = "X-Gitlab-Event-UUID"
)

// GitLabWebhookHandler handles GitLab note events. The event is processed
// before responding, so GitLab sees a 500 when a reply could not be posted.
// Processing is detached from the request's cancellation.
func (s *Server) GitLabWebhookHandler(c echo.Context) error {
	req := c.Request()

	if s.config.WebhookSecret != "" {
		token := req.Header.Get(headerGitLabToken)
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.config.WebhookSecret)) != 1 {
			logging.FromContext(req.Context()).Warn().
				Str("remote_ip", c.RealIP()).
				Msg("Rejected webhook with bad token")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"status": "unauthorized",
			})
		}
	}

	deliveryID := req.Header.Get(headerGitLabEventUUID)
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}
	// Outlives the connection: GitLab hangs up after its webhook timeout.
	ctx := logging.WithDelivery(context.WithoutCancel(req.Context()), deliveryID)
	logger := logging.FromContext(ctx)

	body, err := io.ReadAll(req.Body)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read webhook body")
		return c.JSON(http.StatusBadRequest, map[string]string{
			"status": "bad request",
		})
	}

	payload, err := ParseNoteWebhook(body)
	if errors.Is(err, ErrEmptyPayload) {
		logger.Info().Msg("Webhook carried no data")
		return c.JSON(http.StatusBadRequest, map[string]string{
			"status": "no data",
		})
	}
	if err != nil {
		logger.Warn().Err(err).Str("body", logging.Preview(string(body), 200)).Msg("Failed to parse webhook payload")
		return c.JSON(http.StatusBadRequest, map[string]string{
			"status": "bad request",
		})
	}

	outcome := s.dispatcher.Dispatch(ctx, payload)

	switch outcome.Status {
	case OutcomeIgnored:
		return c.JSON(http.StatusOK, map[string]string{
			"status": "ignored",
			"reason": outcome.Reason,
		})
	case OutcomeFailed:
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"status": "error",
			"stage":  string(outcome.Stage),
		})
	default:
		return c.JSON(http.StatusOK, map[string]string{
			"status": "ok",
		})
	}
}
