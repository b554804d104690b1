// Package notifications reads and acknowledges the signed-in user's
// notifications. Rendering them is left to the caller.
package notifications

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	listPath        = "notifications/"
	markAllReadPath = "notifications/mark-all-read/"

	DefaultPollInterval = time.Minute
)

func notificationPath(id string) string {
	return fmt.Sprintf("notifications/%s/", url.PathEscape(id))
}

// Requester issues a JSON request relative to the API base URL and decodes
// the response into out.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

type Service struct {
	api    Requester
	logger zerolog.Logger
}

type Option func(*Service)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

func NewService(api Requester, options ...Option) (*Service, error) {
	if api == nil {
		return nil, fmt.Errorf("[NewService] api is required")
	}
	s := &Service{
		api:    api,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// List fetches the user's notifications and counts the unread ones.
func (s *Service) List(ctx context.Context) (*Inbox, error) {
	var resp ListResponse
	if err := s.api.Do(ctx, http.MethodGet, listPath, nil, &resp); err != nil {
		return nil, errors.Wrap(err, "[Service.List] list notifications")
	}
	if resp.Results == nil {
		resp.Results = []*Notification{}
	}
	return &Inbox{Notifications: resp.Results, Unread: UnreadCount(resp.Results)}, nil
}

// MarkRead marks notification id read.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	if id == "" {
		return autherrors.Wrapf(autherrors.ErrInvalidInput, "[Service.MarkRead] notification id is required")
	}
	read := true
	if err := s.api.Do(ctx, http.MethodPatch, notificationPath(id), UpdateRequest{Read: &read}, nil); err != nil {
		return errors.Wrap(err, "[Service.MarkRead] mark notification read")
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context) error {
	if err := s.api.Do(ctx, http.MethodPost, markAllReadPath, nil, nil); err != nil {
		return errors.Wrap(err, "[Service.MarkAllRead] mark all notifications read")
	}
	return nil
}

// Poll fetches the inbox immediately and then every interval until ctx is
// done, handing each result to onUpdate. A failed fetch is reported and
// polling carries on.
func (s *Service) Poll(ctx context.Context, interval time.Duration, onUpdate func(*Inbox, error)) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		inbox, err := s.List(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("[Service.Poll] failed to fetch notifications")
		}
		onUpdate(inbox, err)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
