package webhook

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/cinequest/cinequest/internal/config"
	"github.com/cinequest/cinequest/internal/overseerr"
)

// Resolver is the slice of the backend client the webhook server needs to
// turn a notification's media ids into renderable metadata.
type Resolver interface {
	Movie(ctx context.Context, id int) (*overseerr.MediaDetails, error)
	Series(ctx context.Context, id int) (*overseerr.SeriesDetails, error)
}

// Announcer renders notices into the community notification channel. The bot
// implements it; the server never talks to the chat platform directly.
type Announcer interface {
	AnnouncePending(media overseerr.MediaDetails, requestID int) error
	AnnounceApproved(subject string) error
}

// Server receives asynchronous media notifications from the backend.
//
// It always acknowledges with 200: the backend does not implement
// retry-aware delivery, so a non-2xx would only cause redelivery storms.
// Failures are surfaced in the logs instead.
type Server struct {
	echo      *echo.Echo
	catalog   Resolver
	announcer Announcer
	cfg       config.ServerConfig
	logger    zerolog.Logger
}

// NewServer creates the webhook server and registers its routes.
func NewServer(cfg config.ServerConfig, catalog Resolver, announcer Announcer, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:      e,
		catalog:   catalog,
		announcer: announcer,
		cfg:       cfg,
		logger:    logger.With().Str("component", "webhook").Logger(),
	}

	e.GET("/", s.handleHealth)
	e.POST(cfg.WebhookPath, s.handleNotification)

	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.cfg.Address()).Str("path", s.cfg.WebhookPath).Msg("Webhook server listening")
	err := s.echo.Start(s.cfg.Address())
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNotification(c echo.Context) error {
	var notification Notification
	if err := c.Bind(&notification); err != nil {
		s.logger.Error().Err(err).Msg("Failed to decode notification payload")
		return s.acknowledge(c)
	}

	switch notification.NotificationType {
	case eventMediaPending:
		s.handleMediaPending(c.Request().Context(), notification)
	case eventMediaApproved:
		s.handleMediaApproved(notification)
	default:
		s.logger.Debug().
			Str("type", notification.NotificationType).
			Msg("Ignoring unrecognized notification type")
	}

	return s.acknowledge(c)
}

// handleMediaPending resolves the pending media and posts it with an approve
// control carrying the backend's request id.
func (s *Server) handleMediaPending(ctx context.Context, notification Notification) {
	if notification.Media == nil || notification.Request == nil {
		s.logger.Error().Msg("MEDIA_PENDING notification missing media or request payload")
		return
	}

	requestID, err := atoiNumber(notification.Request.RequestID)
	if err != nil {
		s.logger.Error().Err(err).Msg("MEDIA_PENDING notification carries unusable request id")
		return
	}

	var media *overseerr.MediaDetails
	switch notification.Media.MediaType {
	case string(overseerr.MediaTypeMovie):
		id, err := atoiNumber(notification.Media.TmdbID)
		if err != nil {
			s.logger.Error().Err(err).Msg("MEDIA_PENDING notification carries unusable tmdb id")
			return
		}
		media, err = s.catalog.Movie(ctx, id)
		if err != nil {
			s.logger.Error().Err(err).Int("id", id).Msg("Failed to resolve pending movie")
			return
		}
	case string(overseerr.MediaTypeSeries):
		id, err := atoiNumber(notification.Media.TvdbID)
		if err != nil {
			s.logger.Error().Err(err).Msg("MEDIA_PENDING notification carries unusable tvdb id")
			return
		}
		series, err := s.catalog.Series(ctx, id)
		if err != nil {
			s.logger.Error().Err(err).Int("id", id).Msg("Failed to resolve pending series")
			return
		}
		media = &series.MediaDetails
	default:
		s.logger.Error().
			Str("mediaType", notification.Media.MediaType).
			Msg("MEDIA_PENDING notification carries unknown media type")
		return
	}

	if err := s.announcer.AnnouncePending(*media, requestID); err != nil {
		s.logger.Error().Err(err).Int("requestId", requestID).Msg("Failed to announce pending request")
		return
	}

	s.logger.Info().
		Int("requestId", requestID).
		Str("title", media.Title).
		Msg("Pending request announced")
}

func (s *Server) handleMediaApproved(notification Notification) {
	if err := s.announcer.AnnounceApproved(notification.Subject); err != nil {
		s.logger.Error().Err(err).Str("subject", notification.Subject).Msg("Failed to announce approval")
		return
	}
	s.logger.Info().Str("subject", notification.Subject).Msg("Approval announced")
}

func (s *Server) acknowledge(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func atoiNumber(n json.Number) (int, error) {
	v, err := n.Int64()
	return int(v), err
}
