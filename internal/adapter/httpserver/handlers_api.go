package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/saif7218/zk-marketwatch/internal/domain"
	apperrors "github.com/saif7218/zk-marketwatch/internal/platform/errors"
)

func (s *Server) registerAPIRoutes() {
	limiter := newRateLimiter(s.config.IngressRatePerSecond, s.config.IngressBurst)

	s.echo.POST("/api/events/price", s.handlePublishPrice, limiter)
	s.echo.POST("/api/events/alert", s.handlePublishAlert, limiter)
	s.echo.GET("/api/prices/history", s.handlePriceHistory)
	s.echo.GET("/api/connections", s.handleConnections)
}

func bindJSON(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return WrapHTTPError(httpErr)
		}
		return apperrors.ValidationError("invalid request body")
	}
	return nil
}

func (s *Server) handlePublishPrice(c echo.Context) error {
	var ev domain.PriceEvent
	if err := bindJSON(c, &ev); err != nil {
		return err
	}

	published, err := s.app.PublishPrice(ev)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusAccepted, published); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handlePublishAlert(c echo.Context) error {
	var alert domain.AlertEvent
	if err := bindJSON(c, &alert); err != nil {
		return err
	}

	published, err := s.app.PublishAlert(alert)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusAccepted, published); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handlePriceHistory(c echo.Context) error {
	productID := strings.TrimSpace(c.QueryParam("product_id"))
	if productID == "" {
		return apperrors.ValidationError("product_id is required")
	}

	page, err := s.app.History(c.Request().Context(), productID)
	if err != nil {
		if errors.Is(err, domain.ErrHistoryUnavailable) {
			return apperrors.UnavailableError("price history unavailable", err).WithContext("product_id", productID)
		}
		return err
	}

	if err := c.JSON(http.StatusOK, page); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleConnections(c echo.Context) error {
	count := 0
	if s.connections != nil {
		count = s.connections.Count()
	}
	if err := c.JSON(http.StatusOK, map[string]int{"count": count}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
