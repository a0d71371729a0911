package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/app/grants"
	"github.com/dkeye/Classroom/internal/domain"
)

var badRequest = []error{
	domain.ErrInvalidRoomCode,
	domain.ErrInvalidSessionKind,
	domain.ErrUnsupportedLang,
	domain.ErrNameEmpty,
	domain.ErrNameTooLong,
	domain.ErrMissingField,
	domain.ErrInvalidAction,
	domain.ErrInvalidTransition,
	domain.ErrInvalidTimestamp,
}

// statusFor maps a sentinel to its HTTP status. fallback covers anything
// unrecognized, which callers set to 502 when the media transport failed.
func statusFor(err error, fallback int) int {
	for _, e := range badRequest {
		if errors.Is(err, e) {
			return http.StatusBadRequest
		}
	}
	switch {
	case errors.Is(err, domain.ErrRoomCodeTaken), errors.Is(err, domain.ErrRequestPending):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, grants.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrInvalidPIN):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotConfigured):
		return http.StatusInternalServerError
	}
	return fallback
}

func writeError(c *gin.Context, err error, fallback int) {
	status := statusFor(err, fallback)
	ev := log.Warn()
	if status >= 500 {
		ev = log.Error()
	}
	ev.Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Int("status", status).Msg("request failed")

	c.JSON(status, gin.H{"error": publicMessage(err, status)})
}

// publicMessage keeps driver and transport details in the log only.
func publicMessage(err error, status int) string {
	switch {
	case errors.Is(err, domain.ErrNotConfigured):
		return "server misconfigured"
	case status == http.StatusBadGateway:
		return "media transport unavailable"
	case status >= 500:
		return "internal error"
	}
	return err.Error()
}
