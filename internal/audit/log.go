// Package audit records security-relevant decisions as structured log events.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"taskhub.org/internal/auth"
	"taskhub.org/internal/obs"
)

// Logger receives audit entries. It defaults to the shared logger.
var Logger = obs.Logger

// LogEvent writes an audit entry enriched with the request id and the
// authenticated user found in ctx.
func LogEvent(ctx context.Context, event string, attrs ...slog.Attr) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	all := make([]slog.Attr, 0, len(attrs)+3)
	all = append(all, slog.String("type", "audit"), slog.String("event", event))
	if rid := middleware.GetReqID(ctx); rid != "" {
		all = append(all, slog.String("request_id", rid))
	}
	if id, ok := auth.IdentityFromContext(ctx); ok {
		all = append(all, slog.String("user_id", id.UserID))
	}
	all = append(all, slog.Attr{Key: "fields", Value: slog.GroupValue(attrs...)})
	Logger().LogAttrs(ctx, slog.LevelInfo, "audit", all...)
	return nil
}
