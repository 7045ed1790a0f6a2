package ginserver

import (
	"log/slog"
	"strings"

	gin "github.com/gin-gonic/gin"

	"staycal/internal/app/principal"
	domainlistings "staycal/internal/domain/listings"
	"staycal/internal/infra/security"
)

// HostAuth resolves "Authorization: Bearer <host>:<secret>" into a host
// principal on the request context. Requests without a valid key continue
// anonymously and are rejected by the command bus where ownership matters.
type HostAuth struct {
	Keys   *security.HostKeys
	Logger *slog.Logger
}

func (m HostAuth) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Keys.Empty() {
		c.Next()
		return
	}
	host, err := m.Keys.Verify(token)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Debug("api key rejected", "error", err)
		}
		c.Next()
		return
	}
	ctx := principal.WithHost(c.Request.Context(), domainlistings.HostID(host))
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

func extractBearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
