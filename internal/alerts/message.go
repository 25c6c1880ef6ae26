package alerts

import (
	"fmt"

	"github.com/bissquit/apimonitor/internal/domain"
)

// buildMessage renders the alert body. Sink-specific formatting (HTML,
// Slack blocks, webhook JSON shape) is the sink's responsibility; this
// produces the plain-text content every sink starts from.
func buildMessage(endpoint *domain.Endpoint, kind domain.AlertKind, result domain.CheckResult) string {
	if kind == domain.AlertKindEndpointRecovered {
		return fmt.Sprintf("%s (%s) is back up.", endpoint.Name, endpoint.URL)
	}

	if result.ErrorMessage != "" {
		return fmt.Sprintf("%s (%s) failed: %s", endpoint.Name, endpoint.URL, result.ErrorMessage)
	}
	return fmt.Sprintf("%s (%s) is failing checks (status %d).", endpoint.Name, endpoint.URL, result.StatusCode)
}
