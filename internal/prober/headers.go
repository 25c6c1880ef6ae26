package prober

import (
	"encoding/json"
	"log/slog"
)

// parseHeaders decodes an endpoint's opaque JSON header blob into a flat
// string map. Parse errors are logged and swallowed: the probe proceeds
// without custom headers rather than failing the check.
func parseHeaders(logger *slog.Logger, raw string) map[string]string {
	if raw == "" {
		return nil
	}

	var headers map[string]string
	if err := json.Unmarshal([]byte(raw), &headers); err != nil {
		logger.Warn("failed to parse endpoint headers, proceeding without them", "error", err)
		return nil
	}
	return headers
}
