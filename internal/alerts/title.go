package alerts

import (
	"fmt"

	"github.com/bissquit/apimonitor/internal/domain"
	"golang.org/x/text/unicode/norm"
)

// actionFor maps an AlertKind to the deterministic action phrase used in
// titles, mirroring the teacher's statusEmoji/severityEmoji lookup style.
func actionFor(kind domain.AlertKind) string {
	switch kind {
	case domain.AlertKindEndpointDown:
		return "API Down"
	case domain.AlertKindEndpointRecovered:
		return "Recovered"
	case domain.AlertKindAuthFailure:
		return "Auth Failure"
	case domain.AlertKindTimeout:
		return "Timeout"
	case domain.AlertKindSSLError:
		return "SSL Error"
	case domain.AlertKindLatencyBreach:
		return "Slow Response"
	case domain.AlertKindConnectionError:
		return "Connection Error"
	default:
		return "Issue Detected"
	}
}

func emojiFor(kind domain.AlertKind) string {
	switch kind {
	case domain.AlertKindEndpointRecovered:
		return "✅"
	case domain.AlertKindLatencyBreach:
		return "🐢"
	case domain.AlertKindAuthFailure, domain.AlertKindSSLError:
		return "🔴"
	default:
		return "🟠"
	}
}

// buildTitle formats "<emoji> <action>: <endpoint name>", truncated to
// domain.MaxAlertTitleRunes UTF-8 characters without splitting a combining
// grapheme cluster.
func buildTitle(kind domain.AlertKind, endpointName string) string {
	title := fmt.Sprintf("%s %s: %s", emojiFor(kind), actionFor(kind), endpointName)
	return truncateRunes(title, domain.MaxAlertTitleRunes)
}

// truncateRunes caps s at n runes, backing off to the nearest normalization
// boundary so a truncation never splits a combining character in two.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	for n > 0 && !norm.NFC.PropertiesString(string(runes[n])).BoundaryBefore() {
		n--
	}
	cut := string(runes[:n])
	return norm.NFC.String(cut)
}
