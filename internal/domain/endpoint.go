// Package domain contains the core entities monitored and produced by the
// uptime engine: endpoints, credentials, check results, incidents and alerts.
package domain

import "time"

// HTTPMethod is the set of methods an endpoint may be probed with.
type HTTPMethod string

// Supported probe methods.
const (
	MethodGET    HTTPMethod = "GET"
	MethodPOST   HTTPMethod = "POST"
	MethodPUT    HTTPMethod = "PUT"
	MethodDELETE HTTPMethod = "DELETE"
	MethodPATCH  HTTPMethod = "PATCH"
	MethodHEAD   HTTPMethod = "HEAD"
)

// IsValid reports whether m is one of the supported probe methods.
func (m HTTPMethod) IsValid() bool {
	switch m {
	case MethodGET, MethodPOST, MethodPUT, MethodDELETE, MethodPATCH, MethodHEAD:
		return true
	}
	return false
}

// EndpointStatus is the derived health of an endpoint.
type EndpointStatus string

// Endpoint statuses. DEGRADED is reserved for latency-breach failures; see
// the incidents package for the transition that sets it.
const (
	EndpointStatusUp       EndpointStatus = "UP"
	EndpointStatusDown     EndpointStatus = "DOWN"
	EndpointStatusDegraded EndpointStatus = "DEGRADED"
	EndpointStatusUnknown  EndpointStatus = "UNKNOWN"
)

// MinIntervalSeconds and MaxIntervalSeconds bound Endpoint.IntervalSeconds.
const (
	MinIntervalSeconds = 30
	MaxIntervalSeconds = 3600
	MinTimeoutMillis   = 1000
	MaxTimeoutMillis   = 60000
)

// Endpoint is a configured HTTP resource probed on a schedule.
type Endpoint struct {
	ID                  string
	ProjectID           string
	Name                string
	URL                 string
	Method              HTTPMethod
	Headers             string // opaque JSON object, parsed by the prober
	RequestBody         string
	ExpectedStatus      int
	IntervalSeconds     int
	TimeoutMillis       int
	MaxLatencyMillis    *int
	CredentialID        *string
	Enabled             bool
	Status              EndpointStatus
	LastCheckAt         *time.Time
	NextCheckAt         *time.Time
	ConsecutiveFailures int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ValidateInterval enforces the defensive bounds the core applies regardless
// of what the configuration provider admits.
func ValidateInterval(seconds int) error {
	if seconds < MinIntervalSeconds || seconds > MaxIntervalSeconds {
		return ErrIntervalOutOfRange
	}
	return nil
}

// ValidateTimeout enforces the defensive timeout bounds.
func ValidateTimeout(millis int) error {
	if millis < MinTimeoutMillis || millis > MaxTimeoutMillis {
		return ErrTimeoutOutOfRange
	}
	return nil
}

// DueForCheck reports whether the endpoint should be selected by the
// scheduler at instant now.
func (e *Endpoint) DueForCheck(now time.Time) bool {
	if !e.Enabled {
		return false
	}
	return e.NextCheckAt == nil || !e.NextCheckAt.After(now)
}
