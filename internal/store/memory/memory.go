// Package memory provides an in-process fake of internal/store for unit
// tests, mirroring the hand-written fakes the teacher uses in its
// integration test package instead of a mocking framework.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/bissquit/apimonitor/internal/domain"
	"github.com/bissquit/apimonitor/internal/store"
	"github.com/google/uuid"
)

// Store is a fully in-memory implementation of store.Store.
type Store struct {
	mu          sync.Mutex
	endpoints   map[string]*domain.Endpoint
	results     []*domain.CheckResult
	incidents   map[string]*domain.Incident
	alerts      map[string]*domain.Alert
	credentials map[string]*domain.Credential
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		endpoints:   make(map[string]*domain.Endpoint),
		incidents:   make(map[string]*domain.Incident),
		alerts:      make(map[string]*domain.Alert),
		credentials: make(map[string]*domain.Credential),
	}
}

func (s *Store) Endpoints() store.EndpointRepository       { return &endpointRepo{s} }
func (s *Store) CheckResults() store.CheckResultRepository { return &checkResultRepo{s} }
func (s *Store) Incidents() store.IncidentRepository       { return &incidentRepo{s} }
func (s *Store) Alerts() store.AlertRepository             { return &alertRepo{s} }
func (s *Store) Credentials() store.CredentialRepository   { return &credentialRepo{s} }

// PutEndpoint seeds an endpoint directly, bypassing the repository API.
func (s *Store) PutEndpoint(ep *domain.Endpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}
	s.endpoints[ep.ID] = ep
}

// PutCredential seeds a credential directly.
func (s *Store) PutCredential(c *domain.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.credentials[c.ID] = c
}

// BackdateResult rewrites a check result's CreatedAt, for tests that need
// to seed fixtures outside the append-only repository API.
func (s *Store) BackdateResult(resultID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, res := range s.results {
		if res.ID == resultID {
			res.CreatedAt = at
			return
		}
	}
}

type endpointRepo struct{ s *Store }

func (r *endpointRepo) Get(ctx context.Context, id string) (*domain.Endpoint, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ep, ok := r.s.endpoints[id]
	if !ok {
		return nil, domain.ErrEndpointNotFound
	}
	cp := *ep
	return &cp, nil
}

func (r *endpointRepo) DueEndpoints(ctx context.Context, now time.Time) ([]*domain.Endpoint, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	due := make([]*domain.Endpoint, 0)
	for _, ep := range r.s.endpoints {
		if ep.DueForCheck(now) {
			cp := *ep
			due = append(due, &cp)
		}
	}
	return due, nil
}

func (r *endpointRepo) UpdateCheckStatus(ctx context.Context, id string, status domain.EndpointStatus, lastCheckAt, nextCheckAt time.Time, consecutiveFailures int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ep, ok := r.s.endpoints[id]
	if !ok {
		return domain.ErrEndpointNotFound
	}
	ep.Status = status
	ep.LastCheckAt = &lastCheckAt
	ep.NextCheckAt = &nextCheckAt
	ep.ConsecutiveFailures = consecutiveFailures
	return nil
}

type checkResultRepo struct{ s *Store }

func (r *checkResultRepo) Append(ctx context.Context, res *domain.CheckResult) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	res.CreatedAt = time.Now()
	r.s.results = append(r.s.results, res)
	return nil
}

func (r *checkResultRepo) LatestResult(ctx context.Context, endpointID string) (*domain.CheckResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *domain.CheckResult
	for _, res := range r.s.results {
		if res.EndpointID != endpointID {
			continue
		}
		if latest == nil || res.CreatedAt.After(latest.CreatedAt) {
			latest = res
		}
	}
	return latest, nil
}

func (r *checkResultRepo) UptimePct(ctx context.Context, endpointID string, since time.Time) (float64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var total, success int
	for _, res := range r.s.results {
		if res.EndpointID != endpointID || res.CreatedAt.Before(since) {
			continue
		}
		total++
		if res.Success {
			success++
		}
	}
	if total == 0 {
		return 100.0, nil
	}
	return 100.0 * float64(success) / float64(total), nil
}

func (r *checkResultRepo) AvgLatency(ctx context.Context, endpointID string, since time.Time) (float64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var total, count int64
	for _, res := range r.s.results {
		if res.EndpointID != endpointID || res.CreatedAt.Before(since) {
			continue
		}
		total += res.LatencyMs
		count++
	}
	if count == 0 {
		return 0, nil
	}
	return float64(total) / float64(count), nil
}

func (r *checkResultRepo) FailureBreakdown(ctx context.Context, endpointID string, since time.Time) (store.FailureBreakdown, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	breakdown := make(store.FailureBreakdown)
	for _, res := range r.s.results {
		if res.EndpointID != endpointID || res.Success || res.CreatedAt.Before(since) {
			continue
		}
		breakdown[res.Kind]++
	}
	return breakdown, nil
}

func (r *checkResultRepo) LastFailureAt(ctx context.Context, endpointID string) (*time.Time, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var last *time.Time
	for _, res := range r.s.results {
		if res.EndpointID != endpointID || res.Success {
			continue
		}
		if last == nil || res.CreatedAt.After(*last) {
			t := res.CreatedAt
			last = &t
		}
	}
	return last, nil
}

func (r *checkResultRepo) DeleteOlderThan(ctx context.Context, horizon time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := make([]*domain.CheckResult, 0, len(r.s.results))
	var deleted int64
	for _, res := range r.s.results {
		if res.CreatedAt.Before(horizon) {
			deleted++
			continue
		}
		kept = append(kept, res)
	}
	r.s.results = kept
	return deleted, nil
}

func (r *checkResultRepo) DeleteOlderThanForProject(ctx context.Context, projectID string, horizon time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := make([]*domain.CheckResult, 0, len(r.s.results))
	var deleted int64
	for _, res := range r.s.results {
		ep, ok := r.s.endpoints[res.EndpointID]
		if ok && ep.ProjectID == projectID && res.CreatedAt.Before(horizon) {
			deleted++
			continue
		}
		kept = append(kept, res)
	}
	r.s.results = kept
	return deleted, nil
}

type incidentRepo struct{ s *Store }

func (r *incidentRepo) OpenForEndpoint(ctx context.Context, endpointID string) (*domain.Incident, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inc := range r.s.incidents {
		if inc.EndpointID == endpointID && inc.State != domain.IncidentResolved {
			cp := *inc
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *incidentRepo) CreateOpen(ctx context.Context, endpointID string, kind domain.ResultKind, errorMessage string) (*domain.Incident, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inc := range r.s.incidents {
		if inc.EndpointID == endpointID && inc.State != domain.IncidentResolved {
			return nil, domain.ErrIncidentAlreadyOpen
		}
	}
	inc := &domain.Incident{
		ID:               uuid.NewString(),
		EndpointID:       endpointID,
		State:            domain.IncidentOpen,
		FailureKind:      kind,
		StartedAt:        time.Now(),
		FailedCheckCount: 1,
		LastErrorMessage: errorMessage,
	}
	r.s.incidents[inc.ID] = inc
	cp := *inc
	return &cp, nil
}

func (r *incidentRepo) IncrementFailures(ctx context.Context, incidentID string, errorMessage string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inc, ok := r.s.incidents[incidentID]
	if !ok {
		return domain.ErrIncidentNotFound
	}
	inc.FailedCheckCount++
	inc.LastErrorMessage = errorMessage
	return nil
}

func (r *incidentRepo) ResolveOpen(ctx context.Context, endpointID string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inc := range r.s.incidents {
		if inc.EndpointID == endpointID && inc.State != domain.IncidentResolved {
			inc.State = domain.IncidentResolved
			inc.ResolvedAt = &now
			return true, nil
		}
	}
	return false, nil
}

type alertRepo struct{ s *Store }

func (r *alertRepo) Create(ctx context.Context, a *domain.Alert) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now()
	r.s.alerts[a.ID] = a
	return nil
}

func (r *alertRepo) MarkDelivered(ctx context.Context, id string, delivered bool, deliveryError string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.alerts[id]
	if !ok {
		return domain.ErrAlertNotFound
	}
	a.Delivered = delivered
	a.DeliveryError = deliveryError
	return nil
}

func (r *alertRepo) RecentByKind(ctx context.Context, endpointID string, kind domain.AlertKind, channel domain.AlertChannel, since time.Time) (*domain.Alert, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var recent *domain.Alert
	for _, a := range r.s.alerts {
		if a.EndpointID != endpointID || a.Kind != kind || a.Channel != channel || a.CreatedAt.Before(since) {
			continue
		}
		if recent == nil || a.CreatedAt.After(recent.CreatedAt) {
			recent = a
		}
	}
	return recent, nil
}

func (r *alertRepo) Acknowledge(ctx context.Context, id string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.alerts[id]
	if !ok {
		return domain.ErrAlertNotFound
	}
	a.Acknowledged = true
	a.AcknowledgedAt = &now
	return nil
}

func (r *alertRepo) AcknowledgeAll(ctx context.Context, endpointID string, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, a := range r.s.alerts {
		if a.EndpointID == endpointID && !a.Acknowledged {
			a.Acknowledged = true
			a.AcknowledgedAt = &now
			count++
		}
	}
	return count, nil
}

func (r *alertRepo) DeleteOlderThan(ctx context.Context, horizon time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var deleted int64
	for id, a := range r.s.alerts {
		if a.CreatedAt.Before(horizon) {
			delete(r.s.alerts, id)
			deleted++
		}
	}
	return deleted, nil
}

type credentialRepo struct{ s *Store }

func (r *credentialRepo) Get(ctx context.Context, id string) (*domain.Credential, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.credentials[id]
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *credentialRepo) InUse(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ep := range r.s.endpoints {
		if ep.CredentialID != nil && *ep.CredentialID == id {
			return true, nil
		}
	}
	return false, nil
}
