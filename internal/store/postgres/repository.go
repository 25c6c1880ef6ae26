package postgres

import (
	"context"

	"github.com/bissquit/apimonitor/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is implemented by both *pgxpool.Pool and pgx.Tx so every
// repository method runs identically inside or outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements store.Store atop a shared *pgxpool.Pool.
type Store struct {
	db          *pgxpool.Pool
	endpoints   *EndpointRepository
	results     *CheckResultRepository
	incidents   *IncidentRepository
	alerts      *AlertRepository
	credentials *CredentialRepository
}

// New builds a Store backed by pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		db:          pool,
		endpoints:   &EndpointRepository{db: pool},
		results:     &CheckResultRepository{db: pool},
		incidents:   &IncidentRepository{db: pool},
		alerts:      &AlertRepository{db: pool},
		credentials: &CredentialRepository{db: pool},
	}
}

func (s *Store) Endpoints() store.EndpointRepository       { return s.endpoints }
func (s *Store) CheckResults() store.CheckResultRepository { return s.results }
func (s *Store) Incidents() store.IncidentRepository       { return s.incidents }
func (s *Store) Alerts() store.AlertRepository             { return s.alerts }
func (s *Store) Credentials() store.CredentialRepository   { return s.credentials }
