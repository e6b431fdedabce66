package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/dshills/modelcritic/internal/signals"
)

// ErrNotFound is returned for an unknown report ID.
var ErrNotFound = errors.New("rapport not found")

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Type        TypeRapport
	Periode     Periode
	Since       time.Time
	Automatique *bool
}

func (f Filter) match(r *Rapport) bool {
	switch {
	case f.Type != "" && r.TypeRapport != f.Type:
		return false
	case f.Periode != "" && r.Periode != f.Periode:
		return false
	case !f.Since.IsZero() && r.CreatedAt.Before(f.Since):
		return false
	case f.Automatique != nil && r.EstAutomatique != *f.Automatique:
		return false
	}
	return true
}

// Store keeps reports in memory. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	rows   map[string]*Rapport
	bus    *signals.Registry
	logger hclog.Logger
	now    func() time.Time
}

// NewStore returns an empty store sending its signals on bus (may be nil).
func NewStore(bus *signals.Registry, logger hclog.Logger) *Store {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Store{
		rows:   map[string]*Rapport{},
		bus:    bus,
		logger: logger.Named("report"),
		now:    time.Now,
	}
}

// Save validates r, stamps its lifecycle fields and commits it. On a
// validation error nothing is stored and r is left unchanged. The committed
// values (ID, timestamps, authors) are copied back into r.
func (s *Store) Save(ctx context.Context, r *Rapport, user string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.send(ctx, signals.PreSave, r)
	if err := r.Clean(); err != nil {
		s.logger.Warn("rapport rejected", "nom", r.Nom, "error", err)
		return err
	}

	s.mu.Lock()
	row := r.clone()
	now := s.now().UTC()
	prev, exists := s.rows[row.ID]
	created := row.ID == "" || !exists
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if created {
		row.CreatedAt = now
		row.CreatedBy = &user
	} else {
		row.CreatedAt = prev.CreatedAt
		row.CreatedBy = clonePtr(prev.CreatedBy)
	}
	row.UpdatedAt = now
	row.UpdatedBy = clonePtr(&user)
	row.previousType = ""
	s.rows[row.ID] = row
	*r = *row.clone()
	sent := row.clone()
	if !created && prev.TypeRapport != row.TypeRapport {
		sent.previousType = prev.TypeRapport
	}
	s.mu.Unlock()

	if created {
		s.logger.Info("rapport created", "id", row.ID, "type", row.TypeRapport, "user", user)
	} else {
		s.logger.Info("rapport updated", "id", row.ID, "type", row.TypeRapport, "user", user)
	}
	s.send(ctx, signals.PostSave, sent)
	return nil
}

// Delete removes the report with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	row, ok := s.rows[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	s.send(ctx, signals.PreDelete, row.clone())

	s.mu.Lock()
	delete(s.rows, id)
	s.mu.Unlock()

	s.logger.Info("rapport deleted", "id", id, "type", row.TypeRapport)
	s.send(ctx, signals.PostDelete, row.clone())
	return nil
}

// Get returns a copy of the report with id.
func (s *Store) Get(id string) (*Rapport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return row.clone(), nil
}

// List returns copies of the matching reports, newest first.
func (s *Store) List(f Filter) []*Rapport {
	s.mu.RLock()
	out := make([]*Rapport, 0, len(s.rows))
	for _, row := range s.rows {
		if f.match(row) {
			out = append(out, row.clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of stored reports.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *Store) send(ctx context.Context, sig signals.Signal, r *Rapport) {
	if s.bus != nil {
		s.bus.Send(ctx, Namespace, sig, r)
	}
}
