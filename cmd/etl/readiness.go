package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// readiness reports ready once both stores are connected and still answer pings.
type readiness struct {
	mu     sync.Mutex
	stores map[string]*sql.DB
}

func newReadiness() *readiness {
	return &readiness{stores: map[string]*sql.DB{"source": nil, "sink": nil}}
}

func (r *readiness) set(store string, db *sql.DB) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[store] = db
}

func (r *readiness) CheckReadiness(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, store := range []string{"source", "sink"} {
		db := r.stores[store]
		if db == nil {
			errs = append(errs, fmt.Errorf("%s not connected", store))
			continue
		}
		if err := db.PingContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", store, err))
		}
	}
	return errors.Join(errs...)
}
