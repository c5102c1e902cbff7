// Copyright 2025 Dominik Schlosser
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package trust holds the set of trusted CSCA certificates and the CRL
// auto-refresh scheduler that keeps their revocation lists current. The
// verifier (internal/verify) only ever reads from a Store; every
// mutation happens on the refresh path.
package trust

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/australian-passport-office/vds-nc-verify-go/internal/crl"
	"github.com/australian-passport-office/vds-nc-verify-go/internal/x509view"
)

const (
	// DefaultRefreshPeriod is the period between automatic CRL refresh ticks.
	DefaultRefreshPeriod = 86400 * time.Second
	// DefaultOverdueAfter is the threshold for declaring a CRL overdue.
	DefaultOverdueAfter = 864000 * time.Second
)

// CSCACertificate pairs a CSCA's DER bytes and expected SHA-256 with its
// parsed view and CRL. Callers must call VerifyIntegrity (or rely on
// the verifier doing so) before trusting Parsed for anything.
type CSCACertificate struct {
	DER    []byte
	SHA256 string
	Parsed *x509view.Certificate
	CRL    *crl.CRL
}

// NewCSCACertificate parses der and pairs it with the expected hash and CRL.
func NewCSCACertificate(der []byte, sha256Hex string, c *crl.CRL) (*CSCACertificate, error) {
	parsed, err := x509view.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("trust: parsing CSCA certificate: %w", err)
	}
	return &CSCACertificate{DER: der, SHA256: sha256Hex, Parsed: parsed, CRL: c}, nil
}

// VerifyIntegrity recomputes SHA-256(DER) and compares it to SHA256.
func (c *CSCACertificate) VerifyIntegrity() bool {
	sum := sha256.Sum256(c.DER)
	return hex.EncodeToString(sum[:]) == c.SHA256
}

// RefreshObserver is notified once per completed refresh batch.
type RefreshObserver interface {
	// OnRefreshComplete reports per-URL success for every CRL that has
	// a refresh URL. It is invoked exactly once per batch.
	OnRefreshComplete(results map[string]error)
}

// RefreshObserverFunc adapts a plain function to a RefreshObserver.
type RefreshObserverFunc func(results map[string]error)

func (f RefreshObserverFunc) OnRefreshComplete(results map[string]error) { f(results) }

// Store is the ordered set of trusted CSCA certificates plus the
// scheduler that keeps their CRLs fresh.
type Store struct {
	mu           sync.RWMutex
	members      []*CSCACertificate
	persist      crl.Store
	overdueAfter time.Duration

	delegate RefreshObserver

	cancel context.CancelFunc
	wg     sync.WaitGroup

	log *logrus.Entry
}

// NewStore creates an empty Store. persist may be nil, in which case
// refreshes are not durable across restarts.
func NewStore(persist crl.Store) *Store {
	return &Store{
		persist:      persist,
		overdueAfter: DefaultOverdueAfter,
		log:          logrus.WithField("component", "trust.Store"),
	}
}

// Add appends a CSCA certificate to the store, loading any persisted
// CRL state for it.
func (s *Store) Add(csca *CSCACertificate) error {
	if err := csca.CRL.LoadFromStore(s.persist); err != nil {
		return err
	}
	s.mu.Lock()
	s.members = append(s.members, csca)
	s.mu.Unlock()
	return nil
}

// SetOverdueAfter overrides the overdue threshold (default DefaultOverdueAfter).
func (s *Store) SetOverdueAfter(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overdueAfter = d
}

// SetDelegate registers the batch-completion observer.
func (s *Store) SetDelegate(observer RefreshObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delegate = observer
}

// CandidatesForCountry returns members whose CSCA subject country
// equals country, in store order, per verifier step 1.
func (s *Store) CandidatesForCountry(country string) []*CSCACertificate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*CSCACertificate
	for _, m := range s.members {
		if subjectCountry(m.Parsed) == country {
			out = append(out, m)
		}
	}
	return out
}

// Members returns every CSCA certificate currently in the store, in
// store order. Used by host tooling (e.g. `vds-nc trust list/status`)
// that needs to enumerate the whole trust anchor set rather than
// filter by country.
func (s *Store) Members() []*CSCACertificate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*CSCACertificate, len(s.members))
	copy(out, s.members)
	return out
}

func subjectCountry(cert *x509view.Certificate) string {
	for _, a := range cert.Subject.Attributes {
		if a.OID == x509view.OIDCountryName {
			return a.Value
		}
	}
	return ""
}

// IsOverdue reports whether any member's CRL is overdue.
func (s *Store) IsOverdue() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	for _, m := range s.members {
		if m.CRL.IsOverdue(now, s.overdueAfter) {
			return true
		}
	}
	return false
}

// RefreshNow issues a single refresh batch across every member with a
// CRL URL, concurrently, and invokes callback with the aggregate
// per-URL results once every download has returned.
func (s *Store) RefreshNow(ctx context.Context, callback func(results map[string]error)) {
	s.mu.RLock()
	members := append([]*CSCACertificate(nil), s.members...)
	s.mu.RUnlock()

	batchID := uuid.NewString()
	log := s.log.WithField("batch_id", batchID)

	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make(map[string]error)

	for _, m := range members {
		url := m.CRL.URL()
		if url == "" {
			continue
		}
		wg.Add(1)
		go func(c *crl.CRL, url string) {
			defer wg.Done()
			log.WithField("url", url).Debug("refreshing CRL")
			err := c.Refresh(ctx, s.persist)
			mu.Lock()
			results[url] = err
			mu.Unlock()
			if err != nil {
				log.WithError(err).WithField("url", url).Warn("CRL refresh failed")
			}
		}(m.CRL, url)
	}
	wg.Wait()

	log.WithField("count", len(results)).Info("CRL refresh batch complete")

	s.mu.RLock()
	delegate := s.delegate
	s.mu.RUnlock()
	if delegate != nil {
		delegate.OnRefreshComplete(results)
	}
	if callback != nil {
		callback(results)
	}
}

// StartAutoRefresh arms a periodic timer that issues a refresh batch
// every period until StopAutoRefresh is called.
func (s *Store) StartAutoRefresh(period time.Duration) {
	s.StopAutoRefresh()

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RefreshNow(ctx, nil)
			}
		}
	}()
}

// StopAutoRefresh cancels the periodic timer, if armed, and abandons
// any in-flight downloads' results.
func (s *Store) StopAutoRefresh() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// NotifyReachable fires an immediate refresh, used when a host's
// network-reachability observer transitions from unreachable to
// reachable after a previous refresh failed for lack of connectivity.
func (s *Store) NotifyReachable(ctx context.Context) {
	s.log.Info("network reachable again, triggering immediate refresh")
	go s.RefreshNow(ctx, nil)
}
