package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"pos_invoicing_backend/internal/invoicing/domain"
	"pos_invoicing_backend/internal/invoicing/ports"
	"pos_invoicing_backend/platform/apperr"

	"github.com/shopspring/decimal"
)

const testAccessKey = "1604202601179214673900110010010000000011234567813"

var errNetwork = errors.New("dial tcp 10.0.0.8:443: connection refused")

type fakeSaleStore struct {
	mu        sync.Mutex
	records   map[string]domain.Record
	updates   []domain.Fields
	updateErr error
	// failOnCall limits updateErr to the nth Update call when non-zero.
	failOnCall int
	// failFromCall applies updateErr to every call from the nth on when non-zero.
	failFromCall int
	calls      int
	findErr    error
}

func newFakeSaleStore(records ...domain.Record) *fakeSaleStore {
	s := &fakeSaleStore{records: make(map[string]domain.Record)}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s
}

func (s *fakeSaleStore) FindByID(_ context.Context, saleID string) (*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	rec, ok := s.records[saleID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *fakeSaleStore) Update(_ context.Context, saleID string, fields domain.Fields) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.updateErr != nil && s.failsOn(s.calls) {
		return domain.Record{}, s.updateErr
	}
	rec, ok := s.records[saleID]
	if !ok {
		return domain.Record{}, apperr.NotFound("sale not found")
	}
	rec = fields.ApplyTo(rec)
	s.records[saleID] = rec
	s.updates = append(s.updates, fields)
	return rec, nil
}

func (s *fakeSaleStore) failsOn(call int) bool {
	switch {
	case s.failFromCall > 0:
		return call >= s.failFromCall
	case s.failOnCall > 0:
		return call == s.failOnCall
	default:
		return true
	}
}

func (s *fakeSaleStore) ListPending(_ context.Context, createdAfter time.Time, limit int) ([]domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Record
	for _, rec := range s.records {
		if !rec.HasRemoteVoucher() || domain.IsCompleted(rec) || !rec.CreatedAt.After(createdAfter) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeSaleStore) get(saleID string) domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[saleID]
}

func (s *fakeSaleStore) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

type fakeRemote struct {
	mu         sync.Mutex
	created    ports.CreatedVoucher
	createErr  error
	status     domain.RemoteStatus
	statusErr  error
	createHits int
	statusHits int
	lastCreate ports.VoucherPayload
	// beforeStatus runs on every status call, outside the lock.
	beforeStatus func()
}

func (r *fakeRemote) CreateVoucher(_ context.Context, payload ports.VoucherPayload) (ports.CreatedVoucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createHits++
	r.lastCreate = payload
	return r.created, r.createErr
}

func (r *fakeRemote) GetVoucherStatus(context.Context, string) (domain.RemoteStatus, error) {
	if r.beforeStatus != nil {
		r.beforeStatus()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusHits++
	return r.status, r.statusErr
}

func (r *fakeRemote) statusCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusHits
}

type fakeScheduleStore struct {
	mu          sync.Mutex
	schedules   map[string]ports.Schedule
	removeCalls []string
	// lockedRemovals makes the next n Remove calls fail with ErrScheduleLocked.
	lockedRemovals int
	removeErr      error
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{schedules: make(map[string]ports.Schedule)}
}

func (s *fakeScheduleStore) Upsert(_ context.Context, schedule ports.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[schedule.ID] = schedule
	return nil
}

func (s *fakeScheduleStore) Remove(_ context.Context, scheduleID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeCalls = append(s.removeCalls, scheduleID)
	if s.lockedRemovals > 0 {
		s.lockedRemovals--
		return false, ports.ErrScheduleLocked
	}
	if s.removeErr != nil {
		return false, s.removeErr
	}
	if _, ok := s.schedules[scheduleID]; !ok {
		return false, nil
	}
	delete(s.schedules, scheduleID)
	return true, nil
}

func (s *fakeScheduleStore) Exists(_ context.Context, scheduleID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.schedules[scheduleID]
	return ok, nil
}

func (s *fakeScheduleStore) has(saleID string) bool {
	ok, _ := s.Exists(context.Background(), ports.MonitorScheduleID(saleID))
	return ok
}

func (s *fakeScheduleStore) removals() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.removeCalls)
}

type fakeEvents struct {
	mu         sync.Mutex
	authorized []string
	failed     []string
	expired    []string
}

func (e *fakeEvents) VoucherAuthorized(_ context.Context, saleID, _, _ string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.authorized = append(e.authorized, saleID)
}

func (e *fakeEvents) VoucherCreationFailed(_ context.Context, saleID string, _ error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failed = append(e.failed, saleID)
}

func (e *fakeEvents) VoucherMonitoringExpired(_ context.Context, saleID, _, _ string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expired = append(e.expired, saleID)
}

type fakeArchive struct {
	mu     sync.Mutex
	stored map[string][]byte
}

func (a *fakeArchive) StoreReceipt(_ context.Context, saleID, _ string, body []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stored == nil {
		a.stored = make(map[string][]byte)
	}
	a.stored[saleID] = body
	return nil
}

type harness struct {
	store     *fakeSaleStore
	remote    *fakeRemote
	schedules *fakeScheduleStore
	events    *fakeEvents
	archive   *fakeArchive
	svc       *Service
	now       time.Time
}

func newHarness(records ...domain.Record) *harness {
	h := &harness{
		store:     newFakeSaleStore(records...),
		remote:    &fakeRemote{},
		schedules: newFakeScheduleStore(),
		events:    &fakeEvents{},
		archive:   &fakeArchive{},
		now:       time.Date(2026, 4, 16, 12, 0, 0, 0, time.UTC),
	}
	h.svc = New(Deps{
		Store:     h.store,
		Remote:    h.remote,
		Schedules: h.schedules,
		Events:    h.events,
		Archive:   h.archive,
	}, Options{
		MonitorInterval: time.Minute,
		LookupDelay:     time.Millisecond,
		Now:             func() time.Time { return h.now },
	})
	return h
}

func (h *harness) pendingSale(id, remoteID string, age time.Duration) domain.Record {
	rec := domain.Record{ID: id, State: domain.StatePending, CreatedAt: h.now.Add(-age)}
	if remoteID != "" {
		rec.RemoteVoucherID = &remoteID
	}
	return rec
}

func (h *harness) seed(records ...domain.Record) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	for _, r := range records {
		h.store.records[r.ID] = r
	}
}

func (h *harness) schedule(saleID string) {
	_ = h.svc.Lifecycle.ScheduleMonitoring(context.Background(), saleID)
}

func validPayload(saleID string) ports.VoucherPayload {
	return ports.VoucherPayload{
		SaleID:          saleID,
		EmissionPointID: "001-002",
		Customer: ports.CustomerData{
			IdentificationType: "05",
			Identification:     "1712345678",
			Name:               "María Pérez",
			Email:              "maria@example.com",
			Phone:              "099 123 4567",
		},
		LineItems: []ports.LineItem{{
			Code:        "CAF-01",
			Description: "Café americano",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.RequireFromString("1.75"),
			Discount:    decimal.Zero,
			TaxCode:     "2",
		}},
		PaymentMethodCode: "01",
	}
}
