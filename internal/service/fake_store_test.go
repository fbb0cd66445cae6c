package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/queue"
	"github.com/iliyamo/court-reservation/internal/repository"
)

// fakeStore is an in-memory Store with the same guarantees the MySQL schema
// gives: a unique (date, court, slot) key on reservations, a unique
// original id on cancellations, conditional credit debits and all-or-nothing
// transactions.  A single mutex stands in for row locks.
type fakeStore struct {
	mu            sync.Mutex
	nextID        uint64
	reservations  map[uint64]model.Reservation
	cancellations map[uint64]model.Cancellation // by original reservation id
	members       map[uint64]model.Member
	legacy        map[string][]model.SlotRef

	// fault injection
	beforeInsert func(s *fakeStore) // runs under lock, before the unique check
	insertErr    error
	restoreErr   error
	activeErr    error
	cancelTxErr  error // returned by InsertCancellation
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:        100,
		reservations:  map[uint64]model.Reservation{},
		cancellations: map[uint64]model.Cancellation{},
		members:       map[uint64]model.Member{},
		legacy:        map[string][]model.SlotRef{},
	}
}

func (s *fakeStore) addMember(id uint64, name string, credits uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[id] = model.Member{ID: id, Name: name, Membership: model.Plan3M, Credits: credits, Paid: true}
}

func (s *fakeStore) credits(id uint64) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[id].Credits
}

func (s *fakeStore) counts() (active, cancelled int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reservations), len(s.cancellations)
}

func (s *fakeStore) reservation(id uint64) (model.Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	return r, ok
}

// occupy inserts a reservation directly, bypassing the service.  s.mu must
// be held.
func (s *fakeStore) occupy(date string, ref model.SlotRef) {
	s.nextID++
	s.reservations[s.nextID] = model.Reservation{ID: s.nextID, Name: "other", Date: date, Court: ref.Court, Slot: ref.Slot, AmountDue: 500}
}

func (s *fakeStore) slotTaken(date string, ref model.SlotRef) bool {
	for _, r := range s.reservations {
		if r.Date == date && r.Court == ref.Court && r.Slot == ref.Slot {
			return true
		}
	}
	return false
}

func (s *fakeStore) FindConflicts(_ context.Context, date string, refs []model.SlotRef) ([]model.SlotRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.SlotRef
	for _, ref := range refs {
		if s.slotTaken(date, ref) {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (s *fakeStore) InsertReservations(_ context.Context, rs []model.Reservation) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.beforeInsert != nil {
		s.beforeInsert(s)
	}
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	for _, r := range rs {
		if s.slotTaken(r.Date, r.Ref()) {
			return nil, fmt.Errorf("insert reservations: %w", repository.ErrDuplicate)
		}
	}
	out := make([]model.Reservation, len(rs))
	for i, r := range rs {
		s.nextID++
		r.ID = s.nextID
		r.CreatedAt = time.Date(2025, 1, 9, 0, 0, 0, int(s.nextID), time.UTC)
		r.UpdatedAt = r.CreatedAt
		s.reservations[r.ID] = r
		out[i] = r
	}
	return out, nil
}

func (s *fakeStore) ActiveSlots(_ context.Context, date string) ([]model.SlotRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeErr != nil {
		return nil, s.activeErr
	}
	var out []model.SlotRef
	for _, r := range s.reservations {
		if r.Date == date {
			out = append(out, r.Ref())
		}
	}
	return out, nil
}

func (s *fakeStore) LegacySlots(_ context.Context, date string) ([]model.SlotRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.legacy[date], nil
}

func matches(f repository.ListFilter, name, date string, isMember bool) bool {
	if f.Query != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(f.Query)) {
		return false
	}
	if f.Date != "" && f.Date != date {
		return false
	}
	if f.IsMember != nil && *f.IsMember != isMember {
		return false
	}
	return true
}

func (s *fakeStore) ListReservations(_ context.Context, f repository.ListFilter) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.reservations {
		if matches(f, r.Name, r.Date, r.IsMember) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) ListCancellations(_ context.Context, f repository.ListFilter) ([]model.Cancellation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Cancellation
	for _, c := range s.cancellations {
		if matches(f, c.Name, c.Date, c.IsMember) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) CancellationByReservation(_ context.Context, id uint64) (model.Cancellation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancellationLocked(id)
}

func (s *fakeStore) cancellationLocked(id uint64) (model.Cancellation, error) {
	c, ok := s.cancellations[id]
	if !ok {
		return model.Cancellation{}, repository.ErrNotFound
	}
	return c, nil
}

func (s *fakeStore) DebitCredits(_ context.Context, memberID uint64, n uint32) (model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberID]
	if !ok {
		return model.Member{}, repository.ErrNotFound
	}
	if m.Credits < n {
		return model.Member{}, repository.ErrInsufficientCredits
	}
	m.Credits -= n
	s.members[memberID] = m
	return m, nil
}

func (s *fakeStore) RestoreCredits(_ context.Context, memberID uint64, n uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restoreErr != nil {
		return s.restoreErr
	}
	return s.incrementLocked(memberID, n)
}

func (s *fakeStore) incrementLocked(memberID uint64, n uint32) error {
	m, ok := s.members[memberID]
	if !ok {
		return repository.ErrNotFound
	}
	m.Credits += n
	s.members[memberID] = m
	return nil
}

func (s *fakeStore) Member(_ context.Context, id uint64) (model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return model.Member{}, repository.ErrNotFound
	}
	return m, nil
}

// WithTx holds the store lock for the whole callback and restores the
// previous state when fn fails.
func (s *fakeStore) WithTx(_ context.Context, fn func(repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := cloneMap(s.reservations)
	canc := cloneMap(s.cancellations)
	mem := cloneMap(s.members)
	next := s.nextID

	if err := fn(fakeTx{s}); err != nil {
		s.reservations, s.cancellations, s.members, s.nextID = res, canc, mem, next
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// fakeTx runs with fakeStore.mu already held.
type fakeTx struct{ s *fakeStore }

func (t fakeTx) CancellationByReservation(_ context.Context, id uint64) (model.Cancellation, error) {
	return t.s.cancellationLocked(id)
}

func (t fakeTx) ReservationForUpdate(_ context.Context, id uint64) (model.Reservation, error) {
	r, ok := t.s.reservations[id]
	if !ok {
		return model.Reservation{}, repository.ErrNotFound
	}
	return r, nil
}

func (t fakeTx) InsertCancellation(_ context.Context, c *model.Cancellation) error {
	if t.s.cancelTxErr != nil {
		return t.s.cancelTxErr
	}
	if _, dup := t.s.cancellations[c.OriginalReservationID]; dup {
		return fmt.Errorf("insert cancellation: %w", repository.ErrDuplicate)
	}
	t.s.nextID++
	c.ID = t.s.nextID
	t.s.cancellations[c.OriginalReservationID] = *c
	return nil
}

func (t fakeTx) DeleteReservation(_ context.Context, id uint64) error {
	if _, ok := t.s.reservations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(t.s.reservations, id)
	return nil
}

func (t fakeTx) UpdatePayment(_ context.Context, id uint64, paid, refunded bool, amountDue uint32) error {
	r, ok := t.s.reservations[id]
	if !ok {
		return repository.ErrNotUpdated
	}
	r.Paid, r.Refunded, r.AmountDue = paid, refunded, amountDue
	t.s.reservations[id] = r
	return nil
}

func (t fakeTx) IncrementCredits(_ context.Context, memberID uint64, n uint32) error {
	return t.s.incrementLocked(memberID, n)
}

func (t fakeTx) MemberByID(_ context.Context, id uint64) (model.Member, error) {
	m, ok := t.s.members[id]
	if !ok {
		return model.Member{}, repository.ErrNotFound
	}
	return m, nil
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

var errStorageDown = errors.New("connection refused")
