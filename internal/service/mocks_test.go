package service

import (
	"context"
	"sync"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/repository"
)

// mockRoomRepo serves a fixed set of rooms.
type mockRoomRepo struct {
	mu    sync.Mutex
	rooms map[string]*domain.Room
}

func newMockRoomRepo(rooms ...*domain.Room) *mockRoomRepo {
	m := &mockRoomRepo{rooms: make(map[string]*domain.Room)}
	for _, room := range rooms {
		m.rooms[room.ID] = room
	}
	return m
}

func (m *mockRoomRepo) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	clone := *room
	return &clone, nil
}

// mockPriceRepo keeps explicit day prices in memory.
type mockPriceRepo struct {
	mu     sync.Mutex
	prices map[string]domain.PriceRecord // roomID + "/" + date
}

func newMockPriceRepo() *mockPriceRepo {
	return &mockPriceRepo{prices: make(map[string]domain.PriceRecord)}
}

func priceKey(roomID string, date domain.PriceRecord) string {
	return roomID + "/" + date.Date.Format(domain.DateLayout)
}

func (m *mockPriceRepo) GetRange(ctx context.Context, roomID string, rng domain.DateRange) ([]domain.PriceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var records []domain.PriceRecord
	for _, date := range rng.Dates() {
		key := roomID + "/" + date.Format(domain.DateLayout)
		if record, ok := m.prices[key]; ok {
			records = append(records, record)
		}
	}
	return records, nil
}

func (m *mockPriceRepo) SetDay(ctx context.Context, record *domain.PriceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[priceKey(record.RoomID, *record)] = *record
	return nil
}

func (m *mockPriceRepo) SetRange(ctx context.Context, roomID string, rng domain.DateRange, records []domain.PriceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, date := range rng.Dates() {
		delete(m.prices, roomID+"/"+date.Format(domain.DateLayout))
	}
	for _, record := range records {
		m.prices[priceKey(roomID, record)] = record
	}
	return nil
}

// recordingPublisher counts published notifications per kind.
type recordingPublisher struct {
	mu     sync.Mutex
	counts map[domain.NotificationKind]int
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{counts: make(map[domain.NotificationKind]int)}
}

func (p *recordingPublisher) record(kind domain.NotificationKind) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts[kind]++
	return nil
}

func (p *recordingPublisher) count(kind domain.NotificationKind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[kind]
}

func (p *recordingPublisher) PublishBookingCreated(ctx context.Context, booking *domain.Booking) error {
	return p.record(domain.NotificationBookingCreated)
}

func (p *recordingPublisher) PublishBookingConfirmed(ctx context.Context, booking *domain.Booking) error {
	return p.record(domain.NotificationBookingConfirmed)
}

func (p *recordingPublisher) PublishBookingCancelled(ctx context.Context, booking *domain.Booking) error {
	return p.record(domain.NotificationBookingCancelled)
}

func (p *recordingPublisher) PublishBookingExpired(ctx context.Context, booking *domain.Booking) error {
	return p.record(domain.NotificationBookingExpired)
}

func (p *recordingPublisher) PublishBookingCheckedIn(ctx context.Context, booking *domain.Booking) error {
	return p.record(domain.NotificationBookingCheckedIn)
}

func (p *recordingPublisher) PublishBookingCheckedOut(ctx context.Context, booking *domain.Booking) error {
	return p.record(domain.NotificationBookingCheckedOut)
}

func (p *recordingPublisher) PublishRefundRecorded(ctx context.Context, booking *domain.Booking, refund *domain.RefundDetail) error {
	return p.record(domain.NotificationRefundRecorded)
}

func (p *recordingPublisher) Close() error { return nil }

var (
	_ repository.RoomRepository  = (*mockRoomRepo)(nil)
	_ repository.PriceRepository = (*mockPriceRepo)(nil)
	_ EventPublisher             = (*recordingPublisher)(nil)
)
