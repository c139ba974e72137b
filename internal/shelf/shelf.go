package shelf

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"bookfinder/internal/book"
)

// SlotPrefix names the persisted slot; each owner gets "myBookShelf:<owner>".
const SlotPrefix = "myBookShelf"

var (
	ErrNotFound     = errors.New("book not on shelf")
	ErrInvalidOwner = errors.New("invalid shelf owner")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//go:generate mockgen -source=shelf.go -destination=mock_repository.go -package=shelf

// Repository persists whole shelves, one slot at a time.
type Repository interface {
	Load(ctx context.Context, slot string) ([]book.Record, error)
	Save(ctx context.Context, slot string, records []book.Record) error
	Ping(ctx context.Context) error
}

func SlotFor(owner string) (string, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" || len(owner) > 64 || strings.ContainsAny(owner, ":/") {
		return "", ErrInvalidOwner
	}
	return SlotPrefix + ":" + owner, nil
}

func encode(records []book.Record) ([]byte, error) {
	if records == nil {
		records = []book.Record{}
	}
	return json.Marshal(records)
}

func decode(payload []byte) ([]book.Record, error) {
	var records []book.Record
	if len(payload) == 0 {
		return []book.Record{}, nil
	}
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("decode shelf: %w", err)
	}
	if records == nil {
		records = []book.Record{}
	}
	return records, nil
}

// Service keeps each shelf in memory after its first load and writes the
// whole slot back on every change.
type Service struct {
	repo Repository

	mu    sync.Mutex
	slots map[string][]book.Record
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, slots: make(map[string][]book.Record)}
}

// load returns the cached shelf of slot. Callers hold s.mu.
func (s *Service) load(ctx context.Context, slot string) ([]book.Record, error) {
	if records, ok := s.slots[slot]; ok {
		return records, nil
	}
	records, err := s.repo.Load(ctx, slot)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []book.Record{}
	}
	s.slots[slot] = records
	return records, nil
}

func (s *Service) save(ctx context.Context, slot string, records []book.Record) error {
	if err := s.repo.Save(ctx, slot, records); err != nil {
		return err
	}
	s.slots[slot] = records
	return nil
}

func (s *Service) List(ctx context.Context, owner string) ([]book.Record, error) {
	slot, err := SlotFor(owner)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(ctx, slot)
	if err != nil {
		return nil, err
	}
	return append([]book.Record{}, records...), nil
}

func (s *Service) Get(ctx context.Context, owner, id string) (book.Record, error) {
	records, err := s.List(ctx, owner)
	if err != nil {
		return book.Record{}, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return book.Record{}, ErrNotFound
}

func (s *Service) Contains(ctx context.Context, owner, id string) (bool, error) {
	_, err := s.Get(ctx, owner, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Add appends r unless a record with the same id is already shelved. It
// reports whether the shelf changed.
func (s *Service) Add(ctx context.Context, owner string, r book.Record) (bool, error) {
	slot, err := SlotFor(owner)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(ctx, slot)
	if err != nil {
		return false, err
	}
	for _, existing := range records {
		if existing.ID == r.ID {
			return false, nil
		}
	}

	// Shelved records never carry reader augmentation.
	r = r.WithLists()
	r.ArchiveID, r.EmbedURL = "", ""
	next := make([]book.Record, 0, len(records)+1)
	next = append(append(next, records...), r)
	if err := s.save(ctx, slot, next); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) Remove(ctx context.Context, owner, id string) error {
	slot, err := SlotFor(owner)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(ctx, slot)
	if err != nil {
		return err
	}

	next := make([]book.Record, 0, len(records))
	for _, r := range records {
		if r.ID != id {
			next = append(next, r)
		}
	}
	if len(next) == len(records) {
		return ErrNotFound
	}
	return s.save(ctx, slot, next)
}

// Ready reports whether the backing store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
