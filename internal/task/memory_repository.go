package task

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests and local
// development.
type MemoryRepository struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*Task
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tasks: make(map[uuid.UUID]*Task),
		now:   time.Now,
	}
}

func (m *MemoryRepository) CreateTask(_ context.Context, t *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := m.now()
	t.CreatedAt = now
	t.UpdatedAt = now

	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *MemoryRepository) GetTask(_ context.Context, practitionerID, id uuid.UUID) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok || t.PractitionerID != practitionerID {
		return nil, ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryRepository) ListTasks(_ context.Context, practitionerID uuid.UUID, from, to time.Time) ([]Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Task
	for _, t := range m.tasks {
		if t.PractitionerID != practitionerID {
			continue
		}
		if t.Date.Before(from) || !t.Date.Before(to) {
			continue
		}
		result = append(result, *t)
	}
	sortTasks(result)
	return result, nil
}

func (m *MemoryRepository) ListTasksOn(_ context.Context, practitionerID uuid.UUID, date time.Time) ([]Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := DateOf(date)
	var result []Task
	for _, t := range m.tasks {
		if t.PractitionerID == practitionerID && t.Date.Equal(day) {
			result = append(result, *t)
		}
	}
	sortTasks(result)
	return result, nil
}

func (m *MemoryRepository) UpdateTask(_ context.Context, t *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.tasks[t.ID]
	if !ok || existing.PractitionerID != t.PractitionerID {
		return ErrTaskNotFound
	}

	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = m.now()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *MemoryRepository) DeleteTask(_ context.Context, practitionerID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok || t.PractitionerID != practitionerID {
		return ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

func sortTasks(tasks []Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].Date.Equal(tasks[j].Date) {
			return tasks[i].Date.Before(tasks[j].Date)
		}
		si, sj := tasks[i].StartAt, tasks[j].StartAt
		switch {
		case si == nil:
			return false
		case sj == nil:
			return true
		default:
			return si.Before(*sj)
		}
	})
}
