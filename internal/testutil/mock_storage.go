// mock_storage.go - Mock storage implementation for testing
package testutil

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/code-animator/backend/internal/models"
	"github.com/code-animator/backend/internal/storage"
)

// MockStorage implements storage.Store and storage.GenerationLog in memory
type MockStorage struct {
	plans       map[string]*models.StoredPlan
	generations []models.GenerationRecord
	mu          sync.RWMutex

	// SaveErr, when set, is returned by Save
	SaveErr error
}

// NewMockStorage creates an empty mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		plans: make(map[string]*models.StoredPlan),
	}
}

func (m *MockStorage) Save(meta models.PlanInfo, plan *models.AnimationPlan) (*models.PlanInfo, error) {
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	info := models.NewPlanInfo(meta.ID, meta.Title, meta.Source, plan)
	if info.ID == "" {
		info.ID = generateTestID()
	}
	if info.Source == "" {
		info.Source = models.PlanSourceUpload
	}
	info.Description = meta.Description
	info.Prompt = meta.Prompt

	m.plans[info.ID] = &models.StoredPlan{PlanInfo: info, Plan: plan}
	out := info
	return &out, nil
}

func (m *MockStorage) Get(id string) (*models.StoredPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.plans[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	out := *stored
	return &out, nil
}

func (m *MockStorage) List(limit int) ([]*models.PlanInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*models.PlanInfo, 0, len(m.plans))
	for _, stored := range m.plans {
		info := stored.PlanInfo
		list = append(list, &info)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *MockStorage) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.plans[id]; !exists {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	delete(m.plans, id)
	return nil
}

func (m *MockStorage) Rename(id string, newTitle string) (*models.PlanInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.plans[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	stored.Title = newTitle
	out := stored.PlanInfo
	return &out, nil
}

func (m *MockStorage) LogGeneration(rec models.GenerationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ID == "" {
		rec.ID = generateTestID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m.generations = append(m.generations, rec)
	return nil
}

func (m *MockStorage) ListGenerations(limit int) ([]models.GenerationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.GenerationRecord, 0, len(m.generations))
	for i := len(m.generations) - 1; i >= 0; i-- {
		out = append(out, m.generations[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Ensure MockStorage implements the storage interfaces
var (
	_ storage.Store         = (*MockStorage)(nil)
	_ storage.GenerationLog = (*MockStorage)(nil)
)

// Test Helper Methods

// AddPlan adds a plan directly to the mock under id
func (m *MockStorage) AddPlan(id string, title string, plan *models.AnimationPlan) *models.PlanInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	info := models.NewPlanInfo(id, title, models.PlanSourceUpload, plan)
	m.plans[id] = &models.StoredPlan{PlanInfo: info, Plan: plan}
	return &info
}

// GetPlanCount returns the number of stored plans
func (m *MockStorage) GetPlanCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.plans)
}

// Generations returns every logged generation in insertion order
func (m *MockStorage) Generations() []models.GenerationRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.GenerationRecord(nil), m.generations...)
}

// Clear removes all plans and generation records
func (m *MockStorage) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans = make(map[string]*models.StoredPlan)
	m.generations = nil
}

// ErrMockFailure is a canned error for failure-path tests
var ErrMockFailure = errors.New("mock failure")

// generateTestID generates a simple test ID
var testIDCounter int
var testIDMutex sync.Mutex

func generateTestID() string {
	testIDMutex.Lock()
	defer testIDMutex.Unlock()
	testIDCounter++
	return fmt.Sprintf("test-id-%d", testIDCounter)
}
