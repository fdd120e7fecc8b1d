package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/code-animator/backend/internal/models"
)

// LocalStore implements Store with one JSON document per plan on the local filesystem.
type LocalStore struct {
	mu      sync.RWMutex
	planDir string
	plans   map[string]*models.PlanInfo
}

// NewLocalStore creates a new LocalStore and indexes plans already present in planDir.
func NewLocalStore(planDir string) (*LocalStore, error) {
	if err := os.MkdirAll(planDir, 0755); err != nil {
		return nil, fmt.Errorf("creating plan directory: %w", err)
	}

	s := &LocalStore{
		planDir: planDir,
		plans:   make(map[string]*models.PlanInfo),
	}
	s.scanExisting()
	return s, nil
}

func (s *LocalStore) scanExisting() {
	entries, err := os.ReadDir(s.planDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		stored, err := s.read(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			fmt.Printf("[LocalStore] Skipping %s: %v\n", e.Name(), err)
			continue
		}
		info := stored.PlanInfo
		s.plans[info.ID] = &info
	}
	if len(s.plans) > 0 {
		fmt.Printf("[LocalStore] Indexed %d existing plans\n", len(s.plans))
	}
}

func (s *LocalStore) path(id string) string {
	return filepath.Join(s.planDir, id+".json")
}

func (s *LocalStore) read(id string) (*models.StoredPlan, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, err
	}
	var stored models.StoredPlan
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decoding plan: %w", err)
	}
	return &stored, nil
}

func (s *LocalStore) write(stored *models.StoredPlan) error {
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	tmp := s.path(stored.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing plan: %w", err)
	}
	if err := os.Rename(tmp, s.path(stored.ID)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing plan: %w", err)
	}
	return nil
}

// Save writes a plan document to disk.
func (s *LocalStore) Save(meta models.PlanInfo, plan *models.AnimationPlan) (*models.PlanInfo, error) {
	info := prepareInfo(meta, plan, func() string { return uuid.New().String() })

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(&models.StoredPlan{PlanInfo: info, Plan: plan}); err != nil {
		return nil, err
	}
	s.plans[info.ID] = &info
	out := info
	return &out, nil
}

// Get loads a plan document by ID.
func (s *LocalStore) Get(id string) (*models.StoredPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.plans[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.read(id)
}

// List returns the most recent plans.
func (s *LocalStore) List(limit int) ([]*models.PlanInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*models.PlanInfo, 0, len(s.plans))
	for _, info := range s.plans {
		c := *info
		list = append(list, &c)
	}

	// Sort by CreatedAt desc
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// Delete removes a plan from storage.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.plans[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting plan: %w", err)
	}
	delete(s.plans, id)
	return nil
}

// Rename updates the display title of a plan.
func (s *LocalStore) Rename(id string, newTitle string) (*models.PlanInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.plans[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	stored, err := s.read(id)
	if err != nil {
		return nil, err
	}
	stored.Title = newTitle
	if err := s.write(stored); err != nil {
		return nil, err
	}
	info := stored.PlanInfo
	s.plans[id] = &info
	out := info
	return &out, nil
}

var _ Store = (*LocalStore)(nil)
