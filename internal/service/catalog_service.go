package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"medcenter/internal/catalog"
	"medcenter/internal/database"
	"medcenter/internal/domain"
	"medcenter/internal/models"

	"github.com/rs/zerolog"
)

// CatalogService keeps an in-memory snapshot of the catalog tables and
// answers the listing pages from it.
type CatalogService struct {
	repo      domain.Repository
	timeSlots []string
	logger    *zerolog.Logger

	mu       sync.RWMutex
	snapshot *models.Catalog
	doctors  map[int64]models.Doctor
	tests    map[int64]models.DiagnosticTest
	packages map[int64]models.DiagnosticPackage
	loadedAt time.Time
}

func NewCatalogService(repo domain.Repository, timeSlots []string, logger *zerolog.Logger) *CatalogService {
	if len(timeSlots) == 0 {
		timeSlots = models.DefaultTimeSlots
	}
	return &CatalogService{
		repo:      repo,
		timeSlots: timeSlots,
		logger:    logger,
	}
}

// Refresh reloads the snapshot from storage.
func (s *CatalogService) Refresh(ctx context.Context) error {
	c, err := s.repo.LoadCatalog(ctx)
	if err != nil {
		return err
	}

	doctors := make(map[int64]models.Doctor, len(c.Doctors))
	for _, d := range c.Doctors {
		doctors[d.ID] = d
	}
	tests := make(map[int64]models.DiagnosticTest, len(c.Tests))
	for _, t := range c.Tests {
		tests[t.ID] = t
	}
	packages := make(map[int64]models.DiagnosticPackage, len(c.Packages))
	for _, p := range c.Packages {
		packages[p.ID] = p
	}

	s.mu.Lock()
	s.snapshot = c
	s.doctors = doctors
	s.tests = tests
	s.packages = packages
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info().
		Int("departments", len(c.Departments)).
		Int("doctors", len(c.Doctors)).
		Int("tests", len(c.Tests)).
		Int("packages", len(c.Packages)).
		Int("first_aid", len(c.FirstAid)).
		Msg("catalog loaded")
	return nil
}

func (s *CatalogService) current(ctx context.Context) (*models.Catalog, error) {
	s.mu.RLock()
	c := s.snapshot
	s.mu.RUnlock()
	if c != nil {
		return c, nil
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, nil
}

// Snapshot returns the whole catalog as last loaded.
func (s *CatalogService) Snapshot(ctx context.Context) (*models.Catalog, error) {
	return s.current(ctx)
}

func (s *CatalogService) Departments(ctx context.Context) ([]models.Department, error) {
	c, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return c.Departments, nil
}

// Doctors lists active doctors matching query within a department slug.
func (s *CatalogService) Doctors(ctx context.Context, query, department string) ([]models.Doctor, error) {
	c, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Filter(c.Doctors, query, department), nil
}

func (s *CatalogService) Tests(ctx context.Context, query, category string) ([]models.DiagnosticTest, error) {
	c, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Filter(c.Tests, query, category), nil
}

func (s *CatalogService) Packages(ctx context.Context, query, category string) ([]models.DiagnosticPackage, error) {
	c, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Filter(c.Packages, query, category), nil
}

func (s *CatalogService) FirstAid(ctx context.Context, query, category string) ([]models.FirstAidEntry, error) {
	c, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Filter(c.FirstAid, query, category), nil
}

// TestCategories returns "All" followed by the categories of tests and packages.
func (s *CatalogService) TestCategories(ctx context.Context) ([]string, error) {
	c, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	out := catalog.Categories(c.Tests)
	for _, cat := range catalog.Categories(c.Packages)[1:] {
		if !slices.Contains(out, cat) {
			out = append(out, cat)
		}
	}
	return out, nil
}

func (s *CatalogService) DoctorByID(ctx context.Context, id int64) (*models.Doctor, error) {
	if _, err := s.current(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	d, ok := s.doctors[id]
	s.mu.RUnlock()
	if !ok {
		return nil, database.ErrUnknownDoctor
	}
	return &d, nil
}

// Quote sums the prices of the selected tests and packages. Unknown or
// inactive ids fail the whole quote.
func (s *CatalogService) Quote(ctx context.Context, testIDs, packageIDs []int64) (float64, error) {
	if _, err := s.current(ctx); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total float64
	for _, id := range testIDs {
		t, ok := s.tests[id]
		if !ok {
			return 0, ErrUnknownItem
		}
		total += t.Price
	}
	for _, id := range packageIDs {
		p, ok := s.packages[id]
		if !ok {
			return 0, ErrUnknownItem
		}
		total += p.Price
	}
	return total, nil
}

// AvailableSlots returns the configured slot labels not yet taken for the
// doctor on date, in configured order.
func (s *CatalogService) AvailableSlots(ctx context.Context, doctorID int64, date time.Time) ([]string, error) {
	if _, err := s.DoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}
	taken, err := s.repo.GetTakenSlots(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(s.timeSlots))
	for _, slot := range s.timeSlots {
		if !slices.Contains(taken, slot) {
			out = append(out, slot)
		}
	}
	return out, nil
}
