package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"medcenter/internal/models"

	"gopkg.in/yaml.v3"
)

// LoadCatalog reads and validates a catalog document.
func LoadCatalog(path string) (*models.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var c models.Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	if err := ValidateCatalog(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func ValidateCatalog(c *models.Catalog) error {
	departments := make(map[string]bool, len(c.Departments))
	ids := make(map[int64]bool)
	for _, d := range c.Departments {
		if d.ID == 0 {
			return fmt.Errorf("department '%s' has invalid ID 0", d.Slug)
		}
		if strings.TrimSpace(d.Slug) == "" {
			return fmt.Errorf("department %d has an empty slug", d.ID)
		}
		if ids[d.ID] || departments[d.Slug] {
			return fmt.Errorf("duplicate department: %d/%s", d.ID, d.Slug)
		}
		ids[d.ID] = true
		departments[d.Slug] = true
	}

	clear(ids)
	for _, d := range c.Doctors {
		if d.ID == 0 {
			return fmt.Errorf("doctor '%s' has invalid ID 0", d.Name)
		}
		if ids[d.ID] {
			return fmt.Errorf("duplicate doctor ID found: %d", d.ID)
		}
		ids[d.ID] = true
		if d.DepartmentSlug != "" && !departments[d.DepartmentSlug] {
			return fmt.Errorf("doctor %d refers to unknown department %q", d.ID, d.DepartmentSlug)
		}
	}

	clear(ids)
	codes := make(map[string]bool, len(c.Tests))
	for _, t := range c.Tests {
		if t.ID == 0 {
			return fmt.Errorf("test '%s' has invalid ID 0", t.Name)
		}
		if ids[t.ID] || codes[t.Code] {
			return fmt.Errorf("duplicate test: %d/%s", t.ID, t.Code)
		}
		if t.Price < 0 {
			return fmt.Errorf("test %s has a negative price", t.Code)
		}
		ids[t.ID] = true
		codes[t.Code] = true
	}

	clear(ids)
	for _, p := range c.Packages {
		if p.ID == 0 {
			return fmt.Errorf("package '%s' has invalid ID 0", p.Name)
		}
		if ids[p.ID] {
			return fmt.Errorf("duplicate package ID found: %d", p.ID)
		}
		ids[p.ID] = true
		for _, code := range p.TestCodes {
			if !codes[code] {
				return fmt.Errorf("package %d refers to unknown test %q", p.ID, code)
			}
		}
	}

	clear(ids)
	for _, e := range c.FirstAid {
		if e.ID == 0 {
			return fmt.Errorf("first aid entry '%s' has invalid ID 0", e.Title)
		}
		if ids[e.ID] {
			return fmt.Errorf("duplicate first aid ID found: %d", e.ID)
		}
		ids[e.ID] = true
	}
	return nil
}

// Location returns the clinic time zone; empty means local time.
func (b BookingConfig) Location() (*time.Location, error) {
	if b.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return nil, fmt.Errorf("booking.timezone: %w", err)
	}
	return loc, nil
}
