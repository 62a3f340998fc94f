package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medcenter/internal/models"
)

// ImportCatalog upserts a whole catalog document in one transaction.
func (db *DB) ImportCatalog(ctx context.Context, c *models.Catalog) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	for i := range c.Departments {
		d := &c.Departments[i]
		_, err := tx.ExecContext(ctx, `INSERT INTO departments (id, slug, name, description, sort_order, created_at, updated_at)
            VALUES (?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(id) DO UPDATE SET slug = excluded.slug, name = excluded.name,
                description = excluded.description, sort_order = excluded.sort_order, updated_at = excluded.updated_at`,
			d.ID, d.Slug, d.Name, d.Description, d.SortOrder, now, now)
		if err != nil {
			return fmt.Errorf("upsert department %s: %w", d.Slug, err)
		}
	}
	for i := range c.Doctors {
		d := &c.Doctors[i]
		_, err := tx.ExecContext(ctx, `INSERT INTO doctors (id, name, specialty, department_slug, qualification,
                experience_years, bio, image_url, is_active, created_at, updated_at)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(id) DO UPDATE SET name = excluded.name, specialty = excluded.specialty,
                department_slug = excluded.department_slug, qualification = excluded.qualification,
                experience_years = excluded.experience_years, bio = excluded.bio,
                image_url = excluded.image_url, is_active = excluded.is_active, updated_at = excluded.updated_at`,
			d.ID, d.Name, d.Specialty, d.DepartmentSlug, d.Qualification,
			d.ExperienceYears, d.Bio, d.ImageURL, d.IsActive, now, now)
		if err != nil {
			return fmt.Errorf("upsert doctor %d: %w", d.ID, err)
		}
	}
	for i := range c.Tests {
		t := &c.Tests[i]
		_, err := tx.ExecContext(ctx, `INSERT INTO diagnostic_tests (id, code, name, description, category, price,
                turnaround_hours, fasting_required, is_active)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(id) DO UPDATE SET code = excluded.code, name = excluded.name,
                description = excluded.description, category = excluded.category, price = excluded.price,
                turnaround_hours = excluded.turnaround_hours, fasting_required = excluded.fasting_required,
                is_active = excluded.is_active`,
			t.ID, t.Code, t.Name, t.Description, t.Category, t.Price, t.TurnaroundHours, t.FastingRequired, t.IsActive)
		if err != nil {
			return fmt.Errorf("upsert test %s: %w", t.Code, err)
		}
	}
	for i := range c.Packages {
		p := &c.Packages[i]
		codes, err := json.Marshal(p.TestCodes)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO diagnostic_packages (id, name, description, category, price, test_codes, is_active)
            VALUES (?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(id) DO UPDATE SET name = excluded.name, description = excluded.description,
                category = excluded.category, price = excluded.price, test_codes = excluded.test_codes,
                is_active = excluded.is_active`,
			p.ID, p.Name, p.Description, p.Category, p.Price, string(codes), p.IsActive)
		if err != nil {
			return fmt.Errorf("upsert package %d: %w", p.ID, err)
		}
	}
	for i := range c.FirstAid {
		e := &c.FirstAid[i]
		symptoms, _ := json.Marshal(e.Symptoms)
		steps, _ := json.Marshal(e.Steps)
		_, err := tx.ExecContext(ctx, `INSERT INTO first_aid_entries (id, title, category, summary, symptoms, steps, emergency)
            VALUES (?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(id) DO UPDATE SET title = excluded.title, category = excluded.category,
                summary = excluded.summary, symptoms = excluded.symptoms, steps = excluded.steps,
                emergency = excluded.emergency`,
			e.ID, e.Title, e.Category, e.Summary, string(symptoms), string(steps), e.Emergency)
		if err != nil {
			return fmt.Errorf("upsert first aid %d: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	db.SetDoctors(c.Doctors)
	return nil
}

// LoadCatalog reads the full catalog snapshot. Inactive doctors, tests and
// packages are skipped.
func (db *DB) LoadCatalog(ctx context.Context) (*models.Catalog, error) {
	var (
		c   models.Catalog
		err error
	)
	if c.Departments, err = db.GetDepartments(ctx); err != nil {
		return nil, err
	}
	if c.Doctors, err = db.GetActiveDoctors(ctx); err != nil {
		return nil, err
	}
	if c.Tests, err = db.GetActiveTests(ctx); err != nil {
		return nil, err
	}
	if c.Packages, err = db.GetActivePackages(ctx); err != nil {
		return nil, err
	}
	if c.FirstAid, err = db.GetFirstAidEntries(ctx); err != nil {
		return nil, err
	}
	db.SetDoctors(c.Doctors)
	return &c, nil
}

// SetDoctors replaces the cache consulted by CreateAppointmentWithLock.
func (db *DB) SetDoctors(doctors []models.Doctor) {
	cache := make(map[int64]models.Doctor, len(doctors))
	for _, d := range doctors {
		cache[d.ID] = d
	}
	db.mu.Lock()
	db.doctors = cache
	db.mu.Unlock()
}

func (db *DB) GetDepartments(ctx context.Context) ([]models.Department, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, slug, name, description, sort_order, created_at, updated_at
        FROM departments ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get departments: %w", err)
	}
	defer rows.Close()

	var out []models.Department
	for rows.Next() {
		var d models.Department
		if err := rows.Scan(&d.ID, &d.Slug, &d.Name, &d.Description, &d.SortOrder, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const doctorColumns = `id, name, specialty, department_slug, qualification, experience_years, bio, image_url, is_active, created_at, updated_at`

func scanDoctor(row interface{ Scan(...any) error }) (models.Doctor, error) {
	var d models.Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Specialty, &d.DepartmentSlug, &d.Qualification,
		&d.ExperienceYears, &d.Bio, &d.ImageURL, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (db *DB) GetActiveDoctors(ctx context.Context) ([]models.Doctor, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE is_active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to get doctors: %w", err)
	}
	defer rows.Close()

	var out []models.Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan doctor: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDoctor reads through the cache, falling back to the table.
func (db *DB) GetDoctor(ctx context.Context, id int64) (*models.Doctor, error) {
	db.mu.RLock()
	d, ok := db.doctors[id]
	db.mu.RUnlock()
	if ok {
		return &d, nil
	}

	d, err := scanDoctor(db.QueryRowContext(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnknownDoctor
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return &d, nil
}

func (db *DB) GetActiveTests(ctx context.Context) ([]models.DiagnosticTest, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, code, name, description, category, price, turnaround_hours,
            fasting_required, is_active
        FROM diagnostic_tests WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get tests: %w", err)
	}
	defer rows.Close()

	var out []models.DiagnosticTest
	for rows.Next() {
		var t models.DiagnosticTest
		if err := rows.Scan(&t.ID, &t.Code, &t.Name, &t.Description, &t.Category, &t.Price,
			&t.TurnaroundHours, &t.FastingRequired, &t.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan test: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (db *DB) GetActivePackages(ctx context.Context) ([]models.DiagnosticPackage, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, description, category, price, test_codes, is_active
        FROM diagnostic_packages WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get packages: %w", err)
	}
	defer rows.Close()

	var out []models.DiagnosticPackage
	for rows.Next() {
		var (
			p     models.DiagnosticPackage
			codes string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &codes, &p.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		if err := json.Unmarshal([]byte(codes), &p.TestCodes); err != nil {
			return nil, fmt.Errorf("package %d test codes: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (db *DB) GetFirstAidEntries(ctx context.Context) ([]models.FirstAidEntry, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, title, category, summary, symptoms, steps, emergency
        FROM first_aid_entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get first aid entries: %w", err)
	}
	defer rows.Close()

	var out []models.FirstAidEntry
	for rows.Next() {
		var (
			e               models.FirstAidEntry
			symptoms, steps string
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.Category, &e.Summary, &symptoms, &steps, &e.Emergency); err != nil {
			return nil, fmt.Errorf("failed to scan first aid entry: %w", err)
		}
		_ = json.Unmarshal([]byte(symptoms), &e.Symptoms)
		_ = json.Unmarshal([]byte(steps), &e.Steps)
		out = append(out, e)
	}
	return out, rows.Err()
}
