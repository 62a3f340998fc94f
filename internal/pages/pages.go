// Package pages holds the typed per-department page configuration served to
// the website: hero block, headline stats, highlights and FAQ.
package pages

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrPageNotFound = errors.New("page not found")

type Hero struct {
	Title    string `yaml:"title" json:"title"`
	Subtitle string `yaml:"subtitle" json:"subtitle"`
	Image    string `yaml:"image" json:"image"`
	CTALabel string `yaml:"cta_label" json:"cta_label"`
	CTARoute string `yaml:"cta_route" json:"cta_route"`
}

type Stat struct {
	Label string `yaml:"label" json:"label"`
	Value string `yaml:"value" json:"value"`
}

type FAQ struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

type PageConfig struct {
	Slug       string   `yaml:"slug" json:"slug"`
	Department string   `yaml:"department" json:"department"`
	Hero       Hero     `yaml:"hero" json:"hero"`
	Stats      []Stat   `yaml:"stats" json:"stats"`
	Highlights []string `yaml:"highlights" json:"highlights"`
	Services   []string `yaml:"services" json:"services"`
	FAQ        []FAQ    `yaml:"faq" json:"faq"`
}

type document struct {
	Pages []PageConfig `yaml:"pages"`
}

// Registry is an immutable set of pages keyed by slug.
type Registry struct {
	bySlug map[string]PageConfig
	order  []string
}

// Load reads and validates a pages YAML file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pages: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse pages: %w", err)
	}
	return NewRegistry(doc.Pages)
}

func NewRegistry(pages []PageConfig) (*Registry, error) {
	r := &Registry{bySlug: make(map[string]PageConfig, len(pages))}
	for i, p := range pages {
		p.Slug = strings.ToLower(strings.TrimSpace(p.Slug))
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("page #%d: %w", i+1, err)
		}
		if _, dup := r.bySlug[p.Slug]; dup {
			return nil, fmt.Errorf("duplicate page slug %q", p.Slug)
		}
		r.bySlug[p.Slug] = p
		r.order = append(r.order, p.Slug)
	}
	return r, nil
}

func (p PageConfig) validate() error {
	switch {
	case p.Slug == "":
		return errors.New("slug is required")
	case strings.TrimSpace(p.Hero.Title) == "":
		return fmt.Errorf("page %q: hero title is required", p.Slug)
	}
	for _, s := range p.Stats {
		if s.Label == "" || s.Value == "" {
			return fmt.Errorf("page %q: stats need both label and value", p.Slug)
		}
	}
	for _, f := range p.FAQ {
		if f.Question == "" || f.Answer == "" {
			return fmt.Errorf("page %q: faq entries need question and answer", p.Slug)
		}
	}
	return nil
}

func (r *Registry) Get(slug string) (PageConfig, error) {
	p, ok := r.bySlug[strings.ToLower(strings.TrimSpace(slug))]
	if !ok {
		return PageConfig{}, ErrPageNotFound
	}
	return p, nil
}

// Slugs returns the slugs in file order.
func (r *Registry) Slugs() []string {
	return append([]string(nil), r.order...)
}

// MissingFor lists department slugs that have no page, sorted.
func (r *Registry) MissingFor(departmentSlugs []string) []string {
	var missing []string
	for _, s := range departmentSlugs {
		if _, ok := r.bySlug[s]; !ok {
			missing = append(missing, s)
		}
	}
	sort.Strings(missing)
	return missing
}
