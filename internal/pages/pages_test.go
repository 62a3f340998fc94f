package pages

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
pages:
  - slug: Cardiology
    department: cardiology
    hero:
      title: "Heart care you can trust"
      subtitle: "24x7 cardiac emergency"
    stats:
      - {label: "Procedures", value: "12,000+"}
    highlights: ["Cath lab", "Cardiac ICU"]
    faq:
      - question: "Do I need a referral?"
        answer: "No."
  - slug: neurology
    hero:
      title: "Neurology"
`

func TestParse(t *testing.T) {
	r, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, []string{"cardiology", "neurology"}, r.Slugs())

	p, err := r.Get("CARDIOLOGY")
	require.NoError(t, err)
	assert.Equal(t, "Heart care you can trust", p.Hero.Title)
	require.Len(t, p.Stats, 1)
	assert.Equal(t, "12,000+", p.Stats[0].Value)
	assert.Len(t, p.FAQ, 1)

	_, err = r.Get("dermatology")
	assert.ErrorIs(t, err, ErrPageNotFound)

	assert.Equal(t, []string{"orthopedics", "pediatrics"}, r.MissingFor([]string{"pediatrics", "cardiology", "orthopedics"}))
}

func TestParse_Validation(t *testing.T) {
	cases := map[string]string{
		"missing hero title": "pages:\n  - slug: a\n",
		"duplicate slug":     "pages:\n  - slug: a\n    hero: {title: A}\n  - slug: A\n    hero: {title: B}\n",
		"empty slug":         "pages:\n  - hero: {title: A}\n",
		"half stat":          "pages:\n  - slug: a\n    hero: {title: A}\n    stats: [{label: x}]\n",
		"half faq":           "pages:\n  - slug: a\n    hero: {title: A}\n    faq: [{question: x}]\n",
		"bad yaml":           "pages: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, r.Slugs(), 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
