package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"coursehub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogYAML = `
courses:
  - title: Go in Practice
    category: programming
    level: intermediate
    price: "499.50"
    published: true
    averageRating: 4.6
    lectures:
      - title: Setup
        duration: 120
      - title: Goroutines
        duration: 600
  - id: 0b7c6c7e-8f2e-4c61-9a3b-1d2e3f4a5b6c
    title: SQL Basics
    price: "0"
`

func TestParseCatalog(t *testing.T) {
	courses, err := ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)
	require.Len(t, courses, 2)

	goCourse := courses[0]
	assert.Equal(t, "499.5", goCourse.Price.String())
	require.Len(t, goCourse.Lectures, 2)
	assert.Equal(t, 1, goCourse.Lectures[0].Position)
	assert.Equal(t, goCourse.ID, goCourse.Lectures[1].CourseID)
	assert.Equal(t, "0b7c6c7e-8f2e-4c61-9a3b-1d2e3f4a5b6c", courses[1].ID.String())

	again, err := ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)
	assert.Equal(t, goCourse.ID, again[0].ID)
	assert.Equal(t, goCourse.Lectures[1].ID, again[0].Lectures[1].ID)
}

func TestParseCatalogRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"missing title": "courses:\n  - price: \"10\"\n",
		"bad price":     "courses:\n  - title: x\n    price: free\n",
		"negative":      "courses:\n  - title: x\n    price: \"-1\"\n",
		"bad id":        "courses:\n  - id: nope\n    title: x\n    price: \"1\"\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(raw))
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	_, err := ParseCatalog([]byte("courses: [unterminated"))
	assert.Error(t, err)
}

func TestSeedCatalogIsRepeatable(t *testing.T) {
	db := newTestDB(t)
	repo := NewCourseRepository(db, nil)
	path := filepath.Join(t.TempDir(), "courses.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		n, err := SeedCatalog(ctx, repo, path)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	}

	var count int64
	require.NoError(t, db.Model(&domain.Course{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
	require.NoError(t, db.Model(&domain.Lecture{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	courses, err := ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)
	stored, err := repo.GetWithLectures(ctx, courses[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.TotalLectures)
	assert.Equal(t, 720, stored.TotalDuration)
}
