package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/toywonder-assistant/internal/models"
)

func TestStaticRepository(t *testing.T) {
	repo := NewStaticRepository(DefaultProducts())

	all := repo.List()
	require.Len(t, all, 11)
	assert.Equal(t, "Speed Racer RC", all[0].Name)

	// callers cannot mutate the repository through List
	all[0].Name = "changed"
	assert.Equal(t, "Speed Racer RC", repo.List()[0].Name)

	p, err := repo.GetByID("5")
	require.NoError(t, err)
	assert.Equal(t, "Super Galactic Robot", p.Name)

	_, err = repo.GetByID("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHeadAndPopular(t *testing.T) {
	products := []models.Product{
		{ID: "a", Reviews: 10},
		{ID: "b", Reviews: 30},
		{ID: "c", Reviews: 30},
		{ID: "d", Reviews: 99},
	}

	assert.Len(t, Head(products, 10), 4)
	assert.Equal(t, []string{"a", "b"}, ids(Head(products, 2)))

	// only the first n are considered, then ordered by reviews, stable on ties
	assert.Equal(t, []string{"b", "c", "a"}, ids(Popular(products, 3)))
}

func ids(ps []models.Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}
