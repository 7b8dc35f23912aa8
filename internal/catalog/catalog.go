package catalog

import (
	"errors"
	"sort"

	"github.com/avvvet/toywonder-assistant/internal/models"
)

var (
	ErrNotFound = errors.New("product not found")
)

// Repository is the read-only view of the catalog the engine depends on.
type Repository interface {
	List() []models.Product
	GetByID(id string) (models.Product, error)
}

// StaticRepository serves an already-loaded product list.
// The slice is copied on construction and never mutated afterwards, so no
// locking is needed.
type StaticRepository struct {
	products []models.Product
	byID     map[string]int
}

func NewStaticRepository(seed []models.Product) *StaticRepository {
	r := &StaticRepository{
		products: make([]models.Product, len(seed)),
		byID:     make(map[string]int, len(seed)),
	}
	copy(r.products, seed)
	for i, p := range r.products {
		r.byID[p.ID] = i
	}
	return r
}

func (r *StaticRepository) List() []models.Product {
	out := make([]models.Product, len(r.products))
	copy(out, r.products)
	return out
}

func (r *StaticRepository) GetByID(id string) (models.Product, error) {
	i, ok := r.byID[id]
	if !ok {
		return models.Product{}, ErrNotFound
	}
	return r.products[i], nil
}

// Head returns at most n products in catalog order.
func Head(products []models.Product, n int) []models.Product {
	if n > len(products) {
		n = len(products)
	}
	out := make([]models.Product, n)
	copy(out, products[:n])
	return out
}

// Popular returns the first n catalog items ordered by review count, most
// reviewed first. Used to seed the recommendation pool of a new session.
func Popular(products []models.Product, n int) []models.Product {
	out := Head(products, n)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Reviews > out[j].Reviews
	})
	return out
}

// DefaultProducts is the storefront's built-in toy catalog.
func DefaultProducts() []models.Product {
	return []models.Product{
		{ID: "1", Name: "Speed Racer RC", Category: "Outdoor Fun", Price: 3499, OriginalPrice: 4499, Rating: 4.8, Reviews: 120, Image: "/images/speed-racer-rc.jpg", Badge: "-20%", Stock: 25},
		{ID: "2", Name: "Castle Builder Set", Category: "Educational", Price: 7999, Rating: 4.9, Reviews: 85, Image: "/images/castle-builder-set.jpg", Stock: 15},
		{ID: "3", Name: "Cuddly Elephant", Category: "Plushies", Price: 1699, Rating: 5.0, Reviews: 210, Image: "/images/cuddly-elephant.jpg", Stock: 50},
		{ID: "4", Name: "Mega Art Kit", Category: "Arts & Crafts", Price: 2999, Rating: 4.7, Reviews: 42, Image: "/images/mega-art-kit.jpg", Stock: 30},
		{
			ID: "5", Name: "Super Galactic Robot", Category: "Robots", Price: 3999, OriginalPrice: 4999, Rating: 4.8, Reviews: 120,
			Image: "/images/super-galactic-robot.jpg", Badge: "Bestseller", Stock: 8,
			Description: "The ultimate companion for your little astronaut. Features voice command recognition, LED light shows, and 360-degree mobility.",
		},
		{ID: "6", Name: "Wooden Express Train", Category: "Outdoor Fun", Price: 2499, OriginalPrice: 3499, Rating: 4.9, Reviews: 128, Image: "/images/wooden-express-train.jpg", Badge: "Bestseller", Stock: 12},
		{ID: "7", Name: "Cuddly Brown Bear", Category: "Plushies", Price: 2199, Rating: 5.0, Reviews: 42, Image: "/images/cuddly-brown-bear.jpg", Stock: 40},
		{ID: "8", Name: "Medieval Castle", Category: "Educational", Price: 3899, OriginalPrice: 4899, Rating: 4.7, Reviews: 89, Image: "/images/medieval-castle.jpg", Badge: "-20%", Stock: 22},
		{ID: "9", Name: "Rainbow Stacker", Category: "Educational", Price: 1199, Rating: 4.8, Reviews: 210, Image: "/images/rainbow-stacker.jpg", Stock: 60},
		{ID: "10", Name: "Speedster RC Racer", Category: "Outdoor Fun", Price: 2999, Rating: 0, Reviews: 0, Image: "/images/speedster-rc-racer.jpg", Badge: "New", Stock: 5},
		{ID: "11", Name: "Surprise Gift Box", Category: "Gifts", Price: 1699, Rating: 4.5, Reviews: 56, Image: "/images/surprise-gift-box.jpg", Stock: 100},
	}
}
