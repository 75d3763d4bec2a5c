package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrElementNotFound is returned when an element lookup yields no results.
var ErrElementNotFound = errors.New("element not found")

// ErrMapNotFound is returned when a map lookup yields no results.
var ErrMapNotFound = errors.New("map not found")

// Avatar is a selectable character appearance.
type Avatar struct {
	ID       string
	Name     string
	ImageURL string
}

// Element is a placeable object. Static elements block movement.
type Element struct {
	ID       string
	ImageURL string
	Width    int
	Height   int
	Static   bool
}

// MapTemplate is a reusable arrangement of elements that spaces can be
// created from.
type MapTemplate struct {
	ID        string
	Name      string
	Thumbnail string
	Width     int
	Height    int
}

// MapElement is one element placement within a map template.
type MapElement struct {
	ElementID string
	X         int
	Y         int
}

// CatalogRepository persists the admin-managed content catalog:
// avatars, elements, and map templates.
type CatalogRepository struct {
	db *pgxpool.Pool
}

// NewCatalogRepository creates a CatalogRepository backed by the given pool.
func NewCatalogRepository(db *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// CreateAvatar inserts a new avatar.
//
// Postcondition: Returns the generated avatar id.
func (r *CatalogRepository) CreateAvatar(ctx context.Context, name, imageURL string) (string, error) {
	var id string
	err := r.db.QueryRow(ctx,
		`INSERT INTO avatars (name, image_url) VALUES ($1, $2) RETURNING id`,
		name, imageURL,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("inserting avatar: %w", err)
	}
	return id, nil
}

// ListAvatars returns all avatars.
func (r *CatalogRepository) ListAvatars(ctx context.Context) ([]Avatar, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, image_url FROM avatars ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying avatars: %w", err)
	}
	defer rows.Close()

	var out []Avatar
	for rows.Next() {
		var a Avatar
		if err := rows.Scan(&a.ID, &a.Name, &a.ImageURL); err != nil {
			return nil, fmt.Errorf("scanning avatar: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateElement inserts a new placeable element.
//
// Precondition: width and height must be positive.
// Postcondition: Returns the generated element id.
func (r *CatalogRepository) CreateElement(ctx context.Context, e Element) (string, error) {
	var id string
	err := r.db.QueryRow(ctx,
		`INSERT INTO elements (image_url, width, height, static)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		e.ImageURL, e.Width, e.Height, e.Static,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("inserting element: %w", err)
	}
	return id, nil
}

// UpdateElement replaces an element's image.
//
// Postcondition: Returns ErrElementNotFound if no element has the given id.
func (r *CatalogRepository) UpdateElement(ctx context.Context, id, imageURL string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE elements SET image_url = $1 WHERE id = $2`,
		imageURL, id,
	)
	if err != nil {
		return fmt.Errorf("updating element: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrElementNotFound
	}
	return nil
}

// ListElements returns all elements.
func (r *CatalogRepository) ListElements(ctx context.Context) ([]Element, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, image_url, width, height, static FROM elements ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying elements: %w", err)
	}
	defer rows.Close()

	var out []Element
	for rows.Next() {
		var e Element
		if err := rows.Scan(&e.ID, &e.ImageURL, &e.Width, &e.Height, &e.Static); err != nil {
			return nil, fmt.Errorf("scanning element: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateMap inserts a map template along with its element placements in
// a single transaction.
//
// Precondition: every placement must reference an existing element.
// Postcondition: Returns the generated map id. Nothing is written when
// any placement fails.
func (r *CatalogRepository) CreateMap(ctx context.Context, m MapTemplate, placements []MapElement) (string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx,
		`INSERT INTO maps (name, thumbnail, width, height)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		m.Name, m.Thumbnail, m.Width, m.Height,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("inserting map: %w", err)
	}

	for _, p := range placements {
		_, err := tx.Exec(ctx,
			`INSERT INTO map_elements (map_id, element_id, x, y)
			 VALUES ($1, $2, $3, $4)`,
			id, p.ElementID, p.X, p.Y,
		)
		if err != nil {
			if isForeignKeyError(err) {
				return "", ErrElementNotFound
			}
			return "", fmt.Errorf("inserting map element: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("committing map: %w", err)
	}
	return id, nil
}

// GetMap returns a map template by id.
//
// Postcondition: Returns ErrMapNotFound if no map has the given id.
func (r *CatalogRepository) GetMap(ctx context.Context, id string) (MapTemplate, error) {
	var m MapTemplate
	err := r.db.QueryRow(ctx,
		`SELECT id, name, thumbnail, width, height FROM maps WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.Name, &m.Thumbnail, &m.Width, &m.Height)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MapTemplate{}, ErrMapNotFound
		}
		return MapTemplate{}, fmt.Errorf("querying map: %w", err)
	}
	return m, nil
}

// MapPlacements returns the element placements of a map template.
func (r *CatalogRepository) MapPlacements(ctx context.Context, mapID string) ([]MapElement, error) {
	rows, err := r.db.Query(ctx,
		`SELECT element_id, x, y FROM map_elements WHERE map_id = $1`,
		mapID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying map elements: %w", err)
	}
	defer rows.Close()

	var out []MapElement
	for rows.Next() {
		var p MapElement
		if err := rows.Scan(&p.ElementID, &p.X, &p.Y); err != nil {
			return nil, fmt.Errorf("scanning map element: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
