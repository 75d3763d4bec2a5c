package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/metagrid-dev/metagrid/internal/game/space"
)

// ErrNotOwner is returned when a caller mutates a space they do not own.
var ErrNotOwner = errors.New("not the space owner")

// SpaceRecord is a space row as stored.
type SpaceRecord struct {
	ID        string
	OwnerID   string
	Name      string
	Width     int
	Height    int
	Thumbnail *string
	SpawnX    int
	SpawnY    int
}

// SpaceElement is one element placed in a space.
type SpaceElement struct {
	ID        string
	ElementID string
	ImageURL  string
	Width     int
	Height    int
	Static    bool
	X         int
	Y         int
}

// SpaceRepository persists user-created spaces and their element
// placements, and serves them to the real-time core as space.Space
// values with static element footprints expanded into obstacle cells.
type SpaceRepository struct {
	db *pgxpool.Pool
}

var _ space.Provider = (*SpaceRepository)(nil)

// NewSpaceRepository creates a SpaceRepository backed by the given pool.
func NewSpaceRepository(db *pgxpool.Pool) *SpaceRepository {
	return &SpaceRepository{db: db}
}

// CreateSpace inserts an empty space with the given dimensions.
//
// Precondition: dim must be valid (positive width and height).
// Postcondition: Returns the generated space id. The spawn cell
// defaults to the top-left corner.
func (r *SpaceRepository) CreateSpace(ctx context.Context, ownerID, name string, dim space.Dimensions) (string, error) {
	var id string
	err := r.db.QueryRow(ctx,
		`INSERT INTO spaces (owner_id, name, width, height, spawn_x, spawn_y)
		 VALUES ($1, $2, $3, $4, 0, 0)
		 RETURNING id`,
		ownerID, name, dim.Width, dim.Height,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("inserting space: %w", err)
	}
	return id, nil
}

// CreateSpaceFromMap inserts a space inheriting a map template's
// dimensions, thumbnail, and default element placements, all in one
// transaction.
//
// Postcondition: Returns the generated space id, or ErrMapNotFound if
// the template does not exist. Nothing is written on failure.
func (r *SpaceRepository) CreateSpaceFromMap(ctx context.Context, ownerID, name, mapID string) (string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx,
		`INSERT INTO spaces (owner_id, name, width, height, thumbnail, spawn_x, spawn_y)
		 SELECT $1, $2, m.width, m.height, m.thumbnail, 0, 0
		 FROM maps m WHERE m.id = $3
		 RETURNING id`,
		ownerID, name, mapID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrMapNotFound
		}
		return "", fmt.Errorf("inserting space from map: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO space_elements (space_id, element_id, x, y)
		 SELECT $1, element_id, x, y FROM map_elements WHERE map_id = $2`,
		id, mapID,
	)
	if err != nil {
		return "", fmt.Errorf("copying map elements: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("committing space: %w", err)
	}
	return id, nil
}

// DeleteSpace removes a space owned by the caller.
//
// Postcondition: Returns ErrNotOwner when the space exists but belongs
// to someone else, space.ErrSpaceNotFound when it does not exist.
func (r *SpaceRepository) DeleteSpace(ctx context.Context, spaceID, callerID string) error {
	var ownerID string
	err := r.db.QueryRow(ctx,
		`SELECT owner_id FROM spaces WHERE id = $1`, spaceID,
	).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return space.ErrSpaceNotFound
		}
		return fmt.Errorf("querying space owner: %w", err)
	}
	if ownerID != callerID {
		return ErrNotOwner
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM spaces WHERE id = $1`, spaceID); err != nil {
		return fmt.Errorf("deleting space: %w", err)
	}
	return nil
}

// ListByOwner returns the spaces owned by the given user.
func (r *SpaceRepository) ListByOwner(ctx context.Context, ownerID string) ([]SpaceRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, owner_id, name, width, height, thumbnail, spawn_x, spawn_y
		 FROM spaces WHERE owner_id = $1 ORDER BY name`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying spaces: %w", err)
	}
	defer rows.Close()

	var out []SpaceRecord
	for rows.Next() {
		var s SpaceRecord
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Width, &s.Height, &s.Thumbnail, &s.SpawnX, &s.SpawnY); err != nil {
			return nil, fmt.Errorf("scanning space: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSpaceDetail returns a space row along with its placed elements.
//
// Postcondition: Returns space.ErrSpaceNotFound for unknown ids.
func (r *SpaceRepository) GetSpaceDetail(ctx context.Context, spaceID string) (SpaceRecord, []SpaceElement, error) {
	var rec SpaceRecord
	err := r.db.QueryRow(ctx,
		`SELECT id, owner_id, name, width, height, thumbnail, spawn_x, spawn_y
		 FROM spaces WHERE id = $1`,
		spaceID,
	).Scan(&rec.ID, &rec.OwnerID, &rec.Name, &rec.Width, &rec.Height, &rec.Thumbnail, &rec.SpawnX, &rec.SpawnY)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SpaceRecord{}, nil, space.ErrSpaceNotFound
		}
		return SpaceRecord{}, nil, fmt.Errorf("querying space: %w", err)
	}

	elements, err := r.spaceElements(ctx, spaceID)
	if err != nil {
		return SpaceRecord{}, nil, err
	}
	return rec, elements, nil
}

// GetSpace loads a space for the real-time core. Static elements have
// their width by height footprints expanded into blocked cells.
//
// Postcondition: Returns space.ErrSpaceNotFound for unknown ids. The
// returned Space passes space.Space.Validate.
func (r *SpaceRepository) GetSpace(ctx context.Context, id string) (*space.Space, error) {
	rec, elements, err := r.GetSpaceDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	sp := &space.Space{
		ID:   rec.ID,
		Name: rec.Name,
		Dim:  space.Dimensions{Width: rec.Width, Height: rec.Height},
		DefaultSpawn: space.Position{
			X: rec.SpawnX,
			Y: rec.SpawnY,
		},
		Obstacles: make(map[space.Position]bool),
	}

	for _, e := range elements {
		if !e.Static {
			continue
		}
		for dy := 0; dy < e.Height; dy++ {
			for dx := 0; dx < e.Width; dx++ {
				pos := space.Position{X: e.X + dx, Y: e.Y + dy}
				if sp.Dim.Contains(pos) {
					sp.Obstacles[pos] = true
				}
			}
		}
	}

	return sp, nil
}

func (r *SpaceRepository) spaceElements(ctx context.Context, spaceID string) ([]SpaceElement, error) {
	rows, err := r.db.Query(ctx,
		`SELECT se.id, se.element_id, e.image_url, e.width, e.height, e.static, se.x, se.y
		 FROM space_elements se
		 JOIN elements e ON e.id = se.element_id
		 WHERE se.space_id = $1`,
		spaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying space elements: %w", err)
	}
	defer rows.Close()

	var out []SpaceElement
	for rows.Next() {
		var e SpaceElement
		if err := rows.Scan(&e.ID, &e.ElementID, &e.ImageURL, &e.Width, &e.Height, &e.Static, &e.X, &e.Y); err != nil {
			return nil, fmt.Errorf("scanning space element: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
