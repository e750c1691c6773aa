package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

type CharacterRow struct {
	Name        string
	AccountName string
	X           int32
	Y           int32
	Z           int16
	Heading     int16
	Outfit      int32
	CreatedAt   time.Time
	LastLogin   *time.Time
	LastLogout  *time.Time
}

// PositionRow is one entry of a batched position save.
type PositionRow struct {
	Name    string
	X       int32
	Y       int32
	Z       int16
	Heading int16
}

type CharacterRepo struct {
	db *DB
}

func NewCharacterRepo(db *DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

// LoadByName returns the character, or nil if it doesn't exist.
func (r *CharacterRepo) LoadByName(ctx context.Context, name string) (*CharacterRow, error) {
	c := &CharacterRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT name, account_name, pos_x, pos_y, pos_z, heading, outfit,
		        created_at, last_login, last_logout
		 FROM characters WHERE name = $1`, name,
	).Scan(
		&c.Name, &c.AccountName, &c.X, &c.Y, &c.Z, &c.Heading, &c.Outfit,
		&c.CreatedAt, &c.LastLogin, &c.LastLogout,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CharacterRepo) Create(ctx context.Context, c *CharacterRow) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO characters (name, account_name, pos_x, pos_y, pos_z, heading, outfit)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.Name, c.AccountName, c.X, c.Y, c.Z, c.Heading, c.Outfit,
	)
	return err
}

// SavePosition updates the character's position in the database.
func (r *CharacterRepo) SavePosition(ctx context.Context, p PositionRow) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE characters SET pos_x = $1, pos_y = $2, pos_z = $3, heading = $4 WHERE name = $5`,
		p.X, p.Y, p.Z, p.Heading, p.Name,
	)
	return err
}

// SavePositions writes a batch of positions in a single transaction.
// Either every row is saved or none is.
func (r *CharacterRepo) SavePositions(ctx context.Context, rows []PositionRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save positions begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, p := range rows {
		batch.Queue(
			`UPDATE characters SET pos_x = $1, pos_y = $2, pos_z = $3, heading = $4 WHERE name = $5`,
			p.X, p.Y, p.Z, p.Heading, p.Name,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save positions: %w", err)
	}
	return tx.Commit(ctx)
}

// MarkLogin stamps last_login.
func (r *CharacterRepo) MarkLogin(ctx context.Context, name string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE characters SET last_login = NOW() WHERE name = $1`, name,
	)
	return err
}

// MarkLogout stamps last_logout.
func (r *CharacterRepo) MarkLogout(ctx context.Context, name string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE characters SET last_logout = NOW() WHERE name = $1`, name,
	)
	return err
}
