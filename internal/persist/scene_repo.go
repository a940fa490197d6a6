package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/acidgo/acid/internal/core/event"
	"github.com/acidgo/acid/internal/scenes"
)

// SceneRow is one stored scene document.
type SceneRow struct {
	Name      string
	Document  string // YAML written by scenes.Scene.Encode
	Entities  int32
	Revision  int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RevisionRow is one entry of a scene's save history.
type RevisionRow struct {
	Revision int32
	Document string
	SavedAt  time.Time
}

type SceneRepo struct {
	db *DB
}

func NewSceneRepo(db *DB) *SceneRepo {
	return &SceneRepo{db: db}
}

// Load returns the named scene row, or nil if it does not exist.
func (r *SceneRepo) Load(ctx context.Context, name string) (*SceneRow, error) {
	row := &SceneRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT name, document, entities, revision, created_at, updated_at
		 FROM scenes WHERE name = $1`, name,
	).Scan(&row.Name, &row.Document, &row.Entities, &row.Revision, &row.CreatedAt, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Save upserts the document and appends it to the history in one
// transaction. It returns the new revision.
func (r *SceneRepo) Save(ctx context.Context, name, document string, entities int) (int32, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("scene save begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var revision int32
	err = tx.QueryRow(ctx,
		`INSERT INTO scenes (name, document, entities)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE SET
		     document = EXCLUDED.document,
		     entities = EXCLUDED.entities,
		     revision = scenes.revision + 1,
		     updated_at = now()
		 RETURNING revision`,
		name, document, entities,
	).Scan(&revision)
	if err != nil {
		return 0, fmt.Errorf("scene upsert: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO scene_history (scene, revision, document) VALUES ($1, $2, $3)`,
		name, revision, document,
	); err != nil {
		return 0, fmt.Errorf("scene history insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("scene save commit: %w", err)
	}
	return revision, nil
}

// List returns every stored scene without its document, ordered by name.
func (r *SceneRepo) List(ctx context.Context) ([]SceneRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT name, entities, revision, created_at, updated_at FROM scenes ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SceneRow
	for rows.Next() {
		var s SceneRow
		if err := rows.Scan(&s.Name, &s.Entities, &s.Revision, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// History returns up to limit revisions of a scene, newest first.
func (r *SceneRepo) History(ctx context.Context, name string, limit int) ([]RevisionRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT revision, document, saved_at FROM scene_history
		 WHERE scene = $1 ORDER BY revision DESC LIMIT $2`, name, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RevisionRow
	for rows.Next() {
		var h RevisionRow
		if err := rows.Scan(&h.Revision, &h.Document, &h.SavedAt); err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

// Delete removes a scene and its history. It reports whether the scene existed.
func (r *SceneRepo) Delete(ctx context.Context, name string) (bool, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("scene delete begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM scene_history WHERE scene = $1`, name); err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM scenes WHERE name = $1`, name)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, tx.Commit(ctx)
}

// SceneStore saves and loads live scenes through a SceneRepo.
type SceneStore struct {
	repo *SceneRepo
	bus  *event.Bus
	log  *zap.Logger
}

func NewSceneStore(repo *SceneRepo, bus *event.Bus, log *zap.Logger) *SceneStore {
	return &SceneStore{repo: repo, bus: bus, log: log}
}

// SaveScene stores s under its own name.
func (st *SceneStore) SaveScene(ctx context.Context, s *scenes.Scene) (int32, error) {
	doc, err := s.Encode()
	if err != nil {
		return 0, fmt.Errorf("encode scene %q: %w", s.Name(), err)
	}
	rev, err := st.repo.Save(ctx, s.Name(), string(doc), s.Len())
	if err != nil {
		return 0, err
	}
	st.log.Info("scene saved", zap.String("scene", s.Name()), zap.Int32("revision", rev))
	return rev, nil
}

// LoadScene builds the named scene, or returns nil if it is not stored.
func (st *SceneStore) LoadScene(ctx context.Context, name string) (*scenes.Scene, error) {
	row, err := st.repo.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load scene %q: %w", name, err)
	}
	if row == nil {
		return nil, nil
	}
	s, err := scenes.Decode([]byte(row.Document), st.bus, st.log)
	if err != nil {
		return nil, fmt.Errorf("decode scene %q revision %d: %w", name, row.Revision, err)
	}
	return s, nil
}
