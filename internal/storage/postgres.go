package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/fdsync/internal/config"
	"github.com/your-org/fdsync/internal/models"
	"github.com/your-org/fdsync/internal/settings"
)

// PostgresStore is the live destination. Every method commits on its own.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

type pgTable struct {
	name     string
	key      string
	sequence string
	// ids enumerates the keys that belong to a tenant group ($1).
	ids string
}

var pgTables = map[models.Entity]pgTable{
	models.EntityStream: {
		name:     "video_streams",
		key:      "id_vstream",
		sequence: "video_streams_id_vstream_seq",
		ids:      `SELECT id_vstream FROM video_streams WHERE id_group = $1`,
	},
	models.EntityDescriptor: {
		name:     "face_descriptors",
		key:      "id_descriptor",
		sequence: "face_descriptors_id_descriptor_seq",
		ids:      `SELECT id_descriptor FROM face_descriptors WHERE id_group = $1`,
	},
	models.EntitySpecialGroup: {
		name:     "special_groups",
		key:      "id_special_group",
		sequence: "special_groups_id_special_group_seq",
		ids:      `SELECT id_special_group FROM special_groups WHERE id_group = $1`,
	},
	models.EntityFaceLog: {
		name:     "log_faces",
		key:      "id_log",
		sequence: "log_faces_id_log_seq",
		ids: `SELECT l.id_log FROM log_faces l
			JOIN video_streams v ON v.id_vstream = l.id_vstream
			WHERE v.id_group = $1`,
	},
}

type pgLinkTable struct {
	name  string
	owner string
	links string
}

var pgLinkTables = map[models.Entity]pgLinkTable{
	models.EntityStreamLink: {
		name:  "link_descriptor_vstream",
		owner: "id_vstream",
		links: `SELECT l.id_vstream, l.id_descriptor FROM link_descriptor_vstream l
			JOIN video_streams v ON v.id_vstream = l.id_vstream
			WHERE v.id_group = $1`,
	},
	models.EntitySpecialGroupLink: {
		name:  "link_descriptor_sgroup",
		owner: "id_sgroup",
		links: `SELECT l.id_sgroup, l.id_descriptor FROM link_descriptor_sgroup l
			JOIN special_groups g ON g.id_special_group = l.id_sgroup
			WHERE g.id_group = $1`,
	},
}

// cascades lists the dependent rows removed together with an entity row.
var cascades = map[models.Entity][]string{
	models.EntityStream: {
		`DELETE FROM link_descriptor_vstream WHERE id_vstream = $1`,
	},
	models.EntityDescriptor: {
		`DELETE FROM link_descriptor_vstream WHERE id_descriptor = $1`,
		`DELETE FROM link_descriptor_sgroup WHERE id_descriptor = $1`,
		`DELETE FROM descriptor_images WHERE id_descriptor = $1`,
	},
	models.EntitySpecialGroup: {
		`DELETE FROM link_descriptor_sgroup WHERE id_sgroup = $1`,
	},
}

func lookupTable(entity models.Entity) (pgTable, error) {
	t, ok := pgTables[entity]
	if !ok {
		return pgTable{}, fmt.Errorf("unknown entity %q", entity)
	}
	return t, nil
}

func lookupLinkTable(entity models.Entity) (pgLinkTable, error) {
	t, ok := pgLinkTables[entity]
	if !ok {
		return pgLinkTable{}, fmt.Errorf("unknown link entity %q", entity)
	}
	return t, nil
}

// --- Tenant groups ---

func (s *PostgresStore) TenantGroupByName(ctx context.Context, name string) (models.TenantGroup, bool, error) {
	var g models.TenantGroup
	err := s.pool.QueryRow(ctx,
		`SELECT id_group, group_name, auth_token FROM vstream_groups WHERE group_name = $1`, name,
	).Scan(&g.ID, &g.Name, &g.AuthToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.TenantGroup{}, false, nil
		}
		return models.TenantGroup{}, false, fmt.Errorf("get tenant group: %w", err)
	}
	return g, true, nil
}

func (s *PostgresStore) ListTenantGroups(ctx context.Context) ([]models.TenantGroup, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id_group, group_name, auth_token FROM vstream_groups ORDER BY id_group`)
	if err != nil {
		return nil, fmt.Errorf("list tenant groups: %w", err)
	}
	defer rows.Close()

	var groups []models.TenantGroup
	for rows.Next() {
		var g models.TenantGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.AuthToken); err != nil {
			return nil, fmt.Errorf("scan tenant group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *PostgresStore) CreateTenantGroup(ctx context.Context, name string, token uuid.UUID, seed settings.Document) (models.TenantGroup, error) {
	doc, err := json.Marshal(seed)
	if err != nil {
		return models.TenantGroup{}, fmt.Errorf("encode seed config: %w", err)
	}

	g := models.TenantGroup{Name: name, AuthToken: token}
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO vstream_groups (group_name, auth_token) VALUES ($1, $2) RETURNING id_group`,
			name, token,
		).Scan(&g.ID); err != nil {
			return fmt.Errorf("insert tenant group: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO default_vstream_config (id_group, config) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			g.ID, doc,
		); err != nil {
			return fmt.Errorf("seed default stream config: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.TenantGroup{}, err
	}
	return g, nil
}

func (s *PostgresStore) DeleteTenantGroup(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM vstream_groups WHERE id_group = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete tenant group: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// --- Enumeration ---

func (s *PostgresStore) IDs(ctx context.Context, group int64, entity models.Entity) ([]int64, error) {
	t, err := lookupTable(entity)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, t.ids, group)
	if err != nil {
		return nil, fmt.Errorf("list %s ids: %w", t.name, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan %s ids: %w", t.name, err)
	}
	return ids, nil
}

func (s *PostgresStore) Links(ctx context.Context, group int64, entity models.Entity) ([]models.Link, error) {
	t, err := lookupLinkTable(entity)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, t.links, group)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	defer rows.Close()

	var links []models.Link
	for rows.Next() {
		var l models.Link
		if err := rows.Scan(&l.Owner, &l.Descriptor); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// --- Deletes ---

func (s *PostgresStore) Delete(ctx context.Context, entity models.Entity, id int64) error {
	t, err := lookupTable(entity)
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, q := range cascades[entity] {
			if _, err := tx.Exec(ctx, q, id); err != nil {
				return fmt.Errorf("delete %s %d dependents: %w", t.name, id, err)
			}
		}
		q := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, t.name, t.key)
		if _, err := tx.Exec(ctx, q, id); err != nil {
			return fmt.Errorf("delete %s %d: %w", t.name, id, err)
		}
		return nil
	})
}

func (s *PostgresStore) DeleteLink(ctx context.Context, entity models.Entity, l models.Link) error {
	t, err := lookupLinkTable(entity)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND id_descriptor = $2`, t.name, t.owner)
	if _, err := s.pool.Exec(ctx, q, l.Owner, l.Descriptor); err != nil {
		return fmt.Errorf("delete %s (%d, %d): %w", t.name, l.Owner, l.Descriptor, err)
	}
	return nil
}

// --- Inserts ---

func (s *PostgresStore) InsertStream(ctx context.Context, group int64, v models.VideoStream, doc settings.Document) (bool, error) {
	cfg, err := json.Marshal(doc)
	if err != nil {
		return false, fmt.Errorf("encode stream %d config: %w", v.ID, err)
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO video_streams (id_vstream, vstream_ext, url, callback_url, id_group, config)
		VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT DO NOTHING`,
		v.ID, v.Extension, v.URL, v.CallbackURL, group, cfg,
	)
	if err != nil {
		return false, fmt.Errorf("insert stream %d: %w", v.ID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) InsertDescriptor(ctx context.Context, group int64, d models.FaceDescriptor) (bool, error) {
	var inserted bool
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO face_descriptors (id_descriptor, descriptor_data, date_start, date_last, last_updated, id_group)
			VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT DO NOTHING`,
			d.ID, d.Data, d.DateStart, d.DateLast, d.LastUpdated, group,
		)
		if err != nil {
			return fmt.Errorf("insert descriptor %d: %w", d.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO descriptor_images (id_descriptor, mime_type, face_image)
			VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			d.ID, d.Image.MimeType, d.Image.Data,
		); err != nil {
			return fmt.Errorf("insert descriptor %d image: %w", d.ID, err)
		}
		inserted = true
		return nil
	})
	return inserted, err
}

func (s *PostgresStore) InsertSpecialGroup(ctx context.Context, group int64, g models.SpecialGroup) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO special_groups (id_special_group, group_name, sg_api_token, callback_url, max_descriptor_count, id_group)
		VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT DO NOTHING`,
		g.ID, g.Name, g.APIToken, g.CallbackURL, g.MaxDescriptorCount, group,
	)
	if err != nil {
		return false, fmt.Errorf("insert special group %d: %w", g.ID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) InsertLink(ctx context.Context, entity models.Entity, l models.Link) (bool, error) {
	t, err := lookupLinkTable(entity)
	if err != nil {
		return false, err
	}
	q := fmt.Sprintf(`INSERT INTO %s (id_descriptor, %s) VALUES ($1, $2) ON CONFLICT DO NOTHING`, t.name, t.owner)
	tag, err := s.pool.Exec(ctx, q, l.Descriptor, l.Owner)
	if err != nil {
		return false, fmt.Errorf("insert %s (%d, %d): %w", t.name, l.Owner, l.Descriptor, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) InsertFaceLog(ctx context.Context, l models.FaceLog) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO log_faces (id_log, id_vstream, log_date, id_descriptor, quality,
			face_left, face_top, face_width, face_height, screenshot_url, log_uuid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) ON CONFLICT DO NOTHING`,
		l.ID, l.StreamID, l.Date, l.DescriptorID, l.Quality,
		l.FaceLeft, l.FaceTop, l.FaceWidth, l.FaceHeight, l.ScreenshotURL, l.UUID,
	)
	if err != nil {
		return false, fmt.Errorf("insert face log %d: %w", l.ID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// --- Sequences ---

// ResetSequence never moves a sequence below max(key)+1 of its table.
func (s *PostgresStore) ResetSequence(ctx context.Context, entity models.Entity, next int64) (int64, error) {
	t, err := lookupTable(entity)
	if err != nil {
		return 0, err
	}
	q := fmt.Sprintf(
		`SELECT setval($1::text::regclass, GREATEST($2::bigint, (SELECT COALESCE(MAX(%s), 0) + 1 FROM %s)), false)`,
		t.key, t.name)
	var v int64
	if err := s.pool.QueryRow(ctx, q, t.sequence, next).Scan(&v); err != nil {
		return 0, fmt.Errorf("reset %s: %w", t.sequence, err)
	}
	return v, nil
}

// --- Config documents ---

func configTable(table models.ConfigTable) (string, error) {
	switch table {
	case models.ConfigCommon, models.ConfigDefaultStream:
		return string(table), nil
	}
	return "", fmt.Errorf("unknown config table %q", table)
}

func (s *PostgresStore) LoadConfig(ctx context.Context, table models.ConfigTable, group int64) (settings.Document, error) {
	name, err := configTable(table)
	if err != nil {
		return nil, err
	}
	var raw []byte
	err = s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT config FROM %s WHERE id_group = $1`, name), group,
	).Scan(&raw)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	doc := settings.Document{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
	}
	return doc, nil
}

// StoreConfig writes doc for group, union-merged into whatever is stored.
func (s *PostgresStore) StoreConfig(ctx context.Context, table models.ConfigTable, group int64, doc settings.Document) error {
	name, err := configTable(table)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	q := fmt.Sprintf(`INSERT INTO %[1]s (id_group, config) VALUES ($1, $2)
		ON CONFLICT (id_group) DO UPDATE SET config = COALESCE(%[1]s.config, '{}'::jsonb) || EXCLUDED.config`, name)
	if _, err := s.pool.Exec(ctx, q, group, raw); err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	return nil
}
