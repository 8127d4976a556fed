package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/your-org/fdsync/internal/config"
	"github.com/your-org/fdsync/internal/models"
	"github.com/your-org/fdsync/internal/settings"
)

// MySQLStore reads the legacy dataset. It never writes.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(ctx context.Context, cfg config.DatabaseConfig) (*MySQLStore, error) {
	db, err := sql.Open("mysql", cfg.MySQLDSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return &MySQLStore{db: db}, nil
}

// NewMySQLStoreFromDB wraps an open handle.
func NewMySQLStoreFromDB(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) Close() error {
	return s.db.Close()
}

func (s *MySQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var mysqlIDQueries = map[models.Entity]string{
	models.EntityStream:       `SELECT id_vstream FROM video_streams`,
	models.EntityDescriptor:   `SELECT id_descriptor FROM face_descriptors`,
	models.EntitySpecialGroup: `SELECT id_special_group FROM special_groups`,
	models.EntityFaceLog:      `SELECT id_log FROM log_faces`,
}

var mysqlLinkQueries = map[models.Entity]string{
	models.EntityStreamLink:       `SELECT id_vstream, id_descriptor FROM link_descriptor_vstream`,
	models.EntitySpecialGroupLink: `SELECT id_sgroup, id_descriptor FROM link_descriptor_sgroup`,
}

func (s *MySQLStore) IDs(ctx context.Context, entity models.Entity) ([]int64, error) {
	q, ok := mysqlIDQueries[entity]
	if !ok {
		return nil, fmt.Errorf("unknown entity %q", entity)
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list %s ids: %w", entity, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", entity, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *MySQLStore) Links(ctx context.Context, entity models.Entity) ([]models.Link, error) {
	q, ok := mysqlLinkQueries[entity]
	if !ok {
		return nil, fmt.Errorf("unknown link entity %q", entity)
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", entity, err)
	}
	defer rows.Close()

	var links []models.Link
	for rows.Next() {
		var l models.Link
		if err := rows.Scan(&l.Owner, &l.Descriptor); err != nil {
			return nil, fmt.Errorf("scan %s: %w", entity, err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func (s *MySQLStore) Stream(ctx context.Context, id int64) (models.VideoStream, bool, error) {
	var (
		v                   models.VideoStream
		ext, url, callback  sql.NullString
		x, y, width, height sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id_vstream, vstream_ext, url, callback_url, region_x, region_y, region_width, region_height
		FROM video_streams WHERE id_vstream = ?`, id,
	).Scan(&v.ID, &ext, &url, &callback, &x, &y, &width, &height)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.VideoStream{}, false, nil
		}
		return models.VideoStream{}, false, fmt.Errorf("get stream %d: %w", id, err)
	}
	v.Extension, v.URL, v.CallbackURL = nullString(ext), nullString(url), nullString(callback)
	v.Region = settings.WorkArea{X: int(x.Int64), Y: int(y.Int64), Width: int(width.Int64), Height: int(height.Int64)}

	v.Settings, err = s.params(ctx,
		`SELECT param_name, param_value FROM video_stream_settings WHERE id_vstream = ?`, id)
	if err != nil {
		return models.VideoStream{}, false, fmt.Errorf("get stream %d settings: %w", id, err)
	}
	return v, true, nil
}

// Descriptor joins the descriptor with its image; a descriptor without an
// image is reported as not found.
func (s *MySQLStore) Descriptor(ctx context.Context, id int64) (models.FaceDescriptor, bool, error) {
	var (
		d    models.FaceDescriptor
		mime sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT fd.id_descriptor, fd.date_start, fd.descriptor_data, di.face_image, di.mime_type
		FROM face_descriptors fd
		INNER JOIN descriptor_images di ON di.id_descriptor = fd.id_descriptor
		WHERE fd.id_descriptor = ?`, id,
	).Scan(&d.ID, &d.DateStart, &d.Data, &d.Image.Data, &mime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.FaceDescriptor{}, false, nil
		}
		return models.FaceDescriptor{}, false, fmt.Errorf("get descriptor %d: %w", id, err)
	}
	d.Image.MimeType = mime.String
	return d, true, nil
}

func (s *MySQLStore) SpecialGroup(ctx context.Context, id int64) (models.SpecialGroup, bool, error) {
	var (
		g               models.SpecialGroup
		token, callback sql.NullString
		max             sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id_special_group, group_name, sg_api_token, callback_url, max_descriptor_count
		FROM special_groups WHERE id_special_group = ?`, id,
	).Scan(&g.ID, &g.Name, &token, &callback, &max)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SpecialGroup{}, false, nil
		}
		return models.SpecialGroup{}, false, fmt.Errorf("get special group %d: %w", id, err)
	}
	g.APIToken, g.CallbackURL = nullString(token), nullString(callback)
	g.MaxDescriptorCount = int(max.Int64)
	return g, true, nil
}

func (s *MySQLStore) FaceLog(ctx context.Context, id int64) (models.FaceLog, bool, error) {
	var (
		l          models.FaceLog
		descriptor sql.NullInt64
		screenshot sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id_log, id_vstream, log_date, id_descriptor, quality, screenshot,
			face_left, face_top, face_width, face_height
		FROM log_faces WHERE id_log = ?`, id,
	).Scan(&l.ID, &l.StreamID, &l.Date, &descriptor, &l.Quality, &screenshot,
		&l.FaceLeft, &l.FaceTop, &l.FaceWidth, &l.FaceHeight)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.FaceLog{}, false, nil
		}
		return models.FaceLog{}, false, fmt.Errorf("get face log %d: %w", id, err)
	}
	if descriptor.Valid {
		l.DescriptorID = &descriptor.Int64
	}
	l.Screenshot = screenshot.String
	return l, true, nil
}

func (s *MySQLStore) CommonSettings(ctx context.Context) ([]settings.Param, error) {
	ps, err := s.params(ctx, `SELECT param_name, param_value FROM common_settings`)
	if err != nil {
		return nil, fmt.Errorf("list common settings: %w", err)
	}
	return ps, nil
}

func (s *MySQLStore) params(ctx context.Context, q string, args ...any) ([]settings.Param, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ps []settings.Param
	for rows.Next() {
		var (
			p     settings.Param
			value sql.NullString
		)
		if err := rows.Scan(&p.Name, &value); err != nil {
			return nil, err
		}
		p.Value = value.String
		ps = append(ps, p)
	}
	return ps, rows.Err()
}
