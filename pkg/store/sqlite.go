package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"foodstreet/pkg/db"
	"foodstreet/pkg/model"
)

// Store defines the repository interface.
// It composes all sub-interfaces for full store access.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	POIStore
	ShopStore
	PlaybackStore
	CacheStore
	StateStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(d *db.DB) *SQLiteStore {
	return &SQLiteStore{db: d}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- POI ---

const poiSelect = `SELECT p.id, p.latitude, p.longitude, p.radius_meters, p.priority,
		p.map_link, p.image_url, p.audio_url,
		COALESCE(t.name, f.name), COALESCE(t.description, f.description),
		COALESCE(t.tts_text, f.tts_text), COALESCE(t.lang_code, f.lang_code)
	FROM pois p
	LEFT JOIN poi_translations t ON t.poi_id = p.id AND t.lang_code = ?
	LEFT JOIN poi_translations f ON f.poi_id = p.id AND f.lang_code = 'vi'`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPOI(row rowScanner) (model.POI, error) {
	var p model.POI
	var name, desc, tts, lang sql.NullString
	err := row.Scan(&p.ID, &p.Lat, &p.Lon, &p.RadiusMeters, &p.Priority,
		&p.MapLink, &p.ImageURL, &p.AudioURL,
		&name, &desc, &tts, &lang)
	if err != nil {
		return p, err
	}

	p.Name = name.String
	if !name.Valid || p.Name == "" {
		p.Name = p.ID
	}
	p.Description = desc.String
	p.Narration = tts.String
	p.Language = model.DefaultLanguage
	if lang.Valid && lang.String != "" {
		p.Language = lang.String
	}
	return p, nil
}

func (s *SQLiteStore) GetPOIs(ctx context.Context, lang string) ([]model.POI, error) {
	lang = model.NormalizeLanguage(lang)
	rows, err := s.db.QueryContext(ctx,
		poiSelect+` WHERE p.is_active = 1 ORDER BY p.priority DESC, p.rowid ASC`, lang)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pois []model.POI
	for rows.Next() {
		p, err := scanPOI(rows)
		if err != nil {
			return nil, err
		}
		pois = append(pois, p)
	}
	return pois, rows.Err()
}

func (s *SQLiteStore) GetPOI(ctx context.Context, id, lang string) (*model.POI, error) {
	lang = model.NormalizeLanguage(lang)
	p, err := scanPOI(s.db.QueryRowContext(ctx, poiSelect+` WHERE p.id = ?`, lang, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) ReplaceFromRemote(ctx context.Context, shops []model.Shop) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "UPDATE pois SET is_active = 0"); err != nil {
		return fmt.Errorf("deactivate pois: %w", err)
	}

	for i := range shops {
		sh := &shops[i]
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO pois (id, latitude, longitude, radius_meters, priority, map_link, image_url, audio_url, is_active)
			 VALUES (?, ?, ?, ?, ?, ?, '', ?, 1)`,
			sh.ID, sh.Latitude, sh.Longitude, sh.RadiusMeters, sh.Priority,
			model.MapLink(sh.Latitude, sh.Longitude), sh.AudioURL)
		if err != nil {
			return fmt.Errorf("upsert poi %s: %w", sh.ID, err)
		}
		if err := upsertTranslation(ctx, tx, sh); err != nil {
			return fmt.Errorf("upsert translation %s: %w", sh.ID, err)
		}
	}

	return tx.Commit()
}

func upsertTranslation(ctx context.Context, tx *sql.Tx, sh *model.Shop) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO poi_translations (poi_id, lang_code, name, description, tts_text)
		 VALUES (?, 'vi', ?, ?, ?)
		 ON CONFLICT(poi_id, lang_code) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			tts_text = excluded.tts_text`,
		sh.ID, sh.ShopName, sh.Description, sh.TTSText)
	return err
}

// --- Shops ---

const shopSelect = `SELECT p.id, p.latitude, p.longitude, p.radius_meters, p.priority, p.audio_url,
		t.name, t.description, t.tts_text
	FROM pois p
	LEFT JOIN poi_translations t ON p.id = t.poi_id AND t.lang_code = 'vi'`

func scanShop(row rowScanner) (model.Shop, error) {
	var sh model.Shop
	var name, desc, tts sql.NullString
	err := row.Scan(&sh.ID, &sh.Latitude, &sh.Longitude, &sh.RadiusMeters, &sh.Priority, &sh.AudioURL,
		&name, &desc, &tts)
	sh.ShopName = name.String
	sh.Description = desc.String
	sh.TTSText = tts.String
	return sh, err
}

func (s *SQLiteStore) ListShops(ctx context.Context, activeOnly bool) ([]model.Shop, error) {
	q := shopSelect
	if activeOnly {
		q += ` WHERE p.is_active = 1`
	}
	rows, err := s.db.QueryContext(ctx, q+` ORDER BY p.priority DESC, p.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shops := []model.Shop{}
	for rows.Next() {
		sh, err := scanShop(rows)
		if err != nil {
			return nil, err
		}
		shops = append(shops, sh)
	}
	return shops, rows.Err()
}

func (s *SQLiteStore) GetShop(ctx context.Context, id string) (*model.Shop, error) {
	sh, err := scanShop(s.db.QueryRowContext(ctx, shopSelect+` WHERE p.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

// UpsertShop writes the shop and its "vi" translation. Priority, image and active flag
// of an existing row are left untouched.
func (s *SQLiteStore) UpsertShop(ctx context.Context, sh *model.Shop) error {
	if strings.TrimSpace(sh.ID) == "" {
		return errors.New("shop id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO pois (id, latitude, longitude, radius_meters, priority, map_link, image_url, audio_url, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, '', ?, 1)
		 ON CONFLICT(id) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			radius_meters = excluded.radius_meters,
			map_link = excluded.map_link,
			audio_url = excluded.audio_url`,
		sh.ID, sh.Latitude, sh.Longitude, sh.RadiusMeters, sh.Priority,
		model.MapLink(sh.Latitude, sh.Longitude), sh.AudioURL)
	if err != nil {
		return fmt.Errorf("upsert poi: %w", err)
	}
	if err := upsertTranslation(ctx, tx, sh); err != nil {
		return fmt.Errorf("upsert translation: %w", err)
	}
	return tx.Commit()
}

// DeleteShop removes the shop and all its translations. It reports whether a POI row existed.
func (s *SQLiteStore) DeleteShop(ctx context.Context, id string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM poi_translations WHERE poi_id = ?", id); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM pois WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, tx.Commit()
}

// --- Playback ledger ---

func (s *SQLiteStore) GetPlayback(ctx context.Context, poiID string) (*model.PlaybackRecord, error) {
	var rec model.PlaybackRecord
	var unix int64
	err := s.db.QueryRowContext(ctx,
		"SELECT poi_id, last_played_utc, last_language, play_count FROM playback_states WHERE poi_id = ?", poiID).
		Scan(&rec.POIID, &unix, &rec.LastLanguage, &rec.PlayCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.LastPlayedAt = time.Unix(unix, 0).UTC()
	return &rec, nil
}

// RecordPlayback stamps a successful playback and increments the play counter.
func (s *SQLiteStore) RecordPlayback(ctx context.Context, poiID, lang string, at time.Time) (*model.PlaybackRecord, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO playback_states (poi_id, last_played_utc, last_language, play_count)
		 VALUES (?, ?, ?, 1)
		 ON CONFLICT(poi_id) DO UPDATE SET
			last_played_utc = excluded.last_played_utc,
			last_language = excluded.last_language,
			play_count = playback_states.play_count + 1`,
		poiID, at.UTC().Unix(), lang)
	if err != nil {
		return nil, err
	}
	return s.GetPlayback(ctx, poiID)
}

func (s *SQLiteStore) ListPlayback(ctx context.Context) ([]model.PlaybackRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT poi_id, last_played_utc, last_language, play_count FROM playback_states ORDER BY last_played_utc DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PlaybackRecord
	for rows.Next() {
		var rec model.PlaybackRecord
		var unix int64
		if err := rows.Scan(&rec.POIID, &unix, &rec.LastLanguage, &rec.PlayCount); err != nil {
			return nil, err
		}
		rec.LastPlayedAt = time.Unix(unix, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// --- Cache ---

func (s *SQLiteStore) GetCache(ctx context.Context, key string) ([]byte, bool) {
	var val []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM cache WHERE key = ?", key).Scan(&val)
	if err != nil {
		// Errors are treated as a miss
		return nil, false
	}
	return val, true
}

func (s *SQLiteStore) SetCache(ctx context.Context, key string, val []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO cache (key, value, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)", key, val)
	return err
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT value FROM app_settings WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val.String, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	_, err := s.db.ExecContext(ctx, "INSERT OR REPLACE INTO app_settings (key, value) VALUES (?, ?)", key, val)
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM app_settings WHERE key = ?", key)
	return err
}
