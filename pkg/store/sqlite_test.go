package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"foodstreet/pkg/db"
	"foodstreet/pkg/model"
)

// setupTestStore creates a test database and store for each test.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}
	s := NewSQLiteStore(d)
	t.Cleanup(func() { s.Close() })
	return s
}

func addTranslation(t *testing.T, s *SQLiteStore, poiID, lang, name, tts string) {
	t.Helper()
	_, err := s.db.Exec(`INSERT INTO poi_translations (poi_id, lang_code, name, description, tts_text) VALUES (?, ?, ?, '', ?)`,
		poiID, lang, name, tts)
	if err != nil {
		t.Fatalf("insert translation: %v", err)
	}
}

func setPriority(t *testing.T, s *SQLiteStore, id string, p int) {
	t.Helper()
	if _, err := s.db.Exec("UPDATE pois SET priority = ? WHERE id = ?", p, id); err != nil {
		t.Fatal(err)
	}
}

// =============================================================================
// POIStore Tests
// =============================================================================

func TestPOIStore_GetPOIs(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	for _, sh := range []model.Shop{
		{ID: "oc-oanh", ShopName: "Oc Oanh", Latitude: 10.7601, Longitude: 106.7029, RadiusMeters: 40, TTSText: "Quan oc noi tieng"},
		{ID: "sushi-ko", ShopName: "Sushi Ko", Latitude: 10.7610, Longitude: 106.7035, RadiusMeters: 25},
		{ID: "bbq", ShopName: "BBQ", Latitude: 10.7620, Longitude: 106.7040, RadiusMeters: 30},
	} {
		sh := sh
		if err := s.UpsertShop(ctx, &sh); err != nil {
			t.Fatalf("UpsertShop(%s): %v", sh.ID, err)
		}
	}
	setPriority(t, s, "bbq", 5)
	addTranslation(t, s, "oc-oanh", "en", "Oanh Snail House", "Famous snail restaurant")

	tests := []struct {
		name      string
		lang      string
		wantOrder []string
		wantName  string // of oc-oanh
		wantTTS   string
		wantLang  string
	}{
		{
			name:      "Vietnamese",
			lang:      "vi",
			wantOrder: []string{"bbq", "oc-oanh", "sushi-ko"},
			wantName:  "Oc Oanh",
			wantTTS:   "Quan oc noi tieng",
			wantLang:  "vi",
		},
		{
			name:      "English With Fallback",
			lang:      "EN",
			wantOrder: []string{"bbq", "oc-oanh", "sushi-ko"},
			wantName:  "Oanh Snail House",
			wantTTS:   "Famous snail restaurant",
			wantLang:  "en",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pois, err := s.GetPOIs(ctx, tt.lang)
			if err != nil {
				t.Fatalf("GetPOIs failed: %v", err)
			}
			if len(pois) != len(tt.wantOrder) {
				t.Fatalf("got %d POIs, want %d", len(pois), len(tt.wantOrder))
			}
			for i, id := range tt.wantOrder {
				if pois[i].ID != id {
					t.Errorf("pois[%d] = %s, want %s", i, pois[i].ID, id)
				}
			}
			oc := pois[1]
			if oc.Name != tt.wantName || oc.Narration != tt.wantTTS || oc.Language != tt.wantLang {
				t.Errorf("oc-oanh = %q/%q/%q, want %q/%q/%q", oc.Name, oc.Narration, oc.Language, tt.wantName, tt.wantTTS, tt.wantLang)
			}
			// sushi-ko only has "vi"
			if pois[2].Language != "vi" {
				t.Errorf("fallback language = %q, want vi", pois[2].Language)
			}
		})
	}
}

func TestPOIStore_GetPOI_NameFallsBackToID(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	if _, err := s.db.Exec("INSERT INTO pois (id, latitude, longitude, radius_meters) VALUES ('bare', 10.76, 106.70, 40)"); err != nil {
		t.Fatal(err)
	}

	p, err := s.GetPOI(ctx, "bare", "vi")
	if err != nil {
		t.Fatalf("GetPOI failed: %v", err)
	}
	if p == nil {
		t.Fatal("GetPOI returned nil")
	}
	if p.Name != "bare" || p.Language != "vi" || p.HasPlayableContent() {
		t.Errorf("unexpected POI: %+v", p)
	}

	missing, err := s.GetPOI(ctx, "nope", "vi")
	if err != nil || missing != nil {
		t.Errorf("GetPOI(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestPOIStore_ReplaceFromRemote(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	first := []model.Shop{
		{ID: "a", ShopName: "A", Latitude: 10.76, Longitude: 106.70, RadiusMeters: 40},
		{ID: "b", ShopName: "B", Latitude: 10.77, Longitude: 106.71, RadiusMeters: 40},
	}
	if err := s.ReplaceFromRemote(ctx, first); err != nil {
		t.Fatalf("ReplaceFromRemote failed: %v", err)
	}

	second := []model.Shop{
		{ID: "b", ShopName: "B2", Latitude: 10.77, Longitude: 106.71, RadiusMeters: 50, AudioURL: "http://localhost:5187/uploads/b.mp3"},
	}
	if err := s.ReplaceFromRemote(ctx, second); err != nil {
		t.Fatalf("ReplaceFromRemote failed: %v", err)
	}

	pois, err := s.GetPOIs(ctx, "vi")
	if err != nil {
		t.Fatal(err)
	}
	if len(pois) != 1 {
		t.Fatalf("got %d active POIs, want 1", len(pois))
	}
	b := pois[0]
	if b.ID != "b" || b.Name != "B2" || b.RadiusMeters != 50 || !b.HasAudio() {
		t.Errorf("unexpected POI: %+v", b)
	}
	if b.MapLink != "https://maps.google.com/?q=10.77,106.71" {
		t.Errorf("MapLink = %q", b.MapLink)
	}

	// Deactivated rows are kept, only hidden
	var total int
	if err := s.db.QueryRow("SELECT count(*) FROM pois").Scan(&total); err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Errorf("total rows = %d, want 2", total)
	}
}

// =============================================================================
// ShopStore Tests
// =============================================================================

func TestShopStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	sh := &model.Shop{ID: "x1", ShopName: "Bun Bo", Latitude: 10.761, Longitude: 106.703, RadiusMeters: 40, AudioURL: "/uploads/x1.mp3"}
	if err := s.UpsertShop(ctx, sh); err != nil {
		t.Fatalf("UpsertShop failed: %v", err)
	}
	setPriority(t, s, "x1", 3)

	sh.ShopName = "Bun Bo Hue"
	sh.RadiusMeters = 30
	if err := s.UpsertShop(ctx, sh); err != nil {
		t.Fatalf("UpsertShop (update) failed: %v", err)
	}

	got, err := s.GetShop(ctx, "x1")
	if err != nil || got == nil {
		t.Fatalf("GetShop = %v, %v", got, err)
	}
	if got.ShopName != "Bun Bo Hue" || got.RadiusMeters != 30 || got.AudioURL != "/uploads/x1.mp3" {
		t.Errorf("unexpected shop: %+v", got)
	}
	if got.Priority != 3 {
		t.Errorf("priority = %d, want 3 (kept on update)", got.Priority)
	}

	list, err := s.ListShops(ctx, false)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListShops = %v, %v", list, err)
	}

	deleted, err := s.DeleteShop(ctx, "x1")
	if err != nil || !deleted {
		t.Errorf("DeleteShop = %v, %v; want true, nil", deleted, err)
	}
	deleted, err = s.DeleteShop(ctx, "x1")
	if err != nil || deleted {
		t.Errorf("second DeleteShop = %v, %v; want false, nil", deleted, err)
	}

	if err := s.UpsertShop(ctx, &model.Shop{ShopName: "no id"}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestShopStore_ListShops_Ordering(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	for _, id := range []string{"c", "a", "b"} {
		if err := s.UpsertShop(ctx, &model.Shop{ID: id, ShopName: id, RadiusMeters: 40}); err != nil {
			t.Fatal(err)
		}
	}
	setPriority(t, s, "c", 1)
	if _, err := s.db.Exec("UPDATE pois SET is_active = 0 WHERE id = 'b'"); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListShops(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"c", "a", "b"}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("all[%d] = %s, want %s", i, all[i].ID, id)
		}
	}

	active, err := s.ListShops(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 {
		t.Errorf("active = %d, want 2", len(active))
	}
}

// =============================================================================
// PlaybackStore Tests
// =============================================================================

func TestPlaybackStore(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	rec, err := s.GetPlayback(ctx, "a")
	if err != nil || rec != nil {
		t.Fatalf("GetPlayback(empty) = %v, %v; want nil, nil", rec, err)
	}

	t0 := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	rec, err = s.RecordPlayback(ctx, "a", "vi", t0)
	if err != nil {
		t.Fatalf("RecordPlayback failed: %v", err)
	}
	if rec.PlayCount != 1 || rec.LastLanguage != "vi" || !rec.LastPlayedAt.Equal(t0) {
		t.Errorf("unexpected record: %+v", rec)
	}

	t1 := t0.Add(2 * time.Minute)
	rec, err = s.RecordPlayback(ctx, "a", "en", t1)
	if err != nil {
		t.Fatalf("RecordPlayback failed: %v", err)
	}
	if rec.PlayCount != 2 || rec.LastLanguage != "en" || !rec.LastPlayedAt.Equal(t1) {
		t.Errorf("unexpected record: %+v", rec)
	}

	if _, err := s.RecordPlayback(ctx, "b", "vi", t0); err != nil {
		t.Fatal(err)
	}
	list, err := s.ListPlayback(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].POIID != "a" {
		t.Errorf("ListPlayback = %+v", list)
	}
}

// =============================================================================
// Cache & State Tests
// =============================================================================

func TestCacheStore(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	if _, ok := s.GetCache(ctx, "k"); ok {
		t.Error("expected miss")
	}
	if err := s.SetCache(ctx, "k", []byte("mp3")); err != nil {
		t.Fatal(err)
	}
	val, ok := s.GetCache(ctx, "k")
	if !ok || string(val) != "mp3" {
		t.Errorf("GetCache = %q, %v", val, ok)
	}
}

func TestStateStore(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	val, ok := s.GetState(ctx, db.SettingAudioCooldown)
	if !ok || val != "90" {
		t.Errorf("seeded cooldown = %q, %v", val, ok)
	}

	if err := s.SetState(ctx, "admin_base_urls", "http://10.0.0.5:5187"); err != nil {
		t.Fatal(err)
	}
	val, ok = s.GetState(ctx, "admin_base_urls")
	if !ok || val != "http://10.0.0.5:5187" {
		t.Errorf("GetState = %q, %v", val, ok)
	}

	if err := s.DeleteState(ctx, "admin_base_urls"); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.GetState(ctx, "admin_base_urls"); ok {
		t.Error("expected key to be deleted")
	}
}
