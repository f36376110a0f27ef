// Package store persists organization theme overrides and the apply log.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/codr1/orgthemes/internal/db"
	"github.com/codr1/orgthemes/internal/models"
)

var ErrNotFound = errors.New("organization theme not found")

// Apply outcomes recorded in the apply log.
const (
	OutcomeApplied    = "applied"
	OutcomeFallback   = "fallback"
	OutcomeFailed     = "failed"
	OutcomeSuperseded = "superseded"
)

// OrganizationTheme is the stored override tier of one organization.
type OrganizationTheme struct {
	OrganizationID string             `json:"organizationId"`
	TemplateID     string             `json:"templateId,omitempty"`
	Overrides      models.ThemeUpdate `json:"overrides"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

type ApplyRecord struct {
	ID             int64     `json:"id"`
	OrganizationID string    `json:"organizationId"`
	ThemeID        string    `json:"themeId"`
	CacheKey       string    `json:"cacheKey,omitempty"`
	Outcome        string    `json:"outcome"`
	Error          string    `json:"error,omitempty"`
	RequestID      string    `json:"requestId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Store reads and writes organization themes. It is safe for concurrent use.
type Store struct {
	db  *db.DB
	now func() time.Time
}

func New(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

const selectOrganizationTheme = `
SELECT organization_id, template_id, overrides, created_at, updated_at
FROM organization_themes
WHERE organization_id = ?`

// Load returns the stored overrides for organizationID or ErrNotFound.
func (s *Store) Load(ctx context.Context, organizationID string) (OrganizationTheme, error) {
	row := s.db.QueryRowContext(ctx, selectOrganizationTheme, organizationID)

	var (
		theme     OrganizationTheme
		overrides string
	)
	err := row.Scan(&theme.OrganizationID, &theme.TemplateID, &overrides, &theme.CreatedAt, &theme.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return OrganizationTheme{}, ErrNotFound
	}
	if err != nil {
		return OrganizationTheme{}, fmt.Errorf("load organization theme %s: %w", organizationID, err)
	}

	theme.Overrides, err = models.ParseThemeUpdate([]byte(overrides))
	if err != nil {
		return OrganizationTheme{}, fmt.Errorf("load organization theme %s: %w", organizationID, err)
	}
	return theme, nil
}

const upsertOrganizationTheme = `
INSERT INTO organization_themes (organization_id, template_id, overrides, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (organization_id) DO UPDATE SET
    template_id = excluded.template_id,
    overrides = excluded.overrides,
    updated_at = excluded.updated_at`

// Save upserts theme and returns the stored row.
func (s *Store) Save(ctx context.Context, theme OrganizationTheme) (OrganizationTheme, error) {
	organizationID := strings.TrimSpace(theme.OrganizationID)
	if organizationID == "" {
		return OrganizationTheme{}, errors.New("organization id is required")
	}
	overrides := theme.Overrides
	if overrides == nil {
		overrides = models.ThemeUpdate{}
	}
	data, err := json.Marshal(overrides)
	if err != nil {
		return OrganizationTheme{}, fmt.Errorf("encode overrides: %w", err)
	}

	now := s.now().UTC()
	var saved OrganizationTheme
	err = s.db.RunInTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, upsertOrganizationTheme,
			organizationID, strings.TrimSpace(theme.TemplateID), string(data), now, now,
		); err != nil {
			return fmt.Errorf("save organization theme %s: %w", organizationID, err)
		}

		var stored string
		saved = OrganizationTheme{}
		if err := tx.QueryRowContext(ctx, selectOrganizationTheme, organizationID).Scan(
			&saved.OrganizationID, &saved.TemplateID, &stored, &saved.CreatedAt, &saved.UpdatedAt,
		); err != nil {
			return fmt.Errorf("reload organization theme %s: %w", organizationID, err)
		}
		overrides, err := models.ParseThemeUpdate([]byte(stored))
		if err != nil {
			return err
		}
		saved.Overrides = overrides
		return nil
	})
	if err != nil {
		return OrganizationTheme{}, err
	}
	return saved, nil
}

// Delete removes the stored theme. Deleting a missing theme returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, organizationID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM organization_themes WHERE organization_id = ?`, organizationID)
	if err != nil {
		return fmt.Errorf("delete organization theme %s: %w", organizationID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete organization theme %s: %w", organizationID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOrganizations returns every organization with a stored theme, ordered by id.
func (s *Store) ListOrganizations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT organization_id FROM organization_themes ORDER BY organization_id`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return ids, nil
}

// RecordApply appends to the apply log. The organization must have a stored theme.
func (s *Store) RecordApply(ctx context.Context, record ApplyRecord) (ApplyRecord, error) {
	record.CreatedAt = s.now().UTC()
	result, err := s.db.ExecContext(ctx, `
INSERT INTO theme_apply_log (organization_id, theme_id, cache_key, outcome, error, request_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.OrganizationID, record.ThemeID, record.CacheKey, record.Outcome, record.Error, record.RequestID, record.CreatedAt,
	)
	if err != nil {
		return ApplyRecord{}, fmt.Errorf("record theme apply for %s: %w", record.OrganizationID, err)
	}
	if record.ID, err = result.LastInsertId(); err != nil {
		return ApplyRecord{}, fmt.Errorf("record theme apply for %s: %w", record.OrganizationID, err)
	}
	return record, nil
}

// RecentApplies returns up to limit log records for organizationID, newest first.
func (s *Store) RecentApplies(ctx context.Context, organizationID string, limit int) ([]ApplyRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, organization_id, theme_id, cache_key, outcome, error, request_id, created_at
FROM theme_apply_log
WHERE organization_id = ?
ORDER BY id DESC
LIMIT ?`, organizationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list theme applies for %s: %w", organizationID, err)
	}
	defer rows.Close()

	records := []ApplyRecord{}
	for rows.Next() {
		var r ApplyRecord
		if err := rows.Scan(&r.ID, &r.OrganizationID, &r.ThemeID, &r.CacheKey, &r.Outcome, &r.Error, &r.RequestID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan theme apply: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list theme applies for %s: %w", organizationID, err)
	}
	return records, nil
}

// PruneApplies deletes apply log records created before cutoff and reports how many were removed.
func (s *Store) PruneApplies(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM theme_apply_log WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune theme apply log: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune theme apply log: %w", err)
	}
	return removed, nil
}
