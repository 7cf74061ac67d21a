package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/dgnotes/internal/models"
)

// DatabaseGenerations persists generations with gorm so precached shell
// responses survive restarts of the edge.
type DatabaseGenerations struct {
	db *gorm.DB
}

// NewDatabaseGenerations returns a store over db. The tables must already be migrated.
func NewDatabaseGenerations(db *gorm.DB) *DatabaseGenerations {
	return &DatabaseGenerations{db: db}
}

func (s *DatabaseGenerations) Open(ctx context.Context, label string) (Generation, error) {
	row := models.CacheGeneration{Label: label}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("open generation %q: %w", label, err)
	}
	return &databaseGeneration{db: s.db, label: label}, nil
}

func (s *DatabaseGenerations) Labels(ctx context.Context) ([]string, error) {
	var labels []string
	err := s.db.WithContext(ctx).
		Model(&models.CacheGeneration{}).
		Order("created_at, label").
		Pluck("label", &labels).Error
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	return labels, nil
}

func (s *DatabaseGenerations) Delete(ctx context.Context, label string) (bool, error) {
	var existed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("generation = ?", label).Delete(&models.CachedResponse{}).Error; err != nil {
			return err
		}
		res := tx.Where("label = ?", label).Delete(&models.CacheGeneration{})
		if res.Error != nil {
			return res.Error
		}
		existed = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete generation %q: %w", label, err)
	}
	return existed, nil
}

// Match checks generations oldest first.
func (s *DatabaseGenerations) Match(ctx context.Context, req *http.Request) (*StoredResponse, bool, error) {
	if !cacheable(req) {
		return nil, false, nil
	}

	var row models.CachedResponse
	err := s.db.WithContext(ctx).
		Joins("JOIN cache_generations ON cache_generations.label = cached_responses.generation").
		Where("cached_responses.method = ? AND cached_responses.url = ?", http.MethodGet, requestKey(req.URL)).
		Order("cache_generations.created_at").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("match %s: %w", req.URL.Path, err)
	}
	return fromRow(row)
}

type databaseGeneration struct {
	db    *gorm.DB
	label string
}

func (g *databaseGeneration) Label() string { return g.label }

func (g *databaseGeneration) PutAll(ctx context.Context, responses []StoredResponse) error {
	rows := make([]models.CachedResponse, 0, len(responses))
	for _, resp := range responses {
		header, err := json.Marshal(resp.Header)
		if err != nil {
			return fmt.Errorf("encode headers for %s: %w", resp.URL, err)
		}
		body := resp.Body
		if body == nil {
			body = []byte{}
		}
		rows = append(rows, models.CachedResponse{
			Generation: g.label,
			Method:     http.MethodGet,
			URL:        resp.URL,
			Status:     resp.Status,
			Header:     datatypes.JSON(header),
			Body:       body,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "generation"}, {Name: "method"}, {Name: "url"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "header", "body", "updated_at"}),
		}).Create(&rows).Error
	})
}

func (g *databaseGeneration) Match(ctx context.Context, req *http.Request) (*StoredResponse, bool, error) {
	if !cacheable(req) {
		return nil, false, nil
	}

	var row models.CachedResponse
	err := g.db.WithContext(ctx).
		Where("generation = ? AND method = ? AND url = ?", g.label, http.MethodGet, requestKey(req.URL)).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("match %s in %q: %w", req.URL.Path, g.label, err)
	}
	return fromRow(row)
}

func fromRow(row models.CachedResponse) (*StoredResponse, bool, error) {
	header := http.Header{}
	if len(row.Header) > 0 {
		if err := json.Unmarshal(row.Header, &header); err != nil {
			return nil, false, fmt.Errorf("decode headers for %s: %w", row.URL, err)
		}
	}
	return &StoredResponse{
		Method: row.Method,
		URL:    row.URL,
		Status: row.Status,
		Header: header,
		Body:   row.Body,
	}, true, nil
}
