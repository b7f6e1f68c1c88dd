package service

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"pazzo-admin/internal/model"
	"pazzo-admin/internal/repository"
	"pazzo-admin/internal/resource"
	"pazzo-admin/pkg/apierror"
	"pazzo-admin/pkg/uid"
)

// RecordService implements the collection endpoints for every configured
// resource.
type RecordService struct {
	repo     repository.RecordRepository
	table    *resource.Table
	maxImage int64
	log      *zap.Logger
	now      func() time.Time
}

// NewRecordService creates a record service. maxImage caps stored images.
func NewRecordService(repo repository.RecordRepository, table *resource.Table, maxImage int64, log *zap.Logger) *RecordService {
	if log == nil {
		log = zap.NewNop()
	}
	if maxImage <= 0 {
		maxImage = resource.MaxImageBytes
	}
	return &RecordService{repo: repo, table: table, maxImage: maxImage, log: log, now: time.Now}
}

// Table returns the served resource table.
func (s *RecordService) Table() *resource.Table {
	return s.table
}

func (s *RecordService) config(key string) (resource.Config, error) {
	cfg, ok := s.table.Lookup(key)
	if !ok {
		return resource.Config{}, apierror.NotFound("Unknown collection " + key)
	}
	return cfg, nil
}

// List returns a collection in insertion order.
func (s *RecordService) List(ctx context.Context, key string) ([]model.Record, error) {
	if _, err := s.config(key); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, key)
}

// Create validates in and stores a new record with a fresh identifier.
func (s *RecordService) Create(ctx context.Context, key string, in model.RecordInput) (*model.Record, error) {
	cfg, err := s.config(key)
	if err != nil {
		return nil, err
	}
	if err := s.validate(in); err != nil {
		return nil, err
	}
	if cfg.ImageRequiredOnCreate && len(in.ImageData) == 0 {
		return nil, apierror.ValidationError("Image is required", apierror.FieldError{Field: "image", Message: "required"})
	}

	now := s.now().UTC()
	rec := &model.Record{
		ID:          uid.NewRecordID(),
		Collection:  key,
		Name:        strings.TrimSpace(in.Name),
		Price:       in.Price,
		Description: strings.TrimSpace(in.Description),
		ImageData:   in.ImageData,
		ImageType:   in.ImageType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.log.Info("record created", zap.String("collection", key), zap.String("id", rec.ID))
	return rec, nil
}

// Update replaces the fields of record id. Without a new image the stored
// one is kept.
func (s *RecordService) Update(ctx context.Context, key, id string, in model.RecordInput) (*model.Record, error) {
	if _, err := s.config(key); err != nil {
		return nil, err
	}
	if !uid.IsRecordID(id) {
		return nil, apierror.NotFound("Item not found")
	}
	if err := s.validate(in); err != nil {
		return nil, err
	}

	rec, err := s.repo.Get(ctx, key, id)
	if err != nil {
		return nil, notFound(err)
	}
	rec.Name = strings.TrimSpace(in.Name)
	rec.Price = in.Price
	rec.Description = strings.TrimSpace(in.Description)
	if len(in.ImageData) > 0 {
		rec.ImageData = in.ImageData
		rec.ImageType = in.ImageType
	}
	rec.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, notFound(err)
	}
	s.log.Info("record updated", zap.String("collection", key), zap.String("id", id))
	return rec, nil
}

// Delete removes record id.
func (s *RecordService) Delete(ctx context.Context, key, id string) error {
	if _, err := s.config(key); err != nil {
		return err
	}
	if !uid.IsRecordID(id) {
		return apierror.NotFound("Item not found")
	}
	if err := s.repo.Delete(ctx, key, id); err != nil {
		return notFound(err)
	}
	s.log.Info("record deleted", zap.String("collection", key), zap.String("id", id))
	return nil
}

// Stats returns one entry per configured collection, including empty ones.
func (s *RecordService) Stats(ctx context.Context) ([]model.CollectionStats, error) {
	stored, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]model.CollectionStats, len(stored))
	for _, st := range stored {
		byKey[st.Collection] = st
	}

	out := make([]model.CollectionStats, 0, len(s.table.Resources))
	for _, key := range s.table.Keys() {
		st, ok := byKey[key]
		if !ok {
			st = model.CollectionStats{Collection: key}
		}
		out = append(out, st)
	}
	return out, nil
}

// Reset removes every record.
func (s *RecordService) Reset(ctx context.Context) error {
	return s.repo.Reset(ctx)
}

func (s *RecordService) validate(in model.RecordInput) error {
	var details []apierror.FieldError
	if strings.TrimSpace(in.Name) == "" {
		details = append(details, apierror.FieldError{Field: "name", Message: "required"})
	}
	if in.Price < 0 || math.IsNaN(in.Price) || math.IsInf(in.Price, 0) {
		details = append(details, apierror.FieldError{Field: "price", Message: "must be non-negative"})
	}
	if strings.TrimSpace(in.Description) == "" {
		details = append(details, apierror.FieldError{Field: "description", Message: "required"})
	}
	if len(details) > 0 {
		return apierror.ValidationError("Name, price and description are required", details...)
	}

	if len(in.ImageData) > 0 {
		if int64(len(in.ImageData)) > s.maxImage {
			return apierror.PayloadTooLarge("Image is too large")
		}
		if !strings.HasPrefix(http.DetectContentType(in.ImageData), "image/") {
			return apierror.ValidationError("Image must be an image file",
				apierror.FieldError{Field: "image", Message: "not an image"})
		}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apierror.NotFound("Item not found")
	}
	return err
}
