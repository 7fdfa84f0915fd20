package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"clientportal/internal/apperrors"
	"clientportal/internal/authz"
	"clientportal/internal/database"
	"clientportal/internal/metrics"
	"clientportal/internal/realtime"
	"clientportal/internal/storage"
)

const downloadURLTTL = 15 * time.Minute

// FileStore is the object storage used for materials.
type FileStore interface {
	UploadMaterial(ctx context.Context, in storage.MaterialUpload) (*storage.UploadResult, error)
	GeneratePresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error)
	CheckFileExists(ctx context.Context, key string) (bool, error)
}

// MaterialInput is a file plus the optional briefing fields sent with it.
type MaterialInput struct {
	ProjectID           uuid.UUID
	FileName            string
	ContentType         string
	Size                int64
	Body                io.Reader
	BusinessDescription string
	DesiredColors       string
	SocialMedia         string
	PhoneWhatsapp       string
}

type MaterialService struct {
	db    database.Service
	files FileStore
	authz Authorizer
	out   publisher
	log   *slog.Logger
}

func NewMaterialService(db database.Service, files FileStore, az Authorizer, pub realtime.Publisher, log *slog.Logger) *MaterialService {
	log = orDefault(log)
	return &MaterialService{db: db, files: files, authz: az, out: publisher{pub: pub, log: log}, log: log}
}

// Submit uploads the file and then records it. The two steps are not atomic:
// if the row cannot be written the uploaded object stays in the bucket and
// its key is logged.
func (s *MaterialService) Submit(ctx context.Context, actor Actor, in MaterialInput) (*database.Material, error) {
	if err := s.authz.Authorize(actor.Role, authz.ResourceMaterial, authz.ActionCreate); err != nil {
		return nil, err
	}
	if in.Body == nil || in.FileName == "" {
		return nil, apperrors.BadRequest("file is required")
	}
	if _, err := s.db.GetProject(ctx, in.ProjectID, actor.Viewer()); err != nil {
		return nil, err
	}

	upload, err := s.files.UploadMaterial(ctx, storage.MaterialUpload{
		UserID:      actor.UserID,
		ProjectID:   in.ProjectID,
		FileName:    in.FileName,
		ContentType: in.ContentType,
		Size:        in.Size,
		Body:        in.Body,
	})
	if err != nil {
		metrics.Observe("material_upload", err)
		return nil, err
	}

	uploader := actor.UserID
	material := &database.Material{
		ProjectID:           in.ProjectID,
		FileName:            in.FileName,
		FileURL:             upload.URL,
		StorageKey:          upload.Key,
		FileType:            in.ContentType,
		FileSize:            upload.FileSize,
		BusinessDescription: in.BusinessDescription,
		DesiredColors:       in.DesiredColors,
		SocialMedia:         in.SocialMedia,
		PhoneWhatsapp:       in.PhoneWhatsapp,
		UploadedBy:          &uploader,
	}
	activity, err := s.db.CreateMaterial(ctx, material)
	metrics.Observe("material_upload", err)
	if err != nil {
		s.log.Error("material row not written, stored object orphaned",
			"key", upload.Key, "project_id", in.ProjectID, "error", err)
		return nil, err
	}
	s.out.activity(ctx, activity)
	return material, nil
}

func (s *MaterialService) List(ctx context.Context, actor Actor, projectID uuid.UUID) ([]*database.Material, error) {
	if err := s.authz.Authorize(actor.Role, authz.ResourceMaterial, authz.ActionRead); err != nil {
		return nil, err
	}
	if _, err := s.db.GetProject(ctx, projectID, actor.Viewer()); err != nil {
		return nil, err
	}
	return s.db.ListMaterials(ctx, projectID)
}

// DownloadURL returns a short-lived link to a stored material.
func (s *MaterialService) DownloadURL(ctx context.Context, actor Actor, projectID, materialID uuid.UUID) (string, error) {
	if err := s.authz.Authorize(actor.Role, authz.ResourceMaterial, authz.ActionRead); err != nil {
		return "", err
	}
	if _, err := s.db.GetProject(ctx, projectID, actor.Viewer()); err != nil {
		return "", err
	}
	material, err := s.db.GetMaterial(ctx, projectID, materialID)
	if err != nil {
		return "", err
	}
	exists, err := s.files.CheckFileExists(ctx, material.StorageKey)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", apperrors.NotFound("file no longer in storage")
	}
	return s.files.GeneratePresignedURL(ctx, material.StorageKey, downloadURLTTL)
}
