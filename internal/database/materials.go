package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clientportal/internal/apperrors"
	"clientportal/internal/workflow"
)

type Material struct {
	ID                  uuid.UUID  `json:"id"`
	ProjectID           uuid.UUID  `json:"project_id"`
	FileName            string     `json:"file_name"`
	FileURL             string     `json:"file_url"`
	StorageKey          string     `json:"storage_key"`
	FileType            string     `json:"file_type,omitempty"`
	FileSize            int64      `json:"file_size"`
	BusinessDescription string     `json:"business_description,omitempty"`
	DesiredColors       string     `json:"desired_colors,omitempty"`
	SocialMedia         string     `json:"social_media,omitempty"`
	PhoneWhatsapp       string     `json:"phone_whatsapp,omitempty"`
	UploadedBy          *uuid.UUID `json:"uploaded_by"`
	CreatedAt           time.Time  `json:"created_at"`
}

// CreateMaterial records an uploaded file and its material_upload activity.
// Empty optional fields are stored as NULL.
func (s *service) CreateMaterial(ctx context.Context, material *Material) (*ProjectActivity, error) {
	var activity *ProjectActivity
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO project_materials (project_id, file_name, file_url, storage_key, file_type, file_size,
				business_description, desired_colors, social_media, phone_whatsapp, uploaded_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
			RETURNING id, created_at`,
			material.ProjectID,
			material.FileName,
			material.FileURL,
			material.StorageKey,
			nullString(material.FileType),
			material.FileSize,
			nullString(material.BusinessDescription),
			nullString(material.DesiredColors),
			nullString(material.SocialMedia),
			nullString(material.PhoneWhatsapp),
			nullUUID(material.UploadedBy),
		).Scan(&material.ID, &material.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create material: %w", err)
		}

		activity = &ProjectActivity{
			ProjectID:   material.ProjectID,
			UserID:      material.UploadedBy,
			Action:      string(workflow.ActionMaterialUpload),
			Description: fmt.Sprintf("Material enviado: %s", material.FileName),
		}
		return insertActivity(ctx, tx, activity)
	})
	if err != nil {
		return nil, err
	}
	return activity, nil
}

const materialColumns = `id, project_id, file_name, file_url, storage_key, COALESCE(file_type, ''), file_size,
	COALESCE(business_description, ''), COALESCE(desired_colors, ''), COALESCE(social_media, ''),
	COALESCE(phone_whatsapp, ''), uploaded_by, created_at`

func scanMaterial(row interface{ Scan(...any) error }) (*Material, error) {
	material := &Material{}
	var uploadedBy uuid.NullUUID
	if err := row.Scan(
		&material.ID, &material.ProjectID, &material.FileName, &material.FileURL, &material.StorageKey,
		&material.FileType, &material.FileSize, &material.BusinessDescription, &material.DesiredColors,
		&material.SocialMedia, &material.PhoneWhatsapp, &uploadedBy, &material.CreatedAt,
	); err != nil {
		return nil, err
	}
	if uploadedBy.Valid {
		id := uploadedBy.UUID
		material.UploadedBy = &id
	}
	return material, nil
}

// GetMaterial returns one material of a project.
func (s *service) GetMaterial(ctx context.Context, projectID, materialID uuid.UUID) (*Material, error) {
	material, err := scanMaterial(s.db.QueryRowContext(ctx, `
		SELECT `+materialColumns+`
		FROM project_materials
		WHERE id = $1 AND project_id = $2`, materialID, projectID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("material %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get material: %w", err)
	}
	return material, nil
}

// ListMaterials returns a project's materials, newest first.
func (s *service) ListMaterials(ctx context.Context, projectID uuid.UUID) ([]*Material, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+materialColumns+`
		FROM project_materials
		WHERE project_id = $1
		ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	defer rows.Close()

	materials := []*Material{}
	for rows.Next() {
		material, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan material: %w", err)
		}
		materials = append(materials, material)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate materials: %w", err)
	}
	return materials, nil
}
