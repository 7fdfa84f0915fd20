package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMaterialKey(t *testing.T) {
	user := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	project := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	at := time.UnixMilli(1718000000123)

	assert.Equal(t,
		"11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222/1718000000123_logo.png",
		MaterialKey(user, project, "logo.png", at))
	assert.Equal(t,
		"11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222/1718000000123_brief.pdf",
		MaterialKey(user, project, `C:\Users\ana\brief.pdf`, at))
	assert.Equal(t,
		"11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222/1718000000123_file",
		MaterialKey(user, project, "", at))
}

func TestObjectURL(t *testing.T) {
	key := "u/p/1_minha logo.png"

	assert.Equal(t, "https://cdn.example.com/u/p/1_minha%20logo.png",
		ObjectURL("https://cdn.example.com", "http://minio:9000", "project-materials", "us-east-1", key))
	assert.Equal(t, "http://minio:9000/project-materials/u/p/1_minha%20logo.png",
		ObjectURL("", "http://minio:9000", "project-materials", "us-east-1", key))
	assert.Equal(t, "https://project-materials.s3.sa-east-1.amazonaws.com/u/p/1_minha%20logo.png",
		ObjectURL("", "", "project-materials", "sa-east-1", key))
}
