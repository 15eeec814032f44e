package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/database"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/storage"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testPassword = "str0ng-Passw0rd"

type memoryImageStore struct {
	saved   map[string][]byte
	deleted []string
	next    int
}

func newMemoryImageStore() *memoryImageStore {
	return &memoryImageStore{saved: map[string][]byte{}}
}

func (m *memoryImageStore) Save(ctx context.Context, img *storage.Image) (string, error) {
	m.next++
	ref := fmt.Sprintf("/media/recipes/%d%s", m.next, img.Extension)
	m.saved[ref] = img.Data
	return ref, nil
}

func (m *memoryImageStore) Delete(ctx context.Context, ref string) error {
	m.deleted = append(m.deleted, ref)
	delete(m.saved, ref)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		Email:     username + "@example.com",
		Username:  username,
		FirstName: "First",
		LastName:  "Last",
		Password:  testPassword,
	}
	require.NoError(t, user.HashPassword())
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedTag(t *testing.T, db *gorm.DB, name, color, slug string) models.Tag {
	t.Helper()
	tag := models.Tag{Name: name, Color: color, Slug: slug}
	require.NoError(t, db.Create(&tag).Error)
	return tag
}

func seedIngredient(t *testing.T, db *gorm.DB, name, unit string) models.Ingredient {
	t.Helper()
	ingredient := models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(&ingredient).Error)
	return ingredient
}

func testImage() *storage.Image {
	return &storage.Image{Data: []byte("\x89PNG"), MIME: "image/png", Extension: ".png"}
}

func uintPtr(v uint) *uint { return &v }
