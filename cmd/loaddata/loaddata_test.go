package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/database"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func useTestDatabase(t *testing.T) *gorm.DB {
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	previous := openDatabase
	openDatabase = func() (*gorm.DB, error) { return db, nil }
	t.Cleanup(func() { openDatabase = previous })
	return db
}

func run(t *testing.T, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"ingredients", "tags", "superuser", "prune-tokens"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}

	cmd, _, _ := rootCmd.Find([]string{"ingredients"})
	assert.Equal(t, "data/ingredients.csv", cmd.Flag("file").DefValue)
}

func TestIngredientsCommand(t *testing.T) {
	db := useTestDatabase(t)
	path := writeFile(t, "ingredients.csv", "flour,g\nmilk,ml\n")

	out, err := run(t, "ingredients", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 ingredients")

	var count int64
	require.NoError(t, db.Model(&models.Ingredient{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	_, err = run(t, "ingredients", "--file", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestTagsCommand(t *testing.T) {
	db := useTestDatabase(t)
	path := writeFile(t, "tags.yaml", "tags:\n  - name: Lunch\n    color: \"#49B64E\"\n    slug: lunch\n")

	out, err := run(t, "tags", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 tags")

	var tag models.Tag
	require.NoError(t, db.Where("slug = ?", "lunch").First(&tag).Error)
	assert.Equal(t, "Lunch", tag.Name)
}

func TestSuperuserCommand(t *testing.T) {
	db := useTestDatabase(t)
	t.Setenv("FOODGRAM_SUPERUSER_PASSWORD", "sup3r-secret")

	out, err := run(t, "superuser", "--email", "root@example.com", "--username", "root", "--password", "")
	require.NoError(t, err)
	assert.Contains(t, out, "root@example.com")

	var user models.User
	require.NoError(t, db.Where("email = ?", "root@example.com").First(&user).Error)
	assert.True(t, user.IsStaff)
	assert.True(t, user.CheckPassword("sup3r-secret"))
}

func TestPruneTokensCommand(t *testing.T) {
	db := useTestDatabase(t)
	past := time.Now().Add(-time.Hour)
	require.NoError(t, db.Create(&models.OAuthToken{
		ClientID:    "foodgram-web",
		UserID:      "1",
		AccessToken: "expired-access",
		ExpiresAt:   past,
	}).Error)

	out, err := run(t, "prune-tokens")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 expired tokens")
}
