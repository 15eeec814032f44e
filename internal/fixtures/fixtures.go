// Package fixtures bulk loads reference data and bootstrap accounts.
//
// Ingredients come from a two column CSV (name, measurement_unit) with an
// optional header row. Tags come from YAML:
//
//	tags:
//	  - name: Breakfast
//	    color: "#E26C2D"
//	    slug: breakfast
package fixtures

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/validation"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

const batchSize = 500

// TagFixture is one entry of the tags file
type TagFixture struct {
	Name  string `yaml:"name" validate:"required,max=200"`
	Color string `yaml:"color" validate:"required,hexcolor,len=7"`
	Slug  string `yaml:"slug" validate:"required,max=200,slug"`
}

type tagFile struct {
	Tags []TagFixture `yaml:"tags" validate:"dive"`
}

// LoadIngredients inserts every CSV row, skipping (name, unit) pairs already
// present in the table or earlier in the file. It returns the number of new rows.
func LoadIngredients(ctx context.Context, db *gorm.DB, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	var existing []models.Ingredient
	if err := db.WithContext(ctx).Find(&existing).Error; err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, ing := range existing {
		seen[ingredientKey(ing.Name, ing.MeasurementUnit)] = true
	}

	var batch []models.Ingredient
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read ingredients: %w", err)
		}
		name, unit := strings.TrimSpace(record[0]), strings.TrimSpace(record[1])
		if line == 1 && strings.EqualFold(name, "name") && strings.EqualFold(unit, "measurement_unit") {
			continue
		}
		if name == "" || unit == "" {
			return 0, fmt.Errorf("line %d: name and measurement unit are required", line)
		}
		key := ingredientKey(name, unit)
		if seen[key] {
			continue
		}
		seen[key] = true
		batch = append(batch, models.Ingredient{Name: name, MeasurementUnit: unit})
	}

	if len(batch) == 0 {
		log.Info("No new ingredients to import")
		return 0, nil
	}
	if err := db.WithContext(ctx).CreateInBatches(batch, batchSize).Error; err != nil {
		return 0, fmt.Errorf("failed to insert ingredients: %w", err)
	}
	log.WithField("count", len(batch)).Info("Ingredients imported successfully")
	return len(batch), nil
}

func ingredientKey(name, unit string) string {
	return strings.ToLower(name) + "\x00" + strings.ToLower(unit)
}

// LoadTags validates the YAML document and upserts its tags by slug
func LoadTags(ctx context.Context, db *gorm.DB, r io.Reader) (int, error) {
	var file tagFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return 0, fmt.Errorf("failed to parse tags: %w", err)
	}
	if err := validation.ValidateStruct(file); err != nil {
		return 0, fmt.Errorf("invalid tags: %w", err)
	}
	if len(file.Tags) == 0 {
		return 0, nil
	}

	tags := make([]models.Tag, len(file.Tags))
	for i, t := range file.Tags {
		tags[i] = models.Tag{Name: t.Name, Color: strings.ToUpper(t.Color), Slug: t.Slug}
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "color"}),
	}).Create(&tags).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert tags: %w", err)
	}
	log.WithField("count", len(tags)).Info("Tags imported successfully")
	return len(tags), nil
}

// SuperuserInput describes the staff account created by EnsureSuperuser
type SuperuserInput struct {
	Email     string `validate:"required,email"`
	Username  string `validate:"required,max=150,username"`
	FirstName string
	LastName  string
	Password  string `validate:"required,min=8"`
}

// EnsureSuperuser creates a staff user, or promotes and re-keys the account with that email
func EnsureSuperuser(ctx context.Context, db *gorm.DB, in SuperuserInput) (*models.User, error) {
	if err := validation.ValidateStruct(in); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var user models.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		user.IsStaff = true
		if err := user.SetPassword(in.Password); err != nil {
			return nil, err
		}
		if err := db.WithContext(ctx).Save(&user).Error; err != nil {
			return nil, err
		}
		log.WithField("user_id", user.ID).Info("Existing user promoted to staff")
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Email:     email,
			Username:  in.Username,
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Password:  in.Password,
			IsStaff:   true,
		}
		if err := user.HashPassword(); err != nil {
			return nil, err
		}
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create superuser: %w", err)
		}
		log.WithField("user_id", user.ID).Info("Superuser created")
	default:
		return nil, err
	}
	return &user, nil
}
