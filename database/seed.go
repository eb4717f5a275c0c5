package database

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/sahilchouksey/studyhub-api/utils/auth"
	"github.com/sahilchouksey/studyhub-api/utils/logger"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixtures is the YAML document accepted by the seeder
type Fixtures struct {
	Categories []CategoryFixture `yaml:"categories"`
	Users      []UserFixture     `yaml:"users"`
	Documents  []DocumentFixture `yaml:"documents"`
}

type CategoryFixture struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type UserFixture struct {
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	Role      string `yaml:"role"`
}

// DocumentFixture references its uploader by email and its category by name.
// Seeded documents point at storage keys that may not exist; the orphan scan
// removes them unless the files are provisioned separately.
type DocumentFixture struct {
	Title        string   `yaml:"title"`
	Description  string   `yaml:"description"`
	Filename     string   `yaml:"filename"`
	Institute    string   `yaml:"institute"`
	Course       string   `yaml:"course"`
	Subject      string   `yaml:"subject"`
	AcademicYear string   `yaml:"academic_year"`
	Category     string   `yaml:"category"`
	Uploader     string   `yaml:"uploader"`
	Tags         []string `yaml:"tags"`
}

// Seeder handles database seeding operations
type Seeder struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db, log: logger.WithComponent("seed")}
}

// LoadFixtures decodes a YAML fixture stream
func LoadFixtures(r io.Reader) (*Fixtures, error) {
	var f Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("failed to decode fixtures: %w", err)
	}
	return &f, nil
}

// LoadFixturesFile decodes the fixture file at path
func LoadFixturesFile(path string) (*Fixtures, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return LoadFixtures(fh)
}

// SeedAll inserts the admin user from the environment and then the fixtures.
// Existing rows (matched by natural key) are left untouched.
func (s *Seeder) SeedAll(f *Fixtures, adminEmail, adminPassword string) error {
	if err := s.SeedAdminUser(adminEmail, adminPassword); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	if f == nil {
		return nil
	}
	if err := s.SeedCategories(f.Categories); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}
	if err := s.SeedUsers(f.Users); err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	if err := s.SeedDocuments(f.Documents); err != nil {
		return fmt.Errorf("failed to seed documents: %w", err)
	}
	return nil
}

// SeedAdminUser creates the admin account unless one already exists
func (s *Seeder) SeedAdminUser(email, password string) error {
	var count int64
	if err := s.db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		s.log.Info().Msg("admin user already exists, skipping")
		return nil
	}
	if email == "" || password == "" {
		s.log.Warn().Msg("ADMIN_EMAIL and ADMIN_PASSWORD not set, skipping admin user creation")
		return nil
	}

	return s.SeedUsers([]UserFixture{{
		FirstName: "System",
		LastName:  "Administrator",
		Email:     email,
		Password:  password,
		Role:      model.RoleAdmin,
	}})
}

func (s *Seeder) SeedCategories(categories []CategoryFixture) error {
	for _, c := range categories {
		category := model.Category{Name: strings.TrimSpace(c.Name), Description: c.Description}
		res := s.db.Where(model.Category{Name: category.Name}).FirstOrCreate(&category)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			s.log.Info().Str("category", category.Name).Msg("created category")
		}
	}
	return nil
}

func (s *Seeder) SeedUsers(users []UserFixture) error {
	for _, u := range users {
		email := strings.ToLower(strings.TrimSpace(u.Email))

		var existing int64
		if err := s.db.Model(&model.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			continue
		}

		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return fmt.Errorf("user %s: %w", email, err)
		}
		role := u.Role
		if role == "" {
			role = model.RoleStudent
		}

		user := model.User{
			FirstName:    u.FirstName,
			LastName:     u.LastName,
			Email:        email,
			PasswordHash: hash,
			ProfileImage: model.DefaultProfileImage,
			Role:         role,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return err
		}
		s.log.Info().Str("email", email).Msg("created user")
	}
	return nil
}

func (s *Seeder) SeedDocuments(documents []DocumentFixture) error {
	for _, d := range documents {
		var existing int64
		if err := s.db.Model(&model.Document{}).Where("filename = ?", d.Filename).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			continue
		}

		var uploader model.User
		if err := s.db.Where("email = ?", strings.ToLower(d.Uploader)).First(&uploader).Error; err != nil {
			return fmt.Errorf("document %q: uploader %s: %w", d.Title, d.Uploader, err)
		}

		doc := model.Document{
			Title:            d.Title,
			Description:      d.Description,
			Filename:         d.Filename,
			OriginalFilename: d.Filename[strings.LastIndex(d.Filename, "/")+1:],
			FileType:         fileExt(d.Filename),
			Institute:        d.Institute,
			Course:           d.Course,
			Subject:          d.Subject,
			AcademicYear:     d.AcademicYear,
			IsPublic:         true,
			UserID:           uploader.ID,
		}

		err := s.db.Transaction(func(tx *gorm.DB) error {
			if d.Category != "" {
				category := model.Category{Name: d.Category}
				if err := tx.Where(model.Category{Name: d.Category}).FirstOrCreate(&category).Error; err != nil {
					return err
				}
				doc.CategoryID = &category.ID
			}
			if err := tx.Create(&doc).Error; err != nil {
				return err
			}
			for _, raw := range d.Tags {
				name := strings.ToLower(strings.TrimSpace(raw))
				if name == "" {
					continue
				}
				tag := model.Tag{Name: name}
				if err := tx.Where(model.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
					return err
				}
				var linked int64
				if err := tx.Table("document_tags").Where("document_id = ? AND tag_id = ?", doc.ID, tag.ID).Count(&linked).Error; err != nil {
					return err
				}
				if linked > 0 {
					continue
				}
				if err := tx.Exec("INSERT INTO document_tags (document_id, tag_id) VALUES (?, ?)", doc.ID, tag.ID).Error; err != nil {
					return err
				}
				if err := tx.Model(&tag).UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		s.log.Info().Str("title", doc.Title).Msg("created document")
	}
	return nil
}

func fileExt(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}
