package db

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type categorySeed struct {
	Categories []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"categories"`
}

// LoadCategories reads a YAML seed file and creates any categories not yet present.
func LoadCategories(conn *gorm.DB, path string) (int, error) {
	if conn == nil {
		return 0, errors.New("db connection is nil")
	}
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	categories, err := ReadCategories(file)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, category := range categories {
		entry := category
		result := conn.Where(Category{Name: entry.Name}).Attrs(Category{Description: entry.Description}).FirstOrCreate(&entry)
		if result.Error != nil {
			return created, result.Error
		}
		if result.RowsAffected > 0 {
			created++
		}
	}
	return created, nil
}

func ReadCategories(r io.Reader) ([]Category, error) {
	var seed categorySeed
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	seen := make(map[string]struct{}, len(seed.Categories))
	out := make([]Category, 0, len(seed.Categories))
	for _, item := range seed.Categories {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Category{Name: name, Description: strings.TrimSpace(item.Description)})
	}
	return out, nil
}
