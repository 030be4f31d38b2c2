package db

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var rosterColumns = []string{"student_id", "first_name", "middle_name", "last_name", "level", "grade", "section", "contact_number"}

// LoadStudentRoster reads students from a CSV and upserts them by student_id.
func LoadStudentRoster(conn *gorm.DB, path string) (int, error) {
	if conn == nil {
		return 0, errors.New("db connection is nil")
	}
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	students, err := ReadRoster(file)
	if err != nil {
		return 0, err
	}
	if len(students) == 0 {
		return 0, nil
	}
	result := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"first_name", "middle_name", "last_name", "level", "grade", "section", "contact_number", "updated_at"}),
	}).Create(&students)
	if result.Error != nil {
		return 0, result.Error
	}
	return len(students), nil
}

// ReadRoster parses a roster CSV. The header row names the columns; order is free.
func ReadRoster(r io.Reader) ([]Student, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"student_id", "first_name", "last_name", "level", "grade"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("roster is missing column %q", required)
		}
	}
	cell := func(row []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var students []Student
	for line, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		values := make(map[string]string, len(rosterColumns))
		for _, column := range rosterColumns {
			values[column] = cell(row, column)
		}
		if values["student_id"] == "" {
			continue
		}
		if !ValidLevel(values["level"]) {
			return nil, fmt.Errorf("roster line %d: unknown level %q", line+2, values["level"])
		}
		students = append(students, Student{
			StudentID:     values["student_id"],
			FirstName:     values["first_name"],
			MiddleName:    values["middle_name"],
			LastName:      values["last_name"],
			Level:         values["level"],
			Grade:         values["grade"],
			Section:       values["section"],
			ContactNumber: values["contact_number"],
		})
	}
	return students, nil
}
