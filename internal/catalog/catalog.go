package catalog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"ois.ut.ee/course-advisor/internal/utils"
)

// Course is one immutable catalog row. The embedding is attached at load time
// by joining the embeddings file on the unique id and is never exposed over
// the API.
type Course struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Credits       float64 `json:"credits"`
	Semester      string  `json:"semester"` // "spring", "autumn" or empty
	Grading       string  `json:"grading"`
	City          string  `json:"city"` // empty means unspecified
	Level         string  `json:"level"`
	Delivery      string  `json:"delivery"`
	Prerequisites string  `json:"prerequisites,omitempty"` // empty means none

	Embedding []float32 `json:"-"`
	Norm      float32   `json:"-"`
}

// Catalog holds the joined course table. It is loaded once at startup and
// treated as read-only afterwards; filtering always works on copies.
type Catalog struct {
	Courses   []Course
	Dimension int
}

// Load reads the course CSV and the parallel embeddings CSV, joins them on
// the unique id column and validates that every course carries a vector of
// the same dimension. Any inconsistency is fatal here so that ranking never
// has to re-check vectors per query.
func Load(coursesPath, embeddingsPath string) (*Catalog, error) {
	courses, err := readCourses(coursesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read course table: %w", err)
	}
	embeddings, err := readEmbeddings(embeddingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read embeddings table: %w", err)
	}

	dimension := 0
	for i := range courses {
		vec, ok := embeddings[courses[i].ID]
		if !ok {
			return nil, fmt.Errorf("course %s has no embedding row", courses[i].ID)
		}
		if dimension == 0 {
			dimension = len(vec)
		}
		if len(vec) != dimension {
			return nil, fmt.Errorf("embedding for course %s has dimension %d, want %d", courses[i].ID, len(vec), dimension)
		}
		courses[i].Embedding = vec
		courses[i].Norm = utils.Norm(vec)
	}

	if len(courses) == 0 {
		return nil, fmt.Errorf("course table %s is empty", coursesPath)
	}

	log.Printf("Catalog loaded: %d courses, embedding dimension %d", len(courses), dimension)
	return &Catalog{Courses: courses, Dimension: dimension}, nil
}

func readCourses(path string) ([]Course, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("missing header row")
	}

	col, err := headerIndex(records[0], "unique_id", "name", "credits", "semester", "grading", "city", "level", "delivery", "prerequisites")
	if err != nil {
		return nil, err
	}

	var courses []Course
	seen := make(map[string]bool)
	for i, record := range records[1:] {
		id := record[col["unique_id"]]
		if id == "" {
			return nil, fmt.Errorf("row %d has an empty unique_id", i+2)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate unique_id %s", id)
		}
		seen[id] = true

		credits, err := strconv.ParseFloat(record[col["credits"]], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d has invalid credits %q: %w", i+2, record[col["credits"]], err)
		}

		courses = append(courses, Course{
			ID:            id,
			Name:          record[col["name"]],
			Credits:       credits,
			Semester:      record[col["semester"]],
			Grading:       record[col["grading"]],
			City:          record[col["city"]],
			Level:         record[col["level"]],
			Delivery:      record[col["delivery"]],
			Prerequisites: record[col["prerequisites"]],
		})
	}
	return courses, nil
}

// readEmbeddings parses the embeddings CSV: a unique_id column plus the
// vector serialized as a JSON array string.
func readEmbeddings(path string) (map[string][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("missing header row")
	}

	col, err := headerIndex(records[0], "unique_id", "embedding")
	if err != nil {
		return nil, err
	}

	embeddings := make(map[string][]float32, len(records)-1)
	for i, record := range records[1:] {
		id := record[col["unique_id"]]
		var vec []float32
		if err := json.Unmarshal([]byte(record[col["embedding"]]), &vec); err != nil {
			return nil, fmt.Errorf("row %d has an invalid embedding for %s: %w", i+2, id, err)
		}
		if len(vec) == 0 {
			return nil, fmt.Errorf("row %d has an empty embedding for %s", i+2, id)
		}
		embeddings[id] = vec
	}
	return embeddings, nil
}

func headerIndex(header []string, required ...string) (map[string]int, error) {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}
	return col, nil
}
