package feedback

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"ois.ut.ee/course-advisor/internal/catalog"
)

type Rating string

const (
	RatingGood Rating = "good"
	RatingBad  Rating = "bad"
)

// ReasonCode categorizes a bad rating. The set is fixed; free text is not
// accepted.
type ReasonCode string

const (
	ReasonIrrelevantCourses ReasonCode = "irrelevant_courses"
	ReasonIgnoredFilters    ReasonCode = "ignored_filters"
	ReasonFactualError      ReasonCode = "factual_error"
	ReasonUnclearAnswer     ReasonCode = "unclear_answer"
	ReasonOther             ReasonCode = "other"
)

var (
	ErrInvalidRating  = errors.New("rating must be \"good\" or \"bad\"")
	ErrReasonRequired = errors.New("a reason code is required for a bad rating")
	ErrUnknownReason  = errors.New("unknown reason code")
)

var validReasons = map[ReasonCode]bool{
	ReasonIrrelevantCourses: true,
	ReasonIgnoredFilters:    true,
	ReasonFactualError:      true,
	ReasonUnclearAnswer:     true,
	ReasonOther:             true,
}

// Entry is one feedback submission tying a rating to the exact retrieval
// that produced the rated answer.
type Entry struct {
	Timestamp   time.Time
	Prompt      string
	Filters     catalog.FilterSpec
	CourseIDs   []string
	CourseNames []string
	Response    string
	Rating      Rating
	Reason      ReasonCode
}

var header = []string{"timestamp", "prompt", "filters", "course_ids", "course_names", "response", "rating", "reason"}

// Logger appends feedback rows to a CSV sink, writing the header row once on
// first creation of the file.
type Logger struct {
	mu   sync.Mutex
	path string
}

func NewLogger(path string) *Logger {
	return &Logger{path: path}
}

// Append validates the entry and writes one row. A bad rating without a
// known reason code is rejected before anything touches the file.
func (l *Logger) Append(e Entry) error {
	if e.Rating != RatingGood && e.Rating != RatingBad {
		return ErrInvalidRating
	}
	if e.Rating == RatingBad {
		if e.Reason == "" {
			return ErrReasonRequired
		}
		if !validReasons[e.Reason] {
			return fmt.Errorf("%w: %q", ErrUnknownReason, e.Reason)
		}
	}

	filtersJSON, err := json.Marshal(e.Filters)
	if err != nil {
		return fmt.Errorf("failed to serialize filter spec: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, statErr := os.Stat(l.path)
	writeHeader := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open feedback sink: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("failed to write feedback header: %w", err)
		}
	}
	record := []string{
		e.Timestamp.UTC().Format(time.RFC3339),
		e.Prompt,
		string(filtersJSON),
		strings.Join(e.CourseIDs, ";"),
		strings.Join(e.CourseNames, ";"),
		e.Response,
		string(e.Rating),
		string(e.Reason),
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("failed to write feedback row: %w", err)
	}
	w.Flush()
	return w.Error()
}
