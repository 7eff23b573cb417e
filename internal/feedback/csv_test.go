package feedback

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ois.ut.ee/course-advisor/internal/catalog"
)

func testEntry(rating Rating, reason ReasonCode) Entry {
	return Entry{
		Timestamp:   time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Prompt:      "machine learning basics",
		Filters:     catalog.FilterSpec{CreditsMin: 5, CreditsMax: 7, Semesters: []string{"spring"}},
		CourseIDs:   []string{"C1", "C3"},
		CourseNames: []string{"Machine Learning", "Data Mining"},
		Response:    "Try Machine Learning.",
		Rating:      rating,
		Reason:      reason,
	}
}

func TestBadRatingRequiresReason(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.csv")
	l := NewLogger(path)

	err := l.Append(testEntry(RatingBad, ""))
	assert.ErrorIs(t, err, ErrReasonRequired)

	// Nothing was written.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestUnknownReasonRejected(t *testing.T) {
	l := NewLogger(filepath.Join(t.TempDir(), "feedback.csv"))
	err := l.Append(testEntry(RatingBad, "meh"))
	assert.ErrorIs(t, err, ErrUnknownReason)
}

func TestInvalidRatingRejected(t *testing.T) {
	l := NewLogger(filepath.Join(t.TempDir(), "feedback.csv"))
	err := l.Append(testEntry("excellent", ""))
	assert.ErrorIs(t, err, ErrInvalidRating)
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.csv")
	l := NewLogger(path)

	require.NoError(t, l.Append(testEntry(RatingGood, "")))
	require.NoError(t, l.Append(testEntry(RatingBad, ReasonIrrelevantCourses)))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, header, records[0])

	first := records[1]
	assert.Equal(t, "2026-03-14T09:30:00Z", first[0])
	assert.Equal(t, "machine learning basics", first[1])
	assert.Equal(t, "C1;C3", first[3])
	assert.Equal(t, "Machine Learning;Data Mining", first[4])
	assert.Equal(t, "good", first[6])
	assert.Empty(t, first[7])

	// The filter spec round-trips through its serialized column.
	var spec catalog.FilterSpec
	require.NoError(t, json.Unmarshal([]byte(first[2]), &spec))
	assert.Equal(t, testEntry(RatingGood, "").Filters, spec)

	second := records[2]
	assert.Equal(t, "bad", second[6])
	assert.Equal(t, string(ReasonIrrelevantCourses), second[7])
}
