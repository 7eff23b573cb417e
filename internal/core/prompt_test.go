package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"ois.ut.ee/course-advisor/internal/store"
)

func TestRenderCourseTableExcludesScores(t *testing.T) {
	rows := []store.ResultRow{
		{CourseID: "C1", Name: "Machine Learning", Credits: 6, Semester: "spring", City: "Tartu", Score: 0.87654},
		{CourseID: "C2", Name: "Databases", Credits: 3, Semester: "autumn", City: "Tallinn", Score: 0.54321},
	}

	table := RenderCourseTable(rows)
	assert.Contains(t, table, "C1")
	assert.Contains(t, table, "Machine Learning")
	assert.Contains(t, table, "Tallinn")
	assert.NotContains(t, table, "0.87654")
	assert.NotContains(t, table, "0.54321")

	// Header plus one line per course.
	assert.Len(t, strings.Split(table, "\n"), 3)
}

func TestRenderCourseTableEmpty(t *testing.T) {
	assert.Equal(t, NoCoursesContext, RenderCourseTable(nil))
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt(NoCoursesContext)
	assert.True(t, strings.HasPrefix(prompt, "You are a safe, reliable and helpful assistant"))
	assert.Contains(t, prompt, NoCoursesContext)
}
