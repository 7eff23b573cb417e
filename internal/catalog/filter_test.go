package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCourses() []Course {
	return []Course{
		{ID: "A", Name: "Machine Learning", Credits: 6, Semester: "spring", Grading: "graded", City: "Tartu", Level: "Master's studies", Delivery: "on-site"},
		{ID: "B", Name: "Databases", Credits: 3, Semester: "autumn", Grading: "pass/fail", City: "Tallinn", Level: "Bachelor's studies", Delivery: "online", Prerequisites: "Intro to CS"},
		{ID: "C", Name: "Ethics", Credits: 6, Semester: "spring", Grading: "graded", City: "", Level: "Bachelor's studies", Delivery: "hybrid"},
		{ID: "D", Name: "Statistics", Credits: 9, Semester: "autumn", Grading: "graded", City: "Tartu linn", Level: "Doctoral studies", Delivery: "on-site", Prerequisites: "Calculus"},
	}
}

func TestNeutralSpecReturnsFullCatalog(t *testing.T) {
	courses := testCourses()
	filtered := FilterSpec{}.Apply(courses)
	assert.Equal(t, courses, filtered)
}

func TestCreditRangeAndSemester(t *testing.T) {
	courses := []Course{
		{ID: "A", Credits: 6, Semester: "spring"},
		{ID: "B", Credits: 3, Semester: "autumn"},
	}
	spec := FilterSpec{CreditsMin: 5, CreditsMax: 7, Semesters: []string{"spring"}}

	filtered := spec.Apply(courses)
	require.Len(t, filtered, 1)
	assert.Equal(t, "A", filtered[0].ID)
}

func TestCreditRangeIsInclusive(t *testing.T) {
	spec := FilterSpec{CreditsMin: 3, CreditsMax: 6}
	assert.True(t, spec.Matches(Course{Credits: 3}))
	assert.True(t, spec.Matches(Course{Credits: 6}))
	assert.False(t, spec.Matches(Course{Credits: 6.5}))
	assert.False(t, spec.Matches(Course{Credits: 2.5}))
}

func TestAbsentCityIsImplicitlyLocal(t *testing.T) {
	spec := FilterSpec{Cities: []string{"Tartu"}}

	filtered := spec.Apply(testCourses())
	ids := courseIDs(filtered)
	assert.Contains(t, ids, "A") // city Tartu
	assert.Contains(t, ids, "C") // no city recorded
	assert.Contains(t, ids, "D") // spelling variant "Tartu linn"
	assert.NotContains(t, ids, "B")
}

func TestAbsentCityDoesNotPassForOtherCities(t *testing.T) {
	spec := FilterSpec{Cities: []string{"Tallinn"}}

	filtered := spec.Apply(testCourses())
	assert.Equal(t, []string{"B"}, courseIDs(filtered))
}

func TestDegreeLevelSubstringMatch(t *testing.T) {
	spec := FilterSpec{DegreeLevels: []string{"master"}}
	filtered := spec.Apply(testCourses())
	assert.Equal(t, []string{"A"}, courseIDs(filtered))

	spec = FilterSpec{DegreeLevels: []string{"BACHELOR", "doctoral"}}
	filtered = spec.Apply(testCourses())
	assert.Equal(t, []string{"B", "C", "D"}, courseIDs(filtered))
}

func TestExcludePrerequisites(t *testing.T) {
	spec := FilterSpec{ExcludePrerequisites: true}
	filtered := spec.Apply(testCourses())
	assert.Equal(t, []string{"A", "C"}, courseIDs(filtered))
}

func TestGradingAndDeliveryMembership(t *testing.T) {
	spec := FilterSpec{GradingSchemes: []string{"pass/fail"}, DeliveryModes: []string{"online", "hybrid"}}
	filtered := spec.Apply(testCourses())
	assert.Equal(t, []string{"B"}, courseIDs(filtered))
}

func TestEmptyResultIsNotAnError(t *testing.T) {
	spec := FilterSpec{CreditsMin: 100, CreditsMax: 200}
	filtered := spec.Apply(testCourses())
	assert.Empty(t, filtered)
}

func TestApplyIsIdempotentAndDoesNotMutate(t *testing.T) {
	courses := testCourses()
	snapshot := testCourses()
	spec := FilterSpec{Semesters: []string{"spring"}}

	first := spec.Apply(courses)
	second := spec.Apply(courses)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, courses)
}

func courseIDs(courses []Course) []string {
	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	return ids
}
