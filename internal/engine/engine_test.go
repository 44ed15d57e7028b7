package engine

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GamalAsraan/Timetable-generator-ATG/internal/catalog"
)

func fixtureCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	courses := []catalog.Course{
		{ID: "C1", Name: "Algorithms", LectureDurationSlots: 1, LabDurationSlots: 0},
	}
	rooms := []catalog.Room{
		{ID: "Bldg1 101", Capacity: 50, Kind: catalog.RoomKindLecture, SpaceType: "Normal"},
		{ID: "Bldg2 201", Capacity: 50, Kind: catalog.RoomKindLecture, SpaceType: "Normal"},
	}
	instructors := []catalog.Instructor{
		{ID: "I1", Name: "Dr. Ada", QualifiedCourseIDs: map[string]struct{}{"C1": {}}, NotPreferredSlots: map[int]struct{}{}},
		{ID: "I2", Name: "Dr. Grace", QualifiedCourseIDs: map[string]struct{}{"C1": {}}, NotPreferredSlots: map[int]struct{}{}},
	}
	slots := []catalog.TimeSlot{
		{ID: 1, Day: "Sunday", StartTime: "09:00", EndTime: "10:00"},
		{ID: 2, Day: "Sunday", StartTime: "10:00", EndTime: "11:00"},
		{ID: 3, Day: "Monday", StartTime: "09:00", EndTime: "10:00"},
	}
	sections := []catalog.Section{
		{ID: "S1", Department: "CS", Level: "L1", Specialization: "A", StudentCount: 10},
		{ID: "S2", Department: "CS", Level: "L1", Specialization: "A", StudentCount: 10},
	}
	offerings := []catalog.CourseOffering{
		{Department: "CS", Level: "L1", Specialization: catalog.CoreSpecialization, CourseID: "C1"},
	}

	cat, err := catalog.New(courses, rooms, instructors, slots, sections, offerings)
	require.NoError(t, err)
	return cat
}

// multiDayCatalog provides five consecutive Sunday slots (for gap-penalty
// scenarios that need slots further apart than fixtureCatalog's two) plus a
// single Monday slot, so a section that only ever meets on Sunday still has
// a second catalog day to be compared against for the imbalance penalty.
func multiDayCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	courses := []catalog.Course{
		{ID: "C1", Name: "Algorithms", LectureDurationSlots: 1, LabDurationSlots: 0},
	}
	rooms := []catalog.Room{
		{ID: "R1", Capacity: 50, Kind: catalog.RoomKindLecture, SpaceType: "Normal"},
	}
	instructors := []catalog.Instructor{
		{ID: "I1", Name: "Dr. Ada", QualifiedCourseIDs: map[string]struct{}{"C1": {}}, NotPreferredSlots: map[int]struct{}{}},
	}
	slots := []catalog.TimeSlot{
		{ID: 1, Day: "Sunday", StartTime: "09:00", EndTime: "10:00"},
		{ID: 2, Day: "Sunday", StartTime: "10:00", EndTime: "11:00"},
		{ID: 3, Day: "Sunday", StartTime: "11:00", EndTime: "12:00"},
		{ID: 4, Day: "Sunday", StartTime: "12:00", EndTime: "13:00"},
		{ID: 5, Day: "Sunday", StartTime: "13:00", EndTime: "14:00"},
		{ID: 6, Day: "Monday", StartTime: "09:00", EndTime: "10:00"},
	}
	sections := []catalog.Section{
		{ID: "S1", Department: "CS", Level: "L1", Specialization: "A", StudentCount: 10},
	}

	cat, err := catalog.New(courses, rooms, instructors, slots, sections, nil)
	require.NoError(t, err)
	return cat
}

func TestVariableBuilderGroupsSectionsAndResetsCounter(t *testing.T) {
	cat := fixtureCatalog(t)
	builder := NewVariableBuilder(75)

	sessions, warnings, err := builder.Build(cat)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, sessions, 1)
	assert.Equal(t, SessionKindLecture, sessions[0].Kind)
	assert.ElementsMatch(t, []string{"S1", "S2"}, sessions[0].Sections)
	assert.Equal(t, 20, sessions[0].TotalStudents)
	assert.True(t, sessions[0].IsSmallGroup)

	// A second build on the same builder must restart the counter rather
	// than continue the prior one.
	second, _, err := builder.Build(cat)
	require.NoError(t, err)
	assert.Equal(t, sessions[0].ID, second[0].ID)
}

func TestVariableBuilderSkipsUnmatchedOfferings(t *testing.T) {
	cat := fixtureCatalog(t)
	cat.CourseOfferings = []catalog.CourseOffering{
		{Department: "CS", Level: "L1", Specialization: "NoSuchSpec", CourseID: "C1"},
	}

	builder := NewVariableBuilder(75)
	_, warnings, err := builder.Build(cat)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, "no matching sections", warnings[0].Reason)
}

func buildPhase1(t *testing.T) (*catalog.Catalog, []*Session) {
	t.Helper()
	cat := fixtureCatalog(t)
	builder := NewVariableBuilder(75)
	sessions, _, err := builder.Build(cat)
	require.NoError(t, err)

	db := NewDomainBuilder(nil)
	require.NoError(t, db.BuildAll(cat, sessions))
	return cat, sessions
}

func TestDomainBuilderProducesConsecutiveSequencesWithinOneDay(t *testing.T) {
	_, sessions := buildPhase1(t)
	require.Len(t, sessions, 1)
	d := sessions[0].Domain
	require.NotEmpty(t, d.TimeSequences)
	for _, seq := range d.TimeSequences {
		require.Len(t, seq, 1)
	}
}

func TestDomainBuilderFallsBackToQualifiedInstructorsWhenNoPreferenceMatches(t *testing.T) {
	cat, sessions := buildPhase1(t)
	// No preferred professor was set on the offering, so the fallback must
	// include every qualified instructor.
	assert.ElementsMatch(t, []string{"I1", "I2"}, sessions[0].Domain.Instructors)
	_ = cat
}

func TestStateAddRemoveIsExactInverse(t *testing.T) {
	cat, sessions := buildPhase1(t)
	state := NewState()
	a := Assignment{Session: sessions[0], TimeSequence: TimeSequence{1}, Room: "Bldg1 101", Instructor: "I1"}

	assert.True(t, state.IsConsistent(a.Session, a.TimeSequence, a.Room, a.Instructor))
	state.Add(a)
	assert.False(t, state.IsConsistent(a.Session, a.TimeSequence, a.Room, a.Instructor))

	state.Remove(a)
	assert.True(t, state.IsConsistent(a.Session, a.TimeSequence, a.Room, a.Instructor))
	_ = cat
}

func TestBacktrackingSolverFindsFeasibleAssignment(t *testing.T) {
	cat, sessions := buildPhase1(t)
	solver := NewBacktrackingSolver(notPreferredIndex(cat))
	state, assignments, err := solver.Solve(sessions)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.False(t, state.IsConsistent(assignments[0].Session, assignments[0].TimeSequence, assignments[0].Room, assignments[0].Instructor),
		"the occupied slot must now be reported inconsistent")
}

func TestBacktrackingSolverReportsInfeasibleWhenDomainsCannotAllBeSatisfied(t *testing.T) {
	cat := fixtureCatalog(t)
	// Force two sessions that both need the single Sunday slot combination
	// and the same exclusive room/instructor, leaving no way to satisfy both.
	cat.Rooms = map[string]catalog.Room{
		"R1": {ID: "R1", Capacity: 50, Kind: catalog.RoomKindLecture, SpaceType: "Normal"},
	}
	cat.Instructors = map[string]catalog.Instructor{
		"I1": {ID: "I1", Name: "Dr. Ada", QualifiedCourseIDs: map[string]struct{}{"C1": {}}, NotPreferredSlots: map[int]struct{}{}},
	}
	cat.TimeSlots = map[int]catalog.TimeSlot{
		1: {ID: 1, Day: "Sunday", StartTime: "09:00", EndTime: "10:00"},
	}
	cat.SlotsByDay = map[string][]catalog.TimeSlot{"Sunday": {cat.TimeSlots[1]}}
	cat.Sections["S1"] = catalog.Section{ID: "S1", Department: "CS", Level: "L1", Specialization: "A", StudentCount: 10}
	cat.Sections["S2"] = catalog.Section{ID: "S2", Department: "CS", Level: "L1", Specialization: "B", StudentCount: 10}
	cat.CourseOfferings = []catalog.CourseOffering{
		{Department: "CS", Level: "L1", Specialization: "A", CourseID: "C1"},
		{Department: "CS", Level: "L1", Specialization: "B", CourseID: "C1"},
	}

	builder := NewVariableBuilder(75)
	sessions, _, err := builder.Build(cat)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	db := NewDomainBuilder(nil)
	require.NoError(t, db.BuildAll(cat, sessions))

	solver := NewBacktrackingSolver(notPreferredIndex(cat))
	_, _, err = solver.Solve(sessions)
	require.Error(t, err)
}

// Given two qualified instructors in a session's domain and one of them
// declared preferred, value ordering must try the preferred instructor
// first, and since it's consistent, the final assignment must use it.
func TestBacktrackingSolverPrefersPreferredInstructor(t *testing.T) {
	cat := fixtureCatalog(t)
	session := &Session{
		ID:                   1,
		CourseID:             "C1",
		Kind:                 SessionKindLecture,
		DurationSlots:        1,
		Sections:             []string{"S1"},
		TotalStudents:        10,
		IsSmallGroup:         true,
		PreferredInstructors: map[string]struct{}{"I2": {}},
		Domain: &Domain{
			TimeSequences: []TimeSequence{{1}},
			Rooms:         []string{"Bldg1 101"},
			Instructors:   []string{"I1", "I2"},
		},
	}

	solver := NewBacktrackingSolver(notPreferredIndex(cat))
	_, assignments, err := solver.Solve([]*Session{session})
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "I2", assignments[0].Instructor)
}

func TestCostEvaluatorScoresInHoursSingleAssignmentAsZero(t *testing.T) {
	cat := fixtureCatalog(t)
	_, sessions := buildPhase1(t)
	evaluator, err := NewCostEvaluator(cat, DefaultWeights())
	require.NoError(t, err)

	// 09:00 start is not a bad-time slot under this fixture.
	good := []Assignment{{Session: sessions[0], TimeSequence: TimeSequence{1}, Room: "Bldg1 101", Instructor: "I1"}}
	assert.Zero(t, evaluator.Total(good))
}

func TestNewCostEvaluatorRejectsNegativeWeights(t *testing.T) {
	cat := fixtureCatalog(t)
	weights := DefaultWeights()
	weights.Gap = -1
	_, err := NewCostEvaluator(cat, weights)
	require.Error(t, err)
}

// A gap of two slots (1,3) costs the base gap weight, a gap of three slots
// (1,4) costs triple it, and the two must differ by exactly twice the base
// weight.
func TestCostEvaluatorGapPenaltyScaling(t *testing.T) {
	cat := multiDayCatalog(t)
	evaluator, err := NewCostEvaluator(cat, DefaultWeights())
	require.NoError(t, err)

	session := &Session{ID: 1, CourseID: "C1", Kind: SessionKindLecture, DurationSlots: 1, Sections: []string{"S1"}, TotalStudents: 10}

	gapTwo := []Assignment{
		{Session: session, TimeSequence: TimeSequence{1}, Room: "R1", Instructor: "I1"},
		{Session: session, TimeSequence: TimeSequence{3}, Room: "R1", Instructor: "I1"},
	}
	gapThree := []Assignment{
		{Session: session, TimeSequence: TimeSequence{1}, Room: "R1", Instructor: "I1"},
		{Session: session, TimeSequence: TimeSequence{4}, Room: "R1", Instructor: "I1"},
	}

	costTwo := evaluator.Total(gapTwo)
	costThree := evaluator.Total(gapThree)

	assert.Equal(t, DefaultWeights().Gap, costTwo)
	assert.Equal(t, DefaultWeights().Gap*3, costThree)
	assert.Equal(t, 2*DefaultWeights().Gap, costThree-costTwo)
}

// TestCostEvaluatorImbalancePenalizesZeroSlotDays guards against the
// imbalance penalty only comparing days a section already meets on: five
// Sunday slots and zero Monday slots must be penalized as a 5-slot spread,
// not silently treated as a single-day load with no spread at all.
func TestCostEvaluatorImbalancePenalizesZeroSlotDays(t *testing.T) {
	cat := multiDayCatalog(t)
	evaluator, err := NewCostEvaluator(cat, DefaultWeights())
	require.NoError(t, err)

	session := &Session{ID: 1, CourseID: "C1", Kind: SessionKindLecture, DurationSlots: 1, Sections: []string{"S1"}, TotalStudents: 10}
	crammed := []Assignment{
		{Session: session, TimeSequence: TimeSequence{1}, Room: "R1", Instructor: "I1"},
		{Session: session, TimeSequence: TimeSequence{2}, Room: "R1", Instructor: "I1"},
		{Session: session, TimeSequence: TimeSequence{3}, Room: "R1", Instructor: "I1"},
		{Session: session, TimeSequence: TimeSequence{4}, Room: "R1", Instructor: "I1"},
		{Session: session, TimeSequence: TimeSequence{5}, Room: "R1", Instructor: "I1"},
	}

	// All five assignments are contiguous (gap=1, free) and in-hours, so the
	// entire cost is the imbalance term: max(5) - min(0) = 5, over the
	// threshold of 3, times the imbalance weight.
	want := 5.0 * DefaultWeights().Imbalance
	assert.Equal(t, want, evaluator.Total(crammed))
}

// A slot starting before 09:00 or ending at/after 16:00 is bad-time; a slot
// entirely within 09:00-16:00 is not.
func TestIsBadTimeBoundaries(t *testing.T) {
	assert.True(t, isBadTime(catalog.TimeSlot{StartTime: "08:00", EndTime: "09:00"}), "start hour 8 must count as bad-time")
	assert.True(t, isBadTime(catalog.TimeSlot{StartTime: "16:00", EndTime: "17:00"}), "end hour 17 must count as bad-time")
	assert.False(t, isBadTime(catalog.TimeSlot{StartTime: "09:00", EndTime: "10:30"}), "a slot fully within 09:00-16:00 must not count as bad-time")
}

func TestAnnealingOptimizerNeverWorsensTheBestCost(t *testing.T) {
	cat, sessions := buildPhase1(t)
	solver := NewBacktrackingSolver(notPreferredIndex(cat))
	state, assignments, err := solver.Solve(sessions)
	require.NoError(t, err)

	evaluator, err := NewCostEvaluator(cat, DefaultWeights())
	require.NoError(t, err)
	initialCost := evaluator.Total(assignments)

	optimizer, err := NewAnnealingOptimizer(AnnealingConfig{Iterations: 200, InitialTemperature: 5, CoolingRate: 0.99}, evaluator, 7, notPreferredIndex(cat))
	require.NoError(t, err)
	_, bestCost := optimizer.Optimize(context.Background(), state, assignments, nil)

	assert.LessOrEqual(t, bestCost, initialCost)
}

func TestAnnealingOptimizerRespectsCancellation(t *testing.T) {
	cat, sessions := buildPhase1(t)
	solver := NewBacktrackingSolver(notPreferredIndex(cat))
	state, assignments, err := solver.Solve(sessions)
	require.NoError(t, err)

	evaluator, err := NewCostEvaluator(cat, DefaultWeights())
	require.NoError(t, err)
	optimizer, err := NewAnnealingOptimizer(AnnealingConfig{Iterations: 1_000_000, InitialTemperature: 5, CoolingRate: 0.9999}, evaluator, 1, notPreferredIndex(cat))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	best, _ := optimizer.Optimize(ctx, state, assignments, nil)
	assert.Len(t, best, len(assignments))
}

func TestSolvePhase1RejectsInvalidConfigBeforeSolving(t *testing.T) {
	cat := fixtureCatalog(t)
	cfg := DefaultConfig()
	cfg.Annealing.CoolingRate = 0

	_, err := SolvePhase1(cat, cfg)
	require.Error(t, err)
}

func TestNewAnnealingOptimizerRejectsInvalidConfig(t *testing.T) {
	cat := fixtureCatalog(t)
	evaluator, err := NewCostEvaluator(cat, DefaultWeights())
	require.NoError(t, err)

	cases := []AnnealingConfig{
		{Iterations: 0, InitialTemperature: 20, CoolingRate: 0.9995},
		{Iterations: 100, InitialTemperature: 0, CoolingRate: 0.9995},
		{Iterations: 100, InitialTemperature: 20, CoolingRate: 0},
		{Iterations: 100, InitialTemperature: 20, CoolingRate: 1},
	}
	for _, cfg := range cases {
		_, err := NewAnnealingOptimizer(cfg, evaluator, 1, nil)
		assert.Error(t, err)
	}
}

// Improving and neutral moves are always accepted (probability 1); a
// worsening move's acceptance probability is exp(-delta/temp).
func TestAcceptanceProbabilityMatchesMetropolisLaw(t *testing.T) {
	assert.Equal(t, 1.0, acceptanceProbability(-5, 10))
	assert.Equal(t, 1.0, acceptanceProbability(0, 10))
	assert.InDelta(t, math.Exp(-5.0/10.0), acceptanceProbability(5, 10), 1e-9)
}

// Drawing uniform [0,1) samples from a seeded RNG and accepting below the
// Metropolis probability must reproduce that probability's empirical rate,
// within sampling tolerance, given enough trials.
func TestAnnealingAcceptanceMatchesMetropolisProbability(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	delta, temp := 4.0, 8.0
	want := acceptanceProbability(delta, temp)

	const trials = 20000
	accepted := 0
	for i := 0; i < trials; i++ {
		if rng.Float64() < want {
			accepted++
		}
	}
	got := float64(accepted) / float64(trials)
	assert.InDelta(t, want, got, 0.02)
}

func TestEmitProjectsAssignmentIntoRow(t *testing.T) {
	cat := fixtureCatalog(t)
	_, sessions := buildPhase1(t)
	assignments := []Assignment{
		{Session: sessions[0], TimeSequence: TimeSequence{3}, Room: "Bldg1 101", Instructor: "I1"},
	}
	rows := Emit(cat, assignments)
	require.Len(t, rows, 1)
	assert.Equal(t, "Monday", rows[0].Day)
	assert.Contains(t, rows[0].Sections, "S1")
}
