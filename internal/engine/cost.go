package engine

import (
	"sort"
	"strconv"
	"strings"

	"github.com/GamalAsraan/Timetable-generator-ATG/internal/catalog"
	apperrors "github.com/GamalAsraan/Timetable-generator-ATG/pkg/errors"
)

// Weights are the soft-constraint penalty multipliers. A zero weight turns
// its penalty term off, so zero-value Weights scores every solution as 0;
// use DefaultWeights for the defaults.
type Weights struct {
	Gap       float64
	BadTime   float64
	Building  float64
	Imbalance float64
}

// DefaultWeights returns the default penalty multipliers.
func DefaultWeights() Weights {
	return Weights{Gap: 1, BadTime: 2, Building: 5, Imbalance: 2}
}

// CostEvaluator scores a full set of assignments against the soft
// constraints. It precomputes the bad-time slot set and a slot-to-day
// index once per catalog, since both the gap and imbalance penalties need to
// know which day a slot falls on.
type CostEvaluator struct {
	weights      Weights
	badTimeSlots map[int]struct{}
	slotDay      map[int]string
	rooms        map[string]catalog.Room
	days         []string
}

// NewCostEvaluator precomputes the bad-time slot set (a slot is "bad" when it
// starts before 09:00 or ends at/after 16:00) and the full catalog day set,
// since the imbalance penalty must consider every day a
// section *could* meet, not only the days it happens to have a class.
//
// weights must be non-negative; NewCostEvaluator rejects a negative weight
// with an InvalidConfiguration error rather than silently producing a
// negative (reward-like) penalty term.
func NewCostEvaluator(cat *catalog.Catalog, weights Weights) (*CostEvaluator, error) {
	if err := validateWeights(weights); err != nil {
		return nil, err
	}

	bad := map[int]struct{}{}
	day := map[int]string{}
	for id, slot := range cat.TimeSlots {
		if isBadTime(slot) {
			bad[id] = struct{}{}
		}
		day[id] = slot.Day
	}
	days := make([]string, 0, len(cat.SlotsByDay))
	for d := range cat.SlotsByDay {
		days = append(days, d)
	}
	sort.Strings(days)

	return &CostEvaluator{weights: weights, badTimeSlots: bad, slotDay: day, rooms: cat.Rooms, days: days}, nil
}

// validateWeights rejects any negative penalty multiplier.
func validateWeights(weights Weights) error {
	if weights.Gap < 0 || weights.BadTime < 0 || weights.Building < 0 || weights.Imbalance < 0 {
		return apperrors.NewInvalidConfiguration("soft-constraint weights must be non-negative")
	}
	return nil
}

func isBadTime(slot catalog.TimeSlot) bool {
	startHour := hourOf(slot.StartTime)
	endHour := hourOf(slot.EndTime)
	return startHour < 9 || endHour >= 16
}

func hourOf(hhmm string) int {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) == 0 {
		return 0
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	return h
}

// Total computes the aggregate penalty for a complete assignment set.
func (e *CostEvaluator) Total(assignments []Assignment) float64 {
	return e.badTimeCost(assignments) +
		e.buildingChangeCost(assignments) +
		e.gapCost(assignments) +
		e.imbalanceCost(assignments)
}

func (e *CostEvaluator) badTimeCost(assignments []Assignment) float64 {
	var total float64
	for _, a := range assignments {
		for _, slot := range a.TimeSequence {
			if _, bad := e.badTimeSlots[slot]; bad {
				total += e.weights.BadTime
			}
		}
	}
	return total
}

// buildingChangeCost groups assignments by instructor, sorts each group by
// its first slot id, and penalizes adjacent pairs that fall on the same day
// but in different buildings.
func (e *CostEvaluator) buildingChangeCost(assignments []Assignment) float64 {
	byInstructor := map[string][]Assignment{}
	for _, a := range assignments {
		byInstructor[a.Instructor] = append(byInstructor[a.Instructor], a)
	}

	var total float64
	for _, list := range byInstructor {
		list := list
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].TimeSequence[0] < list[j].TimeSequence[0]
		})
		for i := 1; i < len(list); i++ {
			prev, cur := list[i-1], list[i]
			if e.slotDay[prev.TimeSequence[0]] != e.slotDay[cur.TimeSequence[0]] {
				continue
			}
			if e.rooms[prev.Room].Building() != e.rooms[cur.Room].Building() {
				total += e.weights.Building
			}
		}
	}
	return total
}

// gapCost penalizes schedule gaps for each section on each day. A gap of 1
// is free; 2 costs the base weight, 3 costs 3x, anything larger costs 5x.
func (e *CostEvaluator) gapCost(assignments []Assignment) float64 {
	bySectionDay := map[string]map[string][]int{}
	for _, a := range assignments {
		day := e.slotDay[a.TimeSequence[0]]
		for _, sectionID := range a.Session.Sections {
			if bySectionDay[sectionID] == nil {
				bySectionDay[sectionID] = map[string][]int{}
			}
			bySectionDay[sectionID][day] = append(bySectionDay[sectionID][day], a.TimeSequence...)
		}
	}

	var total float64
	for _, byDay := range bySectionDay {
		for _, slots := range byDay {
			sort.Ints(slots)
			for i := 1; i < len(slots); i++ {
				gap := slots[i] - slots[i-1]
				switch {
				case gap == 2:
					total += e.weights.Gap
				case gap == 3:
					total += e.weights.Gap * 3
				case gap > 3:
					total += e.weights.Gap * 5
				}
			}
		}
	}
	return total
}

// imbalanceCost penalizes sections whose busiest day has more than 3 more
// occupied slots than their lightest day. h_d is taken over every day in the
// catalog (e.days), not just days the section happens to meet on, so a
// section crammed onto a single day with zero slots on every other day
// still shows a real min/max spread instead of degenerately comparing one
// day against itself.
func (e *CostEvaluator) imbalanceCost(assignments []Assignment) float64 {
	bySection := map[string]map[string]int{}
	for _, a := range assignments {
		day := e.slotDay[a.TimeSequence[0]]
		for _, sectionID := range a.Session.Sections {
			if bySection[sectionID] == nil {
				bySection[sectionID] = map[string]int{}
			}
			bySection[sectionID][day] += len(a.TimeSequence)
		}
	}

	var total float64
	for _, loads := range bySection {
		if len(e.days) == 0 {
			continue
		}
		minLoad, maxLoad := -1, -1
		for _, d := range e.days {
			h := loads[d]
			if minLoad == -1 || h < minLoad {
				minLoad = h
			}
			if h > maxLoad {
				maxLoad = h
			}
		}
		if maxLoad-minLoad > 3 {
			total += float64(maxLoad-minLoad) * e.weights.Imbalance
		}
	}
	return total
}
