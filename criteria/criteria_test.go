package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/transitway/raptor/model"
)

func clockwiseTuning() Tuning {
	return Tuning{
		LegArrivalPenalty: 120,
		LegWalkingPenalty: 60,
		TooLateThreshold:  3600,
		MinDepartureTime:  1000,
		MaxArrivalTime:    100000,
		MaxNbLegs:         8,
		Clockwise:         true,
	}
}

func TestBasicLessOrEqualEarlierArrivalDominates(t *testing.T) {
	tuning := clockwiseTuning()
	earlier := Criteria{Time: 2000, NbLegs: 1}
	later := Criteria{Time: 3000, NbLegs: 1}

	assert.True(t, Basic{}.LessOrEqual(earlier, later, tuning))
	assert.False(t, Basic{}.LessOrEqual(later, earlier, tuning))
}

func TestBasicLessOrEqualReversesUnderArriveBefore(t *testing.T) {
	tuning := clockwiseTuning()
	tuning.Clockwise = false
	earlier := Criteria{Time: 2000, NbLegs: 1}
	later := Criteria{Time: 3000, NbLegs: 1}

	assert.True(t, Basic{}.LessOrEqual(later, earlier, tuning))
	assert.False(t, Basic{}.LessOrEqual(earlier, later, tuning))
}

func TestBasicLessOrEqualAccountsForLegPenalty(t *testing.T) {
	tuning := clockwiseTuning()
	fewerLegsLaterArrival := Criteria{Time: 3000, NbLegs: 1}
	moreLegsEarlierArrival := Criteria{Time: 2000, NbLegs: 20}

	// 20 legs * 120s penalty outweighs the 1000s arrival-time gap.
	assert.True(t, Basic{}.LessOrEqual(fewerLegsLaterArrival, moreLegsEarlierArrival, tuning))
}

func TestBasicValidRejectsOutOfWindowOrTooManyLegs(t *testing.T) {
	tuning := clockwiseTuning()
	assert.True(t, Basic{}.Valid(Criteria{Time: 5000, NbLegs: 3}, tuning))
	assert.False(t, Basic{}.Valid(Criteria{Time: 500, NbLegs: 3}, tuning))
	assert.False(t, Basic{}.Valid(Criteria{Time: 5000, NbLegs: 9}, tuning))
}

func TestLoadsPolicyAddsLoadDominanceOnTopOfBasic(t *testing.T) {
	tuning := clockwiseTuning()
	lowLoad := Criteria{Time: 2000, NbLegs: 1, Loads: model.LoadsCount{Low: 3}}
	highLoad := Criteria{Time: 2000, NbLegs: 1, Loads: model.LoadsCount{High: 1}}

	assert.True(t, Loads{}.LessOrEqual(lowLoad, highLoad, tuning))
	assert.False(t, Loads{}.LessOrEqual(highLoad, lowLoad, tuning))
}

func TestLoadsPolicyStillRequiresBasicDominance(t *testing.T) {
	tuning := clockwiseTuning()
	betterLoadsWorseTime := Criteria{Time: 50000, NbLegs: 1, Loads: model.LoadsCount{Low: 1}}
	worseLoadsBetterTime := Criteria{Time: 2000, NbLegs: 1, Loads: model.LoadsCount{High: 1}}

	assert.False(t, Loads{}.LessOrEqual(betterLoadsWorseTime, worseLoadsBetterTime, tuning))
}

func TestUsesLoadsDistinguishesPolicies(t *testing.T) {
	assert.False(t, Basic{}.UsesLoads())
	assert.True(t, Loads{}.UsesLoads())
}

func TestTooLateClockwise(t *testing.T) {
	tuning := clockwiseTuning()
	complete := Criteria{Time: 10000}

	assert.False(t, TooLate(Criteria{Time: 10000}, complete, tuning))
	assert.True(t, TooLate(Criteria{Time: 13601}, complete, tuning))
}

func TestTooLateDisabledWhenThresholdZero(t *testing.T) {
	tuning := clockwiseTuning()
	tuning.TooLateThreshold = 0
	complete := Criteria{Time: 10000}

	assert.False(t, TooLate(Criteria{Time: 999999}, complete, tuning))
}

func TestTooLateArriveBefore(t *testing.T) {
	tuning := clockwiseTuning()
	tuning.Clockwise = false
	complete := Criteria{Time: 10000}

	assert.True(t, TooLate(Criteria{Time: 6400}, complete, tuning))
	assert.False(t, TooLate(Criteria{Time: 6401}, complete, tuning))
}
