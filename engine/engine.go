// Package engine implements the round-based MC-RAPTOR traversal of
// spec §4.5: alternating debark/board/ride steps per mission, commit
// of new labels into the persistent fronts, and a transfer fan-out
// that seeds the next round. The loop is written once against
// request.Adapter and is oblivious to direction (depart-after vs
// arrive-before) and to criteria policy (basic vs loads-aware), both
// of which live entirely behind the adapter.
package engine

import (
	"github.com/transitway/raptor/criteria"
	"github.com/transitway/raptor/model"
	"github.com/transitway/raptor/request"
)

// onboardEntry is the payload carried by the per-mission onboard
// front: the trip currently ridden and the tree node that boarded it.
type onboardEntry struct {
	Trip    request.Trip
	NodeIdx int
}

// Engine holds every piece of worker-local scratch state the round
// loop needs. It is created once per worker and reused across
// requests via Reset, per spec §5's "clear without deallocate".
type Engine struct {
	Tree *Tree

	waitingFront    map[model.StopIdx]*Front[int]
	newWaitingFront map[model.StopIdx]*Front[int]

	debarkedFront    map[model.StopIdx]*Front[int]
	newDebarkedFront map[model.StopIdx]*Front[int]

	arrivedFront *Front[int]

	onboard              *Front[onboardEntry]
	missionHasNewWaiting map[model.MissionIdx]model.Position
}

// NewEngine returns a ready-to-use, empty Engine.
func NewEngine() *Engine {
	return &Engine{
		Tree:                 NewTree(),
		waitingFront:         map[model.StopIdx]*Front[int]{},
		newWaitingFront:      map[model.StopIdx]*Front[int]{},
		debarkedFront:        map[model.StopIdx]*Front[int]{},
		newDebarkedFront:     map[model.StopIdx]*Front[int]{},
		arrivedFront:         NewFront[int](),
		onboard:              NewFront[onboardEntry](),
		missionHasNewWaiting: map[model.MissionIdx]model.Position{},
	}
}

// Reset clears every scratch structure without releasing their
// backing arrays or maps, readying the Engine for the next request.
func (e *Engine) Reset() {
	e.Tree.Clear()
	for k := range e.waitingFront {
		delete(e.waitingFront, k)
	}
	for k := range e.newWaitingFront {
		delete(e.newWaitingFront, k)
	}
	for k := range e.debarkedFront {
		delete(e.debarkedFront, k)
	}
	for k := range e.newDebarkedFront {
		delete(e.newDebarkedFront, k)
	}
	e.arrivedFront.Clear()
	e.onboard.Clear()
	for k := range e.missionHasNewWaiting {
		delete(e.missionHasNewWaiting, k)
	}
}

func frontOf(m map[model.StopIdx]*Front[int], stop model.StopIdx) *Front[int] {
	f, ok := m[stop]
	if !ok {
		f = NewFront[int]()
		m[stop] = f
	}
	return f
}

// Plan runs the full MC-RAPTOR traversal for adapter and returns the
// tree-node index of every Pareto-optimal complete journey found.
func (e *Engine) Plan(adapter request.Adapter) []int {
	e.Reset()

	for _, dep := range adapter.Departures() {
		node := e.Tree.Departure(dep.Stop)
		e.addWaiting(adapter, dep.Stop, node, dep.Criteria)
	}

	for len(e.missionHasNewWaiting) > 0 {
		pending := e.missionHasNewWaiting
		e.missionHasNewWaiting = map[model.MissionIdx]model.Position{}

		for mission, startPos := range pending {
			e.scanMission(adapter, mission, startPos)
		}

		e.commitDebarked(adapter)
		e.commitWaiting()
	}

	out := make([]int, 0, len(e.arrivedFront.Entries()))
	for _, entry := range e.arrivedFront.Entries() {
		out = append(out, entry.Payload)
	}
	return out
}

// scanMission walks mission from startPos in the adapter's direction
// of travel, alternating debark, board, and ride at every position.
func (e *Engine) scanMission(adapter request.Adapter, mission model.MissionIdx, startPos model.Position) {
	e.onboard.Clear()
	p := startPos

	for {
		stop := adapter.StopOf(mission, p)

		for _, entry := range e.onboard.Entries() {
			e.debarkAt(adapter, mission, p, stop, entry.Payload, entry.Criteria)
		}

		e.boardAt(adapter, mission, p, stop, e.waitingFront)
		e.boardAt(adapter, mission, p, stop, e.newWaitingFront)

		e.onboard.MapCriteria(func(oe onboardEntry, c criteria.Criteria) criteria.Criteria {
			return adapter.Ride(oe.Trip, p, c)
		})

		next, ok := adapter.NextPosition(mission, p)
		if !ok {
			break
		}
		p = next
	}
}

func (e *Engine) debarkAt(adapter request.Adapter, mission model.MissionIdx, p model.Position, stop model.StopIdx, oe onboardEntry, onboardCriteria criteria.Criteria) {
	c, ok := adapter.Debark(oe.Trip, p, onboardCriteria)
	if !ok || !adapter.Valid(c) || e.tooLate(adapter, c) {
		return
	}
	debarked := frontOf(e.debarkedFront, stop)
	newDebarked := frontOf(e.newDebarkedFront, stop)
	if debarked.Dominates(c, adapter.LessOrEqual) || newDebarked.Dominates(c, adapter.LessOrEqual) {
		return
	}
	node := e.Tree.Alight(oe.NodeIdx, mission, p, stop, oe.Trip)
	debarked.RemoveDominatedBy(c, adapter.LessOrEqual)
	newDebarked.RemoveDominatedBy(c, adapter.LessOrEqual)
	newDebarked.AddUnchecked(node, c)
}

func (e *Engine) boardAt(adapter request.Adapter, mission model.MissionIdx, p model.Position, stop model.StopIdx, fronts map[model.StopIdx]*Front[int]) {
	front, ok := fronts[stop]
	if !ok {
		return
	}
	for _, entry := range front.Entries() {
		trip, c, ok := adapter.BestTripToBoard(p, mission, entry.Criteria)
		if !ok || e.onboard.Dominates(c, adapter.LessOrEqual) {
			continue
		}
		node := e.Tree.Board(entry.Payload, mission, p, trip)
		e.onboard.Add(onboardEntry{Trip: trip, NodeIdx: node}, c, adapter.LessOrEqual)
	}
}

// commitDebarked arrives and transfers out of every stop that got a
// new debarked label this round, then merges the scratch front into
// the persistent one.
func (e *Engine) commitDebarked(adapter request.Adapter) {
	for stop, front := range e.newDebarkedFront {
		if front.IsEmpty() {
			continue
		}
		for _, entry := range front.Entries() {
			e.tryArrive(adapter, stop, entry.Payload, entry.Criteria)
			e.fanOutTransfers(adapter, stop, entry.Payload, entry.Criteria)
		}
		frontOf(e.debarkedFront, stop).MergeUnchecked(front)
	}
}

func (e *Engine) tryArrive(adapter request.Adapter, stop model.StopIdx, debarkNode int, c criteria.Criteria) {
	complete, ok := adapter.Arrive(stop, c)
	if !ok || !adapter.Valid(complete) || e.tooLate(adapter, complete) {
		return
	}
	if e.arrivedFront.Dominates(complete, adapter.LessOrEqual) {
		return
	}
	node := e.Tree.Arrival(debarkNode, stop)
	e.arrivedFront.Add(node, complete, adapter.LessOrEqual)
}

func (e *Engine) fanOutTransfers(adapter request.Adapter, stop model.StopIdx, debarkNode int, c criteria.Criteria) {
	for _, transfer := range adapter.TransfersAt(stop) {
		tc := adapter.ApplyTransfer(transfer, c)
		if !adapter.Valid(tc) || e.tooLate(adapter, tc) {
			continue
		}
		node := e.Tree.Transfer(debarkNode, transfer)
		e.addWaiting(adapter, transfer.ToStop, node, tc)
	}
}

// addWaiting inserts (node, c) into stop's waiting front, filtering
// against both the persistent and scratch fronts, and updates
// missionHasNewWaiting for every mission touching stop to the
// earliest affected position (spec §4.5 step 4).
func (e *Engine) addWaiting(adapter request.Adapter, stop model.StopIdx, node int, c criteria.Criteria) {
	if !adapter.Valid(c) || e.tooLate(adapter, c) {
		return
	}
	existing := frontOf(e.waitingFront, stop)
	fresh := frontOf(e.newWaitingFront, stop)
	if existing.Dominates(c, adapter.LessOrEqual) || fresh.Dominates(c, adapter.LessOrEqual) {
		return
	}
	existing.RemoveDominatedBy(c, adapter.LessOrEqual)
	fresh.RemoveDominatedBy(c, adapter.LessOrEqual)
	fresh.AddUnchecked(node, c)

	for _, occ := range adapter.MissionsAt(stop) {
		if cur, ok := e.missionHasNewWaiting[occ.Mission]; !ok || adapter.IsUpstream(occ.Mission, occ.Position, cur) {
			e.missionHasNewWaiting[occ.Mission] = occ.Position
		}
	}
}

func (e *Engine) commitWaiting() {
	for stop, front := range e.newWaitingFront {
		if front.IsEmpty() {
			continue
		}
		frontOf(e.waitingFront, stop).MergeUnchecked(front)
	}
}

func (e *Engine) tooLate(adapter request.Adapter, c criteria.Criteria) bool {
	for _, entry := range e.arrivedFront.Entries() {
		if adapter.TooLate(c, entry.Criteria) {
			return true
		}
	}
	return false
}
