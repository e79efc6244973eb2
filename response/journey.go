// Package response turns an engine arrival node into the Journey record
// shape of spec §6: an ordered list of sections (vehicle rides and foot
// transfers) with absolute UTC times, stop identifiers, and the trip
// that was ridden. It walks the journeys tree once per result and does
// no search of its own -- the engine has already found the optimal
// criteria; this package only replays the path that produced them.
package response

import (
	"fmt"
	"time"

	"github.com/transitway/raptor/calendar"
	"github.com/transitway/raptor/engine"
	"github.com/transitway/raptor/model"
	"github.com/transitway/raptor/timetable"
)

// SectionKind distinguishes a ridden vehicle leg from a foot transfer
// or the initial/final fallback.
type SectionKind int

const (
	SectionFallback SectionKind = iota
	SectionVehicle
	SectionTransfer
)

// Section is one leg of a Journey.
type Section struct {
	Kind SectionKind

	FromStop model.StopIdx
	ToStop   model.StopIdx

	Departure time.Time
	Arrival   time.Time

	// Vehicle-only fields.
	TripID        string
	BoardLoad     model.Load
	HasBoardLoad  bool

	// Transfer-only field.
	TransferExtID string
}

// Journey is one complete, validated result ready to be serialized to
// the dispatcher's response envelope.
type Journey struct {
	Departure time.Time
	Arrival   time.Time
	Sections  []Section
}

// Builder replays journeys-tree paths into Journey values. It holds no
// state of its own beyond the snapshot it queries, and is safe to
// share across concurrent requests serving the same snapshot.
type Builder struct {
	tt  *timetable.Store
	cal *calendar.Calendar
}

// NewBuilder returns a Builder bound to the timetable store and
// calendar of one transit data snapshot.
func NewBuilder(tt *timetable.Store, cal *calendar.Calendar) *Builder {
	return &Builder{tt: tt, cal: cal}
}

// Build reconstructs the Journey ending at arrivalNode of tree,
// validating every invariant spec §6 requires of a response: each
// debark is strictly downstream of its board, every board/debark
// respects the mission's flow directions, and every transfer's target
// stop matches the next node's origin stop. clockwise must match the
// adapter.Tuning.Clockwise used to produce arrivalNode, since ascending
// vs descending legs are laid out in opposite raw tree order.
func (b *Builder) Build(tree *engine.Tree, arrivalNode int, clockwise bool) (*Journey, error) {
	var nodes []engine.Node
	tree.Ancestors(arrivalNode, func(n engine.Node) { nodes = append(nodes, n) })
	if !clockwise {
		reverseNodes(nodes)
	}

	j := &Journey{}
	var pendingBoard *engine.Node

	for i, n := range nodes {
		switch n.Kind {
		case engine.NodeDeparture:
			// carries no time of its own; the first section derives
			// its departure instant from the node that follows.

		case engine.NodeBoard:
			nb := n
			pendingBoard = &nb

		case engine.NodeAlight:
			if pendingBoard == nil {
				return nil, fmt.Errorf("response: alight node %d has no matching board", i)
			}
			if clockwise && n.Position <= pendingBoard.Position {
				return nil, fmt.Errorf("response: alight position %d not downstream of board position %d", n.Position, pendingBoard.Position)
			}
			if !clockwise && n.Position >= pendingBoard.Position {
				return nil, fmt.Errorf("response: alight position %d not downstream of board position %d", n.Position, pendingBoard.Position)
			}
			sec, err := b.vehicleSection(*pendingBoard, n)
			if err != nil {
				return nil, err
			}
			j.Sections = append(j.Sections, sec)
			pendingBoard = nil

		case engine.NodeTransfer:
			sec, err := b.transferSection(nodes, i, n)
			if err != nil {
				return nil, err
			}
			j.Sections = append(j.Sections, sec)

		case engine.NodeArrival:
			// terminal node; no section of its own.
		}
	}

	if err := validateChain(j.Sections); err != nil {
		return nil, err
	}
	if len(j.Sections) == 0 {
		return nil, fmt.Errorf("response: journey has no sections")
	}

	j.Departure = j.Sections[0].Departure
	j.Arrival = j.Sections[len(j.Sections)-1].Arrival
	return j, nil
}

// vehicleSection resolves a (board, alight) node pair to a Section,
// reading the concrete times off the timetable store by (mission,
// vehicle, day, position) rather than trusting the criteria (which
// carry only the dominance-relevant totals, not per-leg instants).
func (b *Builder) vehicleSection(board, alight engine.Node) (Section, error) {
	trip := board.Trip
	if trip.Mission != alight.Mission || trip != alight.Trip {
		return Section{}, fmt.Errorf("response: board/alight mission or trip mismatch")
	}

	tt := b.tt.Mission(trip.Mission)
	depOffset, ok := tt.BoardTime(trip.Vehicle, board.Position)
	if !ok {
		return Section{}, fmt.Errorf("response: board position %d not board-capable", board.Position)
	}
	arrOffset, ok := tt.DebarkTime(trip.Vehicle, alight.Position)
	if !ok {
		return Section{}, fmt.Errorf("response: alight position %d not debark-capable", alight.Position)
	}
	if alight.Position == board.Position {
		return Section{}, fmt.Errorf("response: alight position equal to board position")
	}

	fromStop := tt.StopAt(board.Position)
	toStop := alight.Stop

	depUTC := b.cal.ComposeUTC(trip.Day, depOffset)
	arrUTC := b.cal.ComposeUTC(trip.Day, arrOffset)

	section := Section{
		Kind:      SectionVehicle,
		FromStop:  fromStop,
		ToStop:    toStop,
		Departure: b.cal.ToTime(depUTC),
		Arrival:   b.cal.ToTime(arrUTC),
		TripID:    tt.Vehicles[trip.Vehicle].TripID,
	}
	if boardSeg := firstSegmentIndex(board.Position, alight.Position); boardSeg >= 0 && boardSeg < len(tt.Loads[trip.Vehicle]) {
		section.BoardLoad = tt.Loads[trip.Vehicle][boardSeg]
		section.HasBoardLoad = true
	}
	return section, nil
}

func firstSegmentIndex(board, alight model.Position) int {
	if board < alight {
		return int(board)
	}
	return int(alight)
}

// transferSection resolves a Transfer node, checking its target stop
// against the next node in the path (the node a transfer's ToStop must
// match, since that is what addWaiting seeded the next board search
// from).
func (b *Builder) transferSection(nodes []engine.Node, i int, n engine.Node) (Section, error) {
	from := n.Transfer.FromStop
	to := n.Transfer.ToStop
	if to != n.Stop {
		return Section{}, fmt.Errorf("response: transfer node stop does not match its own target")
	}
	if i+1 < len(nodes) {
		next := nodes[i+1]
		if origin := b.originOf(next); origin != to {
			return Section{}, fmt.Errorf("response: transfer target %d does not match following node's origin %d", to, origin)
		}
	}

	return Section{
		Kind:          SectionTransfer,
		FromStop:      from,
		ToStop:        to,
		TransferExtID: n.Transfer.ExtID,
	}, nil
}

// originOf returns the stop a node is anchored at, for checking a
// transfer's target against whatever node follows it in the path. A
// Board node carries no Stop of its own (it is keyed by mission and
// position instead), so its origin is resolved through the timetable.
func (b *Builder) originOf(n engine.Node) model.StopIdx {
	if n.Kind == engine.NodeBoard {
		return b.tt.Mission(n.Mission).StopAt(n.Position)
	}
	return n.Stop
}

// validateChain fills in transfer section times from the vehicle
// sections around them (a transfer has no time of its own in the tree;
// it inherits its departure from the debark it follows and its arrival
// from the board it precedes), checks that each transfer starts at the
// previous section's arrival stop and ends at the next section's
// departure stop (positions are mission-local and not comparable
// across missions), and checks that no section departs before the
// previous one arrives (equal instants are accepted).
func validateChain(sections []Section) error {
	for i := range sections {
		if sections[i].Kind != SectionTransfer {
			continue
		}
		if i == 0 || i+1 >= len(sections) {
			return fmt.Errorf("response: transfer section %d has no surrounding vehicle legs", i)
		}
		prev := sections[i-1]
		next := sections[i+1]
		if prev.ToStop != sections[i].FromStop {
			return fmt.Errorf("response: transfer %d origin does not match previous section's arrival stop", i)
		}
		if next.FromStop != sections[i].ToStop {
			return fmt.Errorf("response: transfer %d target does not match next section's departure stop", i)
		}
		sections[i].Departure = prev.Arrival
		sections[i].Arrival = next.Departure
	}
	for i := 1; i < len(sections); i++ {
		if sections[i].Departure.Before(sections[i-1].Arrival) {
			return fmt.Errorf("response: section %d departs before section %d arrives", i, i-1)
		}
	}
	return nil
}

func reverseNodes(nodes []engine.Node) {
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
}
