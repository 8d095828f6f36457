package parser

import "github.com/leapstack-labs/plmap/pkg/core"

// State is the parser state, determined by the innermost open unit.
type State int

// Parser states.
const (
	StateTopLevel State = iota
	StateInPackageSpec
	StateInPackageBody
	StateInProcedure
	StateInFunction
	StateInTrigger
	StateInBlock
)

func (s State) String() string {
	switch s {
	case StateTopLevel:
		return "TOP_LEVEL"
	case StateInPackageSpec:
		return "IN_PACKAGE_SPEC"
	case StateInPackageBody:
		return "IN_PACKAGE_BODY"
	case StateInProcedure:
		return "IN_PROCEDURE"
	case StateInFunction:
		return "IN_FUNCTION"
	case StateInTrigger:
		return "IN_TRIGGER"
	case StateInBlock:
		return "IN_BLOCK"
	default:
		return "UNKNOWN"
	}
}

func stateOf(kind core.NodeKind) State {
	switch kind {
	case core.KindPackageSpec:
		return StateInPackageSpec
	case core.KindPackageBody:
		return StateInPackageBody
	case core.KindProcedure:
		return StateInProcedure
	case core.KindFunction:
		return StateInFunction
	case core.KindTrigger:
		return StateInTrigger
	default:
		return StateInBlock
	}
}

type phase int

const (
	phaseDecl phase = iota // declaration section, before the unit's BEGIN
	phaseBody              // executable section
)

// frame is one open unit on the parser stack.
type frame struct {
	unit    *core.SourceUnit
	start   int  // token index of the first token of the unit
	created bool // opened by a top-level style statement; closes on '/' or the next statement

	phase     phase
	depth     int // open BEGIN blocks, including the unit's own
	caseDepth int

	endSeen bool
	endTok  int // index of the last token of the unit once END has been read

	discard   bool             // duplicate declaration, reported and dropped on close
	shadow    bool             // nested inside a discarded unit, dropped silently
	canonical *core.SourceUnit // first declaration when discard is set

	seen map[string]*core.SourceUnit // child declarations by kind and name
}

func (f *frame) dropped() bool {
	return f.discard || f.shadow
}
