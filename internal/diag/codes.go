package diag

import (
	"fmt"
)

// Code is a compact, stable diagnostic identifier. Ownership-checker
// codes live in the 4xxx range, internal invariant violations in 9xxx.
// Readonly and liveness analyses have no codes: they never report.
type Code uint16

const (
	UnknownCode Code = 0

	// Ownership / move checking
	OwnInfo Code = 4000
	// OwnUseAfterMove: a variable is read or transferred after its
	// value was moved out on every path reaching the use.
	OwnUseAfterMove Code = 4001
	// OwnUseAfterMaybeMove: a variable is used after a move that
	// happens only on some branches (inconsistent branch ownership).
	OwnUseAfterMaybeMove Code = 4002
	// OwnDoubleTransfer: a value is transferred twice.
	OwnDoubleTransfer Code = 4003
	// OwnLoopTransfer: a loop body transfers a variable the next
	// iteration still needs.
	OwnLoopTransfer Code = 4004

	// Internal invariant violations (compiler bugs, not user errors)
	IntInfo Code = 9000
	// IntNonTermination: a supposedly terminating fixed point did not
	// converge within its iteration bound.
	IntNonTermination Code = 9001
)

var codeDescription = map[Code]string{
	UnknownCode:          "unknown error",
	OwnInfo:              "ownership info",
	OwnUseAfterMove:      "use of a moved value",
	OwnUseAfterMaybeMove: "use of a possibly moved value",
	OwnDoubleTransfer:    "value transferred twice",
	OwnLoopTransfer:      "loop transfers a value needed by the next iteration",
	IntInfo:              "internal info",
	IntNonTermination:    "analysis failed to converge",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("OWN%04d", ic)
	case ic >= 9000 && ic < 10000:
		return fmt.Sprintf("INT%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
