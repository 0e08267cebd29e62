package abi

import "fmt"

// Class is the SysV x86-64 classification of one eightbyte.
type Class uint8

const (
	Integer Class = iota
	SSE
	SSEUp
	X87
	X87Up
	ComplexX87
	NoClass
	Memory
)

func (c Class) String() string {
	switch c {
	case Integer:
		return "Integer"
	case SSE:
		return "SSE"
	case SSEUp:
		return "SSEUp"
	case X87:
		return "X87"
	case X87Up:
		return "X87Up"
	case ComplexX87:
		return "ComplexX87"
	case NoClass:
		return "NoClass"
	case Memory:
		return "Memory"
	default:
		return fmt.Sprintf("Class(%d)", c)
	}
}

func (c Class) isX87Family() bool {
	return c == X87 || c == X87Up || c == ComplexX87
}

// Merge combines the classes of two values sharing an eightbyte. It is
// commutative: equal classes stay; NoClass yields the other; Memory wins;
// then Integer; any x87 class left forces Memory; otherwise SSE.
func Merge(a, b Class) Class {
	switch {
	case a == b:
		return a
	case a == NoClass:
		return b
	case b == NoClass:
		return a
	case a == Memory || b == Memory:
		return Memory
	case a == Integer || b == Integer:
		return Integer
	case a.isX87Family() || b.isX87Family():
		return Memory
	default:
		return SSE
	}
}

// Classification holds the classes of the low and high eightbytes.
type Classification struct {
	Lo Class
	Hi Class
}

func (c Classification) String() string {
	return fmt.Sprintf("(%s, %s)", c.Lo, c.Hi)
}

// Validate panics when the pair breaks a classification invariant.
func (c Classification) Validate() {
	if c.Hi == Memory && c.Lo != Memory {
		invariant("invalid memory classification %s", c)
	}
	if c.Hi == SSEUp && c.Lo != SSE {
		invariant("invalid SSEUp classification %s", c)
	}
}
