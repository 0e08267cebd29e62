package layout

import (
	"fmt"
	"strings"
)

// Arch selects the calling-convention family of a target.
type Arch uint8

const (
	ArchGeneric Arch = iota
	ArchX86
	ArchX86_64
	ArchARM
)

func (a Arch) String() string {
	switch a {
	case ArchX86:
		return "x86"
	case ArchX86_64:
		return "x86-64"
	case ArchARM:
		return "arm"
	default:
		return "generic"
	}
}

// OS distinguishes operating systems whose conventions differ on one arch.
type OS uint8

const (
	OSUnknown OS = iota
	OSLinux
	OSDarwin
)

// Target describes the ABI target triple and its scalar layout rules.
// Sizes and alignments are in bytes.
type Target struct {
	Triple string // e.g. "x86_64-linux-gnu"
	Arch   Arch
	OS     OS

	PtrSize  int
	PtrAlign int

	// Int64Align and DoubleAlign differ from the natural size on i386.
	Int64Align  int
	DoubleAlign int

	LongDoubleSize  int
	LongDoubleAlign int
	// LongDoubleX87 is set when long double is the 80-bit x87 format;
	// otherwise it is an alias for double.
	LongDoubleX87 bool

	// StructReturnInRegs enables returning small structures in registers
	// on x86-32 (Darwin convention).
	StructReturnInRegs bool
}

func X86_64LinuxGNU() Target {
	return Target{
		Triple:          "x86_64-linux-gnu",
		Arch:            ArchX86_64,
		OS:              OSLinux,
		PtrSize:         8,
		PtrAlign:        8,
		Int64Align:      8,
		DoubleAlign:     8,
		LongDoubleSize:  16,
		LongDoubleAlign: 16,
		LongDoubleX87:   true,
	}
}

func X86_64Darwin() Target {
	t := X86_64LinuxGNU()
	t.Triple = "x86_64-apple-darwin"
	t.OS = OSDarwin
	return t
}

func I386LinuxGNU() Target {
	return Target{
		Triple:          "i386-linux-gnu",
		Arch:            ArchX86,
		OS:              OSLinux,
		PtrSize:         4,
		PtrAlign:        4,
		Int64Align:      4,
		DoubleAlign:     4,
		LongDoubleSize:  12,
		LongDoubleAlign: 4,
		LongDoubleX87:   true,
	}
}

func I386Darwin() Target {
	t := I386LinuxGNU()
	t.Triple = "i386-apple-darwin"
	t.OS = OSDarwin
	t.LongDoubleSize = 16
	t.LongDoubleAlign = 16
	t.StructReturnInRegs = true
	return t
}

func ARMLinuxGNUEABI() Target {
	return Target{
		Triple:          "arm-linux-gnueabi",
		Arch:            ArchARM,
		OS:              OSLinux,
		PtrSize:         4,
		PtrAlign:        4,
		Int64Align:      8,
		DoubleAlign:     8,
		LongDoubleSize:  8,
		LongDoubleAlign: 8,
	}
}

// Generic is a 64-bit target without a specialised calling convention.
func Generic(triple string) Target {
	return Target{
		Triple:          triple,
		Arch:            ArchGeneric,
		PtrSize:         8,
		PtrAlign:        8,
		Int64Align:      8,
		DoubleAlign:     8,
		LongDoubleSize:  8,
		LongDoubleAlign: 8,
	}
}

// ParseTriple maps a target triple onto one of the known presets. Unknown
// architectures get the generic target with the triple preserved.
func ParseTriple(triple string) (Target, error) {
	triple = strings.TrimSpace(triple)
	if triple == "" {
		return Target{}, fmt.Errorf("empty target triple")
	}
	arch, rest, _ := strings.Cut(strings.ToLower(triple), "-")
	darwin := strings.Contains(rest, "darwin") || strings.Contains(rest, "macos")

	var t Target
	switch arch {
	case "x86_64", "amd64":
		t = X86_64LinuxGNU()
		if darwin {
			t = X86_64Darwin()
		}
	case "i386", "i486", "i586", "i686", "x86":
		t = I386LinuxGNU()
		if darwin {
			t = I386Darwin()
		}
	default:
		switch {
		case strings.HasPrefix(arch, "arm"), strings.HasPrefix(arch, "thumb"):
			t = ARMLinuxGNUEABI()
		default:
			return Generic(triple), nil
		}
	}
	t.Triple = triple
	return t, nil
}
