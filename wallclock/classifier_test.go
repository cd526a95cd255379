package wallclock

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gopkg.in/DataDog/go-wallclock.v1/internal/handshake"
)

type fakeFrames struct {
	pc              uintptr
	syscallAddrs    map[uintptr]bool
	interruptedSysc bool
}

func (f *fakeFrames) PC(handshake.CapturedContext) uintptr { return f.pc }
func (f *fakeFrames) IsSyscall(addr uintptr) bool           { return f.syscallAddrs[addr] }
func (f *fakeFrames) CheckInterruptedSyscall(handshake.CapturedContext) bool {
	return f.interruptedSysc
}

type fakeOracle struct{ known map[uintptr]string }

func (o *fakeOracle) Find(addr uintptr) (string, bool) {
	lib, ok := o.known[addr]
	return lib, ok
}

func TestClassifyPCOnSyscallInstructionIsSleeping(t *testing.T) {
	frames := &fakeFrames{pc: 0x2000, syscallAddrs: map[uintptr]bool{0x2000: true}}
	c := NewClassifier(frames, nil)
	assert.Equal(t, StateSleeping, c.Classify(handshake.CapturedContext{}))
}

func TestClassifyInterruptedSyscallReturnIsSleeping(t *testing.T) {
	pc := uintptr(0x3010) // page offset 0x10: prevPC is readable without the oracle
	frames := &fakeFrames{
		pc:              pc,
		syscallAddrs:    map[uintptr]bool{pc - SyscallSize: true},
		interruptedSysc: true,
	}
	c := NewClassifier(frames, nil)
	assert.Equal(t, StateSleeping, c.Classify(handshake.CapturedContext{}))
}

func TestClassifyNearPageBoundaryConsultsLibraryOracle(t *testing.T) {
	// pc & 0xfff < SyscallSize forces the oracle check before prevPC can
	// be read at all.
	pc := uintptr(0x1000) // page offset 0, below SyscallSize
	frames := &fakeFrames{
		pc:              pc,
		syscallAddrs:    map[uintptr]bool{pc - SyscallSize: true},
		interruptedSysc: true,
	}
	oracle := &fakeOracle{known: map[uintptr]string{pc - SyscallSize: "libc.so"}}
	c := NewClassifier(frames, oracle)
	assert.Equal(t, StateSleeping, c.Classify(handshake.CapturedContext{}))
}

func TestClassifyNearPageBoundaryWithoutOracleHitIsRunning(t *testing.T) {
	pc := uintptr(0x1000)
	frames := &fakeFrames{
		pc:              pc,
		syscallAddrs:    map[uintptr]bool{pc - SyscallSize: true},
		interruptedSysc: true,
	}
	oracle := &fakeOracle{known: map[uintptr]string{}}
	c := NewClassifier(frames, oracle)
	assert.Equal(t, StateRunning, c.Classify(handshake.CapturedContext{}))
}

func TestClassifyOrdinaryInstructionIsRunning(t *testing.T) {
	frames := &fakeFrames{pc: 0x4000, syscallAddrs: map[uintptr]bool{}}
	c := NewClassifier(frames, nil)
	assert.Equal(t, StateRunning, c.Classify(handshake.CapturedContext{}))
}
