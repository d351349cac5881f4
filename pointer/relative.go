package pointer

import (
	"encoding/binary"
	"errors"
	"fmt"

	"sigmem/process"
)

// ErrDisplacementOutOfBounds is returned when the 4-byte displacement would not
// fit inside the declared instruction.
var ErrDisplacementOutOfBounds = errors.New("displacement out of instruction bounds")

const displacementSize = 4

func checkDisplacement(instructionLength, displacementOffset int) error {
	if displacementOffset < 0 || displacementOffset+displacementSize > instructionLength {
		return fmt.Errorf("%w: displacement at +%d, instruction length %d",
			ErrDisplacementOutOfBounds, displacementOffset, instructionLength)
	}
	return nil
}

// relativeTarget is the address a RIP-relative operand refers to: the end of
// the instruction plus the sign-extended displacement.
func relativeTarget(scanAddr process.ProcessMemoryAddress, instructionLength int, disp int32) process.ProcessMemoryAddress {
	return scanAddr.Add(process.ProcessMemoryOffset(instructionLength) + process.ProcessMemoryOffset(disp))
}

// ResolveRelative decodes the instruction at scanAddr as
//
//	opcode bytes | disp32 | trailing bytes
//
// and returns scanAddr + instructionLength + disp32. The displacement is read
// little-endian through acc at scanAddr+displacementOffset.
func ResolveRelative(acc process.Accessor, scanAddr process.ProcessMemoryAddress, instructionLength, displacementOffset int) (process.ProcessMemoryAddress, error) {
	if err := checkDisplacement(instructionLength, displacementOffset); err != nil {
		return 0, err
	}

	at := scanAddr.Add(process.ProcessMemoryOffset(displacementOffset))
	data, err := acc.ReadMemory(at, displacementSize)
	if err != nil {
		return 0, fmt.Errorf("read displacement: %w", err)
	}
	if len(data) < displacementSize {
		return 0, process.ReadError(at, displacementSize, fmt.Errorf("short read: %d bytes", len(data)))
	}

	disp := int32(binary.LittleEndian.Uint32(data))
	return relativeTarget(scanAddr, instructionLength, disp), nil
}

// RelativeDisplacement decodes the same instruction shape from an image that
// was already copied out of the target. offset is the match offset inside
// image; the result is module-relative like offset itself.
func RelativeDisplacement(image []byte, offset, instructionLength, displacementOffset int) (int, error) {
	if err := checkDisplacement(instructionLength, displacementOffset); err != nil {
		return 0, err
	}

	at := offset + displacementOffset
	if offset < 0 || at+displacementSize > len(image) {
		return 0, fmt.Errorf("%w: displacement at image offset %d, image is %d bytes",
			ErrDisplacementOutOfBounds, at, len(image))
	}

	disp := int32(binary.LittleEndian.Uint32(image[at:]))
	return offset + instructionLength + int(disp), nil
}
