package main

import (
	"fmt"

	"sigmem/process"

	"golang.org/x/arch/x86/x86asm"
)

// maxInstructionLength is the longest x86 encoding.
const maxInstructionLength = 15

func decodeMode(ptrSize process.ProcessMemorySize) int {
	if ptrSize == process.PointerSize32 {
		return 32
	}
	return 64
}

// decodeInstruction decodes the instruction at the start of code, which was
// read from pc, and renders it in Intel syntax.
func decodeInstruction(code []byte, pc process.ProcessMemoryAddress, mode int) (x86asm.Inst, string, error) {
	inst, err := x86asm.Decode(code, mode)
	if err != nil {
		return inst, "", fmt.Errorf("decode at %s: %w", pc.ToString(), err)
	}
	return inst, x86asm.IntelSyntax(inst, uint64(pc), nil), nil
}

// ripTarget returns the address a RIP-relative memory operand refers to.
// x86asm reports 32-bit displacements zero-extended.
func ripTarget(inst x86asm.Inst, pc process.ProcessMemoryAddress) (process.ProcessMemoryAddress, bool) {
	for _, arg := range inst.Args {
		mem, ok := arg.(x86asm.Mem)
		if !ok || mem.Base != x86asm.RIP {
			continue
		}
		disp := process.ProcessMemoryOffset(int32(mem.Disp))
		return pc.Add(process.ProcessMemoryOffset(inst.Len) + disp), true
	}
	return 0, false
}

// describeMatch decodes the instruction at a match and, when instrLen is set,
// checks it against the length the caller declared for the signature.
func describeMatch(acc process.Accessor, addr process.ProcessMemoryAddress, instrLen int) (string, error) {
	code, err := acc.ReadMemory(addr, maxInstructionLength)
	if err != nil {
		return "", err
	}

	inst, text, err := decodeInstruction(code, addr, decodeMode(acc.PointerSize()))
	if err != nil {
		return "", err
	}

	if target, ok := ripTarget(inst, addr); ok {
		text += fmt.Sprintf(" ; -> %s", target.ToString())
	}
	if instrLen > 0 && inst.Len != instrLen {
		cliLog.Warn("Declared instruction length ", instrLen, " but decoded ", inst.Len, " bytes at ", addr.ToString())
	}
	return text, nil
}
