package main

import (
	"fmt"

	"sigmem/hexdump"
	"sigmem/pointer"
	"sigmem/process"
)

const valueTypes = "u8, u16, u32, u64, i8, i16, i32, i64, f32, f64, ptr, str, bytes"

// readValue reads the value at the end of the chain and formats it.
func readValue(p *pointer.Pointer, typ string, size process.ProcessMemorySize) (string, error) {
	switch typ {
	case "u8":
		return format(p.ReadUINT8())
	case "u16":
		return format(p.ReadUINT16())
	case "u32":
		return format(p.ReadUINT32())
	case "u64":
		return format(p.ReadUINT64())
	case "i8":
		return format(p.ReadINT8())
	case "i16":
		return format(p.ReadINT16())
	case "i32":
		return format(p.ReadINT32())
	case "i64":
		return format(p.ReadINT64())
	case "f32":
		return format(p.ReadFLOAT32())
	case "f64":
		return format(p.ReadFLOAT64())
	case "ptr":
		v, err := p.ReadPOINTER()
		if err != nil {
			return "", err
		}
		return v.ToString(), nil
	case "str":
		s, err := p.ReadNTS(size)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%q", s), nil
	case "bytes":
		data, err := p.ReadBytes(size)
		if err != nil {
			return "", err
		}
		addr := p.LastResolved()
		options := hexdump.DefaultOptions()
		options.StartAddress = uint64(addr)
		return "\n" + hexdump.Dump(data, options), nil
	default:
		return "", fmt.Errorf("unknown type %q, want one of %s", typ, valueTypes)
	}
}

func format[T any](v T, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return fmt.Sprint(v), nil
}
