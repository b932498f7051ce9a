package arch

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
)

// PE machine types.
const (
	peMachineI386  = 0x014c
	peMachineAMD64 = 0x8664
	peMachineARM64 = 0xaa64
	peMachineARMNT = 0x01c4
)

// ELF e_machine values.
const (
	elfMachine386     = 3
	elfMachineARM     = 40
	elfMachineX86_64  = 62
	elfMachineAArch64 = 183
)

// Mach-O magic numbers and CPU types.
const (
	machoMagic32 = 0xfeedface
	machoMagic64 = 0xfeedfacf
	machoFat     = 0xcafebabe
	machoFat64   = 0xcafebabf

	cpuArch64   = 0x01000000
	cpuTypeX86  = 7
	cpuTypeARM  = 12
	cpuTypeX64  = cpuTypeX86 | cpuArch64
	cpuTypeARM6 = cpuTypeARM | cpuArch64
)

// ClassifyFile reads the executable header of a single-file plugin.
func ClassifyFile(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return Unknown
	}
	defer f.Close()
	return ClassifyReader(f)
}

// ClassifyReader reads a PE, ELF or Mach-O header from r.
func ClassifyReader(r io.ReaderAt) string {
	var magic [4]byte
	if _, err := r.ReadAt(magic[:], 0); err != nil {
		return Unknown
	}
	switch {
	case magic[0] == 'M' && magic[1] == 'Z':
		return parsePE(r)
	case bytes.Equal(magic[:], []byte{0x7f, 'E', 'L', 'F'}):
		return parseELF(r)
	}
	be := binary.BigEndian.Uint32(magic[:])
	le := binary.LittleEndian.Uint32(magic[:])
	switch {
	case be == machoFat || be == machoFat64:
		return Universal
	case le == machoMagic32 || le == machoMagic64:
		return parseMachO(r, binary.LittleEndian)
	case be == machoMagic32 || be == machoMagic64:
		return parseMachO(r, binary.BigEndian)
	}
	return Unknown
}

func parsePE(r io.ReaderAt) string {
	var off [4]byte
	if _, err := r.ReadAt(off[:], 60); err != nil {
		return Unknown
	}
	peOffset := int64(binary.LittleEndian.Uint32(off[:]))

	var hdr [6]byte
	if _, err := r.ReadAt(hdr[:], peOffset); err != nil {
		return Unknown
	}
	if !bytes.Equal(hdr[:4], []byte{'P', 'E', 0, 0}) {
		return Unknown
	}
	switch m := binary.LittleEndian.Uint16(hdr[4:]); m {
	case peMachineAMD64:
		return X64
	case peMachineI386:
		return X86
	case peMachineARM64:
		return ARM64
	case peMachineARMNT:
		return ARM
	default:
		return unknownMachine(uint32(m))
	}
}

func parseELF(r io.ReaderAt) string {
	var ident [20]byte
	if _, err := r.ReadAt(ident[:], 0); err != nil {
		return Unknown
	}
	var order binary.ByteOrder = binary.LittleEndian
	if ident[5] == 2 {
		order = binary.BigEndian
	}
	switch m := order.Uint16(ident[18:]); m {
	case elfMachineX86_64:
		return X64
	case elfMachine386:
		return X86
	case elfMachineAArch64:
		return ARM64
	case elfMachineARM:
		return ARM
	default:
		return unknownMachine(uint32(m))
	}
}

func parseMachO(r io.ReaderAt, order binary.ByteOrder) string {
	var hdr [8]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return Unknown
	}
	switch cpu := order.Uint32(hdr[4:]); cpu {
	case cpuTypeX64:
		return X64
	case cpuTypeX86:
		return X86
	case cpuTypeARM6:
		return ARM64
	case cpuTypeARM:
		return ARM
	default:
		return unknownMachine(cpu)
	}
}
