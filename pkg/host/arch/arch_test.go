package arch

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func peImage(machine uint16) []byte {
	b := make([]byte, 0x90)
	b[0], b[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(b[60:], 0x80)
	copy(b[0x80:], []byte{'P', 'E', 0, 0})
	binary.LittleEndian.PutUint16(b[0x84:], machine)
	return b
}

func elfImage(machine uint16, bigEndian bool) []byte {
	b := make([]byte, 64)
	copy(b, []byte{0x7f, 'E', 'L', 'F', 2, 1})
	if bigEndian {
		b[5] = 2
		binary.BigEndian.PutUint16(b[18:], machine)
	} else {
		binary.LittleEndian.PutUint16(b[18:], machine)
	}
	return b
}

func machoImage(magic, cpu uint32) []byte {
	b := make([]byte, 32)
	binary.LittleEndian.PutUint32(b, magic)
	binary.LittleEndian.PutUint32(b[4:], cpu)
	return b
}

func TestClassifyReader(t *testing.T) {
	fat := make([]byte, 8)
	binary.BigEndian.PutUint32(fat, machoFat)

	badPE := peImage(peMachineAMD64)
	copy(badPE[0x80:], "XX")

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"PEx64", peImage(peMachineAMD64), X64},
		{"PEx86", peImage(peMachineI386), X86},
		{"PEARM64", peImage(peMachineARM64), ARM64},
		{"PEOther", peImage(0x0200), "Unknown (0x200)"},
		{"PEBadSignature", badPE, Unknown},
		{"PETruncated", []byte{'M', 'Z', 0, 0}, Unknown},
		{"ELFx64", elfImage(elfMachineX86_64, false), X64},
		{"ELFi386", elfImage(elfMachine386, false), X86},
		{"ELFAArch64", elfImage(elfMachineAArch64, false), ARM64},
		{"ELFBigEndianARM", elfImage(elfMachineARM, true), ARM},
		{"MachOx64", machoImage(machoMagic64, cpuTypeX64), X64},
		{"MachOARM64", machoImage(machoMagic64, cpuTypeARM6), ARM64},
		{"MachOi386", machoImage(machoMagic32, cpuTypeX86), X86},
		{"Fat", fat, Universal},
		{"Text", []byte("hello world"), Unknown},
		{"Empty", nil, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyReader(bytes.NewReader(tt.data)); got != tt.want {
				t.Errorf("ClassifyReader = %q, want %q", got, tt.want)
			}
		})
	}
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestInspectCompatibility(t *testing.T) {
	dir := t.TempDir()
	x64 := filepath.Join(dir, "a.dll")
	x86 := filepath.Join(dir, "b.dll")
	junk := filepath.Join(dir, "c.vst3")
	writeFile(t, x64, peImage(peMachineAMD64))
	writeFile(t, x86, peImage(peMachineI386))
	writeFile(t, junk, []byte("not a binary"))

	tests := []struct {
		name   string
		host64 bool
		path   string
		want   bool
	}{
		{"64on64", true, x64, true},
		{"32on64", true, x86, false},
		{"32on32", false, x86, true},
		{"64on32", false, x64, false},
		{"UnknownOn64", true, junk, true},
		{"UnknownOn32", false, junk, true},
		{"MissingFile", true, filepath.Join(dir, "missing.dll"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := NewInspector(WithHost64(tt.host64))
			if got := i.IsCompatible(tt.path); got != tt.want {
				t.Errorf("IsCompatible = %v, want %v (%+v)", got, tt.want, i.Inspect(tt.path))
			}
		})
	}
}

func TestBundles(t *testing.T) {
	dir := t.TempDir()

	win := filepath.Join(dir, "Win.vst3")
	writeFile(t, filepath.Join(win, "Contents", "x86_64-win", "Win.vst3"), peImage(peMachineAMD64))

	both := filepath.Join(dir, "Both.vst3")
	writeFile(t, filepath.Join(both, "Contents", "x86_64-win", "Both.vst3"), nil)
	writeFile(t, filepath.Join(both, "Contents", "x86-win", "Both.vst3"), nil)

	linux32 := filepath.Join(dir, "Lin.vst3")
	writeFile(t, filepath.Join(linux32, "Contents", "i386-linux", "Lin.so"), nil)

	mac := filepath.Join(dir, "Mac.vst3")
	writeFile(t, filepath.Join(mac, "Contents", "MacOS", "Mac"), machoImage(machoMagic64, cpuTypeARM6))

	broken := filepath.Join(dir, "Broken.vst3")
	if err := os.MkdirAll(filepath.Join(broken, "Contents", "Resources"), 0o755); err != nil {
		t.Fatal(err)
	}

	t.Run("Classify", func(t *testing.T) {
		host64 := NewInspector(WithHost64(true))
		host32 := NewInspector(WithHost64(false))
		tests := []struct {
			i    *Inspector
			path string
			want string
		}{
			{host64, win, X64},
			{host64, both, X64},
			{host32, both, X86},
			{host64, linux32, X86},
			{host64, mac, ARM64},
			{host64, broken, Unknown},
		}
		for _, tt := range tests {
			if got := tt.i.Classify(tt.path); got != tt.want {
				t.Errorf("Classify(%s) = %q, want %q", filepath.Base(tt.path), got, tt.want)
			}
		}
	})

	t.Run("ValidBundle", func(t *testing.T) {
		tests := []struct {
			path   string
			format string
			want   bool
		}{
			{win, "VST3", true},
			{linux32, "VST3", true},
			{mac, "VST3", true},
			{broken, "VST3", false},
			{broken, "AudioUnit", true},
			{filepath.Join(dir, "missing.vst3"), "CLAP", false},
		}
		for _, tt := range tests {
			if got := ValidBundle(tt.path, tt.format); got != tt.want {
				t.Errorf("ValidBundle(%s, %s) = %v, want %v", filepath.Base(tt.path), tt.format, got, tt.want)
			}
		}
	})
}

func TestLabels(t *testing.T) {
	if !Is64(X64) || !Is64(ARM64) || Is64(X86) || Is64(Universal) {
		t.Error("Is64 gave wrong answers")
	}
	if Is64("Unknown (0x1640)") || Is64("Unknown (0x6400)") {
		t.Error("Is64 matched digits inside an unknown machine code")
	}
	if !IsUnknown("Unknown (0x1)") || !IsUnknown("") || IsUnknown(X64) {
		t.Error("IsUnknown gave wrong answers")
	}
	if NewInspector(WithHost64(false)).HostArch() != X86 {
		t.Error("HostArch for 32-bit host")
	}
}
