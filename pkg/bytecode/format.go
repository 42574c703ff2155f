// This file implements the .omf binary container format (spec.md §6).
//
// Binary layout, all multi-byte integers little-endian except bytecode
// operands themselves (which are big-endian, per spec.md §4.5 — the two
// encodings serve different readers: the container header is read once
// by the loader, bytecode operands are read repeatedly by the hot
// interpreter loop and big-endian was the spec's explicit choice there):
//
//	[[Header]]
//	  Magic    u32  0x4F52424D ("ORBM" read as a big-endian number;
//	                the little-endian file bytes are "MBRO")
//	  Version  u32  format version, currently 1
//	  Flags    u32  reserved, currently 0
//
//	[[String pool]]
//	  Count u32
//	  For each: Length u32, UTF-8 bytes
//
//	[[Constant pool]]
//	  Count u32
//	  For each: Kind byte, then kind-specific payload
//	    0x00 nil       — no payload
//	    0x01 bool      — 1 byte
//	    0x02 number    — 8 bytes, float64 little-endian
//	    0x03 string    — u32 index into the string pool
//
//	[[Global table]]
//	  Count u32
//	  For each: one constant-pool-format entry (the initial value)
//
//	[[Function table]]
//	  Count u32
//	  For each:
//	    SignatureIndex u32
//	    Arity          u8
//	    LocalCount     u8
//	    StackEffect    u16
//	    Kind           byte (0 native, 1 foreign)
//	    native:  CodeLen u32, Code bytes
//	    foreign: NameIndex u32
//
//	[[Class table]]
//	  Count u32
//	  For each:
//	    NameIndex  u32
//	    FieldCount u16
//	    HasCtor    byte, CtorIndex u32 (present only if HasCtor != 0)
//	    HasDtor    byte, DtorIndex u32 (present only if HasDtor != 0)
package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const (
	// Magic is the .omf file signature, 0x4F52424D ("ORBM" as a
	// big-endian number). It is written little-endian like the rest of
	// the header, so a file's first four bytes are "MBRO".
	Magic uint32 = 0x4F52424D
	// FormatVersion is the current container format version.
	FormatVersion uint32 = 1

	formatFlags uint32 = 0
)

// ConstKind discriminates a serialized constant-pool entry.
type ConstKind byte

const (
	ConstNil ConstKind = iota
	ConstBool
	ConstNumber
	ConstString
)

// Const is one decoded constant-pool or global-table entry.
type Const struct {
	Kind        ConstKind
	Bool        bool
	Number      float64
	StringIndex uint32
}

// FuncWireKind discriminates a serialized function table entry.
type FuncWireKind byte

const (
	FuncNative FuncWireKind = iota
	FuncForeign
)

// FunctionSpec is one decoded function-table entry.
type FunctionSpec struct {
	SignatureIndex uint32
	Arity          uint8
	LocalCount     uint8
	StackEffect    uint16
	Kind           FuncWireKind
	Code           []byte // native only
	ForeignName    uint32 // foreign only: string-pool index
}

// ClassSpec is one decoded class-table entry.
type ClassSpec struct {
	NameIndex  uint32
	FieldCount uint16
	HasCtor    bool
	CtorIndex  uint32
	HasDtor    bool
	DtorIndex  uint32
}

// Container is the fully decoded, but not yet object-graph-constructed,
// contents of a .omf file. pkg/vm's loader walks a Container to build the
// live object.Module (allocating Strings, Functions, and Classes through
// the VM's allocator and registering exports into the VM's global
// tables) — Container itself holds no heap objects and needs no VM.
type Container struct {
	Name      string
	Strings   []string
	Constants []Const
	Globals   []Const
	Functions []FunctionSpec
	Classes   []ClassSpec
}

// Encode serializes c to w in .omf format. Used by tests and tooling to
// build fixture modules; the front-end compiler (out of scope for this
// repository, per spec.md §1) is the format's other writer.
func Encode(w io.Writer, c *Container) error {
	if err := writeHeader(w); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := writeStrings(w, c.Strings); err != nil {
		return fmt.Errorf("write string pool: %w", err)
	}
	if err := writeConstants(w, c.Constants); err != nil {
		return fmt.Errorf("write constant pool: %w", err)
	}
	if err := writeConstants(w, c.Globals); err != nil {
		return fmt.Errorf("write global table: %w", err)
	}
	if err := writeFunctions(w, c.Functions); err != nil {
		return fmt.Errorf("write function table: %w", err)
	}
	if err := writeClasses(w, c.Classes); err != nil {
		return fmt.Errorf("write class table: %w", err)
	}
	return nil
}

// Decode reads a .omf container from r. name is recorded on the
// returned Container for debugger/error messages (the format itself
// carries no module name — modules are named by the loader's
// name→path rule, per spec.md §4.6).
func Decode(r io.Reader, name string) (*Container, error) {
	if err := readHeader(r); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	strings_, err := readStrings(r)
	if err != nil {
		return nil, fmt.Errorf("read string pool: %w", err)
	}
	constants, err := readConstants(r)
	if err != nil {
		return nil, fmt.Errorf("read constant pool: %w", err)
	}
	globals, err := readConstants(r)
	if err != nil {
		return nil, fmt.Errorf("read global table: %w", err)
	}
	functions, err := readFunctions(r)
	if err != nil {
		return nil, fmt.Errorf("read function table: %w", err)
	}
	classes, err := readClasses(r)
	if err != nil {
		return nil, fmt.Errorf("read class table: %w", err)
	}
	return &Container{
		Name:      name,
		Strings:   strings_,
		Constants: constants,
		Globals:   globals,
		Functions: functions,
		Classes:   classes,
	}, nil
}

func writeHeader(w io.Writer) error {
	for _, v := range []uint32{Magic, FormatVersion, formatFlags} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func readHeader(r io.Reader) error {
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return err
	}
	if magic != Magic {
		return fmt.Errorf("invalid magic number: 0x%08X (expected 0x%08X)", magic, Magic)
	}
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return err
	}
	if version != FormatVersion {
		return fmt.Errorf("unsupported .omf version: %d (expected %d)", version, FormatVersion)
	}
	var flags uint32
	return binary.Read(r, binary.LittleEndian, &flags)
}

func writeStrings(w io.Writer, strs []string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(strs))); err != nil {
		return err
	}
	for _, s := range strs {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
			return err
		}
		if _, err := w.Write([]byte(s)); err != nil {
			return err
		}
	}
	return nil
}

func readStrings(r io.Reader) ([]string, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	out := make([]string, count)
	for i := range out {
		var length uint32
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return nil, err
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		out[i] = string(buf)
	}
	return out, nil
}

func writeConstants(w io.Writer, consts []Const) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(consts))); err != nil {
		return err
	}
	for i, c := range consts {
		if err := writeConstant(w, c); err != nil {
			return fmt.Errorf("constant %d: %w", i, err)
		}
	}
	return nil
}

func writeConstant(w io.Writer, c Const) error {
	if err := binary.Write(w, binary.LittleEndian, byte(c.Kind)); err != nil {
		return err
	}
	switch c.Kind {
	case ConstNil:
		return nil
	case ConstBool:
		var b byte
		if c.Bool {
			b = 1
		}
		return binary.Write(w, binary.LittleEndian, b)
	case ConstNumber:
		return binary.Write(w, binary.LittleEndian, math.Float64bits(c.Number))
	case ConstString:
		return binary.Write(w, binary.LittleEndian, c.StringIndex)
	default:
		return fmt.Errorf("unknown constant kind %d", c.Kind)
	}
}

func readConstants(r io.Reader) ([]Const, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	out := make([]Const, count)
	for i := range out {
		c, err := readConstant(r)
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

func readConstant(r io.Reader) (Const, error) {
	var kindByte byte
	if err := binary.Read(r, binary.LittleEndian, &kindByte); err != nil {
		return Const{}, err
	}
	kind := ConstKind(kindByte)
	switch kind {
	case ConstNil:
		return Const{Kind: kind}, nil
	case ConstBool:
		var b byte
		if err := binary.Read(r, binary.LittleEndian, &b); err != nil {
			return Const{}, err
		}
		return Const{Kind: kind, Bool: b != 0}, nil
	case ConstNumber:
		var bits uint64
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return Const{}, err
		}
		return Const{Kind: kind, Number: math.Float64frombits(bits)}, nil
	case ConstString:
		var idx uint32
		if err := binary.Read(r, binary.LittleEndian, &idx); err != nil {
			return Const{}, err
		}
		return Const{Kind: kind, StringIndex: idx}, nil
	default:
		return Const{}, fmt.Errorf("unknown constant kind %d", kindByte)
	}
}

func writeFunctions(w io.Writer, fns []FunctionSpec) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(fns))); err != nil {
		return err
	}
	for i, f := range fns {
		if err := writeFunction(w, f); err != nil {
			return fmt.Errorf("function %d: %w", i, err)
		}
	}
	return nil
}

func writeFunction(w io.Writer, f FunctionSpec) error {
	for _, v := range []interface{}{f.SignatureIndex, f.Arity, f.LocalCount, f.StackEffect, byte(f.Kind)} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	switch f.Kind {
	case FuncNative:
		if err := binary.Write(w, binary.LittleEndian, uint32(len(f.Code))); err != nil {
			return err
		}
		_, err := w.Write(f.Code)
		return err
	case FuncForeign:
		return binary.Write(w, binary.LittleEndian, f.ForeignName)
	default:
		return fmt.Errorf("unknown function kind %d", f.Kind)
	}
}

func readFunctions(r io.Reader) ([]FunctionSpec, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	out := make([]FunctionSpec, count)
	for i := range out {
		f, err := readFunction(r)
		if err != nil {
			return nil, fmt.Errorf("function %d: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}

func readFunction(r io.Reader) (FunctionSpec, error) {
	var f FunctionSpec
	var kindByte byte
	fields := []interface{}{&f.SignatureIndex, &f.Arity, &f.LocalCount, &f.StackEffect, &kindByte}
	for _, v := range fields {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return FunctionSpec{}, err
		}
	}
	f.Kind = FuncWireKind(kindByte)
	switch f.Kind {
	case FuncNative:
		var codeLen uint32
		if err := binary.Read(r, binary.LittleEndian, &codeLen); err != nil {
			return FunctionSpec{}, err
		}
		code := make([]byte, codeLen)
		if _, err := io.ReadFull(r, code); err != nil {
			return FunctionSpec{}, err
		}
		f.Code = code
	case FuncForeign:
		if err := binary.Read(r, binary.LittleEndian, &f.ForeignName); err != nil {
			return FunctionSpec{}, err
		}
	default:
		return FunctionSpec{}, fmt.Errorf("unknown function kind %d", kindByte)
	}
	return f, nil
}

func writeClasses(w io.Writer, classes []ClassSpec) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(classes))); err != nil {
		return err
	}
	for i, c := range classes {
		if err := writeClass(w, c); err != nil {
			return fmt.Errorf("class %d: %w", i, err)
		}
	}
	return nil
}

func writeClass(w io.Writer, c ClassSpec) error {
	if err := binary.Write(w, binary.LittleEndian, c.NameIndex); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, c.FieldCount); err != nil {
		return err
	}
	if err := writeOptionalIndex(w, c.HasCtor, c.CtorIndex); err != nil {
		return err
	}
	return writeOptionalIndex(w, c.HasDtor, c.DtorIndex)
}

func writeOptionalIndex(w io.Writer, has bool, idx uint32) error {
	var b byte
	if has {
		b = 1
	}
	if err := binary.Write(w, binary.LittleEndian, b); err != nil {
		return err
	}
	if !has {
		return nil
	}
	return binary.Write(w, binary.LittleEndian, idx)
}

func readClasses(r io.Reader) ([]ClassSpec, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	out := make([]ClassSpec, count)
	for i := range out {
		c, err := readClass(r)
		if err != nil {
			return nil, fmt.Errorf("class %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

func readClass(r io.Reader) (ClassSpec, error) {
	var c ClassSpec
	if err := binary.Read(r, binary.LittleEndian, &c.NameIndex); err != nil {
		return ClassSpec{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &c.FieldCount); err != nil {
		return ClassSpec{}, err
	}
	var err error
	c.HasCtor, c.CtorIndex, err = readOptionalIndex(r)
	if err != nil {
		return ClassSpec{}, err
	}
	c.HasDtor, c.DtorIndex, err = readOptionalIndex(r)
	if err != nil {
		return ClassSpec{}, err
	}
	return c, nil
}

func readOptionalIndex(r io.Reader) (bool, uint32, error) {
	var b byte
	if err := binary.Read(r, binary.LittleEndian, &b); err != nil {
		return false, 0, err
	}
	if b == 0 {
		return false, 0, nil
	}
	var idx uint32
	if err := binary.Read(r, binary.LittleEndian, &idx); err != nil {
		return false, 0, err
	}
	return true, idx, nil
}
