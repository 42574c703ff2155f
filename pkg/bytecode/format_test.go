package bytecode

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleContainer() *Container {
	return &Container{
		Strings: []string{"main()", "Point", "2.0", "ctor()"},
		Constants: []Const{
			{Kind: ConstNumber, Number: 2.0},
			{Kind: ConstNumber, Number: 3.0},
			{Kind: ConstString, StringIndex: 0},
			{Kind: ConstBool, Bool: true},
			{Kind: ConstNil},
		},
		Globals: []Const{
			{Kind: ConstNumber, Number: 0},
		},
		Functions: []FunctionSpec{
			{
				SignatureIndex: 0,
				Arity:          0,
				LocalCount:     0,
				StackEffect:    4,
				Kind:           FuncNative,
				Code:           []byte{byte(OpLoadConst), 0, 0, byte(OpLoadConst), 0, 1, byte(OpAdd), byte(OpRetVal)},
			},
			{
				SignatureIndex: 3,
				Arity:          2,
				Kind:           FuncForeign,
				ForeignName:    3,
			},
		},
		Classes: []ClassSpec{
			{NameIndex: 1, FieldCount: 2, HasCtor: true, CtorIndex: 1},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := sampleContainer()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, c))

	decoded, err := Decode(&buf, "main")
	require.NoError(t, err)
	require.Equal(t, "main", decoded.Name)
	require.Equal(t, c.Strings, decoded.Strings)
	require.Equal(t, c.Constants, decoded.Constants)
	require.Equal(t, c.Globals, decoded.Globals)
	require.Equal(t, c.Functions, decoded.Functions)
	require.Equal(t, c.Classes, decoded.Classes)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0})
	_, err := Decode(&buf, "bad")
	require.Error(t, err)
}

func TestDecodeRejectsTruncatedStream(t *testing.T) {
	c := sampleContainer()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, c))

	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-10])
	_, err := Decode(truncated, "truncated")
	require.Error(t, err)
}

func TestDisassembleProducesOneLinePerInstruction(t *testing.T) {
	code := []byte{byte(OpLoadConst), 0, 0, byte(OpLoadConst), 0, 1, byte(OpAdd), byte(OpRetVal)}
	out := Disassemble(code)
	require.Equal(t, 4, bytes.Count([]byte(out), []byte("\n")))
}
