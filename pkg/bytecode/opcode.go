// Package bytecode defines Orbit's instruction set and the binary .omf
// module container format (spec.md §4.5 and §6).
//
// Unlike smog's Instruction{Op, Operand} pair decoded once at compile
// time, Orbit's bytecode is a raw byte stream the interpreter decodes on
// the fly: one-byte opcodes, with immediate operands that are either one
// byte (local/arg index) or a two-byte big-endian value (constant index,
// jump offset, global index, field index). This matches spec.md §4.5
// exactly and is what makes the invoke_sym/init_sym rewrite protocol
// possible — a rewrite patches bytes in place, not a decoded struct.
package bytecode

// Opcode is a single-byte VM instruction.
type Opcode byte

const (
	// OpHalt terminates the interpreter with success. No operand.
	OpHalt Opcode = iota
	// OpLoadNil pushes nil. No operand.
	OpLoadNil
	// OpLoadTrue pushes true. No operand.
	OpLoadTrue
	// OpLoadFalse pushes false. No operand.
	OpLoadFalse
	// OpLoadConst pushes fn.module.constants[idx]. u16 operand.
	OpLoadConst
	// OpLoadLocal pushes locals[idx]. u8 operand.
	OpLoadLocal
	// OpLoadField pops an instance, pushes obj.fields[idx]. u16 operand.
	OpLoadField
	// OpLoadGlobal pushes fn.module.globals[idx]. u16 operand.
	OpLoadGlobal
	// OpStoreLocal sets locals[idx] = pop(). u8 operand.
	OpStoreLocal
	// OpStoreField: v=pop(); obj=pop(); obj.fields[idx]=v. u16 operand.
	OpStoreField
	// OpStoreGlobal sets fn.module.globals[idx] = pop(). u16 operand.
	OpStoreGlobal
	// OpAdd pops two numbers, pushes their sum. No operand.
	OpAdd
	// OpSub pops two numbers, pushes their difference. No operand.
	OpSub
	// OpMul pops two numbers, pushes their product. No operand.
	OpMul
	// OpDiv pops two numbers, pushes their quotient. No operand.
	OpDiv
	// OpTestLt pops two numbers, pushes a < b. No operand.
	OpTestLt
	// OpTestGt pops two numbers, pushes a > b. No operand.
	OpTestGt
	// OpTestEq pops two values, pushes whether they are equal. No operand.
	OpTestEq
	// OpAnd is reserved and has no semantics. The loader accepts it;
	// executing it is a fatal interpreter error.
	OpAnd
	// OpOr is reserved and has no semantics. The loader accepts it;
	// executing it is a fatal interpreter error.
	OpOr
	// OpJump adds off to ip. u16 operand.
	OpJump
	// OpJumpIf pops the condition; if truthy, adds off to ip. u16 operand.
	OpJumpIf
	// OpRJump subtracts off from ip. u16 operand.
	OpRJump
	// OpRJumpIf pops the condition; if truthy, subtracts off from ip. u16 operand.
	OpRJumpIf
	// OpPop discards the top of stack. No operand.
	OpPop
	// OpSwap exchanges the top two stack values. No operand.
	OpSwap
	// OpInvokeSym resolves a symbolic call by name, rewrites the call
	// site to OpInvoke, and invokes. u16 operand (constant-pool index
	// of the signature string, later rewritten to the resolved Function).
	OpInvokeSym
	// OpInvoke invokes the function at constants[idx]. u16 operand.
	OpInvoke
	// OpRet resets sp to frame.stack_base and pops the frame. No operand.
	OpRet
	// OpRetVal pops the return value, resets sp, pushes it back, pops
	// the frame. No operand.
	OpRetVal
	// OpInitSym resolves a symbolic class reference, rewrites the call
	// site to OpInit, and initializes. The site carries two operand
	// bytes: the class-name constant index is read from the first, the
	// second is a pad byte, and the rewrite turns both into OpInit's u16
	// operand.
	OpInitSym
	// OpInit pushes a new instance of the class at constants[idx]. u16 operand.
	OpInit
	// OpDebugPrt prints the top of stack for debugging. No operand.
	OpDebugPrt
)

// operandWidth is how many immediate bytes follow the opcode byte in the
// bytecode stream. OpInitSym is the one asymmetric case: its index is
// read from a single byte, but the site is padded to two operand bytes so
// that the rewrite to OpInit keeps its length (see rewriteInit in pkg/vm).
var operandWidth = [...]int{
	OpHalt:       0,
	OpLoadNil:    0,
	OpLoadTrue:   0,
	OpLoadFalse:  0,
	OpLoadConst:  2,
	OpLoadLocal:  1,
	OpLoadField:  2,
	OpLoadGlobal: 2,
	OpStoreLocal: 1,
	OpStoreField: 2,
	OpStoreGlobal: 2,
	OpAdd:        0,
	OpSub:        0,
	OpMul:        0,
	OpDiv:        0,
	OpTestLt:     0,
	OpTestGt:     0,
	OpTestEq:     0,
	OpAnd:        0,
	OpOr:         0,
	OpJump:       2,
	OpJumpIf:     2,
	OpRJump:      2,
	OpRJumpIf:    2,
	OpPop:        0,
	OpSwap:       0,
	OpInvokeSym:  2,
	OpInvoke:     2,
	OpRet:        0,
	OpRetVal:     0,
	OpInitSym:    2,
	OpInit:       2,
	OpDebugPrt:   0,
}

// OperandWidth returns the number of immediate operand bytes following
// op's opcode byte.
func OperandWidth(op Opcode) int {
	if int(op) >= len(operandWidth) {
		return 0
	}
	return operandWidth[op]
}

// String returns a human-readable mnemonic, used by the debugger and the
// disassemble command (spec.md's opcode table names).
func (op Opcode) String() string {
	switch op {
	case OpHalt:
		return "halt"
	case OpLoadNil:
		return "load_nil"
	case OpLoadTrue:
		return "load_true"
	case OpLoadFalse:
		return "load_false"
	case OpLoadConst:
		return "load_const"
	case OpLoadLocal:
		return "load_local"
	case OpLoadField:
		return "load_field"
	case OpLoadGlobal:
		return "load_global"
	case OpStoreLocal:
		return "store_local"
	case OpStoreField:
		return "store_field"
	case OpStoreGlobal:
		return "store_global"
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpTestLt:
		return "test_lt"
	case OpTestGt:
		return "test_gt"
	case OpTestEq:
		return "test_eq"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpJump:
		return "jump"
	case OpJumpIf:
		return "jump_if"
	case OpRJump:
		return "rjump"
	case OpRJumpIf:
		return "rjump_if"
	case OpPop:
		return "pop"
	case OpSwap:
		return "swap"
	case OpInvokeSym:
		return "invoke_sym"
	case OpInvoke:
		return "invoke"
	case OpRet:
		return "ret"
	case OpRetVal:
		return "ret_val"
	case OpInitSym:
		return "init_sym"
	case OpInit:
		return "init"
	case OpDebugPrt:
		return "debug_prt"
	default:
		return "unknown"
	}
}
