package bytecode

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Disassemble renders code as one "ip: mnemonic operand" line per
// instruction, the way smog's debugger prints breakpoint context. It
// does not need a Module — constant-pool contents are resolved
// separately by callers that want `load_const 3  ; "hello"` style
// annotations (pkg/vm's debugger does this).
func Disassemble(code []byte) string {
	var b strings.Builder
	ip := 0
	for ip < len(code) {
		op := Opcode(code[ip])
		width := OperandWidth(op)
		fmt.Fprintf(&b, "%04d  %-12s", ip, op)
		switch width {
		case 0:
			// no operand
		case 1:
			fmt.Fprintf(&b, "%d", code[ip+1])
		case 2:
			fmt.Fprintf(&b, "%d", binary.BigEndian.Uint16(code[ip+1:ip+3]))
		}
		b.WriteByte('\n')
		ip += 1 + width
	}
	return b.String()
}
