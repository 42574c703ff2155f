// Command orbit is a minimal embedding-API exerciser for the VM: run a
// compiled .omf module's entry function, or disassemble one. The host
// CLI proper — argument parsing conventions, source-file resolution,
// colored output, a REPL — is out of scope for the CORE (spec.md §1);
// this binary exists only so the CORE has something that links it in.
package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/orbitlang/orbit/pkg/bytecode"
	"github.com/orbitlang/orbit/pkg/stdlib"
	"github.com/orbitlang/orbit/pkg/vm"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(*vm.FatalError); ok {
				fmt.Fprintln(os.Stderr, fe.Error())
				exitCode = 2
				return
			}
			panic(r)
		}
	}()

	if len(args) < 2 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "run":
		return runModule(args[1], entryOrDefault(args))
	case "disasm":
		return disassembleModule(args[1])
	default:
		printUsage()
		return 1
	}
}

func entryOrDefault(args []string) string {
	if len(args) >= 3 {
		return args[2]
	}
	return "main()"
}

func printUsage() {
	fmt.Println("orbit - Orbit bytecode VM")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  orbit run <module.omf> [entry]    Load a module and invoke entry (default main())")
	fmt.Println("  orbit disasm <module.omf>          Print disassembly of every native function")
}

func runModule(path, entry string) int {
	name := moduleName(path)
	v := vm.New()
	stdlib.Register(v)

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orbit: %v\n", err)
		return 1
	}
	defer f.Close()

	if _, err := v.LoadModuleFromReader(name, f); err != nil {
		fmt.Fprintf(os.Stderr, "orbit: %v\n", err)
		return 1
	}

	ok, err := v.Invoke(name, entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orbit: %v\n", err)
		return 1
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "orbit: invocation did not complete")
		return 1
	}

	if top, has := v.StackTop(); has {
		fmt.Println(vm.DumpValue(top))
	}
	return 0
}

func disassembleModule(path string) int {
	container, err := bytecode.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orbit: %v\n", err)
		return 1
	}

	var out bytes.Buffer
	for _, fn := range container.Functions {
		if fn.Kind != bytecode.FuncNative {
			continue
		}
		fmt.Fprintf(&out, "; function %d\n", fn.SignatureIndex)
		out.WriteString(bytecode.Disassemble(fn.Code))
		out.WriteByte('\n')
	}
	fmt.Print(out.String())
	return 0
}

// moduleName derives the VM's module name from a .omf file path: the
// base name with the extension stripped, matching the simple
// name->path rule LoadModule itself applies in reverse.
func moduleName(path string) string {
	base := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			base = path[i+1:]
			break
		}
	}
	ext := bytecode.Extension
	if len(base) > len(ext) && base[len(base)-len(ext):] == ext {
		return base[:len(base)-len(ext)]
	}
	return base
}
