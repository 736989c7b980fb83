// Package bytecode provides immutable representations of loaded programs.
//
// A [Program] is a flat list of [Function] values addressed by index. Each
// function body is a sequence of [Instruction] values; the position of an
// instruction in that sequence is its program counter.
//
// # Key Types
//
//   - [Program]: all functions, the global count and the entry function
//   - [Function]: an immutable function with its instructions and source lines
//   - [Instruction]: an opcode and its integer operands (value type)
//   - [ControlMap]: matching else/catch/end offsets for structured blocks
//
// # Immutability Guarantees
//
// All types in this package are immutable after construction. Constructors
// copy input slices and accessors are index based:
//
//	fn.InstructionAt(pc)
//	program.FunctionAt(i)
//
// # Usage
//
// Programs are usually produced by the asm package and checked before use:
//
//	program, err := asm.Load(data)
//	if err != nil {
//	    return err
//	}
//	if err := program.Validate(); err != nil {
//	    return err
//	}
//	fmt.Printf("Functions: %d\n", program.FunctionCount())
package bytecode
