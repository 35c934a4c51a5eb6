package ir

import (
	"fmt"
	"strings"
)

// Temp is a value slot in a block. The first temporaries of every block
// are the globals the block was built with.
type Temp int32

// Invalid is the "no value" temporary.
const Invalid = Temp(-1)

// Label is a branch target inside a block.
type Label int32

// Global names a temporary that is bound to CPU state storage.
type Global struct {
	Name  string
	Width Width
}

// Insn is one IR operation.
type Insn struct {
	Op     Opcode
	Width  Width // Operation width.
	Cond   Cond  // For Setcond and Brcond.
	Mem    MemOp // For Load and Store.
	Index  int   // MMU index for Load and Store.
	Dst    Temp
	A      Temp
	B      Temp
	Imm    int64 // Immediate, goto_tb slot, exit_tb value, or insn_start PC.
	Aux    uint32
	Label  Label
	Helper *Helper
	Args   []Temp
}

// SearchPoint maps a generated-code offset back to guest state.
type SearchPoint struct {
	Offset int    // Index of the insn_start operation in Block.Code.
	PC     uint32 // Guest program counter.
	Aux    uint32 // Architecture state recorded with the PC.
}

// Block is a translated sequence of guest instructions.
type Block struct {
	PC       uint32 // Guest address of the first instruction.
	Size     uint32 // Guest bytes covered.
	ICount   int    // Guest instructions translated.
	Code     []Insn
	Globals  []Global
	Widths   []Width // Width of every temporary.
	Labels   []int   // Code index for each label.
	Chained  bool    // Block ends in a direct goto_tb.
	IOBounds bool    // Block carries io_start/io_end bookkeeping.
}

// SearchPoints returns the insn_start table of the block.
func (b *Block) SearchPoints() (points []SearchPoint) {
	for n, in := range b.Code {
		if in.Op == OpInsnStart {
			points = append(points, SearchPoint{Offset: n, PC: uint32(in.Imm), Aux: in.Aux})
		}
	}
	return
}

// Restore finds the search point covering the code offset.
func (b *Block) Restore(offset int) (sp SearchPoint, ok bool) {
	for _, point := range b.SearchPoints() {
		if point.Offset > offset {
			break
		}
		sp = point
		ok = true
	}
	return
}

func (b *Block) tempName(t Temp) string {
	switch {
	case t == Invalid:
		return "-"
	case int(t) < len(b.Globals):
		return b.Globals[t].Name
	}
	return fmt.Sprintf("t%d", int(t))
}

// String returns a listing of the generated code.
func (b *Block) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "block %08x size %d insns %d\n", b.PC, b.Size, b.ICount)
	name := b.tempName
	for _, in := range b.Code {
		switch in.Op {
		case OpInsnStart:
			fmt.Fprintf(&sb, " ---- %08x %d\n", uint32(in.Imm), in.Aux)
		case OpLabel:
			fmt.Fprintf(&sb, "L%d:\n", in.Label)
		case OpMovi:
			fmt.Fprintf(&sb, "  movi_%v %s, $0x%x\n", in.Width, name(in.Dst), uint64(in.Imm)&in.Width.Mask())
		case OpMov, OpNeg, OpNot, OpExt8s, OpExt8u, OpExt16s, OpExt16u, OpExt32s, OpExt32u, OpTrunc, OpBswap32:
			fmt.Fprintf(&sb, "  %v_%v %s, %s\n", in.Op, in.Width, name(in.Dst), name(in.A))
		case OpSetcond:
			fmt.Fprintf(&sb, "  setcond_%v %s, %s, %s, %v\n", in.Width, name(in.Dst), name(in.A), name(in.B), in.Cond)
		case OpBrcond:
			fmt.Fprintf(&sb, "  brcond_%v %s, %s, %v, L%d\n", in.Width, name(in.A), name(in.B), in.Cond, in.Label)
		case OpBr:
			fmt.Fprintf(&sb, "  br L%d\n", in.Label)
		case OpLoad:
			fmt.Fprintf(&sb, "  ld_%v %s, [%s], %d\n", in.Mem, name(in.Dst), name(in.A), in.Index)
		case OpStore:
			fmt.Fprintf(&sb, "  st_%v %s, [%s], %d\n", in.Mem, name(in.A), name(in.B), in.Index)
		case OpCall:
			args := make([]string, len(in.Args))
			for i, arg := range in.Args {
				args[i] = name(arg)
			}
			fmt.Fprintf(&sb, "  call %s, %s, %s\n", in.Helper.Name, name(in.Dst), strings.Join(args, ", "))
		case OpGotoTB:
			fmt.Fprintf(&sb, "  goto_tb %d\n", in.Imm)
		case OpExitTB:
			fmt.Fprintf(&sb, "  exit_tb %d\n", in.Imm)
		case OpNop, OpIOStart, OpIOEnd:
			fmt.Fprintf(&sb, "  %v\n", in.Op)
		default:
			fmt.Fprintf(&sb, "  %v_%v %s, %s, %s\n", in.Op, in.Width, name(in.Dst), name(in.A), name(in.B))
		}
	}

	return sb.String()
}
