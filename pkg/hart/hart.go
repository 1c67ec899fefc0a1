// Package hart implements the RV32I execution engine: a single hart
// (hardware thread) that owns a program counter, halt state, and an
// instruction counter, and ticks one instruction at a time over a
// borrowed memory.Memory and regfile.RegisterFile.
package hart

import (
	"fmt"
	"io"

	"github.com/bassosimone/rv32i/pkg/decode"
	"github.com/bassosimone/rv32i/pkg/hexfmt"
	"github.com/bassosimone/rv32i/pkg/memory"
	"github.com/bassosimone/rv32i/pkg/regfile"
)

// TraceWidth is the left-justified field width of the disassembly
// column in a trace line, before the "// annotation" suffix.
const TraceWidth = 35

// Hart is a single RV32I execution context. It holds a non-owning
// reference to a Memory and a RegisterFile; both must outlive the
// Hart.
type Hart struct {
	PC               uint32
	InsnCounter      uint64
	Halt             bool
	HaltReason       string
	ShowInstructions bool
	ShowRegisters    bool
	MHartID          uint32

	Mem  *memory.Memory
	Regs *regfile.RegisterFile

	// Trace, if non-nil, receives one line per executed instruction
	// (when ShowInstructions is set) and the register/PC dump (when
	// ShowRegisters is set). Instruction semantics are identical
	// whether or not Trace is set.
	Trace io.Writer
}

// New returns a Hart wired to mem and regs, with HaltReason "none".
func New(mem *memory.Memory, regs *regfile.RegisterFile) *Hart {
	return &Hart{
		Mem:        mem,
		Regs:       regs,
		HaltReason: "none",
	}
}

// Reset clears the hart back to its initial state. Memory and the
// register file are not touched beyond regs.Reset().
func (h *Hart) Reset() {
	h.PC = 0
	h.Regs.Reset()
	h.InsnCounter = 0
	h.Halt = false
	h.HaltReason = "none"
}

// IsHalted reports whether the hart has latched a halt.
func (h *Hart) IsHalted() bool {
	return h.Halt
}

// dump writes the register file followed by a pc line to w.
func (h *Hart) dump(w io.Writer, header string) {
	h.Regs.Dump(w, header)
	fmt.Fprintf(w, "%s%3s %s\n", header, "pc", hexfmt.Word(h.PC))
}

// Tick executes exactly one instruction. If Halt is already set, Tick
// is a no-op: no counter change, no PC change, no side effect.
func (h *Hart) Tick() {
	if h.Halt {
		return
	}

	h.InsnCounter++

	if h.ShowRegisters && h.Trace != nil {
		h.dump(h.Trace, "")
	}

	insn := h.Mem.Load32(h.PC)

	if h.ShowInstructions && h.Trace != nil {
		fmt.Fprintf(h.Trace, "%s: %s  ", hexfmt.Word(h.PC), hexfmt.Word(insn))
		h.exec(insn, h.Trace)
		fmt.Fprintln(h.Trace)
	} else {
		h.exec(insn, nil)
	}
}

// trace writes the disassembly (padded to TraceWidth) and the
// "// annotation" suffix to w, when w is non-nil.
func (h *Hart) trace(w io.Writer, insn uint32, annotation string) {
	if w == nil {
		return
	}
	disasm := decode.Disassemble(h.PC, insn)
	fmt.Fprintf(w, "%-*s// %s", TraceWidth, disasm, annotation)
}

func (h *Hart) illegal(insn uint32, w io.Writer) {
	h.trace(w, insn, "illegal instruction")
	h.Halt = true
	h.HaltReason = "Illegal instruction"
}

func (h *Hart) ebreak(insn uint32, w io.Writer) {
	h.trace(w, insn, "halt")
	h.Halt = true
	h.HaltReason = "EBREAK instruction"
}

// exec dispatches and applies the effect of insn, writing a trace
// annotation to w if it is non-nil.
func (h *Hart) exec(insn uint32, w io.Writer) {
	in := decode.Decode(insn)

	switch in.Kind {
	case decode.Ebreak:
		h.ebreak(insn, w)
	case decode.Illegal:
		h.illegal(insn, w)
	case decode.Lui:
		h.execLui(insn, in, w)
	case decode.Auipc:
		h.execAuipc(insn, in, w)
	case decode.Jal:
		h.execJal(insn, in, w)
	case decode.Jalr:
		h.execJalr(insn, in, w)
	case decode.Beq, decode.Bne, decode.Blt, decode.Bge, decode.Bltu, decode.Bgeu:
		h.execBranch(insn, in, w)
	case decode.Lb, decode.Lh, decode.Lw, decode.Lbu, decode.Lhu:
		h.execLoad(insn, in, w)
	case decode.Sb, decode.Sh, decode.Sw:
		h.execStore(insn, in, w)
	case decode.Addi, decode.Xori, decode.Ori, decode.Andi:
		h.execAluImmBitwise(insn, in, w)
	case decode.Slti:
		h.execSlti(insn, in, w)
	case decode.Sltiu:
		h.execSltiu(insn, in, w)
	case decode.Slli, decode.Srli, decode.Srai:
		h.execShiftImm(insn, in, w)
	case decode.Add, decode.Sub, decode.And, decode.Or, decode.Xor:
		h.execAluReg(insn, in, w)
	case decode.Sll, decode.Srl, decode.Sra:
		h.execShiftReg(insn, in, w)
	case decode.Slt:
		h.execSlt(insn, in, w)
	case decode.Sltu:
		h.execSltu(insn, in, w)
	case decode.Ecall, decode.Csrrw, decode.Csrrs, decode.Csrrc,
		decode.Csrrwi, decode.Csrrsi, decode.Csrrci:
		h.execCsr(insn, in, w)
	default:
		h.illegal(insn, w)
	}
}

func (h *Hart) execLui(insn uint32, in decode.Instruction, w io.Writer) {
	value := in.ImmU << 12
	h.Regs.Set(in.Rd, value)
	h.trace(w, insn, fmt.Sprintf("x%d = %s", in.Rd, hexfmt.Word0x(value)))
	h.PC += 4
}

func (h *Hart) execAuipc(insn uint32, in decode.Instruction, w io.Writer) {
	base := in.ImmU << 12
	value := h.PC + base
	h.Regs.Set(in.Rd, value)
	h.trace(w, insn, fmt.Sprintf("x%d = %s + %s = %s",
		in.Rd, hexfmt.Word0x(h.PC), hexfmt.Word0x(base), hexfmt.Word0x(value)))
	h.PC += 4
}

func (h *Hart) execJal(insn uint32, in decode.Instruction, w io.Writer) {
	link := h.PC + 4
	target := h.PC + in.ImmJ
	h.Regs.Set(in.Rd, link)
	h.trace(w, insn, fmt.Sprintf("x%d = %s, pc = %s + %s = %s",
		in.Rd, hexfmt.Word0x(link), hexfmt.Word0x(h.PC), hexfmt.Word0x(in.ImmJ), hexfmt.Word0x(target)))
	h.PC = target
}

func (h *Hart) execJalr(insn uint32, in decode.Instruction, w io.Writer) {
	rs1Value := h.Regs.Get(in.Rs1)
	link := h.PC + 4
	target := (in.ImmI + rs1Value) &^ 1
	h.Regs.Set(in.Rd, link)
	h.trace(w, insn, fmt.Sprintf("x%d = %s, pc = (%s + %s) & %s = %s",
		in.Rd, hexfmt.Word0x(link), hexfmt.Word0x(in.ImmI), hexfmt.Word0x(rs1Value),
		hexfmt.Word0x(0xfffffffe), hexfmt.Word0x(target)))
	h.PC = target
}

var branchSymbols = map[decode.Kind]string{
	decode.Beq:  "==",
	decode.Bne:  "!=",
	decode.Blt:  "<",
	decode.Bge:  ">=",
	decode.Bltu: "<U",
	decode.Bgeu: ">=U",
}

func (h *Hart) execBranch(insn uint32, in decode.Instruction, w io.Writer) {
	rs1Value := h.Regs.Get(in.Rs1)
	rs2Value := h.Regs.Get(in.Rs2)

	var taken bool
	switch in.Kind {
	case decode.Beq:
		taken = rs1Value == rs2Value
	case decode.Bne:
		taken = rs1Value != rs2Value
	case decode.Blt:
		taken = int32(rs1Value) < int32(rs2Value)
	case decode.Bge:
		taken = int32(rs1Value) >= int32(rs2Value)
	case decode.Bltu:
		taken = rs1Value < rs2Value
	case decode.Bgeu:
		taken = rs1Value >= rs2Value
	}

	step := uint32(4)
	if taken {
		step = in.ImmB
	}

	h.trace(w, insn, fmt.Sprintf("pc += (%s %s %s ? %s : 4) = %s",
		hexfmt.Word0x(rs1Value), branchSymbols[in.Kind], hexfmt.Word0x(rs2Value),
		hexfmt.Word0x(in.ImmB), hexfmt.Word0x(h.PC+step)))

	h.PC += step
}

func (h *Hart) execLoad(insn uint32, in decode.Instruction, w io.Writer) {
	rs1Value := h.Regs.Get(in.Rs1)
	addr := rs1Value + in.ImmI

	var value uint32
	var width int
	var signed bool
	switch in.Kind {
	case decode.Lb:
		value, width, signed = h.Mem.Load8SX(addr), 8, true
	case decode.Lh:
		value, width, signed = h.Mem.Load16SX(addr), 16, true
	case decode.Lw:
		value, width, signed = h.Mem.Load32(addr), 32, false
	case decode.Lbu:
		value, width, signed = h.Mem.Load8(addr), 8, false
	case decode.Lhu:
		value, width, signed = h.Mem.Load16(addr), 16, false
	}

	h.Regs.Set(in.Rd, value)

	extend := "zx"
	if signed {
		extend = "sx"
	}
	h.trace(w, insn, fmt.Sprintf("x%d = %s(m%d(%s + %s)) = %s",
		in.Rd, extend, width, hexfmt.Word0x(in.ImmI), hexfmt.Word0x(rs1Value), hexfmt.Word0x(value)))

	h.PC += 4
}

func (h *Hart) execStore(insn uint32, in decode.Instruction, w io.Writer) {
	rs1Value := h.Regs.Get(in.Rs1)
	rs2Value := h.Regs.Get(in.Rs2)
	addr := rs1Value + in.ImmS

	var value uint32
	var width int
	switch in.Kind {
	case decode.Sb:
		value, width = rs2Value&0xff, 8
		h.Mem.Store8(addr, value)
	case decode.Sh:
		value, width = rs2Value&0xffff, 16
		h.Mem.Store16(addr, value)
	case decode.Sw:
		value, width = rs2Value, 32
		h.Mem.Store32(addr, value)
	}

	h.trace(w, insn, fmt.Sprintf("m%d(%s + %s) = %s",
		width, hexfmt.Word0x(rs1Value), hexfmt.Word0x(in.ImmS), hexfmt.Word0x(value)))

	h.PC += 4
}

var aluImmSymbols = map[decode.Kind]string{
	decode.Addi: "+",
	decode.Xori: "^",
	decode.Ori:  "|",
	decode.Andi: "&",
}

func (h *Hart) execAluImmBitwise(insn uint32, in decode.Instruction, w io.Writer) {
	rs1Value := h.Regs.Get(in.Rs1)

	var value uint32
	switch in.Kind {
	case decode.Addi:
		value = rs1Value + in.ImmI
	case decode.Xori:
		value = rs1Value ^ in.ImmI
	case decode.Ori:
		value = rs1Value | in.ImmI
	case decode.Andi:
		value = rs1Value & in.ImmI
	}

	h.Regs.Set(in.Rd, value)
	h.trace(w, insn, fmt.Sprintf("x%d = %s %s %s = %s",
		in.Rd, hexfmt.Word0x(rs1Value), aluImmSymbols[in.Kind], hexfmt.Word0x(in.ImmI), hexfmt.Word0x(value)))
	h.PC += 4
}

func (h *Hart) execSlti(insn uint32, in decode.Instruction, w io.Writer) {
	rs1Value := h.Regs.Get(in.Rs1)
	var value uint32
	if int32(rs1Value) < int32(in.ImmI) {
		value = 1
	}
	h.Regs.Set(in.Rd, value)
	h.trace(w, insn, fmt.Sprintf("x%d = (%s < %d) ? 1 : 0 = %s",
		in.Rd, hexfmt.Word0x(rs1Value), int32(in.ImmI), hexfmt.Word0x(value)))
	h.PC += 4
}

func (h *Hart) execSltiu(insn uint32, in decode.Instruction, w io.Writer) {
	rs1Value := h.Regs.Get(in.Rs1)
	var value uint32
	if rs1Value < in.ImmI {
		value = 1
	}
	h.Regs.Set(in.Rd, value)
	h.trace(w, insn, fmt.Sprintf("x%d = (%s <U %s) ? 1 : 0 = %s",
		in.Rd, hexfmt.Word0x(rs1Value), hexfmt.Word0x(in.ImmI), hexfmt.Word0x(value)))
	h.PC += 4
}

func (h *Hart) execShiftImm(insn uint32, in decode.Instruction, w io.Writer) {
	rs1Value := h.Regs.Get(in.Rs1)
	shamt := in.ImmI & 0x1f

	var value uint32
	var symbol string
	switch in.Kind {
	case decode.Slli:
		value, symbol = rs1Value<<shamt, "<<"
	case decode.Srli:
		value, symbol = rs1Value>>shamt, ">>"
	case decode.Srai:
		value, symbol = uint32(int32(rs1Value)>>shamt), ">>"
	}

	h.Regs.Set(in.Rd, value)
	h.trace(w, insn, fmt.Sprintf("x%d = %s %s %d = %s",
		in.Rd, hexfmt.Word0x(rs1Value), symbol, shamt, hexfmt.Word0x(value)))
	h.PC += 4
}

var aluRegSymbols = map[decode.Kind]string{
	decode.Add: "+",
	decode.Sub: "-",
	decode.And: "&",
	decode.Or:  "|",
	decode.Xor: "^",
}

func (h *Hart) execAluReg(insn uint32, in decode.Instruction, w io.Writer) {
	rs1Value := h.Regs.Get(in.Rs1)
	rs2Value := h.Regs.Get(in.Rs2)

	var value uint32
	switch in.Kind {
	case decode.Add:
		value = rs1Value + rs2Value
	case decode.Sub:
		value = rs1Value - rs2Value
	case decode.And:
		value = rs1Value & rs2Value
	case decode.Or:
		value = rs1Value | rs2Value
	case decode.Xor:
		value = rs1Value ^ rs2Value
	}

	h.Regs.Set(in.Rd, value)
	h.trace(w, insn, fmt.Sprintf("x%d = %s %s %s = %s",
		in.Rd, hexfmt.Word0x(rs1Value), aluRegSymbols[in.Kind], hexfmt.Word0x(rs2Value), hexfmt.Word0x(value)))
	h.PC += 4
}

func (h *Hart) execShiftReg(insn uint32, in decode.Instruction, w io.Writer) {
	rs1Value := h.Regs.Get(in.Rs1)
	shamt := h.Regs.Get(in.Rs2) & 0x1f

	var value uint32
	var symbol string
	switch in.Kind {
	case decode.Sll:
		value, symbol = rs1Value<<shamt, "<<"
	case decode.Srl:
		value, symbol = rs1Value>>shamt, ">>"
	case decode.Sra:
		value, symbol = uint32(int32(rs1Value)>>shamt), ">>"
	}

	h.Regs.Set(in.Rd, value)
	h.trace(w, insn, fmt.Sprintf("x%d = %s %s %d = %s",
		in.Rd, hexfmt.Word0x(rs1Value), symbol, shamt, hexfmt.Word0x(value)))
	h.PC += 4
}

func (h *Hart) execSlt(insn uint32, in decode.Instruction, w io.Writer) {
	rs1Value := h.Regs.Get(in.Rs1)
	rs2Value := h.Regs.Get(in.Rs2)
	var value uint32
	if int32(rs1Value) < int32(rs2Value) {
		value = 1
	}
	h.Regs.Set(in.Rd, value)
	h.trace(w, insn, fmt.Sprintf("x%d = (%s < %s) ? 1 : 0 = %s",
		in.Rd, hexfmt.Word0x(rs1Value), hexfmt.Word0x(rs2Value), hexfmt.Word0x(value)))
	h.PC += 4
}

func (h *Hart) execSltu(insn uint32, in decode.Instruction, w io.Writer) {
	rs1Value := h.Regs.Get(in.Rs1)
	rs2Value := h.Regs.Get(in.Rs2)
	var value uint32
	if rs1Value < rs2Value {
		value = 1
	}
	h.Regs.Set(in.Rd, value)
	h.trace(w, insn, fmt.Sprintf("x%d = (%s <U %s) ? 1 : 0 = %s",
		in.Rd, hexfmt.Word0x(rs1Value), hexfmt.Word0x(rs2Value), hexfmt.Word0x(value)))
	h.PC += 4
}

// execCsr implements every CSR encoding (csrrw/csrrs/csrrc and their
// *i variants) and ECALL as the same degenerate passthrough: rd <-
// rs1. No CSR state is modelled; see DESIGN.md for why this mirrors
// the reference implementation rather than adding real CSR semantics.
func (h *Hart) execCsr(insn uint32, in decode.Instruction, w io.Writer) {
	rs1Value := h.Regs.Get(in.Rs1)
	h.Regs.Set(in.Rd, rs1Value)
	h.trace(w, insn, fmt.Sprintf("x%d = %s", in.Rd, hexfmt.Word0x(rs1Value)))
	h.PC += 4
}
