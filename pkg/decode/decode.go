// Package decode implements the pure RV32I instruction decoder and
// disassembler: field extraction, the five immediate encodings, and
// the canonical mnemonic renderer. Nothing in this package touches
// memory, registers, or the program counter beyond taking it as an
// argument for PC-relative rendering — decode.Decode is a pure
// function of its inputs.
package decode

import (
	"fmt"

	"github.com/bassosimone/rv32i/pkg/hexfmt"
)

// MnemonicWidth is the left-justified field width of a rendered mnemonic.
const MnemonicWidth = 8

// Special full-word encodings that short-circuit opcode dispatch.
const (
	InsnEcall  uint32 = 0x00000073
	InsnEbreak uint32 = 0x00100073
)

// Opcode values for the supported RV32I opcode families.
const (
	OpcodeLUI     = 0b0110111
	OpcodeAUIPC   = 0b0010111
	OpcodeJAL     = 0b1101111
	OpcodeJALR    = 0b1100111
	OpcodeBranch  = 0b1100011
	OpcodeLoad    = 0b0000011
	OpcodeStore   = 0b0100011
	OpcodeALUImm  = 0b0010011
	OpcodeALUReg  = 0b0110011
	OpcodeSystem  = 0b1110011
)

// funct3 values, shared across the opcode families that use them.
const (
	funct3BEQ  = 0b000
	funct3BNE  = 0b001
	funct3BLT  = 0b100
	funct3BGE  = 0b101
	funct3BLTU = 0b110
	funct3BGEU = 0b111

	funct3LB  = 0b000
	funct3LH  = 0b001
	funct3LW  = 0b010
	funct3LBU = 0b100
	funct3LHU = 0b101

	funct3SB = 0b000
	funct3SH = 0b001
	funct3SW = 0b010

	funct3ADDI  = 0b000
	funct3SLTI  = 0b010
	funct3SLTIU = 0b011
	funct3XORI  = 0b100
	funct3ORI   = 0b110
	funct3ANDI  = 0b111
	funct3SLLI  = 0b001
	funct3SRx   = 0b101

	funct3ADD = 0b000
	funct3SLL = 0b001
	funct3SLT = 0b010
	funct3SLTU = 0b011
	funct3XOR = 0b100
	funct3OR  = 0b110
	funct3AND = 0b111

	funct3CSRRW  = 0b001
	funct3CSRRS  = 0b010
	funct3CSRRC  = 0b011
	funct3CSRRWI = 0b101
	funct3CSRRSI = 0b110
	funct3CSRRCI = 0b111

	funct7SRL = 0b0000000
	funct7SRA = 0b0100000
	funct7ADD = 0b0000000
	funct7SUB = 0b0100000
)

// Kind identifies the operation an instruction word encodes.
type Kind int

// The full set of operations this simulator supports.
const (
	Illegal Kind = iota
	Lui
	Auipc
	Jal
	Jalr
	Beq
	Bne
	Blt
	Bge
	Bltu
	Bgeu
	Lb
	Lh
	Lw
	Lbu
	Lhu
	Sb
	Sh
	Sw
	Addi
	Slti
	Sltiu
	Xori
	Ori
	Andi
	Slli
	Srli
	Srai
	Add
	Sub
	Sll
	Slt
	Sltu
	Xor
	Srl
	Sra
	Or
	And
	Ecall
	Ebreak
	Csrrw
	Csrrs
	Csrrc
	Csrrwi
	Csrrsi
	Csrrci
)

var mnemonics = map[Kind]string{
	Illegal: "illegal", Lui: "lui", Auipc: "auipc", Jal: "jal", Jalr: "jalr",
	Beq: "beq", Bne: "bne", Blt: "blt", Bge: "bge", Bltu: "bltu", Bgeu: "bgeu",
	Lb: "lb", Lh: "lh", Lw: "lw", Lbu: "lbu", Lhu: "lhu",
	Sb: "sb", Sh: "sh", Sw: "sw",
	Addi: "addi", Slti: "slti", Sltiu: "sltiu", Xori: "xori", Ori: "ori",
	Andi: "andi", Slli: "slli", Srli: "srli", Srai: "srai",
	Add: "add", Sub: "sub", Sll: "sll", Slt: "slt", Sltu: "sltu", Xor: "xor",
	Srl: "srl", Sra: "sra", Or: "or", And: "and",
	Ecall: "ecall", Ebreak: "ebreak",
	Csrrw: "csrrw", Csrrs: "csrrs", Csrrc: "csrrc",
	Csrrwi: "csrrwi", Csrrsi: "csrrsi", Csrrci: "csrrci",
}

// Mnemonic returns the bare mnemonic text for k.
func (k Kind) Mnemonic() string {
	if s, ok := mnemonics[k]; ok {
		return s
	}
	return "illegal"
}

// Instruction is the fully decoded form of a 32-bit instruction word:
// every field extractor plus the classified Kind.
type Instruction struct {
	Raw    uint32
	Kind   Kind
	Opcode uint32
	Rd     uint32
	Funct3 uint32
	Rs1    uint32
	Rs2    uint32
	Funct7 uint32
	ImmI   uint32 // sign-extended I-immediate
	ImmU   uint32 // raw 20-bit U-immediate field, not yet shifted
	ImmS   uint32 // sign-extended S-immediate
	ImmB   uint32 // sign-extended B-immediate
	ImmJ   uint32 // sign-extended J-immediate
}

// Opcode extracts bits [6:0].
func Opcode(insn uint32) uint32 { return insn & 0x7f }

// Rd extracts bits [11:7].
func Rd(insn uint32) uint32 { return (insn >> 7) & 0x1f }

// Funct3 extracts bits [14:12].
func Funct3(insn uint32) uint32 { return (insn >> 12) & 0x7 }

// Rs1 extracts bits [19:15].
func Rs1(insn uint32) uint32 { return (insn >> 15) & 0x1f }

// Rs2 extracts bits [24:20].
func Rs2(insn uint32) uint32 { return (insn >> 20) & 0x1f }

// Funct7 extracts bits [31:25].
func Funct7(insn uint32) uint32 { return insn >> 25 }

// ImmI extracts and sign-extends the I-immediate (bits [31:20]).
func ImmI(insn uint32) uint32 {
	return uint32(int32(insn) >> 20)
}

// ImmU extracts the raw 20-bit U-immediate field (bits [31:12]),
// unshifted. Execution shifts this left by 12 at use time.
func ImmU(insn uint32) uint32 {
	return insn >> 12
}

// ImmS extracts and sign-extends the S-immediate: {bits[31:25], bits[11:7]}.
func ImmS(insn uint32) uint32 {
	right := (insn >> 7) & 0x1f
	left := insn >> 25
	v := (left << 5) | right
	if v&0x800 != 0 {
		v |= 0xFFFFF000
	}
	return v
}

// ImmB extracts and sign-extends the B-immediate:
// {bit[31], bit[7], bits[30:25], bits[11:8], 0}.
func ImmB(insn uint32) uint32 {
	bits4to1 := (insn >> 8 << 1) & 0b11110
	bits10to5 := (insn << 1 >> 21) & 0b11111100000
	bit11 := (insn << 4) & (1 << 11)
	bit12 := (insn & (1 << 31)) >> 19
	v := bits4to1 | bits10to5 | bit11 | bit12
	if v>>12 != 0 {
		v |= 0xFFFFF000
	}
	return v
}

// ImmJ extracts and sign-extends the J-immediate:
// {bit[31], bits[19:12], bit[20], bits[30:21], 0}.
func ImmJ(insn uint32) uint32 {
	bit20 := (insn >> 31) & 0x1
	bits19to12 := (insn >> 12) & 0xFF
	bit11 := (insn >> 20) & 0x1
	bits10to1 := (insn >> 21) & 0x3FF

	v := (bit20 << 20) | (bits19to12 << 12) | (bit11 << 11) | (bits10to1 << 1)
	if bit20 != 0 {
		v |= 0xFFF00000
	}
	return v
}

// Decode fully classifies a 32-bit instruction word, extracting every
// field and determining its Kind. Decode depends only on insn: it is
// a pure function.
func Decode(insn uint32) Instruction {
	in := Instruction{
		Raw:    insn,
		Opcode: Opcode(insn),
		Rd:     Rd(insn),
		Funct3: Funct3(insn),
		Rs1:    Rs1(insn),
		Rs2:    Rs2(insn),
		Funct7: Funct7(insn),
		ImmI:   ImmI(insn),
		ImmU:   ImmU(insn),
		ImmS:   ImmS(insn),
		ImmB:   ImmB(insn),
		ImmJ:   ImmJ(insn),
	}
	in.Kind = classify(insn, in)
	return in
}

func classify(insn uint32, in Instruction) Kind {
	if insn == InsnEbreak {
		return Ebreak
	}
	if insn == InsnEcall {
		return Ecall
	}
	switch in.Opcode {
	case OpcodeLUI:
		return Lui
	case OpcodeAUIPC:
		return Auipc
	case OpcodeJAL:
		return Jal
	case OpcodeJALR:
		return Jalr
	case OpcodeBranch:
		switch in.Funct3 {
		case funct3BEQ:
			return Beq
		case funct3BNE:
			return Bne
		case funct3BLT:
			return Blt
		case funct3BGE:
			return Bge
		case funct3BLTU:
			return Bltu
		case funct3BGEU:
			return Bgeu
		}
	case OpcodeLoad:
		switch in.Funct3 {
		case funct3LB:
			return Lb
		case funct3LH:
			return Lh
		case funct3LW:
			return Lw
		case funct3LBU:
			return Lbu
		case funct3LHU:
			return Lhu
		}
	case OpcodeStore:
		switch in.Funct3 {
		case funct3SB:
			return Sb
		case funct3SH:
			return Sh
		case funct3SW:
			return Sw
		}
	case OpcodeALUImm:
		switch in.Funct3 {
		case funct3ADDI:
			return Addi
		case funct3SLTI:
			return Slti
		case funct3SLTIU:
			return Sltiu
		case funct3XORI:
			return Xori
		case funct3ORI:
			return Ori
		case funct3ANDI:
			return Andi
		case funct3SLLI:
			return Slli
		case funct3SRx:
			switch in.Funct7 {
			case funct7SRL:
				return Srli
			case funct7SRA:
				return Srai
			}
		}
	case OpcodeALUReg:
		switch in.Funct3 {
		case funct3ADD:
			switch in.Funct7 {
			case funct7ADD:
				return Add
			case funct7SUB:
				return Sub
			}
		case funct3AND:
			return And
		case funct3OR:
			return Or
		case funct3SLL:
			return Sll
		case funct3SLT:
			return Slt
		case funct3SLTU:
			return Sltu
		case funct3XOR:
			return Xor
		case funct3SRx:
			switch in.Funct7 {
			case funct7SRL:
				return Srl
			case funct7SRA:
				return Sra
			}
		}
	case OpcodeSystem:
		switch in.Funct3 {
		case funct3CSRRW:
			return Csrrw
		case funct3CSRRS:
			return Csrrs
		case funct3CSRRC:
			return Csrrc
		case funct3CSRRWI:
			return Csrrwi
		case funct3CSRRSI:
			return Csrrsi
		case funct3CSRRCI:
			return Csrrci
		}
	}
	return Illegal
}

func reg(r uint32) string {
	return fmt.Sprintf("x%d", r)
}

func mnemonicField(m string) string {
	return fmt.Sprintf("%-*s", MnemonicWidth, m)
}

// Disassemble renders the canonical disassembly string for insn,
// fetched at addr. PC-relative branch and jump targets are rendered
// as the absolute 32-bit hex address they resolve to.
func Disassemble(addr uint32, insn uint32) string {
	in := Decode(insn)
	m := mnemonicField(in.Kind.Mnemonic())

	switch in.Kind {
	case Lui:
		return m + reg(in.Rd) + "," + hexfmt.U20(in.ImmU)
	case Auipc:
		return m + reg(in.Rd) + "," + hexfmt.U20(in.ImmU)
	case Jal:
		target := addr + in.ImmJ
		return m + reg(in.Rd) + "," + hexfmt.Word0x(target)
	case Jalr:
		return m + reg(in.Rd) + "," + fmt.Sprintf("%d", int32(in.ImmI)) + "(" + reg(in.Rs1) + ")"
	case Beq, Bne, Blt, Bge, Bltu, Bgeu:
		target := addr + in.ImmB
		return m + reg(in.Rs1) + "," + reg(in.Rs2) + "," + hexfmt.Word0x(target)
	case Lb, Lh, Lw, Lbu, Lhu:
		return m + reg(in.Rd) + "," + fmt.Sprintf("%d", int32(in.ImmI)) + "(" + reg(in.Rs1) + ")"
	case Sb, Sh, Sw:
		return m + reg(in.Rs2) + "," + fmt.Sprintf("%d", int32(in.ImmS)) + "(" + reg(in.Rs1) + ")"
	case Addi, Slti, Sltiu, Xori, Ori, Andi:
		return m + reg(in.Rd) + "," + reg(in.Rs1) + "," + fmt.Sprintf("%d", int32(in.ImmI))
	case Slli, Srli, Srai:
		shamt := in.ImmI & 0x1f
		return m + reg(in.Rd) + "," + reg(in.Rs1) + "," + fmt.Sprintf("%d", shamt)
	case Add, Sub, Sll, Slt, Sltu, Xor, Srl, Sra, Or, And:
		return m + reg(in.Rd) + "," + reg(in.Rs1) + "," + reg(in.Rs2)
	case Ecall:
		return "ecall"
	case Ebreak:
		return "ebreak"
	case Csrrw, Csrrs, Csrrc:
		return m + reg(in.Rd) + "," + hexfmt.CSR(in.ImmI) + "," + reg(in.Rs1)
	case Csrrwi, Csrrsi, Csrrci:
		return m + reg(in.Rd) + "," + hexfmt.CSR(in.ImmI) + "," + fmt.Sprintf("%d", in.Rs1)
	default:
		return "illegal instruction"
	}
}
