package decode_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/bassosimone/rv32i/pkg/decode"
)

func rtype(funct7, rs2, rs1, funct3, rd, opcode uint32) uint32 {
	return (funct7 << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | opcode
}

func itype(imm12 uint32, rs1, funct3, rd, opcode uint32) uint32 {
	return (imm12 << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | opcode
}

func stype(imm12, rs2, rs1, funct3, opcode uint32) uint32 {
	lo := imm12 & 0x1f
	hi := (imm12 >> 5) & 0x7f
	return (hi << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | (lo << 7) | opcode
}

func utype(imm20, rd, opcode uint32) uint32 {
	return (imm20 << 12) | (rd << 7) | opcode
}

var _ = Describe("field extraction", func() {
	// 0x003100b3 = funct7=0000000 rs2=x3 rs1=x2 funct3=000 rd=x1 opcode=0110011 (add x1,x2,x3)
	insn := uint32(0x003100b3)

	It("extracts opcode", func() {
		Expect(decode.Opcode(insn)).To(Equal(uint32(0b0110011)))
	})
	It("extracts rd", func() {
		Expect(decode.Rd(insn)).To(Equal(uint32(1)))
	})
	It("extracts funct3", func() {
		Expect(decode.Funct3(insn)).To(Equal(uint32(0)))
	})
	It("extracts rs1", func() {
		Expect(decode.Rs1(insn)).To(Equal(uint32(2)))
	})
	It("extracts rs2", func() {
		Expect(decode.Rs2(insn)).To(Equal(uint32(3)))
	})
	It("extracts funct7", func() {
		Expect(decode.Funct7(insn)).To(Equal(uint32(0)))
	})
})

var _ = Describe("immediate encodings", func() {
	It("sign-extends a negative I-immediate", func() {
		// addi x1, x0, -1 : imm12 = 0xFFF
		insn := itype(0xFFF, 0, 0b000, 1, 0b0010011)
		Expect(decode.ImmI(insn)).To(Equal(uint32(0xFFFFFFFF)))
	})

	It("leaves a positive I-immediate untouched", func() {
		insn := itype(0x005, 0, 0b000, 1, 0b0010011)
		Expect(decode.ImmI(insn)).To(Equal(uint32(5)))
	})

	It("extracts the raw U-immediate field unshifted", func() {
		insn := utype(0xABCDE, 1, 0b0110111)
		Expect(decode.ImmU(insn)).To(Equal(uint32(0xABCDE)))
	})

	It("sign-extends a negative S-immediate", func() {
		// sw x2, -4(x1) : offset -4 encodes as imm12=0xFFC
		insn := stype(0xFFC, 2, 1, 0b010, 0b0100011)
		Expect(decode.ImmS(insn)).To(Equal(uint32(0xFFFFFFFC)))
	})

	It("sign-extends a negative B-immediate", func() {
		// beq x0, x0, -8: bit-field {bit31,bit7,bits30:25,bits11:8} encodes offset -8
		insn := uint32(0xFE000CE3)
		Expect(decode.ImmB(insn)).To(Equal(uint32(0xFFFFFFF8)))
	})

	It("decodes a positive B-immediate", func() {
		// beq x0, x0, 8
		insn := uint32(0x00000463)
		Expect(decode.ImmB(insn)).To(Equal(uint32(8)))
	})

	It("sign-extends a negative J-immediate", func() {
		// jal x0, with only insn[31] set: imm[20], the sign bit, is set
		// alone, forcing the sign-extension branch.
		insn := uint32(0x8000006F)
		Expect(decode.ImmJ(insn)).To(Equal(uint32(0xFFF00000)))
	})

	It("decodes imm[11] from insn[20]", func() {
		// jal x0, with only insn[20] set selects imm[11] alone: +2048.
		insn := uint32(0x0010006F)
		Expect(decode.ImmJ(insn)).To(Equal(uint32(2048)))
	})
})

var _ = DescribeTable("opcode/funct3/funct7 classification",
	func(insn uint32, want decode.Kind) {
		Expect(decode.Decode(insn).Kind).To(Equal(want))
	},
	Entry("lui", utype(1, 1, 0b0110111), decode.Lui),
	Entry("auipc", utype(1, 1, 0b0010111), decode.Auipc),
	Entry("jal", uint32(0x0000006F), decode.Jal),
	Entry("jalr", itype(0, 1, 0b000, 2, 0b1100111), decode.Jalr),
	Entry("beq", rtype(0, 0, 0, 0b000, 0, 0b1100011)|0, decode.Beq),
	Entry("lb", itype(0, 1, 0b000, 2, 0b0000011), decode.Lb),
	Entry("lbu", itype(0, 1, 0b100, 2, 0b0000011), decode.Lbu),
	Entry("sb", stype(0, 2, 1, 0b000, 0b0100011), decode.Sb),
	Entry("sw", stype(0, 2, 1, 0b010, 0b0100011), decode.Sw),
	Entry("addi", itype(0, 1, 0b000, 2, 0b0010011), decode.Addi),
	Entry("slti", itype(0, 1, 0b010, 2, 0b0010011), decode.Slti),
	Entry("sltiu", itype(0, 1, 0b011, 2, 0b0010011), decode.Sltiu),
	Entry("add", rtype(0b0000000, 3, 2, 0b000, 1, 0b0110011), decode.Add),
	Entry("sub", rtype(0b0100000, 3, 2, 0b000, 1, 0b0110011), decode.Sub),
	Entry("srl", rtype(0b0000000, 3, 2, 0b101, 1, 0b0110011), decode.Srl),
	Entry("sra", rtype(0b0100000, 3, 2, 0b101, 1, 0b0110011), decode.Sra),
	Entry("slli", itype(5, 1, 0b001, 2, 0b0010011), decode.Slli),
	Entry("srli", rtype(0b0000000, 5, 1, 0b101, 2, 0b0010011), decode.Srli),
	Entry("srai", rtype(0b0100000, 5, 1, 0b101, 2, 0b0010011), decode.Srai),
	Entry("csrrw", itype(0x300, 1, 0b001, 2, 0b1110011), decode.Csrrw),
	Entry("csrrwi", itype(0x300, 1, 0b101, 2, 0b1110011), decode.Csrrwi),
	Entry("ecall", decode.InsnEcall, decode.Ecall),
	Entry("ebreak", decode.InsnEbreak, decode.Ebreak),
	Entry("illegal opcode", uint32(0b1111111), decode.Illegal),
)

var _ = Describe("Kind.Mnemonic", func() {
	It("returns the bare mnemonic", func() {
		Expect(decode.Add.Mnemonic()).To(Equal("add"))
		Expect(decode.Jalr.Mnemonic()).To(Equal("jalr"))
	})
})

var _ = Describe("Disassemble", func() {
	It("renders an r-type instruction", func() {
		insn := rtype(0, 3, 2, 0b000, 1, 0b0110011)
		Expect(decode.Disassemble(0, insn)).To(Equal("add     x1,x2,x3"))
	})

	It("renders jal with an absolute target", func() {
		insn := uint32(0x0000006F) // jal x0, 0
		Expect(decode.Disassemble(0x1000, insn)).To(Equal("jal     x0,0x00001000"))
	})

	It("renders a load with a signed offset", func() {
		insn := itype(0xFFF, 2, 0b000, 1, 0b0000011) // lb x1, -1(x2)
		Expect(decode.Disassemble(0, insn)).To(Equal("lb      x1,-1(x2)"))
	})

	It("renders ecall and ebreak bare", func() {
		Expect(decode.Disassemble(0, decode.InsnEcall)).To(Equal("ecall"))
		Expect(decode.Disassemble(0, decode.InsnEbreak)).To(Equal("ebreak"))
	})
})
