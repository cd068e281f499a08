package vm

// Bytecode encoding (§4.6, reconstructed from the reference bytecode
// literal in property 7/S6): each instruction's opcode occupies the
// high nibble of its first byte, its argument the low nibble. A low
// nibble of 0xF marks an extended encoding where the argument follows
// in a separate byte instead of being squeezed into four bits.
type opcode byte

const (
	opExtended       opcode = 0
	opPushInstance   opcode = 1
	opPushArgument   opcode = 2
	opPushTemporary  opcode = 3
	opPushLiteral    opcode = 4
	opPushConstant   opcode = 5
	opAssignInstance opcode = 6
	opAssignTemporary opcode = 7
	opMarkArguments  opcode = 8
	opSendMessage    opcode = 9
	opSendUnary      opcode = 10
	opSendBinary     opcode = 11
	opPushBlock      opcode = 12
	opDoPrimitive    opcode = 13
	opDoSpecial      opcode = 15
)

// doSpecial sub-operations, selected by the low nibble when opcode is
// opDoSpecial. branch/branchIfTrue/branchIfFalse are followed by a
// 2-byte little-endian bytecode offset.
type special byte

const (
	specialSelfReturn     special = 1
	specialStackReturn    special = 2
	specialBlockReturn    special = 3
	specialDuplicate      special = 4
	specialPopTop         special = 5
	specialBranch         special = 6
	specialBranchIfTrue   special = 7
	specialBranchIfFalse  special = 8
	specialBreakpoint     special = 9
	specialSendToSuper    special = 11
)

const extendedMarker = 0x0F

func decodeOp(b byte) (opcode, byte) {
	return opcode(b >> 4), b & 0x0F
}

func readUint16LE(code []byte, offset int) int {
	return int(code[offset]) | int(code[offset+1])<<8
}
