package jbod

import "fmt"

// Command is the operation code carried in the low bits of a control word.
type Command uint32

const (
	CommandMount Command = iota
	CommandUnmount
	CommandSeekToDisk
	CommandSeekToBlock
	CommandReadBlock
	CommandWriteBlock
	CommandWritePermission
	CommandRevokeWritePermission
)

func (c Command) String() string {
	switch c {
	case CommandMount:
		return "MOUNT"
	case CommandUnmount:
		return "UNMOUNT"
	case CommandSeekToDisk:
		return "SEEK_TO_DISK"
	case CommandSeekToBlock:
		return "SEEK_TO_BLOCK"
	case CommandReadBlock:
		return "READ_BLOCK"
	case CommandWriteBlock:
		return "WRITE_BLOCK"
	case CommandWritePermission:
		return "WRITE_PERMISSION"
	case CommandRevokeWritePermission:
		return "REVOKE_WRITE_PERMISSION"
	default:
		return fmt.Sprintf("COMMAND(%d)", uint32(c))
	}
}

// Field layout of a packed control word, least significant field first.
const (
	commandBits  = 6
	diskBits     = 4
	blockBits    = 8
	reservedBits = 14

	diskShift     = commandBits
	blockShift    = diskShift + diskBits
	reservedShift = blockShift + blockBits

	commandMask  = 1<<commandBits - 1
	diskMask     = 1<<diskBits - 1
	blockMask    = 1<<blockBits - 1
	reservedMask = 1<<reservedBits - 1

	// MaxDisks and MaxBlocksPerDisk are the largest index ranges a control
	// word can address.
	MaxDisks         = 1 << diskBits
	MaxBlocksPerDisk = 1 << blockBits
)

// ControlWord is the unpacked form of the 32-bit word the device accepts.
type ControlWord struct {
	Command  Command
	Disk     uint32
	Block    uint32
	Reserved uint32
}

// Pack encodes the word. Fields wider than their slot are truncated.
func (w ControlWord) Pack() uint32 {
	return uint32(w.Command)&commandMask |
		(w.Disk&diskMask)<<diskShift |
		(w.Block&blockMask)<<blockShift |
		(w.Reserved&reservedMask)<<reservedShift
}

// Unpack decodes a packed control word.
func Unpack(op uint32) ControlWord {
	return ControlWord{
		Command:  Command(op & commandMask),
		Disk:     (op >> diskShift) & diskMask,
		Block:    (op >> blockShift) & blockMask,
		Reserved: (op >> reservedShift) & reservedMask,
	}
}

func (w ControlWord) String() string {
	switch w.Command {
	case CommandSeekToDisk:
		return fmt.Sprintf("%s disk=%d", w.Command, w.Disk)
	case CommandSeekToBlock:
		return fmt.Sprintf("%s block=%d", w.Command, w.Block)
	default:
		return w.Command.String()
	}
}
