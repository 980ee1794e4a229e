package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MessageSize is the length of a LidarComms datagram: five little-endian
// int32 fields.
const MessageSize = 20

// DefaultPort is the UDP port LidarComms nodes listen on.
const DefaultPort = 21337

// BroadcastID addresses every node.
const BroadcastID = 0

// Descriptor identifies a LidarComms message type.
type Descriptor int32

const (
	DescID               Descriptor = 1
	DescClientInfo       Descriptor = 5
	DescPollCommand      Descriptor = 10
	DescPollConfirm      Descriptor = 20
	DescPollResult       Descriptor = 30
	DescStopCommand      Descriptor = 40
	DescSystemRestartCmd Descriptor = 77
	DescSystemFailure    Descriptor = 99
)

func (d Descriptor) String() string {
	switch d {
	case DescID:
		return "id"
	case DescClientInfo:
		return "client_info"
	case DescPollCommand:
		return "poll_cmd"
	case DescPollConfirm:
		return "poll_confirm"
	case DescPollResult:
		return "poll_result"
	case DescStopCommand:
		return "stop_cmd"
	case DescSystemRestartCmd:
		return "system_restart_cmd"
	case DescSystemFailure:
		return "system_failure"
	default:
		return fmt.Sprintf("descriptor(%d)", int32(d))
	}
}

// ErrShortMessage is returned for datagrams smaller than MessageSize.
var ErrShortMessage = errors.New("message undersized")

// Message is a decoded LidarComms datagram.
type Message struct {
	From       int32
	To         int32
	Descriptor Descriptor
	MetaData   int32
	Value      int32
}

// DecodeMessage decodes the first MessageSize bytes of a datagram. Trailing
// bytes are ignored.
func DecodeMessage(b []byte) (Message, error) {
	if len(b) < MessageSize {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrShortMessage, len(b))
	}
	le := binary.LittleEndian
	return Message{
		From:       int32(le.Uint32(b[0:4])),
		To:         int32(le.Uint32(b[4:8])),
		Descriptor: Descriptor(int32(le.Uint32(b[8:12]))),
		MetaData:   int32(le.Uint32(b[12:16])),
		Value:      int32(le.Uint32(b[16:20])),
	}, nil
}

// EncodeMessage encodes m as a MessageSize-byte datagram.
func EncodeMessage(m Message) []byte {
	b := make([]byte, MessageSize)
	le := binary.LittleEndian
	le.PutUint32(b[0:4], uint32(m.From))
	le.PutUint32(b[4:8], uint32(m.To))
	le.PutUint32(b[8:12], uint32(m.Descriptor))
	le.PutUint32(b[12:16], uint32(m.MetaData))
	le.PutUint32(b[16:20], uint32(m.Value))
	return b
}

// AddressedTo reports whether a node with the given id should handle m.
func (m Message) AddressedTo(id int32) bool {
	return m.To == BroadcastID || m.To == id
}

// Sample returns the reading carried by a poll result: the position in
// MetaData, the distance in Value. Other descriptors, and poll results with a
// negative position or distance, return false.
func (m Message) Sample() (Sample, bool) {
	if m.Descriptor != DescPollResult || m.MetaData < 0 || m.Value < 0 {
		return Sample{}, false
	}
	return Sample{
		AngleDegrees: NormaliseAngle(int(m.MetaData)),
		Distance:     int(m.Value),
	}, true
}

// PollResult builds a broadcast poll result message.
func PollResult(from int32, s Sample) Message {
	return Message{From: from, To: BroadcastID, Descriptor: DescPollResult, MetaData: int32(s.AngleDegrees), Value: int32(s.Distance)}
}

// PollCommand builds a broadcast command asking sensors to start polling.
func PollCommand(from int32) Message {
	return Message{From: from, To: BroadcastID, Descriptor: DescPollCommand}
}

// StopCommand builds a broadcast command asking sensors to stop polling.
func StopCommand(from int32) Message {
	return Message{From: from, To: BroadcastID, Descriptor: DescStopCommand}
}

// Hello builds the identification broadcast a node sends when it joins.
func Hello(from int32) Message {
	return Message{From: from, To: BroadcastID, Descriptor: DescID, MetaData: 1, Value: from}
}
