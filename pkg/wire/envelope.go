package wire

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Tag identifies the kind of a wire event. Tags are one byte and stable
// per deployment.
type Tag byte

const (
	TagServerWelcome Tag = 0x01
	TagStateUpdate   Tag = 0x02
	TagPlayerJoined  Tag = 0x03
	TagPlayerLeft    Tag = 0x04
	TagServerMessage Tag = 0x05

	TagClientCommand Tag = 0x10
	TagClientPing    Tag = 0x11
	TagServerPong    Tag = 0x12
)

func (t Tag) String() string {
	switch t {
	case TagServerWelcome:
		return "server_welcome"
	case TagStateUpdate:
		return "state_update"
	case TagPlayerJoined:
		return "player_joined"
	case TagPlayerLeft:
		return "player_left"
	case TagServerMessage:
		return "server_message"
	case TagClientCommand:
		return "client_command"
	case TagClientPing:
		return "client_ping"
	case TagServerPong:
		return "server_pong"
	default:
		return "unknown"
	}
}

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		panic(fmt.Sprintf("failed to create zstd encoder: %v", err))
	}
	decoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
	}
}

// Seal frames a tagged payload into a compressed packet for the transport.
func Seal(tag Tag, payload []byte) []byte {
	plain := make([]byte, 0, len(payload)+1)
	plain = append(plain, byte(tag))
	plain = append(plain, payload...)
	return encoder.EncodeAll(plain, nil)
}

// Open unpacks a packet into its tag and payload.
func Open(packet []byte) (Tag, []byte, error) {
	plain, err := decoder.DecodeAll(packet, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to decompress packet: %w", err)
	}
	if len(plain) < 1 {
		return 0, nil, ErrShortPacket
	}
	return Tag(plain[0]), plain[1:], nil
}
