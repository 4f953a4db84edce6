package qiyi

import (
	"bytes"
	"errors"
	"testing"

	"github.com/cubesense/smartcube/internal/cube"
	"github.com/cubesense/smartcube/internal/protocol"
)

const testMAC = "CC:A3:00:00:25:11"

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := New(protocol.KeyMaterial{MAC: testMAC})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// solvedNibbles packs the solved state into the 27 facelet bytes.
func solvedNibbles() []byte {
	solved := "UUUUUUUUURRRRRRRRRFFFFFFFFFDDDDDDDDDLLLLLLLLLBBBBBBBBB"
	out := make([]byte, 27)
	for i := 0; i < 54; i++ {
		v := byte(bytes.IndexByte([]byte(nibbleFaces), solved[i]))
		out[i>>1] |= v << ((i % 2) * 4)
	}
	return out
}

// cubeMessage builds an encrypted cube-to-host message from its content
// (everything between the length byte and the CRC).
func cubeMessage(c *Codec, content []byte) protocol.RawFrame {
	w := c.buildMessage(content)
	return protocol.RawFrame{
		Characteristic: "0000fff6-0000-1000-8000-00805f9b34fb",
		Data:           w.Data,
	}
}

func moveContent(move byte) []byte {
	content := []byte{opMove, 0x01, 0x02, 0x03, 0x04}
	content = append(content, solvedNibbles()...)
	return append(content, move)
}

func stateContent(battery byte) []byte {
	content := []byte{opStateSync, 0x01, 0x02, 0x03, 0x04}
	content = append(content, solvedNibbles()...)
	return append(content, 0x00, battery)
}

func decryptAll(c *Codec, data []byte) []byte {
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += 16 {
		c.block.Decrypt(out[i:i+16], data[i:i+16])
	}
	return out
}

func TestDecodeMoveMessage(t *testing.T) {
	c := newTestCodec(t)
	// Move byte 8 is a clockwise U turn.
	frames, acks, err := c.Decode(cubeMessage(c, moveContent(8)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want move + state", len(frames))
	}
	move := frames[0].(protocol.MoveFrame)
	if move.Face != cube.U || move.Turn != 1 {
		t.Errorf("move = %v/%d, want U/1", move.Face, move.Turn)
	}
	if !frames[1].(protocol.StateFrame).State.IsSolved() {
		t.Error("state frame did not decode to the solved state")
	}
	if len(acks) != 1 {
		t.Fatalf("got %d acks, want 1", len(acks))
	}

	// The ack must echo opcode and timestamp of the incoming message.
	ack := decryptAll(c, acks[0].Data)
	ack = ack[:ack[1]]
	if crc16(ack) != 0 {
		t.Error("ack CRC does not fold to zero")
	}
	want := []byte{opMove, 0x01, 0x02, 0x03, 0x04}
	if !bytes.Equal(ack[2:7], want) {
		t.Errorf("ack echo = %x, want %x", ack[2:7], want)
	}
}

func TestDecodeMoveDirections(t *testing.T) {
	cases := []struct {
		raw  byte
		face cube.Face
		turn int
	}{
		{8, cube.U, 1},
		{7, cube.U, -1},
		{3, cube.R, -1},
		{4, cube.R, 1},
		{1, cube.L, -1},
		{12, cube.B, 1},
	}
	c := newTestCodec(t)
	for _, tc := range cases {
		frames, _, err := c.Decode(cubeMessage(c, moveContent(tc.raw)))
		if err != nil {
			t.Fatalf("move byte %d: %v", tc.raw, err)
		}
		move := frames[0].(protocol.MoveFrame)
		if move.Face != tc.face || move.Turn != tc.turn {
			t.Errorf("move byte %d = %v/%d, want %v/%d", tc.raw, move.Face, move.Turn, tc.face, tc.turn)
		}
	}
}

func TestDecodeStateSync(t *testing.T) {
	c := newTestCodec(t)
	frames, acks, err := c.Decode(cubeMessage(c, stateContent(91)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want state + battery", len(frames))
	}
	if !frames[0].(protocol.StateFrame).State.IsSolved() {
		t.Error("state sync did not decode to the solved state")
	}
	status := frames[1].(protocol.StatusFrame)
	if status.Reply != protocol.CommandBattery || status.Battery != 91 {
		t.Errorf("battery = %d, want 91", status.Battery)
	}
	if len(acks) != 1 {
		t.Errorf("state sync produced %d acks, want 1", len(acks))
	}
}

func TestDecodeRejectsCorruptCRC(t *testing.T) {
	c := newTestCodec(t)
	raw := cubeMessage(c, moveContent(8))
	// Flip one ciphertext bit; the plaintext CRC cannot survive.
	raw.Data[20] ^= 0x01
	_, _, err := c.Decode(raw)
	if err == nil {
		t.Fatal("corrupt message decoded without error")
	}
	if !errors.Is(err, protocol.ErrChecksum) && !errors.Is(err, protocol.ErrDecryption) && !errors.Is(err, protocol.ErrMalformed) {
		t.Errorf("err = %v, want a decode failure sentinel", err)
	}
}

func TestDecodeRejectsBadLength(t *testing.T) {
	c := newTestCodec(t)
	if _, _, err := c.Decode(protocol.RawFrame{Data: []byte{1, 2, 3}}); !errors.Is(err, protocol.ErrFrameLength) {
		t.Errorf("err = %v, want ErrFrameLength", err)
	}
}

func TestHelloCarriesReversedMAC(t *testing.T) {
	c := newTestCodec(t)
	writes := c.Hello()
	if len(writes) != 1 {
		t.Fatalf("hello = %d writes, want 1", len(writes))
	}
	msg := decryptAll(c, writes[0].Data)
	msg = msg[:msg[1]]
	if crc16(msg) != 0 {
		t.Error("hello CRC does not fold to zero")
	}
	if msg[0] != msgHeader || msg[2] != 0x00 || msg[3] != 0x6B {
		t.Errorf("hello prefix = %x", msg[:4])
	}
	// MAC CC:A3:00:00:25:11 reversed.
	want := []byte{0x11, 0x25, 0x00, 0x00, 0xA3, 0xCC}
	got := msg[13:19]
	if !bytes.Equal(got, want) {
		t.Errorf("hello MAC = %x, want %x", got, want)
	}
}

func TestEncodeUnsupported(t *testing.T) {
	c := newTestCodec(t)
	if _, err := c.Encode(protocol.CommandBattery); !errors.Is(err, protocol.ErrUnsupportedCommand) {
		t.Errorf("err = %v, want ErrUnsupportedCommand", err)
	}
}
