package giiker

import (
	"errors"
	"testing"
	"time"

	"github.com/cubesense/smartcube/internal/cube"
	"github.com/cubesense/smartcube/internal/protocol"
)

// solvedFrame returns a plaintext frame carrying the solved state and a
// U move in the history byte.
func solvedFrame() []byte {
	return []byte{
		0x12, 0x34, 0x56, 0x78, // corner positions 1..8
		0x33, 0x33, 0x33, 0x33, // corner orientations, all untwisted
		0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC, // edge positions 1..12
		0x00, 0x00, // edge orientations
		0x41,             // U clockwise
		0x00, 0x00, 0x00, // unused, not the encryption marker
	}
}

func dataFrame(data []byte) protocol.RawFrame {
	return protocol.RawFrame{
		Device:         "AA:BB:CC:DD:EE:FF",
		Characteristic: "0000aadc-0000-1000-8000-00805f9b34fb",
		Data:           data,
		Time:           time.Now(),
	}
}

func TestDecodeSolvedFrame(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	frames, acks, err := c.Decode(dataFrame(solvedFrame()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(acks) != 0 {
		t.Errorf("got %d acks, want 0", len(acks))
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want move + state", len(frames))
	}
	move, ok := frames[0].(protocol.MoveFrame)
	if !ok {
		t.Fatalf("frames[0] is %T, want MoveFrame", frames[0])
	}
	if move.Face != cube.U || move.Turn != 1 {
		t.Errorf("move = %v/%d, want U/1", move.Face, move.Turn)
	}
	if move.Counter != -1 {
		t.Errorf("counter = %d, want -1 (no wire counter)", move.Counter)
	}
	state, ok := frames[1].(protocol.StateFrame)
	if !ok {
		t.Fatalf("frames[1] is %T, want StateFrame", frames[1])
	}
	if !state.State.IsSolved() {
		t.Errorf("state = %q, want solved", state.State.ToFacelets())
	}
}

func TestDecodeEncryptedFrame(t *testing.T) {
	// Build the obfuscated form by running the additive cipher backwards,
	// then check the decoder recovers the same frames.
	plain := solvedFrame()
	o1, o2 := 3, 7
	enc := make([]byte, frameLen)
	for i := 0; i < 18; i++ {
		enc[i] = plain[i] - cipherKey[(o1+i)%36] - cipherKey[(o2+i)%36]
	}
	enc[18] = 0xA7
	enc[19] = byte(o1<<4 | o2)

	c, _ := New()
	frames, _, err := c.Decode(dataFrame(enc))
	if err != nil {
		t.Fatalf("Decode encrypted: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	move := frames[0].(protocol.MoveFrame)
	if move.Face != cube.U || move.Turn != 1 {
		t.Errorf("move = %v/%d, want U/1", move.Face, move.Turn)
	}
	if !frames[1].(protocol.StateFrame).State.IsSolved() {
		t.Error("encrypted frame did not decode to the solved state")
	}
}

func TestDecodeTurnNibbles(t *testing.T) {
	cases := []struct {
		nibble byte
		turn   int
	}{
		{1, 1},
		{2, 2},
		{3, -1},
		{9, 2}, // double CCW folds onto the half turn
	}
	c, _ := New()
	for _, tc := range cases {
		data := solvedFrame()
		data[16] = 0x40 | tc.nibble
		frames, _, err := c.Decode(dataFrame(data))
		if err != nil {
			t.Fatalf("turn nibble %d: %v", tc.nibble, err)
		}
		if got := frames[0].(protocol.MoveFrame).Turn; got != tc.turn {
			t.Errorf("turn nibble %d = %d, want %d", tc.nibble, got, tc.turn)
		}
	}
}

func TestDecodeRejectsBadLength(t *testing.T) {
	c, _ := New()
	_, _, err := c.Decode(dataFrame([]byte{0x12, 0x34}))
	if !errors.Is(err, protocol.ErrFrameLength) {
		t.Errorf("err = %v, want ErrFrameLength", err)
	}
}

func TestDecodeRejectsBadMoveNibble(t *testing.T) {
	c, _ := New()
	data := solvedFrame()
	data[16] = 0x00 // face nibble zero
	if _, _, err := c.Decode(dataFrame(data)); !errors.Is(err, protocol.ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestDecodeRejectsCorruptState(t *testing.T) {
	c, _ := New()
	data := solvedFrame()
	data[0] = 0x11 // corner 1 twice
	if _, _, err := c.Decode(dataFrame(data)); !errors.Is(err, protocol.ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestSystemCharacteristicBattery(t *testing.T) {
	c, _ := New()
	raw := protocol.RawFrame{
		Characteristic: "0000aaab-0000-1000-8000-00805f9b34fb",
		Data:           []byte{0xB5, 87},
	}
	frames, _, err := c.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	status, ok := frames[0].(protocol.StatusFrame)
	if !ok {
		t.Fatalf("frames[0] is %T, want StatusFrame", frames[0])
	}
	if status.Reply != protocol.CommandBattery || status.Battery != 87 {
		t.Errorf("battery = %d, want 87", status.Battery)
	}
}

func TestEncodeBattery(t *testing.T) {
	c, _ := New()
	w, err := c.Encode(protocol.CommandBattery)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if w.Characteristic != "0000aaac-0000-1000-8000-00805f9b34fb" {
		t.Errorf("battery request routed to %s", w.Characteristic)
	}
	if len(w.Data) != 1 || w.Data[0] != 0xB5 {
		t.Errorf("battery request bytes = %x", w.Data)
	}
	if _, err := c.Encode(protocol.CommandCalibrate); !errors.Is(err, protocol.ErrUnsupportedCommand) {
		t.Errorf("calibrate err = %v, want ErrUnsupportedCommand", err)
	}
}
