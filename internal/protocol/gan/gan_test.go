package gan

import (
	"errors"
	"testing"

	"github.com/cubesense/smartcube/internal/cube"
	"github.com/cubesense/smartcube/internal/protocol"
)

const testMAC = "AB:12:34:62:F9:C5"

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := New(protocol.KeyMaterial{MAC: testMAC})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// setBits writes width bits of val at bit offset start, MSB first.
func setBits(data []byte, start, width, val int) {
	for i := 0; i < width; i++ {
		bit := start + width - 1 - i
		if val&(1<<i) != 0 {
			data[bit>>3] |= 0x80 >> (bit & 7)
		} else {
			data[bit>>3] &^= 0x80 >> (bit & 7)
		}
	}
}

// notify encrypts a plaintext payload the way the cube would and wraps it
// as a raw frame.
func notify(c *Codec, plain []byte) protocol.RawFrame {
	data := make([]byte, len(plain))
	copy(data, plain)
	c.cipher.encrypt(data)
	return protocol.RawFrame{
		Characteristic: "28be4cb6-cd67-11e9-a32f-2a2ae2dbcce4",
		Data:           data,
	}
}

// moveFrame builds a mode-2 plaintext with the given counter and history
// slots (index 0 = most recent).
func moveFrame(counter int, history ...int) []byte {
	data := make([]byte, 20)
	setBits(data, 0, 4, modeMove)
	setBits(data, 4, 8, counter)
	for i := 0; i < 7; i++ {
		m := 0x1F // empty slot
		if i < len(history) {
			m = history[i]
		}
		setBits(data, 12+i*historySlots, historySlots, m)
	}
	return data
}

func TestDecodeFirstMoveFrameSeedsCounter(t *testing.T) {
	c := newTestCodec(t)
	frames, _, err := c.Decode(notify(c, moveFrame(42, 0)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(frames) != 0 {
		t.Errorf("baseline frame emitted %d moves, want 0", len(frames))
	}
}

func TestDecodeSingleMove(t *testing.T) {
	c := newTestCodec(t)
	c.Decode(notify(c, moveFrame(42)))

	// Counter 43, slot 0 = U (code 0).
	frames, _, err := c.Decode(notify(c, moveFrame(43, 0)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	move := frames[0].(protocol.MoveFrame)
	if move.Face != cube.U || move.Turn != 1 || move.Counter != 43 {
		t.Errorf("move = %v/%d counter %d, want U/1 counter 43", move.Face, move.Turn, move.Counter)
	}
}

func TestDecodeMoveHistoryReplay(t *testing.T) {
	c := newTestCodec(t)
	c.Decode(notify(c, moveFrame(5)))

	// Two moves since the baseline: R' (code 3) then F (code 4). Slot 0
	// holds the most recent; decode must emit oldest first.
	frames, _, err := c.Decode(notify(c, moveFrame(7, 4, 3)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	first := frames[0].(protocol.MoveFrame)
	second := frames[1].(protocol.MoveFrame)
	if first.Face != cube.R || first.Turn != -1 || first.Counter != 6 {
		t.Errorf("first move = %v/%d counter %d, want R/-1 counter 6", first.Face, first.Turn, first.Counter)
	}
	if second.Face != cube.F || second.Turn != 1 || second.Counter != 7 {
		t.Errorf("second move = %v/%d counter %d, want F/1 counter 7", second.Face, second.Turn, second.Counter)
	}
}

func TestDecodeCounterRollover(t *testing.T) {
	c := newTestCodec(t)
	c.Decode(notify(c, moveFrame(255)))
	frames, _, err := c.Decode(notify(c, moveFrame(0, 2)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("rollover produced %d frames, want 1", len(frames))
	}
	move := frames[0].(protocol.MoveFrame)
	if move.Counter != 0 {
		t.Errorf("counter = %d, want 0", move.Counter)
	}
	if move.Face != cube.R || move.Turn != 1 {
		t.Errorf("move = %v/%d, want R/1", move.Face, move.Turn)
	}
}

func TestDecodeDuplicateCounterIsSilent(t *testing.T) {
	c := newTestCodec(t)
	c.Decode(notify(c, moveFrame(10)))
	c.Decode(notify(c, moveFrame(11, 0)))
	frames, _, err := c.Decode(notify(c, moveFrame(11, 0)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(frames) != 0 {
		t.Errorf("duplicate counter emitted %d frames, want 0", len(frames))
	}
}

func TestDecodeSolvedState(t *testing.T) {
	// Solved state: identity permutations with zero orientations; the
	// last corner and edge come from checksum completion.
	data := make([]byte, 20)
	setBits(data, 0, 4, modeState)
	for i := 0; i < 7; i++ {
		setBits(data, 12+i*3, 3, i)
		setBits(data, 33+i*2, 2, 0)
	}
	for i := 0; i < 11; i++ {
		setBits(data, 47+i*4, 4, i)
		setBits(data, 91+i, 1, 0)
	}

	c := newTestCodec(t)
	frames, _, err := c.Decode(notify(c, data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	state := frames[0].(protocol.StateFrame)
	if !state.State.IsSolved() {
		t.Errorf("state = %q, want solved", state.State.ToFacelets())
	}
}

func TestDecodeCorruptStateRejected(t *testing.T) {
	data := make([]byte, 20)
	setBits(data, 0, 4, modeState)
	for i := 0; i < 7; i++ {
		setBits(data, 12+i*3, 3, 0) // corner 0 in every slot
	}
	for i := 0; i < 11; i++ {
		setBits(data, 47+i*4, 4, i)
	}
	c := newTestCodec(t)
	_, _, err := c.Decode(notify(c, data))
	if !errors.Is(err, protocol.ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestDecodeBattery(t *testing.T) {
	data := make([]byte, 20)
	setBits(data, 0, 4, modeBattery)
	setBits(data, 8, 8, 64)
	c := newTestCodec(t)
	frames, _, err := c.Decode(notify(c, data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	status := frames[0].(protocol.StatusFrame)
	if status.Reply != protocol.CommandBattery || status.Battery != 64 {
		t.Errorf("battery = %d, want 64", status.Battery)
	}
}

func TestDecodeShortFrame(t *testing.T) {
	c := newTestCodec(t)
	_, _, err := c.Decode(protocol.RawFrame{Data: []byte{1, 2, 3}})
	if !errors.Is(err, protocol.ErrFrameLength) {
		t.Errorf("err = %v, want ErrFrameLength", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	c := newTestCodec(t)
	w, err := c.Encode(protocol.CommandState)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(w.Data) != 20 {
		t.Fatalf("request is %d bytes, want 20", len(w.Data))
	}
	plain := make([]byte, 20)
	copy(plain, w.Data)
	c.cipher.decrypt(plain)
	if plain[0] != reqState {
		t.Errorf("decrypted request starts with %#02x, want %#02x", plain[0], reqState)
	}
}

func TestEncodeUnsupported(t *testing.T) {
	c := newTestCodec(t)
	if _, err := c.Encode(protocol.CommandCalibrate); !errors.Is(err, protocol.ErrUnsupportedCommand) {
		t.Errorf("err = %v, want ErrUnsupportedCommand", err)
	}
}

func TestKeySalting(t *testing.T) {
	// Different MACs must yield different ciphertexts for the same
	// request.
	a, _ := New(protocol.KeyMaterial{MAC: "AB:12:34:62:F9:C5"})
	b, _ := New(protocol.KeyMaterial{MAC: "AB:12:34:62:F9:C6"})
	wa, _ := a.Encode(protocol.CommandBattery)
	wb, _ := b.Encode(protocol.CommandBattery)
	same := true
	for i := range wa.Data {
		if wa.Data[i] != wb.Data[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("key salting had no effect on the ciphertext")
	}
}

func TestNewRequiresMAC(t *testing.T) {
	if _, err := New(protocol.KeyMaterial{}); err == nil {
		t.Error("New without MAC or explicit keys should fail")
	}
}
