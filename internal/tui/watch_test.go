package tui

import (
	"strings"
	"testing"

	"github.com/cubesense/smartcube"
)

const solvedFacelets = "UUUUUUUUURRRRRRRRRFFFFFFFFFDDDDDDDDDLLLLLLLLLBBBBBBBBB"

func TestApplyEventKeepsRecentMoves(t *testing.T) {
	m := New(nil, "aa:bb")
	for i := 0; i < maxRecentMoves+5; i++ {
		m = m.applyEvent(smartcube.MoveEvent{
			Addr: "aa:bb",
			Move: smartcube.Move{Face: smartcube.FaceR, Turn: smartcube.CW, Seq: uint64(i + 1)},
		})
	}
	if len(m.moves) != maxRecentMoves {
		t.Fatalf("kept %d moves, want %d", len(m.moves), maxRecentMoves)
	}
	if m.moves[len(m.moves)-1].Seq != uint64(maxRecentMoves+5) {
		t.Errorf("last seq = %d", m.moves[len(m.moves)-1].Seq)
	}
}

func TestApplyEventIgnoresOtherDevices(t *testing.T) {
	m := New(nil, "aa:bb")
	m = m.applyEvent(smartcube.MoveEvent{Addr: "cc:dd", Move: smartcube.Move{Face: smartcube.FaceU, Turn: smartcube.CW}})
	if len(m.moves) != 0 {
		t.Error("event for another device must not change the view")
	}
}

func TestApplyEventTracksStateAndWarnings(t *testing.T) {
	m := New(nil, "aa:bb")
	m = m.applyEvent(smartcube.StateEvent{Addr: "aa:bb", Facelets: solvedFacelets, Solved: true, Resynced: true})
	if m.status.Facelets != solvedFacelets || !m.status.Solved {
		t.Errorf("status = %+v", m.status)
	}
	if len(m.warnings) != 1 {
		t.Fatalf("warnings = %v", m.warnings)
	}

	for i := 0; i < maxWarnings+2; i++ {
		m = m.applyEvent(smartcube.WarningEvent{Addr: "aa:bb", MissedMoves: 1})
	}
	if len(m.warnings) != maxWarnings {
		t.Errorf("kept %d warnings, want %d", len(m.warnings), maxWarnings)
	}
}

func TestRenderNet(t *testing.T) {
	out := renderNet(solvedFacelets)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 9 {
		t.Fatalf("net has %d rows, want 9", len(lines))
	}
	if renderNet("short") != statusStyle.Render("(no state)") {
		t.Error("malformed facelets should render a placeholder")
	}
}
