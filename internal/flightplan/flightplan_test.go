package flightplan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dronetwin/internal/twin"
)

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	return path
}

func TestLoadPlan(t *testing.T) {
	path := writePlan(t, `
name: hover test
description: short hop
steps:
  - command: takeoff
  - command: set_speed
    speed: { mps: 2 }
  - command: move
    move: { dx: 1, dy: 0.5, dz: 0.2 }
    pause_ms: 250
  - command: rotate
    rotate: { degrees: -90 }
  - command: land
`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Name != "hover test" || len(p.Steps) != 5 {
		t.Fatalf("plan = %+v", p)
	}
	if p.Steps[2].Pause() != 250*time.Millisecond {
		t.Errorf("pause = %v, want 250ms", p.Steps[2].Pause())
	}

	cmds, err := p.Commands()
	if err != nil {
		t.Fatalf("commands: %v", err)
	}
	wantKinds := []twin.CommandKind{
		twin.CmdTakeOff, twin.CmdSetSpeed, twin.CmdMove, twin.CmdRotate, twin.CmdLand,
	}
	for i, kind := range wantKinds {
		if cmds[i].Kind != kind {
			t.Errorf("command %d = %s, want %s", i, cmds[i].Kind, kind)
		}
		if cmds[i].Correlation == "" {
			t.Errorf("command %d missing correlation id", i)
		}
	}
	if cmds[2].Move.DX != 1 || cmds[2].Move.DY != 0.5 || cmds[2].Move.DZ != 0.2 {
		t.Errorf("move payload = %+v", cmds[2].Move)
	}
	if cmds[3].Rotate.Degrees != -90 {
		t.Errorf("rotate payload = %+v", cmds[3].Rotate)
	}
}

func TestLoadRejectsEmptyPlan(t *testing.T) {
	path := writePlan(t, "name: empty\nsteps: []\n")
	if _, err := Load(path); err == nil {
		t.Fatal("empty plan accepted")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestCommandsRejectIncompleteSteps(t *testing.T) {
	cases := []struct {
		plan string
		want string
	}{
		{"steps:\n  - command: move\n", "move step missing"},
		{"steps:\n  - command: rotate\n", "rotate step missing"},
		{"steps:\n  - command: set_speed\n", "set_speed step missing"},
		{"steps:\n  - command: hover\n", "unknown command"},
	}
	for _, tc := range cases {
		p, err := Load(writePlan(t, tc.plan))
		if err != nil {
			t.Fatalf("load %q: %v", tc.plan, err)
		}
		_, err = p.Commands()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("plan %q: err = %v, want containing %q", tc.plan, err, tc.want)
		}
	}
}
