// Package flightplan loads scripted command sequences from YAML files.
package flightplan

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"dronetwin/internal/twin"
)

// Plan is a named, ordered command script for the twin.
type Plan struct {
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
	Steps       []Step `yaml:"steps"`
}

// Step describes one scripted command with an optional settle pause.
type Step struct {
	Command string         `yaml:"command"`
	Move    *twin.Move     `yaml:"move,omitempty"`
	Rotate  *twin.Rotate   `yaml:"rotate,omitempty"`
	Speed   *twin.SetSpeed `yaml:"speed,omitempty"`
	PauseMs int            `yaml:"pause_ms,omitempty"`
}

// Pause returns the step's settle delay.
func (s Step) Pause() time.Duration {
	return time.Duration(s.PauseMs) * time.Millisecond
}

// Load reads a YAML flight plan from disk.
func Load(path string) (*Plan, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flight plan: %w", err)
	}
	var p Plan
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse flight plan: %w", err)
	}
	if len(p.Steps) == 0 {
		return nil, fmt.Errorf("flight plan %s has no steps", path)
	}
	return &p, nil
}

// Commands converts the plan's steps into submittable commands, each
// stamped with a fresh correlation id.
func (p *Plan) Commands() ([]twin.Command, error) {
	cmds := make([]twin.Command, 0, len(p.Steps))
	for i, step := range p.Steps {
		cmd, err := step.command()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

func (s Step) command() (twin.Command, error) {
	switch s.Command {
	case "takeoff":
		return twin.NewCommand(twin.CmdTakeOff), nil
	case "land":
		return twin.NewCommand(twin.CmdLand), nil
	case "emergency_stop":
		return twin.NewCommand(twin.CmdEmergencyStop), nil
	case "move":
		if s.Move == nil {
			return twin.Command{}, fmt.Errorf("move step missing move parameters")
		}
		return twin.NewMove(s.Move.DX, s.Move.DY, s.Move.DZ), nil
	case "rotate":
		if s.Rotate == nil {
			return twin.Command{}, fmt.Errorf("rotate step missing rotate parameters")
		}
		return twin.NewRotate(s.Rotate.Degrees), nil
	case "set_speed":
		if s.Speed == nil {
			return twin.Command{}, fmt.Errorf("set_speed step missing speed parameters")
		}
		return twin.NewSetSpeed(s.Speed.MPS), nil
	default:
		return twin.Command{}, fmt.Errorf("unknown command %q", s.Command)
	}
}
