package source

import (
	"fmt"
	"strconv"
	"strings"

	"dronetwin/internal/twin"
)

// encodeCommand renders a command as a vendor transport payload. The
// vehicle speaks a plain-text command set with distances in centimeters.
func encodeCommand(cmd twin.Command) []byte {
	var s string
	switch cmd.Kind {
	case twin.CmdTakeOff:
		s = "takeoff"
	case twin.CmdLand:
		s = "land"
	case twin.CmdEmergencyStop:
		s = "emergency"
	case twin.CmdMove:
		m := cmd.Move
		s = fmt.Sprintf("go %d %d %d", int(m.DX*100), int(m.DY*100), int(m.DZ*100))
	case twin.CmdRotate:
		deg := cmd.Rotate.Degrees
		if deg >= 0 {
			s = fmt.Sprintf("cw %d", int(deg))
		} else {
			s = fmt.Sprintf("ccw %d", int(-deg))
		}
	case twin.CmdSetSpeed:
		s = fmt.Sprintf("speed %d", int(cmd.SetSpeed.MPS*100))
	}
	return []byte(s)
}

// parseFrame decodes a telemetry frame of semicolon-separated key:value
// pairs, e.g. "yaw:12;bat:87;h:120;vgx:0.5". Distances arrive in
// centimeters, velocities in m/s. Unknown keys are ignored; missing keys
// keep the previous sample's value.
func parseFrame(data []byte, prev twin.VehicleState) (twin.VehicleState, error) {
	st := prev
	text := strings.TrimSpace(string(data))
	if text == "" {
		return prev, fmt.Errorf("empty telemetry frame")
	}
	for _, pair := range strings.Split(text, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, val, ok := strings.Cut(pair, ":")
		if !ok {
			return prev, fmt.Errorf("malformed telemetry field %q", pair)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return prev, fmt.Errorf("telemetry field %s: %w", key, err)
		}
		switch strings.TrimSpace(key) {
		case "x":
			st.Position.X = f / 100
		case "y":
			st.Position.Y = f / 100
		case "z":
			st.Position.Z = f / 100
		case "h":
			st.Height = f / 100
		case "yaw":
			st.Orientation.Yaw = twin.NormalizeAngle(f)
		case "pitch":
			st.Orientation.Pitch = twin.NormalizeAngle(f)
		case "roll":
			st.Orientation.Roll = twin.NormalizeAngle(f)
		case "vgx":
			st.Velocity.X = f
		case "vgy":
			st.Velocity.Y = f
		case "vgz":
			st.Velocity.Z = f
		case "bat":
			st.Battery = int(f)
		}
	}
	if st.Height < 0 {
		st.Height = 0
	}
	return st, nil
}
