// Package pattern generates scripted flight command sequences: square,
// spiral, and circle maneuvers around the twin origin.
package pattern

import (
	"fmt"
	"math"

	"dronetwin/internal/twin"
)

// Parameter limits, in centimeters to match the vehicle's command set.
const (
	minSizeCM   = 20
	maxSizeCM   = 500
	minRadiusCM = 30
	maxRadiusCM = 150
	minClimbCM  = 50
	maxClimbCM  = 200
)

// Square returns the commands tracing a horizontal square of the given
// side length in centimeters, turning clockwise at each corner.
func Square(sizeCM float64) ([]twin.Command, error) {
	if sizeCM < minSizeCM || sizeCM > maxSizeCM {
		return nil, fmt.Errorf("invalid size %.0f: must be between %d and %d cm", sizeCM, minSizeCM, maxSizeCM)
	}
	side := sizeCM / 100
	var cmds []twin.Command
	heading := 0.0
	for i := 0; i < 4; i++ {
		cmds = append(cmds, forward(heading, side), twin.NewRotate(90))
		heading += 90
	}
	return cmds, nil
}

// Spiral returns the commands climbing climbCM while opening out to
// radiusCM over eight segments.
func Spiral(radiusCM, climbCM float64) ([]twin.Command, error) {
	if radiusCM < minRadiusCM || radiusCM > maxRadiusCM {
		return nil, fmt.Errorf("invalid radius %.0f: must be between %d and %d cm", radiusCM, minRadiusCM, maxRadiusCM)
	}
	if climbCM < minClimbCM || climbCM > maxClimbCM {
		return nil, fmt.Errorf("invalid climb %.0f: must be between %d and %d cm", climbCM, minClimbCM, maxClimbCM)
	}
	const steps = 8
	angleStep := 360.0 / steps
	climbStep := climbCM / 100 / steps
	radiusStep := radiusCM / 100 / steps

	cmds := []twin.Command{twin.NewMove(0, 0, 0.5)}
	heading := 0.0
	for i := 0; i < steps; i++ {
		cmds = append(cmds,
			twin.NewMove(0, 0, climbStep),
			twin.NewRotate(angleStep),
		)
		heading += angleStep
		cmds = append(cmds, forward(heading, radiusStep*float64(i+1)))
	}
	return cmds, nil
}

// Circle returns the commands approximating a horizontal circle of the
// given radius in centimeters over sixteen segments.
func Circle(radiusCM float64) ([]twin.Command, error) {
	if radiusCM < minRadiusCM || radiusCM > maxRadiusCM {
		return nil, fmt.Errorf("invalid radius %.0f: must be between %d and %d cm", radiusCM, minRadiusCM, maxRadiusCM)
	}
	const steps = 16
	angleStep := 360.0 / steps
	segment := 2 * math.Pi * (radiusCM / 100) / steps

	var cmds []twin.Command
	heading := 0.0
	for i := 0; i < steps; i++ {
		cmds = append(cmds, forward(heading, segment), twin.NewRotate(angleStep))
		heading += angleStep
	}
	return cmds, nil
}

// forward builds a move along the current heading; 0° is +Y, clockwise.
func forward(headingDeg, dist float64) twin.Command {
	rad := headingDeg * math.Pi / 180
	return twin.NewMove(dist*math.Sin(rad), dist*math.Cos(rad), 0)
}
