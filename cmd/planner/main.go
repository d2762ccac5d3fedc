// Command planner is a thin line-oriented stdin/stdout harness around the
// Executive. It exists so the planning core can be exercised end-to-end
// without a real controller transport: the protocol is deliberately close
// to the reference main.go's scan/print loop.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jhc-asv/ribbon-planner/config"
	"github.com/jhc-asv/ribbon-planner/executive"
	"github.com/jhc-asv/ribbon-planner/internal/plog"
	"github.com/jhc-asv/ribbon-planner/obstacle"
	"github.com/jhc-asv/ribbon-planner/plan"
	"github.com/jhc-asv/ribbon-planner/planner"
	"github.com/jhc-asv/ribbon-planner/planner/astar"
	"github.com/jhc-asv/ribbon-planner/planner/bitstar"
	"github.com/jhc-asv/ribbon-planner/planner/potentialfield"
	"github.com/jhc-asv/ribbon-planner/ribbon"
	"github.com/jhc-asv/ribbon-planner/state"
)

// stdioController publishes plans and reports vehicle position over the
// same stdin/stdout protocol as the rest of this command, so the Executive
// never needs to know it isn't talking to a real controller process.
type stdioController struct {
	out *bufio.Writer

	lastKnown state.State
}

func (c *stdioController) PublishPlan(ctx context.Context, p plan.Plan) error {
	fmt.Fprintf(c.out, "plan %d\n", len(p.Segments))
	for _, seg := range p.Segments {
		start, err := seg.Sample(seg.StartTime)
		if err != nil {
			continue
		}
		fmt.Fprintf(c.out, "%f %f %f %f %f\n", start.X, start.Y, start.Heading, start.Speed, start.Time)
	}
	return c.out.Flush()
}

func (c *stdioController) VehiclePosition(ctx context.Context) (state.State, error) {
	return c.lastKnown, nil
}

func main() {
	which := flag.String("planner", "potentialfield", "one of potentialfield, astar, bitstar")
	cycleBudget := flag.Duration("cycle", 500*time.Millisecond, "wall-clock budget per planning cycle")
	logDir := flag.String("logdir", "", "directory for rotating log files; empty discards logs")
	flag.Parse()

	var log *plog.Logger
	if *logDir != "" {
		log = plog.New(plog.Options{Dir: *logDir})
	} else {
		log = plog.NewDiscard()
	}

	stdin := bufio.NewScanner(os.Stdin)
	stdin.Buffer(make([]byte, 1024*1024), 1024*1024)
	stdout := bufio.NewWriter(os.Stdout)

	stdin.Scan() // "start"

	var maxSpeed, maxTurningRadius float64
	scanLine(stdin, "max speed %f", &maxSpeed)
	scanLine(stdin, "max turning radius %f", &maxTurningRadius)

	staticMap := readStaticMap(stdin)
	ribbons := readRibbons(stdin)

	cfg := config.Default()
	cfg.MaxSpeed = maxSpeed
	cfg.MaxTurningRadius = maxTurningRadius
	cfg.CoverageTurningRadius = maxTurningRadius

	controller := &stdioController{out: stdout}
	dynamic := obstacle.NewBinary(4, 1)

	kinds := map[string]executive.PlannerKind{
		"potentialfield": executive.PotentialField,
		"astar":          executive.AStar,
		"bitstar":        executive.BitStar,
	}
	kind, ok := kinds[strings.ToLower(*which)]
	if !ok {
		fmt.Fprintln(os.Stderr, "unknown planner:", *which)
		os.Exit(1)
	}

	e := executive.New(executive.Options{
		Ribbons:   ribbons,
		Dynamic:   dynamic,
		StaticMap: staticMap,
		Planners: map[executive.PlannerKind]planner.Planner{
			executive.PotentialField: potentialfield.New(),
			executive.AStar:          astar.New(),
			executive.BitStar:        bitstar.New(),
		},
		Which:       kind,
		Config:      cfg,
		Controller:  controller,
		Logger:      log,
		CycleBudget: *cycleBudget,
		ReusePlan:   true,
		OnTaskStats: func(stats executive.TaskStats) {
			fmt.Fprintf(stdout, "done %f %f\n", stats.WallClockTime.Seconds(), stats.UncoveredLength)
			stdout.Flush()
		},
	})

	fmt.Fprintln(stdout, "ready")
	stdout.Flush()

	for stdin.Scan() {
		line := stdin.Text()
		if line != "plan" {
			break
		}
		var startLine string
		scanLine(stdin, "start state %s", &startLine)
		start, err := parseState(startLine)
		if err != nil {
			log.Warn("failed to parse start state", "error", err, "line", startLine)
			continue
		}
		controller.lastKnown = start

		var nObstacles int
		scanLine(stdin, "dynamic obs %d", &nObstacles)
		for i := 0; i < nObstacles; i++ {
			stdin.Scan()
			fields := strings.Fields(stdin.Text())
			if len(fields) < 2 {
				continue
			}
			var id int
			fmt.Sscanf(fields[0], "%d", &id)
			s, err := parseState(strings.Join(fields[1:], " "))
			if err != nil {
				continue
			}
			dynamic.Update(uint32(id), s)
		}

		if e.State() != executive.Running {
			if err := e.StartPlanner(start); err != nil {
				log.Warn("failed to start planner", "error", err)
			}
		}
	}

	e.CancelPlanner()
}

func scanLine(s *bufio.Scanner, format string, args ...interface{}) {
	s.Scan()
	fmt.Sscanf(s.Text(), format, args...)
}

func readStaticMap(s *bufio.Scanner) *obstacle.Map {
	lines := []string{}
	for s.Scan() {
		line := s.Text()
		if line == "end map" {
			break
		}
		lines = append(lines, line)
	}
	r := bufio.NewReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	m, err := obstacle.LoadGridWorldMap(r)
	if err != nil {
		return obstacle.EmptyMap(1, 1)
	}
	return m
}

func readRibbons(s *bufio.Scanner) *ribbon.Manager {
	var count int
	scanLine(s, "ribbons %d", &count)
	m := ribbon.NewManager(ribbon.TspPointRobotNoSplitKRibbons, 8, 3)
	for i := 0; i < count; i++ {
		s.Scan()
		fields := strings.Fields(s.Text())
		if len(fields) < 5 {
			continue
		}
		var x1, y1, x2, y2, width float64
		fmt.Sscanf(fields[0], "%f", &x1)
		fmt.Sscanf(fields[1], "%f", &y1)
		fmt.Sscanf(fields[2], "%f", &x2)
		fmt.Sscanf(fields[3], "%f", &y2)
		fmt.Sscanf(fields[4], "%f", &width)
		m.Add(ribbon.NewRibbon(state.State{X: x1, Y: y1}, state.State{X: x2, Y: y2}, width))
	}
	return m
}

func parseState(line string) (state.State, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return state.State{}, fmt.Errorf("cmd/planner: malformed state %q", line)
	}
	var s state.State
	fmt.Sscanf(fields[0], "%f", &s.X)
	fmt.Sscanf(fields[1], "%f", &s.Y)
	fmt.Sscanf(fields[2], "%f", &s.Heading)
	fmt.Sscanf(fields[3], "%f", &s.Speed)
	fmt.Sscanf(fields[4], "%f", &s.Time)
	return s, nil
}
