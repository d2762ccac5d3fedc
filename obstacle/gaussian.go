package obstacle

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/jhc-asv/ribbon-planner/state"
)

// Gaussian is a single tracked obstacle modeled as a 2D Gaussian blob that
// translates at constant heading and speed. Intensity is the per-obstacle
// weight alpha applied to its PDF mass when a manager aggregates across
// several obstacles.
type Gaussian struct {
	X, Y, Yaw, Speed, Time float64
	Covariance             [2][2]float64
	Intensity              float64
}

// defaultCovariance matches the upstream model's fallback spread for
// obstacles with no reported uncertainty.
var defaultCovariance = [2][2]float64{{30, 10}, {10, 30}}

// defaultIntensity is alpha for a track with no reported intensity.
const defaultIntensity = 1.0

// NewGaussian builds an obstacle from a reported pose/heading/speed/time,
// converting compass heading into the yaw convention the projection math
// uses (yaw = pi/2 - heading).
func NewGaussian(x, y, heading, speed, t float64) Gaussian {
	return Gaussian{X: x, Y: y, Yaw: math.Pi/2 - heading, Speed: speed, Time: t, Covariance: defaultCovariance, Intensity: defaultIntensity}
}

func NewGaussianWithCovariance(x, y, heading, speed, t float64, cov [2][2]float64) Gaussian {
	return Gaussian{X: x, Y: y, Yaw: math.Pi/2 - heading, Speed: speed, Time: t, Covariance: cov, Intensity: defaultIntensity}
}

// NewGaussianWithIntensity builds an obstacle with an explicit alpha
// weight, covariance defaulted the same way NewGaussian does.
func NewGaussianWithIntensity(x, y, heading, speed, t, intensity float64) Gaussian {
	g := NewGaussian(x, y, heading, speed, t)
	g.Intensity = intensity
	return g
}

// Project advances the obstacle to desiredTime assuming constant velocity;
// covariance does not grow with elapsed time, matching the upstream model.
func (o Gaussian) Project(desiredTime float64) Gaussian {
	dt := desiredTime - o.Time
	dx := o.Speed * dt * math.Cos(o.Yaw)
	dy := o.Speed * dt * math.Sin(o.Yaw)
	o.X += dx
	o.Y += dy
	o.Time = desiredTime
	return o
}

// PDF evaluates the multivariate normal density at (x, y), using gonum for
// the 2x2 covariance inverse and determinant.
func (o Gaussian) PDF(x, y float64) float64 {
	cov := mat.NewDense(2, 2, []float64{
		o.Covariance[0][0], o.Covariance[0][1],
		o.Covariance[1][0], o.Covariance[1][1],
	})
	var inv mat.Dense
	if err := inv.Inverse(cov); err != nil {
		return 0
	}
	det := mat.Det(cov)
	if det <= 0 {
		return 0
	}

	diff := mat.NewVecDense(2, []float64{x - o.X, y - o.Y})
	var tmp mat.VecDense
	tmp.MulVec(&inv, diff)
	quadform := mat.Dot(diff, &tmp)

	norm := 1.0 / (2 * math.Pi) / math.Sqrt(det)
	return norm * math.Exp(-0.5*quadform)
}

// GaussianManager tracks Gaussian obstacles by MMSI (or any integer id)
// and answers collision queries with the alpha-weighted PDF mass at the
// query point.
type GaussianManager struct {
	mu     sync.Mutex
	tracks map[uint32]Gaussian

	// StrictThreshold / LooseThreshold are stored alongside the tracks
	// (strict the higher bar, loose the lower one). CollisionExists does
	// not apply either of them.
	StrictThreshold, LooseThreshold float64
}

func NewGaussianManager() *GaussianManager {
	return &GaussianManager{
		tracks:          map[uint32]Gaussian{},
		StrictThreshold: 0.01,
		LooseThreshold:  0.001,
	}
}

func (g *GaussianManager) Update(id uint32, x, y, heading, speed, t float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tracks[id] = NewGaussian(x, y, heading, speed, t)
}

// UpdateState satisfies DynamicObstaclesManager by unpacking a state.State
// report into Update's pose/heading/speed/time arguments.
func (g *GaussianManager) UpdateState(id uint32, s state.State) {
	g.Update(id, s.X, s.Y, s.Heading, s.Speed, s.Time)
}

func (g *GaussianManager) UpdateWithCovariance(id uint32, x, y, heading, speed, t float64, cov [2][2]float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tracks[id] = NewGaussianWithCovariance(x, y, heading, speed, t, cov)
}

// UpdateWithIntensity sets a track's alpha weight alongside its pose,
// for obstacles whose reported mass should count for more or less than
// the default when aggregated by CollisionExists.
func (g *GaussianManager) UpdateWithIntensity(id uint32, x, y, heading, speed, t, intensity float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tracks[id] = NewGaussianWithIntensity(x, y, heading, speed, t, intensity)
}

func (g *GaussianManager) Forget(id uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.tracks, id)
}

func (g *GaussianManager) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.tracks)
}

// GetDeepCopy snapshots every track, matching get_deep_copy's role in the
// replanning loop: obstacle state is cloned under lock, then the clone is
// handed off to a planner that runs outside any lock.
func (g *GaussianManager) GetDeepCopy() map[uint32]Gaussian {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[uint32]Gaussian, len(g.tracks))
	for id, o := range g.tracks {
		out[id] = o
	}
	return out
}

// CollisionExists projects every tracked obstacle to time t and returns
// the alpha-weighted sum of their PDF mass at (x, y) — sum(alpha_i *
// pdf_i(x, y)). strict does not change the result.
func (g *GaussianManager) CollisionExists(x, y, t float64, strict bool) float64 {
	g.mu.Lock()
	tracks := make([]Gaussian, 0, len(g.tracks))
	for _, o := range g.tracks {
		tracks = append(tracks, o)
	}
	g.mu.Unlock()

	total := 0.0
	for _, o := range tracks {
		total += o.Intensity * o.Project(t).PDF(x, y)
	}
	return total
}
