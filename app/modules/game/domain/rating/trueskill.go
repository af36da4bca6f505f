package rating

import (
	"errors"
	"fmt"
	"math"
	"sort"

	gamedomain "github.com/Black-And-White-Club/snakebench/app/modules/game/domain"
)

const (
	trueSkillName          = "trueskill"
	trueSkillMinDelta      = 0.0001
	trueSkillMaxIterations = 10
)

// TrueSkill is a free-for-all Bayesian skill update: every participant is its own team,
// teams are ordered by rank and adjacent pairs are linked by win or draw factors.
type TrueSkill struct {
	beta            float64
	tau             float64
	drawProbability float64
}

// TrueSkillOption overrides one environment parameter.
type TrueSkillOption func(*TrueSkill)

func WithBeta(beta float64) TrueSkillOption { return func(t *TrueSkill) { t.beta = beta } }
func WithTau(tau float64) TrueSkillOption   { return func(t *TrueSkill) { t.tau = tau } }
func WithDrawProbability(p float64) TrueSkillOption {
	return func(t *TrueSkill) { t.drawProbability = p }
}

// NewTrueSkill returns the environment beta=25/6, tau=0.5, draw probability 0.1 unless overridden.
func NewTrueSkill(opts ...TrueSkillOption) *TrueSkill {
	t := &TrueSkill{beta: Beta, tau: Tau, drawProbability: DrawProbability}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TrueSkill) Name() string { return trueSkillName }

// Rate runs one belief-propagation pass and returns posterior mu/sigma. Elo is carried through unchanged.
func (t *TrueSkill) Rate(participants []Participant) (results []Result, err error) {
	if len(participants) < 2 {
		return nil, ratingErr(trueSkillName, gamedomain.ErrInsufficientParticipants)
	}
	for _, p := range participants {
		if !finite(p.Mu, p.Sigma) || p.Sigma <= 0 {
			return nil, ratingErr(trueSkillName, fmt.Errorf("model %d prior mu=%v sigma=%v: %w", p.ModelID, p.Mu, p.Sigma, gamedomain.ErrNumerical))
		}
	}

	// Sort seats by rank; the stable sort keeps input order inside a tie so results are deterministic.
	order := make([]int, len(participants))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return participants[order[a]].Rank < participants[order[b]].Rank
	})

	g := &factorGraph{}
	n := len(order)
	skills := make([]*variable, n)
	perfs := make([]*variable, n)
	priors := make([]*priorFactor, n)
	likelihoods := make([]*likelihoodFactor, n)
	for i, idx := range order {
		p := participants[idx]
		skills[i] = newVariable()
		perfs[i] = newVariable()
		priors[i] = &priorFactor{id: g.next(), v: skills[i], mu: p.Mu, sigma: math.Sqrt(p.Sigma*p.Sigma + t.tau*t.tau)}
		likelihoods[i] = &likelihoodFactor{id: g.next(), mean: skills[i], value: perfs[i], variance: t.beta * t.beta}
	}

	// Two players per comparison, so the draw margin uses size 2.
	margin := drawMargin(t.drawProbability, 2, t.beta)
	diffs := make([]*sumFactor, n-1)
	truncs := make([]*truncateFactor, n-1)
	for k := 0; k < n-1; k++ {
		d := newVariable()
		diffs[k] = &sumFactor{id: g.next(), sum: d, terms: []*variable{perfs[k], perfs[k+1]}, coeffs: []float64{1, -1}}
		draw := participants[order[k]].Rank == participants[order[k+1]].Rank
		truncs[k] = &truncateFactor{id: g.next(), v: d, draw: draw, margin: margin}
	}
	for i := range priors {
		priors[i].down()
		likelihoods[i].down()
	}

	for iter := 0; iter < trueSkillMaxIterations; iter++ {
		var delta float64
		if len(diffs) == 1 {
			diffs[0].down()
			delta, err = truncs[0].up()
			if err != nil {
				return nil, ratingErr(trueSkillName, err)
			}
		} else {
			for k := 0; k < len(diffs)-1; k++ {
				diffs[k].down()
				d, err := truncs[k].up()
				if err != nil {
					return nil, ratingErr(trueSkillName, err)
				}
				delta = math.Max(delta, d)
				diffs[k].up(1)
			}
			for k := len(diffs) - 1; k > 0; k-- {
				diffs[k].down()
				d, err := truncs[k].up()
				if err != nil {
					return nil, ratingErr(trueSkillName, err)
				}
				delta = math.Max(delta, d)
				diffs[k].up(0)
			}
		}
		if delta <= trueSkillMinDelta {
			break
		}
	}
	diffs[0].up(0)
	diffs[len(diffs)-1].up(1)
	for i := range likelihoods {
		likelihoods[i].up()
	}

	results = make([]Result, len(participants))
	for i, idx := range order {
		p := participants[idx]
		mu, sigma := skills[i].value.mu(), skills[i].value.sigma()
		if !finite(mu, sigma) || sigma <= 0 {
			return nil, ratingErr(trueSkillName, fmt.Errorf("model %d posterior mu=%v sigma=%v: %w", p.ModelID, mu, sigma, gamedomain.ErrNumerical))
		}
		results[idx] = Result{ModelID: p.ModelID, Mu: mu, Sigma: sigma, Elo: p.Elo}
	}
	return results, nil
}

// --- Gaussian arithmetic in natural parameters (precision pi, precision-adjusted mean tau) ---

type gaussian struct{ pi, tau float64 }

func (g gaussian) mu() float64 {
	if g.pi == 0 {
		return 0
	}
	return g.tau / g.pi
}

func (g gaussian) sigma() float64 {
	if g.pi == 0 {
		return math.Inf(1)
	}
	return math.Sqrt(1 / g.pi)
}

func (g gaussian) mul(o gaussian) gaussian { return gaussian{g.pi + o.pi, g.tau + o.tau} }
func (g gaussian) div(o gaussian) gaussian { return gaussian{g.pi - o.pi, g.tau - o.tau} }

func gaussianFrom(mu, sigma float64) gaussian {
	pi := 1 / (sigma * sigma)
	return gaussian{pi: pi, tau: pi * mu}
}

type factorGraph struct{ ids int }

func (g *factorGraph) next() int {
	g.ids++
	return g.ids
}

// variable holds a marginal and the last message received from each factor.
// A factor that has not sent anything yet reads as the zero gaussian.
type variable struct {
	value    gaussian
	messages map[int]gaussian
}

func newVariable() *variable { return &variable{messages: make(map[int]gaussian)} }

func (v *variable) delta(o gaussian) float64 {
	piDelta := math.Abs(v.value.pi - o.pi)
	if math.IsInf(piDelta, 1) {
		return 0
	}
	return math.Max(math.Abs(v.value.tau-o.tau), math.Sqrt(piDelta))
}

func (v *variable) set(val gaussian) float64 {
	d := v.delta(val)
	v.value = val
	return d
}

func (v *variable) updateMessage(factor int, msg gaussian) float64 {
	old := v.messages[factor]
	v.messages[factor] = msg
	return v.set(v.value.div(old).mul(msg))
}

func (v *variable) updateValue(factor int, val gaussian) float64 {
	old := v.messages[factor]
	v.messages[factor] = val.mul(old).div(v.value)
	return v.set(val)
}

type priorFactor struct {
	id        int
	v         *variable
	mu, sigma float64
}

func (f *priorFactor) down() float64 {
	return f.v.updateValue(f.id, gaussianFrom(f.mu, f.sigma))
}

type likelihoodFactor struct {
	id       int
	mean     *variable
	value    *variable
	variance float64
}

func (f *likelihoodFactor) down() float64 {
	msg := f.mean.value.div(f.mean.messages[f.id])
	a := 1 / (1 + f.variance*msg.pi)
	return f.value.updateMessage(f.id, gaussian{a * msg.pi, a * msg.tau})
}

func (f *likelihoodFactor) up() float64 {
	msg := f.value.value.div(f.value.messages[f.id])
	a := 1 / (1 + f.variance*msg.pi)
	return f.mean.updateMessage(f.id, gaussian{a * msg.pi, a * msg.tau})
}

type sumFactor struct {
	id     int
	sum    *variable
	terms  []*variable
	coeffs []float64
}

func (f *sumFactor) down() float64 {
	return f.update(f.sum, f.terms, f.coeffs)
}

func (f *sumFactor) up(index int) float64 {
	coeff := f.coeffs[index]
	coeffs := make([]float64, len(f.coeffs))
	for x, c := range f.coeffs {
		switch {
		case x == index:
			coeffs[x] = 1 / coeff
		default:
			coeffs[x] = -c / coeff
		}
	}
	vals := make([]*variable, len(f.terms))
	copy(vals, f.terms)
	vals[index] = f.sum
	return f.update(f.terms[index], vals, coeffs)
}

func (f *sumFactor) update(target *variable, vals []*variable, coeffs []float64) float64 {
	var piInv, mu float64
	for i, v := range vals {
		div := v.value.div(v.messages[f.id])
		mu += coeffs[i] * div.mu()
		if math.IsInf(piInv, 1) {
			continue
		}
		if div.pi == 0 {
			piInv = math.Inf(1)
			continue
		}
		piInv += coeffs[i] * coeffs[i] / div.pi
	}
	pi := 1 / piInv
	return target.updateMessage(f.id, gaussian{pi: pi, tau: pi * mu})
}

type truncateFactor struct {
	id     int
	v      *variable
	draw   bool
	margin float64
}

func (f *truncateFactor) up() (float64, error) {
	div := f.v.value.div(f.v.messages[f.id])
	sqrtPi := math.Sqrt(div.pi)
	diff, margin := div.tau/sqrtPi, f.margin*sqrtPi

	var v, w float64
	var err error
	if f.draw {
		v = vDraw(diff, margin)
		w, err = wDraw(diff, margin)
	} else {
		v = vWin(diff, margin)
		w, err = wWin(diff, margin)
	}
	if err != nil {
		return 0, err
	}
	denom := 1 - w
	return f.v.updateValue(f.id, gaussian{pi: div.pi / denom, tau: (div.tau + sqrtPi*v) / denom}), nil
}

var errTruncation = errors.New("truncation correction out of range")

func vWin(diff, margin float64) float64 {
	x := diff - margin
	if denom := cdf(x); denom != 0 {
		return pdf(x) / denom
	}
	return -x
}

func wWin(diff, margin float64) (float64, error) {
	x := diff - margin
	v := vWin(diff, margin)
	w := v * (v + x)
	if 0 < w && w < 1 {
		return w, nil
	}
	return 0, fmt.Errorf("win w=%v: %w: %w", w, errTruncation, gamedomain.ErrNumerical)
}

func vDraw(diff, margin float64) float64 {
	absDiff := math.Abs(diff)
	a, b := margin-absDiff, -margin-absDiff
	denom := cdf(a) - cdf(b)
	numer := pdf(b) - pdf(a)
	v := a
	if denom != 0 {
		v = numer / denom
	}
	if diff < 0 {
		return -v
	}
	return v
}

func wDraw(diff, margin float64) (float64, error) {
	absDiff := math.Abs(diff)
	a, b := margin-absDiff, -margin-absDiff
	denom := cdf(a) - cdf(b)
	if denom == 0 {
		return 0, fmt.Errorf("draw: %w: %w", errTruncation, gamedomain.ErrNumerical)
	}
	v := vDraw(absDiff, margin)
	return v*v + (a*pdf(a)-b*pdf(b))/denom, nil
}

func drawMargin(drawProbability float64, size int, beta float64) float64 {
	return ppf((drawProbability+1)/2) * math.Sqrt(float64(size)) * beta
}

func cdf(x float64) float64 { return 0.5 * math.Erfc(-x/math.Sqrt2) }

func pdf(x float64) float64 { return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi) }

func ppf(p float64) float64 { return -math.Sqrt2 * math.Erfcinv(2*p) }
