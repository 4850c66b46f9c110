// internal/rating/glicko2.go
package rating

import (
	"math"

	"github.com/jason-s-yu/arena/internal/models"
)

const (
	// GlickoScale converts between the 1500 scale and Glicko-2's internal mu/phi.
	GlickoScale = 173.7178
	// DefaultMu is the starting rating on the 1500 scale.
	DefaultMu = 1500.0
	// DefaultPhi is the starting rating deviation on the 1500 scale.
	DefaultPhi = 350.0
	// DefaultSigma is the starting volatility.
	DefaultSigma = 0.06
	// MinPhi keeps veteran ratings from freezing entirely.
	MinPhi = 30.0
	// Tau constrains how fast volatility may change.
	Tau = 0.5
	// Epsilon is the convergence tolerance of the volatility iteration.
	Epsilon = 0.000001
)

// Glicko2Rating is a rating in Glicko-2 space.
type Glicko2Rating struct {
	Mu    float64
	Phi   float64
	Sigma float64
}

// FromModel converts a stored rating into Glicko-2 space. Zero fields take the defaults
// so rows written before the player ever finished a game still work.
func FromModel(r models.Rating) Glicko2Rating {
	elo, phi, sigma := float64(r.Elo), r.Phi, r.Sigma
	if elo == 0 {
		elo = DefaultMu
	}
	if phi <= 0 {
		phi = DefaultPhi
	}
	if sigma <= 0 {
		sigma = DefaultSigma
	}
	return Glicko2Rating{
		Mu:    (elo - DefaultMu) / GlickoScale,
		Phi:   phi / GlickoScale,
		Sigma: sigma,
	}
}

// Apply writes g back onto r in the 1500 scale and counts the game.
func (g Glicko2Rating) Apply(r models.Rating) models.Rating {
	r.Elo = int(math.Round(g.Mu*GlickoScale + DefaultMu))
	r.Phi = math.Max(g.Phi*GlickoScale, MinPhi)
	r.Sigma = g.Sigma
	r.Games++
	return r
}

// Update1v1 rates one decisive match. Both updates use the pre-match ratings, so the
// order of the arguments only decides who won.
func Update1v1(winner, loser models.Rating) (models.Rating, models.Rating) {
	w, l := FromModel(winner), FromModel(loser)
	return update(w, l, 1).Apply(winner), update(l, w, 0).Apply(loser)
}

// update is a single-period Glicko-2 step of r against one opponent, score in [0,1].
func update(r, opp Glicko2Rating, score float64) Glicko2Rating {
	gOpp := gFactor(opp.Phi)
	e := expected(r.Mu, opp.Mu, opp.Phi)

	v := 1.0 / (gOpp * gOpp * e * (1 - e))
	delta := v * gOpp * (score - e)

	sigma := volatility(r, v, delta)

	phiStar := math.Sqrt(r.Phi*r.Phi + sigma*sigma)
	phi := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)
	mu := r.Mu + phi*phi*gOpp*(score-e)

	return Glicko2Rating{Mu: mu, Phi: phi, Sigma: sigma}
}

// volatility solves for the new sigma with the Illinois variant of regula falsi.
func volatility(r Glicko2Rating, v, delta float64) float64 {
	a := math.Log(r.Sigma * r.Sigma)
	fn := func(x float64) float64 {
		ex := math.Exp(x)
		d := r.Phi*r.Phi + v + ex
		return ex*(delta*delta-r.Phi*r.Phi-v-ex)/(2*d*d) - (x-a)/(Tau*Tau)
	}

	lo := a
	var hi float64
	if delta*delta > r.Phi*r.Phi+v {
		hi = math.Log(delta*delta - r.Phi*r.Phi - v)
	} else {
		k := 1.0
		for fn(a-k*Tau) < 0 {
			k++
		}
		hi = a - k*Tau
	}

	fLo, fHi := fn(lo), fn(hi)
	for i := 0; i < 100 && math.Abs(hi-lo) > Epsilon; i++ {
		c := lo + (lo-hi)*fLo/(fHi-fLo)
		fC := fn(c)
		if fC*fHi <= 0 {
			lo, fLo = hi, fHi
		} else {
			fLo /= 2
		}
		hi, fHi = c, fC
	}
	return math.Exp(lo / 2)
}

func gFactor(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+3.0*phi*phi/(math.Pi*math.Pi))
}

func expected(mu, oppMu, oppPhi float64) float64 {
	return 1.0 / (1.0 + math.Exp(-gFactor(oppPhi)*(mu-oppMu)))
}
