// SPDX-License-Identifier: MIT

// Package scoring implements the Florida county risk model: weather pressure
// (WPS), infrastructure stress (ISS) and the composite CAI, plus the
// acceleration vector (AV) built from short-term trend, volatility and
// forecast pressure.
package scoring

// State labels produced by Label.
const (
	StateSurgeRisk        = "Surge Risk"
	StateHighAccelerating = "High Risk + Accelerating"
	StateMomentumSurge    = "Momentum Surge"
	StateBuilding         = "Building"
	StateStable           = "Stable"
)

// DefaultDAS is the v1 demand-anomaly score used when no feed supplies one.
const DefaultDAS = 10.0

// Inputs are the daily observations for one county.
type Inputs struct {
	Month       int     `json:"month" yaml:"month"`
	HeatIndexF  float64 `json:"heat_index_f" yaml:"heatIndexF"`
	Rain24hIn   float64 `json:"rain_24h_in" yaml:"rain24hIn"`
	WindSustMPH float64 `json:"wind_sust_mph" yaml:"windSustMph"`
	Tropical    bool    `json:"tropical" yaml:"tropical"`
	PopDensity  float64 `json:"pop_density" yaml:"popDensity"`
}

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func clamp100(x float64) float64 { return Clamp(x, 0, 100) }

// DensityFactor scales heat load by how densely a county is populated.
func DensityFactor(popDensity float64) float64 {
	switch {
	case popDensity < 200:
		return 0.8
	case popDensity < 800:
		return 1.0
	default:
		return 1.2
	}
}

// HeatScore maps the heat index onto the Florida hot-humid bands. The month
// is accepted for seasonal bands but v1 ignores it.
func HeatScore(_ int, heatIndexF float64) float64 {
	switch {
	case heatIndexF <= 100:
		return 10
	case heatIndexF <= 105:
		return 25
	case heatIndexF <= 110:
		return 45
	case heatIndexF <= 115:
		return 65
	case heatIndexF <= 120:
		return 80
	default:
		return 95
	}
}

func baseRainScore(r float64) float64 {
	switch {
	case r < 1:
		return 10
	case r < 2:
		return 30
	case r < 4:
		return 55
	case r < 6:
		return 75
	default:
		return 90
	}
}

// RainScore scores 24h rainfall in inches. A tropical system floors it at 70.
func RainScore(rain24hIn float64, tropical bool) float64 {
	s := baseRainScore(rain24hIn)
	if tropical {
		return max(70, s)
	}
	return s
}

func baseWindScore(w float64) float64 {
	switch {
	case w < 20:
		return 5
	case w < 36:
		return 30
	case w < 51:
		return 55
	case w < 71:
		return 75
	default:
		return 95
	}
}

// WindScore scores sustained wind in mph. Tropical winds of 35 mph or more
// are floored at 75.
func WindScore(windSustMPH float64, tropical bool) float64 {
	s := baseWindScore(windSustMPH)
	if tropical && windSustMPH >= 35 {
		return max(75, s)
	}
	return s
}

// WPS weights heat 50%, rain 30% and wind 20%.
func WPS(heat, rain, wind float64) float64 {
	return clamp100(0.50*heat + 0.30*rain + 0.20*wind)
}

// ISS combines density-adjusted heat load with heat persistence (0-100).
func ISS(heat, popDensity, persistence float64) float64 {
	load := heat * DensityFactor(popDensity)
	return clamp100(0.70*load + 0.30*persistence)
}

// CAI is the composite awareness index.
func CAI(wps, iss, das float64) float64 {
	return clamp100(0.40*wps + 0.45*iss + 0.15*das)
}

// STSFromDelta scores the three-day change in CAI.
func STSFromDelta(delta3d float64) float64 {
	switch {
	case delta3d <= 2:
		return 10
	case delta3d <= 6:
		return 30
	case delta3d <= 10:
		return 55
	case delta3d <= 15:
		return 75
	case delta3d <= 22:
		return 90
	default:
		return 100
	}
}

// VEXFromRange scores the five-day CAI range.
func VEXFromRange(range5d float64) float64 {
	switch {
	case range5d <= 6:
		return 10
	case range5d <= 12:
		return 35
	case range5d <= 18:
		return 60
	case range5d <= 26:
		return 80
	default:
		return 95
	}
}

// FPCFromForecast scores forecast pressure over the next three days.
func FPCFromForecast(avgWPS3d, maxWind3d float64, tropical bool) float64 {
	switch {
	case tropical:
		return 95
	case avgWPS3d >= 65 || maxWind3d >= 75:
		return 80
	case avgWPS3d >= 55:
		return 60
	case avgWPS3d >= 45:
		return 35
	default:
		return 15
	}
}

// ApplyWindNuance bumps STS by 10 when wind escalates rapidly: a 25 point
// rise over 48h to at least 55, with a tropical system or a hot forecast.
func ApplyWindNuance(sts, windToday, wind48hAgo, avgWPS3d float64, tropical bool) float64 {
	if windToday-wind48hAgo >= 25 && windToday >= 55 && (tropical || avgWPS3d >= 55) {
		return min(sts+10, 100)
	}
	return sts
}

// AV is the acceleration vector.
func AV(sts, vex, fpc float64) float64 {
	return clamp100(0.50*sts + 0.30*vex + 0.20*fpc)
}

// Label maps CAI and AV onto a state label. Order matters: the first match wins.
func Label(cai, av float64) string {
	switch {
	case cai >= 85:
		return StateSurgeRisk
	case cai >= 70 && av >= 56:
		return StateHighAccelerating
	case av >= 76:
		return StateMomentumSurge
	case cai >= 55 || av >= 56:
		return StateBuilding
	default:
		return StateStable
	}
}
