// SPDX-License-Identifier: MIT

package scoring

const (
	persistenceWindow = 10
	trendLookback     = 3
	rangeWindow       = 5
	forecastWindow    = 3
)

// ForecastDay is the subset of a forecast needed for forecast pressure.
type ForecastDay struct {
	HeatIndexF  float64 `json:"heat_index_f"`
	Rain24hIn   float64 `json:"rain_24h_in"`
	WindSustMPH float64 `json:"wind_sust_mph"`
	Tropical    bool    `json:"tropical"`
	Month       int     `json:"month"`
}

// Context is everything Evaluate needs for one county-day.
type Context struct {
	Today Inputs

	// CAIHistory holds prior daily CAI values, oldest first, excluding today.
	CAIHistory []float64
	// HeatHistory holds prior daily heat scores, oldest first.
	HeatHistory []float64
	// Wind48hAgo is the wind score two days ago; nil means unknown.
	Wind48hAgo *float64
	Forecast   []ForecastDay

	// DAS defaults to DefaultDAS when nil.
	DAS *float64
}

// Assessment is the full model output for one county-day.
type Assessment struct {
	Heat float64 `json:"heat"`
	Rain float64 `json:"rain"`
	Wind float64 `json:"wind"`

	WPS float64 `json:"WPS"`
	ISS float64 `json:"ISS"`
	DAS float64 `json:"DAS"`
	CAI float64 `json:"CAI"`

	STS float64 `json:"STS"`
	VEX float64 `json:"VEX"`
	FPC float64 `json:"FPC"`
	AV  float64 `json:"AV"`

	State string `json:"state"`
}

// Evaluate runs the full model.
func Evaluate(c Context) Assessment {
	in := c.Today
	heat := HeatScore(in.Month, in.HeatIndexF)
	rain := RainScore(in.Rain24hIn, in.Tropical)
	wind := WindScore(in.WindSustMPH, in.Tropical)

	das := DefaultDAS
	if c.DAS != nil {
		das = *c.DAS
	}

	wps := WPS(heat, rain, wind)
	iss := ISS(heat, in.PopDensity, Persistence(c.HeatHistory))
	cai := CAI(wps, iss, das)

	series := make([]float64, 0, len(c.CAIHistory)+1)
	series = append(series, c.CAIHistory...)
	series = append(series, cai)

	sts := STSFromDelta(Delta(series, trendLookback))
	vex := VEXFromRange(Range(series, rangeWindow))

	avgWPS, maxWind := forecastPressure(c.Forecast, wps, wind)
	fpc := FPCFromForecast(avgWPS, maxWind, in.Tropical)

	wind48 := wind
	if c.Wind48hAgo != nil {
		wind48 = *c.Wind48hAgo
	}
	sts = ApplyWindNuance(sts, wind, wind48, avgWPS, in.Tropical)

	av := AV(sts, vex, fpc)

	return Assessment{
		Heat:  heat,
		Rain:  rain,
		Wind:  wind,
		WPS:   wps,
		ISS:   iss,
		DAS:   das,
		CAI:   cai,
		STS:   sts,
		VEX:   vex,
		FPC:   fpc,
		AV:    av,
		State: Label(cai, av),
	}
}

// Persistence is the mean of the last ten heat scores, or 0 without history.
func Persistence(heatHistory []float64) float64 {
	window := tail(heatHistory, persistenceWindow)
	if len(window) == 0 {
		return 0
	}
	var sum float64
	for _, h := range window {
		sum += h
	}
	return clamp100(sum / float64(len(window)))
}

// Delta returns the change between the last point of series and the point
// lookback entries before it. Too short a series yields 0.
func Delta(series []float64, lookback int) float64 {
	if len(series) <= lookback {
		return 0
	}
	return series[len(series)-1] - series[len(series)-1-lookback]
}

// Range returns max-min over the last n points of series.
func Range(series []float64, n int) float64 {
	window := tail(series, n)
	if len(window) == 0 {
		return 0
	}
	lo, hi := window[0], window[0]
	for _, v := range window[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return hi - lo
}

func forecastPressure(days []ForecastDay, todayWPS, todayWind float64) (avgWPS, maxWind float64) {
	if len(days) > forecastWindow {
		days = days[:forecastWindow]
	}
	if len(days) == 0 {
		return todayWPS, todayWind
	}
	var sum float64
	for i, d := range days {
		h := HeatScore(d.Month, d.HeatIndexF)
		r := RainScore(d.Rain24hIn, d.Tropical)
		w := WindScore(d.WindSustMPH, d.Tropical)
		sum += WPS(h, r, w)
		if i == 0 || w > maxWind {
			maxWind = w
		}
	}
	return sum / float64(len(days)), maxWind
}

func tail(xs []float64, n int) []float64 {
	if len(xs) > n {
		return xs[len(xs)-n:]
	}
	return xs
}
