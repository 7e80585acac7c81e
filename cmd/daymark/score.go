// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/daymark-app/daymark/internal/county"
	"github.com/daymark-app/daymark/internal/scoring"
	"github.com/daymark-app/daymark/internal/signal"
)

type scoreOutput struct {
	County string `json:"county,omitempty"`
	scoring.Assessment
	Level  signal.Level  `json:"level"`
	Driver signal.Hazard `json:"driver"`
}

func newScoreCmd() *cobra.Command {
	var (
		in         scoring.Inputs
		countyName string
		das        float64
		cai        []float64
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute an assessment offline from observation flags",
		Example: `  daymark score --county Duval --heat 112 --rain 2.5 --wind 40
  daymark score --density 1200 --heat 118 --tropical --history 40,45,52`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Month < 1 || in.Month > 12 {
				return errors.New("--month must be between 1 and 12")
			}
			if countyName != "" {
				reg, err := county.Default()
				if err != nil {
					return err
				}
				c, err := reg.Lookup(countyName)
				if err != nil {
					return err
				}
				countyName = c.Name
				if !cmd.Flags().Changed("density") {
					in.PopDensity = c.Density
				}
			}

			sc := scoring.Context{Today: in, CAIHistory: cai}
			if cmd.Flags().Changed("das") {
				sc.DAS = &das
			}
			a := scoring.Evaluate(sc)
			out := scoreOutput{
				County:     countyName,
				Assessment: a,
				Level:      signal.LevelForState(a.State),
				Driver:     signal.DriverOf(a),
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	f := cmd.Flags()
	f.StringVar(&countyName, "county", "", "Florida county; supplies population density")
	f.IntVar(&in.Month, "month", int(time.Now().Month()), "month of year (1-12)")
	f.Float64Var(&in.HeatIndexF, "heat", 92, "heat index in °F")
	f.Float64Var(&in.Rain24hIn, "rain", 0.2, "24h rainfall in inches")
	f.Float64Var(&in.WindSustMPH, "wind", 18, "sustained wind in mph")
	f.BoolVar(&in.Tropical, "tropical", false, "tropical system active")
	f.Float64Var(&in.PopDensity, "density", 500, "population density (people/sq mi)")
	f.Float64Var(&das, "das", scoring.DefaultDAS, "demand amplification score")
	f.Float64SliceVar(&cai, "history", nil, "prior daily CAI values, oldest first")
	return cmd
}
