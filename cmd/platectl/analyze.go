package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"plate-reader/internal/model"
	"plate-reader/internal/service"
)

// pointValue is an "X,Y" pixel coordinate flag.
type pointValue struct {
	p   *model.Point
	set bool
}

var _ pflag.Value = (*pointValue)(nil)

func newPointValue(p *model.Point) *pointValue {
	return &pointValue{p: p}
}

func (v *pointValue) String() string {
	if v.p == nil || !v.set {
		return ""
	}
	return strconv.FormatFloat(v.p.X, 'g', -1, 64) + "," + strconv.FormatFloat(v.p.Y, 'g', -1, 64)
}

func (v *pointValue) Set(s string) error {
	p, err := parsePoint(s)
	if err != nil {
		return err
	}
	*v.p = p
	v.set = true
	return nil
}

func (v *pointValue) Type() string {
	return "x,y"
}

func parsePoint(s string) (model.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return model.Point{}, fmt.Errorf("point %q must look like X,Y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return model.Point{}, fmt.Errorf("point %q: bad X: %v", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return model.Point{}, fmt.Errorf("point %q: bad Y: %v", s, err)
	}
	if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
		return model.Point{}, fmt.Errorf("point %q must be finite", s)
	}
	return model.Point{X: x, Y: y}, nil
}

func NewAnalyzeCommand() *cobra.Command {
	var (
		imagePath string
		userID    string
		compact   bool
		cal       model.Calibration
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Score every well of a plate photo",
		Long: `Score every well of a plate photo.

Coordinates are pixels in the photo after EXIF rotation, origin at the top
left. Output is one JSON document with 48 wells in A1, A2, ..., H6 order.`,
		Example: `  platectl analyze --image plate.jpg --a1 112,96 --h6 604,881 --min 40,40 --max 660,930`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(imagePath)
			if err != nil {
				return fmt.Errorf("failed to open image: %v", err)
			}
			defer f.Close()

			out, err := service.NewAnalysisService(nil).AnalyzeImage(userID, f, cal)
			if err != nil {
				return fmt.Errorf("failed to analyze %s: %w", imagePath, err)
			}
			logrus.WithFields(logrus.Fields{
				"image":  imagePath,
				"wells":  len(out.Wells),
				"radius": out.Radius,
			}).Debug("analysis complete")

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(out)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&imagePath, "image", "i", "", "plate photo (png, jpeg or gif)")
	f.StringVar(&userID, "user", "cli", "user id recorded in the output")
	f.BoolVar(&compact, "compact", false, "print JSON on a single line")
	f.Var(newPointValue(&cal.A1), "a1", "center of well A1 as X,Y")
	f.Var(newPointValue(&cal.H6), "h6", "center of well H6 as X,Y")
	f.Var(newPointValue(&cal.MinRef), "min", "empty (zero) reference spot as X,Y")
	f.Var(newPointValue(&cal.MaxRef), "max", "saturated (full) reference spot as X,Y")
	for _, name := range []string{"image", "a1", "h6", "min", "max"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}
