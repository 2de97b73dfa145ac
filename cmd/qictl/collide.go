package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/qimem/collide"
)

func init() {
	rootCmd.AddCommand(newCollideCmd())
}

func newCollideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collide <shapeA> <shapeB>",
		Short: "Test two convex shapes for intersection",
		Long: `The collide command runs GJK (and the penetration search when the
shapes overlap) on two shapes given as:

  circle:x,y,r
  ellipse:x,y,rx,ry
  box:x,y,hx,hy          center and half extents
  poly:x1,y1,x2,y2,...   convex, counter-clockwise

Example:
  qictl collide box:0,0,1,1 box:1.5,0,1,1
  qictl collide circle:0,0,1 ellipse:2,0,1.5,0.5 --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollide(args)
		},
	}
	return cmd
}

// CollideReport is the JSON form of the collide command.
type CollideReport struct {
	Intersects   bool       `json:"intersects"`
	Depth        float32    `json:"depth"`
	Normal       [2]float32 `json:"normal"`
	ClosestPoint [2]float32 `json:"closest_point"`
	SimplexSize  int        `json:"simplex_size"`
}

func runCollide(args []string) error {
	a, err := parseShape(args[0])
	if err != nil {
		return err
	}
	b, err := parseShape(args[1])
	if err != nil {
		return err
	}

	res := collide.TestIntersection(a, b)
	report := CollideReport{
		Intersects:   res.Intersects,
		Depth:        res.Depth,
		Normal:       [2]float32{res.Normal.X, res.Normal.Y},
		ClosestPoint: [2]float32{res.ClosestPoint.X, res.ClosestPoint.Y},
		SimplexSize:  res.Simplex.N,
	}
	if jsonOut {
		return printJSON(report)
	}

	if !res.Intersects {
		printInfo("separated\n")
		return nil
	}
	printInfo("intersecting\n")
	printInfo("  depth:  %.4f\n", res.Depth)
	printInfo("  normal: (%.4f, %.4f)\n", res.Normal.X, res.Normal.Y)
	printInfo("  point:  (%.4f, %.4f)\n", res.ClosestPoint.X, res.ClosestPoint.Y)
	printVerbose("  simplex: %d points\n", res.Simplex.N)
	return nil
}

func parseShape(s string) (collide.Shape, error) {
	kind, rest, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("shape %q: expected kind:numbers", s)
	}
	var nums []float32
	for _, f := range strings.Split(rest, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return nil, fmt.Errorf("shape %q: %w", s, err)
		}
		nums = append(nums, float32(v))
	}

	want := map[string]int{"circle": 3, "ellipse": 4, "box": 4}
	if n, known := want[kind]; known && len(nums) != n {
		return nil, fmt.Errorf("shape %q: %s takes %d numbers, got %d", s, kind, n, len(nums))
	}

	switch kind {
	case "circle":
		return collide.Circle{C: collide.V(nums[0], nums[1]), R: nums[2]}, nil
	case "ellipse":
		return collide.Ellipse{C: collide.V(nums[0], nums[1]), RX: nums[2], RY: nums[3]}, nil
	case "box":
		return collide.NewBox(collide.V(nums[0], nums[1]), collide.V(nums[2], nums[3])), nil
	case "poly":
		if len(nums) < 6 || len(nums)%2 != 0 {
			return nil, fmt.Errorf("shape %q: poly needs at least three x,y pairs", s)
		}
		var p collide.Polygon
		for i := 0; i < len(nums); i += 2 {
			p.Points = append(p.Points, collide.V(nums[i], nums[i+1]))
		}
		return p, nil
	}
	return nil, fmt.Errorf("shape %q: unknown kind %q", s, kind)
}
