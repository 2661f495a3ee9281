package filter

// Box is an axis-aligned rectangle, (X1,Y1) top-left and (X2,Y2)
// bottom-right in whatever coordinate space the detector reports.
type Box struct {
	X1, Y1, X2, Y2 float64
}

// IOU returns intersection-over-union of two boxes. Negative intersection
// extents count as zero overlap and a zero union yields 0, never a division
// error.
func IOU(a, b Box) float64 {
	innerX1 := max(a.X1, b.X1)
	innerY1 := max(a.Y1, b.Y1)
	innerX2 := min(a.X2, b.X2)
	innerY2 := min(a.Y2, b.Y2)

	innerArea := max(innerX2-innerX1, 0) * max(innerY2-innerY1, 0)
	areaA := (a.X2 - a.X1) * (a.Y2 - a.Y1)
	areaB := (b.X2 - b.X1) * (b.Y2 - b.Y1)

	union := areaA + areaB - innerArea
	if union == 0 {
		return 0
	}
	return innerArea / union
}

// boxFromCorners builds a Box from a 4-number [x1,y1,x2,y2] slice.
func boxFromCorners(v []float64) Box {
	return Box{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}
}

// boxFromPoints builds a Box from a pair of [x,y] points.
func boxFromPoints(pts [][]float64) Box {
	return Box{X1: pts[0][0], Y1: pts[0][1], X2: pts[1][0], Y2: pts[1][1]}
}
