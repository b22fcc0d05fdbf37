package traffic

import "math"

// ScanResult is one car's per-tick view of its lane: the nearest registered
// neighbor ahead and behind along the lane axis. Absent neighbors are nil
// with distance +Inf. Produced once per tick, read-only afterwards.
type ScanResult struct {
	Ahead      *Car
	AheadDist  float64
	Behind     *Car
	BehindDist float64
}

// ScanLane finds car's nearest axis-ahead and axis-behind neighbors among
// lane's members, bounded by the car's lookahead/lookbehind distances.
//
// "Ahead" is defined by the lane axis, not the car's travel direction; the
// speed controller accounts for direction separately. O(lane population);
// per-lane populations are small and bounded by corridor length over the
// minimum spacing, so no spatial index is needed here.
func ScanLane(lane *Lane, car *Car) ScanResult {
	res := ScanResult{AheadDist: math.Inf(1), BehindDist: math.Inf(1)}
	if lane == nil || car == nil {
		return res
	}
	axis := lane.Axis()
	for _, m := range lane.members {
		if m == car {
			continue
		}
		off := m.pos.Sub(car.pos).Dot(axis)
		switch {
		case off >= 0:
			if off <= car.params.Lookahead && off < res.AheadDist {
				res.Ahead = m
				res.AheadDist = off
			}
		default:
			if -off <= car.params.Lookbehind && -off < res.BehindDist {
				res.Behind = m
				res.BehindDist = -off
			}
		}
	}
	return res
}
