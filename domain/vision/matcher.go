package vision

// maskedSqDiff slides tmpl over crop and returns the minimum masked
// squared-difference sum and its location. Pixels whose mask element is
// zero are excluded from the sum. Both planes must have the same channel
// count; the mask is single channel at template dimensions.
func maskedSqDiff(crop, tmpl, mask Plane) (minVal float64, minX, minY int) {
	c := tmpl.C
	spanY := crop.H - tmpl.H
	spanX := crop.W - tmpl.W
	first := true
	for y := 0; y <= spanY; y++ {
		for x := 0; x <= spanX; x++ {
			var sum int64
			for ty := 0; ty < tmpl.H; ty++ {
				cropRow := ((y+ty)*crop.W + x) * c
				tmplRow := ty * tmpl.W * c
				maskRow := ty * tmpl.W
				for tx := 0; tx < tmpl.W; tx++ {
					if mask.Pix[maskRow+tx] == 0 {
						continue
					}
					co := cropRow + tx*c
					to := tmplRow + tx*c
					for ch := 0; ch < c; ch++ {
						d := int64(crop.Pix[co+ch]) - int64(tmpl.Pix[to+ch])
						sum += d * d
					}
				}
			}
			if first || float64(sum) < minVal {
				minVal = float64(sum)
				minX, minY = x, y
				first = false
			}
		}
	}
	return minVal, minX, minY
}
