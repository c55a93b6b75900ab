package sensor

// frameBrightness reduces one YUYV frame to its mean luma in the 0-255 range.
// Every even-offset byte of the packed layout is a full-resolution luma
// sample; the chroma bytes in between are skipped. The divisor is the nominal
// pixel count, so a frame with fewer valid bytes than expected under-counts
// the true average instead of failing.
func frameBrightness(buf []byte, bytesUsed, width, height uint32) float64 {
	n := int(bytesUsed)
	if n > len(buf) {
		n = len(buf)
	}

	var brightness float64
	for i := 0; i < n; i += 2 {
		brightness += float64(buf[i])
	}
	return brightness / float64(width*height)
}

// aggregate folds the per-frame brightness readings into a single normalized
// value in [0,1]. With more than two samples the single lowest and single
// highest readings are dropped to damp out an anomalous frame. A total of
// zero means every frame either failed to dequeue or was pure black; trimming
// is skipped then so the degenerate result is not amplified by a smaller
// denominator.
func aggregate(samples []float64) float64 {
	lowest, highest := 0, 0
	total := 0.0
	for i, v := range samples {
		if v < samples[lowest] {
			lowest = i
		} else if v > samples[highest] {
			highest = i
		}
		total += v
	}

	count := len(samples)
	if total != 0.0 && count > 2 {
		total -= samples[highest] + samples[lowest]
		count -= 2
	}
	total /= 255
	return total / float64(count)
}
