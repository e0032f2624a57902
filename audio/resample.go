package audio

// Resample converts seg to rate using linear interpolation.
// The input is returned untouched when the rates already match.
func Resample(seg Segment, rate int) Segment {
	if rate <= 0 || seg.SampleRate <= 0 || seg.SampleRate == rate || len(seg.Samples) == 0 {
		return seg
	}

	in := seg.Samples
	n := int(int64(len(in)) * int64(rate) / int64(seg.SampleRate))
	if n == 0 {
		return Segment{SampleRate: rate}
	}

	out := make([]int16, n)
	ratio := float64(seg.SampleRate) / float64(rate)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(idx)
		s0 := float64(in[idx])
		s1 := float64(in[idx+1])
		out[i] = int16(s0 + frac*(s1-s0))
	}
	return Segment{Samples: out, SampleRate: rate}
}
