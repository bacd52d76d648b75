package game

// scriptedRand feeds predetermined values so outcomes are reproducible.
type scriptedRand struct {
	ints   []int
	floats []float64
	ip, fp int
}

func (s *scriptedRand) Intn(n int) int {
	v := s.ints[s.ip%len(s.ints)]
	s.ip++
	return v % n
}

func (s *scriptedRand) Float64() float64 {
	v := s.floats[s.fp%len(s.floats)]
	s.fp++
	return v
}
