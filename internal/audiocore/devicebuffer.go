package audiocore

// rawDeviceBuffer adapts a driver-owned interleaved byte slice (the
// callback's pOutputSample/pInputSample) to the AudioBuffer interface so
// HardwareSource/HardwareSink can reuse readSample/writeSample instead of
// duplicating per-format decode logic. It is not pool-backed: one
// instance is held per node and its fields are repointed each tick, so
// boxing it as an AudioBuffer never allocates on the realtime path (spec.md
// §8: "no allocation on the realtime path").
type rawDeviceBuffer struct {
	format AudioFormat
	frames int
	data   []byte
}

func (r *rawDeviceBuffer) Format() AudioFormat { return r.format }
func (r *rawDeviceBuffer) Frames() int         { return r.frames }
func (r *rawDeviceBuffer) Plane(int) []byte    { return r.data }

func (r *rawDeviceBuffer) MutablePlane(int) ([]byte, error) { return r.data, nil }
func (r *rawDeviceBuffer) Clone() AudioBuffer               { return r }
func (r *rawDeviceBuffer) Release()                         {}
func (r *rawDeviceBuffer) RefCount() int32                  { return 1 }
