package record

// Captured returns number of captured frames and capacity of capture memory.
func (r *Recorder) Captured() (frames, capacity int) {
	if r.recording == nil {
		return 0, 0
	}
	return r.recording.next, r.recording.capture.FrameCount()
}
