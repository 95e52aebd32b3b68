package midi

// NoteReleaser emits note-off events for notes it knows are sounding.
type NoteReleaser interface {
	ReleaseNotes(frameOffset int, events *EventList)
}

// ResetMessages selects which messages are sent to silence a receiver.
type ResetMessages struct {
	OnNotesOff          bool
	AllNotesOff         bool
	AllSoundOff         bool
	ResetAllControllers bool
	DamperPedalOff      bool
}

// DefaultResetMessages releases sounding notes and turns damper pedal off.
var DefaultResetMessages = ResetMessages{
	OnNotesOff:     true,
	DamperPedalOff: true,
}

// HardResetMessages is used when material must become silent at once.
var HardResetMessages = ResetMessages{
	OnNotesOff:          true,
	AllNotesOff:         true,
	AllSoundOff:         true,
	ResetAllControllers: true,
	DamperPedalOff:      true,
}

// AtLeastOneEnabled returns true if any message is selected.
func (r ResetMessages) AtLeastOneEnabled() bool {
	return r.OnNotesOff || r.AllNotesOff || r.AllSoundOff || r.ResetAllControllers || r.DamperPedalOff
}

// BlockMode defines where silence is placed within the block.
type BlockMode int

const (
	// Prepend places reset messages at frame 0 and shifts events found there to frame 1.
	Prepend BlockMode = iota
	// Append places reset messages after the last event.
	Append
)

// Silence adds reset messages to the list. Sounding notes are released only
// in Append mode because they are known only after the list was filled.
// Releaser may be nil.
func Silence(l *EventList, reset ResetMessages, mode BlockMode, releaser NoteReleaser) {
	if !reset.AtLeastOneEnabled() {
		return
	}
	var frameOffset int
	switch mode {
	case Prepend:
		events := l.Events()
		for i := range events {
			if events[i].FrameOffset == 0 {
				events[i].FrameOffset = 1
			}
		}
	case Append:
		frameOffset = l.MaxFrameOffset() + 1
	}
	if reset.OnNotesOff && mode == Append && releaser != nil {
		releaser.ReleaseNotes(frameOffset, l)
	}
	for ch := uint8(0); ch < 16; ch++ {
		if reset.AllNotesOff {
			l.Add(Event{FrameOffset: frameOffset, Message: ControlChange(ch, AllNotesOff, 0)})
		}
		if reset.AllSoundOff {
			l.Add(Event{FrameOffset: frameOffset, Message: ControlChange(ch, AllSoundOff, 0)})
		}
		if reset.ResetAllControllers {
			l.Add(Event{FrameOffset: frameOffset, Message: ControlChange(ch, ResetAllControllers, 0)})
		}
		if reset.DamperPedalOff {
			l.Add(Event{FrameOffset: frameOffset, Message: ControlChange(ch, DamperPedal, 0)})
		}
	}
}
