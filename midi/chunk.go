package midi

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// SequenceEvent is an event of a sequence positioned in pulses.
type SequenceEvent struct {
	Pulse    int64
	Message  Message
	Selected bool
	Muted    bool
	// QuantizationShift is positive if the event was shifted to the right.
	QuantizationShift int
}

// TimeInfo is the tempo and time signature a sequence was recorded in.
type TimeInfo struct {
	Tempo       float64
	Numerator   int
	Denominator int
}

// Sequence is MIDI material in pulses per quarter note.
type Sequence struct {
	PPQ    int
	Events []SequenceEvent
	// TimeInfo is nil if the sequence follows project tempo.
	TimeInfo *TimeInfo
}

// PulseCount returns position of the last event.
func (s *Sequence) PulseCount() int64 {
	if len(s.Events) == 0 {
		return 0
	}
	return s.Events[len(s.Events)-1].Pulse
}

// LengthAt returns length of the sequence when played with tempo in a time
// signature with provided denominator.
func (s *Sequence) LengthAt(bpm float64, timeSigDenominator int) time.Duration {
	if s.PPQ == 0 || bpm <= 0 {
		return 0
	}
	quarterNotes := float64(s.PulseCount()) / float64(s.PPQ)
	// 1 beat is a quarter note in x/4, two beats in x/8.
	beats := quarterNotes * float64(timeSigDenominator) / 4
	return time.Duration(beats * 60 / bpm * float64(time.Second))
}

// PredefinedLength returns length using sequence's own time info.
func (s *Sequence) PredefinedLength() (time.Duration, bool) {
	if s.TimeInfo == nil {
		return 0, false
	}
	return s.LengthAt(s.TimeInfo.Tempo, s.TimeInfo.Denominator), true
}

// ParseChunk parses REAPER MIDI source chunk. Unknown lines are skipped.
//
// Example:
//
//	HASDATA 1 960 QN
//	e 0 91 30 31
//	em 240 81 37 00 -90
//	IGNTEMPO 1 120 4 4
func ParseChunk(chunk string) (*Sequence, error) {
	s := Sequence{}
	var last int64
	scanner := bufio.NewScanner(strings.NewReader(chunk))
	for lineNum := 1; scanner.Scan(); lineNum++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		var err error
		switch fields[0] {
		case "e", "E", "em", "Em":
			var e SequenceEvent
			if e, err = parseEvent(fields, last); err == nil {
				last = e.Pulse
				s.Events = append(s.Events, e)
			}
		case "HASDATA":
			s.PPQ, err = parseHasData(fields)
		case "IGNTEMPO":
			s.TimeInfo, err = parseIgnTempo(fields)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNum)
		}
	}
	return &s, scanner.Err()
}

func parseEvent(fields []string, last int64) (SequenceEvent, error) {
	if len(fields) < 5 {
		return SequenceEvent{}, errors.New("incomplete event")
	}
	diff, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return SequenceEvent{}, errors.Wrap(err, "pulse diff")
	}
	e := SequenceEvent{
		Pulse:    last + diff,
		Selected: fields[0][0] == 'e',
		Muted:    len(fields[0]) > 1,
	}
	for i := range e.Message {
		b, err := strconv.ParseUint(fields[2+i], 16, 8)
		if err != nil {
			return SequenceEvent{}, errors.Wrapf(err, "byte %d", i+1)
		}
		e.Message[i] = byte(b)
	}
	if len(fields) > 5 {
		negativeShift, err := strconv.Atoi(fields[5])
		if err != nil {
			return SequenceEvent{}, errors.Wrap(err, "quantization shift")
		}
		e.QuantizationShift = -negativeShift
	}
	return e, nil
}

func parseHasData(fields []string) (int, error) {
	if len(fields) < 4 {
		return 0, errors.New("incomplete HASDATA")
	}
	if fields[3] != "QN" {
		return 0, errors.Errorf("unsupported PPQ unit %q", fields[3])
	}
	ppq, err := strconv.Atoi(fields[2])
	return ppq, errors.Wrap(err, "PPQ")
}

func parseIgnTempo(fields []string) (*TimeInfo, error) {
	if len(fields) < 2 {
		return nil, errors.New("incomplete IGNTEMPO")
	}
	if fields[1] != "1" {
		return nil, nil
	}
	if len(fields) < 5 {
		return nil, errors.New("incomplete IGNTEMPO")
	}
	tempo, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return nil, errors.Wrap(err, "tempo")
	}
	if tempo <= 0 {
		return nil, errors.Errorf("invalid tempo %v", tempo)
	}
	num, err := strconv.Atoi(fields[3])
	if err != nil {
		return nil, errors.Wrap(err, "numerator")
	}
	den, err := strconv.Atoi(fields[4])
	if err != nil {
		return nil, errors.Wrap(err, "denominator")
	}
	return &TimeInfo{Tempo: tempo, Numerator: num, Denominator: den}, nil
}

// Format returns sequence as REAPER MIDI source chunk.
func (s *Sequence) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "HASDATA 1 %d QN\n", s.PPQ)
	var last int64
	for _, e := range s.Events {
		prefix := "E"
		if e.Selected {
			prefix = "e"
		}
		if e.Muted {
			prefix += "m"
		}
		fmt.Fprintf(&b, "%s %d %02x %02x %02x %d\n", prefix, e.Pulse-last, e.Message[0], e.Message[1], e.Message[2], -e.QuantizationShift)
		last = e.Pulse
	}
	if s.TimeInfo != nil {
		fmt.Fprintf(&b, "IGNTEMPO 1 %s %d %d\n", strconv.FormatFloat(s.TimeInfo.Tempo, 'f', -1, 64), s.TimeInfo.Numerator, s.TimeInfo.Denominator)
	}
	return b.String()
}
