package progress

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	reFrame   = regexp.MustCompile(`frame=\s*(\d+)`)
	reOutTime = regexp.MustCompile(`out_time=\s*([0-9:.]+)`)
)

// EncoderLog translates ffmpeg's textual progress output (the key=value lines
// emitted by -progress, or the classic "frame= 123 fps= 30 ..." stderr lines)
// into tracker updates mapped onto a sub-range of the overall percentage.
//
// Writes are throttled: an update is dropped unless at least minInterval has
// passed AND the mapped percent moved by at least minPercentStep since the
// last write. This keeps a 30fps hour-long encode from hammering the tracker.
type EncoderLog struct {
	tracker     *Tracker
	taskID      string
	totalFrames int
	spanLo      int
	spanHi      int
	message     string

	minInterval    time.Duration
	minPercentStep int

	mu          sync.Mutex
	buf         strings.Builder
	lastWrite   time.Time
	lastPercent int
}

// NewEncoderLog creates an adapter reporting into [spanLo, spanHi] of the
// task's percentage. totalFrames must be the expected frame count of the
// encode; message is the phase label shown alongside the percentage.
func NewEncoderLog(tracker *Tracker, taskID string, totalFrames, spanLo, spanHi int, message string) *EncoderLog {
	if spanHi < spanLo {
		spanHi = spanLo
	}
	return &EncoderLog{
		tracker:        tracker,
		taskID:         taskID,
		totalFrames:    totalFrames,
		spanLo:         spanLo,
		spanHi:         spanHi,
		message:        message,
		minInterval:    500 * time.Millisecond,
		minPercentStep: 1,
		lastPercent:    -1,
	}
}

// Write implements io.Writer so the adapter can be attached directly to the
// encoder's progress pipe. Partial lines are buffered across writes.
func (e *EncoderLog) Write(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.buf.Write(p)
	data := e.buf.String()

	idx := strings.LastIndexByte(data, '\n')
	if idx < 0 {
		return len(p), nil
	}

	complete := data[:idx]
	e.buf.Reset()
	e.buf.WriteString(data[idx+1:])

	for _, line := range strings.Split(complete, "\n") {
		e.handleLine(strings.TrimSpace(line))
	}
	return len(p), nil
}

func (e *EncoderLog) handleLine(line string) {
	if line == "" || e.totalFrames <= 0 {
		return
	}

	m := reFrame.FindStringSubmatch(line)
	if m == nil {
		return
	}
	frame, err := strconv.Atoi(m[1])
	if err != nil {
		return
	}

	ratio := float64(frame) / float64(e.totalFrames)
	if ratio > 1.0 {
		ratio = 1.0
	}
	percent := e.spanLo + int(ratio*float64(e.spanHi-e.spanLo))

	now := time.Now()
	if percent-e.lastPercent < e.minPercentStep {
		return
	}
	if now.Sub(e.lastWrite) < e.minInterval && percent < e.spanHi {
		return
	}

	msg := e.message
	if t := reOutTime.FindStringSubmatch(line); t != nil {
		msg = fmt.Sprintf("%s (%s)", e.message, t[1])
	}

	e.tracker.Set(e.taskID, percent, msg, frame, e.totalFrames)
	e.lastWrite = now
	e.lastPercent = percent
}
