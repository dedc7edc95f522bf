package log

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

var (
	sampleInt      = 3
	sampleBytes    = []byte("123")
	sampleList     = []int64{10, 0, -10}
	sampleDuration = time.Second
	sampleTime     = time.Unix(12345678, 0)

	errSample = errors.New("some error")
)

func doLogs() {
	Infof("recorded %d votes for ballot %x", sampleInt, sampleBytes)
	Debugw("group public key published", "groupId", "42", "size", 128)
	Errorf("cannot submit ballot to contract: %v", errSample)
	Warnw("various types",
		"list", sampleList,
		"duration", sampleDuration,
		"time", sampleTime,
	)
	Error(errSample)
}

func TestCheckInvalidChars(t *testing.T) {
	t.Cleanup(func() { panicOnInvalidChars = false })

	v := []byte{'h', 'e', 'l', 'l', 'o', 0xff, 'w', 'o', 'r', 'l', 'd'}
	panicOnInvalidChars = false
	Init("debug", "stderr", nil)
	Debugf("%s", v)
	// should not panic since env var is false. if it panics, test will fail

	// now enable panic and try again: should recover() and never reach t.Errorf()
	panicOnInvalidChars = true
	Init("debug", "stderr", nil)
	defer func() { recover() }()
	Debugf("%s", v)
	t.Errorf("Debugf(%s) should have panicked because of invalid char", v)
}

func TestLevelFilter(t *testing.T) {
	c := qt.New(t)
	buf := new(bytes.Buffer)
	logTestWriter = buf
	t.Cleanup(func() {
		logTestWriter = nil
		Init(LogLevelError, "stderr", nil)
	})

	Init(LogLevelWarn, logTestWriterName, nil)
	c.Assert(Level(), qt.Equals, LogLevelWarn)
	buf.Reset()

	Infow("hidden", "key", "value")
	c.Assert(buf.Len(), qt.Equals, 0)

	Warnw("visible", "groupId", "g1")
	c.Assert(strings.Contains(buf.String(), `"groupId":"g1"`), qt.IsTrue)

	Errorw(errSample, "failed")
	c.Assert(strings.Contains(buf.String(), errSample.Error()), qt.IsTrue)
}

func TestErrorOutput(t *testing.T) {
	c := qt.New(t)
	errBuf := new(bytes.Buffer)
	logTestWriter = io.Discard
	t.Cleanup(func() {
		logTestWriter = nil
		Init(LogLevelError, "stderr", nil)
	})

	Init(LogLevelDebug, logTestWriterName, errBuf)
	errBuf.Reset()
	Infow("not copied")
	c.Assert(errBuf.Len(), qt.Equals, 0)
	Warnw("copied")
	c.Assert(strings.Contains(errBuf.String(), "copied"), qt.IsTrue)
}

func BenchmarkLogger(b *testing.B) {
	logTestWriter = io.Discard // to not grow a buffer
	Init("debug", logTestWriterName, nil)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		doLogs()
	}
}
