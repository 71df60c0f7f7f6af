package app

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petems/whisper-dictate/internal/audio"
	"github.com/petems/whisper-dictate/internal/handoff"
)

// TestCaptureHelperProcess stands in for the capture child. It publishes
// one two-frame utterance into the mailbox named after "--" and then idles
// until interrupted.
func TestCaptureHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 3 {
		os.Exit(2)
	}
	if args[2] == "crash" {
		os.Exit(3)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	format := audio.NewFormat(testConfig().Audio)
	box, err := handoff.NewMailbox(args[1], format.FrameSize)
	if err != nil {
		os.Exit(4)
	}
	if err := box.SignalReady(); err != nil {
		os.Exit(5)
	}

	frame := audio.NewFrame(make([]byte, format.FrameBytes()))
	u := audio.NewUtterance(format, frame)
	u.Append(frame)
	if err := box.Publish(ctx, u); err != nil {
		os.Exit(6)
	}

	<-ctx.Done()
	os.Exit(0)
}

func helperProcess(dir, mode string) CaptureProcess {
	return CaptureProcess{
		Path: os.Args[0],
		Args: []string{"-test.run=TestCaptureHelperProcess", "--", dir, mode},
		Env:  append(os.Environ(), "GO_WANT_HELPER_PROCESS=1"),
	}
}

func newMailboxApp(t *testing.T, dir string) (*App, *fakeEngine, *syncBuffer) {
	t.Helper()
	cfg := testConfig()
	box, err := handoff.NewMailbox(dir, cfg.Audio.FrameSize)
	require.NoError(t, err)

	engine := &fakeEngine{fail: map[int]error{}}
	out := &syncBuffer{}
	a := New(Config{
		Handoff:     box,
		Transcriber: engine,
		Config:      cfg,
		Logger:      zerolog.Nop(),
		Output:      out,
	})
	return a, engine, out
}

func TestRunWithProcessReceivesUtterances(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("capture child is stopped with an interrupt")
	}
	dir := t.TempDir()
	a, _, out := newMailboxApp(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.RunWithProcess(ctx, helperProcess(dir, "publish")) }()

	require.Eventually(t, func() bool { return len(out.lines()) == 1 }, 10*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"3200 samples"}, out.lines())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("RunWithProcess did not return after cancel")
	}
}

func TestRunWithProcessFailsWhenChildExits(t *testing.T) {
	dir := t.TempDir()
	a, engine, _ := newMailboxApp(t, dir)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := a.RunWithProcess(ctx, helperProcess(dir, "crash"))
	require.ErrorIs(t, err, ErrCaptureExited)
	assert.Empty(t, engine.calls())
}

func TestRunWithProcessMissingExecutable(t *testing.T) {
	a, _, _ := newMailboxApp(t, t.TempDir())

	err := a.RunWithProcess(context.Background(), CaptureProcess{Path: "/nonexistent/whisper-dictate"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start capture process")
}

func TestListenSkipsCorruptPayload(t *testing.T) {
	dir := t.TempDir()
	a, engine, out := newMailboxApp(t, dir)

	producer, err := handoff.NewMailbox(dir, testConfig().Audio.FrameSize)
	require.NoError(t, err)
	require.NoError(t, producer.SignalReady())
	require.NoError(t, os.WriteFile(filepath.Join(dir, handoff.PayloadName), []byte("garbage"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Listen(ctx) }()

	format := audio.NewFormat(testConfig().Audio)
	u := audio.NewUtterance(format, audio.NewFrame(make([]byte, format.FrameBytes())))
	require.NoError(t, producer.Publish(ctx, u))

	require.Eventually(t, func() bool { return len(out.lines()) == 1 }, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"1600 samples"}, out.lines())
	assert.Len(t, engine.calls(), 1)

	cancel()
	require.NoError(t, <-done)
}
