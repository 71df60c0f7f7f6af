package tray

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"

	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/petems/whisper-dictate/internal/logging"
)

type status string

const (
	statusCalibrating  status = "calibrating"
	statusListening    status = "listening"
	statusRecording    status = "recording"
	statusTranscribing status = "transcribing"
	statusError        status = "error"
)

// UI shows the dictation state in the system tray. Quitting from the menu
// calls the stop function handed to New.
type UI struct {
	stop    context.CancelFunc
	version string
	commit  string
	log     zerolog.Logger

	mu      sync.Mutex
	ready   bool
	current status

	// Menu items
	mStatus *systray.MenuItem
}

// Status update methods for the app to call
func (u *UI) SetCalibrating() {
	u.updateStatus(statusCalibrating)
}

func (u *UI) SetListening() {
	u.updateStatus(statusListening)
}

func (u *UI) SetRecording() {
	u.updateStatus(statusRecording)
}

func (u *UI) SetTranscribing() {
	u.updateStatus(statusTranscribing)
}

func (u *UI) SetError() {
	u.updateStatus(statusError)
}

func New(stop context.CancelFunc, version, commit string, log zerolog.Logger) *UI {
	return &UI{
		stop:    stop,
		version: version,
		commit:  commit,
		log:     log,
		current: statusCalibrating,
	}
}

// Run blocks on the tray event loop until Quit is chosen or ctx is done.
// It must be called from the main goroutine.
func (u *UI) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	systray.SetTooltip("Local voice dictation")

	u.mu.Lock()
	u.mStatus = systray.AddMenuItem("", "")
	u.mStatus.Disable()
	u.ready = true
	u.render()
	u.mu.Unlock()
	systray.AddSeparator()

	mLogs := systray.AddMenuItem("Open Logs", "View application logs")
	mAbout := systray.AddMenuItem("About", "About Whisper Dictate")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	// Event loop
	go u.handleEvents(mLogs, mAbout, mQuit)
}

func (u *UI) handleEvents(mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-mLogs.ClickedCh:
			u.openLogs()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			u.log.Info().Msg("Quit requested from tray")
			u.stop()
			systray.Quit()
			return
		}
	}
}

func (u *UI) openLogs() {
	path := logging.Path()
	if err := exec.Command(opener(), path).Start(); err != nil {
		u.log.Error().Err(err).Str("path", path).Msg("Failed to open log file")
	}
}

func (u *UI) showAbout() {
	u.log.Info().Str("version", u.version).Str("commit", u.commit).Msg("Whisper Dictate, local voice dictation")
}

func (u *UI) onExit() {
	u.stop()
}

// updateStatus records s and shows it once the tray is up. Updates that
// arrive before onReady are applied there.
func (u *UI) updateStatus(s status) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.current = s
	if u.ready {
		u.render()
	}
}

// render sets the tray title with microphone emoji and status indicator.
// Callers hold u.mu.
func (u *UI) render() {
	systray.SetTitle(fmt.Sprintf("🎤 %s", emojiForStatus(u.current)))
	u.mStatus.SetTitle(labelForStatus(u.current))
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(s status) string {
	switch s {
	case statusCalibrating:
		return "🔵" // Blue - measuring room noise
	case statusRecording:
		return "🔴" // Red - speech in progress
	case statusTranscribing:
		return "🟡" // Yellow - processing transcription
	case statusListening:
		return "🟢" // Green - waiting for speech
	case statusError:
		return "⚪️" // White - last utterance failed
	default:
		return "🟢"
	}
}

func labelForStatus(s status) string {
	switch s {
	case statusCalibrating:
		return "Detecting noise level..."
	case statusRecording:
		return "Recording"
	case statusTranscribing:
		return "Transcribing"
	case statusError:
		return "Last transcription failed"
	default:
		return "Listening"
	}
}

func opener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "windows":
		return "notepad"
	default:
		return "xdg-open"
	}
}
