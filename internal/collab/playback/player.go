// Package playback plays local mp3 media through the machine's speaker.
package playback

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// Player is a PlaybackTrigger over files under mediaDir. One stream plays
// at a time; starting a new one stops the current.
type Player struct {
	mediaDir string

	mu      sync.Mutex
	inited  bool
	current beep.StreamSeekCloser
}

func NewPlayer(mediaDir string) *Player {
	return &Player{mediaDir: mediaDir}
}

func (p *Player) Play(ctx context.Context, resourceRef string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := p.resolve(resourceRef)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open media: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode mp3: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.inited {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			streamer.Close()
			return fmt.Errorf("init speaker: %w", err)
		}
		p.inited = true
	}

	if p.current != nil {
		speaker.Clear()
		p.current.Close()
	}
	p.current = streamer

	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		log.Debug("playback finished", "media", resourceRef)
	})))
	return nil
}

func (p *Player) Stop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return nil
	}
	speaker.Clear()
	p.current.Close()
	p.current = nil
	return nil
}

// resolve confines refs to the media directory; list files carry plain
// filenames, not paths.
func (p *Player) resolve(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("empty media ref")
	}
	clean := filepath.Clean(ref)
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("media ref %q escapes media dir", ref)
	}
	return filepath.Join(p.mediaDir, clean), nil
}
