package audio

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"
	"github.com/sirupsen/logrus"

	"that-night/internal/game"
	"that-night/internal/logger"
)

// WaveType defines oscillator wave shapes
type WaveType int

const (
	WaveSine WaveType = iota
	WaveSquare
	WaveSaw
	WaveTriangle
	WaveNoise
)

// tone is a synthesized stand-in for a cue with no sample file.
type tone struct {
	wave     WaveType
	freq     float64
	duration time.Duration
	attack   time.Duration
	release  time.Duration
}

var tones = [game.SoundCount]tone{
	game.SoundIntro:         {WaveTriangle, 220, 900 * time.Millisecond, 200 * time.Millisecond, 500 * time.Millisecond},
	game.SoundAmbient:       {WaveSine, 55, 4 * time.Second, time.Second, time.Second},
	game.SoundUiSwitch:      {WaveSquare, 1200, 40 * time.Millisecond, 2 * time.Millisecond, 20 * time.Millisecond},
	game.SoundLowFood:       {WaveSquare, 330, 300 * time.Millisecond, 10 * time.Millisecond, 150 * time.Millisecond},
	game.SoundUseAmmo:       {WaveNoise, 0, 80 * time.Millisecond, time.Millisecond, 60 * time.Millisecond},
	game.SoundUseBomb:       {WaveSaw, 160, 120 * time.Millisecond, 5 * time.Millisecond, 80 * time.Millisecond},
	game.SoundUseTurret:     {WaveSquare, 440, 150 * time.Millisecond, 5 * time.Millisecond, 100 * time.Millisecond},
	game.SoundUseEmp:        {WaveSine, 880, 400 * time.Millisecond, 20 * time.Millisecond, 300 * time.Millisecond},
	game.SoundPickChest:     {WaveSine, 988, 180 * time.Millisecond, 5 * time.Millisecond, 120 * time.Millisecond},
	game.SoundBombExplosion: {WaveNoise, 0, 600 * time.Millisecond, 2 * time.Millisecond, 500 * time.Millisecond},
	game.SoundBombTick:      {WaveSquare, 2000, 20 * time.Millisecond, time.Millisecond, 10 * time.Millisecond},
	game.SoundTurretShoot:   {WaveNoise, 0, 50 * time.Millisecond, time.Millisecond, 40 * time.Millisecond},
	game.SoundZombieHit:     {WaveSaw, 120, 90 * time.Millisecond, 2 * time.Millisecond, 70 * time.Millisecond},
	game.SoundZombieDeath:   {WaveSaw, 80, 350 * time.Millisecond, 5 * time.Millisecond, 300 * time.Millisecond},
	game.SoundBossAppear:    {WaveSaw, 60, 1500 * time.Millisecond, 300 * time.Millisecond, 800 * time.Millisecond},
	game.SoundUpgrade:       {WaveTriangle, 660, 500 * time.Millisecond, 10 * time.Millisecond, 350 * time.Millisecond},
	game.SoundDefeat:        {WaveTriangle, 110, 1200 * time.Millisecond, 50 * time.Millisecond, 1000 * time.Millisecond},
	game.SoundWalking:       {WaveNoise, 0, 30 * time.Millisecond, time.Millisecond, 25 * time.Millisecond},
	game.SoundRunning:       {WaveNoise, 0, 20 * time.Millisecond, time.Millisecond, 15 * time.Millisecond},
}

// Bank holds one buffered clip per cue.
type Bank struct {
	format beep.Format
	clips  [game.SoundCount]*beep.Buffer
}

// NewBank synthesizes every cue at sr, then replaces those with a matching
// <cue>.ogg or <cue>.wav file in dir. An empty dir skips the file lookup.
func NewBank(sr beep.SampleRate, dir string) (*Bank, error) {
	b := &Bank{format: beep.Format{SampleRate: sr, NumChannels: 2, Precision: 2}}

	for s := game.Sound(0); s < game.SoundCount; s++ {
		clip, err := b.synthesize(tones[s])
		if err != nil {
			return nil, fmt.Errorf("synthesizing %s: %w", s, err)
		}
		b.clips[s] = clip
	}

	if dir == "" {
		return b, nil
	}

	loaded := 0
	for s := game.Sound(0); s < game.SoundCount; s++ {
		clip, err := b.loadFile(dir, s.String())
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			logger.Log.WithError(err).WithField("cue", s.String()).Warn("cue sample unreadable, using synthesized tone")
			continue
		}
		b.clips[s] = clip
		loaded++
	}
	logger.Log.WithFields(logrus.Fields{"dir": dir, "loaded": loaded}).Info("cue samples loaded")
	return b, nil
}

// Format returns the sample format of every clip.
func (b *Bank) Format() beep.Format {
	return b.format
}

// Streamer returns a fresh streamer over the clip for s at gain.
func (b *Bank) Streamer(s game.Sound, gain float64) beep.StreamSeeker {
	clip := b.clips[s]
	return &gained{StreamSeeker: clip.Streamer(0, clip.Len()), gain: gain}
}

// Len returns the clip length of s in samples.
func (b *Bank) Len(s game.Sound) int {
	return b.clips[s].Len()
}

func (b *Bank) synthesize(t tone) (*beep.Buffer, error) {
	sr := b.format.SampleRate
	n := sr.N(t.duration)

	var src beep.Streamer
	var err error
	switch t.wave {
	case WaveSine:
		src, err = generators.SineTone(sr, t.freq)
	case WaveSquare:
		src, err = generators.SquareTone(sr, t.freq)
	case WaveSaw:
		src, err = generators.SawtoothTone(sr, t.freq)
	case WaveTriangle:
		src, err = generators.TriangleTone(sr, t.freq)
	case WaveNoise:
		src = noise(rand.New(rand.NewSource(int64(n))))
	}
	if err != nil {
		return nil, err
	}

	shaped := NewEnvelope(beep.Take(n, src), n, sr.N(t.attack), sr.N(t.release))
	buf := beep.NewBuffer(b.format)
	buf.Append(shaped)
	return buf, nil
}

func (b *Bank) loadFile(dir, name string) (*beep.Buffer, error) {
	var (
		stream beep.StreamSeekCloser
		format beep.Format
		err    error
	)

	if f, openErr := os.Open(filepath.Join(dir, name+".ogg")); openErr == nil {
		if stream, format, err = vorbis.Decode(f); err != nil {
			f.Close()
		}
	} else if f, openErr := os.Open(filepath.Join(dir, name+".wav")); openErr == nil {
		if stream, format, err = wav.Decode(f); err != nil {
			f.Close()
		}
	} else {
		return nil, openErr
	}
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var src beep.Streamer = stream
	if format.SampleRate != b.format.SampleRate {
		src = beep.Resample(4, format.SampleRate, b.format.SampleRate, stream)
	}
	buf := beep.NewBuffer(b.format)
	buf.Append(src)
	return buf, nil
}

// noise is white noise, seeded so a clip sounds the same every run.
func noise(rng *rand.Rand) beep.Streamer {
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			v := rng.Float64()*2 - 1
			samples[i][0] = v
			samples[i][1] = v
		}
		return len(samples), true
	})
}

// envelope applies attack/release shaping to a stream
type envelope struct {
	streamer beep.Streamer
	position int
	total    int
	attack   int
	release  int
}

// NewEnvelope shapes the first total samples of s with a linear attack and
// release.
func NewEnvelope(s beep.Streamer, total, attack, release int) beep.Streamer {
	return &envelope{streamer: s, total: total, attack: attack, release: release}
}

func (e *envelope) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = e.streamer.Stream(samples)

	for i := 0; i < n; i++ {
		if e.position >= e.total {
			return i, false
		}

		vol := 1.0
		if e.position < e.attack {
			vol = float64(e.position) / float64(e.attack)
		}
		if left := e.total - e.position; left < e.release {
			vol = math.Min(vol, float64(left)/float64(e.release))
		}

		samples[i][0] *= vol
		samples[i][1] *= vol
		e.position++
	}
	return n, ok
}

func (e *envelope) Err() error { return e.streamer.Err() }

// gained scales a seekable stream by a linear gain.
type gained struct {
	beep.StreamSeeker
	gain float64
}

func (g *gained) Stream(samples [][2]float64) (int, bool) {
	n, ok := g.StreamSeeker.Stream(samples)
	for i := 0; i < n; i++ {
		samples[i][0] *= g.gain
		samples[i][1] *= g.gain
	}
	return n, ok
}

// newVolume applies a master volume on a log2 scale.
// math.Log2(0) is -Inf, so 0 volume is made silent.
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}
