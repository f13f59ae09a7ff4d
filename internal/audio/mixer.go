// Package audio turns the simulation's sound effects into PCM through a
// beep mixer. The mixer is itself a beep.Streamer, so it can drive the
// speaker or be rendered offline.
package audio

import (
	"io"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"

	"that-night/internal/game"
	"that-night/internal/logger"
)

// MaxVoices caps concurrent one-shot cues; extra cues in a busy tick are
// dropped.
const MaxVoices = 16

// Mixer plays cues for every sound effect it is handed.
type Mixer struct {
	mu      sync.Mutex
	bank    *Bank
	voices  *beep.Mixer
	ambient *beep.Ctrl
	out     beep.Streamer
	enabled bool
	dropped int
}

// NewMixer creates a mixer over bank at the given master volume.
func NewMixer(bank *Bank, volume float64, enabled bool) *Mixer {
	m := &Mixer{
		bank:    bank,
		voices:  &beep.Mixer{},
		enabled: enabled,
	}
	m.out = newVolume(m.voices, volume)
	return m
}

// HandleEffects queues a voice for every sound effect.
func (m *Mixer) HandleEffects(fx []game.Effect) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return
	}

	for _, f := range fx {
		if f.Kind != game.EffectSound || f.Gain <= 0 {
			continue
		}

		if f.Sound == game.SoundAmbient {
			m.loopAmbient(f.Gain)
			continue
		}

		if m.voices.Len() >= MaxVoices {
			m.dropped++
			continue
		}
		m.voices.Add(m.bank.Streamer(f.Sound, f.Gain))
	}
}

// loopAmbient replaces the running ambient bed.
func (m *Mixer) loopAmbient(gain float64) {
	if m.ambient != nil {
		m.ambient.Paused = true
		m.ambient.Streamer = nil
	}
	m.ambient = &beep.Ctrl{Streamer: beep.Loop(-1, m.bank.Streamer(game.SoundAmbient, gain))}
	m.voices.Add(m.ambient)
}

// Stream mixes every active voice.
func (m *Mixer) Stream(samples [][2]float64) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.out.Stream(samples)
}

// Err always returns nil
func (m *Mixer) Err() error { return nil }

// Voices returns the number of active voices, ambient included.
func (m *Mixer) Voices() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voices.Len()
}

// Dropped returns how many cues were skipped for lack of voices.
func (m *Mixer) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// SetEnabled mutes or unmutes the mixer. Muting drops every voice.
func (m *Mixer) SetEnabled(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = on
	if !on {
		m.voices.Clear()
		m.ambient = nil
	}
}

// Capture renders d of mixed output as WAV into w.
func (m *Mixer) Capture(w io.WriteSeeker, d time.Duration) error {
	f := m.bank.Format()
	return wav.Encode(w, beep.Take(f.SampleRate.N(d), m), f)
}

// StartSpeaker opens the audio device and plays the mixer on it.
func (m *Mixer) StartSpeaker(buffer time.Duration) error {
	sr := m.bank.Format().SampleRate
	if err := speaker.Init(sr, sr.N(buffer)); err != nil {
		return err
	}
	speaker.Play(m)
	logger.Log.WithField("sampleRate", int(sr)).Info("speaker started")
	return nil
}

// StopSpeaker silences the device.
func (m *Mixer) StopSpeaker() {
	speaker.Clear()
}
