// Package roomgen produces synthetic rooms for the list engine.
// A fixed seed gives deterministic output for reproducible tests.
package roomgen

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vanderheijden86/roomlist/pkg/model"
)

// Config controls room generation.
type Config struct {
	Seed      int64  // Random seed for determinism (0 = use current time)
	AvatarURL string // fmt pattern taking one int (default: github avatars)
	MaxLines  int    // Maximum message lines (default: 3)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() Config {
	return Config{
		Seed:      42,
		AvatarURL: "https://avatars.githubusercontent.com/u/%d",
		MaxLines:  3,
	}
}

// Factory creates rooms. It is safe for concurrent use.
type Factory struct {
	cfg Config

	mu    sync.Mutex
	rng   *rand.Rand
	index int
}

// New creates a Factory with the given config.
func New(cfg Config) *Factory {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.AvatarURL == "" {
		cfg.AvatarURL = DefaultConfig().AvatarURL
	}
	if cfg.MaxLines <= 0 {
		cfg.MaxLines = 3
	}
	return &Factory{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewDefault creates a Factory with the default config.
func NewDefault() *Factory {
	return New(DefaultConfig())
}

// Room generates one room whose recency is uniform in [from, to] (epoch ms).
// If to < from the bounds are swapped.
func (f *Factory) Room(from, to int64) model.Room {
	if to < from {
		from, to = to, from
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.index++
	id, err := uuid.NewRandomFromReader(f.rng)
	if err != nil {
		// math/rand never fails a Read; keep ids unique regardless.
		id = uuid.New()
	}

	return model.Room{
		ID:      id.String(),
		Index:   f.index,
		Name:    firstNames[f.rng.Intn(len(firstNames))],
		Avatar:  fmt.Sprintf(f.cfg.AvatarURL, f.rng.Intn(90_000_000)+1),
		Recency: from + f.rng.Int63n(to-from+1),
		Message: f.message(),
		Tag:     f.rng.Intn(3) + 1,
	}
}

// Rooms generates n rooms in the window.
func (f *Factory) Rooms(n int, window model.TimeWindow) []model.Room {
	if n <= 0 {
		return nil
	}
	rooms := make([]model.Room, n)
	for i := range rooms {
		rooms[i] = f.Room(window.From, window.To)
	}
	return rooms
}

// Intn returns a uniform int in [0, n) from the factory's rng. Returns 0
// when n <= 0.
func (f *Factory) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rng.Intn(n)
}

// Count returns how many rooms the factory has produced.
func (f *Factory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.index
}

// message must be called with f.mu held.
func (f *Factory) message() string {
	lines := f.rng.Intn(f.cfg.MaxLines) + 1
	out := make([]string, lines)
	for i := range out {
		words := f.rng.Intn(8) + 4
		parts := make([]string, words)
		for j := range parts {
			parts[j] = loremWords[f.rng.Intn(len(loremWords))]
		}
		parts[0] = strings.ToUpper(parts[0][:1]) + parts[0][1:]
		out[i] = strings.Join(parts, " ") + "."
	}
	return strings.Join(out, "\n")
}

var firstNames = []string{
	"Ada", "Bruno", "Chen", "Dalia", "Emeka", "Freya", "Goran", "Hana",
	"Ivo", "Jasmin", "Kenji", "Lena", "Mateo", "Nia", "Oskar", "Priya",
	"Quinn", "Rafael", "Sana", "Tomas", "Uma", "Viktor", "Wen", "Ximena",
	"Yusuf", "Zoe",
}

var loremWords = []string{
	"lorem", "ipsum", "dolor", "sit", "amet", "consectetur", "adipiscing",
	"elit", "sed", "do", "eiusmod", "tempor", "incididunt", "ut", "labore",
	"et", "dolore", "magna", "aliqua", "enim", "ad", "minim", "veniam",
	"quis", "nostrud", "exercitation", "ullamco", "laboris", "nisi",
	"aliquip", "ex", "ea", "commodo", "consequat",
}
