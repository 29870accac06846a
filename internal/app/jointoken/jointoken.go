// internal/app/jointoken/jointoken.go

// Package jointoken owns the lifecycle of a group's public join code:
// open, extend, close. It mutates only the token fields of a Group value;
// persisting the result and logging the transition is the caller's job.
package jointoken

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/dalemusser/civihub/internal/domain/models"
)

// NeverExpires is the far-future sentinel meaning "open until explicitly
// closed". Kept as a concrete instant rather than a zero time so the
// liveness check stays a single comparison.
var NeverExpires = time.Date(2099, time.December, 31, 23, 59, 59, 0, time.UTC)

// DefaultCodeLength is the number of digits in a generated join code.
const DefaultCodeLength = 6

// Generator produces opaque, collision-resistant join codes.
type Generator interface {
	Next() string
}

// DigitGenerator generates numeric codes of a fixed length, the kind that
// survive being read out over a phone call or typed on a USSD keypad.
type DigitGenerator struct {
	Length int
}

func (g DigitGenerator) Next() string {
	n := g.Length
	if n <= 0 {
		n = DefaultCodeLength
	}
	buf := make([]byte, n)
	for i := range buf {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			// crypto/rand failing means the platform is broken; a panic
			// here beats handing out predictable codes.
			panic(err)
		}
		buf[i] = byte('0' + v.Int64())
	}
	return string(buf)
}

// Manager applies token transitions.
type Manager struct {
	gen Generator
}

func New(gen Generator) *Manager {
	if gen == nil {
		gen = DigitGenerator{Length: DefaultCodeLength}
	}
	return &Manager{gen: gen}
}

// Open opens or extends the group's join token in place and returns a
// human-readable description of the resulting state for the audit log.
//
// If a token is already live, its code is reused and only the expiry moves
// (extend / permanentize). Otherwise a fresh code is generated. A nil
// expiry means "open until closed" (NeverExpires).
func (m *Manager) Open(g *models.Group, expiry *time.Time, now time.Time) string {
	exp := NeverExpires
	if expiry != nil {
		exp = expiry.UTC()
	}

	if g.JoinTokenLive(now) {
		g.JoinCodeExpiry = exp
		return describeOpen(g.JoinCode, exp, "extended")
	}

	g.JoinCode = m.gen.Next()
	g.JoinCodeExpiry = exp
	return describeOpen(g.JoinCode, exp, "opened")
}

// Close closes the token: code cleared, expiry pinned to the close
// instant (not a zero time, so "closed" and "never opened" stay
// distinguishable). Returns the audit description.
func (m *Manager) Close(g *models.Group, now time.Time) string {
	g.JoinCode = ""
	g.JoinCodeExpiry = now.UTC()
	return "join code closed"
}

// Matches reports whether code unlocks the group's token at the given
// instant.
func (m *Manager) Matches(g models.Group, code string, now time.Time) bool {
	return g.JoinTokenLive(now) && code != "" && code == g.JoinCode
}

func describeOpen(code string, exp time.Time, verb string) string {
	if exp.Equal(NeverExpires) {
		return fmt.Sprintf("join code %s %s, open until closed", code, verb)
	}
	return fmt.Sprintf("join code %s %s until %s", code, verb, exp.Format(time.RFC3339))
}
