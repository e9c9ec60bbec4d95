package session

import (
	"time"

	"github.com/google/uuid"
)

// TTL is how long an issued voter identity stays valid. The boundary layer
// must carry the token back on every request within this window.
const TTL = 30 * 24 * time.Hour

// Session is an opaque voter identity. It carries no personal data; the ID
// is only ever used as a lookup key into the votes table.
type Session struct {
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Issuer struct{}

func NewIssuer() *Issuer {
	return &Issuer{}
}

// Issue mints a fresh voter identity. IDs are random UUIDv4, so collisions
// across issuers are negligible without any coordination.
func (i *Issuer) Issue() Session {
	now := time.Now()
	return Session{
		ID:        uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(TTL),
	}
}
