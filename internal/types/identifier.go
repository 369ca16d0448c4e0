package types

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Origin classifies which store minted a record identifier.
type Origin int

const (
	// OriginLocal marks ids minted on-device (millisecond timestamps).
	OriginLocal Origin = iota
	// OriginCloud marks server-issued UUIDs.
	OriginCloud
)

func (o Origin) String() string {
	if o == OriginCloud {
		return "cloud"
	}
	return "local"
}

// ClassifyID determines a record's owning store from its identifier alone.
// Server-issued ids are UUIDs; everything else is local-origin. The
// classification is computed at the call site, never read from a stored
// flag, so records created before sign-in stay routable after sign-in.
func ClassifyID(id string) Origin {
	if _, err := uuid.Parse(id); err == nil {
		return OriginCloud
	}
	return OriginLocal
}

// NewLocalID mints a local-origin identifier from the current time. The
// millisecond resolution matches ids written by earlier releases, which a
// UUID parse can never mistake for cloud-origin.
func NewLocalID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}
