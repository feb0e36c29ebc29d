package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "verity/pkg/domain-errors"
)

// UserID identifies the marketplace user a verification record belongs to.
type UserID uuid.UUID

// UploadID identifies a single document upload within the pipeline.
type UploadID uuid.UUID

// ParseUserID parses a user identifier at a trust boundary.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseUploadID parses an upload identifier at a trust boundary.
func ParseUploadID(s string) (UploadID, error) {
	u, err := parseUUID(s, "upload_id")
	if err != nil {
		return UploadID{}, err
	}
	return UploadID(u), nil
}

// NewUploadID returns a fresh random upload identifier.
func NewUploadID() UploadID {
	return UploadID(uuid.New())
}

func (id UserID) String() string   { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id UploadID) String() string { return uuid.UUID(id).String() }

// MarshalText encodes the ID in canonical UUID form so records serialize
// readably.
func (id UserID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(b); err != nil {
		return err
	}
	*id = UserID(u)
	return nil
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be nil")
	}
	return u, nil
}
