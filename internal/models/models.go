package models

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	moneyFractionDigits = 8
	moneyScale          = int64(100000000)
)

// Money represents a price amount stored in minor units (1e-8 of the major
// currency) to avoid floating point rounding issues. JSON encoding and string
// formatting expose the canonical decimal representation while all internal
// operations use the fixed-precision integer value.
type Money struct {
	minorUnits int64
}

// NewMoneyFromMinorUnits constructs a Money value from its minor-unit
// representation.
func NewMoneyFromMinorUnits(units int64) Money {
	return Money{minorUnits: units}
}

// MinorUnits exposes the internal integer representation scaled by 1e-8.
func (m Money) MinorUnits() int64 {
	return m.minorUnits
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.minorUnits == 0
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.minorUnits < 0
}

// DecimalString returns the canonical decimal representation with up to eight
// fractional digits.
func (m Money) DecimalString() string {
	return formatMinorUnits(m.minorUnits)
}

// String implements fmt.Stringer.
func (m Money) String() string {
	return m.DecimalString()
}

// MarshalJSON encodes the fixed-precision amount as a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.DecimalString()), nil
}

// UnmarshalJSON decodes a JSON number or string into the fixed-precision minor
// unit representation. A JSON null resets the value to zero.
func (m *Money) UnmarshalJSON(data []byte) error {
	if m == nil {
		return fmt.Errorf("models: cannot decode into nil Money pointer")
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*m = Money{}
		return nil
	}
	var raw string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode money string: %w", err)
		}
	} else {
		raw = trimmed
	}
	money, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = money
	return nil
}

// ParseMoney parses a human-readable decimal string into a Money value with up
// to eight fractional digits.
func ParseMoney(value string) (Money, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Money{}, fmt.Errorf("invalid money amount")
	}
	rat, ok := new(big.Rat).SetString(trimmed)
	if !ok {
		return Money{}, fmt.Errorf("invalid money amount")
	}
	rat.Mul(rat, big.NewRat(moneyScale, 1))
	if !rat.IsInt() {
		return Money{}, fmt.Errorf("amount supports up to %d decimal places", moneyFractionDigits)
	}
	numerator := rat.Num()
	if !numerator.IsInt64() {
		return Money{}, fmt.Errorf("money amount out of range")
	}
	return Money{minorUnits: numerator.Int64()}, nil
}

// MustParseMoney panics if the value cannot be parsed. It is intended for
// tests and static initialisation.
func MustParseMoney(value string) Money {
	money, err := ParseMoney(value)
	if err != nil {
		panic(err)
	}
	return money
}

func formatMinorUnits(units int64) string {
	negative := units < 0
	if negative {
		units = -units
	}
	major := units / moneyScale
	minor := units % moneyScale
	var builder strings.Builder
	if negative {
		builder.WriteByte('-')
	}
	builder.WriteString(fmt.Sprintf("%d", major))
	if minor == 0 {
		return builder.String()
	}
	builder.WriteByte('.')
	fraction := fmt.Sprintf("%0*d", moneyFractionDigits, minor)
	fraction = strings.TrimRight(fraction, "0")
	builder.WriteString(fraction)
	return builder.String()
}

// User is an identity record. Users are created on registration and never
// mutated or deleted through the public API; AvatarURL stays nil until a
// profile flow sets one, so new registrations serialise it as null.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	AvatarURL    *string   `json:"avatar_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session binds an opaque bearer token to a user and an expiry instant. A row
// past ExpiresAt is invalid at read time whether or not the purge worker has
// removed it yet.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ContentType enumerates the asset kinds accepted for upload.
type ContentType string

const (
	ContentTypeGame       ContentType = "game"
	ContentTypeMusic      ContentType = "music"
	ContentTypeVideo      ContentType = "video"
	ContentTypeShortVideo ContentType = "short_video"
	ContentTypeImage      ContentType = "image"
)

// ContentTypes lists every accepted content type in a stable order.
func ContentTypes() []ContentType {
	return []ContentType{
		ContentTypeGame,
		ContentTypeMusic,
		ContentTypeVideo,
		ContentTypeShortVideo,
		ContentTypeImage,
	}
}

// IsValid reports whether the value is one of the accepted content types.
func (t ContentType) IsValid() bool {
	switch t {
	case ContentTypeGame, ContentTypeMusic, ContentTypeVideo, ContentTypeShortVideo, ContentTypeImage:
		return true
	}
	return false
}

// MIME returns the media type recorded on the stored object. Unrecognised
// values fall back to an opaque binary type; uploads are validated before the
// object write so the fallback is unreachable through the API.
func (t ContentType) MIME() string {
	switch t {
	case ContentTypeGame:
		return "application/zip"
	case ContentTypeMusic:
		return "audio/mpeg"
	case ContentTypeVideo, ContentTypeShortVideo:
		return "video/mp4"
	case ContentTypeImage:
		return "image/jpeg"
	}
	return "application/octet-stream"
}

// Content is an uploaded asset's metadata row. The decoded bytes live in the
// object store at FileURL.
type Content struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Type        ContentType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	FileURL     string      `json:"file_url"`
	Category    string      `json:"category"`
	Price       Money       `json:"price"`
	CreatedAt   time.Time   `json:"created_at"`
}
