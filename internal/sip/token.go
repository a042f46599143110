package sip

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of API access tokens.
const DefaultTokenTTL = 10 * time.Minute

// VideoGrant is the room permission section of a LiveKit access token.
type VideoGrant struct {
	RoomCreate bool   `json:"roomCreate,omitempty"`
	RoomAdmin  bool   `json:"roomAdmin,omitempty"`
	RoomJoin   bool   `json:"roomJoin,omitempty"`
	Room       string `json:"room,omitempty"`
}

// SIPGrant is the telephony permission section of a LiveKit access token.
type SIPGrant struct {
	Admin bool `json:"admin,omitempty"`
	Call  bool `json:"call,omitempty"`
}

// Claims are the JWT claims understood by the LiveKit server API.
type Claims struct {
	jwt.RegisteredClaims
	Video *VideoGrant `json:"video,omitempty"`
	SIP   *SIPGrant   `json:"sip,omitempty"`
}

// AccessToken signs an HS256 token allowing SIP calls into room.
func AccessToken(apiKey, apiSecret, room string, ttl time.Duration, now time.Time) (string, error) {
	if apiKey == "" || apiSecret == "" {
		return "", errors.New("sip: api key and secret are required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    apiKey,
			Subject:   apiKey,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Video: &VideoGrant{RoomAdmin: true, Room: room},
		SIP:   &SIPGrant{Call: true},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(apiSecret))
}
