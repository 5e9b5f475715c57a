// Package tokens signs and validates the bearer tokens the Fleet
// Controller uses to authenticate to the external worker-group
// orchestrator.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identifies the detector process presenting the token, not a
// human user: ServiceID is the process's own identity (e.g. its
// hostname/instance tag) and FleetGroup is the diurnal group it is
// currently acting for.
type Claims struct {
	ServiceID  string `json:"service_id"`
	FleetGroup string `json:"fleet_group"`
	jwt.RegisteredClaims
}

// Manager signs and validates service-identity tokens with a single
// shared secret.
type Manager struct {
	signingKey []byte
}

func NewManager(signingKey string) *Manager {
	return &Manager{signingKey: []byte(signingKey)}
}

// ServiceTokenTTL bounds how long a signed orchestrator request is valid
// for; the Fleet Controller mints a fresh token per request rather than
// holding a long-lived one.
const ServiceTokenTTL = 2 * time.Minute

func (m *Manager) GenerateServiceToken(serviceID, fleetGroup string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		ServiceID:  serviceID,
		FleetGroup: fleetGroup,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ServiceTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
			Subject:   serviceID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = "v1"
	return token.SignedString(m.signingKey)
}

func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.signingKey, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
