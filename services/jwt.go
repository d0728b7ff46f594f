package services

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/alphabatem/common/context"
)

// JWTService signs and verifies the gate's bypass cookie value. The cookie
// stays advisory: handlers re-validate tokens and never trust the claim for
// quota decisions.
type JWTService struct {
	context.DefaultService

	BypassDuration time.Duration
	jwtSecretKey   string
}

type BypassClaims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

const JWT_SVC = "jwt_svc"

func (svc JWTService) Id() string {
	return JWT_SVC
}

func (svc *JWTService) Configure(ctx *context.Context) error {
	svc.BypassDuration = 30 * 24 * time.Hour
	svc.jwtSecretKey = os.Getenv("GATE_JWT_SECRET")
	if svc.jwtSecretKey == "" {
		svc.jwtSecretKey = "outreach-gate-dev-secret"
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *JWTService) Start() error {
	return nil
}

// SignBypass issues the bypass-marker token carrying the identity kind.
func (svc *JWTService) SignBypass(kind string) (string, error) {
	expTime := time.Now().Add(svc.BypassDuration)

	claims := &BypassClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "outreach-gate",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(svc.jwtSecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign bypass token: %v", err)
	}

	return tokenString, nil
}

// VerifyBypass returns the identity kind from a bypass token, or an error
// for anything expired, malformed or signed with the wrong key.
func (svc *JWTService) VerifyBypass(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &BypassClaims{}, svc.getJWTKey)
	if err == nil && token.Valid {
		claims, ok := token.Claims.(*BypassClaims)
		if ok && claims != nil {
			expTime, err := claims.GetExpirationTime()
			if err != nil {
				return "", fmt.Errorf("failed to get expiration time: %v", err)
			}
			if expTime.Unix() < time.Now().Unix() {
				return "", errors.New("bypass token has expired")
			}
			return claims.Kind, nil
		}
	}

	return "", errors.New("unsupported bypass token format")
}

func (svc *JWTService) getJWTKey(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}

	return []byte(svc.jwtSecretKey), nil
}
