package cluster

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// authTokenTTL bounds how long a minted client token is accepted for, so a
// captured token is not usable indefinitely.
const authTokenTTL = 5 * time.Minute

// MintToken signs a short-lived HS256 token identifying clientID, using the
// same shared secret the Host validates incoming links against
// (ClusterConfig.AuthSecret in internal/config). There is no separate
// identity provider; the cluster link is an internal trust boundary and a
// shared-secret handshake is sufficient.
func MintToken(secret, clientID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   clientID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(authTokenTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("cluster: sign token: %w", err)
	}
	return signed, nil
}

// jwtStreamAuth rejects an incoming Link stream unless its "authorization"
// metadata carries a token signed by secret.
func jwtStreamAuth(secret string) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		md, ok := metadata.FromIncomingContext(ss.Context())
		if !ok {
			return status.Error(codes.Unauthenticated, "cluster: missing metadata")
		}
		tokens := md.Get("authorization")
		if len(tokens) == 0 {
			return status.Error(codes.Unauthenticated, "cluster: missing authorization token")
		}
		raw := strings.TrimPrefix(tokens[0], "Bearer ")
		_, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			return status.Errorf(codes.Unauthenticated, "cluster: invalid token: %v", err)
		}
		return handler(srv, ss)
	}
}
