package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Dosada05/debate-tournament/models"
	"github.com/golang-jwt/jwt/v4"
)

const (
	jwtClaimUserID = "user_id"
	jwtClaimRole   = "role"
	// Рейтинг выдаёт сервис идентификации вместе с токеном игрока.
	jwtClaimElo = "elo"
)

var (
	ErrNoClaims     = errors.New("user claims not found in context or invalid type")
	ErrClaimMissing = errors.New("claim is missing from token")
)

func claimsFromContext(ctx context.Context) (jwt.MapClaims, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return nil, ErrNoClaims
	}
	return claims, nil
}

// intClaim reads an integer claim encoded either as a JSON number or as a
// decimal string.
func intClaim(claims jwt.MapClaims, name string) (int, error) {
	raw, ok := claims[name]
	if !ok {
		return 0, fmt.Errorf("%w: '%s'", ErrClaimMissing, name)
	}

	switch v := raw.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("'%s' claim is not an integer: %f", name, v)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("'%s' claim is not an integer: %q", name, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("invalid type for '%s' claim: expected number or string, got %T", name, raw)
	}
}

func GetUserIDFromContext(ctx context.Context) (int, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return 0, err
	}
	userID, err := intClaim(claims, jwtClaimUserID)
	if err != nil {
		return 0, err
	}
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user ID value in '%s' claim: %d", jwtClaimUserID, userID)
	}
	return userID, nil
}

// GetEloRatingFromContext returns the rating signed into the token. A token
// without the claim yields models.DefaultEloRating.
func GetEloRatingFromContext(ctx context.Context) (int, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return 0, err
	}
	elo, err := intClaim(claims, jwtClaimElo)
	if errors.Is(err, ErrClaimMissing) {
		return models.DefaultEloRating, nil
	}
	if err != nil {
		return 0, err
	}
	if elo < 0 {
		return 0, fmt.Errorf("invalid rating value in '%s' claim: %d", jwtClaimElo, elo)
	}
	return elo, nil
}

func GetUserRoleFromContext(ctx context.Context) (models.UserRole, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return "", err
	}

	roleStr, ok := claims[jwtClaimRole].(string)
	if !ok {
		return "", fmt.Errorf("missing or non-string '%s' claim in token", jwtClaimRole)
	}

	role := models.UserRole(roleStr)
	if !role.Valid() {
		return "", fmt.Errorf("invalid role value in claim: %q", roleStr)
	}
	return role, nil
}
