package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/Dosada05/tundra-matches/models"
	"github.com/Dosada05/tundra-matches/utils"
	"github.com/golang-jwt/jwt/v4"
)

// Определяем константы для имен JWT claims
const (
	jwtClaimWallet = "wallet_address"
	jwtClaimRole   = "role"
)

// GetWalletFromContext возвращает кошелек вызывающего в нормализованном виде.
func GetWalletFromContext(ctx context.Context) (string, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return "", errNoClaims
	}

	walletClaim, ok := claims[jwtClaimWallet]
	if !ok {
		return "", fmt.Errorf("missing '%s' claim in token", jwtClaimWallet)
	}
	walletStr, ok := walletClaim.(string)
	if !ok {
		return "", fmt.Errorf("invalid type for '%s' claim: expected string, got %T", jwtClaimWallet, walletClaim)
	}

	wallet, err := utils.NormalizeAddress(walletStr)
	if err != nil {
		return "", fmt.Errorf("invalid '%s' claim: %w", jwtClaimWallet, err)
	}
	return wallet, nil
}

func GetUserRoleFromContext(ctx context.Context) (models.UserRole, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return "", errNoClaims
	}

	roleClaim, ok := claims[jwtClaimRole]
	if !ok {
		return "", fmt.Errorf("missing '%s' claim in token", jwtClaimRole)
	}
	roleStr, ok := roleClaim.(string)
	if !ok {
		return "", fmt.Errorf("invalid type for '%s' claim: expected string, got %T", jwtClaimRole, roleClaim)
	}

	role := models.UserRole(roleStr)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid role value in claim: %q", roleStr)
	}
	return role, nil
}

// IssueToken подписывает токен в формате провайдера авторизации.
// Сервис сам токены не выдает, функция нужна для тестов и локальной отладки.
func IssueToken(secret []byte, wallet string, role models.UserRole, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		jwtClaimWallet: wallet,
		jwtClaimRole:   string(role),
		"exp":          time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
