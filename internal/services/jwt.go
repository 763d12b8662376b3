package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// Определяем пользовательские ошибки для обработки JWT.
var (
	ErrTokenIsInvalid = errors.New("токен недействителен")
	ErrTokenIsExpired = errors.New("токен истёк")
)

// RoleClaim задаёт имя поля токена с ролью владельца.
const RoleClaim = "role"

// JWTService представляет сервис для работы с JWT токенами.
type JWTService struct {
	authSecretKey string // Секретный ключ, используемый для подписи и валидации токенов
	ttl           time.Duration
}

// NewJWTService создает новый экземпляр JWTService с заданным секретным ключом.
func NewJWTService(authSecretKey string) *JWTService {
	return &JWTService{authSecretKey: authSecretKey, ttl: 24 * time.Hour}
}

// GenerateJWT генерирует токен для клиента или сервиса со сроком действия 24 часа.
func (j *JWTService) GenerateJWT(subject string, role models.Role) (string, error) {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     subject,
		RoleClaim: string(role),
		"iat":     now.Unix(),
		"exp":     now.Add(j.ttl).Unix(),
	})

	tokenString, err := token.SignedString([]byte(j.authSecretKey))
	if err != nil {
		return "", fmt.Errorf("error while generating token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken проверяет подпись и срок действия JWT токена.
func (j *JWTService) ValidateToken(tokenString string) (*jwt.Token, error) {
	parsedToken, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Проверяем, что метод подписи является HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(j.authSecretKey), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenIsExpired
		}

		return nil, fmt.Errorf("error while validating token: %w", err)
	}

	if !parsedToken.Valid {
		return nil, ErrTokenIsInvalid
	}

	return parsedToken, nil
}

// PrincipalFromToken извлекает владельца токена. Токен без роли принадлежит клиенту.
func PrincipalFromToken(token *jwt.Token) (models.Principal, error) {
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return models.Principal{}, fmt.Errorf("%w: нет поля sub", ErrTokenIsInvalid)
	}

	principal := models.Principal{ID: subject, Role: models.RoleCustomer}

	if claims, ok := token.Claims.(jwt.MapClaims); ok {
		if role, ok := claims[RoleClaim].(string); ok && role != "" {
			principal.Role = models.Role(role)
		}
	}

	if principal.Role != models.RoleCustomer && principal.Role != models.RoleService {
		return models.Principal{}, fmt.Errorf("%w: неизвестная роль %q", ErrTokenIsInvalid, principal.Role)
	}

	return principal, nil
}
