package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/haichat/haichat/internal/store"
	"github.com/haichat/haichat/internal/types"
)

const (
	userIdClaim = "user-id"
	expClaim    = "exp"

	tokenCookieKey       = "token"
	defaultJwtExpiration = time.Hour * 24
)

type contextKey string

const userIdKey contextKey = "user-id"

func WithUserId(ctx context.Context, userId primitive.ObjectID) context.Context {
	return context.WithValue(ctx, userIdKey, userId)
}

func UserId(ctx context.Context) (primitive.ObjectID, bool) {
	userId, ok := ctx.Value(userIdKey).(primitive.ObjectID)
	return userId, ok
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateAccountRequest struct {
	Name             string `json:"name"`
	Bio              string `json:"bio"`
	Avatar           string `json:"avatar"`
	AiEnabled        *bool  `json:"ai_enabled"`
	AutoReplyEnabled *bool  `json:"auto_reply_enabled"`
}

func (s *HaiChatApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Name == "" || req.Email == "" || len(req.Password) < 6 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.store.GetAccountByEmail(r.Context(), req.Email); err == nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	newUser, err := s.store.CreateAccount(r.Context(), store.CreateAccountParams{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: pwdHash,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, newUser)
}

func (s *HaiChatApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Email == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.store.GetAccountByEmail(r.Context(), lr.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, store.ErrNotFound) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(user.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	token, err := s.createJwtForSession(user, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusOK, user)
}

func (s *HaiChatApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

func (s *HaiChatApp) session(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.store.GetAccountById(r.Context(), userId)
	if err != nil {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, user)
}

func (s *HaiChatApp) account(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, err := s.store.GetAccountById(r.Context(), userId)
		if err != nil {
			errResp := NewNotFoundError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		s.writeJson(w, http.StatusOK, user)
	case http.MethodPut:
		var req UpdateAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		user, err := s.store.UpdateAccount(r.Context(), store.UpdateAccountParams{
			UserId:           userId,
			Name:             req.Name,
			Bio:              req.Bio,
			Avatar:           req.Avatar,
			AiEnabled:        req.AiEnabled,
			AutoReplyEnabled: req.AutoReplyEnabled,
		})
		if err != nil {
			var errResp *ApiError
			if errors.Is(err, store.ErrNotFound) {
				errResp = NewNotFoundError()
			} else {
				errResp = NewInternalServerError(err)
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		s.writeJson(w, http.StatusOK, user)
	default:
		errResp := &ApiError{
			StatusCode: http.StatusMethodNotAllowed,
			Message:    lower(http.StatusText(http.StatusMethodNotAllowed)),
		}
		s.writeJson(w, errResp.StatusCode, errResp)
	}
}

func (s *HaiChatApp) searchUsers(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	users, err := s.store.SearchAccounts(r.Context(), query, userId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, users)
}

func (s *HaiChatApp) getUserById(w http.ResponseWriter, r *http.Request) {
	targetId, err := primitive.ObjectIDFromHex(r.PathValue("userId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.store.GetAccountById(r.Context(), targetId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, store.ErrNotFound) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, user)
}

func createJwtCookie(tokenString string, exp time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     tokenCookieKey,
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(exp),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func hashPassword(passwd string) (string, error) {
	passwdHash, err := bcrypt.GenerateFromPassword([]byte(passwd), bcrypt.DefaultCost)
	return string(passwdHash), err
}

func verifyPassword(passwdHash, passwd string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(passwdHash), []byte(passwd))
	return err == nil
}

func (s *HaiChatApp) createJwtForSession(user types.User, exp time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userIdClaim: user.Id.Hex(),
		expClaim:    time.Now().Add(exp).Unix(),
	})

	return token.SignedString(s.signingKey)
}

func (s *HaiChatApp) extractUserIdFromToken(tokenString string) (primitive.ObjectID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	})
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("parse token: %w", err)
	}

	if !token.Valid {
		return primitive.NilObjectID, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("invalid token claims")
	}

	hex, ok := claims[userIdClaim].(string)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("invalid user id claim")
	}

	userId, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("malformed user id claim: %w", err)
	}

	return userId, nil
}
