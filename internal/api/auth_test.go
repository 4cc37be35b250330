package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/haichat/haichat/internal/store"
	"github.com/haichat/haichat/internal/types"
)

func TestJwtRoundTrip(t *testing.T) {
	st := &store.MockChatStore{}
	app := newTestApp(t, st)

	user := types.User{Id: primitive.NewObjectID()}
	token, err := app.createJwtForSession(user, time.Hour)
	assert.NoError(t, err, "expected token to be created")

	userId, err := app.extractUserIdFromToken(token)
	assert.NoError(t, err, "expected token to parse")
	assert.Equal(t, user.Id, userId, "expected user id to round trip")
}

func TestExtractUserIdFromToken(t *testing.T) {
	st := &store.MockChatStore{}
	app := newTestApp(t, st)

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := app.extractUserIdFromToken("not-a-token")
		assert.Error(t, err, "expected malformed token to be rejected")
	})

	t.Run("rejects expired token", func(t *testing.T) {
		user := types.User{Id: primitive.NewObjectID()}
		token, err := app.createJwtForSession(user, -time.Hour)
		assert.NoError(t, err)

		_, err = app.extractUserIdFromToken(token)
		assert.Error(t, err, "expected expired token to be rejected")
	})
}

func TestCreateAccountHandler(t *testing.T) {
	expectedUser := types.User{
		Id:    primitive.NewObjectID(),
		Name:  "newuser",
		Email: "newuser@example.com",
	}

	tcases := []struct {
		name         string
		body         any
		setupMock    func(st *store.MockChatStore)
		expectedCode int
	}{
		{
			name: "successfully creates a new account",
			body: RegisterRequest{Name: "newuser", Email: "newuser@example.com", Password: "password"},
			setupMock: func(st *store.MockChatStore) {
				st.On("GetAccountByEmail", mock.Anything, "newuser@example.com").
					Return(types.User{}, store.ErrNotFound).Once()
				st.On("CreateAccount", mock.Anything, mock.MatchedBy(func(p store.CreateAccountParams) bool {
					return p.Name == "newuser" && p.Email == "newuser@example.com" && p.PasswordHash != "password"
				})).Return(expectedUser, nil).Once()
			},
			expectedCode: http.StatusCreated,
		},
		{
			name:         "fails with invalid json body",
			body:         "invalid json",
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "fails with missing name",
			body:         RegisterRequest{Email: "newuser@example.com", Password: "password"},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "fails with short password",
			body:         RegisterRequest{Name: "newuser", Email: "newuser@example.com", Password: "12345"},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "fails when email already registered",
			body: RegisterRequest{Name: "newuser", Email: "newuser@example.com", Password: "password"},
			setupMock: func(st *store.MockChatStore) {
				st.On("GetAccountByEmail", mock.Anything, "newuser@example.com").
					Return(expectedUser, nil).Once()
			},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "fails on store error",
			body: RegisterRequest{Name: "newuser", Email: "newuser@example.com", Password: "password"},
			setupMock: func(st *store.MockChatStore) {
				st.On("GetAccountByEmail", mock.Anything, "newuser@example.com").
					Return(types.User{}, errors.New("db error")).Once()
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			st := &store.MockChatStore{}
			defer st.AssertExpectations(t)
			if tc.setupMock != nil {
				tc.setupMock(st)
			}

			app := newTestApp(t, st)

			body, _ := json.Marshal(tc.body)
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
			app.createAccount(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code, "unexpected status code")
			if tc.expectedCode == http.StatusCreated {
				var user types.User
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
				assert.Equal(t, expectedUser.Id, user.Id, "expected created user in response")
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	password := "password"
	pwdHash, err := hashPassword(password)
	assert.NoError(t, err)

	user := types.User{
		Id:           primitive.NewObjectID(),
		Name:         "tuser",
		Email:        "tuser@example.com",
		PasswordHash: pwdHash,
	}

	t.Run("successful login sets token cookie", func(t *testing.T) {
		st := &store.MockChatStore{}
		st.On("GetAccountByEmail", mock.Anything, user.Email).Return(user, nil).Once()
		defer st.AssertExpectations(t)

		app := newTestApp(t, st)

		body, _ := json.Marshal(LoginRequest{Email: user.Email, Password: password})
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
		app.login(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code, "expected successful login")

		cookie := findCookie(rr, tokenCookieKey)
		if assert.NotNil(t, cookie, "expected token cookie to be set") {
			userId, err := app.extractUserIdFromToken(cookie.Value)
			assert.NoError(t, err, "expected cookie to hold a valid token")
			assert.Equal(t, user.Id, userId)
			assert.True(t, cookie.HttpOnly, "expected cookie to be http-only")
		}
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		st := &store.MockChatStore{}
		st.On("GetAccountByEmail", mock.Anything, user.Email).Return(user, nil).Once()
		defer st.AssertExpectations(t)

		app := newTestApp(t, st)

		body, _ := json.Marshal(LoginRequest{Email: user.Email, Password: "wrong"})
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
		app.login(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code, "expected unauthorized")
		assert.Nil(t, findCookie(rr, tokenCookieKey), "expected no cookie")
	})

	t.Run("unknown email is not found", func(t *testing.T) {
		st := &store.MockChatStore{}
		st.On("GetAccountByEmail", mock.Anything, "nobody@example.com").
			Return(types.User{}, store.ErrNotFound).Once()
		defer st.AssertExpectations(t)

		app := newTestApp(t, st)

		body, _ := json.Marshal(LoginRequest{Email: "nobody@example.com", Password: password})
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
		app.login(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code, "expected not found")
	})
}

func TestSessionHandler(t *testing.T) {
	user := types.User{Id: primitive.NewObjectID(), Name: "tuser"}

	t.Run("returns current user", func(t *testing.T) {
		st := &store.MockChatStore{}
		st.On("GetAccountById", mock.Anything, user.Id).Return(user, nil).Once()
		defer st.AssertExpectations(t)

		app := newTestApp(t, st)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		req = req.WithContext(WithUserId(req.Context(), user.Id))
		app.session(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var got types.User
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, user.Id, got.Id)
	})

	t.Run("unauthorized without user in context", func(t *testing.T) {
		app := newTestApp(t, &store.MockChatStore{})

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		app.session(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestSearchUsersHandler(t *testing.T) {
	me := primitive.NewObjectID()
	results := []types.User{{Id: primitive.NewObjectID(), Name: "alice"}}

	t.Run("returns matches excluding requester", func(t *testing.T) {
		st := &store.MockChatStore{}
		st.On("SearchAccounts", mock.Anything, "ali", me).Return(results, nil).Once()
		defer st.AssertExpectations(t)

		app := newTestApp(t, st)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/users?q=ali", nil)
		req = req.WithContext(WithUserId(req.Context(), me))
		app.searchUsers(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var got []types.User
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Len(t, got, 1)
	})

	t.Run("missing query is a bad request", func(t *testing.T) {
		app := newTestApp(t, &store.MockChatStore{})

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req = req.WithContext(WithUserId(req.Context(), me))
		app.searchUsers(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestGetUserByIdHandler(t *testing.T) {
	me := primitive.NewObjectID()
	other := primitive.NewObjectID()

	t.Run("returns the user profile", func(t *testing.T) {
		st := &store.MockChatStore{}
		st.On("GetAccountById", mock.Anything, other).
			Return(types.User{Id: other, Name: "bob", PasswordHash: "secret"}, nil).Once()
		defer st.AssertExpectations(t)

		app := newTestApp(t, st)

		rr := httptest.NewRecorder()
		req := authedRequest(http.MethodGet, "/api/users/"+other.Hex(), nil, me)
		req.SetPathValue("userId", other.Hex())
		app.getUserById(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var got types.User
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, "bob", got.Name)
		assert.Empty(t, got.PasswordHash, "expected password hash withheld from responses")
	})

	t.Run("unknown user is not found", func(t *testing.T) {
		st := &store.MockChatStore{}
		st.On("GetAccountById", mock.Anything, other).Return(types.User{}, store.ErrNotFound).Once()
		defer st.AssertExpectations(t)

		app := newTestApp(t, st)

		rr := httptest.NewRecorder()
		req := authedRequest(http.MethodGet, "/api/users/"+other.Hex(), nil, me)
		req.SetPathValue("userId", other.Hex())
		app.getUserById(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("malformed id is a bad request", func(t *testing.T) {
		app := newTestApp(t, &store.MockChatStore{})

		rr := httptest.NewRecorder()
		req := authedRequest(http.MethodGet, "/api/users/nope", nil, me)
		req.SetPathValue("userId", "nope")
		app.getUserById(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
