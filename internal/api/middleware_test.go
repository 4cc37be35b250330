package api

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/haichat/haichat/internal/store"
	"github.com/haichat/haichat/internal/testutil"
	"github.com/haichat/haichat/internal/types"
)

func TestErrorHandlerPanicRecovery(t *testing.T) {
	buf := &bytes.Buffer{}
	app := &HaiChatApp{log: testutil.TestLogger(t)}
	app.log.SetOutput(buf)

	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("test panic"))
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	app.errorHandler(panicHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected internal server error")
	assert.Equal(t, "close", rr.Header().Get("Connection"), "expected connection close header")
	assert.Contains(t, buf.String(), "panic: test panic", "expected panic to be logged")
}

func TestErrorHandlerNoPanic(t *testing.T) {
	app := &HaiChatApp{log: testutil.TestLogger(t)}

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	app.errorHandler(okHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTeapot, rr.Code, "expected handler response to pass through")
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("valid cookie injects user id", func(t *testing.T) {
		app := newTestApp(t, &store.MockChatStore{})
		user := types.User{Id: primitive.NewObjectID()}
		token, err := app.createJwtForSession(user, time.Hour)
		assert.NoError(t, err)

		var gotUserId primitive.ObjectID
		handler := app.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
			gotUserId, _ = UserId(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(createJwtCookie(token, time.Hour))
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, user.Id, gotUserId, "expected user id in request context")
		assert.Contains(t, rr.Header().Get("Cache-Control"), "no-store", "expected cache suppression")
	})

	t.Run("missing cookie is unauthorized", func(t *testing.T) {
		app := newTestApp(t, &store.MockChatStore{})

		handler := app.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be called")
		})

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("invalid token is unauthorized", func(t *testing.T) {
		app := newTestApp(t, &store.MockChatStore{})

		handler := app.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be called")
		})

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(createJwtCookie("bogus", time.Hour))
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
