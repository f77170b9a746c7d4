package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-network-api/internal/auth"
	"social-network-api/internal/repository/sqlstore"
	"social-network-api/internal/service"
	"social-network-api/internal/storage"
)

type testAPI struct {
	router *gin.Engine
	tokens *auth.Issuer
	store  *fakeObjects
}

type fakeObjects struct {
	deleted []string
}

func (f *fakeObjects) GetObjectURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return fmt.Sprintf("https://%s.example/%s?signed", bucket, key), nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, bucket, key string) error {
	f.deleted = append(f.deleted, bucket+"/"+key)
	return nil
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := sqlstore.Open(sqlstore.DriverSQLite, fmt.Sprintf("file:http_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	userRepo := sqlstore.NewUserRepository(db)
	postRepo := sqlstore.NewPostRepository(db)
	commentRepo := sqlstore.NewCommentRepository(db)
	ctx := context.Background()
	require.NoError(t, userRepo.Init(ctx))
	require.NoError(t, postRepo.Init(ctx))
	require.NoError(t, commentRepo.Init(ctx))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	objects := &fakeObjects{}
	tokens := auth.NewIssuer("test-secret", time.Minute, time.Hour)
	handler := NewHandler(
		service.NewUserService(userRepo),
		service.NewPostService(postRepo),
		service.NewCommentService(postRepo, commentRepo),
		tokens,
		storage.NewImages(objects, "media", time.Minute),
		db,
		logger,
	)

	router := gin.New()
	handler.RegisterRoutes(router)
	return testAPI{router: router, tokens: tokens, store: objects}
}

func (a testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			payload, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(payload)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// signup registers a user and returns its id and access token.
func (a testAPI) signup(t *testing.T, username string) (int64, string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/signup/", "", gin.H{"username": username, "password": "pw"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var user UserResponse
	decode(t, rec, &user)

	rec = a.do(t, http.MethodPost, "/token/", "", gin.H{"username": username, "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pair TokenPairResponse
	decode(t, rec, &pair)
	return user.ID, pair.Access
}

func (a testAPI) createPost(t *testing.T, token string, body gin.H) PostResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/posts/", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var post PostResponse
	decode(t, rec, &post)
	return post
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, rec, &body)
	return body.Error
}

func TestAPIRootAndHealth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"API root"}`, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/health/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSignupAndDuplicate(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/signup/", "", gin.H{"username": "alice", "password": "pw", "age": 30})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	var user UserResponse
	decode(t, rec, &user)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, 30, user.Age)

	for _, path := range []string{"/signup/", "/register/", "/users/"} {
		rec = api.do(t, http.MethodPost, path, "", gin.H{"username": "alice", "password": "other"})
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "Username already exists", errorOf(t, rec))
	}

	rec = api.do(t, http.MethodGet, "/users/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []UserResponse
	decode(t, rec, &users)
	require.Len(t, users, 1)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestSignupValidation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/register/", "", gin.H{"password": "pw"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "validation failed", body.Error)
	assert.Contains(t, body.Fields, "username")

	rec = api.do(t, http.MethodPost, "/register/", "", gin.H{"username": "bob", "password": "pw", "age": -1})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/register/", "", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", errorOf(t, rec))
}

func TestGetUser(t *testing.T) {
	api := newTestAPI(t)
	id, _ := api.signup(t, "alice")

	rec := api.do(t, http.MethodGet, fmt.Sprintf("/users/%d/", id), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/users/999/", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found.", errorOf(t, rec))

	rec = api.do(t, http.MethodGet, "/users/abc/", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNonPositiveIDsAreNotFound(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.signup(t, "alice")
	post := api.createPost(t, token, gin.H{"title": "t", "description": "d"})

	for _, path := range []string{
		"/users/0/",
		"/posts/0/",
		"/posts/-1/",
		"/posts/0/comments/",
		fmt.Sprintf("/posts/%d/comments/0/", post.ID),
	} {
		rec := api.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, msgNotFound, errorOf(t, rec), path)
	}
}

func TestMultibyteValuesWithinLimits(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/signup/", "", gin.H{"username": strings.Repeat("ж", 100), "password": "pw"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodPost, "/token/", "", gin.H{"username": strings.Repeat("ж", 100), "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	var pair TokenPairResponse
	decode(t, rec, &pair)

	post := api.createPost(t, pair.Access, gin.H{
		"title":       strings.Repeat("é", 150),
		"description": "d",
		"tags":        []string{strings.Repeat("ü", 40)},
	})
	assert.Equal(t, strings.Repeat("é", 150), post.Title)
	assert.Equal(t, []string{strings.Repeat("ü", 40)}, post.Tags)
}

func TestTokenObtainAndRefresh(t *testing.T) {
	api := newTestAPI(t)
	api.signup(t, "alice")

	rec := api.do(t, http.MethodPost, "/token/", "", gin.H{"username": "alice", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/token/", "", gin.H{"username": "alice", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	var pair TokenPairResponse
	decode(t, rec, &pair)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	rec = api.do(t, http.MethodPost, "/token/refresh/", "", gin.H{"refresh": pair.Refresh})
	require.Equal(t, http.StatusOK, rec.Code)
	var access AccessTokenResponse
	decode(t, rec, &access)
	assert.NotEmpty(t, access.Access)

	rec = api.do(t, http.MethodPost, "/token/refresh/", "", gin.H{"refresh": pair.Access})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/token/refresh/", "", gin.H{"refresh": "garbage"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerMustBeValidAccessToken(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.signup(t, "alice")
	body := gin.H{"title": "t", "description": "d"}

	rec := api.do(t, http.MethodPost, "/posts/", "", body)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, msgNotAuthenticated, errorOf(t, rec))

	rec = api.do(t, http.MethodPost, "/posts/", "garbage", body)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, msgInvalidToken, errorOf(t, rec))

	pair, err := api.tokens.IssuePair(1)
	require.NoError(t, err)
	rec = api.do(t, http.MethodPost, "/posts/", pair.Refresh, body)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	ghost, err := api.tokens.IssueAccess(999)
	require.NoError(t, err)
	rec = api.do(t, http.MethodPost, "/posts/", ghost, body)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/posts/", token, body)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestPostTagsRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	aliceID, token := api.signup(t, "alice")

	post := api.createPost(t, token, gin.H{"title": "Hello", "description": "World", "tags": []string{"x", "y"}})
	assert.Equal(t, []string{"x", "y"}, post.Tags)
	assert.Equal(t, aliceID, post.Author)
	assert.Equal(t, "alice", post.AuthorName)
	assert.Nil(t, post.ImageURL)

	rec := api.do(t, http.MethodGet, fmt.Sprintf("/posts/%d/", post.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got PostResponse
	decode(t, rec, &got)
	assert.Equal(t, []string{"x", "y"}, got.Tags)

	update := gin.H{"title": "Hello", "description": "World", "tags": []string{"y", "z"}}
	for i := 0; i < 2; i++ {
		rec = api.do(t, http.MethodPut, fmt.Sprintf("/posts/%d/", post.ID), token, update)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &got)
		assert.Equal(t, []string{"y", "z"}, got.Tags)
	}

	rec = api.do(t, http.MethodPut, fmt.Sprintf("/posts/%d/", post.ID), token, gin.H{"title": "Hello", "description": "World"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &got)
	assert.Empty(t, got.Tags)

	rec = api.do(t, http.MethodGet, "/posts/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []PostResponse
	decode(t, rec, &list)
	require.Len(t, list, 1)
}

func TestPostValidation(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.signup(t, "alice")

	rec := api.do(t, http.MethodPost, "/posts/", token, gin.H{"description": "d"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/posts/", token, gin.H{"title": strings.Repeat("a", 201), "description": "d"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/posts/", token, gin.H{"title": "t", "description": "d", "tags": []string{strings.Repeat("a", 51)}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostOwnership(t *testing.T) {
	api := newTestAPI(t)
	_, alice := api.signup(t, "alice")
	_, bob := api.signup(t, "bob")

	post := api.createPost(t, alice, gin.H{"title": "t", "description": "d"})
	path := fmt.Sprintf("/posts/%d/", post.ID)
	update := gin.H{"title": "changed", "description": "d"}

	rec := api.do(t, http.MethodPut, path, "", update)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = api.do(t, http.MethodPut, path, bob, update)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, msgForbidden, errorOf(t, rec))
	rec = api.do(t, http.MethodDelete, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = api.do(t, http.MethodDelete, path, bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPut, "/posts/999/", alice, update)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.do(t, http.MethodDelete, "/posts/999/", alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// existence and ownership are settled before the body is looked at
	rec = api.do(t, http.MethodPut, path, bob, gin.H{})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = api.do(t, http.MethodPut, "/posts/999/", alice, gin.H{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.do(t, http.MethodPut, path, "", gin.H{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = api.do(t, http.MethodPut, path, alice, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPut, path, alice, update)
	require.Equal(t, http.StatusOK, rec.Code)
	var got PostResponse
	decode(t, rec, &got)
	assert.Equal(t, "changed", got.Title)
}

func TestDeletePostCascadesAndRemovesImage(t *testing.T) {
	api := newTestAPI(t)
	_, alice := api.signup(t, "alice")
	_, bob := api.signup(t, "bob")

	post := api.createPost(t, alice, gin.H{"title": "t", "description": "d", "imageUrl": "s3://media/posts/1.png"})
	require.NotNil(t, post.ImageURL)
	assert.Equal(t, "https://media.example/posts/1.png?signed", *post.ImageURL)

	commentsPath := fmt.Sprintf("/posts/%d/comments/", post.ID)
	rec := api.do(t, http.MethodPost, commentsPath, bob, gin.H{"content": "nice"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodDelete, fmt.Sprintf("/posts/%d/", post.ID), alice, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"media/posts/1.png"}, api.store.deleted)

	rec = api.do(t, http.MethodGet, fmt.Sprintf("/posts/%d/", post.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.do(t, http.MethodGet, commentsPath, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlainImageURLPassesThrough(t *testing.T) {
	api := newTestAPI(t)
	_, alice := api.signup(t, "alice")

	post := api.createPost(t, alice, gin.H{"title": "t", "description": "d", "imageUrl": "https://cdn.example/a.png"})
	require.NotNil(t, post.ImageURL)
	assert.Equal(t, "https://cdn.example/a.png", *post.ImageURL)

	rec := api.do(t, http.MethodDelete, fmt.Sprintf("/posts/%d/", post.ID), alice, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, api.store.deleted)
}

func TestComments(t *testing.T) {
	api := newTestAPI(t)
	_, alice := api.signup(t, "alice")
	bobID, bob := api.signup(t, "bob")

	post := api.createPost(t, alice, gin.H{"title": "t", "description": "d"})
	other := api.createPost(t, alice, gin.H{"title": "t2", "description": "d2"})
	base := fmt.Sprintf("/posts/%d/comments/", post.ID)

	rec := api.do(t, http.MethodPost, base, "", gin.H{"content": "hi"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, base, bob, gin.H{"content": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/posts/999/comments/", bob, gin.H{"content": "hi"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPost, base, bob, gin.H{"content": "hi"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var comment CommentResponse
	decode(t, rec, &comment)
	assert.Equal(t, post.ID, comment.Post)
	assert.Equal(t, bobID, comment.Author)
	assert.Equal(t, "bob", comment.AuthorName)
	assert.Equal(t, 0, comment.Likes)

	path := fmt.Sprintf("%s%d/", base, comment.ID)
	rec = api.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, fmt.Sprintf("/posts/%d/comments/%d/", other.ID, comment.ID), "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPut, path, "", gin.H{"content": "anon"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = api.do(t, http.MethodDelete, path, "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPut, path, alice, gin.H{"content": "mine now"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = api.do(t, http.MethodPut, path, alice, gin.H{})
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = api.do(t, http.MethodDelete, path, alice, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPut, fmt.Sprintf("%s999/", base), bob, gin.H{})
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.do(t, http.MethodDelete, fmt.Sprintf("%s999/", base), bob, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.do(t, http.MethodPut, path, bob, gin.H{"content": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPut, path, bob, gin.H{"content": "edited", "likes": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &comment)
	assert.Equal(t, "edited", comment.Content)
	assert.Equal(t, 3, comment.Likes)
	assert.Equal(t, bobID, comment.Author)

	rec = api.do(t, http.MethodPut, path, bob, gin.H{"content": "again"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &comment)
	assert.Equal(t, 3, comment.Likes)

	rec = api.do(t, http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []CommentResponse
	decode(t, rec, &list)
	require.Len(t, list, 1)

	rec = api.do(t, http.MethodDelete, path, bob, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
