package web_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"socialfeed/internal/adapters/memstore"
	"socialfeed/internal/adapters/web"
	"socialfeed/internal/domain"
	"socialfeed/internal/usecases"
)

type nopNotifier struct{}

func (nopNotifier) Broadcast(context.Context, domain.Event) {}

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "h:" + p, nil }

type testServer struct {
	app    *fiber.App
	tweets *usecases.TweetService
	users  *usecases.UserService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memstore.New()
	users := usecases.NewUserService(store, plainHasher{})
	tweets := usecases.NewTweetService(store, users, nopNotifier{})

	app := web.NewApp(web.AppConfig{CORSOrigins: []string{"http://localhost:5173"}}, web.Handlers{
		Tweets: web.NewTweetHandlers(tweets, 5*time.Second),
		Users:  web.NewUserHandlers(users, 5*time.Second),
		Pages:  web.NewPageHandlers(tweets, 5*time.Second),
	})
	return &testServer{app: app, tweets: tweets, users: users}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func assertError(t *testing.T, status int, data []byte, wantStatus int, wantKind domain.Kind) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("status = %d, want %d (body %s)", status, wantStatus, data)
	}
	e := decode[web.ErrorResponse](t, data)
	if e.Kind != wantKind || e.Error == "" {
		t.Errorf("error body = %+v, want kind %q", e, wantKind)
	}
}

func TestCreateTweet_ReturnsCreated(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	u, _ := s.users.Create(context.Background(), "u1", "pw")

	// Act
	status, data := s.do(t, http.MethodPost, "/api/tweet", `{"body":"Hello World","userId":`+itoa(u.ID)+`}`)

	// Assert
	if status != http.StatusCreated {
		t.Fatalf("status = %d, body %s", status, data)
	}
	tw := decode[domain.Tweet](t, data)
	if tw.Body != "Hello World" || tw.Likes != 0 || tw.ParentID != nil {
		t.Errorf("tweet = %+v", tw)
	}
	if tw.Author == nil || tw.Author.Username != "u1" {
		t.Errorf("author = %+v", tw.Author)
	}
	if strings.Contains(string(data), "h:pw") {
		t.Error("password hash must not be serialized")
	}
}

func TestCreateTweet_Errors(t *testing.T) {
	s := newTestServer(t)
	u, _ := s.users.Create(context.Background(), "u1", "pw")
	uid := itoa(u.ID)

	status, data := s.do(t, http.MethodPost, "/api/tweet", `{"body":"   ","userId":`+uid+`}`)
	assertError(t, status, data, http.StatusBadRequest, domain.KindValidation)

	status, data = s.do(t, http.MethodPost, "/api/tweet", `{"body":"reply","userId":`+uid+`,"parentId":77}`)
	assertError(t, status, data, http.StatusNotFound, domain.KindNotFound)

	status, data = s.do(t, http.MethodPost, "/api/tweet", `{"body":"hi","userId":999}`)
	assertError(t, status, data, http.StatusNotFound, domain.KindNotFound)

	status, data = s.do(t, http.MethodPost, "/api/tweet", `{not json`)
	assertError(t, status, data, http.StatusBadRequest, domain.KindValidation)
}

func TestGetAll_EmptyFeedIs404(t *testing.T) {
	s := newTestServer(t)

	status, data := s.do(t, http.MethodGet, "/api/tweet", "")

	assertError(t, status, data, http.StatusNotFound, domain.KindNotFound)
}

func TestLikeUnlikeFlow(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	u, _ := s.users.Create(ctx, "u1", "pw")
	tw, _ := s.tweets.Create(ctx, u.ID, "Hello World", nil)
	base := "/api/tweet/" + itoa(tw.ID)

	status, data := s.do(t, http.MethodPost, base+"/like", "")
	if status != http.StatusOK || !decode[web.SuccessResponse](t, data).Success {
		t.Fatalf("like: %d %s", status, data)
	}

	status, _ = s.do(t, http.MethodPost, base+"/unlike", "")
	if status != http.StatusOK {
		t.Fatalf("unlike: %d", status)
	}

	status, data = s.do(t, http.MethodPost, base+"/unlike", "")
	assertError(t, status, data, http.StatusConflict, domain.KindConflict)

	status, data = s.do(t, http.MethodPost, "/api/tweet/404/like", "")
	assertError(t, status, data, http.StatusNotFound, domain.KindNotFound)
}

func TestUpdateTweet_JSONAndQuery(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	u, _ := s.users.Create(ctx, "u1", "pw")
	tw, _ := s.tweets.Create(ctx, u.ID, "draft", nil)
	path := "/api/tweet/" + itoa(tw.ID)

	status, data := s.do(t, http.MethodPut, path, `{"body":"from json"}`)
	if status != http.StatusOK || decode[domain.Tweet](t, data).Body != "from json" {
		t.Fatalf("json update: %d %s", status, data)
	}

	status, data = s.do(t, http.MethodPut, path+"?newBody=from%20query", "")
	if status != http.StatusOK || decode[domain.Tweet](t, data).Body != "from query" {
		t.Fatalf("query update: %d %s", status, data)
	}

	status, data = s.do(t, http.MethodPut, path, `{"body":""}`)
	assertError(t, status, data, http.StatusBadRequest, domain.KindValidation)
}

func TestDeleteCascadeAndReplies(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	u, _ := s.users.Create(ctx, "u1", "pw")
	t1, _ := s.tweets.Create(ctx, u.ID, "Hello World", nil)
	parent := t1.ID
	t2, _ := s.tweets.Create(ctx, u.ID, "reply", &parent)

	status, data := s.do(t, http.MethodGet, "/api/tweet/"+itoa(t1.ID)+"/replies", "")
	if status != http.StatusOK {
		t.Fatalf("replies: %d %s", status, data)
	}
	if replies := decode[[]domain.Tweet](t, data); len(replies) != 1 || replies[0].ID != t2.ID {
		t.Errorf("replies = %+v", replies)
	}

	status, data = s.do(t, http.MethodDelete, "/api/tweet/"+itoa(t1.ID), "")
	if status != http.StatusOK || !decode[web.SuccessResponse](t, data).Success {
		t.Fatalf("delete: %d %s", status, data)
	}

	status, data = s.do(t, http.MethodGet, "/api/tweet/"+itoa(t2.ID), "")
	assertError(t, status, data, http.StatusNotFound, domain.KindNotFound)
}

func TestGetByAuthor(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	u, _ := s.users.Create(ctx, "u1", "pw")

	status, data := s.do(t, http.MethodGet, "/api/tweet/user/0", "")
	assertError(t, status, data, http.StatusBadRequest, domain.KindValidation)

	status, data = s.do(t, http.MethodGet, "/api/tweet/user/"+itoa(u.ID), "")
	assertError(t, status, data, http.StatusNotFound, domain.KindNotFound)

	s.tweets.Create(ctx, u.ID, "mine", nil)
	status, data = s.do(t, http.MethodGet, "/api/tweet/user/"+itoa(u.ID), "")
	if status != http.StatusOK || len(decode[[]domain.Tweet](t, data)) != 1 {
		t.Errorf("by author: %d %s", status, data)
	}
}

func TestMalformedID_Is400(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/tweet/abc", "/api/tweet/-1", "/api/user/xyz"} {
		status, data := s.do(t, http.MethodGet, path, "")
		assertError(t, status, data, http.StatusBadRequest, domain.KindValidation)
	}
}

func TestUsers(t *testing.T) {
	s := newTestServer(t)

	status, data := s.do(t, http.MethodGet, "/api/user", "")
	if status != http.StatusOK || strings.TrimSpace(string(data)) != "[]" {
		t.Fatalf("empty users: %d %s", status, data)
	}

	status, data = s.do(t, http.MethodPost, "/api/user", `{"username":"alice","password":"pw"}`)
	if status != http.StatusCreated {
		t.Fatalf("create: %d %s", status, data)
	}
	alice := decode[domain.User](t, data)
	if strings.Contains(string(data), "password") {
		t.Errorf("user JSON leaks password: %s", data)
	}

	status, data = s.do(t, http.MethodPost, "/api/user", `{"username":"alice","password":"pw"}`)
	assertError(t, status, data, http.StatusConflict, domain.KindConflict)

	status, data = s.do(t, http.MethodPost, "/api/user", `{"username":"","password":"pw"}`)
	assertError(t, status, data, http.StatusBadRequest, domain.KindValidation)

	status, data = s.do(t, http.MethodGet, "/api/user/username/alice", "")
	if status != http.StatusOK || decode[domain.User](t, data).ID != alice.ID {
		t.Fatalf("by username: %d %s", status, data)
	}

	// A username miss is a conflict in the service but a 404 over HTTP.
	status, data = s.do(t, http.MethodGet, "/api/user/username/nobody", "")
	assertError(t, status, data, http.StatusNotFound, domain.KindNotFound)

	status, data = s.do(t, http.MethodGet, "/api/user/"+itoa(alice.ID), "")
	if status != http.StatusOK {
		t.Fatalf("by id: %d %s", status, data)
	}

	status, _ = s.do(t, http.MethodDelete, "/api/user/"+itoa(alice.ID), "")
	if status != http.StatusOK {
		t.Fatalf("delete: %d", status)
	}
	status, data = s.do(t, http.MethodGet, "/api/user/"+itoa(alice.ID), "")
	assertError(t, status, data, http.StatusNotFound, domain.KindNotFound)
}

func TestUnknownRoute_UsesErrorFormat(t *testing.T) {
	s := newTestServer(t)

	status, data := s.do(t, http.MethodGet, "/api/nothing-here", "")

	assertError(t, status, data, http.StatusNotFound, domain.KindNotFound)
}

func TestFeedPage(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	status, data := s.do(t, http.MethodGet, "/", "")
	if status != http.StatusOK || !strings.Contains(string(data), "No tweets yet.") {
		t.Fatalf("empty feed: %d %s", status, data)
	}

	u, _ := s.users.Create(ctx, "u1", "pw")
	s.tweets.Create(ctx, u.ID, "<b>escaped</b>", nil)

	status, data = s.do(t, http.MethodGet, "/", "")
	body := string(data)
	if status != http.StatusOK || !strings.Contains(body, "&lt;b&gt;escaped&lt;/b&gt;") {
		t.Errorf("feed: %d %s", status, body)
	}
	if strings.Contains(body, "<b>escaped</b>") {
		t.Error("tweet body must be HTML escaped")
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	status, data := s.do(t, http.MethodGet, "/health", "")

	if status != http.StatusOK || decode[map[string]any](t, data)["status"] != "ok" {
		t.Errorf("health: %d %s", status, data)
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[domain.Kind]int{
		domain.KindValidation: 400,
		domain.KindNotFound:   404,
		domain.KindConflict:   409,
		domain.KindInternal:   500,
		domain.Kind("other"):  500,
	}
	for kind, want := range tests {
		if got := web.StatusFor(kind); got != want {
			t.Errorf("StatusFor(%q) = %d, want %d", kind, got, want)
		}
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
