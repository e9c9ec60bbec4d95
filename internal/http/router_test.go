package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/bus"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/domain/poll"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/domain/session"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/domain/vote"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/platform/token"
)

type testPollRepo struct {
	mu    sync.Mutex
	polls map[string]*poll.Poll
	opts  map[string][]poll.Option
}

func newTestPollRepo() *testPollRepo {
	return &testPollRepo{
		polls: make(map[string]*poll.Poll),
		opts:  make(map[string][]poll.Option),
	}
}

func (r *testPollRepo) Create(ctx context.Context, p *poll.Poll, options []poll.Option) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now()
	copyPoll := *p
	r.polls[p.ID] = &copyPoll

	cloned := make([]poll.Option, len(options))
	for i, opt := range options {
		opt.ID = uuid.NewString()
		opt.PollID = p.ID
		opt.CreatedAt = time.Now()
		cloned[i] = opt
	}
	r.opts[p.ID] = cloned
	return p.ID, nil
}

func (r *testPollRepo) GetByID(ctx context.Context, id string) (*poll.Poll, []poll.Option, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return nil, nil, poll.ErrPollNotFound
	}
	copyPoll := *p
	copiedOpts := make([]poll.Option, len(r.opts[id]))
	copy(copiedOpts, r.opts[id])
	return &copyPoll, copiedOpts, nil
}

func (r *testPollRepo) ListIDs(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.polls))
	for id := range r.polls {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *testPollRepo) OptionInPoll(ctx context.Context, pollID, optionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, opt := range r.opts[pollID] {
		if opt.ID == optionID {
			return true, nil
		}
	}
	return false, nil
}

type testVoteRepo struct {
	mu    sync.Mutex
	rows  map[string]*vote.Vote
	byKey map[string]string
}

func newTestVoteRepo() *testVoteRepo {
	return &testVoteRepo{
		rows:  make(map[string]*vote.Vote),
		byKey: make(map[string]string),
	}
}

func (r *testVoteRepo) key(sessionID, pollID string) string { return sessionID + "|" + pollID }

func (r *testVoteRepo) FindByVoterAndPoll(ctx context.Context, sessionID, pollID string) (*vote.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byKey[r.key(sessionID, pollID)]
	if !ok {
		return nil, nil
	}
	copyVote := *r.rows[id]
	return &copyVote, nil
}

func (r *testVoteRepo) Create(ctx context.Context, v *vote.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := r.key(v.SessionID, v.PollID)
	if _, ok := r.byKey[key]; ok {
		return vote.ErrVoteConflict
	}
	v.ID = uuid.NewString()
	v.CreatedAt = time.Now()
	copyVote := *v
	r.rows[v.ID] = &copyVote
	r.byKey[key] = v.ID
	return nil
}

func (r *testVoteRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.rows[id]
	if !ok {
		return vote.ErrVoteConflict
	}
	delete(r.byKey, r.key(v.SessionID, v.PollID))
	delete(r.rows, id)
	return nil
}

func (r *testVoteRepo) CountByPoll(ctx context.Context, pollID string) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, v := range r.rows {
		if v.PollID == pollID {
			counts[v.OptionID]++
		}
	}
	return counts, nil
}

func (r *testVoteRepo) rowCount(pollID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, v := range r.rows {
		if v.PollID == pollID {
			n++
		}
	}
	return n
}

type testTally struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newTestTally() *testTally {
	return &testTally{counts: make(map[string]int64)}
}

func (t *testTally) IncrBy(ctx context.Context, pollID, optionID string, delta int64) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[pollID+"|"+optionID] += delta
	return t.counts[pollID+"|"+optionID], nil
}

func (t *testTally) Scores(ctx context.Context, pollID string) (map[string]int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	scores := make(map[string]int64)
	for key, c := range t.counts {
		if len(key) > len(pollID)+1 && key[:len(pollID)] == pollID {
			scores[key[len(pollID)+1:]] = c
		}
	}
	return scores, nil
}

func (t *testTally) Ping(ctx context.Context) error { return nil }

type testEnv struct {
	router   http.Handler
	voteRepo *testVoteRepo
	bus      *bus.MemoryBus
}

func newTestEnv() *testEnv {
	pollRepo := newTestPollRepo()
	voteRepo := newTestVoteRepo()
	tallyStore := newTestTally()
	memBus := bus.NewMemoryBus()
	tokens := token.NewManager("test-secret", "")

	pollSvc := poll.NewService(pollRepo, tallyStore)
	voteSvc := vote.NewService(voteRepo, pollRepo, tallyStore, memBus, session.NewIssuer(), zap.NewNop())

	return &testEnv{
		router:   NewRouter(pollSvc, voteSvc, tokens, memBus, nil, tallyStore),
		voteRepo: voteRepo,
		bus:      memBus,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createPoll(t *testing.T, title string, options ...string) (string, map[string]string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/polls", createPollRequest{Title: title, Options: options}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create poll status %d: %s", rec.Code, rec.Body.String())
	}
	var created map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created["status"] != "success" || created["poll_id"] == "" {
		t.Fatalf("unexpected create response %v", created)
	}

	rec = e.do(t, http.MethodGet, "/polls/"+created["poll_id"], nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get poll status %d", rec.Code)
	}
	var got map[string]pollResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode poll: %v", err)
	}
	optionsByTitle := make(map[string]string)
	for _, opt := range got["poll"].Options {
		optionsByTitle[opt.Title] = opt.ID
	}
	return created["poll_id"], optionsByTitle
}

func (e *testEnv) scores(t *testing.T, pollID string) map[string]int64 {
	t.Helper()
	rec := e.do(t, http.MethodGet, "/polls/"+pollID, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get poll status %d", rec.Code)
	}
	var got map[string]pollResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode poll: %v", err)
	}
	scores := make(map[string]int64)
	for _, opt := range got["poll"].Options {
		scores[opt.Title] = opt.Score
	}
	return scores
}

func TestVoteFlowAcrossRequests(t *testing.T) {
	env := newTestEnv()
	pollID, options := env.createPoll(t, "Best framework?", "Vue", "React")

	// First vote mints an identity cookie and counts for Vue.
	rec := env.do(t, http.MethodPost, "/polls/"+pollID+"/votes", voteRequest{PollOptionID: options["Vue"]}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first vote status %d: %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	var sessionCookie *http.Cookie
	for _, c := range cookies {
		if c.Name == sessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatalf("expected identity cookie on first contact")
	}
	if sessionCookie.Path != "/" || !sessionCookie.HttpOnly {
		t.Fatalf("unexpected cookie attributes %+v", sessionCookie)
	}
	if wantMaxAge := int((30 * 24 * time.Hour).Seconds()); sessionCookie.MaxAge != wantMaxAge {
		t.Fatalf("expected 30 day max-age, got %d", sessionCookie.MaxAge)
	}

	if got := env.scores(t, pollID); got["Vue"] != 1 || got["React"] != 0 {
		t.Fatalf("unexpected scores after first vote: %v", got)
	}

	// Re-voting the same option with the same identity is rejected.
	rec = env.do(t, http.MethodPost, "/polls/"+pollID+"/votes", voteRequest{PollOptionID: options["Vue"]}, []*http.Cookie{sessionCookie})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate vote status %d", rec.Code)
	}
	var errBody map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &errBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errBody["message"] != "You already voted on this poll" {
		t.Fatalf("unexpected duplicate message %q", errBody["message"])
	}
	if got := env.scores(t, pollID); got["Vue"] != 1 || got["React"] != 0 {
		t.Fatalf("duplicate vote changed scores: %v", got)
	}

	// Changing the vote: subscribers see the Vue decrement before the
	// React increment.
	updates, cancelSub := env.bus.Subscribe(pollID)
	defer cancelSub()

	rec = env.do(t, http.MethodPost, "/polls/"+pollID+"/votes", voteRequest{PollOptionID: options["React"]}, []*http.Cookie{sessionCookie})
	if rec.Code != http.StatusCreated {
		t.Fatalf("vote change status %d: %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			t.Fatalf("known identity was re-minted")
		}
	}

	first := <-updates
	if first.OptionID != options["Vue"] || first.Votes != 0 {
		t.Fatalf("expected {Vue,0} first, got %+v", first)
	}
	second := <-updates
	if second.OptionID != options["React"] || second.Votes != 1 {
		t.Fatalf("expected {React,1} second, got %+v", second)
	}

	if got := env.scores(t, pollID); got["Vue"] != 0 || got["React"] != 1 {
		t.Fatalf("unexpected scores after change: %v", got)
	}

	// A second voter (no cookie) pushes React to 2 with two vote rows.
	rec = env.do(t, http.MethodPost, "/polls/"+pollID+"/votes", voteRequest{PollOptionID: options["React"]}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("second voter status %d", rec.Code)
	}
	if got := env.scores(t, pollID); got["React"] != 2 {
		t.Fatalf("expected React score 2, got %v", got)
	}
	if env.voteRepo.rowCount(pollID) != 2 {
		t.Fatalf("expected two vote rows, got %d", env.voteRepo.rowCount(pollID))
	}
}

func TestVoteValidation(t *testing.T) {
	env := newTestEnv()
	pollID, options := env.createPoll(t, "Best framework?", "Vue", "React")
	otherPollID, otherOptions := env.createPoll(t, "Best DB?", "Postgres", "Redis")

	rec := env.do(t, http.MethodPost, "/polls/not-a-uuid/votes", voteRequest{PollOptionID: options["Vue"]}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad poll id, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/polls/"+pollID+"/votes", voteRequest{PollOptionID: "not-a-uuid"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad option id, got %d", rec.Code)
	}

	// An option of another poll is rejected before any state changes.
	rec = env.do(t, http.MethodPost, "/polls/"+pollID+"/votes", voteRequest{PollOptionID: otherOptions["Redis"]}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for foreign option, got %d", rec.Code)
	}
	if env.voteRepo.rowCount(pollID) != 0 || env.voteRepo.rowCount(otherPollID) != 0 {
		t.Fatalf("rejected vote mutated state")
	}
}

func TestCreatePollValidation(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/polls", createPollRequest{Title: "", Options: []string{"A", "B"}}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty title, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/polls", createPollRequest{Title: "T", Options: []string{"A"}}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for one option, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/polls/"+uuid.NewString(), nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown poll, got %d", rec.Code)
	}
}

func TestTamperedCookieTreatedAsFirstContact(t *testing.T) {
	env := newTestEnv()
	pollID, options := env.createPoll(t, "Best framework?", "Vue", "React")

	bad := &http.Cookie{Name: sessionCookieName, Value: "not.a.token"}
	rec := env.do(t, http.MethodPost, "/polls/"+pollID+"/votes", voteRequest{PollOptionID: options["Vue"]}, []*http.Cookie{bad})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected vote with bad cookie to mint a fresh identity, got %d", rec.Code)
	}

	minted := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value != bad.Value {
			minted = true
		}
	}
	if !minted {
		t.Fatalf("expected a fresh identity cookie")
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv()
	rec := env.do(t, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status %d", rec.Code)
	}
}
