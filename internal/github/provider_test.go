package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/tkc/boardctl/internal/domain"
	"github.com/tkc/boardctl/internal/provider"
	"github.com/tkc/boardctl/internal/ratelimit"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

// fakeGitHub is a minimal in-memory GitHub API for the repository o/r.
type fakeGitHub struct {
	mu       sync.Mutex
	requests []recordedRequest
	issues   map[int]*Issue
}

func newFakeGitHub() *fakeGitHub {
	pr := json.RawMessage(`{"url":"https://api.github.com/repos/o/r/pulls/2"}`)
	return &fakeGitHub{issues: map[int]*Issue{
		1: {Number: 1, Title: "first", State: "open", Labels: labels("status:todo", "bug")},
		2: {Number: 2, Title: "a pull request", State: "open", PullRequest: &pr},
		3: {Number: 3, Title: "shipped", State: "closed"},
	}}
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer tok" {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"Bad credentials"}`)
		return
	}

	rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
	}
	f.requests = append(f.requests, rec)

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.URL.Path == "/user":
		writeJSON(w, User{Login: "octo"})
	case r.URL.Path == "/graphql":
		writeJSON(w, map[string]any{"data": map[string]any{
			"viewer": map[string]any{"login": "octo", "name": "Octo Cat", "url": "https://github.com/octo"},
		}})
	case r.URL.Path == "/repos/o/r":
		writeJSON(w, Repo{FullName: "o/r", HTMLURL: "https://github.com/o/r"})
	case r.URL.Path == "/repos/o/r/labels":
		writeJSON(w, labels("status:todo", "status:doing", "bug"))
	case r.URL.Path == "/repos/o/r/issues" && r.Method == http.MethodGet:
		f.listIssues(w, r)
	case r.URL.Path == "/repos/o/r/issues" && r.Method == http.MethodPost:
		n := len(f.issues) + 1
		issue := &Issue{Number: n, Title: rec.Body["title"].(string), State: "open"}
		if ls, ok := rec.Body["labels"].([]any); ok {
			for _, l := range ls {
				issue.Labels = append(issue.Labels, Label{Name: l.(string)})
			}
		}
		f.issues[n] = issue
		writeJSON(w, issue)
	case len(parts) >= 5 && parts[0] == "repos" && parts[3] == "issues":
		n, _ := strconv.Atoi(parts[4])
		issue, ok := f.issues[n]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"Not Found"}`)
			return
		}
		f.serveIssue(w, r, rec, issue, parts[5:])
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	}
}

func (f *fakeGitHub) listIssues(w http.ResponseWriter, r *http.Request) {
	numbers := make([]int, 0, len(f.issues))
	for n := range f.issues {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	start := (page - 1) * perPage
	out := make([]Issue, 0, perPage)
	for i := start; i < len(numbers) && i < start+perPage; i++ {
		out = append(out, *f.issues[numbers[i]])
	}
	writeJSON(w, out)
}

func (f *fakeGitHub) serveIssue(w http.ResponseWriter, r *http.Request, rec recordedRequest, issue *Issue, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodPatch:
		if v, ok := rec.Body["state"].(string); ok {
			issue.State = v
		}
		if v, ok := rec.Body["title"].(string); ok {
			issue.Title = v
		}
		writeJSON(w, issue)
	case len(rest) == 0:
		writeJSON(w, issue)
	case rest[0] == "labels" && r.Method == http.MethodPut:
		issue.Labels = nil
		for _, l := range rec.Body["labels"].([]any) {
			issue.Labels = append(issue.Labels, Label{Name: l.(string)})
		}
		writeJSON(w, issue.Labels)
	case rest[0] == "comments" && r.Method == http.MethodPost:
		issue.Comments++
		writeJSON(w, IssueComment{ID: 77, Body: rec.Body["body"].(string), User: User{Login: "octo"}})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeGitHub) all() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func (f *fakeGitHub) writes() []recordedRequest {
	var out []recordedRequest
	for _, r := range f.all() {
		if r.Method != http.MethodGet {
			out = append(out, r)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestProvider(t *testing.T) (*Provider, *fakeGitHub) {
	t.Helper()
	fake := newFakeGitHub()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	logger, _ := test.NewNullLogger()
	p := NewProvider(WithBaseURL(srv.URL), WithLimiter(ratelimit.New(4)), WithLogger(logger))
	if err := p.Initialize(provider.Credentials{Type: provider.AuthPAT, Token: "tok"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := p.SetColumnConfigs(workflowColumns()); err != nil {
		t.Fatalf("SetColumnConfigs: %v", err)
	}
	return p, fake
}

func TestInitialize(t *testing.T) {
	p := NewProvider()
	if err := p.Initialize(provider.Credentials{Type: provider.AuthPAT}); !errors.Is(err, domain.ErrAuthConfigMissing) {
		t.Fatalf("expected ErrAuthConfigMissing, got %v", err)
	}
	if err := p.Initialize(provider.Credentials{Type: provider.AuthAPIKey, Token: "tok"}); !errors.Is(err, domain.ErrAuthConfigMissing) {
		t.Fatalf("api key auth is not a github mode, got %v", err)
	}
	if err := p.Initialize(provider.Credentials{Type: provider.AuthOAuth, Token: "tok"}); err != nil {
		t.Fatalf("oauth: %v", err)
	}
}

func TestMethodsBeforeInitializeAreMisuse(t *testing.T) {
	p := NewProvider()
	ctx := context.Background()
	if _, err := p.ListTasks(ctx, "o/r", nil); !domain.IsMisuse(err) {
		t.Fatalf("expected misuse error, got %v", err)
	}
	if _, err := p.MoveTask(ctx, "o/r#1", "open"); !domain.IsMisuse(err) {
		t.Fatalf("expected misuse error, got %v", err)
	}
	if p.ValidateAuth(ctx) {
		t.Fatal("ValidateAuth must be false before Initialize")
	}
}

func TestValidateAuthAndViewer(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()
	if !p.ValidateAuth(ctx) {
		t.Fatal("expected valid auth")
	}
	v, err := p.CurrentUser(ctx)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if v.Login != "octo" || v.Name != "Octo Cat" {
		t.Fatalf("viewer = %+v", v)
	}

	bad := NewProvider(WithBaseURL(p.client.rest.BaseURL))
	_ = bad.Initialize(provider.Credentials{Token: "wrong"})
	if bad.ValidateAuth(ctx) {
		t.Fatal("expected invalid auth")
	}
	if _, err := bad.CurrentUser(ctx); err == nil {
		t.Fatal("expected an error for a rejected token")
	}
}

func TestListTasksSkipsPullRequests(t *testing.T) {
	p, _ := newTestProvider(t)
	tasks, err := p.ListTasks(context.Background(), "o/r", nil)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if tasks[0].ID != "o/r#1" || tasks[0].ColumnID != "todo" {
		t.Fatalf("first = %+v", tasks[0])
	}
	if tasks[1].ID != "o/r#3" || tasks[1].ColumnID != "done" || tasks[1].Status != domain.StatusDone {
		t.Fatalf("second = %+v", tasks[1])
	}

	if _, err := p.GetTask(context.Background(), "o/r#2"); !domain.IsNotFound(err) {
		t.Fatalf("pull requests are not tasks, got %v", err)
	}
}

func TestListTasksDrainsPages(t *testing.T) {
	p, fake := newTestProvider(t)
	fake.mu.Lock()
	for n := 1; n <= 150; n++ {
		fake.issues[n] = &Issue{Number: n, Title: "issue " + strconv.Itoa(n), State: "open"}
	}
	fake.mu.Unlock()

	tasks, err := p.ListTasks(context.Background(), "o/r", nil)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 150 || tasks[149].Number != 150 {
		t.Fatalf("got %d tasks", len(tasks))
	}

	var pages []string
	for _, r := range fake.all() {
		if r.Path == "/repos/o/r/issues" {
			pages = append(pages, r.Query)
		}
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 page requests, got %v", pages)
	}
	for _, q := range pages {
		if !strings.Contains(q, "per_page=100") || !strings.Contains(q, "state=all") {
			t.Fatalf("unexpected query %q", q)
		}
	}
}

func TestMoveBetweenOpenColumnsOnlyRelabels(t *testing.T) {
	p, fake := newTestProvider(t)

	task, err := p.MoveTask(context.Background(), "o/r#1", "doing")
	if err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	if task.ColumnID != "doing" || task.Status != domain.StatusInProgress {
		t.Fatalf("moved task = %+v", task)
	}

	writes := fake.writes()
	if len(writes) != 1 || writes[0].Method != http.MethodPut || writes[0].Path != "/repos/o/r/issues/1/labels" {
		t.Fatalf("expected a single label write, got %+v", writes)
	}
	got := fmt.Sprint(writes[0].Body["labels"])
	if got != "[bug status:doing]" {
		t.Fatalf("labels = %s", got)
	}
}

func TestMoveToClosedColumn(t *testing.T) {
	p, fake := newTestProvider(t)

	task, err := p.MoveTask(context.Background(), "o/r#1", "done")
	if err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	if !task.Archived || task.Status != domain.StatusDone || task.ColumnID != "done" {
		t.Fatalf("moved task = %+v", task)
	}

	writes := fake.writes()
	if len(writes) != 2 {
		t.Fatalf("expected label and state writes, got %+v", writes)
	}
	if writes[1].Method != http.MethodPatch || writes[1].Body["state"] != "closed" || writes[1].Body["state_reason"] != "completed" {
		t.Fatalf("state write = %+v", writes[1])
	}
}

func TestMoveToSameColumnDoesNotWrite(t *testing.T) {
	p, fake := newTestProvider(t)
	if _, err := p.MoveTask(context.Background(), "o/r#1", "todo"); err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	if w := fake.writes(); len(w) != 0 {
		t.Fatalf("expected no writes, got %+v", w)
	}
}

func TestMoveToUnknownColumn(t *testing.T) {
	p, fake := newTestProvider(t)
	_, err := p.MoveTask(context.Background(), "o/r#1", "nowhere")
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) || len(nf.Available) != 3 {
		t.Fatalf("expected NotFoundError listing columns, got %v", err)
	}
	if len(fake.all()) != 0 {
		t.Fatal("unknown column must fail before any request")
	}
}

func TestArchiveAndUnarchive(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	task, err := p.ArchiveTask(ctx, "o/r#1")
	if err != nil || !task.Archived || task.ColumnID != "done" {
		t.Fatalf("ArchiveTask: %+v %v", task, err)
	}

	// no default bucket is configured, so unarchive only reopens
	task, err = p.UnarchiveTask(ctx, "o/r#3")
	if err != nil || task.Archived || task.ColumnID != "open" {
		t.Fatalf("UnarchiveTask: %+v %v", task, err)
	}
}

func TestDeleteIsUnsupportedWithoutRequests(t *testing.T) {
	p, fake := newTestProvider(t)
	err := p.DeleteTask(context.Background(), "o/r#1")
	if !domain.IsUnsupported(err) {
		t.Fatalf("expected UnsupportedError, got %v", err)
	}
	if len(fake.all()) != 0 {
		t.Fatalf("delete issued requests: %+v", fake.all())
	}
}

func TestEmptyUpdateDoesNotWrite(t *testing.T) {
	p, fake := newTestProvider(t)
	ctx := context.Background()

	before, err := p.GetTask(ctx, "o/r#1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	after, err := p.UpdateTask(ctx, "o/r#1", domain.UpdateTaskParams{})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if len(fake.writes()) != 0 {
		t.Fatalf("empty update issued writes: %+v", fake.writes())
	}
	if before.Title != after.Title || before.ColumnID != after.ColumnID || before.Status != after.Status {
		t.Fatalf("empty update changed the task:\n%+v\n%+v", before, after)
	}

	title := "renamed"
	after, err = p.UpdateTask(ctx, "o/r#1", domain.UpdateTaskParams{Title: &title})
	if err != nil || after.Title != "renamed" || after.ColumnID != "todo" {
		t.Fatalf("UpdateTask: %+v %v", after, err)
	}
}

func TestCreateTask(t *testing.T) {
	p, fake := newTestProvider(t)
	ctx := context.Background()

	task, err := p.CreateTask(ctx, "o/r", "doing", domain.CreateTaskParams{Title: "new", LabelIDs: []string{"bug", "status:todo"}})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ColumnID != "doing" || task.Status != domain.StatusInProgress {
		t.Fatalf("created = %+v", task)
	}
	if got := fmt.Sprint(fake.writes()[0].Body["labels"]); got != "[bug status:doing]" {
		t.Fatalf("create labels = %s", got)
	}

	task, err = p.CreateTask(ctx, "o/r", "done", domain.CreateTaskParams{Title: "already done"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if !task.Archived || task.ColumnID != "done" {
		t.Fatalf("created in closed column = %+v", task)
	}

	due := time.Now()
	if _, err := p.CreateTask(ctx, "o/r", "todo", domain.CreateTaskParams{Title: "x", DueDate: &due}); !domain.IsUnsupported(err) {
		t.Fatalf("expected UnsupportedError for due date, got %v", err)
	}
}

func TestLabelsHideStatusLabels(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	got, err := p.ListLabels(ctx, "o/r")
	if err != nil {
		t.Fatalf("ListLabels: %v", err)
	}
	if len(got) != 1 || got[0].ID != "bug" {
		t.Fatalf("labels = %+v", got)
	}

	var verr *domain.ValidationError
	if err := p.AddLabel(ctx, "o/r#1", "status:doing"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestBoardsAndColumns(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	board, err := p.GetBoard(ctx, "o/r")
	if err != nil || board.ID != "o/r" {
		t.Fatalf("GetBoard: %+v %v", board, err)
	}
	if _, err := p.GetBoard(ctx, "not-a-repo"); err == nil {
		t.Fatal("expected validation error for malformed board id")
	}
	cols, err := p.GetBoardColumns(ctx, "o/r")
	if err != nil || len(cols) != 3 {
		t.Fatalf("GetBoardColumns: %+v %v", cols, err)
	}
	if err := p.SetColumnConfigs([]domain.ColumnConfig{{ID: "a", Name: "A", IsClosedState: true}, {ID: "b", Name: "B", IsClosedState: true}}); err == nil {
		t.Fatal("two closed columns must be rejected")
	}
}

func TestAddComment(t *testing.T) {
	p, _ := newTestProvider(t)
	c, err := p.AddComment(context.Background(), "o/r#1", "looks good")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if c.ID != "77" || c.Text != "looks good" || c.Author.Username != "octo" {
		t.Fatalf("comment = %+v", c)
	}
}

func TestRateLimitedResponse(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(now.Add(90*time.Second).Unix(), 10))
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"API rate limit exceeded"}`)
	}))
	t.Cleanup(srv.Close)

	p := NewProvider(WithBaseURL(srv.URL), WithClock(func() time.Time { return now }))
	_ = p.Initialize(provider.Credentials{Token: "tok"})

	_, err := p.GetTask(context.Background(), "o/r#1")
	var rl *domain.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rl.RetryAfter == nil || *rl.RetryAfter != 90*time.Second {
		t.Fatalf("retry after = %v", rl.RetryAfter)
	}
	if !domain.IsRetryable(err) {
		t.Fatal("rate limit errors are retryable")
	}
}
