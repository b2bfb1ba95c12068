package trello

import (
	"reflect"
	"testing"
	"time"

	"github.com/tkc/boardctl/internal/domain"
)

func sampleCard() Card {
	due := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return Card{
		ID:               "5f1a2b3c0000000000000000",
		IDShort:          7,
		Name:             "Write docs",
		Desc:             "all of them",
		IDList:           "list-1",
		IDBoard:          "board-1",
		Due:              &due,
		IDMembers:        []string{"m1", "m2"},
		IDLabels:         []string{"l1"},
		URL:              "https://trello.com/c/abc/7-write-docs",
		ShortURL:         "https://trello.com/c/abc",
		DateLastActivity: time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC),
		Badges:           Badges{Comments: 3},
		List:             &List{ID: "list-1", Name: "Doing"},
	}
}

func TestToTaskStatus(t *testing.T) {
	m := Mapper{}
	tests := []struct {
		name         string
		closed       bool
		dueComplete  bool
		wantStatus   domain.Status
		wantArchived bool
	}{
		{"open", false, false, domain.StatusOpen, false},
		{"due complete", false, true, domain.StatusDone, false},
		{"closed wins", true, true, domain.StatusArchived, true},
		{"closed", true, false, domain.StatusArchived, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := sampleCard()
			card.Closed = tt.closed
			card.DueComplete = tt.dueComplete
			task := m.ToTask(card, "")
			if task.Status != tt.wantStatus || task.Archived != tt.wantArchived {
				t.Fatalf("got status=%s archived=%v", task.Status, task.Archived)
			}
		})
	}
}

func TestToTaskIgnoresListForStatus(t *testing.T) {
	card := sampleCard()
	card.List = &List{ID: "list-1", Name: "In Progress"}
	if got := (Mapper{}).ToTask(card, "").Status; got != domain.StatusOpen {
		t.Fatalf("list name must not drive status, got %s", got)
	}
}

func TestToTaskFields(t *testing.T) {
	task := Mapper{}.ToTask(sampleCard(), "")

	if task.Number != 0 {
		t.Fatalf("mapper must emit number 0, got %d", task.Number)
	}
	if task.ColumnID != "list-1" || task.ColumnName != "Doing" {
		t.Fatalf("column = %s/%s", task.ColumnID, task.ColumnName)
	}
	if task.Description == nil || *task.Description != "all of them" {
		t.Fatalf("description = %v", task.Description)
	}
	if task.CommentCount == nil || *task.CommentCount != 3 {
		t.Fatalf("comment count = %v", task.CommentCount)
	}
	if want := time.Unix(0x5f1a2b3c, 0).UTC(); !task.CreatedAt.Equal(want) {
		t.Fatalf("created at = %s, want %s", task.CreatedAt, want)
	}
	if task.URL != "https://trello.com/c/abc" {
		t.Fatalf("url = %s", task.URL)
	}
	if !reflect.DeepEqual(task.AssigneeIDs, []string{"m1", "m2"}) {
		t.Fatalf("assignees = %v", task.AssigneeIDs)
	}
}

func TestToTaskExplicitListNameWins(t *testing.T) {
	task := Mapper{}.ToTask(sampleCard(), "Review")
	if task.ColumnName != "Review" {
		t.Fatalf("column name = %s", task.ColumnName)
	}
}

func TestToTaskIsPure(t *testing.T) {
	card := sampleCard()
	a := Mapper{}.ToTask(card, "")
	b := Mapper{}.ToTask(card, "")
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("mapping is not deterministic:\n%+v\n%+v", a, b)
	}

	a.AssigneeIDs[0] = "changed"
	if card.IDMembers[0] != "m1" {
		t.Fatal("task slices must not alias the raw card")
	}
}

func TestToMember(t *testing.T) {
	avatar := "https://trello-members.s3.amazonaws.com/abc"
	email := "a@example.com"
	m := Mapper{}.ToMember(Member{ID: "m1", Username: "alice", AvatarURL: &avatar, Email: &email})
	if m.DisplayName != "alice" {
		t.Fatalf("display name should fall back to username, got %q", m.DisplayName)
	}
	if m.AvatarURL == nil || *m.AvatarURL != avatar+"/170.png" {
		t.Fatalf("avatar = %v", m.AvatarURL)
	}
	if m.Email != email {
		t.Fatalf("email = %q", m.Email)
	}
}

func TestToCreateRequest(t *testing.T) {
	desc := "d"
	req := Mapper{}.ToCreateRequest("list-9", domain.CreateTaskParams{
		Title:       "t",
		Description: &desc,
		AssigneeIDs: []string{"a", "b"},
		LabelIDs:    []string{"x"},
	})
	if req.IDList != "list-9" || req.Desc != "d" || req.IDMembers != "a,b" || req.IDLabels != "x" {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestUpdateCardRequestBody(t *testing.T) {
	name := "new"
	body := UpdateCardRequest{Name: &name, ClearDue: true}.body()
	if body["name"] != "new" {
		t.Fatalf("name = %v", body["name"])
	}
	v, ok := body["due"]
	if !ok || v != nil {
		t.Fatalf("clearing due must send an explicit null, got %v (present=%v)", v, ok)
	}
	if _, ok := body["closed"]; ok {
		t.Fatal("unset fields must not be sent")
	}
}
