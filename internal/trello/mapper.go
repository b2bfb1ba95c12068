package trello

import (
	"strconv"
	"time"

	"github.com/tkc/boardctl/internal/domain"
)

// Mapper はTrello APIの型と統一モデルを相互に変換する
// 入出力を持たない純粋な変換のみを行う
type Mapper struct{}

// ToTask はカードをTaskに変換する
// listNameが空でcard.Listがあればそちらの名前を使う。Numberは常に0
func (Mapper) ToTask(card Card, listName string) domain.Task {
	if listName == "" && card.List != nil {
		listName = card.List.Name
	}

	var desc *string
	if card.Desc != "" {
		d := card.Desc
		desc = &d
	}

	var due *time.Time
	if card.Due != nil {
		d := *card.Due
		due = &d
	}

	comments := card.Badges.Comments
	url := card.ShortURL
	if url == "" {
		url = card.URL
	}

	return domain.Task{
		ID:           card.ID,
		Title:        card.Name,
		Description:  desc,
		Status:       cardStatus(card),
		ColumnID:     card.IDList,
		ColumnName:   listName,
		CreatedAt:    createdAt(card.ID),
		UpdatedAt:    card.DateLastActivity,
		DueDate:      due,
		DueComplete:  card.DueComplete,
		AssigneeIDs:  copyIDs(card.IDMembers),
		LabelIDs:     copyIDs(card.IDLabels),
		URL:          url,
		Archived:     card.Closed,
		CommentCount: &comments,
		Raw:          card,
	}
}

// cardStatus はカードの状態からStatusを推定する
// Trelloには進行中の概念がなく、所属リストは考慮しない
func cardStatus(card Card) domain.Status {
	switch {
	case card.Closed:
		return domain.StatusArchived
	case card.DueComplete:
		return domain.StatusDone
	default:
		return domain.StatusOpen
	}
}

// createdAt はカードIDの先頭8桁 (ObjectIDのタイムスタンプ) から作成日時を得る
func createdAt(id string) time.Time {
	if len(id) < 8 {
		return time.Time{}
	}
	secs, err := strconv.ParseInt(id[:8], 16, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}

// ToBoard はボードを変換する
func (Mapper) ToBoard(b Board) domain.Board {
	var desc *string
	if b.Desc != "" {
		d := b.Desc
		desc = &d
	}
	return domain.Board{
		ID:          b.ID,
		Name:        b.Name,
		Description: desc,
		URL:         b.URL,
		Closed:      b.Closed,
	}
}

// ToColumn はリストを変換する
func (Mapper) ToColumn(l List, position int) domain.Column {
	return domain.Column{
		ID:       l.ID,
		Name:     l.Name,
		Position: position,
		Closed:   l.Closed,
	}
}

// ToMember はメンバーを変換する
func (Mapper) ToMember(m Member) domain.Member {
	var avatar *string
	if m.AvatarURL != nil && *m.AvatarURL != "" {
		a := *m.AvatarURL + "/170.png"
		avatar = &a
	}
	member := domain.Member{
		ID:          m.ID,
		Username:    m.Username,
		DisplayName: m.FullName,
		AvatarURL:   avatar,
	}
	if member.DisplayName == "" {
		member.DisplayName = m.Username
	}
	if m.Email != nil {
		member.Email = *m.Email
	}
	return member
}

// ToLabel はラベルを変換する。色はTrelloの色名のまま
func (Mapper) ToLabel(l Label) domain.Label {
	return domain.Label{ID: l.ID, Name: l.Name, Color: l.Color}
}

// ToComment はコメントアクションを変換する
func (m Mapper) ToComment(a Action) domain.Comment {
	return domain.Comment{
		ID:        a.ID,
		Text:      a.Data.Text,
		Author:    m.ToMember(a.MemberCreator),
		CreatedAt: a.Date,
	}
}

// ToCreateRequest は作成パラメータをリクエストに変換する
func (Mapper) ToCreateRequest(columnID string, params domain.CreateTaskParams) CreateCardRequest {
	req := CreateCardRequest{
		IDList:    columnID,
		Name:      params.Title,
		Due:       params.DueDate,
		IDMembers: joinIDs(params.AssigneeIDs),
		IDLabels:  joinIDs(params.LabelIDs),
		Pos:       "bottom",
	}
	if params.Description != nil {
		req.Desc = *params.Description
	}
	return req
}

// ToUpdateRequest は更新パラメータをリクエストに変換する
func (Mapper) ToUpdateRequest(params domain.UpdateTaskParams) UpdateCardRequest {
	return UpdateCardRequest{
		Name:        params.Title,
		Desc:        params.Description,
		Due:         params.DueDate,
		ClearDue:    params.ClearDueDate,
		DueComplete: params.DueComplete,
	}
}

func copyIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
