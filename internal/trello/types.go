package trello

import "time"

// Board はTrello APIのボード
type Board struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Desc   string `json:"desc"`
	URL    string `json:"url"`
	Closed bool   `json:"closed"`
}

// List はTrello APIのリスト
type List struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Closed  bool    `json:"closed"`
	Pos     float64 `json:"pos"`
	IDBoard string  `json:"idBoard"`
}

// Badges はカードの集計情報
type Badges struct {
	Comments int `json:"comments"`
}

// Card はTrello APIのカード
type Card struct {
	ID               string     `json:"id"`
	IDShort          int        `json:"idShort"`
	Name             string     `json:"name"`
	Desc             string     `json:"desc"`
	Closed           bool       `json:"closed"`
	IDList           string     `json:"idList"`
	IDBoard          string     `json:"idBoard"`
	Due              *time.Time `json:"due"`
	DueComplete      bool       `json:"dueComplete"`
	IDMembers        []string   `json:"idMembers"`
	IDLabels         []string   `json:"idLabels"`
	URL              string     `json:"url"`
	ShortURL         string     `json:"shortUrl"`
	DateLastActivity time.Time  `json:"dateLastActivity"`
	Badges           Badges     `json:"badges"`
	List             *List      `json:"list,omitempty"` // list=true のときのみ
}

// Member はTrello APIのメンバー
type Member struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	FullName  string  `json:"fullName"`
	AvatarURL *string `json:"avatarUrl"`
	Email     *string `json:"email"`
}

// Label はTrello APIのラベル
type Label struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	IDBoard string `json:"idBoard"`
}

// Action はカードのアクション (コメントは type=commentCard)
type Action struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Date time.Time `json:"date"`
	Data struct {
		Text string `json:"text"`
	} `json:"data"`
	MemberCreator Member `json:"memberCreator"`
}

// CreateCardRequest はカード作成のリクエスト
type CreateCardRequest struct {
	IDList    string     `json:"idList"`
	Name      string     `json:"name"`
	Desc      string     `json:"desc,omitempty"`
	Due       *time.Time `json:"due,omitempty"`
	IDMembers string     `json:"idMembers,omitempty"` // カンマ区切り
	IDLabels  string     `json:"idLabels,omitempty"`  // カンマ区切り
	Pos       string     `json:"pos,omitempty"`
}

// UpdateCardRequest はカード更新のリクエスト
// 値がnilのキーは送らない。Dueを明示的に消す場合はClearDueを使う
type UpdateCardRequest struct {
	Name        *string
	Desc        *string
	Due         *time.Time
	ClearDue    bool
	DueComplete *bool
	IDList      *string
	Closed      *bool
}

func (r UpdateCardRequest) body() map[string]any {
	body := make(map[string]any)
	if r.Name != nil {
		body["name"] = *r.Name
	}
	if r.Desc != nil {
		body["desc"] = *r.Desc
	}
	if r.ClearDue {
		body["due"] = nil
	} else if r.Due != nil {
		body["due"] = r.Due.UTC().Format(time.RFC3339)
	}
	if r.DueComplete != nil {
		body["dueComplete"] = *r.DueComplete
	}
	if r.IDList != nil {
		body["idList"] = *r.IDList
	}
	if r.Closed != nil {
		body["closed"] = *r.Closed
	}
	return body
}

type valueRequest struct {
	Value string `json:"value"`
}

type commentRequest struct {
	Text string `json:"text"`
}
