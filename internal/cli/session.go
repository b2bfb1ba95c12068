package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tkc/boardctl/internal/cache"
	"github.com/tkc/boardctl/internal/domain"
	"github.com/tkc/boardctl/internal/provider"
)

// lookupTTL はカラム・メンバー・ラベルのキャッシュの有効期間
const lookupTTL = 10 * time.Minute

// session は1回のコマンド実行で使うプロバイダとボード
type session struct {
	provider provider.TaskProvider
	typ      provider.Type
	boardID  string
	store    *cache.Cache
	now      func() time.Time

	// lookupErrs は直近のlookupで取得に失敗した一覧 ("member", "label")
	lookupErrs map[string]error
}

func openProvider() (provider.TaskProvider, provider.Type, error) {
	t := cfg.ProviderType(providerFlag)
	p, err := registry.Create(t)
	if err != nil {
		return nil, t, err
	}
	creds, err := cfg.Credentials(t)
	if err != nil {
		return nil, t, err
	}
	if err := p.Initialize(creds); err != nil {
		return nil, t, fmt.Errorf("failed to initialize %s: %w", t, err)
	}
	return p, t, nil
}

// openSession はプロバイダを初期化し、対象ボードを決める
// needBoardがtrueでボードが決まらなければエラー
func openSession(needBoard bool) (*session, error) {
	p, t, err := openProvider()
	if err != nil {
		return nil, err
	}
	s := &session{provider: p, typ: t, store: store, now: time.Now}

	boardID := boardFlag
	if boardID == "" {
		boardID, _ = store.SelectedBoard(t)
	}
	if boardID == "" && needBoard {
		return nil, fmt.Errorf("no board selected. Run: boardctl board use <board-id> --provider %s", t)
	}
	if err := s.setBoard(boardID); err != nil {
		return nil, err
	}
	return s, nil
}

// openTaskSession はタスクIDからボードを決められる場合はそれを使う
func openTaskSession(taskRef string) (*session, string, error) {
	s, err := openSession(false)
	if err != nil {
		return nil, "", err
	}
	taskID, err := s.taskID(taskRef)
	if err != nil {
		return nil, "", err
	}
	if s.typ == provider.TypeGitHub && boardFlag == "" {
		owner, repo, _, err := domain.ParseIssueID(taskID)
		if err != nil {
			return nil, "", err
		}
		if err := s.setBoard(owner + "/" + repo); err != nil {
			return nil, "", err
		}
	}
	return s, taskID, nil
}

// setBoard は対象ボードを変え、保存済みのカラム設定を適用する
func (s *session) setBoard(boardID string) error {
	s.boardID = boardID
	cc, ok := s.provider.(provider.ColumnConfigurable)
	if !ok || boardID == "" {
		return nil
	}
	configs := s.store.ColumnConfigs(s.typ, boardID)
	if len(configs) == 0 {
		return cc.SetColumnConfigs(nil)
	}
	if err := cc.SetColumnConfigs(configs); err != nil {
		return fmt.Errorf("invalid column configuration for %s: %w", boardID, err)
	}
	return nil
}

// taskID はCLIで指定されたタスク参照を正規のIDにする
// GitHubでは "12" や "#12" を選択中のリポジトリのIssueとして扱う
func (s *session) taskID(ref string) (string, error) {
	if s.typ != provider.TypeGitHub || strings.Contains(ref, "/") {
		return ref, nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(ref, "#"))
	if err != nil || n <= 0 {
		return "", &domain.ValidationError{Field: "task", Message: fmt.Sprintf("invalid issue reference %q; use owner/repo#number", ref)}
	}
	if s.boardID == "" {
		return "", fmt.Errorf("no board selected for issue #%d. Run: boardctl board use <owner/repo>", n)
	}
	owner, repo, err := domain.SplitRepoID(s.boardID)
	if err != nil {
		return "", err
	}
	return domain.FormatIssueID(owner, repo, n), nil
}

// lookup はボードのカラム・メンバー・ラベルを返す
// キャッシュが新しければそれを使い、古ければ並行して取得し直す
func (s *session) lookup(ctx context.Context, refresh bool) (*cache.Lookup, error) {
	if s.boardID == "" {
		return nil, fmt.Errorf("no board selected. Run: boardctl board use <board-id> --provider %s", s.typ)
	}
	if !refresh {
		if l := s.store.Lookup(s.typ, s.boardID); l.Fresh(s.now(), lookupTTL) {
			return l, nil
		}
	}

	l := &cache.Lookup{FetchedAt: s.now()}
	var memberErr, labelErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cols, err := s.provider.GetBoardColumns(gctx, s.boardID)
		l.Columns = cols
		return err
	})
	// メンバーとラベルは取得できなくても続ける (コラボレーター一覧はpush権限が必要)
	g.Go(func() error {
		l.Members, memberErr = s.provider.ListMembers(gctx, s.boardID)
		if memberErr != nil {
			logger.WithError(memberErr).WithField("board", s.boardID).Warn("failed to list members")
		}
		return nil
	})
	g.Go(func() error {
		l.Labels, labelErr = s.provider.ListLabels(gctx, s.boardID)
		if labelErr != nil {
			logger.WithError(labelErr).WithField("board", s.boardID).Warn("failed to list labels")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.lookupErrs = map[string]error{"member": memberErr, "label": labelErr}
	// 一部が取れなかった結果はキャッシュしない
	if memberErr != nil || labelErr != nil {
		return l, nil
	}
	s.store.PutLookup(s.typ, s.boardID, l)
	if err := s.store.Save(); err != nil {
		logger.WithError(err).Warn("failed to save cache")
	}
	return l, nil
}

// resolve はlookupから参照を探し、見つからなければ一度だけ取得し直す
func resolve[T any](ctx context.Context, s *session, kind, ref string, pick func(*cache.Lookup) []T, match func(T, string) bool, id func(T) string) (T, error) {
	var zero T
	for _, refresh := range []bool{false, true} {
		l, err := s.lookup(ctx, refresh)
		if err != nil {
			return zero, err
		}
		items := pick(l)
		for _, it := range items {
			if id(it) == ref {
				return it, nil
			}
		}
		for _, it := range items {
			if match(it, ref) {
				return it, nil
			}
		}
		if refresh {
			names := make([]string, 0, len(items))
			for _, it := range items {
				names = append(names, id(it))
			}
			nf := &domain.NotFoundError{Kind: kind, ID: ref, Available: names}
			if lerr := s.lookupErrs[kind]; lerr != nil {
				return zero, fmt.Errorf("%w: failed to list %ss: %w", nf, kind, lerr)
			}
			return zero, nf
		}
	}
	return zero, nil
}

func (s *session) resolveColumn(ctx context.Context, ref string) (domain.Column, error) {
	return resolve(ctx, s, "column", ref,
		func(l *cache.Lookup) []domain.Column { return l.Columns },
		func(c domain.Column, r string) bool { return strings.EqualFold(c.Name, r) },
		func(c domain.Column) string { return c.ID })
}

func (s *session) resolveLabel(ctx context.Context, ref string) (domain.Label, error) {
	return resolve(ctx, s, "label", ref,
		func(l *cache.Lookup) []domain.Label { return l.Labels },
		func(lb domain.Label, r string) bool { return strings.EqualFold(lb.Name, r) },
		func(lb domain.Label) string { return lb.ID })
}

func (s *session) resolveMember(ctx context.Context, ref string) (domain.Member, error) {
	return resolve(ctx, s, "member", ref,
		func(l *cache.Lookup) []domain.Member { return l.Members },
		func(m domain.Member, r string) bool {
			r = strings.TrimPrefix(r, "@")
			return strings.EqualFold(m.Username, r) || strings.EqualFold(m.DisplayName, r)
		},
		func(m domain.Member) string { return m.ID })
}

// firstOpenColumn はclosed状態でない最初のカラムを返す
func firstOpenColumn(ctx context.Context, s *session) (domain.Column, error) {
	l, err := s.lookup(ctx, false)
	if err != nil {
		return domain.Column{}, err
	}
	for _, c := range l.Columns {
		if !c.Closed {
			return c, nil
		}
	}
	return domain.Column{}, &domain.NotFoundError{Kind: "column", ID: "(first open column)"}
}
