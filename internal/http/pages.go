package httpx

import (
	"net/http"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
)

// Page identifiers.
const (
	PageHome             = "home"
	PageLogin            = "login"
	PageRegister         = "register"
	PageAgentLogin       = "agent-login"
	PageAdminLogin       = "admin-login"
	PageJobs             = "jobs"
	PageUserDashboard    = "user-dashboard"
	PageAgentDashboard   = "agent-dashboard"
	PageCompanyDashboard = "company-dashboard"
	PageMyPage           = "mypage"
	PageResume           = "resume"
	PageOffers           = "offers"
	PageCompanies        = "companies"
	PageAgents           = "agents"
	PageAdmin            = "admin"
	PageNotFound         = "not-found"
)

// Page is one entry of the portal's route table.
type Page struct {
	ID    string
	Path  string
	Title string
	// Subtree also serves every path below Path.
	Subtree bool
	// Protected pages sit behind the access gate.
	Protected bool
	// MinRole, when set, is enforced after the access gate.
	MinRole domainauth.Role
}

// Pages returns the route table in registration order.
func Pages() []Page {
	return []Page{
		{ID: PageHome, Path: "/", Title: "ホーム"},
		{ID: PageLogin, Path: "/login", Title: "ログイン"},
		{ID: PageRegister, Path: "/register", Title: "会員登録"},
		{ID: PageAgentLogin, Path: "/agent/login", Title: "エージェントログイン"},
		{ID: PageAdminLogin, Path: "/admin/login", Title: "管理者ログイン"},
		{ID: PageJobs, Path: "/jobs", Title: "求人検索"},
		{ID: PageUserDashboard, Path: "/user", Title: "ユーザーダッシュボード", Subtree: true},
		{ID: PageAgentDashboard, Path: "/agent", Title: "エージェントダッシュボード", Subtree: true},
		{ID: PageCompanyDashboard, Path: "/company", Title: "企業ダッシュボード", Subtree: true},
		{ID: PageMyPage, Path: "/mypage", Title: "マイページ", Protected: true},
		{ID: PageResume, Path: "/resume", Title: "履歴書・職務経歴書作成", Protected: true},
		{ID: PageOffers, Path: "/offers", Title: "オファー", Protected: true},
		{ID: PageCompanies, Path: "/companies", Title: "企業一覧", Protected: true},
		{ID: PageAgents, Path: "/agents", Title: "エージェント一覧", Protected: true},
		{ID: PageAdmin, Path: "/admin", Title: "管理画面", Protected: true, MinRole: domainauth.RoleAdmin},
	}
}

// PageView is the JSON body of a page.
type PageView struct {
	Page       string      `json:"page"`
	Title      string      `json:"title"`
	Path       string      `json:"path"`
	Navigation Navigation  `json:"navigation"`
	Session    SessionView `json:"session"`
	// CSRFToken must accompany form posts to /auth/*.
	CSRFToken string `json:"csrf_token,omitempty"`
}

// PageHandler renders one page's view model from the current session.
type PageHandler struct {
	Page     Page
	Sessions SessionReader
}

func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.view(r))
}

func (h *PageHandler) view(r *http.Request) PageView {
	// Gated requests carry the snapshot the gate evaluated.
	sess, ok := GetSessionFromContext(r.Context())
	if !ok {
		sess = h.Sessions.Current()
	}
	return PageView{
		Page:       h.Page.ID,
		Title:      h.Page.Title,
		Path:       r.URL.Path,
		Navigation: BuildNavigation(sess),
		Session:    NewSessionView(sess),
		CSRFToken:  GetCSRFToken(r),
	}
}

// notFoundHandler renders the not-found page with the current navigation.
type notFoundHandler struct {
	Sessions SessionReader
}

func (h *notFoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := h.Sessions.Current()
	WriteJSON(w, http.StatusNotFound, PageView{
		Page:       PageNotFound,
		Title:      "ページが見つかりません",
		Path:       r.URL.Path,
		Navigation: BuildNavigation(sess),
		Session:    NewSessionView(sess),
		CSRFToken:  GetCSRFToken(r),
	})
}
