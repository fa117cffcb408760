package httpx

import (
	"fmt"
	"net/http"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
)

// NavItem is one navigation entry.
type NavItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Path  string `json:"path"`
}

// Navigation is the role-aware header model.
type Navigation struct {
	Links    []NavItem `json:"links"`
	Actions  []NavItem `json:"actions"`
	Greeting string    `json:"greeting,omitempty"`
}

const logoutActionPath = "/auth/logout"

var (
	navHome     = NavItem{ID: "home", Label: "ホーム", Path: "/"}
	navJobs     = NavItem{ID: "jobs", Label: "求人検索", Path: "/jobs"}
	navResume   = NavItem{ID: "resume", Label: "履歴書・職務経歴書作成", Path: "/resume"}
	navMyPage   = NavItem{ID: "mypage", Label: "マイページ", Path: "/mypage"}
	navAgent    = NavItem{ID: "agent", Label: "エージェントダッシュボード", Path: "/agent"}
	navAdmin    = NavItem{ID: "admin", Label: "管理画面", Path: "/admin"}
	navLogin    = NavItem{ID: "login", Label: "ログイン", Path: "/login"}
	navRegister = NavItem{ID: "register", Label: "会員登録", Path: "/register"}
	navLogout   = NavItem{ID: "logout", Label: "ログアウト", Path: logoutActionPath}
)

// BuildNavigation returns the header for s. Home and Jobs are always shown;
// the rest depends on the role.
func BuildNavigation(s domainauth.Session) Navigation {
	nav := Navigation{Links: []NavItem{navHome, navJobs}}

	switch s.Role {
	case domainauth.RoleUser:
		nav.Links = append(nav.Links, navResume, navMyPage)
	case domainauth.RoleAgent:
		nav.Links = append(nav.Links, navAgent)
	case domainauth.RoleAdmin:
		nav.Links = append(nav.Links, navAdmin)
	}

	if s.IsGuest() {
		nav.Actions = []NavItem{navLogin, navRegister}
		return nav
	}
	nav.Greeting = greeting(s)
	nav.Actions = []NavItem{navLogout}
	return nav
}

func greeting(s domainauth.Session) string {
	if s.User != nil && s.User.Name != "" {
		return fmt.Sprintf("ようこそ、%sさん", s.User.Name)
	}
	switch s.Role {
	case domainauth.RoleAgent:
		return "エージェント"
	case domainauth.RoleAdmin:
		return "管理者"
	default:
		return "ユーザー"
	}
}

// NavigationHandler serves GET /api/navigation.
type NavigationHandler struct {
	Sessions SessionReader
}

func (h *NavigationHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, BuildNavigation(h.Sessions.Current()))
}
