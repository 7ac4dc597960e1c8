package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Users         *UserHandler
	Availability  *AvailabilityHandler
	Permissions   *PermissionHandler
	Meetings      *MeetingHandler
	Notifications *NotificationHandler

	// Identity wraps every route except registration. Typically RequireIdentity.
	Identity   func(http.Handler) http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	protected := http.NewServeMux()

	if cfg.Users != nil {
		protected.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Users.Me(w, r)
		})
		protected.HandleFunc("/users/me/settings", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut {
				methodNotAllowed(w, http.MethodPut)
				return
			}
			cfg.Users.UpdateSettings(w, r)
		})
	}

	if cfg.Availability != nil {
		protected.HandleFunc("/availability", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Availability.Range(w, r)
		})
		protected.HandleFunc("/availability/suggestions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Availability.Suggestions(w, r)
		})
		protected.HandleFunc("/availability/rules", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Availability.ListRules(w, r)
			case http.MethodPost:
				cfg.Availability.CreateRule(w, r)
			case http.MethodDelete:
				cfg.Availability.DeleteAllRules(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
			}
		})
		protected.HandleFunc("/availability/rules/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/availability/rules/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Availability.DeleteRule(w, r.WithContext(ContextWithResourceID(r.Context(), id)))
		})
		protected.HandleFunc("/availability/blocked", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Availability.ListBlockedTimes(w, r)
			case http.MethodPost:
				cfg.Availability.CreateBlockedTime(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		protected.HandleFunc("/availability/blocked/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/availability/blocked/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Availability.DeleteBlockedTime(w, r.WithContext(ContextWithResourceID(r.Context(), id)))
		})
	}

	if cfg.Permissions != nil {
		protected.HandleFunc("/permissions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Permissions.ListGrants(w, r)
		})
		protected.HandleFunc("/permissions/users", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Permissions.GrantToUser(w, r)
		})
		protected.HandleFunc("/permissions/domains", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Permissions.GrantToDomain(w, r)
		})
		protected.HandleFunc("/permissions/received", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Permissions.ListReceived(w, r)
		})
		protected.HandleFunc("/contacts/frequent", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Permissions.FrequentContacts(w, r)
		})
		protected.HandleFunc("/permissions/requests", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Permissions.ListPendingRequests(w, r)
			case http.MethodPost:
				cfg.Permissions.CreateRequest(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		protected.HandleFunc("/permissions/requests/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/permissions/requests/")
			switch {
			case rest == "sent":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Permissions.ListSentRequests(w, r)
			case strings.HasSuffix(rest, "/approve"):
				id := strings.TrimSuffix(rest, "/approve")
				if id == "" || r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Permissions.ApproveRequest(w, r.WithContext(ContextWithResourceID(r.Context(), id)))
			case strings.HasSuffix(rest, "/deny"):
				id := strings.TrimSuffix(rest, "/deny")
				if id == "" || r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Permissions.DenyRequest(w, r.WithContext(ContextWithResourceID(r.Context(), id)))
			default:
				http.NotFound(w, r)
			}
		})
		protected.HandleFunc("/permissions/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/permissions/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Permissions.Revoke(w, r.WithContext(ContextWithResourceID(r.Context(), id)))
		})
	}

	if cfg.Meetings != nil {
		protected.HandleFunc("/meetings", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Meetings.List(w, r)
			case http.MethodPost:
				cfg.Meetings.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		protected.HandleFunc("/meetings/search", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Meetings.Search(w, r)
		})
	}

	if cfg.Notifications != nil {
		protected.HandleFunc("/notifications", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Notifications.List(w, r)
		})
		protected.HandleFunc("/notifications/read", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Notifications.MarkAllRead(w, r)
		})
		protected.HandleFunc("/notifications/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/notifications/")
			id := strings.TrimSuffix(rest, "/read")
			if id == "" || id == rest {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Notifications.MarkRead(w, r.WithContext(ContextWithResourceID(r.Context(), id)))
		})
	}

	var inner http.Handler = protected
	if cfg.Identity != nil {
		inner = cfg.Identity(protected)
	}

	mux := http.NewServeMux()
	mux.Handle("/", inner)
	if cfg.Users != nil {
		// Registration happens before an identity exists.
		mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Users.Register(w, r)
		})
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
