package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Sessions   *SessionHandler
	Attendance *AttendanceHandler
	Calendar   *CalendarHandler
	Health     *HealthHandler
	Middleware []func(http.Handler) http.Handler
}

const editorSubresource = "/attendance-editor"

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Health != nil {
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Health.Check(w, r)
		})
	}

	if cfg.Sessions != nil {
		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Sessions.List(w, r)
			case http.MethodPost:
				cfg.Sessions.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/sessions/")
			if id, ok := strings.CutSuffix(rest, editorSubresource); ok && cfg.Attendance != nil {
				if id == "" || strings.Contains(id, "/") {
					http.NotFound(w, r)
					return
				}
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Attendance.Open(w, r.WithContext(ContextWithSessionID(r.Context(), id)))
				return
			}

			if rest == "" || strings.Contains(rest, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithSessionID(r.Context(), rest))
			switch r.Method {
			case http.MethodGet:
				cfg.Sessions.Get(w, r)
			case http.MethodPut:
				cfg.Sessions.Update(w, r)
			case http.MethodDelete:
				cfg.Sessions.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Attendance != nil {
		mux.HandleFunc("/attendance-editors/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/attendance-editors/")
			id, action, _ := strings.Cut(rest, "/")
			if id == "" || strings.Contains(action, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithEditorID(r.Context(), id))

			if action == "" {
				switch r.Method {
				case http.MethodGet:
					cfg.Attendance.View(w, r)
				case http.MethodDelete:
					cfg.Attendance.Close(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodDelete)
				}
				return
			}

			var handle http.HandlerFunc
			switch action {
			case "marks":
				handle = cfg.Attendance.Mark
			case "batch":
				handle = cfg.Attendance.Batch
			case "undo":
				handle = cfg.Attendance.Undo
			case "commit":
				handle = cfg.Attendance.Commit
			default:
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			handle(w, r)
		})
	}

	if cfg.Calendar != nil {
		mux.HandleFunc("/calendar/day", getOnly(cfg.Calendar.Day))
		mux.HandleFunc("/calendar/week", getOnly(cfg.Calendar.Week))
		mux.HandleFunc("/calendar.ics", getOnly(cfg.Calendar.Feed))
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		next(w, r)
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
