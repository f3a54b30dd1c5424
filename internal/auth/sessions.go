package auth

import (
	"database/sql"
	"encoding/gob"
	"log"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshare/internal/config"
	"github.com/mrlokans/bookshare/internal/entities"
)

// Only the user ID lives in the session. Role and approval are read from the
// users table on every request so an admin decision applies immediately.
const (
	SessionKeyUserID  = "user_id"
	SessionKeyLoginAt = "login_at"
)

// SessionCookieName is the browser cookie carrying the session token.
const SessionCookieName = "bookshare_session"

const sessionsSchema = `CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	expiry REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`

func init() {
	gob.Register(time.Time{})
}

// SessionManager is the cookie session store for browser logins.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager keeps sessions in the sqlite database behind sqlDB so
// they survive restarts, or in memory when sqlDB is nil.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	sm := scs.New()

	if sqlDB != nil {
		if _, err := sqlDB.Exec(sessionsSchema); err != nil {
			return nil, err
		}
		sm.Store = sqlite3store.New(sqlDB)
	} else {
		sm.Store = memstore.New()
	}

	if cfg.SessionLifetime > 0 {
		sm.Lifetime = cfg.SessionLifetime
		sm.IdleTimeout = cfg.SessionLifetime / 2
	}

	sm.Cookie.Name = SessionCookieName
	sm.Cookie.Path = "/"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	// Lax keeps the user signed in when following a link to a book from
	// elsewhere; form posts are covered by CSRF tokens.
	sm.Cookie.SameSite = http.SameSiteLaxMode

	return &SessionManager{SessionManager: sm}, nil
}

// CreateSession signs user in on the current session under a fresh token.
func (sm *SessionManager) CreateSession(r *http.Request, user *entities.User) error {
	ctx := r.Context()
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}
	sm.Put(ctx, SessionKeyUserID, int(user.ID))
	sm.Put(ctx, SessionKeyLoginAt, time.Now().UTC())
	return nil
}

// DestroySession signs the user out.
func (sm *SessionManager) DestroySession(r *http.Request) error {
	return sm.Destroy(r.Context())
}

// GetUserID returns the signed-in user's ID, or 0.
func (sm *SessionManager) GetUserID(r *http.Request) uint {
	return uint(sm.GetInt(r.Context(), SessionKeyUserID))
}

// LoginAt is when the session was created, zero when signed out.
func (sm *SessionManager) LoginAt(r *http.Request) time.Time {
	at, _ := sm.Get(r.Context(), SessionKeyLoginAt).(time.Time)
	return at
}

// GinMiddleware loads the session for each request and writes the cookie
// before the response headers go out. scs's own LoadAndSave cannot be used
// directly because gin handlers write through gin.ResponseWriter.
func (sm *SessionManager) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if cookie, err := c.Request.Cookie(sm.Cookie.Name); err == nil {
			token = cookie.Value
		}

		ctx, err := sm.Load(c.Request.Context(), token)
		if err != nil {
			log.Printf("[AUTH] Failed to load session: %v", err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Request = c.Request.WithContext(ctx)

		w := &sessionWriter{ResponseWriter: c.Writer, sm: sm, req: c.Request}
		c.Writer = w
		c.Next()
		w.commit()
	}
}

// sessionWriter commits the session the first time anything is written.
type sessionWriter struct {
	gin.ResponseWriter
	sm        *SessionManager
	req       *http.Request
	committed bool
}

func (w *sessionWriter) commit() {
	if w.committed {
		return
	}
	w.committed = true

	ctx := w.req.Context()
	switch w.sm.Status(ctx) {
	case scs.Modified:
		token, expiry, err := w.sm.Commit(ctx)
		if err != nil {
			log.Printf("[AUTH] Failed to commit session: %v", err)
			return
		}
		w.sm.WriteSessionCookie(ctx, w.ResponseWriter, token, expiry)
	case scs.Destroyed:
		w.sm.WriteSessionCookie(ctx, w.ResponseWriter, "", time.Time{})
	}
}

func (w *sessionWriter) WriteHeader(code int) {
	w.commit()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) WriteHeaderNow() {
	w.commit()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) WriteString(s string) (int, error) {
	w.commit()
	return w.ResponseWriter.WriteString(s)
}
