// Package auth provides authentication, accounts and authorization helpers.
//
// Users sign up as readers or authors through /register and log in with a
// session cookie. API clients send a Bearer token instead. Visitors may browse
// the catalog; every other page requires a login.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # Auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h           # Session duration
//	AUTH_TOKEN_EXPIRY=720h              # API token expiry (30 days default)
//	AUTH_BCRYPT_COST=12                 # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true            # HTTPS-only cookies
//
// # Usage
//
// Initialize authentication in entrypoint:
//
//	authService := auth.NewService(db, cfg.Auth)
//	authMiddleware := auth.NewMiddleware(authService, sessionManager)
//	router.Use(authMiddleware.Handler())
//
// Extract user in handlers:
//
//	user := auth.CurrentUser(c)  // nil for visitors
package auth
