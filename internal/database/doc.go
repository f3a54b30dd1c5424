// Package database opens the gorm connection (sqlite or postgres), runs
// migrations and exposes a few whole-database queries such as the admin
// statistics.
//
// Each table family has its own sub-package with a Repository over the
// shared *gorm.DB:
//
//	users/          accounts and role change requests
//	books/          catalog, search, wishlist, downloads, reading history
//	borrowing/      borrow requests and loan listings for reminders
//	notifications/  user inboxes and the sent-reminder log
//	reviews/        ratings and review text
//	community/      communities, posts and comments
//	settings/       key/value overrides
//	audit/          audit events
//
// Repositories do not depend on the domain packages. The domain packages
// declare the narrow Store interfaces they need, and internal/interfaces
// checks at compile time that the repositories satisfy them:
//
//	db, err := database.NewDatabase(cfg.Database)
//	manager := borrowing.NewManager(borrowingdb.NewRepository(db.DB), notifier, defaults)
//
// A new table family gets its entity added to Models() in database.go and
// a package here following the same NewRepository(db *gorm.DB) shape.
package database
