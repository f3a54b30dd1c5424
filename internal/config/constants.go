package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./bookshare.db"

	// DefaultStorageDir is where book files go when STORAGE_BACKEND=local
	DefaultStorageDir = "./media/books"

	// DefaultBorrowDays matches BOOK_BORROW_DAYS when it is not set
	DefaultBorrowDays = 14

	// DefaultMaxUploadBytes caps book uploads at 50 MiB
	DefaultMaxUploadBytes = 50 << 20
)
