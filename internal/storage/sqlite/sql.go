package sqlite

var schema = []string{
	`CREATE TABLE IF NOT EXISTS bookings (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		reference     TEXT     NOT NULL UNIQUE,
		full_name     TEXT     NOT NULL,
		email         TEXT     NOT NULL,
		phone         TEXT     NOT NULL,
		check_in_date TEXT     NOT NULL, -- YYYY-MM-DD
		room_type     TEXT     NOT NULL,
		guests        INTEGER  NOT NULL,
		created_at    DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_slot ON bookings(room_type, check_in_date)`,
}

const countSlotSQL = `SELECT COUNT(*) FROM bookings WHERE room_type = ? AND check_in_date = ?`

const insertBookingSQL = `
INSERT INTO bookings
  (reference, full_name, email, phone, check_in_date, room_type, guests, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
`

const getBookingSQL = `
SELECT id, reference, full_name, email, phone, check_in_date, room_type, guests, created_at
FROM bookings
WHERE reference = ?
`
