package mysql

// Takes the slot row's exclusive lock, creating the row on first use. Both
// the insert and the duplicate-key path lock the row until commit. The row
// carries no count; occupancy is always COUNT(*) over bookings.
const lockSlotSQL = `
INSERT INTO booking_slots (room_type, check_in_date)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE locked_at = CURRENT_TIMESTAMP(3)
`

const countSlotSQL = `
SELECT COUNT(*)
FROM bookings
WHERE room_type = ? AND check_in_date = ?
`

const insertBookingSQL = `
INSERT INTO bookings
  (reference, full_name, email, phone, check_in_date, room_type, guests, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const getBookingSQL = `
SELECT
  id,
  reference,
  full_name,
  email,
  phone,
  DATE_FORMAT(check_in_date, '%Y-%m-%d'),
  room_type,
  guests,
  created_at
FROM bookings
WHERE reference = ?
`
