package attendance

import "time"

// Session statuses. A session is created checked_in and transitions exactly
// once to checked_out.
const (
	StatusCheckedIn  = "checked_in"
	StatusCheckedOut = "checked_out"
)

// Location is a nullable coordinate/place group. All fields stay nil when
// location tracking is disabled for the user.
type Location struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	City      *string  `json:"city,omitempty"`
	Address   *string  `json:"address,omitempty"`
}

// Session is one check-in-to-check-out attendance record.
type Session struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	Username           string     `json:"username,omitempty"` // joined from users
	CheckInTime        time.Time  `json:"check_in_time"`
	CheckOutTime       *time.Time `json:"check_out_time,omitempty"`
	FrontImage         *string    `json:"front_image,omitempty"`
	RearImage          *string    `json:"rear_image,omitempty"`
	CheckoutFrontImage *string    `json:"checkout_front_image,omitempty"`
	CheckoutRearImage  *string    `json:"checkout_rear_image,omitempty"`
	CheckInLocation    Location   `json:"checkin_location"`
	CheckOutLocation   Location   `json:"checkout_location"`
	Status             string     `json:"status"`
}

// Active reports whether the session is still open.
func (s Session) Active() bool { return s.Status == StatusCheckedIn }
