package models

import "time"

// Prize represents a single prize type on the wheel.
// Weight controls relative selection probability; Stock counts the remaining
// units and Claimed the units already awarded. Stock + Claimed stays constant
// for the lifetime of the prize.
type Prize struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	DisplayText   string `json:"displayText"`
	Weight        int    `json:"weight"`
	Stock         int    `json:"stock"`
	Claimed       int    `json:"claimed"`
	Color         string `json:"color"`
	TextColor     string `json:"textColor"`
	WheelPosition int    `json:"wheelPosition"`
}

// Attendee represents a registered event attendee.
// PrizeID and ClaimID are set at most once each; PrizeName is denormalized
// alongside PrizeID for the booth dashboard.
type Attendee struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Verified  bool      `json:"verified"`
	PrizeID   *int64    `json:"prizeId"`
	PrizeName *string   `json:"prizeName"`
	ClaimID   *int64    `json:"claimId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Award records a single successful allocation, written in the same
// transaction as the stock decrement and attendee bind.
type Award struct {
	ID         string    `json:"id"`
	AttendeeID string    `json:"attendeeId"`
	PrizeID    int64     `json:"prizeId"`
	PrizeName  string    `json:"prizeName"`
	AwardedAt  time.Time `json:"awardedAt"`
}

// SpinResult is what a station receives after a successful spin.
type SpinResult struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	DisplayText   string `json:"displayText"`
	WheelPosition int    `json:"wheelPosition"`
	Color         string `json:"color"`
	TextColor     string `json:"textColor"`
}
