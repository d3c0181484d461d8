package models

// Stats aggregates confirmed bookings, slot usage and contact submissions.
type Stats struct {
	TotalBookings           int      `json:"totalBookings"`
	WeekendBookings         int      `json:"weekendBookings"`
	WeekdayBookings         int      `json:"weekdayBookings"`
	TotalFullGroundBookings int      `json:"totalFullGroundBookings"`
	TotalHalfGroundBookings int      `json:"totalHalfGroundBookings"`
	TotalAvailableSlots     int      `json:"totalAvailableSlots"`
	TotalBookedSlots        int      `json:"totalBookedSlots"`
	RemainingSlots          int      `json:"remainingSlots"`
	TotalContactSubmissions int      `json:"totalContactSubmissions"`
	TotalEmails             int      `json:"totalEmails"`
	TotalPhones             int      `json:"totalPhones"`
	EmailList               []string `json:"emailList"`
	PhoneList               []string `json:"phoneList"`
}

type ContactStats struct {
	TotalContacts int      `json:"totalContacts"`
	TotalEmails   int      `json:"totalEmails"`
	TotalPhones   int      `json:"totalPhones"`
	EmailList     []string `json:"emailList"`
	PhoneList     []string `json:"phoneList"`
}

type Revenue struct {
	Today       int64 `json:"today"`
	Weekly      int64 `json:"weekly"`
	Monthly     int64 `json:"monthly"`
	Total       int64 `json:"total"`
	WeekendOnly int64 `json:"weekendOnly"`
	FullGround  int64 `json:"fullGround"`
	HalfGround  int64 `json:"halfGround"`
}
