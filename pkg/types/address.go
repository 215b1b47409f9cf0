package types

// AddressSnapshot is the immutable copy of a shipping address stored on an order.
type AddressSnapshot struct {
	FullName     string  `json:"full_name"`
	Phone        string  `json:"phone"`
	AddressLine1 string  `json:"address_line1"`
	AddressLine2 *string `json:"address_line2,omitempty"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	Pincode      string  `json:"pincode"`
}
