package domain

import "time"

type RentalStatus string

const (
	RentalStatusOngoing       RentalStatus = "ONGOING"
	RentalStatusReturnPending RentalStatus = "RETURN_PENDING"
	RentalStatusCompleted     RentalStatus = "COMPLETED"
)

type ExtraFeeType string

const (
	ExtraFeeTypeDamage   ExtraFeeType = "DAMAGE"
	ExtraFeeTypeCleaning ExtraFeeType = "CLEANING"
	ExtraFeeTypeLate     ExtraFeeType = "LATE"
	ExtraFeeTypeOther    ExtraFeeType = "OTHER"
)

// ExtraFee is a staff-assessed charge appended during return inspection.
type ExtraFee struct {
	ID          int32        `json:"id"`
	RentalID    int32        `json:"rental_id"`
	Type        ExtraFeeType `json:"type"`
	AmountCents int64        `json:"amount_cents"`
	Description string       `json:"description"`
	CreatedOn   time.Time    `json:"created_on"`
}

// VehicleCondition records the vehicle state at handover or return.
type VehicleCondition struct {
	At         time.Time `json:"at"`
	OdoKm      int32     `json:"odo_km"`
	SocPercent int32     `json:"soc_percent"`
	PhotoURLs  []string  `json:"photo_urls"`
}

// Rental is derived 1:1 from a CONFIRMED booking at vehicle handover.
// Charge fields are defined only after a return inspection has been recorded
// (HasCharges). Settlement reads the charges here and the deposit from the
// originating booking's price snapshot.
type Rental struct {
	ID               int32             `json:"id"`
	BookingID        int32             `json:"booking_id"`
	CustomerID       int32             `json:"customer_id"`
	VehicleID        int32             `json:"vehicle_id"`
	StationID        int32             `json:"station_id"`
	Status           RentalStatus      `json:"status"`
	ExpectedReturnAt time.Time         `json:"expected_return_at"`
	Pickup           VehicleCondition  `json:"pickup"`
	Return           *VehicleCondition `json:"return,omitempty"`
	PickupStaffID    int32             `json:"pickup_staff_id"`
	ReturnStaffID    *int32            `json:"return_staff_id,omitempty"`
	RentalFeeCents   int64             `json:"rental_fee_cents"`
	ExtraFeesCents   int64             `json:"extra_fees_cents"`
	TotalChargeCents int64             `json:"total_charge_cents"`
	HasCharges       bool              `json:"has_charges"`
	CreatedOn        time.Time         `json:"created_on"`
	UpdatedOn        time.Time         `json:"updated_on"`
}
