package ports

import "github.com/shopspring/decimal"

// VoucherPayload is the business payload forwarded to the remote API. Its
// contents are opaque to the reconciliation engine beyond validation.
type VoucherPayload struct {
	SaleID            string       `json:"saleId" validate:"required,max=64"`
	EmissionPointID   string       `json:"emissionPointId" validate:"required,emission_point"`
	Customer          CustomerData `json:"customer" validate:"required"`
	LineItems         []LineItem   `json:"lineItems" validate:"required,min=1,dive"`
	PaymentMethodCode string       `json:"paymentMethodCode" validate:"required,numeric,len=2"`
}

// CustomerData identifies the buyer.
type CustomerData struct {
	IdentificationType string `json:"identificationType" validate:"required,oneof=04 05 06 07 08"`
	Identification     string `json:"identification" validate:"required,max=20"`
	Name               string `json:"name" validate:"required,max=300"`
	Email              string `json:"email,omitempty" validate:"omitempty,email"`
	Phone              string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Address            string `json:"address,omitempty" validate:"omitempty,max=300"`
}

// LineItem is one invoiced product line.
type LineItem struct {
	Code        string          `json:"code" validate:"required,max=25"`
	Description string          `json:"description" validate:"required,max=300"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Discount    decimal.Decimal `json:"discount"`
	TaxCode     string          `json:"taxCode" validate:"required,max=4"`
}
