package entity

// CompanyLookupRequest queries the company registry by name or number.
type CompanyLookupRequest struct {
	CompanyName        string `json:"company_name,omitempty"`
	RegistrationNumber string `json:"registration_number,omitempty"`
}

// CompanyRecord is the registry's view of a company.
type CompanyRecord struct {
	CompanyName        string `json:"company_name"`
	RegistrationNumber string `json:"registration_number"`
	Status             string `json:"status"`
	RegisteredAddress  string `json:"registered_address,omitempty"`
}

// TaxLookupRequest queries the tax authority record for a tax number.
type TaxLookupRequest struct {
	TaxNumber string `json:"tax_number"`
}

// TaxRecord is the tax authority's view of a registration.
type TaxRecord struct {
	TaxNumber string `json:"tax_number"`
	Valid     bool   `json:"valid"`
	TradeName string `json:"trade_name,omitempty"`
}
