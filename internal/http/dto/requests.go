package dto

type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type BindWalletRequest struct {
	Address string `json:"address"`
}

type CreateBillRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

type CreateEscrowRequest struct {
	BillID             string `json:"bill_id"`
	BeneficiaryAddress string `json:"beneficiary_address"`
	SponsorAddress     string `json:"sponsor_address"`
	PaymentDestination string `json:"payment_destination,omitempty"`
	Amount             string `json:"amount"`
	Description        string `json:"description,omitempty"`
}
