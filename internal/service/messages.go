package service

import (
	"time"

	"github.com/mmynk/splitledger/internal/money"
)

// Empty is the response of RPCs that return nothing.
type Empty struct{}

type Profile struct {
	ID           string `json:"id"`
	PhoneNumber  string `json:"phone_number"`
	Name         string `json:"name"`
	BaseCurrency string `json:"base_currency"`
}

type AccountGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

type Account struct {
	ID           string      `json:"id"`
	GroupID      string      `json:"group_id,omitempty"`
	Name         string      `json:"name"`
	CurrencyCode string      `json:"currency_code"`
	Balance      money.Money `json:"balance"`
	CreatedAt    time.Time   `json:"created_at"`
}

type Contact struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	PhoneNumber     string `json:"phone_number,omitempty"`
	LinkedProfileID string `json:"linked_profile_id,omitempty"`
	IsShadow        bool   `json:"is_shadow"`
}

type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon,omitempty"`
	Color    string `json:"color,omitempty"`
	IsSystem bool   `json:"is_system"`
}

type Split struct {
	ID          string      `json:"id"`
	ContactID   string      `json:"contact_id"`
	ContactName string      `json:"contact_name,omitempty"`
	Amount      money.Money `json:"amount"`
	Kind        string      `json:"split_kind"`
	CategoryID  string      `json:"category_id,omitempty"`
}

type Transaction struct {
	ID             string      `json:"id"`
	AccountID      string      `json:"account_id,omitempty"`
	AccountName    string      `json:"account_name,omitempty"`
	PayerContactID string      `json:"payer_contact_id,omitempty"`
	PayerName      string      `json:"payer_name,omitempty"`
	TotalAmount    money.Money `json:"total_amount"`
	CurrencyCode   string      `json:"currency_code"`
	ExchangeRate   money.Rate  `json:"exchange_rate"`
	Description    string      `json:"description,omitempty"`
	OccurredAt     time.Time   `json:"occurred_at"`
	Archived       bool        `json:"archived"`
	IsSettlement   bool        `json:"is_settlement"`
	Splits         []Split     `json:"splits"`
}

type Allocation struct {
	ID          string      `json:"id"`
	DebtSplitID string      `json:"debt_split_id"`
	Amount      money.Money `json:"amount"`
}

type ContactBalance struct {
	ContactID   string      `json:"contact_id"`
	ContactName string      `json:"contact_name"`
	Debt        money.Money `json:"debt"`
	Settled     money.Money `json:"settled"`
	NetBalance  money.Money `json:"net_balance"`
}

type CreateAccountGroupRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

type ListAccountGroupsRequest struct{}

type ListAccountGroupsResponse struct {
	Groups []AccountGroup `json:"groups"`
}

type CreateAccountRequest struct {
	Name           string      `json:"name"`
	GroupID        string      `json:"group_id,omitempty"`
	CurrencyCode   string      `json:"currency_code,omitempty"`
	OpeningBalance money.Money `json:"opening_balance"`
}

type ListAccountsRequest struct{}

type ListAccountsResponse struct {
	Accounts []Account `json:"accounts"`
}

type UpdateAccountRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	GroupID      string `json:"group_id,omitempty"`
	CurrencyCode string `json:"currency_code,omitempty"`
}

type DeleteAccountRequest struct {
	ID string `json:"id"`
}

type CreateContactRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type ListContactsRequest struct{}

type ListContactsResponse struct {
	Contacts []Contact `json:"contacts"`
}

type UpdateContactRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type DeleteContactRequest struct {
	ID string `json:"id"`
}

type ListCategoriesRequest struct{}

type ListCategoriesResponse struct {
	Categories []Category `json:"categories"`
}

type CreateCategoryRequest struct {
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

// SplitRequest is an exact share. Positive: the contact owes the user.
type SplitRequest struct {
	ContactID  string      `json:"contact_id"`
	Amount     money.Money `json:"amount"`
	CategoryID string      `json:"category_id,omitempty"`
}

// EqualSplitRequest divides the total evenly.
type EqualSplitRequest struct {
	ContactIDs  []string `json:"contact_ids"`
	IncludeSelf bool     `json:"include_self"`
	CategoryID  string   `json:"category_id,omitempty"`
}

// ItemRequest is one receipt line. AssignedTo holds contact ids or "self".
type ItemRequest struct {
	Description string      `json:"description"`
	Amount      money.Money `json:"amount"`
	AssignedTo  []string    `json:"assigned_to"`
}

// ItemizedSplitRequest divides the total by receipt items, spreading the
// difference between total and item subtotal (tax, tip) proportionally.
type ItemizedSplitRequest struct {
	Items      []ItemRequest `json:"items"`
	CategoryID string        `json:"category_id,omitempty"`
}

// CreateTransactionRequest records an expense. Exactly one of Splits,
// Equal or Itemized describes the shares; none means a personal expense.
type CreateTransactionRequest struct {
	AccountID      string                `json:"account_id,omitempty"`
	PayerContactID string                `json:"payer_contact_id,omitempty"`
	TotalAmount    money.Money           `json:"total_amount"`
	CurrencyCode   string                `json:"currency_code,omitempty"`
	ExchangeRate   money.Rate            `json:"exchange_rate,omitempty"`
	Description    string                `json:"description,omitempty"`
	OccurredAt     *time.Time            `json:"occurred_at,omitempty"`
	Splits         []SplitRequest        `json:"splits,omitempty"`
	Equal          *EqualSplitRequest    `json:"equal,omitempty"`
	Itemized       *ItemizedSplitRequest `json:"itemized,omitempty"`
}

type GetTransactionRequest struct {
	ID string `json:"id"`
}

type ListTransactionsRequest struct {
	Limit int `json:"limit,omitempty"`
}

type ListTransactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}

type ArchiveTransactionRequest struct {
	ID string `json:"id"`
}

type CreateSettlementRequest struct {
	ContactID    string      `json:"contact_id"`
	Amount       money.Money `json:"amount"`
	AccountID    string      `json:"account_id"`
	CurrencyCode string      `json:"currency_code,omitempty"`
	ExchangeRate money.Rate  `json:"exchange_rate,omitempty"`
	OccurredAt   *time.Time  `json:"occurred_at,omitempty"`
}

type CreateSettlementResponse struct {
	Transaction       Transaction  `json:"transaction"`
	PaymentSplitID    string       `json:"payment_split_id"`
	Allocations       []Allocation `json:"allocations"`
	UnallocatedAmount money.Money  `json:"unallocated_amount"`
}

// GetContactBalanceRequest asks for the balance with one contact, optionally
// as it stood at AsOf.
type GetContactBalanceRequest struct {
	ContactID string     `json:"contact_id"`
	AsOf      *time.Time `json:"as_of,omitempty"`
}

type ListBalancesRequest struct{}

type ListBalancesResponse struct {
	Balances []ContactBalance `json:"balances"`
}

type GetDashboardRequest struct{}

type Dashboard struct {
	TotalBalance       money.Money      `json:"total_balance"`
	TotalOwedToYou     money.Money      `json:"total_owed_to_you"`
	TotalYouOwe        money.Money      `json:"total_you_owe"`
	NetBalance         money.Money      `json:"net_balance"`
	PersonalSpending   money.Money      `json:"personal_spending"`
	Balances           []ContactBalance `json:"balances"`
	RecentTransactions []Transaction    `json:"recent_transactions"`
}

type HealthRequest struct{}

type HealthResponse struct {
	Status string `json:"status"`
}

type RegisterRequest struct {
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

type AuthResponse struct {
	Profile Profile `json:"profile"`
	Token   string  `json:"token"`
}

type MeRequest struct{}

type UpdateProfileRequest struct {
	Name         string `json:"name"`
	BaseCurrency string `json:"base_currency,omitempty"`
}
