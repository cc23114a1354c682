package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
)

// LedgerServiceName is the fully-qualified name of the ledger service.
const LedgerServiceName = "splitledger.v1.LedgerService"

// Ledger service procedures.
const (
	CreateAccountGroupProcedure = "/" + LedgerServiceName + "/CreateAccountGroup"
	ListAccountGroupsProcedure  = "/" + LedgerServiceName + "/ListAccountGroups"
	CreateAccountProcedure      = "/" + LedgerServiceName + "/CreateAccount"
	ListAccountsProcedure       = "/" + LedgerServiceName + "/ListAccounts"
	UpdateAccountProcedure      = "/" + LedgerServiceName + "/UpdateAccount"
	DeleteAccountProcedure      = "/" + LedgerServiceName + "/DeleteAccount"
	CreateContactProcedure      = "/" + LedgerServiceName + "/CreateContact"
	ListContactsProcedure       = "/" + LedgerServiceName + "/ListContacts"
	UpdateContactProcedure      = "/" + LedgerServiceName + "/UpdateContact"
	DeleteContactProcedure      = "/" + LedgerServiceName + "/DeleteContact"
	ListCategoriesProcedure     = "/" + LedgerServiceName + "/ListCategories"
	CreateCategoryProcedure     = "/" + LedgerServiceName + "/CreateCategory"
	CreateTransactionProcedure  = "/" + LedgerServiceName + "/CreateTransaction"
	GetTransactionProcedure     = "/" + LedgerServiceName + "/GetTransaction"
	ListTransactionsProcedure   = "/" + LedgerServiceName + "/ListTransactions"
	ArchiveTransactionProcedure = "/" + LedgerServiceName + "/ArchiveTransaction"
	CreateSettlementProcedure   = "/" + LedgerServiceName + "/CreateSettlement"
	GetContactBalanceProcedure  = "/" + LedgerServiceName + "/GetContactBalance"
	ListBalancesProcedure       = "/" + LedgerServiceName + "/ListBalances"
	GetDashboardProcedure       = "/" + LedgerServiceName + "/GetDashboard"
	HealthProcedure             = "/" + LedgerServiceName + "/Health"
)

// LedgerService implements the LedgerService RPC interface.
type LedgerService struct {
	ledger *ledger.Ledger
	logger *slog.Logger
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(l *ledger.Ledger, logger *slog.Logger) *LedgerService {
	return &LedgerService{ledger: l, logger: logger}
}

func unary[Req, Res any](mux *http.ServeMux, procedure string, fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error), opts ...connect.HandlerOption) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}

// NewLedgerServiceHandler builds an HTTP handler serving every ledger
// procedure. authenticate runs first on every procedure except Health.
func NewLedgerServiceHandler(svc *LedgerService, authenticate connect.Interceptor, opts ...connect.HandlerOption) (string, http.Handler) {
	public := append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	private := append([]connect.HandlerOption{connect.WithCodec(jsonCodec{}), connect.WithInterceptors(authenticate)}, opts...)

	mux := http.NewServeMux()
	unary(mux, CreateAccountGroupProcedure, svc.CreateAccountGroup, private...)
	unary(mux, ListAccountGroupsProcedure, svc.ListAccountGroups, private...)
	unary(mux, CreateAccountProcedure, svc.CreateAccount, private...)
	unary(mux, ListAccountsProcedure, svc.ListAccounts, private...)
	unary(mux, UpdateAccountProcedure, svc.UpdateAccount, private...)
	unary(mux, DeleteAccountProcedure, svc.DeleteAccount, private...)
	unary(mux, CreateContactProcedure, svc.CreateContact, private...)
	unary(mux, ListContactsProcedure, svc.ListContacts, private...)
	unary(mux, UpdateContactProcedure, svc.UpdateContact, private...)
	unary(mux, DeleteContactProcedure, svc.DeleteContact, private...)
	unary(mux, ListCategoriesProcedure, svc.ListCategories, private...)
	unary(mux, CreateCategoryProcedure, svc.CreateCategory, private...)
	unary(mux, CreateTransactionProcedure, svc.CreateTransaction, private...)
	unary(mux, GetTransactionProcedure, svc.GetTransaction, private...)
	unary(mux, ListTransactionsProcedure, svc.ListTransactions, private...)
	unary(mux, ArchiveTransactionProcedure, svc.ArchiveTransaction, private...)
	unary(mux, CreateSettlementProcedure, svc.CreateSettlement, private...)
	unary(mux, GetContactBalanceProcedure, svc.GetContactBalance, private...)
	unary(mux, ListBalancesProcedure, svc.ListBalances, private...)
	unary(mux, GetDashboardProcedure, svc.GetDashboard, private...)
	unary(mux, HealthProcedure, svc.Health, public...)
	return "/" + LedgerServiceName + "/", mux
}

// CreateAccountGroup creates a folder for accounts.
func (s *LedgerService) CreateAccountGroup(ctx context.Context, req *connect.Request[CreateAccountGroupRequest]) (*connect.Response[AccountGroup], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	g, err := s.ledger.CreateAccountGroup(ctx, userID, req.Msg.Name, req.Msg.Icon)
	if err != nil {
		return nil, connectError(s.logger, "CreateAccountGroup", err)
	}
	resp := toAccountGroup(g)
	return connect.NewResponse(&resp), nil
}

// ListAccountGroups returns the caller's account groups.
func (s *LedgerService) ListAccountGroups(ctx context.Context, req *connect.Request[ListAccountGroupsRequest]) (*connect.Response[ListAccountGroupsResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := s.ledger.ListAccountGroups(ctx, userID)
	if err != nil {
		return nil, connectError(s.logger, "ListAccountGroups", err)
	}
	return connect.NewResponse(&ListAccountGroupsResponse{Groups: convertAll(groups, toAccountGroup)}), nil
}

// CreateAccount creates an account with an opening balance.
func (s *LedgerService) CreateAccount(ctx context.Context, req *connect.Request[CreateAccountRequest]) (*connect.Response[Account], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.ledger.CreateAccount(ctx, ledger.AccountInput{
		Owner:          userID,
		Name:           req.Msg.Name,
		GroupID:        req.Msg.GroupID,
		CurrencyCode:   req.Msg.CurrencyCode,
		OpeningBalance: req.Msg.OpeningBalance,
	})
	if err != nil {
		return nil, connectError(s.logger, "CreateAccount", err)
	}
	resp := toAccount(a)
	return connect.NewResponse(&resp), nil
}

// ListAccounts returns the caller's accounts.
func (s *LedgerService) ListAccounts(ctx context.Context, req *connect.Request[ListAccountsRequest]) (*connect.Response[ListAccountsResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := s.ledger.ListAccounts(ctx, userID)
	if err != nil {
		return nil, connectError(s.logger, "ListAccounts", err)
	}
	return connect.NewResponse(&ListAccountsResponse{Accounts: convertAll(accounts, toAccount)}), nil
}

// UpdateAccount changes name, group and currency. The balance is not writable.
func (s *LedgerService) UpdateAccount(ctx context.Context, req *connect.Request[UpdateAccountRequest]) (*connect.Response[Account], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.ledger.UpdateAccount(ctx, userID, ledger.AccountUpdate{
		ID:           req.Msg.ID,
		Name:         req.Msg.Name,
		GroupID:      req.Msg.GroupID,
		CurrencyCode: req.Msg.CurrencyCode,
	})
	if err != nil {
		return nil, connectError(s.logger, "UpdateAccount", err)
	}
	resp := toAccount(a)
	return connect.NewResponse(&resp), nil
}

// DeleteAccount removes an unused account.
func (s *LedgerService) DeleteAccount(ctx context.Context, req *connect.Request[DeleteAccountRequest]) (*connect.Response[Empty], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.DeleteAccount(ctx, userID, req.Msg.ID); err != nil {
		return nil, connectError(s.logger, "DeleteAccount", err)
	}
	return connect.NewResponse(&Empty{}), nil
}

// CreateContact adds a contact, linking it if the phone is registered.
func (s *LedgerService) CreateContact(ctx context.Context, req *connect.Request[CreateContactRequest]) (*connect.Response[Contact], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.ledger.CreateContact(ctx, ledger.ContactInput{Owner: userID, Name: req.Msg.Name, PhoneNumber: req.Msg.PhoneNumber})
	if err != nil {
		return nil, connectError(s.logger, "CreateContact", err)
	}
	resp := toContact(c)
	return connect.NewResponse(&resp), nil
}

// ListContacts returns the caller's contacts.
func (s *LedgerService) ListContacts(ctx context.Context, req *connect.Request[ListContactsRequest]) (*connect.Response[ListContactsResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	contacts, err := s.ledger.ListContacts(ctx, userID)
	if err != nil {
		return nil, connectError(s.logger, "ListContacts", err)
	}
	return connect.NewResponse(&ListContactsResponse{Contacts: convertAll(contacts, toContact)}), nil
}

// UpdateContact changes a contact's name and phone number.
func (s *LedgerService) UpdateContact(ctx context.Context, req *connect.Request[UpdateContactRequest]) (*connect.Response[Contact], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.ledger.UpdateContact(ctx, req.Msg.ID, ledger.ContactInput{Owner: userID, Name: req.Msg.Name, PhoneNumber: req.Msg.PhoneNumber})
	if err != nil {
		return nil, connectError(s.logger, "UpdateContact", err)
	}
	resp := toContact(c)
	return connect.NewResponse(&resp), nil
}

// DeleteContact removes a contact without transactions.
func (s *LedgerService) DeleteContact(ctx context.Context, req *connect.Request[DeleteContactRequest]) (*connect.Response[Empty], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.DeleteContact(ctx, userID, req.Msg.ID); err != nil {
		return nil, connectError(s.logger, "DeleteContact", err)
	}
	return connect.NewResponse(&Empty{}), nil
}

// ListCategories returns system categories and the caller's own.
func (s *LedgerService) ListCategories(ctx context.Context, req *connect.Request[ListCategoriesRequest]) (*connect.Response[ListCategoriesResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.ledger.ListCategories(ctx, userID)
	if err != nil {
		return nil, connectError(s.logger, "ListCategories", err)
	}
	return connect.NewResponse(&ListCategoriesResponse{Categories: convertAll(categories, toCategory)}), nil
}

// CreateCategory adds a category only the caller can use.
func (s *LedgerService) CreateCategory(ctx context.Context, req *connect.Request[CreateCategoryRequest]) (*connect.Response[Category], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.ledger.CreateCategory(ctx, userID, req.Msg.Name, req.Msg.Icon, req.Msg.Color)
	if err != nil {
		return nil, connectError(s.logger, "CreateCategory", err)
	}
	resp := toCategory(c)
	return connect.NewResponse(&resp), nil
}

// splitInputs turns the request's share description into signed splits.
//
// When the user (or one of their accounts) paid, every contact's share is a
// positive split. When a contact paid, only the user's own share matters to
// this ledger and becomes one negative split against the payer; what the
// other participants owe the payer is between them.
func splitInputs(req *CreateTransactionRequest) ([]ledger.SplitInput, error) {
	modes := 0
	if len(req.Splits) > 0 {
		modes++
	}
	if req.Equal != nil {
		modes++
	}
	if req.Itemized != nil {
		modes++
	}
	if modes > 1 {
		return nil, errors.New("only one of splits, equal or itemized may be set")
	}

	if req.Equal == nil && req.Itemized == nil {
		out := make([]ledger.SplitInput, len(req.Splits))
		for i, sp := range req.Splits {
			out[i] = ledger.SplitInput{ContactID: sp.ContactID, Amount: sp.Amount, CategoryID: sp.CategoryID}
		}
		return out, nil
	}

	var (
		shares     []calculator.Share
		self       = req.TotalAmount
		categoryID string
		err        error
	)
	switch {
	case req.Equal != nil:
		categoryID = req.Equal.CategoryID
		shares, self, err = calculator.EqualSplits(req.TotalAmount, req.Equal.ContactIDs, req.Equal.IncludeSelf)
	case req.Itemized != nil:
		categoryID = req.Itemized.CategoryID
		items := make([]calculator.Item, len(req.Itemized.Items))
		var participants []string
		seen := map[string]bool{}
		for i, it := range req.Itemized.Items {
			items[i] = calculator.Item{Description: it.Description, Amount: it.Amount, AssignedTo: it.AssignedTo}
			for _, p := range it.AssignedTo {
				if !seen[p] {
					seen[p] = true
					participants = append(participants, p)
				}
			}
		}
		shares, self, err = calculator.ItemizedSplits(items, req.TotalAmount, participants)
	}
	if err != nil {
		return nil, err
	}

	if req.PayerContactID != "" {
		if !self.IsPositive() {
			return nil, nil
		}
		return []ledger.SplitInput{{ContactID: req.PayerContactID, Amount: self.Neg(), CategoryID: categoryID}}, nil
	}
	out := make([]ledger.SplitInput, len(shares))
	for i, sh := range shares {
		out[i] = ledger.SplitInput{ContactID: sh.ParticipantID, Amount: sh.Amount, CategoryID: categoryID}
	}
	return out, nil
}

// CreateTransaction records an expense.
func (s *LedgerService) CreateTransaction(ctx context.Context, req *connect.Request[CreateTransactionRequest]) (*connect.Response[Transaction], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	splits, err := splitInputs(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	in := ledger.TransactionInput{
		Creator:        userID,
		AccountID:      req.Msg.AccountID,
		PayerContactID: req.Msg.PayerContactID,
		TotalAmount:    req.Msg.TotalAmount,
		CurrencyCode:   req.Msg.CurrencyCode,
		ExchangeRate:   req.Msg.ExchangeRate,
		Description:    req.Msg.Description,
		Splits:         splits,
	}
	if req.Msg.OccurredAt != nil {
		in.OccurredAt = req.Msg.OccurredAt.UTC()
	}

	tx, err := s.ledger.CreateTransaction(ctx, in)
	if err != nil {
		return nil, connectError(s.logger, "CreateTransaction", err)
	}
	return s.transactionResponse(ctx, userID, tx.ID)
}

func (s *LedgerService) transactionResponse(ctx context.Context, userID, txID string) (*connect.Response[Transaction], error) {
	view, err := s.ledger.GetTransaction(ctx, userID, txID)
	if err != nil {
		return nil, connectError(s.logger, "GetTransaction", err)
	}
	resp := toTransactionView(view)
	return connect.NewResponse(&resp), nil
}

// GetTransaction returns one of the caller's transactions.
func (s *LedgerService) GetTransaction(ctx context.Context, req *connect.Request[GetTransactionRequest]) (*connect.Response[Transaction], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.transactionResponse(ctx, userID, req.Msg.ID)
}

// ListTransactions returns the caller's live transactions, newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, req *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.Limit < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("limit cannot be negative: %d", req.Msg.Limit))
	}
	views, err := s.ledger.ListTransactions(ctx, userID, req.Msg.Limit)
	if err != nil {
		return nil, connectError(s.logger, "ListTransactions", err)
	}
	return connect.NewResponse(&ListTransactionsResponse{Transactions: convertAll(views, toTransactionView)}), nil
}

// ArchiveTransaction soft-deletes one of the caller's transactions.
func (s *LedgerService) ArchiveTransaction(ctx context.Context, req *connect.Request[ArchiveTransactionRequest]) (*connect.Response[Transaction], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.ledger.ArchiveTransaction(ctx, userID, req.Msg.ID); err != nil {
		return nil, connectError(s.logger, "ArchiveTransaction", err)
	}
	return s.transactionResponse(ctx, userID, req.Msg.ID)
}

// CreateSettlement records a payment from a contact.
func (s *LedgerService) CreateSettlement(ctx context.Context, req *connect.Request[CreateSettlementRequest]) (*connect.Response[CreateSettlementResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	in := ledger.SettlementInput{
		Owner:        userID,
		ContactID:    req.Msg.ContactID,
		Amount:       req.Msg.Amount,
		AccountID:    req.Msg.AccountID,
		CurrencyCode: req.Msg.CurrencyCode,
		ExchangeRate: req.Msg.ExchangeRate,
	}
	if req.Msg.OccurredAt != nil {
		in.OccurredAt = req.Msg.OccurredAt.UTC()
	}

	res, err := s.ledger.CreateSettlement(ctx, in)
	if err != nil {
		return nil, connectError(s.logger, "CreateSettlement", err)
	}

	allocations := make([]Allocation, len(res.Allocations))
	for i, a := range res.Allocations {
		allocations[i] = Allocation{ID: a.ID, DebtSplitID: a.DebtSplitID, Amount: a.Amount}
	}
	return connect.NewResponse(&CreateSettlementResponse{
		Transaction:       toTransaction(res.Transaction, nil),
		PaymentSplitID:    res.PaymentSplit.ID,
		Allocations:       allocations,
		UnallocatedAmount: res.Unallocated,
	}), nil
}

// GetContactBalance returns the balance with one contact, now or as of a
// past instant.
func (s *LedgerService) GetContactBalance(ctx context.Context, req *connect.Request[GetContactBalanceRequest]) (*connect.Response[ContactBalance], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.ledger.GetContact(ctx, userID, req.Msg.ContactID)
	if err != nil {
		return nil, connectError(s.logger, "GetContactBalance", err)
	}

	if req.Msg.AsOf != nil {
		net, err := s.ledger.NetBalanceAsOf(ctx, userID, c.ID, req.Msg.AsOf.UTC())
		if err != nil {
			return nil, connectError(s.logger, "GetContactBalance", err)
		}
		return connect.NewResponse(&ContactBalance{ContactID: c.ID, ContactName: c.Name, NetBalance: net}), nil
	}

	b, err := s.ledger.Balance(ctx, userID, c.ID)
	if err != nil {
		return nil, connectError(s.logger, "GetContactBalance", err)
	}
	resp := toContactBalance(*b)
	return connect.NewResponse(&resp), nil
}

// ListBalances returns the balance with every contact.
func (s *LedgerService) ListBalances(ctx context.Context, req *connect.Request[ListBalancesRequest]) (*connect.Response[ListBalancesResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	balances, err := s.ledger.AllBalances(ctx, userID)
	if err != nil {
		return nil, connectError(s.logger, "ListBalances", err)
	}
	return connect.NewResponse(&ListBalancesResponse{Balances: convertAll(balances, toContactBalance)}), nil
}

// GetDashboard returns the caller's overview.
func (s *LedgerService) GetDashboard(ctx context.Context, req *connect.Request[GetDashboardRequest]) (*connect.Response[Dashboard], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	d, err := s.ledger.DashboardSummary(ctx, userID)
	if err != nil {
		return nil, connectError(s.logger, "GetDashboard", err)
	}
	return connect.NewResponse(&Dashboard{
		TotalBalance:       d.TotalBalance,
		TotalOwedToYou:     d.TotalOwedToYou,
		TotalYouOwe:        d.TotalYouOwe,
		NetBalance:         d.NetBalance,
		PersonalSpending:   d.PersonalSpending,
		Balances:           convertAll(d.Balances, toContactBalance),
		RecentTransactions: convertAll(d.RecentTransactions, toTransactionView),
	}), nil
}

// Health reports whether the store is reachable.
func (s *LedgerService) Health(ctx context.Context, req *connect.Request[HealthRequest]) (*connect.Response[HealthResponse], error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.ledger.Ping(ctx); err != nil {
		return nil, connectError(s.logger, "Health", err)
	}
	return connect.NewResponse(&HealthResponse{Status: "ok"}), nil
}
