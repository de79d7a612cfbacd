package domain

import (
	"encoding/json"
	"time"
)

// NoneSentinel is what the console's dropdowns send for "no category" /
// "remove category". It always becomes an explicit null upstream.
const NoneSentinel = "none"

// TransactionType is the direction of a transaction.
type TransactionType string

const (
	TxIncome   TransactionType = "income"
	TxExpense  TransactionType = "expense"
	TxTransfer TransactionType = "transfer"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TxIncome || t == TxExpense || t == TxTransfer
}

// Sign returns +1 for income and -1 for expense and transfer. Amounts are
// always stored non-negative; the sign is derived for display only.
func (t TransactionType) Sign() float64 {
	if t == TxIncome {
		return 1
	}
	return -1
}

// ============================================================
// Tag: Categorized | Transfer | Uncategorized
// ============================================================

// TagKind discriminates the Tag variant.
type TagKind int

const (
	Uncategorized TagKind = iota
	Categorized
	Transfer
)

func (k TagKind) String() string {
	switch k {
	case Categorized:
		return "categorized"
	case Transfer:
		return "transfer"
	default:
		return "uncategorized"
	}
}

// Tag says how a transaction is classified. A transaction is either
// categorized, a transfer to a payee account, or neither; never both.
type Tag struct {
	Kind TagKind
	ID   string // category id for Categorized, payee account id for Transfer
}

// CategoryTag tags with a category. Empty and "none" ids mean Uncategorized.
func CategoryTag(categoryID string) Tag {
	if categoryID == "" || categoryID == NoneSentinel {
		return Tag{}
	}
	return Tag{Kind: Categorized, ID: categoryID}
}

// TransferTag tags as a transfer to a payee account.
func TransferTag(payeeID string) Tag {
	if payeeID == "" || payeeID == NoneSentinel {
		return Tag{}
	}
	return Tag{Kind: Transfer, ID: payeeID}
}

// CategoryID returns the category reference, nil unless Categorized.
func (t Tag) CategoryID() *string {
	if t.Kind != Categorized {
		return nil
	}
	id := t.ID
	return &id
}

// PayeeID returns the payee reference, nil unless Transfer.
func (t Tag) PayeeID() *string {
	if t.Kind != Transfer {
		return nil
	}
	id := t.ID
	return &id
}

// tagFromRefs rebuilds the variant from the wire's two nullable fields.
// A payee wins when a server record carries both.
func tagFromRefs(categoryID, payeeID *string) Tag {
	if payeeID != nil && *payeeID != "" {
		return TransferTag(*payeeID)
	}
	if categoryID != nil {
		return CategoryTag(*categoryID)
	}
	return Tag{}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ============================================================
// Transactions
// ============================================================

// Transaction is a persisted transaction, or a staged one when it came
// from a statement upload and has not been saved yet (ID is then the
// server's temporary row id).
type Transaction struct {
	ID              string
	Date            string // yyyy-mm-dd
	Description     string
	Amount          float64
	AccountID       string
	Tag             Tag
	TransactionType TransactionType
	LinkedLoanID    string
	Notes           string
}

type transactionWire struct {
	ID              string          `json:"id,omitempty"`
	Date            string          `json:"date"`
	Description     string          `json:"description"`
	Amount          float64         `json:"amount"`
	AccountID       string          `json:"account_id"`
	CategoryID      *string         `json:"category_id"`
	PayeeID         *string         `json:"payee_id"`
	TransactionType TransactionType `json:"transaction_type"`
	LinkedLoanID    *string         `json:"linked_loan_id"`
	Notes           string          `json:"notes,omitempty"`
}

// MarshalJSON always emits category_id, payee_id and linked_loan_id,
// as null when unset, so a removed tag is never silently kept upstream.
func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionWire{
		ID:              t.ID,
		Date:            t.Date,
		Description:     t.Description,
		Amount:          t.Amount,
		AccountID:       t.AccountID,
		CategoryID:      t.Tag.CategoryID(),
		PayeeID:         t.Tag.PayeeID(),
		TransactionType: t.TransactionType,
		LinkedLoanID:    optional(t.LinkedLoanID),
		Notes:           t.Notes,
	})
}

// UnmarshalJSON reads the wire shape into the Tag variant.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var w transactionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = Transaction{
		ID:              w.ID,
		Date:            w.Date,
		Description:     w.Description,
		Amount:          w.Amount,
		AccountID:       w.AccountID,
		Tag:             tagFromRefs(w.CategoryID, w.PayeeID),
		TransactionType: w.TransactionType,
		LinkedLoanID:    deref(w.LinkedLoanID),
		Notes:           w.Notes,
	}
	return nil
}

// SignedAmount is the display amount: positive for income, negative otherwise.
func (t Transaction) SignedAmount() float64 {
	return t.TransactionType.Sign() * t.Amount
}

// TransactionFilter narrows GET /transactions.
type TransactionFilter struct {
	AccountID       string
	CategoryID      string
	TransactionType TransactionType
	Untagged        bool
	StartDate       *time.Time
	EndDate         *time.Time
	Limit           int
}

// DateLayout is the wire format of every date the API exchanges.
const DateLayout = "2006-01-02"

// EntryInput is a manual income/expense entry (AddEntry page).
type EntryInput struct {
	Date            string          `json:"date"`
	Description     string          `json:"description"`
	Amount          FormNumber      `json:"amount"`
	AccountID       string          `json:"account_id"`
	CategoryID      string          `json:"category_id"`
	SubCategoryID   string          `json:"sub_category_id"`
	LinkedLoanID    string          `json:"linked_loan_id"`
	TransactionType TransactionType `json:"transaction_type"`
	Notes           string          `json:"notes"`
}

// Transaction builds the record to post. The sub-category wins over the
// category when both are chosen.
func (in EntryInput) Transaction() (Transaction, error) {
	if in.AccountID == "" {
		return Transaction{}, &ErrValidation{Field: "account_id", Message: "Please select an account"}
	}
	if in.TransactionType != TxIncome && in.TransactionType != TxExpense {
		return Transaction{}, &ErrValidation{Field: "transaction_type", Message: "entry must be income or expense"}
	}
	categoryID := in.SubCategoryID
	if categoryID == "" {
		categoryID = in.CategoryID
	}
	return Transaction{
		Date:            in.Date,
		Description:     in.Description,
		Amount:          in.Amount.Value(),
		AccountID:       in.AccountID,
		Tag:             CategoryTag(categoryID),
		TransactionType: in.TransactionType,
		LinkedLoanID:    in.LinkedLoanID,
		Notes:           in.Notes,
	}, nil
}

// TransferInput moves money between two accounts.
type TransferInput struct {
	Date          string     `json:"date"`
	Description   string     `json:"description"`
	Amount        FormNumber `json:"amount"`
	FromAccountID string     `json:"from_account_id"`
	ToAccountID   string     `json:"to_account_id"`
	Notes         string     `json:"notes"`
}

// Transaction builds the transfer record: the source account owns it and
// the destination travels as the payee.
func (in TransferInput) Transaction() (Transaction, error) {
	if in.FromAccountID == "" || in.ToAccountID == "" {
		return Transaction{}, &ErrValidation{Field: "account_id", Message: "Please select both accounts"}
	}
	if in.FromAccountID == in.ToAccountID {
		return Transaction{}, &ErrValidation{Field: "to_account_id", Message: "Cannot transfer to same account"}
	}
	return Transaction{
		Date:            in.Date,
		Description:     in.Description,
		Amount:          in.Amount.Value(),
		AccountID:       in.FromAccountID,
		Tag:             TransferTag(in.ToAccountID),
		TransactionType: TxTransfer,
		Notes:           in.Notes,
	}, nil
}

// TransactionEdit is the edit dialog on the transactions page.
type TransactionEdit struct {
	Date            string          `json:"date"`
	Description     string          `json:"description"`
	Amount          FormNumber      `json:"amount"`
	TransactionType TransactionType `json:"transaction_type"`
	CategoryID      string          `json:"category_id"`
	Notes           string          `json:"notes"`
}

// Payload returns the PUT body; "none" and "" become a null category_id.
func (e TransactionEdit) Payload() map[string]any {
	return map[string]any{
		"date":             e.Date,
		"description":      e.Description,
		"amount":           e.Amount.Value(),
		"transaction_type": e.TransactionType,
		"category_id":      CategoryTag(e.CategoryID).CategoryID(),
		"notes":            e.Notes,
	}
}

// BulkTagRequest tags many persisted transactions with one category.
type BulkTagRequest struct {
	TransactionIDs []string `json:"transaction_ids"`
	CategoryID     *string  `json:"category_id"`
}

// NewBulkTagRequest normalizes the "none" sentinel to null.
func NewBulkTagRequest(ids []string, categoryID string) (BulkTagRequest, error) {
	if len(ids) == 0 {
		return BulkTagRequest{}, &ErrValidation{Field: "transaction_ids", Message: "Select transactions first"}
	}
	return BulkTagRequest{TransactionIDs: ids, CategoryID: CategoryTag(categoryID).CategoryID()}, nil
}

// ============================================================
// Staged rows (bank-statement import)
// ============================================================

// StagedTransaction is one row of an uploaded statement. Extra keeps any
// fields the parser returned that the console does not model, so they are
// sent back unchanged on save.
type StagedTransaction struct {
	Transaction
	Extra map[string]json.RawMessage
}

var transactionWireFields = map[string]bool{
	"id": true, "date": true, "description": true, "amount": true,
	"account_id": true, "category_id": true, "payee_id": true,
	"transaction_type": true, "linked_loan_id": true, "notes": true,
}

// MarshalJSON merges Extra under the modelled fields.
func (s StagedTransaction) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(s.Transaction)
	if err != nil || len(s.Extra) == 0 {
		return base, err
	}
	merged := make(map[string]json.RawMessage, len(s.Extra)+len(transactionWireFields))
	for k, v := range s.Extra {
		merged[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON splits the modelled fields from the rest.
func (s *StagedTransaction) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &s.Transaction); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	s.Extra = nil
	for k, v := range all {
		if transactionWireFields[k] {
			continue
		}
		if s.Extra == nil {
			s.Extra = make(map[string]json.RawMessage)
		}
		s.Extra[k] = v
	}
	return nil
}

// Tagged reports whether the row has a category or a payee.
func (s StagedTransaction) Tagged() bool {
	return s.Tag.Kind != Uncategorized
}

// UploadResult is the body of POST /upload/bank-statement.
type UploadResult struct {
	Transactions []StagedTransaction `json:"transactions"`
	Count        int                 `json:"count"`
}

// TagRequest is the tag dialog's submission for one staged row.
type TagRequest struct {
	CategoryID    string `json:"category_id"`
	SubCategoryID string `json:"sub_category_id"`
	PayeeID       string `json:"payee_id"`
	LinkedLoanID  string `json:"linked_loan_id"`
}

// ResolveTag turns the dialog's selections into a Tag and loan link.
// A payee makes the row a transfer and drops any category. The effective
// category is the sub-category when chosen, else the category. A loan
// link is only accepted for a category linked to loan interest.
func (r TagRequest) ResolveTag(tree CategoryTree, accounts []Account) (Tag, string, error) {
	if r.PayeeID != "" && r.PayeeID != NoneSentinel {
		payee, ok := FindAccount(accounts, r.PayeeID)
		if !ok {
			return Tag{}, "", &ErrValidation{Field: "payee_id", Message: "payee account not found"}
		}
		if !payee.AccountType.IsLoan() {
			return Tag{}, "", &ErrValidation{Field: "payee_id", Message: "payee must be a loan account"}
		}
		return TransferTag(r.PayeeID), "", nil
	}

	categoryID := r.SubCategoryID
	if categoryID == "" || categoryID == NoneSentinel {
		categoryID = r.CategoryID
	}
	tag := CategoryTag(categoryID)
	if tag.Kind == Uncategorized {
		if r.LinkedLoanID != "" && r.LinkedLoanID != NoneSentinel {
			return Tag{}, "", &ErrValidation{Field: "linked_loan_id", Message: "loan link requires an interest category"}
		}
		return tag, "", nil
	}

	category, ok := tree.Find(tag.ID)
	if !ok {
		return Tag{}, "", &ErrValidation{Field: "category_id", Message: "category not found"}
	}
	if r.LinkedLoanID == "" || r.LinkedLoanID == NoneSentinel {
		return tag, "", nil
	}
	if !category.LinksToLoanInterest && !parentLinksToLoanInterest(tree, category) {
		return Tag{}, "", &ErrValidation{Field: "linked_loan_id", Message: "loan link requires an interest category"}
	}
	loan, ok := FindAccount(accounts, r.LinkedLoanID)
	if !ok || !loan.AccountType.IsLoan() {
		return Tag{}, "", &ErrValidation{Field: "linked_loan_id", Message: "linked loan must be a loan account"}
	}
	return tag, r.LinkedLoanID, nil
}

func parentLinksToLoanInterest(tree CategoryTree, c Category) bool {
	if c.IsTopLevel() {
		return false
	}
	parent, ok := tree.Find(*c.ParentID)
	return ok && parent.LinksToLoanInterest
}
