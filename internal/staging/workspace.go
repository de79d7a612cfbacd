// Package staging holds the rows of an uploaded bank statement while the
// user tags them, until they are saved or discarded. Nothing here talks to
// the server; the import service drives the transitions.
package staging

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ledgeros/console-bfa-go/internal/domain"
)

// State is the workspace lifecycle: Idle → Uploading → Staged → Saving → Idle.
type State string

const (
	Idle      State = "idle"
	Uploading State = "uploading"
	Staged    State = "staged"
	Saving    State = "saving"
)

// View is a copy of the workspace for rendering.
type View struct {
	State     State                      `json:"state"`
	AccountID string                     `json:"account_id"`
	FileName  string                     `json:"file_name,omitempty"`
	Rows      []domain.StagedTransaction `json:"rows"`
	Selected  []string                   `json:"selected"`
	Tagged    int                        `json:"tagged"`
	Total     int                        `json:"total"`
}

// Ticket identifies one upload or save in flight. Finishing with a ticket
// that is no longer current (the workspace was discarded, or another
// operation began since) changes nothing.
type Ticket uint64

// Workspace is one import session. It is safe for concurrent use.
type Workspace struct {
	mu        sync.Mutex
	state     State
	ticket    Ticket
	accountID string
	fileName  string
	rows      []domain.StagedTransaction
	selected  map[string]bool
}

// New returns an idle workspace.
func New() *Workspace {
	return &Workspace{state: Idle, selected: make(map[string]bool)}
}

// State returns the current lifecycle state.
func (w *Workspace) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// AccountID returns the target account.
func (w *Workspace) AccountID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.accountID
}

// SelectAccount sets the target account. It may change at any time before
// save; the account selected when saving wins.
func (w *Workspace) SelectAccount(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == Saving {
		return errBusy(w.state)
	}
	w.accountID = id
	return nil
}

// DefaultAccount selects the first bank account when none is chosen yet.
func (w *Workspace) DefaultAccount(accounts []domain.Account) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.accountID != "" {
		return
	}
	if banks := domain.FilterAccounts(accounts, domain.AccountBank); len(banks) > 0 {
		w.accountID = banks[0].ID
	}
}

// BeginUpload moves Idle → Uploading. A second upload while one is in
// flight or rows are staged is rejected. The ticket must be handed back to
// FinishUpload or FailUpload.
func (w *Workspace) BeginUpload(fileName string) (accountID string, t Ticket, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Idle {
		return "", 0, errBusy(w.state)
	}
	if w.accountID == "" {
		return "", 0, &domain.ErrValidation{Field: "account_id", Message: "Please select an account"}
	}
	w.state = Uploading
	w.fileName = fileName
	w.ticket++
	return w.accountID, w.ticket, nil
}

// FinishUpload moves Uploading → Staged with the parsed rows. Rows without
// a server id get a generated one so they stay addressable. ok is false,
// and nothing changes, when t is stale: the workspace was discarded while
// the upload was in flight, possibly with a newer upload begun since.
func (w *Workspace) FinishUpload(t Ticket, rows []domain.StagedTransaction) (n int, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Uploading || t != w.ticket {
		return 0, false
	}

	w.rows = make([]domain.StagedTransaction, len(rows))
	copy(w.rows, rows)
	for i := range w.rows {
		if w.rows[i].ID == "" {
			w.rows[i].ID = uuid.NewString()
		}
	}
	w.selected = make(map[string]bool)
	if len(w.rows) == 0 {
		w.state = Idle
		w.fileName = ""
	} else {
		w.state = Staged
	}
	return len(w.rows), true
}

// FailUpload returns Uploading → Idle when t is still current.
func (w *Workspace) FailUpload(t Ticket) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == Uploading && t == w.ticket {
		w.state = Idle
		w.fileName = ""
	}
}

// ============================================================
// Editing (Staged only, in memory)
// ============================================================

// ToggleSelect flips one row in or out of the selection.
func (w *Workspace) ToggleSelect(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	if w.index(id) < 0 {
		return &domain.ErrNotFound{Resource: "staged row", ID: id}
	}
	if w.selected[id] {
		delete(w.selected, id)
	} else {
		w.selected[id] = true
	}
	return nil
}

// ToggleSelectAll clears the selection when every row is selected and
// selects every row otherwise.
func (w *Workspace) ToggleSelectAll() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	if len(w.selected) == len(w.rows) {
		w.selected = make(map[string]bool)
		return nil
	}
	for _, r := range w.rows {
		w.selected[r.ID] = true
	}
	return nil
}

// ClearSelection empties the selection.
func (w *Workspace) ClearSelection() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	w.selected = make(map[string]bool)
	return nil
}

// Tag applies tag and loanID to the subject row. When a selection exists
// and contains the subject, every selected row is tagged instead and the
// selection is cleared. It returns the number of rows tagged.
func (w *Workspace) Tag(subjectID string, tag domain.Tag, loanID string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return 0, err
	}
	if w.index(subjectID) < 0 {
		return 0, &domain.ErrNotFound{Resource: "staged row", ID: subjectID}
	}

	if len(w.selected) > 0 && w.selected[subjectID] {
		n := 0
		for i := range w.rows {
			if w.selected[w.rows[i].ID] {
				w.rows[i].Tag = tag
				w.rows[i].LinkedLoanID = loanID
				n++
			}
		}
		w.selected = make(map[string]bool)
		return n, nil
	}

	i := w.index(subjectID)
	w.rows[i].Tag = tag
	w.rows[i].LinkedLoanID = loanID
	return 1, nil
}

// DeleteRow removes one row.
func (w *Workspace) DeleteRow(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	i := w.index(id)
	if i < 0 {
		return &domain.ErrNotFound{Resource: "staged row", ID: id}
	}
	w.rows = append(w.rows[:i], w.rows[i+1:]...)
	delete(w.selected, id)
	w.settle()
	return nil
}

// DeleteSelected removes every selected row and returns how many went.
func (w *Workspace) DeleteSelected() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return 0, err
	}
	if len(w.selected) == 0 {
		return 0, nil
	}
	kept := w.rows[:0]
	removed := 0
	for _, r := range w.rows {
		if w.selected[r.ID] {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	w.rows = kept
	w.selected = make(map[string]bool)
	w.settle()
	return removed, nil
}

// Clear discards every staged row and returns to Idle.
func (w *Workspace) Clear() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == Uploading || w.state == Saving {
		return errBusy(w.state)
	}
	w.reset()
	return nil
}

// Discard drops everything staged whatever the state. It runs when the
// session ends; a save or upload still in flight holds a stale ticket and
// its result is ignored.
func (w *Workspace) Discard() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ticket++
	w.reset()
}

// ============================================================
// Save
// ============================================================

// BeginSave moves Staged → Saving and returns the rows to submit, each
// carrying the account selected right now.
func (w *Workspace) BeginSave() ([]domain.StagedTransaction, Ticket, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Staged {
		if w.state == Idle {
			return nil, 0, &domain.ErrConflict{Message: "No transactions to save"}
		}
		return nil, 0, errBusy(w.state)
	}
	if w.accountID == "" {
		return nil, 0, &domain.ErrValidation{Field: "account_id", Message: "Please select an account"}
	}
	out := make([]domain.StagedTransaction, len(w.rows))
	for i, r := range w.rows {
		r.AccountID = w.accountID
		out[i] = r
	}
	w.state = Saving
	w.ticket++
	return out, w.ticket, nil
}

// FinishSave ends the save t began. On success the workspace returns to
// Idle; on failure the rows stay staged untouched. A stale t is ignored.
func (w *Workspace) FinishSave(t Ticket, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Saving || t != w.ticket {
		return
	}
	if ok {
		w.reset()
		return
	}
	w.state = Staged
}

// View returns a copy of the workspace.
func (w *Workspace) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	v := View{
		State:     w.state,
		AccountID: w.accountID,
		FileName:  w.fileName,
		Rows:      make([]domain.StagedTransaction, len(w.rows)),
		Selected:  make([]string, 0, len(w.selected)),
		Total:     len(w.rows),
	}
	copy(v.Rows, w.rows)
	for _, r := range w.rows {
		if w.selected[r.ID] {
			v.Selected = append(v.Selected, r.ID)
		}
		if r.Tagged() {
			v.Tagged++
		}
	}
	return v
}

// Row returns a copy of one staged row.
func (w *Workspace) Row(id string) (domain.StagedTransaction, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i := w.index(id); i >= 0 {
		return w.rows[i], true
	}
	return domain.StagedTransaction{}, false
}

// index must be called with mu held.
func (w *Workspace) index(id string) int {
	for i, r := range w.rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// editable must be called with mu held.
func (w *Workspace) editable() error {
	if w.state != Staged {
		return errBusy(w.state)
	}
	return nil
}

// settle returns to Idle once the last row is gone. Must hold mu.
func (w *Workspace) settle() {
	if len(w.rows) == 0 {
		w.reset()
	}
}

// reset must be called with mu held. The account selection survives.
func (w *Workspace) reset() {
	w.state = Idle
	w.fileName = ""
	w.rows = nil
	w.selected = make(map[string]bool)
}

func errBusy(s State) error {
	switch s {
	case Uploading:
		return &domain.ErrConflict{Message: "An upload is already in progress"}
	case Saving:
		return &domain.ErrConflict{Message: "Transactions are being saved"}
	case Staged:
		return &domain.ErrConflict{Message: "Save or clear the staged transactions first"}
	default:
		return &domain.ErrConflict{Message: "Upload a statement first"}
	}
}
