package billing

import (
	"fmt"

	"bizbooks-backend/internal/domain/errors"
)

// DocumentKind selects which transition table governs a document.
type DocumentKind int

const (
	KindEstimate DocumentKind = iota
	KindInvoice
	KindBill
)

func (k DocumentKind) String() string {
	switch k {
	case KindEstimate:
		return "estimate"
	case KindInvoice:
		return "invoice"
	case KindBill:
		return "bill"
	default:
		return "unknown"
	}
}

// ParseKind converts a stored kind string back to a DocumentKind.
func ParseKind(s string) (DocumentKind, error) {
	switch s {
	case "estimate":
		return KindEstimate, nil
	case "invoice":
		return KindInvoice, nil
	case "bill":
		return KindBill, nil
	default:
		return 0, fmt.Errorf("unknown document kind: %q", s)
	}
}

type Status int

const (
	StatusDraft Status = iota
	StatusSent
	StatusCustomerViewed
	StatusAccepted
	StatusDeclined
	StatusExpired
	StatusConverted
	StatusVoid
	StatusApproved
	StatusPartialPaid
	StatusPaid
	StatusCancelled
	// StatusOverdue is a derived display status, never stored.
	StatusOverdue
)

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusSent:
		return "sent"
	case StatusCustomerViewed:
		return "customer_viewed"
	case StatusAccepted:
		return "accepted"
	case StatusDeclined:
		return "declined"
	case StatusExpired:
		return "expired"
	case StatusConverted:
		return "converted"
	case StatusVoid:
		return "void"
	case StatusApproved:
		return "approved"
	case StatusPartialPaid:
		return "partial_paid"
	case StatusPaid:
		return "paid"
	case StatusCancelled:
		return "cancelled"
	case StatusOverdue:
		return "overdue"
	default:
		return "unknown"
	}
}

// ParseStatus converts a stored status string back to a Status.
func ParseStatus(s string) (Status, error) {
	for st := StatusDraft; st <= StatusCancelled; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown document status: %q", s)
}

// IsTerminal reports whether a document in this status is read-only.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusConverted, StatusPaid, StatusVoid, StatusCancelled:
		return true
	default:
		return false
	}
}

// Action is a requested lifecycle transition.
type Action int

const (
	ActionSend Action = iota
	ActionMarkViewed
	ActionAccept
	ActionDecline
	ActionExpire
	ActionConvert
	ActionVoid
	ActionApprove
	ActionRecordPayment
	ActionCancel
)

func (a Action) String() string {
	switch a {
	case ActionSend:
		return "send"
	case ActionMarkViewed:
		return "mark_viewed"
	case ActionAccept:
		return "accept"
	case ActionDecline:
		return "decline"
	case ActionExpire:
		return "expire"
	case ActionConvert:
		return "convert"
	case ActionVoid:
		return "void"
	case ActionApprove:
		return "approve"
	case ActionRecordPayment:
		return "record_payment"
	case ActionCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// SideEffect is an operation a transition authorizes. The engine never
// performs these itself; collaborators (journal, inventory, mailer)
// execute them after the transition commits.
type SideEffect string

const (
	EffectDispatchEmail       SideEffect = "dispatch_email"
	EffectPostJournalEntry    SideEffect = "post_journal_entry"
	EffectReverseJournalEntry SideEffect = "reverse_journal_entry"
	EffectConsumeStock        SideEffect = "consume_stock"
	EffectRestock             SideEffect = "restock"
	EffectReduceBalanceDue    SideEffect = "reduce_balance_due"
	EffectGenerateConverted   SideEffect = "generate_converted_document"
)

// TransitionResult records a committed transition and the side effects
// it authorized.
type TransitionResult struct {
	From    Status
	To      Status
	Effects []SideEffect
}

type transitionRule struct {
	from    []Status
	to      Status
	effects []SideEffect
}

func (r transitionRule) allows(s Status) bool {
	for _, f := range r.from {
		if f == s {
			return true
		}
	}
	return false
}

// estimateTransitions is the table for the quotation pipeline. Void is
// handled separately because its source set is "anything not yet
// converted or void".
var estimateTransitions = map[Action]transitionRule{
	ActionSend: {
		from:    []Status{StatusDraft},
		to:      StatusSent,
		effects: []SideEffect{EffectDispatchEmail},
	},
	ActionMarkViewed: {
		from: []Status{StatusSent},
		to:   StatusCustomerViewed,
	},
	// Accepting requires the customer to have opened the estimate;
	// decline and expire also apply to ones never viewed.
	ActionAccept: {
		from: []Status{StatusCustomerViewed},
		to:   StatusAccepted,
	},
	ActionDecline: {
		from: []Status{StatusSent, StatusCustomerViewed},
		to:   StatusDeclined,
	},
	ActionExpire: {
		from: []Status{StatusSent, StatusCustomerViewed},
		to:   StatusExpired,
	},
	ActionConvert: {
		from:    []Status{StatusAccepted},
		to:      StatusConverted,
		effects: []SideEffect{EffectGenerateConverted},
	},
}

// payableTransitions covers bills and invoices; the approve effects
// differ per kind and are filled in by effectsFor.
var payableTransitions = map[Action]transitionRule{
	ActionApprove: {
		from: []Status{StatusDraft},
		to:   StatusApproved,
	},
	ActionRecordPayment: {
		from:    []Status{StatusApproved, StatusPartialPaid},
		to:      StatusPartialPaid, // becomes StatusPaid when the balance clears
		effects: []SideEffect{EffectReduceBalanceDue},
	},
	ActionCancel: {
		from:    []Status{StatusDraft, StatusApproved, StatusPartialPaid},
		to:      StatusCancelled,
		effects: []SideEffect{EffectReverseJournalEntry},
	},
}

func effectsFor(kind DocumentKind, action Action, from Status, base []SideEffect) []SideEffect {
	switch {
	case action == ActionApprove && kind == KindInvoice:
		return []SideEffect{EffectPostJournalEntry, EffectConsumeStock}
	case action == ActionApprove && kind == KindBill:
		return []SideEffect{EffectPostJournalEntry, EffectRestock}
	case action == ActionCancel && from == StatusDraft:
		// Nothing was posted yet, so there is nothing to reverse.
		return nil
	default:
		return base
	}
}

// Transition applies an action to the document, mutating its status on
// success and returning the authorized side effects. Illegal actions
// leave the document untouched and return ErrIllegalTransition.
//
// ActionRecordPayment is rejected here: only ApplyPayment may drive
// it, because the payment amount is what decides between partial_paid
// and paid and what moves the ledger.
func (d *FinancialDocument) Transition(action Action) (TransitionResult, error) {
	if action == ActionRecordPayment {
		return TransitionResult{}, errors.ErrIllegalTransition.WithDetails(map[string]interface{}{
			"kind":   d.Kind.String(),
			"status": d.Status.String(),
			"action": action.String(),
			"reason": "payments are recorded through the ledger, not as a bare transition",
		})
	}
	return d.apply(action)
}

func (d *FinancialDocument) apply(action Action) (TransitionResult, error) {
	if action == ActionVoid {
		return d.void()
	}

	var table map[Action]transitionRule
	switch d.Kind {
	case KindEstimate:
		table = estimateTransitions
	case KindInvoice, KindBill:
		table = payableTransitions
	}

	rule, ok := table[action]
	if !ok || !rule.allows(d.Status) {
		return TransitionResult{}, errors.ErrIllegalTransition.WithDetails(map[string]interface{}{
			"kind":   d.Kind.String(),
			"status": d.Status.String(),
			"action": action.String(),
		})
	}

	to := rule.to
	if action == ActionRecordPayment && d.BalanceDue.IsZero() {
		to = StatusPaid
	}

	result := TransitionResult{
		From:    d.Status,
		To:      to,
		Effects: effectsFor(d.Kind, action, d.Status, rule.effects),
	}
	d.setStatus(to)
	return result, nil
}

// void moves an estimate to void from any state that has not been
// converted. Bills and invoices use cancel instead.
func (d *FinancialDocument) void() (TransitionResult, error) {
	if d.Kind != KindEstimate || d.Status == StatusConverted || d.Status == StatusVoid {
		return TransitionResult{}, errors.ErrIllegalTransition.WithDetails(map[string]interface{}{
			"kind":   d.Kind.String(),
			"status": d.Status.String(),
			"action": ActionVoid.String(),
		})
	}

	result := TransitionResult{From: d.Status, To: StatusVoid}
	d.setStatus(StatusVoid)
	return result, nil
}

// CanTransition reports whether the action is legal from the current
// status, without mutating the document. For ActionRecordPayment it
// answers whether a payment may be applied; the transition itself
// still only happens through ApplyPayment.
func (d *FinancialDocument) CanTransition(action Action) bool {
	if action == ActionVoid {
		return d.Kind == KindEstimate && d.Status != StatusConverted && d.Status != StatusVoid
	}

	var table map[Action]transitionRule
	switch d.Kind {
	case KindEstimate:
		table = estimateTransitions
	default:
		table = payableTransitions
	}

	rule, ok := table[action]
	return ok && rule.allows(d.Status)
}

// CanDelete reports whether deleting the document is legal. Only drafts
// may be deleted; everything else is voided or cancelled instead.
func (d *FinancialDocument) CanDelete() bool {
	return d.Status == StatusDraft
}
