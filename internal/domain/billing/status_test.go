package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizbooks-backend/internal/domain/errors"
)

func draftEstimate(t *testing.T) *FinancialDocument {
	t.Helper()
	items := []LineItem{ptItem("1", "100", NoDiscount(), "18", false)}
	doc, err := NewDocument(KindEstimate, "EST-1", uuid.New(), items, noCharges(), TermsNet15, 0, time.Now())
	require.NoError(t, err)
	return doc
}

func draftBill(t *testing.T) *FinancialDocument {
	t.Helper()
	items := []LineItem{ptItem("1", "100", NoDiscount(), "18", false)}
	doc, err := NewDocument(KindBill, "BILL-1", uuid.New(), items, noCharges(), TermsNet30, 0, time.Now())
	require.NoError(t, err)
	return doc
}

func TestEstimateHappyPath(t *testing.T) {
	doc := draftEstimate(t)

	res, err := doc.Transition(ActionSend)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, res.From)
	assert.Equal(t, StatusSent, res.To)
	assert.Contains(t, res.Effects, EffectDispatchEmail)

	_, err = doc.Transition(ActionMarkViewed)
	require.NoError(t, err)
	assert.Equal(t, StatusCustomerViewed, doc.Status)

	_, err = doc.Transition(ActionAccept)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, doc.Status)

	res, err = doc.Transition(ActionConvert)
	require.NoError(t, err)
	assert.Equal(t, StatusConverted, doc.Status)
	assert.Contains(t, res.Effects, EffectGenerateConverted)
}

// Accepting is only legal once the customer has viewed the estimate;
// decline and expire cover the never-viewed case too.
func TestAcceptRequiresCustomerViewed(t *testing.T) {
	doc := draftEstimate(t)
	_, err := doc.Transition(ActionSend)
	require.NoError(t, err)

	_, err = doc.Transition(ActionAccept)
	assert.ErrorIs(t, err, errors.ErrIllegalTransition)
	assert.Equal(t, StatusSent, doc.Status)

	_, err = doc.Transition(ActionMarkViewed)
	require.NoError(t, err)
	_, err = doc.Transition(ActionAccept)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, doc.Status)
}

func TestEstimateDeclineAndExpire(t *testing.T) {
	doc := draftEstimate(t)
	_, err := doc.Transition(ActionSend)
	require.NoError(t, err)

	_, err = doc.Transition(ActionDecline)
	require.NoError(t, err)
	assert.Equal(t, StatusDeclined, doc.Status)

	doc = draftEstimate(t)
	_, err = doc.Transition(ActionSend)
	require.NoError(t, err)
	_, err = doc.Transition(ActionMarkViewed)
	require.NoError(t, err)

	_, err = doc.Transition(ActionExpire)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, doc.Status)
}

// Converted must be unreachable from anything but accepted.
func TestConvertOnlyFromAccepted(t *testing.T) {
	for s := StatusDraft; s <= StatusCancelled; s++ {
		doc := draftEstimate(t)
		doc.Status = s

		_, err := doc.Transition(ActionConvert)
		if s == StatusAccepted {
			require.NoError(t, err, "status=%s", s)
			assert.Equal(t, StatusConverted, doc.Status)
		} else {
			require.Error(t, err, "status=%s", s)
			assert.ErrorIs(t, err, errors.ErrIllegalTransition)
			assert.Equal(t, s, doc.Status, "failed transition must not mutate, status=%s", s)
		}
	}
}

func TestVoidRules(t *testing.T) {
	// any non-converted, non-void estimate state can be voided
	for _, s := range []Status{StatusDraft, StatusSent, StatusCustomerViewed, StatusAccepted, StatusDeclined, StatusExpired} {
		doc := draftEstimate(t)
		doc.Status = s

		res, err := doc.Transition(ActionVoid)
		require.NoError(t, err, "status=%s", s)
		assert.Equal(t, StatusVoid, res.To)
	}

	for _, s := range []Status{StatusConverted, StatusVoid} {
		doc := draftEstimate(t)
		doc.Status = s

		_, err := doc.Transition(ActionVoid)
		assert.ErrorIs(t, err, errors.ErrIllegalTransition, "status=%s", s)
	}

	// bills cancel, they do not void
	bill := draftBill(t)
	_, err := bill.Transition(ActionVoid)
	assert.ErrorIs(t, err, errors.ErrIllegalTransition)
}

func TestTerminalStatesAcceptNoAction(t *testing.T) {
	actions := []Action{
		ActionSend, ActionMarkViewed, ActionAccept, ActionDecline, ActionExpire,
		ActionConvert, ActionVoid, ActionApprove, ActionRecordPayment, ActionCancel,
	}

	for _, kind := range []DocumentKind{KindEstimate, KindInvoice, KindBill} {
		for _, s := range []Status{StatusPaid, StatusCancelled, StatusVoid, StatusConverted} {
			for _, a := range actions {
				doc := draftEstimate(t)
				doc.Kind = kind
				doc.Status = s

				// void of a converted/void estimate is covered above;
				// every terminal status must reject every action
				if kind == KindEstimate && a == ActionVoid && s != StatusConverted && s != StatusVoid {
					continue
				}

				_, err := doc.Transition(a)
				assert.Error(t, err, "kind=%s status=%s action=%s", kind, s, a)
			}
		}
	}
}

func TestBillApproveAuthorizesJournal(t *testing.T) {
	bill := draftBill(t)

	res, err := bill.Transition(ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, bill.Status)
	assert.Contains(t, res.Effects, EffectPostJournalEntry)
	assert.Contains(t, res.Effects, EffectRestock)
}

func TestInvoiceApproveConsumesStock(t *testing.T) {
	items := []LineItem{ptItem("1", "100", NoDiscount(), "18", false)}
	inv, err := NewDocument(KindInvoice, "INV-1", uuid.New(), items, noCharges(), TermsNet30, 0, time.Now())
	require.NoError(t, err)

	res, err := inv.Transition(ActionApprove)
	require.NoError(t, err)
	assert.Contains(t, res.Effects, EffectPostJournalEntry)
	assert.Contains(t, res.Effects, EffectConsumeStock)
}

func TestCancelRules(t *testing.T) {
	// cancelling a draft has nothing to reverse
	bill := draftBill(t)
	res, err := bill.Transition(ActionCancel)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, bill.Status)
	assert.Empty(t, res.Effects)

	// cancelling an approved bill reverses the journal entry
	bill = draftBill(t)
	_, err = bill.Transition(ActionApprove)
	require.NoError(t, err)
	res, err = bill.Transition(ActionCancel)
	require.NoError(t, err)
	assert.Contains(t, res.Effects, EffectReverseJournalEntry)

	// paid bills cannot be cancelled
	bill = draftBill(t)
	bill.Status = StatusPaid
	_, err = bill.Transition(ActionCancel)
	assert.ErrorIs(t, err, errors.ErrIllegalTransition)
}

func TestCanDelete(t *testing.T) {
	doc := draftEstimate(t)
	assert.True(t, doc.CanDelete())

	_, err := doc.Transition(ActionSend)
	require.NoError(t, err)
	assert.False(t, doc.CanDelete())
}

func TestStatusRoundTrip(t *testing.T) {
	for s := StatusDraft; s <= StatusCancelled; s++ {
		parsed, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseStatus("garbage")
	assert.Error(t, err)

	// the derived display status is never persisted
	_, err = ParseStatus(StatusOverdue.String())
	assert.Error(t, err)
}

func TestKindRoundTrip(t *testing.T) {
	for _, k := range []DocumentKind{KindEstimate, KindInvoice, KindBill} {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseKind("ledger")
	assert.Error(t, err)
}
