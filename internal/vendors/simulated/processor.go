package simulated

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bridge-pos-payments/internal/terminal"
)

var transactionNamespaceUUID = uuid.MustParse("6f1d3c2a-8b47-4e0f-9a51-2c7e94d0b3f8")

// ledger builds transaction records and remembers the approved ones so voids and the
// last-approved lookup can find them.
type ledger struct {
	mu       sync.Mutex
	serial   string
	seq      uint32
	approved []*terminal.TransactionResult
	voided   map[string]bool
	now      func() time.Time
}

func newLedger(serial string) *ledger {
	return &ledger{
		serial: serial,
		voided: make(map[string]bool),
		now:    time.Now,
	}
}

// record creates the result for an approved operation. Codes are UUIDv5 over the
// terminal serial and sequence so a replay of the same script yields the same codes.
func (l *ledger) record(amount int64, paymentType terminal.PaymentType, installments int, reference, kind string) *terminal.TransactionResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	name := fmt.Sprintf("%s:%d:%d:%s", l.serial, l.seq, amount, kind)
	id := uuid.NewSHA1(transactionNamespaceUUID, []byte(name))
	compact := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	now := l.now()

	tx := &terminal.TransactionResult{
		TransactionCode:       compact[:20],
		TransactionID:         id.String(),
		Date:                  now.Format("02/01/2006"),
		Time:                  now.Format("15:04:05"),
		HostNSU:               fmt.Sprintf("%012d", l.seq),
		NSU:                   fmt.Sprintf("%06d", l.seq),
		AutoCode:              compact[20:26],
		TerminalSerialNumber:  l.serial,
		Amount:                terminal.FormatAmount(amount),
		OriginalAmount:        amount,
		Installments:          installments,
		PaymentType:           int(paymentType),
		TypeTransaction:       kind,
		UserReference:         reference,
		ReaderModel:           "SIMULATED",
		CardIssuerNationality: terminal.NationalityDomestic,
	}

	if paymentType == terminal.PaymentPix {
		tx.CardBrand = "PIX"
		tx.PixTxIDCode = compact[:26]
		tx.CardIssuerNationality = terminal.NationalityUnavailable
	} else {
		tx.CardBrand = "VISA"
		tx.Bin = "476173"
		tx.Holder = "0010"
		tx.HolderName = "CLIENTE SIMULADO"
		tx.CardApplication = "A0000000031010"
		tx.Label = "VISA " + paymentType.String()
	}
	return tx
}

func (l *ledger) approve(tx *terminal.TransactionResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.approved = append(l.approved, tx)
}

// find returns the approved payment matching code and id, if it was not voided yet.
func (l *ledger) find(code, id string) (*terminal.TransactionResult, *terminal.OperationError) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.approved) - 1; i >= 0; i-- {
		tx := l.approved[i]
		if tx.TransactionCode != code || tx.TransactionID != id {
			continue
		}
		if l.voided[tx.TransactionCode] {
			return nil, terminal.NewOperationError(terminal.CodeNotApproved, "Transação já estornada")
		}
		return tx, nil
	}
	return nil, terminal.NewOperationError(terminal.CodeNoTransaction, "Transação não encontrada")
}

func (l *ledger) markVoided(code string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.voided[code] = true
}

// last returns the most recent approved payment.
func (l *ledger) last() (*terminal.TransactionResult, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.approved) - 1; i >= 0; i-- {
		if l.approved[i].TypeTransaction == kindPayment {
			return l.approved[i], true
		}
	}
	return nil, false
}
