package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridge-pos-payments/internal/terminal"
)

func applyAll(s Snapshot, c *Catalog, codes ...terminal.EventCode) []Snapshot {
	out := make([]Snapshot, 0, len(codes))
	for _, code := range codes {
		s = Apply(s, terminal.ProgressEvent{Code: code}, c)
		out = append(out, s)
	}
	return out
}

func TestApply_ChipAndPinSequence(t *testing.T) {
	c := PaymentCatalog()
	steps := applyAll(Start(OperationPayment, c), c,
		terminal.EventWaitingCard,
		terminal.EventInsertedCard,
		terminal.EventPinRequested,
		terminal.EventDigitPassword,
		terminal.EventDigitPassword,
		terminal.EventNoPassword,
		terminal.EventAuthorizing,
		terminal.EventApproved,
	)

	want := []struct {
		state      State
		keystrokes int
	}{
		{StateWaitingCard, 0},
		{StateCardInserted, 0},
		{StateEnterPassword, 0},
		{StateDigitPassword, 1},
		{StateDigitPassword, 2},
		{StateEnterPassword, 0},
		{StateAuthorizing, 0},
		{StateApproved, 0},
	}
	require.Len(t, steps, len(want))
	for i, w := range want {
		assert.Equal(t, w.state, steps[i].State, "step %d", i)
		assert.Equal(t, w.keystrokes, steps[i].Keystrokes, "step %d", i)
		assert.Equal(t, i == len(want)-1, steps[i].IsSuccess(), "step %d", i)
		assert.NotEmpty(t, steps[i].Message, "step %d", i)
	}
	assert.Equal(t, "Senha: **", steps[4].Message)
}

func TestStart_ResetsKeystrokes(t *testing.T) {
	c := PaymentCatalog()
	s := Start(OperationPayment, c)
	for i := 0; i < 4; i++ {
		s = Apply(s, terminal.ProgressEvent{Code: terminal.EventDigitPassword}, c)
	}
	require.Equal(t, 4, s.Keystrokes)
	s = Fail(s, nil, c)

	next := Start(OperationPayment, c)
	assert.Zero(t, next.Keystrokes)
	assert.Nil(t, next.Err)
	next = Apply(next, terminal.ProgressEvent{Code: terminal.EventDigitPassword}, c)
	assert.Equal(t, "Senha: *", next.Message)
}

func TestApply_IgnoredWhileIdle(t *testing.T) {
	c := PaymentCatalog()
	s := Apply(Idle(), terminal.ProgressEvent{Code: terminal.EventApproved}, c)
	assert.Equal(t, Idle(), s)
}

func TestApply_UnknownCodeGoesToDefault(t *testing.T) {
	c := PaymentCatalog()
	s := Apply(Start(OperationPayment, c), terminal.ProgressEvent{Code: "BRAND_NEW_EVENT", Message: "Aguarde"}, c)
	assert.Equal(t, StateDefault, s.State)
	assert.Equal(t, "Aguarde", s.Message)
	assert.True(t, s.IsProcessing())

	s = Apply(s, terminal.ProgressEvent{Code: terminal.EventDefault}, c)
	assert.Equal(t, StateDefault, s.State)
	assert.Equal(t, c.Unknown, s.Message)
}

func TestApply_CustomMessageKeepsState(t *testing.T) {
	c := PaymentCatalog()
	s := Apply(Start(OperationPayment, c), terminal.ProgressEvent{Code: terminal.EventAuthorizing}, c)
	s = Apply(s, terminal.ProgressEvent{Code: terminal.EventCustomMessage, Message: "Conectando ao banco"}, c)
	assert.Equal(t, StateAuthorizing, s.State)
	assert.Equal(t, "Conectando ao banco", s.Message)

	s = Apply(s, terminal.ProgressEvent{Code: terminal.EventCustomMessage}, c)
	assert.Equal(t, "Conectando ao banco", s.Message)
}

func TestApply_ErrorEvent(t *testing.T) {
	c := PaymentCatalog()
	s := Apply(Start(OperationPayment, c), terminal.ProgressEvent{Code: terminal.EventError}, c)
	assert.Equal(t, StateError, s.State)
	assert.Equal(t, c.EventFallback, s.Message)
	require.NotNil(t, s.Err)
	assert.Equal(t, terminal.CodeGatewayFailure, s.Err.Code)

	s = Apply(Start(OperationPayment, c), terminal.ProgressEvent{Code: terminal.EventError, Message: "Cartão bloqueado"}, c)
	assert.Equal(t, "Cartão bloqueado", s.Message)
}

func TestSucceedAndFail(t *testing.T) {
	c := VoidCatalog()
	s := Succeed(Start(OperationVoid, c), c)
	assert.Equal(t, StateSuccess, s.State)
	assert.Equal(t, "Estorno concluído com sucesso!", s.Message)

	s = Fail(Start(OperationVoid, c), nil, c)
	assert.Equal(t, "Falha no estorno", s.Message)
	assert.True(t, s.IsError())

	s = Fail(Start(OperationVoid, c), terminal.NewOperationError(terminal.CodeNotApproved, "Negada"), c)
	assert.Equal(t, "Negada", s.Message)
}

func TestReset_Guard(t *testing.T) {
	c := PaymentCatalog()

	processing := Apply(Start(OperationPayment, c), terminal.ProgressEvent{Code: terminal.EventWaitingCard}, c)
	got, ok := Reset(processing)
	assert.False(t, ok)
	assert.Equal(t, processing, got)

	for _, terminalState := range []Snapshot{
		Succeed(processing, c),
		Fail(processing, terminal.NewOperationError(terminal.CodeAborted, "Cancelada"), c),
	} {
		got, ok := Reset(terminalState)
		assert.True(t, ok)
		assert.Equal(t, StateIdle, got.State)
		assert.Empty(t, got.Message)
		assert.Nil(t, got.Err)
	}
}

func TestStateClassification(t *testing.T) {
	for _, s := range []State{StateApproved, StateSuccess, StateSaleEnd, StateActivationSuccess} {
		assert.True(t, s.IsSuccess(), s)
		assert.False(t, s.IsProcessing(), s)
	}
	for _, s := range []State{StateError, StateReproved, StateContactlessError} {
		assert.True(t, s.IsError(), s)
		assert.False(t, s.IsProcessing(), s)
	}
	for _, s := range []State{StateProcessing, StateCardRemoved, StateDefault, StateAuthorizing} {
		assert.True(t, s.IsProcessing(), s)
	}
	assert.False(t, StateIdle.IsProcessing())
	assert.False(t, StateIdle.IsSuccess())
	assert.False(t, StateIdle.IsError())
}

func TestCatalogsDiffer(t *testing.T) {
	pay := Apply(Start(OperationPayment, PaymentCatalog()), terminal.ProgressEvent{Code: terminal.EventApproved}, PaymentCatalog())
	void := Apply(Start(OperationVoid, VoidCatalog()), terminal.ProgressEvent{Code: terminal.EventApproved}, VoidCatalog())
	assert.Equal(t, pay.State, void.State)
	assert.NotEqual(t, pay.Message, void.Message)
}
